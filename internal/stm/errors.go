// Package stm implements the transactional shared memory component
// (spec.md §4.6, C8): T-Vars under an optimistic TL2-style transaction,
// a pessimistic bulk-lock fallback, and the standalone Lock/LVar
// primitives, grounded directly on original_source/ractor_space.c.
package stm

import "errors"

// ErrTransactionClosed is raised when a transaction already past
// stop_adding (a bulk-lock block) is asked to touch a TVar it did not
// lock up front (spec.md §9: "hard-fails if a pessimistic-lock block
// touches a new t-var").
var ErrTransactionClosed = errors.New("ractor: transaction is closed to new t-vars")

// ErrNestedTransaction is raised by Atomically/LockBegin when the calling
// actor's transaction is already enabled (spec.md §7 TransactionError:
// "nested lock").
var ErrNestedTransaction = errors.New("ractor: transaction already in progress")

// ErrWriteOutsideTransaction is raised by Tx.Write when called with no
// enclosing transaction (spec.md §7 TransactionError).
var ErrWriteOutsideTransaction = errors.New("ractor: tvar write outside a transaction")

// ErrLockNotOwned is raised by Lock.Unlock and any LVar access made by
// an actor that does not currently hold the associated Lock (spec.md
// §4.6 Lock/LVar, ractor_lock_unlock's "not locked by the current
// ractor" check).
var ErrLockNotOwned = errors.New("ractor: lock not owned by caller")

// ErrLVarNotShareable is raised by LVar.Set when given a value that
// fails classify.Shareable: an LVar's published value must be safely
// readable by any actor that later acquires the lock.
var ErrLVarNotShareable = errors.New("ractor: lvar value is not shareable")
