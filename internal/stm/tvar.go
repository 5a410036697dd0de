package stm

import (
	"fmt"
	"sync"

	"ractor/internal/classify"
)

// TVar is one versioned, globally-named cell (spec.md §4.6 T-Vars). Its
// mutex guards the pair (version, value) and is the lock a Commit/
// LockBegin acquires in descending-index order; it is never held across
// a blocking call.
type TVar struct {
	mu      sync.Mutex
	version uint64
	value   classify.Classifiable
	index   uint64
}

// NewTVar allocates a TVar positioned by space for commit-lock ordering,
// initialized to value (spec.md §6 TVar(initial)).
func NewTVar(space *Space, value classify.Classifiable) *TVar {
	return &TVar{
		value: value,
		index: space.nextSlotIndex(),
	}
}

// snapshot reads the current committed value outside any transaction,
// used by Tx.Read on first touch of a TVar.
func (t *TVar) snapshot() classify.Classifiable {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

func (t *TVar) lock() { t.mu.Lock() }

func (t *TVar) unlock() { t.mu.Unlock() }

// Increment implements spec.md §4.7's increment fast-path: outside any
// transaction, lock the slot, add delta under the lock, and advance the
// global version directly, skipping the snapshot/commit machinery a full
// Atomically call needs (ractor_space.c's ractor_tvar_increment). It
// requires t's current value to implement classify.FixedWidth; if the add
// would overflow that representation, or the value isn't FixedWidth at
// all, it falls back to a one-element Atomically transaction doing the
// same "+ then store" the ordinary way.
func (t *TVar) Increment(space *Space, delta int64) error {
	t.mu.Lock()
	if fw, ok := t.value.(classify.FixedWidth); ok {
		if next, ok := fw.AddInt64(delta); ok {
			t.value = next
			t.version = space.nextVersion()
			t.mu.Unlock()
			return nil
		}
	}
	t.mu.Unlock()
	return t.incrementSlow(space, delta)
}

func (t *TVar) incrementSlow(space *Space, delta int64) error {
	tx := NewTx(space)
	return Atomically(tx, func(tx *Tx) error {
		v, err := tx.Read(t)
		if err != nil {
			return err
		}
		fw, ok := v.(classify.FixedWidth)
		if !ok {
			return fmt.Errorf("stm: increment requires a classify.FixedWidth value, got %T", v)
		}
		next, _ := fw.AddInt64(delta)
		return tx.Write(t, next)
	})
}
