package stm

import (
	"sync"

	"ractor/internal/classify"
)

// Lock is the standalone mutex primitive (spec.md §4.6 Lock), grounded
// directly on ractor_lock_lock/ractor_lock_unlock/ractor_lock_own_p: a
// plain exclusive lock keyed by the owning actor's id rather than by
// goroutine identity, matching the same explicit-owner-token divergence
// already used by internal/vm's VM lock. It is not reentrant: a second
// Lock call by the same owner while held blocks like any other caller,
// same as the original.
type Lock struct {
	mu    sync.Mutex
	cond  *sync.Cond
	held  bool
	owner classify.ActorID
}

// NewLock returns a free lock.
func NewLock() *Lock {
	l := &Lock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Lock blocks until the lock is free, then marks it held by owner.
func (l *Lock) Lock(owner classify.ActorID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.held {
		l.cond.Wait()
	}
	l.held = true
	l.owner = owner
}

// Unlock releases the lock. It fails if owner is not the current
// holder (ErrLockNotOwned).
func (l *Lock) Unlock(owner classify.ActorID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held || l.owner != owner {
		return ErrLockNotOwned
	}
	l.held = false
	l.cond.Signal()
	return nil
}

// Owned reports whether owner currently holds the lock.
func (l *Lock) Owned(owner classify.ActorID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held && l.owner == owner
}
