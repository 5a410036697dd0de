package stm

import "ractor/internal/classify"

// LVar is a value published under a Lock (spec.md §4.6 LVar): reading
// or writing it requires the caller to already hold the paired Lock,
// and a write must be a shareable value since the next lock holder may
// be a different actor entirely (ractor_lvar_get/ractor_lvar_set).
type LVar struct {
	lock  *Lock
	value classify.Classifiable
}

// NewLVar pairs initial with lock. initial is not itself checked for
// shareability; the caller is expected to have classified it before
// publishing.
func NewLVar(lock *Lock, initial classify.Classifiable) *LVar {
	return &LVar{lock: lock, value: initial}
}

// Get returns the current value, failing if owner does not hold the
// lock.
func (lv *LVar) Get(owner classify.ActorID) (classify.Classifiable, error) {
	if !lv.lock.Owned(owner) {
		return nil, ErrLockNotOwned
	}
	return lv.value, nil
}

// Set publishes v, failing if owner does not hold the lock or v is not
// shareable.
func (lv *LVar) Set(owner classify.ActorID, v classify.Classifiable) error {
	if !lv.lock.Owned(owner) {
		return ErrLockNotOwned
	}
	if !classify.Shareable(v) {
		return ErrLVarNotShareable
	}
	lv.value = v
	return nil
}
