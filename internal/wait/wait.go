// Package wait implements the per-actor wait/wakeup state machine that
// Recv and Select block on (spec.md §4.2–§4.4); plain Yield and Take
// block on the outgoing port's own condition variable instead: a sync.Cond
// guarding a wait bitmask and a wakeup reason, with the invariant
// "sleeping iff wait != 0 and wakeup == none". A plain chan cannot express
// this: Select needs to register interest in several wait reasons at
// once, peek at queue state while still holding the lock, and be woken
// with a reason distinguishable from a spurious signal, none of which
// compose cleanly with channel receive.
package wait

import "sync"

// Mask is a bitmask of the actions an actor is currently blocked on.
type Mask uint8

const (
	// Recving: blocked in Recv, waiting for the incoming queue to gain
	// an entry.
	Recving Mask = 1 << iota
	// Yielding: blocked in a Select with a Yield case, offering a value
	// and waiting for some actor to take it.
	Yielding
	// Taking: blocked in a Select with a Take case, waiting for a peer to
	// offer a value on its outgoing port.
	Taking
)

// Reason records why a sleeping actor was woken (spec.md §4.2/§4.4).
type Reason int

const (
	None Reason = iota
	BySend
	ByYield
	ByTake
	ByClose
	ByInterrupt
	ByRetry
)

func (r Reason) String() string {
	switch r {
	case BySend:
		return "BySend"
	case ByYield:
		return "ByYield"
	case ByTake:
		return "ByTake"
	case ByClose:
		return "ByClose"
	case ByInterrupt:
		return "ByInterrupt"
	case ByRetry:
		return "ByRetry"
	default:
		return "None"
	}
}

// State is the wait/wakeup machine owned by a single actor. It is driven
// under the actor's own mutex: New takes that mutex so Cond.Wait releases
// and reacquires it correctly.
type State struct {
	cond   *sync.Cond
	wait   Mask
	wakeup Reason
}

// New returns a wait state synchronized on mu, which must be the same
// mutex the owning actor uses to guard its other fields.
func New(mu sync.Locker) *State {
	return &State{cond: sync.NewCond(mu)}
}

// BeginSleep records that the caller is about to block on any of the
// actions in m. Must be called with the actor's lock held.
func (s *State) BeginSleep(m Mask) {
	s.wait |= m
	s.wakeup = None
}

// Sleep blocks the calling goroutine until wakeup != None, then clears
// the wait mask and returns the reason. The reason itself is left in
// place until the next BeginSleep, so every goroutine a WakeAll released
// observes it. Must be called with the actor's lock held; it releases the
// lock while blocked, per sync.Cond.Wait.
func (s *State) Sleep() Reason {
	for s.wakeup == None {
		s.cond.Wait()
	}
	reason := s.wakeup
	s.wait = 0
	return reason
}

// ClearWait cancels a pending wait without sleeping, used when a caller
// called BeginSleep but aborted before actually sleeping (for instance a
// Select whose register-phase failed partway through).
func (s *State) ClearWait() {
	s.wait = 0
	s.wakeup = None
}

// Waiting reports whether the actor is currently asleep on any action in
// m (wait&m != 0 and wakeup == None), the condition wakers must check
// before it is worth signaling.
func (s *State) Waiting(m Mask) bool {
	return s.wait&m != 0 && s.wakeup == None
}

// Wake sets the wakeup reason and signals one sleeper. It is the caller's
// responsibility to have checked Waiting first and to hold the actor's
// lock.
func (s *State) Wake(reason Reason) {
	s.wakeup = reason
	s.cond.Signal()
}

// WakeAll sets the wakeup reason and wakes every goroutine blocked on
// this state, used by CloseIncoming and Finish (spec.md §4.2) where
// more than one goroutine might be waiting.
func (s *State) WakeAll(reason Reason) {
	s.wakeup = reason
	s.cond.Broadcast()
}
