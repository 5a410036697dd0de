package actor

import (
	"context"
	"sync"

	"ractor/internal/classify"
	"ractor/internal/wait"
)

// waiterRef lets a port wake a selecting actor that registered interest
// in it without the port needing to know anything about Select itself.
// mu is the waiting actor's own lock: state must only be touched while
// holding it.
type waiterRef struct {
	state *wait.State
	mu    *sync.Mutex
	mask  wait.Mask
}

// port is the zero-capacity, synchronous outgoing port every actor owns
// (spec.md §3 outgoing port, §4.2). It is deliberately its own small
// rendezvous object rather than a second use of the actor-wide wait.State:
// Yield/Take hand a value directly from offerer to taker, and Select
// needs to register interest in several peers' ports at once, which is
// simplest when each port manages its own waiter list.
//
// Lock order: a port belongs to its owning (yielding) actor. Any code
// that holds a port's mutex and then needs to touch a waiting actor's
// state (wakeWaitersLocked) always locks the port first (outer) and the
// waiting actor's lock second (inner), the same "yielder outer, taker
// inner" rule spec.md §5 leaves unspecified between actors.
type port struct {
	mu      sync.Mutex
	cond    *sync.Cond
	offer   *classify.Basket
	closed  bool
	waiters []waiterRef

	// blockedTakers counts goroutines currently parked in take() with no
	// offer to consume. tryOffer only succeeds when this is nonzero, so
	// a Select's Yield case can complete without an unbounded wait: a
	// real taker is already spinning on the same cond.
	blockedTakers int
}

func newPort() *port {
	p := &port{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// watchCtx forces a re-check of a Cond-guarded loop when ctx is canceled,
// since sync.Cond has no native cancellation. The returned stop func must
// be called once the loop exits to release the watcher goroutine.
func watchCtx(ctx context.Context, mu sync.Locker, cond *sync.Cond) (stop func()) {
	if ctx == nil || ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			mu.Lock()
			cond.Broadcast()
			mu.Unlock()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// registerWaiter adds w to the port's waiter list, used by Select's
// register-phase when a Take or Yield action isn't immediately ready. It
// refuses a second registration for a state already present in the
// list, the port's takingList already naming this caller, reporting
// ok=false so the caller fails with ErrAlreadyWaiting instead of
// silently double-registering (spec.md §7 AlreadyWaiting).
func (p *port) registerWaiter(w waiterRef) (ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.waiters {
		if existing.state == w.state {
			return false
		}
	}
	p.waiters = append(p.waiters, w)
	return true
}

// unregisterWaiter removes any waiter entries for state, used when a
// Select returns (via this port or another) and must stop listening on
// the ones it didn't take.
func (p *port) unregisterWaiter(state *wait.State) {
	p.mu.Lock()
	kept := p.waiters[:0]
	for _, w := range p.waiters {
		if w.state != state {
			kept = append(kept, w)
		}
	}
	p.waiters = kept
	p.mu.Unlock()
}

// wakeWaitersLocked wakes every registered waiter still asleep on mask,
// for a given reason. Must be called with p.mu held.
func (p *port) wakeWaitersLocked(reason wait.Reason) {
	for _, w := range p.waiters {
		w.mu.Lock()
		if w.state.Waiting(w.mask) {
			w.state.Wake(reason)
		}
		w.mu.Unlock()
	}
}

// offerAndWait publishes b and blocks until it is taken or the port is closed
// (spec.md §4.2 yield). ctx cancellation surfaces as ctx.Err().
func (p *port) offerAndWait(ctx context.Context, b classify.Basket) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrOutgoingClosed
	}
	p.offer = &b
	p.wakeWaitersLocked(wait.ByYield)
	p.cond.Broadcast()

	stop := watchCtx(ctx, &p.mu, p.cond)
	defer stop()
	for p.offer != nil && !p.closed {
		if ctx != nil && ctx.Err() != nil {
			p.offer = nil
			return ctx.Err()
		}
		p.cond.Wait()
	}
	if p.offer != nil {
		p.offer = nil
		return ErrOutgoingClosed
	}
	return nil
}

// tryTake consumes a pending offer without blocking, used by Select's
// try-phase (spec.md §4.4).
func (p *port) tryTake() (classify.Basket, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.offer == nil {
		return classify.Basket{}, false
	}
	b := *p.offer
	p.offer = nil
	p.cond.Broadcast()
	return b, true
}

// take blocks until a value has been offered or the port is closed. If
// it has to block, it first wakes any Select registered with a pending
// Yield case (wait.ByRetry), so that case's owner can notice a taker has
// shown up and offer through tryOffer instead of also blocking.
func (p *port) take(ctx context.Context) (classify.Basket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stop := watchCtx(ctx, &p.mu, p.cond)
	defer stop()
	if p.offer == nil && !p.closed {
		p.blockedTakers++
		p.wakeWaitersLocked(wait.ByRetry)
		defer func() { p.blockedTakers-- }()
	}
	for p.offer == nil {
		if p.closed {
			return classify.Basket{}, ErrOutgoingClosed
		}
		if ctx != nil && ctx.Err() != nil {
			return classify.Basket{}, ctx.Err()
		}
		p.cond.Wait()
	}
	b := *p.offer
	p.offer = nil
	p.cond.Broadcast()
	return b, nil
}

// tryOffer completes a Select's ActionYield case without an unbounded
// wait: it only succeeds when a taker is already blocked in take(), in
// which case handing it the value is bounded by that taker's own
// spin on this same condition variable.
func (p *port) tryOffer(b classify.Basket) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.offer != nil || p.blockedTakers == 0 {
		return false
	}
	p.offer = &b
	p.cond.Broadcast()
	for p.offer != nil && !p.closed {
		p.cond.Wait()
	}
	return true
}

// close marks the port closed and wakes everyone currently blocked on
// it, returning whether it was already closed (spec.md §8: a second
// close_outgoing observes the prior close rather than erroring).
func (p *port) close() (alreadyClosed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	alreadyClosed = p.closed
	p.closed = true
	p.cond.Broadcast()
	p.wakeWaitersLocked(wait.ByClose)
	return alreadyClosed
}
