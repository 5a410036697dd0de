package actor

import (
	"context"
	"fmt"
	"math/rand"

	"ractor/internal/classify"
	"ractor/internal/wait"
)

// ActionKind distinguishes the three things a Select case can wait on
// (spec.md §4.4).
type ActionKind int

const (
	ActionRecv ActionKind = iota
	ActionTake
	ActionYield
)

// SelectAction is one case of a Select call. Peer is required for
// ActionTake; Value is required for ActionYield.
type SelectAction struct {
	Kind  ActionKind
	Peer  *Actor
	Value classify.Basket
}

// SelectResult reports which action fired and, for Recv/Take, the
// basket it produced.
type SelectResult struct {
	Index  int
	Kind   ActionKind
	Peer   *Actor
	Basket classify.Basket
}

// Select blocks until exactly one of actions is ready, performs it, and
// reports which one fired (spec.md §4.4 select). It is built as a
// try-phase / register-phase / sleep / retry loop: cases are tried
// without blocking first; if none are ready, the caller registers
// interest in every Take/Yield peer and sleeps once; a wakeup re-enters
// the try-phase, because more than one registered case can race to be
// consumed by someone else first (wait.ByRetry).
//
// ActionYield cases complete in the try-phase only when a plain Take
// call is already blocked waiting on this actor's outgoing port
// (port.tryOffer); otherwise the case is registered and the select
// blocks until take() on the other side notices and wakes it to retry.
func (a *Actor) Select(ctx context.Context, actions []SelectAction) (SelectResult, error) {
	if len(actions) == 0 {
		return SelectResult{}, fmt.Errorf("actor: select requires at least one action")
	}
	if err := validateActions(actions); err != nil {
		return SelectResult{}, err
	}

	for {
		if res, ok, err := a.selectTry(actions); err != nil {
			return SelectResult{}, err
		} else if ok {
			return res, nil
		}
		if ctx != nil && ctx.Err() != nil {
			return SelectResult{}, ctx.Err()
		}

		// BeginSleep must happen before registering with any peer port:
		// once registered, a peer can wake us as soon as it observes us
		// waiting, and that check (wait.State.Waiting) only succeeds once
		// the mask bits below are set. Registering first would leave a
		// window where a peer's event arrives and finds no one waiting.
		a.mu.Lock()
		a.waitState.BeginSleep(wait.Recving | wait.Yielding | wait.Taking)
		a.mu.Unlock()

		cleanup, err := a.selectRegister(actions)
		if err != nil {
			a.mu.Lock()
			a.waitState.ClearWait()
			a.mu.Unlock()
			return SelectResult{}, err
		}
		a.enterBlocking()
		a.mu.Lock()
		reason := a.sleepInterruptible(ctx)
		a.mu.Unlock()
		a.exitBlocking()
		cleanup()

		if reason == wait.ByInterrupt {
			if ctx != nil && ctx.Err() != nil {
				return SelectResult{}, ctx.Err()
			}
		}
		// Any other reason (BySend, ByYield, ByTake, ByClose, ByRetry)
		// just means: go try everything again.
	}
}

// validateActions rejects a malformed SelectAction before any port is
// touched (spec.md §7 ArgumentError: "select argument that is neither
// self nor peer"): an ActionTake naming no peer, or a Kind this package
// doesn't recognize.
func validateActions(actions []SelectAction) error {
	for i, act := range actions {
		switch act.Kind {
		case ActionRecv, ActionYield:
		case ActionTake:
			if act.Peer == nil {
				return fmt.Errorf("%w: action %d is ActionTake with a nil Peer", ErrInvalidSelectAction, i)
			}
		default:
			return fmt.Errorf("%w: action %d has unrecognized Kind %d", ErrInvalidSelectAction, i, act.Kind)
		}
	}
	return nil
}

// selectTry runs the non-blocking try-phase over every Recv/Take/Yield action.
// A nil error with ok=false means nothing was ready yet. With
// cfg.Fairness set, the order cases are tried in is shuffled each call
// (spec.md §9: "select shuffling is TODO in source; specification does
// not require randomization but allows it for fairness"), so a case late
// in actions isn't starved by one earlier that's always ready first.
func (a *Actor) selectTry(actions []SelectAction) (SelectResult, bool, error) {
	order := a.tryOrder(len(actions))
	for _, i := range order {
		act := actions[i]
		switch act.Kind {
		case ActionRecv:
			a.mu.Lock()
			b, ok := a.incoming.Dequeue()
			closed := a.inClosed
			a.mu.Unlock()
			if ok {
				return SelectResult{Index: i, Kind: ActionRecv, Basket: b}, true, nil
			}
			if closed && allRecv(actions) {
				return SelectResult{}, false, ErrIncomingClosed
			}
		case ActionTake:
			if b, ok := act.Peer.outgoing.tryTake(); ok {
				return SelectResult{Index: i, Kind: ActionTake, Peer: act.Peer, Basket: b}, true, nil
			}
		case ActionYield:
			if a.outgoing.tryOffer(act.Value) {
				return SelectResult{Index: i, Kind: ActionYield}, true, nil
			}
		}
	}
	return SelectResult{}, false, nil
}

// selectRegister registers self as a waiter on every Take/Yield peer
// port named in actions, returning a cleanup func that unregisters them
// all. Recv actions need no registration: Send already wakes a's own
// waitState directly. If a port already lists this actor as a waiter
// (spec.md §7 AlreadyWaiting), it unwinds everything registered so far
// and returns ErrAlreadyWaiting instead of leaving a partial registration.
func (a *Actor) selectRegister(actions []SelectAction) (cleanup func(), err error) {
	var registeredTakePeers []*Actor
	seenPeers := make(map[*Actor]bool, len(actions))
	registeredOwn := false
	unwind := func() {
		for _, peer := range registeredTakePeers {
			peer.outgoing.unregisterWaiter(a.waitState)
		}
		if registeredOwn {
			a.outgoing.unregisterWaiter(a.waitState)
		}
	}

	for _, act := range actions {
		switch act.Kind {
		case ActionTake:
			if seenPeers[act.Peer] {
				continue
			}
			if !act.Peer.outgoing.registerWaiter(waiterRef{state: a.waitState, mu: &a.mu, mask: wait.Taking}) {
				unwind()
				return func() {}, ErrAlreadyWaiting
			}
			seenPeers[act.Peer] = true
			registeredTakePeers = append(registeredTakePeers, act.Peer)
		case ActionYield:
			if registeredOwn {
				continue
			}
			if !a.outgoing.registerWaiter(waiterRef{state: a.waitState, mu: &a.mu, mask: wait.Yielding}) {
				unwind()
				return func() {}, ErrAlreadyWaiting
			}
			registeredOwn = true
		}
	}
	return unwind, nil
}

// tryOrder returns the indices 0..n-1 to try selectTry's cases in,
// shuffled when the actor's config asks for select fairness and in
// plain ascending order otherwise.
func (a *Actor) tryOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if a.cfg.Fairness && n > 1 {
		rand.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}

func allRecv(actions []SelectAction) bool {
	for _, act := range actions {
		if act.Kind != ActionRecv {
			return false
		}
	}
	return true
}
