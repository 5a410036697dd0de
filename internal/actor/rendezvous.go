package actor

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ractor/internal/classify"
	"ractor/internal/metrics"
	"ractor/internal/wait"
)

// Send enqueues b on a's incoming port and wakes a if it is blocked in
// Recv or a Select registered on Recving (spec.md §4.2 send).
func (a *Actor) Send(b classify.Basket) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inClosed {
		return ErrIncomingClosed
	}
	if a.cfg.CheckMode && b.CorrelationID == "" {
		b.CorrelationID = uuid.NewString()
	}
	a.incoming.Enqueue(b)
	metrics.SetMailboxDepth(strconv.FormatUint(uint64(a.id), 10), a.incoming.Len())
	if a.waitState.Waiting(wait.Recving) {
		a.waitState.Wake(wait.BySend)
	}
	return nil
}

// Recv dequeues the next basket from a's incoming port, blocking until
// one arrives or the port is closed (spec.md §4.2 recv).
func (a *Actor) Recv(ctx context.Context) (classify.Basket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for {
		if b, ok := a.incoming.Dequeue(); ok {
			metrics.SetMailboxDepth(strconv.FormatUint(uint64(a.id), 10), a.incoming.Len())
			return b, nil
		}
		if a.inClosed {
			return classify.Basket{}, ErrIncomingClosed
		}
		if ctx != nil && ctx.Err() != nil {
			return classify.Basket{}, ctx.Err()
		}
		a.waitState.BeginSleep(wait.Recving)
		a.enterBlocking()
		a.sleepInterruptible(ctx)
		a.exitBlocking()
	}
}

// sleepInterruptible blocks on a.waitState until woken, honoring ctx
// cancellation by forcing a spurious wakeup. Must be called with a.mu
// held; the caller re-checks its own condition in a loop afterward.
func (a *Actor) sleepInterruptible(ctx context.Context) wait.Reason {
	if ctx == nil || ctx.Done() == nil {
		return a.waitState.Sleep()
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.mu.Lock()
			if a.waitState.Waiting(wait.Recving | wait.Taking | wait.Yielding) {
				a.waitState.Wake(wait.ByInterrupt)
			}
			a.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)
	return a.waitState.Sleep()
}

// CloseIncoming closes a's incoming port. It reports whether the port
// was already closed, not whether this call performed the close: a
// second close_incoming observes the earlier one rather than failing
// (spec.md §8).
func (a *Actor) CloseIncoming() bool {
	a.mu.Lock()
	already := a.inClosed
	a.inClosed = true
	a.waitState.WakeAll(wait.ByClose)
	a.mu.Unlock()
	return already
}

// CloseOutgoing closes a's outgoing port, waking anyone blocked in Yield
// or Take against it, with the same "returns prior state" semantics as
// CloseIncoming (spec.md §8).
func (a *Actor) CloseOutgoing() bool {
	return a.outgoing.close()
}

// Yield offers b on a's own outgoing port and blocks until some other
// actor takes it or the port is closed (spec.md §4.2 yield). It fails
// ErrYieldInFlight if a is already offering a value, guarding against two
// concurrent Yield calls racing on the same actor's single-slot port.
func (a *Actor) Yield(ctx context.Context, b classify.Basket) error {
	a.mu.Lock()
	if a.yieldInFlight {
		a.mu.Unlock()
		return ErrYieldInFlight
	}
	a.yieldInFlight = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.yieldInFlight = false
		a.mu.Unlock()
	}()

	if a.cfg.CheckMode && b.CorrelationID == "" {
		b.CorrelationID = uuid.NewString()
	}
	start := time.Now()
	a.enterBlocking()
	defer a.exitBlocking()
	defer func() { metrics.ObserveRendezvousWait("yield", time.Since(start)) }()
	return a.outgoing.offerAndWait(ctx, b)
}

// Take blocks until peer offers a value via Yield (or its outgoing port
// closes), consuming the offer (spec.md §4.2 take).
func (a *Actor) Take(ctx context.Context, peer *Actor) (classify.Basket, error) {
	start := time.Now()
	a.enterBlocking()
	defer a.exitBlocking()
	defer func() { metrics.ObserveRendezvousWait("take", time.Since(start)) }()
	return peer.outgoing.take(ctx)
}
