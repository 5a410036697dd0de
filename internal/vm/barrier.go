package vm

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ractor/internal/classify"
	"ractor/internal/metrics"
)

// Barrier implements spec.md §4.5's stop-the-world quiesce, grounded
// directly on vm_sync.c's rb_vm_barrier: the caller must already hold
// the VM lock; it waits until every registered actor is blocking (the
// caller itself is not counted), then releases everyone.
func (v *VM) Barrier(owner classify.ActorID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.haveOwner || v.lockOwner != owner {
		return Fatal("Barrier called by %d without holding the VM lock", owner)
	}
	if len(v.actors) == 0 {
		return nil
	}

	v.barrierWaiting = true
	start := time.Now()
	slog.Debug("ractor barrier start", "owner", owner, "living", len(v.actors), "blocking", v.blockingCnt)

	for v.blockingCnt != len(v.actors) {
		v.barrierCond.Wait()
	}

	v.barrierWaiting = false
	v.barrierCnt++
	metrics.ObserveBarrierDuration(time.Since(start))
	slog.Debug("ractor barrier finished", "owner", owner, "cnt", v.barrierCnt)
	v.restartCond.Broadcast()
	return nil
}

// TerminateAll closes every live actor's incoming port (so none accepts
// further Send) and waits for all of them to finish, re-closing at
// cfg.TerminateRepollInterval in case an actor spawned after the first
// sweep (spec.md §4.5 terminate_all). It does not forcibly cancel a
// running actor body; that is left to ctx, which callers should also
// thread through their actor bodies.
func (v *VM) TerminateAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[classify.ActorID]bool)

	for {
		v.mu.Lock()
		remaining := len(v.actors)
		var fresh []classify.ActorID
		for id, a := range v.actors {
			a.CloseIncoming()
			if !seen[id] {
				seen[id] = true
				fresh = append(fresh, id)
				joinable := a
				g.Go(func() error {
					_, err := joinable.Join()
					return err
				})
			}
		}
		v.mu.Unlock()

		if remaining == 0 {
			break
		}
		if len(fresh) == 0 {
			select {
			case <-gctx.Done():
				return g.Wait()
			case <-time.After(v.cfg.TerminateRepollInterval):
			}
			if v.Count() == 0 {
				break
			}
			continue
		}
	}
	return g.Wait()
}
