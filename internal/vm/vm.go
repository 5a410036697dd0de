// Package vm implements the process-wide actor registry and the
// recursive global lock/barrier pair every actor operation synchronizes
// through at its outermost layer (spec.md §4.5, C7), grounded directly
// on Ruby's vm_sync.c: a single mutex with a recorded owner and
// recursion depth, and a stop-the-world barrier built on top of it.
//
// Go has no supported way to ask "am I the goroutine that holds this
// lock" the way vm_sync.c asks "am I GET_RACTOR()", so recursion and
// ownership here are keyed on the caller's classify.ActorID, passed
// explicitly to Lock/Unlock, rather than on implicit thread identity.
package vm

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"ractor/internal/actor"
	"ractor/internal/classify"
	"ractor/internal/config"
)

// VM owns every live actor and the single global lock that the barrier
// is run under (spec.md §5 lock order: VM lock is always outermost).
type VM struct {
	cfg config.Config

	mu          sync.Mutex
	lockOwner   classify.ActorID
	haveOwner   bool
	lockRec     int
	restartCond *sync.Cond

	barrierCond    *sync.Cond
	barrierWaiting bool
	barrierCnt     uint64
	blockingCnt    int

	actors map[classify.ActorID]*actor.Actor
	nextID uint32
}

// New returns an empty VM ready to Spawn actors into.
func New(cfg config.Config) *VM {
	v := &VM{
		cfg:    cfg,
		actors: make(map[classify.ActorID]*actor.Actor),
	}
	v.restartCond = sync.NewCond(&v.mu)
	v.barrierCond = sync.NewCond(&v.mu)
	return v
}

// Fatal reports an internal invariant violation, the Go analogue of
// Ruby's rb_bug, used for conditions CHECK_MODE is meant to catch, not
// for ordinary runtime errors.
func Fatal(format string, args ...any) error {
	return errors.WithStack(fmt.Errorf("ractor: fatal: "+format, args...))
}

// Lock acquires the VM lock on behalf of owner, recursively if owner
// already holds it (spec.md §4.5 vm_lock_enter). It blocks out any
// barrier currently in progress exactly like vm_lock_enter's
// barrier_waiting loop.
func (v *VM) Lock(owner classify.ActorID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.haveOwner && v.lockOwner == owner {
		v.lockRec++
		return
	}

	for v.haveOwner {
		v.restartCond.Wait()
	}
	for v.barrierWaiting {
		v.restartCond.Wait()
	}

	v.haveOwner = true
	v.lockOwner = owner
	v.lockRec = 1
}

// Unlock releases one level of recursion, fully releasing the VM lock
// and waking anyone parked in Lock or the barrier once lockRec reaches 0
// (spec.md §4.5 vm_lock_leave).
func (v *VM) Unlock(owner classify.ActorID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.haveOwner || v.lockOwner != owner {
		panic(Fatal("vm.Unlock called by %d, which does not hold the lock (owner=%d)", owner, v.lockOwner))
	}
	v.lockRec--
	if v.lockRec == 0 {
		v.haveOwner = false
		v.restartCond.Broadcast()
	}
}

// Spawn creates a new actor, registers it, wires its block-tracking hook
// for the barrier, and launches body on a dedicated goroutine. It
// returns immediately; use Join on the returned Actor to wait for
// completion. body's return value becomes the actor's atexit result;
// a non-nil error is delivered the same way an uncaught exception would
// be (spec.md §4.3 atexit/atexit_exception).
func (v *VM) Spawn(name string, codec classify.Codec, mover classify.Mover, body func(self *actor.Actor) (classify.Classifiable, error)) *actor.Actor {
	v.mu.Lock()
	v.nextID++
	id := classify.ActorID(v.nextID)
	v.mu.Unlock()

	a := actor.New(id, name, codec, mover, v.cfg)
	a.SetBlockHook(func(blocked bool) { v.trackBlocking(blocked) })

	v.mu.Lock()
	v.actors[id] = a
	v.mu.Unlock()

	slog.Debug("ractor spawned", "id", id, "name", name)

	go func() {
		a.Run()
		defer v.reap(a)
		result, err := body(a)
		if err != nil {
			a.AtexitException(&errValue{msg: err.Error()}, codec)
			return
		}
		a.Atexit(result, codec)
	}()
	return a
}

// errValue adapts a plain Go error into classify.Classifiable so
// AtexitException has something to hand Accept/Exception baskets; it is
// always shareable (a frozen string carries no further instance state).
type errValue struct {
	h   classify.Header
	msg string
}

func (e *errValue) Header() *classify.Header { return &e.h }
func (e *errValue) Kind() classify.Kind      { return classify.KindFrozenString }
func (e *errValue) Inspect() string          { return e.msg }

func (v *VM) trackBlocking(blocked bool) {
	v.mu.Lock()
	if blocked {
		v.blockingCnt++
	} else {
		v.blockingCnt--
	}
	if v.barrierWaiting && v.blockingCnt == len(v.actors) {
		v.barrierCond.Signal()
	}
	v.mu.Unlock()
}

func (v *VM) reap(a *actor.Actor) {
	v.mu.Lock()
	delete(v.actors, a.ID())
	v.mu.Unlock()
	slog.Debug("ractor terminated", "id", a.ID(), "name", a.Name())
}

// Lookup returns the actor registered under id, if still alive.
func (v *VM) Lookup(id classify.ActorID) (*actor.Actor, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	a, ok := v.actors[id]
	return a, ok
}

// Count reports the number of currently-registered (live) actors.
func (v *VM) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.actors)
}
