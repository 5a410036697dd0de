// Package ractor is the actor runtime's external interface (spec.md §6):
// a thin facade over internal/vm, internal/actor, internal/classify, and
// internal/stm for host code that embeds this runtime rather than
// reaching into internal packages directly. internal/* stays the
// implementation; this file is the only public surface.
package ractor

import (
	"context"

	"ractor/internal/actor"
	"ractor/internal/classify"
	"ractor/internal/config"
	"ractor/internal/stm"
	"ractor/internal/vm"
)

// Re-exported types, so callers never need to import internal/* directly.
type (
	Actor         = actor.Actor
	ActorID       = classify.ActorID
	Basket        = classify.Basket
	Classifiable  = classify.Classifiable
	Header        = classify.Header
	Codec         = classify.Codec
	Mover         = classify.Mover
	Sequence      = classify.Sequence
	FixedWidth    = classify.FixedWidth
	SelectAction  = actor.SelectAction
	SelectResult  = actor.SelectResult
	ActionKind    = actor.ActionKind
	TVar          = stm.TVar
	Tx            = stm.Tx
	Lock          = stm.Lock
	LVar          = stm.LVar
	Space         = stm.Space
	Config        = config.Config
)

const (
	ActionRecv  = actor.ActionRecv
	ActionTake  = actor.ActionTake
	ActionYield = actor.ActionYield
)

// Runtime owns one VM (actor registry, global lock, barrier) and one
// STM Space (t-var namespace). Host code creates exactly one Runtime
// per embedded interpreter instance (spec.md §2: "a single VM per
// process").
type Runtime struct {
	vm    *vm.VM
	space *stm.Space
}

// New returns a Runtime using cfg's tunables.
func New(cfg Config) *Runtime {
	return &Runtime{vm: vm.New(cfg), space: stm.NewSpace()}
}

// NewDefault returns a Runtime using config.Default().
func NewDefault() *Runtime {
	return New(config.Default())
}

// Spawn starts a new actor (spec.md §6 spawn). body's return value
// becomes the actor's atexit result; a non-nil error is delivered the
// same way an uncaught exception would be.
func (r *Runtime) Spawn(name string, codec Codec, mover Mover, body func(self *Actor) (Classifiable, error)) *Actor {
	return r.vm.Spawn(name, codec, mover, body)
}

// TerminateAll closes every live actor's incoming port and waits for
// all of them to finish (spec.md §4.5 terminate_all).
func (r *Runtime) TerminateAll(ctx context.Context) error {
	return r.vm.TerminateAll(ctx)
}

// Barrier quiesces every live actor, identifying the caller by owner
// (spec.md §4.5). owner must already hold the runtime's VM lock via
// Lock.
func (r *Runtime) Barrier(owner ActorID) error {
	return r.vm.Barrier(owner)
}

// Lock acquires the runtime's global VM lock on behalf of owner.
func (r *Runtime) Lock(owner ActorID) { r.vm.Lock(owner) }

// Unlock releases the runtime's global VM lock held by owner.
func (r *Runtime) Unlock(owner ActorID) { r.vm.Unlock(owner) }

// Lookup returns the actor registered under id, if still alive.
func (r *Runtime) Lookup(id ActorID) (*Actor, bool) { return r.vm.Lookup(id) }

// Count reports the number of currently-registered (live) actors.
func (r *Runtime) Count() int { return r.vm.Count() }

// NewTVar allocates a TVar in this runtime's t-var namespace (spec.md
// §6 TVar(initial)).
func (r *Runtime) NewTVar(initial Classifiable) *TVar {
	return stm.NewTVar(r.space, initial)
}

// NewTx allocates a transaction handle bound to this runtime's Space.
// Callers keep one Tx per actor and pass it to every Atomically call
// that actor makes.
func (r *Runtime) NewTx() *Tx {
	return stm.NewTx(r.space)
}

// Send enqueues b on to's incoming port (spec.md §6 send).
func Send(to *Actor, b Basket) error { return to.Send(b) }

// Recv dequeues the next basket from self's incoming port, blocking
// until one arrives or the port closes (spec.md §6 recv).
func Recv(ctx context.Context, self *Actor) (Basket, error) { return self.Recv(ctx) }

// Yield offers b on self's outgoing port, blocking until some other
// actor takes it or the port closes (spec.md §6 yield).
func Yield(ctx context.Context, self *Actor, b Basket) error { return self.Yield(ctx, b) }

// Take blocks until from offers a value via Yield (spec.md §6 take).
func Take(ctx context.Context, self, from *Actor) (Basket, error) { return self.Take(ctx, from) }

// Select blocks until exactly one of actions is ready (spec.md §6
// select / §4.4).
func Select(ctx context.Context, self *Actor, actions []SelectAction) (SelectResult, error) {
	return self.Select(ctx, actions)
}

// Shareable reports whether v may be safely aliased across actors
// (spec.md §6 shareable?).
func Shareable(v Classifiable) bool { return classify.Shareable(v) }

// CopySetup implements spec.md §4.1 copy_setup for a plain send.
func CopySetup(v Classifiable, codec Codec) (Basket, error) { return classify.CopySetup(v, codec) }

// MoveSetup implements spec.md §4.1 move_setup for send(..., move: true).
func MoveSetup(v Classifiable, mover Mover) (Basket, error) { return classify.MoveSetup(v, mover) }

// Accept implements spec.md §4.1 accept(basket) -> v on the receiving side.
func Accept(b Basket, receiver ActorID, codec Codec, checkMode bool) (Classifiable, error) {
	return classify.Accept(b, receiver, codec, checkMode)
}

// Atomically runs fn under tx, retrying on a lost commit race (spec.md
// §6 atomically).
func Atomically(tx *Tx, fn func(tx *Tx) error) error { return stm.Atomically(tx, fn) }

// LockTVars acquires every tvar's lock up front and runs fn in
// pessimistic bulk-lock mode (spec.md §6 lock(tvars, block)).
func LockTVars(tx *Tx, tvars []*TVar, fn func(tx *Tx) error) error {
	if err := stm.LockBegin(tx, tvars); err != nil {
		return err
	}
	defer stm.LockEnd(tx)
	if err := fn(tx); err != nil {
		return err
	}
	stm.LockCommit(tx)
	return nil
}

// NewLock returns a free standalone Lock (spec.md §6 Lock.new).
func NewLock() *Lock { return stm.NewLock() }

// NewLVar pairs initial with lock (spec.md §6 LVar.new).
func NewLVar(lock *Lock, initial Classifiable) *LVar { return stm.NewLVar(lock, initial) }
