// Package actor implements the per-actor rendezvous engine: the
// unbounded incoming queue, the zero-capacity outgoing port, Send/Recv,
// Yield/Take, multi-way Select, and lifecycle/atexit bookkeeping
// (spec.md §4.2–§4.3, C3–C5).
package actor

import (
	"sync"
	"sync/atomic"

	"ractor/internal/classify"
	"ractor/internal/config"
	"ractor/internal/future"
	"ractor/internal/mailbox"
	"ractor/internal/wait"
)

// Status is an actor's lifecycle stage (spec.md §4.3).
type Status int32

const (
	StatusCreated Status = iota
	StatusRunning
	StatusBlocking
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusBlocking:
		return "blocking"
	case StatusTerminated:
		return "terminated"
	default:
		return "created"
	}
}

// Result is the outcome an actor's Join future resolves to: either the
// value its body returned (copied into a Shareable or CopyMarshal
// basket already) or the exception it raised uncaught
// (spec.md §4.3 atexit / atexit_exception).
type Result struct {
	Value classify.Basket
	Err   error
}

// Actor is one isolated unit of the runtime: its own incoming queue, its
// own outgoing port, and the wait state that Recv/Yield/Take/Select block
// on. Exactly one goroutine, the actor's own, may run its body at a
// time; other actors only ever reach it through Send/Take/Select, which
// serialize on mu.
type Actor struct {
	id   classify.ActorID
	name string

	mu        sync.Mutex
	waitState *wait.State
	incoming  *mailbox.Queue
	inClosed  bool

	outgoing      *port
	yieldInFlight bool

	// local is ractor-local storage (spec.md's original_source analogue
	// of rb_ractor_local_storage_value): visible only to this actor's own
	// running code, never to another actor.
	local map[string]any

	status atomic.Int32

	codec classify.Codec
	mover classify.Mover
	cfg   config.Config

	done *future.Future[Result]

	// onBlock, if set by internal/vm at Spawn time, is called true when
	// the actor enters a potentially-blocking rendezvous op and false
	// when it leaves one, letting the VM barrier's blocking-count check
	// (spec.md §4.5) observe actor state without vm importing actor's
	// internals or actor importing vm.
	onBlock func(blocked bool)
}

// SetBlockHook installs the callback internal/vm uses to track how many
// actors are currently blocked in a rendezvous op, for barrier quiescence
// (spec.md §4.5 vm_barrier). Must be called before the actor starts
// running.
func (a *Actor) SetBlockHook(fn func(blocked bool)) { a.onBlock = fn }

func (a *Actor) enterBlocking() {
	a.setStatus(StatusBlocking)
	if a.onBlock != nil {
		a.onBlock(true)
	}
}

func (a *Actor) exitBlocking() {
	if a.onBlock != nil {
		a.onBlock(false)
	}
	a.setStatus(StatusRunning)
}

// New constructs an actor with an empty incoming queue and an open
// outgoing port. codec/mover may be nil if the host only ever exchanges
// shareable values.
func New(id classify.ActorID, name string, codec classify.Codec, mover classify.Mover, cfg config.Config) *Actor {
	a := &Actor{
		id:       id,
		name:     name,
		incoming: mailbox.New(cfg.MailboxInitialCapacity),
		outgoing: newPort(),
		codec:    codec,
		mover:    mover,
		cfg:      cfg,
		done:     future.Pending[Result](),
	}
	a.waitState = wait.New(&a.mu)
	a.status.Store(int32(StatusCreated))
	return a
}

// ID returns the actor's identity, used as classify.ActorID for
// shareability/belonging checks.
func (a *Actor) ID() classify.ActorID { return a.id }

// Name returns the actor's debug name, empty if it was spawned anonymously.
func (a *Actor) Name() string { return a.name }

// Status returns the actor's current lifecycle stage.
func (a *Actor) Status() Status { return Status(a.status.Load()) }

func (a *Actor) setStatus(s Status) { a.status.Store(int32(s)) }

// CheckMode reports whether belonging checks are enabled for this actor
// (spec.md §4.1, wired from config).
func (a *Actor) CheckMode() bool { return a.cfg.CheckMode }

// Run marks the actor Running; callers invoke this from the goroutine
// that executes the actor's body, immediately before doing so.
func (a *Actor) Run() { a.setStatus(StatusRunning) }

// Finish completes the actor's Join future with its final result, closes
// both ports (a terminated actor accepts nothing further and offers
// nothing further), and marks it Terminated (spec.md §4.3).
func (a *Actor) Finish(value classify.Basket, err error) {
	a.mu.Lock()
	wasClosed := a.inClosed
	a.inClosed = true
	a.mu.Unlock()
	if !wasClosed {
		a.wakeAllIncoming()
	}
	a.outgoing.close()
	a.setStatus(StatusTerminated)
	a.done.Set(Result{Value: value, Err: err})
}

func (a *Actor) wakeAllIncoming() {
	a.mu.Lock()
	a.waitState.WakeAll(wait.ByClose)
	a.mu.Unlock()
}

// LocalGet reads a ractor-local value previously stored with LocalSet.
// Only the actor's own running code should call this.
func (a *Actor) LocalGet(key string) (any, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.local[key]
	return v, ok
}

// LocalSet stores a ractor-local value under key, visible only to this
// actor's own subsequent LocalGet calls.
func (a *Actor) LocalSet(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.local == nil {
		a.local = make(map[string]any)
	}
	a.local[key] = value
}

// Join blocks until the actor has terminated and returns its result
// (spec.md §6 Join / External Interfaces).
func (a *Actor) Join() (classify.Basket, error) {
	r, err := a.done.Await()
	if err != nil {
		return classify.Basket{}, err
	}
	return r.Value, r.Err
}
