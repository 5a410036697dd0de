package actor

import "errors"

// ErrIncomingClosed is returned by Recv and Send once the incoming port
// has been closed (spec.md §4.2 close_incoming).
var ErrIncomingClosed = errors.New("ractor: incoming port is closed")

// ErrOutgoingClosed is returned by Yield and Take once the outgoing port
// has been closed (spec.md §4.2 close_outgoing).
var ErrOutgoingClosed = errors.New("ractor: outgoing port is closed")

// ErrTerminated names the state of an actor that has already finished
// (spec.md §4.3 terminated). No operation in this package returns it:
// Finish closes both ports, so later calls fail with ErrIncomingClosed or
// ErrOutgoingClosed.
var ErrTerminated = errors.New("ractor: actor has terminated")

// ErrYieldInFlight is returned by Yield if the same actor is already
// offering a value on its outgoing port, mirroring ractor.c's assertion
// that a Ractor cannot be the target of two concurrent yields.
var ErrYieldInFlight = errors.New("ractor: actor already has a yield in flight")

// ErrAlreadyWaiting is returned by Select when one of its Take/Yield
// cases registers against a port that already lists this same caller as
// a waiter (spec.md §7 AlreadyWaiting): a second concurrent Select call
// from the same actor racing against the first for the same peer.
var ErrAlreadyWaiting = errors.New("ractor: actor is already waiting on this port")

// ErrInvalidSelectAction is returned by Select when an action names
// neither self nor a valid peer (spec.md §7 ArgumentError): an
// ActionTake with a nil Peer, or an unrecognized ActionKind.
var ErrInvalidSelectAction = errors.New("ractor: invalid select action")
