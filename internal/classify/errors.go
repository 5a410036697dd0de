package classify

import (
	"errors"
	"fmt"
)

// ErrMoved is the sentinel for an access to a value whose source handle
// was rewritten to MovedObject after a move (spec.md §7 MovedError). No
// function in this package returns it.
var ErrMoved = errors.New("ractor: value has been moved")

// MovedError wraps ErrMoved so callers can errors.Is/As against either.
type MovedError struct{}

func (MovedError) Error() string { return ErrMoved.Error() }
func (MovedError) Unwrap() error { return ErrMoved }

// CannotMoveError is raised when move is requested on a type the shallow
// mover does not support (spec.md §7 CannotMove).
type CannotMoveError struct {
	Value Classifiable
}

func (e *CannotMoveError) Error() string {
	kind := KindMutable
	if e.Value != nil {
		kind = e.Value.Kind()
	}
	return fmt.Sprintf("ractor: cannot move value of kind %d", kind)
}

// RemoteError wraps a cause decoded from an Exception basket, annotated
// with the sender (spec.md §3 Basket, §7 RemoteError).
type RemoteError struct {
	Sender ActorID
	Cause  Classifiable
}

func (e *RemoteError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("ractor: remote error from actor %d", e.Sender)
	}
	return fmt.Sprintf("ractor: remote error from actor %d: %s", e.Sender, e.Cause.Inspect())
}
