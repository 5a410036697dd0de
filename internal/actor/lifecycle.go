package actor

import "ractor/internal/classify"

// Atexit completes the actor with its returned value, copy/move-classified
// into a basket exactly like any other cross-actor transfer (spec.md §4.3
// atexit). The transfer is by copy rather than move: a worker's own local
// bindings to its return value must keep working if it happens to log or
// otherwise touch it on the way out.
func (a *Actor) Atexit(value classify.Classifiable, codec classify.Codec) {
	b, err := classify.CopySetup(value, codec)
	if err != nil {
		a.Finish(classify.Basket{}, err)
		return
	}
	b.Sender = a.id
	a.Finish(b, nil)
}

// AtexitException completes the actor with an uncaught error, delivered
// to Join as an Exception basket (spec.md §4.3 atexit_exception, §7
// RemoteError).
func (a *Actor) AtexitException(cause classify.Classifiable, codec classify.Codec) {
	var data []byte
	if codec != nil && cause != nil {
		data, _ = codec.Encode(cause)
	}
	a.Finish(classify.Basket{Type: classify.Exception, Bytes: data, Sender: a.id}, nil)
}
