// Package classify implements the object classifier (spec.md §4.1, C1):
// deciding whether a value may be safely aliased across actors
// ("shareable"), and performing the copy-by-serialization or move
// transfers for everything else. It deliberately knows nothing about any
// particular embedded language's object representation or garbage
// collector; those are external collaborators per spec.md §1, reached
// here only through the Classifiable/Mover/Codec interfaces.
package classify

import (
	"fmt"
	"sync/atomic"
)

// ActorID identifies an actor for belonging-check and Basket sender
// purposes. It is a plain integer rather than a pointer so this package
// never needs to import the actor package.
type ActorID uint32

// Kind classifies a value for the purposes of shareability and move
// support (spec.md §4.1).
type Kind int

const (
	// KindScalar covers immediate/immutable scalars: always shareable.
	KindScalar Kind = iota
	// KindFrozenNumeric, KindFrozenSymbol: frozen numerics/symbols, always shareable.
	KindFrozenNumeric
	KindFrozenSymbol
	// KindClass: class/module tokens, always shareable.
	KindClass
	// KindFrozenString, KindFrozenRegex: always shareable (memoized via
	// Header on first check); Shareable does not inspect them for extra
	// instance state.
	KindFrozenString
	KindFrozenRegex
	// KindByteLike: a byte-string/file-handle-like value with no
	// user-attached metadata, eligible for the shallow move fast path.
	KindByteLike
	// KindSequence: an ordered sequence container, moved by moving the
	// container then recursing into non-shareable elements.
	KindSequence
	// KindMutable: an ordinary mutable object, not shareable unless
	// explicitly flagged, and not eligible for shallow move.
	KindMutable
	// KindMoved: the placeholder class a moved value's source handle is
	// rewritten to (spec.md §3 MovedObject).
	KindMoved
)

// Header is embedded (or otherwise owned) by any Classifiable value to
// carry classifier state: the memoized shareability continuation result,
// an explicit "make shareable" flag, and, under CHECK_MODE, the id of
// the actor the value currently belongs to.
type Header struct {
	shareableMemo     atomic.Bool
	explicitShareable atomic.Bool
	belongsTo         atomic.Uint32
}

// MarkShareable flags a value as explicitly shareable (spec.md §4.1 (b):
// "object is explicitly flagged Shareable").
func (h *Header) MarkShareable() { h.explicitShareable.Store(true) }

// Classifiable is implemented by any value the classifier, rendezvous
// engine, and STM operate on.
type Classifiable interface {
	Header() *Header
	Kind() Kind
	Inspect() string
}

// Sequence is implemented by ordered-sequence values so MoveSetup can
// recurse into elements (spec.md §4.1 move_setup).
type Sequence interface {
	Classifiable
	Len() int
	Elem(i int) Classifiable
	SetElem(i int, v Classifiable)
}

// FixedWidth is implemented by fixed-width integer Classifiable values so
// a TVar can use the single-slot increment fast path (spec.md §4.7
// "Increment fast-path") instead of a full transaction. AddInt64 returns
// the incremented value and true, or false if applying delta would
// overflow the value's fixed-width representation, in which case the
// caller falls back to a one-element transaction.
type FixedWidth interface {
	Classifiable
	Int64() int64
	AddInt64(delta int64) (v Classifiable, ok bool)
}

// Mover is the external collaborator that knows how to allocate a fresh
// "shell" of v's concrete type, move v's payload into it, and rewrite v
// in place so it becomes a MovedObject (spec.md §6: "a way to allocate a
// shell value"). This package never performs a bitwise copy itself;
// that is language/GC-specific and out of scope (spec.md §1).
type Mover interface {
	Shell(v Classifiable) (Classifiable, error)
}

// Codec is the external deep-copy serializer (spec.md §6: encode/decode).
type Codec interface {
	Encode(v Classifiable) ([]byte, error)
	Decode(data []byte) (Classifiable, error)
}

// Shareable implements spec.md §4.1's shareable(v) predicate, including
// the memoizing "continuation" branch for frozen strings/regexes and
// class tokens.
func Shareable(v Classifiable) bool {
	if v == nil {
		return true
	}
	h := v.Header()
	if h.explicitShareable.Load() || h.shareableMemo.Load() {
		return true
	}
	switch v.Kind() {
	case KindScalar, KindFrozenNumeric, KindFrozenSymbol:
		return true
	case KindClass, KindFrozenString, KindFrozenRegex:
		h.shareableMemo.Store(true)
		return true
	default:
		return false
	}
}

// CopySetup implements spec.md §4.1 copy_setup: shareable values are
// referenced directly, everything else is deep-copied via codec.
func CopySetup(v Classifiable, codec Codec) (Basket, error) {
	if Shareable(v) {
		return Basket{Type: Shareable_, Payload: v}, nil
	}
	if codec == nil {
		return Basket{}, fmt.Errorf("classify: copy of non-shareable value requires a Codec")
	}
	data, err := codec.Encode(v)
	if err != nil {
		return Basket{}, fmt.Errorf("classify: encode failed: %w", err)
	}
	return Basket{Type: CopyMarshal, Bytes: data}, nil
}

// MoveSetup implements spec.md §4.1 move_setup: shareable values need no
// move; byte-like values are shell-moved directly; ordered sequences are
// shell-moved then recursed into; anything else fails CannotMove.
func MoveSetup(v Classifiable, mover Mover) (Basket, error) {
	if Shareable(v) {
		return Basket{Type: Shareable_, Payload: v}, nil
	}
	shell, err := moveValue(v, mover)
	if err != nil {
		return Basket{}, err
	}
	return Basket{Type: Move, Payload: shell}, nil
}

func moveValue(v Classifiable, mover Mover) (Classifiable, error) {
	if mover == nil {
		return nil, fmt.Errorf("classify: move requires a Mover")
	}
	switch v.Kind() {
	case KindByteLike:
		return mover.Shell(v)
	case KindSequence:
		shell, err := mover.Shell(v)
		if err != nil {
			return nil, err
		}
		seq, ok := shell.(Sequence)
		if !ok {
			return nil, fmt.Errorf("classify: mover produced a non-Sequence shell for a sequence")
		}
		for i := 0; i < seq.Len(); i++ {
			el := seq.Elem(i)
			if el == nil || Shareable(el) {
				continue
			}
			moved, err := moveValue(el, mover)
			if err != nil {
				return nil, err
			}
			seq.SetElem(i, moved)
		}
		return shell, nil
	default:
		return nil, &CannotMoveError{Value: v}
	}
}

// Accept implements spec.md §4.1 accept(basket) -> v.
func Accept(b Basket, receiver ActorID, codec Codec, checkMode bool) (Classifiable, error) {
	switch b.Type {
	case Shareable_:
		return b.Payload, nil
	case CopyMarshal:
		if codec == nil {
			return nil, fmt.Errorf("classify: decode of copy-marshal basket requires a Codec")
		}
		v, err := codec.Decode(b.Bytes)
		if err != nil {
			return nil, fmt.Errorf("classify: decode failed: %w", err)
		}
		return v, nil
	case Move:
		belongingSetup(b.Payload, receiver, checkMode)
		return b.Payload, nil
	case Exception:
		var cause Classifiable
		if codec != nil && len(b.Bytes) > 0 {
			cause, _ = codec.Decode(b.Bytes)
		}
		return nil, &RemoteError{Sender: b.Sender, Cause: cause}
	default:
		return nil, fmt.Errorf("classify: invalid basket type %v", b.Type)
	}
}

// belongingSetup tags a freshly-moved value (and, recursively, its
// elements) with the receiving actor's id, the debug-only belonging
// check described in spec.md §4.1.
func belongingSetup(v Classifiable, receiver ActorID, checkMode bool) {
	if v == nil || !checkMode {
		return
	}
	if Shareable(v) {
		v.Header().belongsTo.Store(0)
		return
	}
	v.Header().belongsTo.Store(uint32(receiver))
	if seq, ok := v.(Sequence); ok {
		for i := 0; i < seq.Len(); i++ {
			if el := seq.Elem(i); el != nil {
				belongingSetup(el, receiver, checkMode)
			}
		}
	}
}

// ConfirmBelonging is the belonging check of spec.md §4.1: "on VM
// operations that touch the object, the current Actor id must match,
// else fatal." Callers treat a non-nil error as Fatal (spec.md §7).
func ConfirmBelonging(v Classifiable, current ActorID, checkMode bool) error {
	if !checkMode || v == nil || Shareable(v) {
		return nil
	}
	id := ActorID(v.Header().belongsTo.Load())
	if id == 0 {
		return fmt.Errorf("classify: fatal: belonging id is 0 but value is not shareable")
	}
	if id != current {
		return fmt.Errorf("classify: fatal: belonging mismatch: object belongs to actor %d, current actor is %d", id, current)
	}
	return nil
}
