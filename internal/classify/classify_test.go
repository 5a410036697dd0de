package classify

import (
	"bytes"
	"encoding/gob"
	"errors"
	"testing"
)

// --- test fixtures -------------------------------------------------------

type scalar struct {
	h Header
	n int
}

func (s *scalar) Header() *Header { return &s.h }
func (s *scalar) Kind() Kind      { return KindScalar }
func (s *scalar) Inspect() string { return "scalar" }

type mutableBox struct {
	h Header
	v int
}

func (b *mutableBox) Header() *Header { return &b.h }
func (b *mutableBox) Kind() Kind      { return KindMutable }
func (b *mutableBox) Inspect() string { return "box" }

type byteString struct {
	h     Header
	bytes []byte
}

func (b *byteString) Header() *Header { return &b.h }
func (b *byteString) Kind() Kind      { return KindByteLike }
func (b *byteString) Inspect() string { return string(b.bytes) }

type list struct {
	h        Header
	elements []Classifiable
}

func (l *list) Header() *Header              { return &l.h }
func (l *list) Kind() Kind                    { return KindSequence }
func (l *list) Inspect() string               { return "list" }
func (l *list) Len() int                      { return len(l.elements) }
func (l *list) Elem(i int) Classifiable       { return l.elements[i] }
func (l *list) SetElem(i int, v Classifiable) { l.elements[i] = v }

// testMover moves byteString and list containers by allocating a fresh
// value of the same type and clearing the original's payload.
type testMover struct{}

func (testMover) Shell(v Classifiable) (Classifiable, error) {
	switch src := v.(type) {
	case *byteString:
		shell := &byteString{bytes: src.bytes}
		src.bytes = nil
		*src = byteString{} // simulate the original becoming a husk
		return shell, nil
	case *list:
		shell := &list{elements: src.elements}
		src.elements = nil
		return shell, nil
	default:
		return nil, &CannotMoveError{Value: v}
	}
}

// testCodec gob-encodes the numeric payload of a mutableBox; anything
// else fails, matching the "only non-shareable values get encoded" design.
type testCodec struct{}

func (testCodec) Encode(v Classifiable) ([]byte, error) {
	box, ok := v.(*mutableBox)
	if !ok {
		return nil, errors.New("testCodec: unsupported type")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(box.v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (testCodec) Decode(data []byte) (Classifiable, error) {
	var n int
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&n); err != nil {
		return nil, err
	}
	return &mutableBox{v: n}, nil
}

// --- tests ---------------------------------------------------------------

func TestShareableScalar(t *testing.T) {
	if !Shareable(&scalar{n: 1}) {
		t.Fatal("scalar should be shareable")
	}
}

func TestShareableMutableIsNotByDefault(t *testing.T) {
	if Shareable(&mutableBox{v: 1}) {
		t.Fatal("mutable box should not be shareable by default")
	}
}

func TestShareableExplicitFlag(t *testing.T) {
	b := &mutableBox{v: 1}
	b.Header().MarkShareable()
	if !Shareable(b) {
		t.Fatal("explicitly flagged value should be shareable")
	}
}

func TestShareableMemoization(t *testing.T) {
	var fsVal Classifiable = &frozenStringVal{}
	if !Shareable(fsVal) {
		t.Fatal("frozen string should be shareable")
	}
	if !fsVal.Header().shareableMemo.Load() {
		t.Fatal("continuation branch should memoize the result")
	}
}

type frozenStringVal struct{ h Header }

func (f *frozenStringVal) Header() *Header { return &f.h }
func (f *frozenStringVal) Kind() Kind      { return KindFrozenString }
func (f *frozenStringVal) Inspect() string { return "frozen" }

func TestCopySetupShareableDoesNotEncode(t *testing.T) {
	s := &scalar{n: 7}
	b, err := CopySetup(s, testCodec{})
	if err != nil {
		t.Fatal(err)
	}
	if b.Type != Shareable_ || b.Payload != Classifiable(s) {
		t.Fatalf("expected a Shareable basket referencing the same value, got %+v", b)
	}
}

func TestCopySetupEncodesNonShareable(t *testing.T) {
	box := &mutableBox{v: 42}
	b, err := CopySetup(box, testCodec{})
	if err != nil {
		t.Fatal(err)
	}
	if b.Type != CopyMarshal {
		t.Fatalf("expected CopyMarshal basket, got %v", b.Type)
	}
	v, err := Accept(b, 1, testCodec{}, false)
	if err != nil {
		t.Fatal(err)
	}
	decoded, ok := v.(*mutableBox)
	if !ok || decoded.v != 42 {
		t.Fatalf("round trip mismatch: %+v", v)
	}
	if decoded == Classifiable(box) {
		t.Fatal("copy-marshal must produce a fresh value, not the original pointer")
	}
}

func TestMoveSetupByteLike(t *testing.T) {
	src := &byteString{bytes: []byte("hello")}
	b, err := MoveSetup(src, testMover{})
	if err != nil {
		t.Fatal(err)
	}
	if b.Type != Move {
		t.Fatalf("expected Move basket, got %v", b.Type)
	}
	shell := b.Payload.(*byteString)
	if string(shell.bytes) != "hello" {
		t.Fatalf("shell payload mismatch: %q", shell.bytes)
	}
	if src.bytes != nil {
		t.Fatal("source handle should have its payload cleared after move")
	}
}

func TestMoveSetupSequenceRecursesIntoElements(t *testing.T) {
	inner := &byteString{bytes: []byte("x")}
	seq := &list{elements: []Classifiable{inner, &scalar{n: 1}}}
	b, err := MoveSetup(seq, testMover{})
	if err != nil {
		t.Fatal(err)
	}
	shellSeq := b.Payload.(*list)
	if shellSeq.Len() != 2 {
		t.Fatalf("expected 2 elements, got %d", shellSeq.Len())
	}
	movedInner, ok := shellSeq.Elem(0).(*byteString)
	if !ok || string(movedInner.bytes) != "x" {
		t.Fatalf("inner byte-like element should have been moved, got %+v", shellSeq.Elem(0))
	}
	if shellSeq.Elem(1).(*scalar).n != 1 {
		t.Fatal("shareable elements should pass through unmoved")
	}
}

func TestMoveSetupUnsupportedKindFails(t *testing.T) {
	_, err := MoveSetup(&mutableBox{v: 1}, testMover{})
	var cme *CannotMoveError
	if !errors.As(err, &cme) {
		t.Fatalf("expected CannotMoveError, got %v", err)
	}
}

func TestAcceptMoveRunsBelongingSetup(t *testing.T) {
	src := &byteString{bytes: []byte("hi")}
	b, _ := MoveSetup(src, testMover{})
	v, err := Accept(b, ActorID(9), testCodec{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if id := v.Header().belongsTo.Load(); id != 9 {
		t.Fatalf("expected belonging id 9, got %d", id)
	}
	if err := ConfirmBelonging(v, 9, true); err != nil {
		t.Fatalf("ConfirmBelonging should succeed for the receiving actor: %v", err)
	}
	if err := ConfirmBelonging(v, 10, true); err == nil {
		t.Fatal("ConfirmBelonging should fail for a different actor")
	}
}

func TestAcceptExceptionProducesRemoteError(t *testing.T) {
	cause := &mutableBox{v: 5}
	data, err := testCodec{}.Encode(cause)
	if err != nil {
		t.Fatal(err)
	}
	b := Basket{Type: Exception, Bytes: data, Sender: 3}
	_, err = Accept(b, 1, testCodec{}, false)
	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if re.Sender != 3 {
		t.Fatalf("expected sender 3, got %d", re.Sender)
	}
}
