package future

import (
	"errors"
	"testing"
	"time"
)

func TestAwait(t *testing.T) {
	f := FromValue(42)
	v, err := f.Await()
	if err != nil || v != 42 {
		t.Fatalf("got (%v, %v), want (42, nil)", v, err)
	}
}

func TestAwaitError(t *testing.T) {
	f := FromError[int](errors.New("boom"))
	_, err := f.Await()
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewAsync(t *testing.T) {
	f := New(func() (int, error) {
		time.Sleep(5 * time.Millisecond)
		return 7, nil
	})
	v, err := f.Await()
	if err != nil || v != 7 {
		t.Fatalf("got (%v, %v), want (7, nil)", v, err)
	}
}

func TestAwaitTimeout(t *testing.T) {
	f := New(func() (int, error) {
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	if _, _, ok := f.AwaitTimeout(5 * time.Millisecond); ok {
		t.Fatal("expected timeout before completion")
	}
	v, err, ok := f.AwaitTimeout(100 * time.Millisecond)
	if !ok || err != nil || v != 1 {
		t.Fatalf("got (%v, %v, %v), want (1, nil, true)", v, err, ok)
	}
}

func TestCompleteOnce(t *testing.T) {
	f := FromValue(1)
	f.complete(2, nil) // should be a no-op; result stays 1
	v, _ := f.Await()
	if v != 1 {
		t.Fatalf("complete() re-fired: got %d, want 1", v)
	}
}
