package stm

import (
	"math"
	"sync"
	"testing"

	"ractor/internal/classify"
)

// intVal is a minimal Classifiable scalar fixture for exercising TVar/Tx
// without depending on the full actor/codec stack. Its fixed-width range
// is deliberately capped at int32 rather than the platform int, so
// overflow fallback (Increment's slow path) is reachable without needing
// a 64-bit-sized counter in tests.
type intVal struct {
	h classify.Header
	n int
}

func (v *intVal) Header() *classify.Header { return &v.h }
func (v *intVal) Kind() classify.Kind       { return classify.KindScalar }
func (v *intVal) Inspect() string           { return "int" }

func (v *intVal) Int64() int64 { return int64(v.n) }

func (v *intVal) AddInt64(delta int64) (classify.Classifiable, bool) {
	sum := int64(v.n) + delta
	if sum > math.MaxInt32 || sum < math.MinInt32 {
		return &intVal{n: int(sum)}, false
	}
	return &intVal{n: int(sum)}, true
}

// byteVal is a Classifiable fixture that deliberately does not implement
// classify.FixedWidth, used to exercise Increment's non-numeric rejection.
type byteVal struct {
	h     classify.Header
	bytes []byte
}

func (v *byteVal) Header() *classify.Header { return &v.h }
func (v *byteVal) Kind() classify.Kind      { return classify.KindByteLike }
func (v *byteVal) Inspect() string          { return string(v.bytes) }

func mustInt(t *testing.T, v classify.Classifiable) int {
	t.Helper()
	iv, ok := v.(*intVal)
	if !ok {
		t.Fatalf("expected *intVal, got %T", v)
	}
	return iv.n
}

func TestTVarReadWriteOutsideTransaction(t *testing.T) {
	space := NewSpace()
	tv := NewTVar(space, &intVal{n: 7})
	tx := NewTx(space)

	v, err := tx.Read(tv)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if mustInt(t, v) != 7 {
		t.Fatalf("expected 7, got %d", mustInt(t, v))
	}

	if err := tx.Write(tv, &intVal{n: 8}); err != ErrWriteOutsideTransaction {
		t.Fatalf("expected ErrWriteOutsideTransaction, got %v", err)
	}
}

func TestAtomicallyCommitsWrites(t *testing.T) {
	space := NewSpace()
	tv := NewTVar(space, &intVal{n: 0})
	tx := NewTx(space)

	err := Atomically(tx, func(tx *Tx) error {
		v, err := tx.Read(tv)
		if err != nil {
			return err
		}
		return tx.Write(tv, &intVal{n: mustInt(t, v) + 1})
	})
	if err != nil {
		t.Fatalf("Atomically: %v", err)
	}

	got, _ := tx.Read(tv)
	if mustInt(t, got) != 1 {
		t.Fatalf("expected 1, got %d", mustInt(t, got))
	}
}

func TestAtomicallyRejectsNestedCall(t *testing.T) {
	space := NewSpace()
	tv := NewTVar(space, &intVal{n: 0})
	tx := NewTx(space)

	err := Atomically(tx, func(tx *Tx) error {
		return Atomically(tx, func(tx *Tx) error {
			return tx.Write(tv, &intVal{n: 1})
		})
	})
	if err != ErrNestedTransaction {
		t.Fatalf("expected ErrNestedTransaction, got %v", err)
	}
}

func TestAtomicallyPropagatesBodyError(t *testing.T) {
	space := NewSpace()
	tv := NewTVar(space, &intVal{n: 0})
	tx := NewTx(space)
	sentinel := ErrTransactionClosed

	err := Atomically(tx, func(tx *Tx) error {
		if err := tx.Write(tv, &intVal{n: 5}); err != nil {
			return err
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	got, _ := tx.Read(tv)
	if mustInt(t, got) != 0 {
		t.Fatalf("aborted transaction must not publish its write, got %d", mustInt(t, got))
	}
}

// TestIncrementFastPathBypassesTransaction exercises spec.md §4.7's
// single-slot increment fast path directly: it must bump the value and
// the TVar's version without ever touching a Tx.
func TestIncrementFastPathBypassesTransaction(t *testing.T) {
	space := NewSpace()
	tv := NewTVar(space, &intVal{n: 41})
	before := space.currentVersion()

	if err := tv.Increment(space, 1); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	tx := NewTx(space)
	got, _ := tx.Read(tv)
	if mustInt(t, got) != 42 {
		t.Fatalf("expected 42, got %d", mustInt(t, got))
	}
	if space.currentVersion() != before+1 {
		t.Fatalf("expected global version to advance by 1, got %d -> %d", before, space.currentVersion())
	}
}

// TestIncrementOverflowFallsBackToTransaction drives intVal's fixed-width
// range past its cap, forcing Increment onto the one-element Atomically
// fallback spec.md §4.7 describes for an overflowing fast-path add.
func TestIncrementOverflowFallsBackToTransaction(t *testing.T) {
	space := NewSpace()
	tv := NewTVar(space, &intVal{n: math.MaxInt32})

	if err := tv.Increment(space, 1); err != nil {
		t.Fatalf("Increment: %v", err)
	}

	tx := NewTx(space)
	got, _ := tx.Read(tv)
	if mustInt(t, got) != math.MaxInt32+1 {
		t.Fatalf("expected overflowed value to still be stored, got %d", mustInt(t, got))
	}
}

// TestIncrementRequiresFixedWidth confirms Increment refuses a TVar whose
// value doesn't implement classify.FixedWidth, rather than panicking.
func TestIncrementRequiresFixedWidth(t *testing.T) {
	space := NewSpace()
	tv := NewTVar(space, &byteVal{bytes: []byte("x")})

	if err := tv.Increment(space, 1); err == nil {
		t.Fatal("expected an error incrementing a non-FixedWidth value")
	}
}

// TestConcurrentIncrementsNeverLoseAnUpdate is spec.md §8 scenario 5: two
// actors each run 1000 increments against the same TVar via independent
// Tx handles; the optimistic commit/retry loop must never drop one.
func TestConcurrentIncrementsNeverLoseAnUpdate(t *testing.T) {
	space := NewSpace()
	tv := NewTVar(space, &intVal{n: 0})

	const perWorker = 1000
	var wg sync.WaitGroup
	wg.Add(2)

	increment := func() {
		defer wg.Done()
		tx := NewTx(space)
		for i := 0; i < perWorker; i++ {
			err := Atomically(tx, func(tx *Tx) error {
				v, err := tx.Read(tv)
				if err != nil {
					return err
				}
				return tx.Write(tv, &intVal{n: mustInt(t, v) + 1})
			})
			if err != nil {
				t.Errorf("Atomically: %v", err)
				return
			}
		}
	}

	go increment()
	go increment()
	wg.Wait()

	final := NewTx(space)
	v, _ := final.Read(tv)
	if got := mustInt(t, v); got != 2*perWorker {
		t.Fatalf("expected %d, got %d", 2*perWorker, got)
	}
}

func TestVersionNeverDecreases(t *testing.T) {
	space := NewSpace()
	tv := NewTVar(space, &intVal{n: 0})
	tx := NewTx(space)

	var last uint64
	for i := 0; i < 5; i++ {
		before := space.currentVersion()
		err := Atomically(tx, func(tx *Tx) error {
			return tx.Write(tv, &intVal{n: i})
		})
		if err != nil {
			t.Fatalf("Atomically: %v", err)
		}
		after := space.currentVersion()
		if after <= before {
			t.Fatalf("version did not advance: before=%d after=%d", before, after)
		}
		if after < last {
			t.Fatalf("version decreased: last=%d after=%d", last, after)
		}
		last = after
	}
}

func TestLockBeginCommitEndBulkMode(t *testing.T) {
	space := NewSpace()
	a := NewTVar(space, &intVal{n: 1})
	b := NewTVar(space, &intVal{n: 2})
	tx := NewTx(space)

	if err := LockBegin(tx, []*TVar{a, b}); err != nil {
		t.Fatalf("LockBegin: %v", err)
	}

	va, err := tx.Read(a)
	if err != nil {
		t.Fatalf("Read a: %v", err)
	}
	if err := tx.Write(a, &intVal{n: mustInt(t, va) + 10}); err != nil {
		t.Fatalf("Write a: %v", err)
	}

	other := NewTVar(space, &intVal{n: 0})
	if _, err := tx.Read(other); err != ErrTransactionClosed {
		t.Fatalf("expected ErrTransactionClosed for untouched tvar, got %v", err)
	}

	LockCommit(tx)
	LockEnd(tx)

	fresh := NewTx(space)
	got, _ := fresh.Read(a)
	if mustInt(t, got) != 11 {
		t.Fatalf("expected 11, got %d", mustInt(t, got))
	}
}

func TestLockBeginRejectsNestedCall(t *testing.T) {
	space := NewSpace()
	a := NewTVar(space, &intVal{n: 0})
	tx := NewTx(space)

	if err := LockBegin(tx, []*TVar{a}); err != nil {
		t.Fatalf("LockBegin: %v", err)
	}
	defer LockEnd(tx)

	if err := LockBegin(tx, []*TVar{a}); err != ErrNestedTransaction {
		t.Fatalf("expected ErrNestedTransaction, got %v", err)
	}
}

// TestBulkLockIsDeadlockFree runs two goroutines locking the same two
// tvars in opposite caller order; because LockBegin always sorts by
// descending slot index before acquiring, neither can block on a
// partial hold-and-wait cycle against the other.
func TestBulkLockIsDeadlockFree(t *testing.T) {
	space := NewSpace()
	a := NewTVar(space, &intVal{n: 0})
	b := NewTVar(space, &intVal{n: 0})

	var wg sync.WaitGroup
	wg.Add(2)

	run := func(order []*TVar) {
		defer wg.Done()
		tx := NewTx(space)
		for i := 0; i < 200; i++ {
			if err := LockBegin(tx, order); err != nil {
				t.Errorf("LockBegin: %v", err)
				return
			}
			LockCommit(tx)
			LockEnd(tx)
		}
	}

	go run([]*TVar{a, b})
	go run([]*TVar{b, a})
	wg.Wait()
}

func TestLockOwnershipGatesLVar(t *testing.T) {
	lock := NewLock()
	lvar := NewLVar(lock, &intVal{n: 1})

	const owner classify.ActorID = 1
	const intruder classify.ActorID = 2

	if _, err := lvar.Get(owner); err != ErrLockNotOwned {
		t.Fatalf("expected ErrLockNotOwned before Lock, got %v", err)
	}

	lock.Lock(owner)
	defer func() {
		if err := lock.Unlock(owner); err != nil {
			t.Fatalf("Unlock: %v", err)
		}
	}()

	if _, err := lvar.Get(intruder); err != ErrLockNotOwned {
		t.Fatalf("expected ErrLockNotOwned for non-owner, got %v", err)
	}

	if err := lvar.Set(owner, &intVal{n: 2}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, err := lvar.Get(owner)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if mustInt(t, v) != 2 {
		t.Fatalf("expected 2, got %d", mustInt(t, v))
	}
}

func TestUnlockByNonOwnerFails(t *testing.T) {
	lock := NewLock()
	const owner classify.ActorID = 1
	const intruder classify.ActorID = 2

	lock.Lock(owner)
	if err := lock.Unlock(intruder); err != ErrLockNotOwned {
		t.Fatalf("expected ErrLockNotOwned, got %v", err)
	}
	if err := lock.Unlock(owner); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}
