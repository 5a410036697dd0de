package vm

import (
	"context"
	"testing"
	"time"

	"ractor/internal/actor"
	"ractor/internal/classify"
	"ractor/internal/config"
)

type echoable struct {
	h classify.Header
	n int
}

func (x *echoable) Header() *classify.Header { return &x.h }
func (x *echoable) Kind() classify.Kind      { return classify.KindScalar }
func (x *echoable) Inspect() string          { return "echoable" }

func TestLockIsRecursive(t *testing.T) {
	v := New(config.Default())
	v.Lock(1)
	v.Lock(1) // recursive, same owner
	v.Unlock(1)
	v.Unlock(1)

	done := make(chan struct{})
	go func() {
		v.Lock(2)
		v.Unlock(2)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a different owner could not acquire the lock after it was fully released")
	}
}

func TestLockBlocksOtherOwner(t *testing.T) {
	v := New(config.Default())
	v.Lock(1)

	acquired := make(chan struct{})
	go func() {
		v.Lock(2)
		close(acquired)
		v.Unlock(2)
	}()

	select {
	case <-acquired:
		t.Fatal("owner 2 acquired the lock while owner 1 still held it")
	case <-time.After(30 * time.Millisecond):
	}

	v.Unlock(1)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("owner 2 never acquired the lock after owner 1 released it")
	}
}

func TestSpawnAndJoin(t *testing.T) {
	v := New(config.Default())
	a := v.Spawn("worker", nil, nil, func(self *actor.Actor) (classify.Classifiable, error) {
		return &echoable{n: 5}, nil
	})
	b, err := a.Join()
	if err != nil {
		t.Fatal(err)
	}
	if b.Payload.(*echoable).n != 5 {
		t.Fatalf("got %v, want 5", b.Payload)
	}
}

func TestBarrierWithSingleActorIsNoop(t *testing.T) {
	v := New(config.Default())
	v.Lock(0)
	if err := v.Barrier(0); err != nil {
		t.Fatal(err)
	}
	v.Unlock(0)
}

func TestBarrierWaitsForAllActorsToBlock(t *testing.T) {
	v := New(config.Default())
	blockedCh := make(chan struct{})
	a := v.Spawn("blocker", nil, nil, func(self *actor.Actor) (classify.Classifiable, error) {
		close(blockedCh)
		_, err := self.Recv(context.Background())
		return nil, err
	})
	<-blockedCh
	time.Sleep(10 * time.Millisecond) // let self.Recv actually enter its blocking wait

	v.Lock(99)
	errCh := make(chan error, 1)
	go func() { errCh <- v.Barrier(99) }()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("barrier never finished even though the only other actor is blocked in Recv")
	}
	v.Unlock(99)

	a.CloseIncoming()
	b, err := a.Join()
	if err != nil {
		t.Fatal(err)
	}
	if b.Type != classify.Exception {
		t.Fatalf("got basket type %v, want Exception once the blocked Recv failed", b.Type)
	}
}
