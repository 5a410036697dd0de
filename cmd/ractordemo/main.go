// Command ractordemo is a standalone smoke driver exercising the actor
// runtime end to end: async send/recv, a yield/take rendezvous, a
// select over a take case and a recv case, a moved byte-string, and two actors racing
// 1000 increments against a shared TVar (spec.md §8 scenarios).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"ractor/internal/actor"
	"ractor/internal/classify"
	"ractor/internal/config"
	"ractor/internal/metrics"
	"ractor/internal/rlog"
	"ractor/internal/stm"
	"ractor/internal/vm"
)

func main() {
	rlog.Init("info", false)
	metrics.Enable()

	cfg := config.Default()
	machine := vm.New(cfg)

	asyncPing(machine)
	rendezvous(machine)
	selectWithYield(machine)
	moveAnArray(machine)
	tvarRace(machine)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := machine.TerminateAll(ctx); err != nil {
		slog.Error("terminate_all failed", "err", err)
	}
}

// asyncPing: a worker actor receives one message and echoes a doubled
// count back through its atexit result.
func asyncPing(machine *vm.VM) {
	worker := machine.Spawn("ping-worker", nil, nil, func(self *actor.Actor) (classify.Classifiable, error) {
		b, err := self.Recv(context.Background())
		if err != nil {
			return nil, err
		}
		v, err := classify.Accept(b, self.ID(), nil, cfgCheckMode)
		if err != nil {
			return nil, err
		}
		n, ok := v.(*intVal)
		if !ok {
			return nil, fmt.Errorf("ractordemo: expected *intVal, got %T", v)
		}
		return &intVal{n: n.n * 2}, nil
	})

	basket, err := classify.CopySetup(&intVal{n: 21}, nil)
	if err != nil {
		slog.Error("async ping: copy_setup failed", "err", err)
		return
	}
	if err := worker.Send(basket); err != nil {
		slog.Error("async ping: send failed", "err", err)
		return
	}

	result, err := worker.Join()
	if err != nil {
		slog.Error("async ping: join failed", "err", err)
		return
	}
	v, _ := classify.Accept(result, 0, nil, cfgCheckMode)
	slog.Info("async ping done", "result", v.(*intVal).n)
}

// rendezvous: a producer yields a value, a driver goroutine takes it
// directly from the producer's outgoing port.
func rendezvous(machine *vm.VM) {
	producer := machine.Spawn("producer", nil, nil, func(self *actor.Actor) (classify.Classifiable, error) {
		basket, err := classify.CopySetup(&intVal{n: 99}, nil)
		if err != nil {
			return nil, err
		}
		if err := self.Yield(context.Background(), basket); err != nil {
			return nil, err
		}
		return &intVal{n: 0}, nil
	})

	driver := actor.New(0, "driver", nil, nil, config.Default())
	b, err := driver.Take(context.Background(), producer)
	if err != nil {
		slog.Error("rendezvous: take failed", "err", err)
		return
	}
	v, _ := classify.Accept(b, 0, nil, cfgCheckMode)
	slog.Info("rendezvous done", "taken", v.(*intVal).n)
	producer.Join()
}

// selectWithYield: a driver selects over taking from one peer and
// receiving from its own mailbox; a producer actor yields after a
// short delay, exercising Select's ActionTake register-and-wake path.
func selectWithYield(machine *vm.VM) {
	producer := machine.Spawn("select-producer", nil, nil, func(self *actor.Actor) (classify.Classifiable, error) {
		time.Sleep(10 * time.Millisecond)
		basket, err := classify.CopySetup(&intVal{n: 7}, nil)
		if err != nil {
			return nil, err
		}
		if err := self.Yield(context.Background(), basket); err != nil {
			return nil, err
		}
		return &intVal{n: 0}, nil
	})

	driver := actor.New(0, "select-driver", nil, nil, config.Default())
	result, err := driver.Select(context.Background(), []actor.SelectAction{
		{Kind: actor.ActionTake, Peer: producer},
		{Kind: actor.ActionRecv},
	})
	if err != nil {
		slog.Error("select: failed", "err", err)
		return
	}
	v, _ := classify.Accept(result.Basket, 0, nil, cfgCheckMode)
	slog.Info("select with yield done", "kind", result.Kind, "value", v.(*intVal).n)
	producer.Join()
}

// moveAnArray: a byte-string is moved into a worker, which mutates its
// own copy; the sender's handle is left as an emptied husk.
func moveAnArray(machine *vm.VM) {
	mover := byteMover{}
	codec := byteCodec{}
	src := &byteVal{bytes: []byte("hello")}

	worker := machine.Spawn("mover-worker", codec, mover, func(self *actor.Actor) (classify.Classifiable, error) {
		b, err := self.Recv(context.Background())
		if err != nil {
			return nil, err
		}
		v, err := classify.Accept(b, self.ID(), nil, cfgCheckMode)
		if err != nil {
			return nil, err
		}
		bs := v.(*byteVal)
		bs.bytes = append(bs.bytes, '!')
		return bs, nil
	})

	basket, err := classify.MoveSetup(src, mover)
	if err != nil {
		slog.Error("move: move_setup failed", "err", err)
		return
	}
	if err := worker.Send(basket); err != nil {
		slog.Error("move: send failed", "err", err)
		return
	}
	slog.Info("move: sender handle is now a husk", "emptied", len(src.bytes) == 0)

	result, err := worker.Join()
	if err != nil {
		slog.Error("move: join failed", "err", err)
		return
	}
	v, err := classify.Accept(result, 0, codec, cfgCheckMode)
	if err != nil {
		slog.Error("move: accept failed", "err", err)
		return
	}
	slog.Info("move an array done", "result", string(v.(*byteVal).bytes))
}

// tvarRace: one actor runs 1000 full Atomically increments and the other
// runs 1000 single-slot Increment fast-path calls against the same
// shared TVar; the final value must still be exactly 2000 (spec.md §8
// scenario 5, the same property internal/stm/stm_test.go checks
// directly), showing the fast path and the general transaction path
// compose safely over one TVar.
func tvarRace(machine *vm.VM) {
	space := stm.NewSpace()
	counter := stm.NewTVar(space, &intVal{n: 0})

	const perWorker = 1000
	atomicIncrement := func(self *actor.Actor) (classify.Classifiable, error) {
		tx := stm.NewTx(space)
		for i := 0; i < perWorker; i++ {
			err := stm.Atomically(tx, func(tx *stm.Tx) error {
				v, err := tx.Read(counter)
				if err != nil {
					return err
				}
				return tx.Write(counter, &intVal{n: v.(*intVal).n + 1})
			})
			if err != nil {
				return nil, err
			}
		}
		return &intVal{n: perWorker}, nil
	}
	fastIncrement := func(self *actor.Actor) (classify.Classifiable, error) {
		for i := 0; i < perWorker; i++ {
			if err := counter.Increment(space, 1); err != nil {
				return nil, err
			}
		}
		return &intVal{n: perWorker}, nil
	}

	a := machine.Spawn("incrementer-a", nil, nil, atomicIncrement)
	b := machine.Spawn("incrementer-b", nil, nil, fastIncrement)
	if _, err := a.Join(); err != nil {
		slog.Error("tvar race: worker a failed", "err", err)
	}
	if _, err := b.Join(); err != nil {
		slog.Error("tvar race: worker b failed", "err", err)
	}

	final := stm.NewTx(space)
	v, _ := final.Read(counter)
	slog.Info("tvar race done", "final", v.(*intVal).n, "expected", 2*perWorker)
}

const cfgCheckMode = true

// intVal and byteVal are minimal Classifiable fixtures standing in for
// an embedded language's own object representation (spec.md §1 leaves
// that representation external).

type intVal struct {
	h classify.Header
	n int
}

func (v *intVal) Header() *classify.Header { return &v.h }
func (v *intVal) Kind() classify.Kind      { return classify.KindScalar }
func (v *intVal) Inspect() string          { return fmt.Sprintf("%d", v.n) }

func (v *intVal) Int64() int64 { return int64(v.n) }

func (v *intVal) AddInt64(delta int64) (classify.Classifiable, bool) {
	sum := int64(v.n) + delta
	if sum > math.MaxInt32 || sum < math.MinInt32 {
		return &intVal{n: int(sum)}, false
	}
	return &intVal{n: int(sum)}, true
}

type byteVal struct {
	h     classify.Header
	bytes []byte
}

func (v *byteVal) Header() *classify.Header { return &v.h }
func (v *byteVal) Kind() classify.Kind      { return classify.KindByteLike }
func (v *byteVal) Inspect() string          { return string(v.bytes) }

// byteCodec deep-copies a *byteVal's bytes, used for the worker's
// atexit result: a byte-like value is never shareable, so copy_setup
// needs a real Codec to hand the result back across the join.
type byteCodec struct{}

func (byteCodec) Encode(v classify.Classifiable) ([]byte, error) {
	bv, ok := v.(*byteVal)
	if !ok {
		return nil, fmt.Errorf("ractordemo: byteCodec cannot encode %T", v)
	}
	return append([]byte(nil), bv.bytes...), nil
}

func (byteCodec) Decode(data []byte) (classify.Classifiable, error) {
	return &byteVal{bytes: append([]byte(nil), data...)}, nil
}

// byteMover shell-moves a *byteVal by allocating a fresh value that
// takes over the bytes and clearing the original's bytes.
type byteMover struct{}

func (byteMover) Shell(v classify.Classifiable) (classify.Classifiable, error) {
	src, ok := v.(*byteVal)
	if !ok {
		return nil, fmt.Errorf("ractordemo: byteMover cannot move %T", v)
	}
	shell := &byteVal{bytes: src.bytes}
	src.bytes = nil
	return shell, nil
}
