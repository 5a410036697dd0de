// Package metrics exposes optional Prometheus instrumentation for the
// actor runtime (spec.md's Non-goals exclude a full observability
// layer, but the ambient stack still carries counters the way aistore's
// dependency closure implies). Every hook is a plain function call with
// no effect unless Enable has been called; this is the only package in
// the module that imports the client library, so none of the rendezvous
// or STM engines take on an observability dependency they cannot avoid.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry
	enabled  bool

	mailboxDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ractor",
		Name:      "mailbox_depth",
		Help:      "Number of baskets queued in an actor's incoming mailbox.",
	}, []string{"actor"})

	rendezvousWait = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ractor",
		Name:      "rendezvous_wait_seconds",
		Help:      "Time spent blocked in Yield/Take before a rendezvous completed.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	transactionCommits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ractor",
		Name:      "tvar_commits_total",
		Help:      "Transaction commit attempts, labeled by outcome.",
	}, []string{"outcome"})

	barrierDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ractor",
		Name:      "vm_barrier_seconds",
		Help:      "Time a VM.Barrier call spent waiting for every actor to quiesce.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Enable registers every collector against a fresh registry and turns
// the hooks below from no-ops into real observations. Safe to call at
// most once; a second call is a no-op.
func Enable() {
	if enabled {
		return
	}
	registry = prometheus.NewRegistry()
	registry.MustRegister(mailboxDepth, rendezvousWait, transactionCommits, barrierDuration)
	enabled = true
}

// Handler returns the Prometheus exposition handler, or nil if Enable
// was never called.
func Handler() http.Handler {
	if !enabled {
		return nil
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// SetMailboxDepth records actor's current incoming queue length, called
// by internal/actor.Send/Recv after each Enqueue/Dequeue.
func SetMailboxDepth(actor string, depth int) {
	if !enabled {
		return
	}
	mailboxDepth.WithLabelValues(actor).Set(float64(depth))
}

// ObserveRendezvousWait records how long a Yield/Take blocked before
// completing, called by internal/actor around each of those calls.
func ObserveRendezvousWait(op string, d time.Duration) {
	if !enabled {
		return
	}
	rendezvousWait.WithLabelValues(op).Observe(d.Seconds())
}

// IncCommit records one transaction attempt's outcome ("committed" or
// "retried"), called by internal/stm.Tx.Commit's caller.
func IncCommit(outcome string) {
	if !enabled {
		return
	}
	transactionCommits.WithLabelValues(outcome).Inc()
}

// ObserveBarrierDuration records how long a VM.Barrier call took to
// quiesce every actor, called by internal/vm.Barrier.
func ObserveBarrierDuration(d time.Duration) {
	if !enabled {
		return
	}
	barrierDuration.Observe(d.Seconds())
}
