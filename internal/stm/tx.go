package stm

import (
	"sort"

	"ractor/internal/classify"
	"ractor/internal/metrics"
)

// txEntry caches one TVar's value for the lifetime of a transaction: the
// value read (or about to be written) without touching the TVar's own
// lock again until Commit, per ractor_space_tx_add's copy-on-first-touch.
type txEntry struct {
	tv      *TVar
	value   classify.Classifiable
	written bool
}

// Tx is one actor's transaction handle (spec.md §4.6), reused across
// every Atomically call that actor makes. Begin refuses to re-enter
// while already enabled, which is how a literally nested atomically
// call is detected (ractor_space_tx_begin returning Qfalse rather than
// re-initializing a transaction already in progress).
type Tx struct {
	space      *Space
	version    uint64
	entries    []*txEntry
	index      map[*TVar]int
	enabled    bool
	stopAdding bool

	// locked is non-nil only for a bulk-lock transaction (LockBegin),
	// holding the slots to release in LockEnd.
	locked []*TVar
}

// NewTx allocates a transaction handle bound to space. Callers keep one
// Tx per actor and pass it to every Atomically call that actor makes.
func NewTx(space *Space) *Tx {
	return &Tx{space: space, index: make(map[*TVar]int)}
}

// Begin starts a fresh attempt, snapshotting the space's current
// version. It returns false without touching any state if the
// transaction is already enabled (spec.md §7 TransactionError: nested
// lock).
func (tx *Tx) Begin() bool {
	if tx.enabled {
		return false
	}
	tx.enabled = true
	tx.stopAdding = false
	tx.version = tx.space.currentVersion()
	tx.entries = nil
	tx.index = make(map[*TVar]int)
	return true
}

// Reset discards this attempt's touched set and takes a fresh version
// snapshot, used by Atomically between a lost Commit race and the next
// retry (ractor_space_tx_reset).
func (tx *Tx) Reset() {
	tx.version = tx.space.currentVersion()
	tx.entries = nil
	tx.index = make(map[*TVar]int)
}

// End closes the transaction out, clearing enabled so a later Begin can
// start a new attempt (ractor_space_tx_end).
func (tx *Tx) End() {
	tx.enabled = false
	tx.entries = nil
	tx.index = nil
}

func (tx *Tx) localIndex(tv *TVar) (int, bool) {
	i, ok := tx.index[tv]
	return i, ok
}

func (tx *Tx) addCopy(tv *TVar) *txEntry {
	e := &txEntry{tv: tv, value: tv.snapshot()}
	tx.entries = append(tx.entries, e)
	tx.index[tv] = len(tx.entries) - 1
	return e
}

// Read returns tv's value as seen by this transaction (or, outside any
// transaction, the value currently committed). First touch inside a
// transaction copies tv's value into the local touched set; later reads
// and writes of the same TVar hit that copy.
func (tx *Tx) Read(tv *TVar) (classify.Classifiable, error) {
	if !tx.enabled {
		return tv.snapshot(), nil
	}
	if i, ok := tx.localIndex(tv); ok {
		return tx.entries[i].value, nil
	}
	if tx.stopAdding {
		return nil, ErrTransactionClosed
	}
	return tx.addCopy(tv).value, nil
}

// Write stages v as tv's new value, visible to later Reads in the same
// transaction but not committed until Commit succeeds. Writing outside
// any transaction is a programmer error (spec.md §7 TransactionError).
func (tx *Tx) Write(tv *TVar, v classify.Classifiable) error {
	if !tx.enabled {
		return ErrWriteOutsideTransaction
	}
	if i, ok := tx.localIndex(tv); ok {
		tx.entries[i].value = v
		tx.entries[i].written = true
		return nil
	}
	if tx.stopAdding {
		return ErrTransactionClosed
	}
	e := tx.addCopy(tv)
	e.value = v
	e.written = true
	return nil
}

// Commit attempts to publish every write this transaction staged,
// grounded directly on ractor_space_tx_commit: lock every touched slot
// in descending index order (ractor_space_tx_sort), check none of them
// advanced past this transaction's snapshot version, and if so bump the
// space's global version once and write back. Returns false on a lost
// race; the caller (Atomically) resets and retries.
func (tx *Tx) Commit() bool {
	if len(tx.entries) == 0 {
		return true
	}

	sorted := make([]*txEntry, len(tx.entries))
	copy(sorted, tx.entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].tv.index > sorted[j].tv.index
	})

	for _, e := range sorted {
		e.tv.lock()
	}

	for _, e := range sorted {
		if e.tv.version > tx.version {
			for _, u := range sorted {
				u.tv.unlock()
			}
			return false
		}
	}

	newVersion := tx.space.nextVersion()
	for _, e := range tx.entries {
		if e.written {
			e.tv.value = e.value
			e.tv.version = newVersion
		}
	}

	for _, e := range sorted {
		e.tv.unlock()
	}
	return true
}

// Atomically runs fn under tx, retrying on a lost commit race until it
// either succeeds or fn returns an error (spec.md §4.6 atomically). fn's
// error is surfaced as-is and aborts the attempt without committing any
// staged write.
func Atomically(tx *Tx, fn func(tx *Tx) error) error {
	if !tx.Begin() {
		return ErrNestedTransaction
	}
	defer tx.End()

	for {
		if err := fn(tx); err != nil {
			return err
		}
		if tx.Commit() {
			metrics.IncCommit("committed")
			return nil
		}
		metrics.IncCommit("retried")
		tx.Reset()
	}
}
