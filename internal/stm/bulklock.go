package stm

import "sort"

// LockBegin starts the pessimistic bulk-lock mode (spec.md §4.6, design
// notes §9): every tvar the caller names is locked up front, in
// descending slot-index order to match Commit's own ordering so a
// concurrent optimistic Commit can never deadlock against it. Once
// locked, the transaction is closed to new tvars (stopAdding): a
// Read/Write naming one not passed here fails with
// ErrTransactionClosed, matching the "hard failure on grow-after-lock"
// decision recorded in DESIGN.md.
func LockBegin(tx *Tx, tvars []*TVar) error {
	if tx.enabled {
		return ErrNestedTransaction
	}

	tx.enabled = true
	tx.version = tx.space.currentVersion()
	tx.entries = nil
	tx.index = make(map[*TVar]int)

	sorted := make([]*TVar, len(tvars))
	copy(sorted, tvars)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].index > sorted[j].index
	})

	for _, tv := range sorted {
		tv.lock()
	}
	tx.locked = sorted

	seen := make(map[*TVar]bool, len(tvars))
	for _, tv := range tvars {
		if seen[tv] {
			continue
		}
		seen[tv] = true
		// tv's mutex is already held above, so read value directly
		// rather than through addCopy's locking snapshot.
		tx.entries = append(tx.entries, &txEntry{tv: tv, value: tv.value})
		tx.index[tv] = len(tx.entries) - 1
	}
	tx.stopAdding = true
	return nil
}

// LockCommit publishes every staged write without a version check:
// every touched slot's lock is already held by LockBegin, so there is
// no concurrent writer to race against.
func LockCommit(tx *Tx) {
	if len(tx.entries) == 0 {
		return
	}
	newVersion := tx.space.nextVersion()
	for _, e := range tx.entries {
		if e.written {
			e.tv.value = e.value
			e.tv.version = newVersion
		}
	}
}

// LockEnd releases every slot LockBegin locked and resets the
// transaction so a later Begin or LockBegin can start fresh.
func LockEnd(tx *Tx) {
	for _, tv := range tx.locked {
		tv.unlock()
	}
	tx.locked = nil
	tx.enabled = false
	tx.stopAdding = false
	tx.entries = nil
	tx.index = nil
}
