package stm

import "sync"

// Space is the process-wide t-var namespace: a monotonic global version
// counter bumped on every successful commit, and a monotonic slot-index
// counter used to assign each TVar a stable position for the commit
// path's descending lock order (spec.md §4.6, ractor_space_tx_sort).
type Space struct {
	versionMu sync.Mutex
	version   uint64

	indexMu sync.Mutex
	nextIdx uint64
}

// NewSpace returns a fresh, empty t-var namespace.
func NewSpace() *Space {
	return &Space{}
}

// currentVersion returns the space's version without bumping it, used
// by Begin/Reset to snapshot a transaction's starting point.
func (s *Space) currentVersion() uint64 {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()
	return s.version
}

// nextVersion bumps and returns the new global version, called once per
// successful commit (spec.md §8 "version never decreases").
func (s *Space) nextVersion() uint64 {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()
	s.version++
	return s.version
}

func (s *Space) nextSlotIndex() uint64 {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.nextIdx++
	return s.nextIdx
}
