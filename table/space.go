package table

import (
	"sync"
	"sync/atomic"

	"github.com/joshuapare/extable/internal/format"
)

const (
	// NotCompacting is the evacuation threshold of an idle space. It is
	// above every index, so no entry ever evacuates.
	NotCompacting uint32 = 0xffffffff

	// CompactionAborted is ORed into the threshold when compaction aborts.
	// The result is still above every index, which stops new evacuations,
	// while the low bits keep the original threshold for sweep.
	CompactionAborted uint32 = 0xf0000000
)

// Space is a named partition of a table's index range. Entries are always
// allocated from, freed to and compacted within one space.
type Space struct {
	name string

	// freelistHead packs version<<32 | index. Index format.NoEntry means
	// empty. The version makes the CAS pop immune to ABA.
	freelistHead atomic.Uint64
	freeCount    atomic.Int64

	allocatingBlack atomic.Bool
	threshold       atomic.Uint32

	// mu serializes growth and guards segments.
	mu       sync.Mutex
	segments []Segment

	// evacMu guards the evacuation records and released fields.
	evacMu      sync.Mutex
	evacuations []evacuation
	released    map[*HandleField]struct{}

	stats spaceCounters
}

// evacuation remembers which field owned the entry at from when marking
// reserved a slot for it.
type evacuation struct {
	field *HandleField
	from  uint32
}

type spaceCounters struct {
	allocations atomic.Uint64
	frees       atomic.Uint64
	grows       atomic.Uint64
	evacuations atomic.Uint64
	aborts      atomic.Uint64
}

// NewSpace returns an empty space. Spaces must be created with NewSpace; the
// zero value is not ready for use.
func NewSpace(name string) *Space {
	s := &Space{name: name}
	s.threshold.Store(NotCompacting)
	return s
}

// Name returns the name given to NewSpace.
func (s *Space) Name() string { return s.name }

// SetAllocatingBlack controls whether new entries start out marked. The GC
// driver turns it on for the duration of marking.
func (s *Space) SetAllocatingBlack(on bool) { s.allocatingBlack.Store(on) }

// AllocatingBlack reports whether new entries start out marked.
func (s *Space) AllocatingBlack() bool { return s.allocatingBlack.Load() }

// IsCompacting reports whether a compaction is active and has not aborted.
func (s *Space) IsCompacting() bool {
	t := s.threshold.Load()
	return t != NotCompacting && t&CompactionAborted == 0
}

// CompactionWasAborted reports whether the current cycle's compaction aborted.
func (s *Space) CompactionWasAborted() bool {
	t := s.threshold.Load()
	return t != NotCompacting && t&CompactionAborted == CompactionAborted
}

// Threshold returns the evacuation threshold, without the aborted marker, or
// NotCompacting.
func (s *Space) Threshold() uint32 {
	t := s.threshold.Load()
	if t == NotCompacting {
		return t
	}
	return t &^ CompactionAborted
}

// FreeCount returns the number of entries on the freelist.
func (s *Space) FreeCount() int {
	return int(s.freeCount.Load())
}

// Segments returns a copy of the space's segments in index order.
func (s *Space) Segments() []Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Segment(nil), s.segments...)
}

// Capacity returns the number of entries the space's segments hold.
func (s *Space) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacityLocked()
}

func (s *Space) capacityLocked() int {
	n := 0
	for _, seg := range s.segments {
		n += int(seg.Count)
	}
	return n
}

// Contains reports whether index belongs to one of the space's segments.
func (s *Space) Contains(index uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containsLocked(index)
}

func (s *Space) containsLocked(index uint32) bool {
	for _, seg := range s.segments {
		if seg.Contains(index) {
			return true
		}
	}
	return false
}

// ReleaseField records that the object owning field no longer keeps a handle
// in it. Sweep will not rewrite a released field. Safe to call from marking
// workers and mutators.
func (s *Space) ReleaseField(field *HandleField) {
	s.evacMu.Lock()
	defer s.evacMu.Unlock()
	if s.released == nil {
		s.released = make(map[*HandleField]struct{})
	}
	s.released[field] = struct{}{}
}

// PendingEvacuations returns the number of evacuation records of the
// current cycle.
func (s *Space) PendingEvacuations() int {
	s.evacMu.Lock()
	defer s.evacMu.Unlock()
	return len(s.evacuations)
}

func (s *Space) addEvacuation(field *HandleField, from uint32) uint32 {
	s.evacMu.Lock()
	defer s.evacMu.Unlock()
	s.evacuations = append(s.evacuations, evacuation{field: field, from: from})
	return uint32(len(s.evacuations) - 1)
}

func (s *Space) resetEvacuations() {
	s.evacMu.Lock()
	defer s.evacMu.Unlock()
	s.evacuations = s.evacuations[:0]
	clear(s.released)
}

// abortCompacting tags the threshold as aborted. It reports whether this
// call performed the transition.
func (s *Space) abortCompacting() bool {
	for {
		t := s.threshold.Load()
		if t == NotCompacting || t&CompactionAborted != 0 {
			return false
		}
		if s.threshold.CompareAndSwap(t, t|CompactionAborted) {
			s.stats.aborts.Add(1)
			return true
		}
	}
}

func packHead(version, index uint32) uint64 {
	return uint64(version)<<32 | uint64(index)
}

func unpackHead(v uint64) (version, index uint32) {
	return uint32(v >> 32), uint32(v)
}

// freelistEmpty reports whether the freelist currently has no head.
func (s *Space) freelistEmpty() bool {
	_, head := unpackHead(s.freelistHead.Load())
	return head == format.NoEntry
}
