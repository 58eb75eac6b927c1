package table

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/extable/internal/format"
)

// Verify checks the structure of s: every freelist node is a free entry of
// s, the freelist has no cycle, its length matches the free count and every
// free entry is reachable from it, except entries parked inside the
// evacuation area of an active compaction. Evacuation entries may only exist
// below the threshold of an active compaction. Requires exclusive access.
func (t *Table[E, P]) Verify(s *Space) error {
	segs := s.Segments()

	t.mu.Lock()
	for _, seg := range segs {
		n := seg.Number()
		if n == 0 || int(n) >= len(t.segmentUsed) || !t.segmentUsed[n] {
			t.mu.Unlock()
			return errors.Wrapf(ErrCorrupt, "space %q owns unallocated segment %d", s.name, n)
		}
	}
	t.mu.Unlock()

	owns := func(index uint32) bool {
		for _, seg := range segs {
			if seg.Contains(index) {
				return true
			}
		}
		return false
	}

	for i, seg := range segs {
		if i > 0 && segs[i-1].End() > seg.Start {
			return errors.Wrapf(ErrCorrupt, "space %q segments %d and %d overlap", s.name, i-1, i)
		}
	}

	onList := make(map[uint32]struct{})
	_, index := unpackHead(s.freelistHead.Load())
	for index != format.NoEntry {
		if !owns(index) {
			return errors.Wrapf(ErrCorrupt, "space %q freelist reaches index %d outside its segments", s.name, index)
		}
		if _, dup := onList[index]; dup {
			return errors.Wrapf(ErrCorrupt, "space %q freelist cycles at index %d", s.name, index)
		}
		w := P(&t.entries[index]).Word()
		if !w.IsFree() {
			return errors.Wrapf(ErrCorrupt, "space %q freelist node %d is not free (%#x)", s.name, index, uint64(w))
		}
		onList[index] = struct{}{}
		index = w.Payload()
	}
	if got, want := len(onList), s.FreeCount(); got != want {
		return errors.Wrapf(ErrCorrupt, "space %q freelist has %d nodes, free count is %d", s.name, got, want)
	}

	threshold := s.threshold.Load()
	compacting := threshold != NotCompacting
	area := threshold &^ CompactionAborted
	for _, seg := range segs {
		for i := seg.Start; i < seg.End(); i++ {
			w := P(&t.entries[i]).Word()
			switch {
			case w.IsFree():
				if _, ok := onList[i]; !ok && (!compacting || i < area) {
					return errors.Wrapf(ErrCorrupt, "space %q free entry %d is not on the freelist", s.name, i)
				}
			case w.IsEvacuation():
				if !compacting || i >= area {
					return errors.Wrapf(ErrCorrupt, "space %q has stray evacuation entry %d", s.name, i)
				}
			}
		}
	}
	return nil
}
