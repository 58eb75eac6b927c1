package table

import (
	"github.com/joshuapare/extable/internal/check"
	"github.com/joshuapare/extable/internal/format"
)

// AllocateEntry takes a free entry of s and returns its index. The entry
// still has freelist content; the caller initializes it before publishing
// the handle.
//
// Allocating inside the evacuation area while s is compacting aborts the
// compaction.
func (t *Table[E, P]) AllocateEntry(s *Space) (uint32, error) {
	for {
		if index, ok := t.pop(s); ok {
			if index >= s.threshold.Load() {
				t.abortCompacting(s, "allocation inside evacuation area", index)
			}
			s.stats.allocations.Add(1)
			return index, nil
		}
		if err := t.grow(s); err != nil {
			return format.NoEntry, err
		}
	}
}

// pop takes the freelist head.
func (t *Table[E, P]) pop(s *Space) (uint32, bool) {
	for {
		old := s.freelistHead.Load()
		version, index := unpackHead(old)
		if index == format.NoEntry {
			return format.NoEntry, false
		}
		// A concurrent pop may already have reused index; then next is
		// garbage and the versioned CAS below fails.
		next := P(&t.entries[index]).Word().Payload()
		if s.freelistHead.CompareAndSwap(old, packHead(version+1, next)) {
			if !P(&t.entries[index]).Word().IsFree() {
				check.Fail("table: freelist head %d is not free", index)
			}
			s.freeCount.Add(-1)
			return index, true
		}
	}
}

// push puts index on top of the freelist.
func (t *Table[E, P]) push(s *Space, index uint32) {
	e := P(&t.entries[index])
	for {
		old := s.freelistHead.Load()
		version, head := unpackHead(old)
		e.MakeFreelistEntry(head)
		if s.freelistHead.CompareAndSwap(old, packHead(version+1, index)) {
			s.freeCount.Add(1)
			return
		}
	}
}

// grow adds one segment to s and links its entries into the freelist. It is
// a no-op if another goroutine refilled the freelist first.
func (t *Table[E, P]) grow(s *Space) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.freelistEmpty() {
		return nil
	}
	seg, err := t.allocateSegment()
	if err != nil {
		return err
	}
	s.segments = insertSegment(s.segments, seg)
	s.stats.grows.Add(1)
	t.log.Debug("table: segment allocated", "space", s.name, "segment", seg.Number(), "start", seg.Start, "segments", len(s.segments))

	if s.IsCompacting() {
		t.abortCompacting(s, "space grew during compaction", seg.Start)
	}

	last := seg.End() - 1
	for i := seg.Start; i < last; i++ {
		P(&t.entries[i]).MakeFreelistEntry(i + 1)
	}
	tail := P(&t.entries[last])
	for {
		old := s.freelistHead.Load()
		version, head := unpackHead(old)
		tail.MakeFreelistEntry(head)
		if s.freelistHead.CompareAndSwap(old, packHead(version+1, seg.Start)) {
			break
		}
	}
	s.freeCount.Add(int64(seg.Count))
	return nil
}

// FreeEntry returns the entry h refers to to the freelist of s. The handle
// must not be used afterwards and no field may still hold it. Must not run
// concurrently with FinishCompaction.
//
// While s is compacting, entries inside the evacuation area are parked
// instead: they stay free but off the freelist until sweep relinks them, so
// they cannot shadow the entries below the threshold.
func (t *Table[E, P]) FreeEntry(s *Space, h Handle) {
	index := t.index(h)
	check.That(index != format.NoEntry, "table: free of the null entry")
	if !P(&t.entries[index]).Word().IsLive() {
		check.Fail("table: free of non-live entry %d", index)
	}
	if index >= s.threshold.Load() {
		t.park(index)
	} else {
		t.push(s, index)
	}
	s.stats.frees.Add(1)
}

// park turns the entry at index into a free entry that is on no freelist.
// rebuildFreelist picks it up again.
func (t *Table[E, P]) park(index uint32) {
	P(&t.entries[index]).MakeFreelistEntry(format.NoEntry)
}

// popEvacuationTarget pops free entries until it finds one below threshold.
// Entries at or above it were pushed before compaction started; they are
// parked on the way.
func (t *Table[E, P]) popEvacuationTarget(s *Space, threshold uint32) (uint32, bool) {
	for {
		index, ok := t.pop(s)
		if !ok {
			return format.NoEntry, false
		}
		if index < threshold {
			return index, true
		}
		t.park(index)
	}
}
