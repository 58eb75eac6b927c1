package table

import (
	"github.com/joshuapare/extable/internal/check"
	"github.com/joshuapare/extable/internal/format"
)

// FinishCompaction is the sweep of s. It resolves the cycle's evacuation
// entries, frees every unmarked entry, unmarks the survivors and rebuilds the
// freelist in ascending index order. After a successful compaction the
// trailing segments that became free are released to the store; the space
// always keeps at least one segment.
//
// Requires exclusive access: no mutator or marker may touch the table. sink
// may be nil.
func (t *Table[E, P]) FinishCompaction(s *Space, sink StatsSink) CompactionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := CompactionResult{Space: s.name, Threshold: NotCompacting}
	switch raw := s.threshold.Load(); {
	case raw == NotCompacting:
		res.Outcome = OutcomeNone
	case raw&CompactionAborted == CompactionAborted:
		res.Outcome = OutcomeAborted
		res.Threshold = raw &^ CompactionAborted
	default:
		res.Outcome = OutcomeSuccess
		res.Threshold = raw
	}

	if res.Outcome != OutcomeNone {
		res.Evacuated, res.Stale = t.resolveEvacuations(s, res.Threshold)
	}
	res.Live, res.Freed = t.sweep(s)
	if res.Outcome == OutcomeSuccess {
		res.SegmentsReleased = t.releaseTrailingSegments(s, res.Threshold)
	}
	t.rebuildFreelist(s)

	s.threshold.Store(NotCompacting)
	s.resetEvacuations()

	if res.Outcome != OutcomeNone {
		t.log.Debug("table: compaction finished", "space", s.name, "outcome", res.Outcome.String(),
			"threshold", res.Threshold, "evacuated", res.Evacuated, "stale", res.Stale,
			"released", res.SegmentsReleased, "segments", len(s.segments))
	}
	if sink != nil {
		sink.RecordCompaction(res)
	}
	return res
}

// resolveEvacuations moves every evacuated entry into the slot reserved for
// it. A record whose field was released, or no longer holds the source
// handle, is stale: its slot is simply freed.
func (t *Table[E, P]) resolveEvacuations(s *Space, threshold uint32) (moved, stale int) {
	s.evacMu.Lock()
	defer s.evacMu.Unlock()

	for _, seg := range s.segments {
		if seg.Start >= threshold {
			break
		}
		for to := seg.Start; to < seg.End() && to < threshold; to++ {
			dst := P(&t.entries[to])
			w := dst.Word()
			if !w.IsEvacuation() {
				continue
			}
			rec := s.evacuations[w.Payload()]
			src := P(&t.entries[rec.from])
			if _, gone := s.released[rec.field]; gone ||
				rec.field.Load() != format.EncodeHandle(rec.from) || !src.Word().IsLive() {
				dst.MakeFreelistEntry(format.NoEntry)
				stale++
				continue
			}
			dst.MoveFrom((*E)(src))
			rec.field.Store(format.EncodeHandle(to))
			// Poison the source so a second record naming it cannot move it
			// again.
			src.MakeFreelistEntry(format.NoEntry)
			moved++
		}
	}
	return moved, stale
}

// sweep frees unmarked live entries and unmarks the rest.
func (t *Table[E, P]) sweep(s *Space) (live, freed int) {
	for _, seg := range s.segments {
		for i := seg.Start; i < seg.End(); i++ {
			e := P(&t.entries[i])
			w := e.Word()
			switch {
			case w.IsFree():
			case w.IsEvacuation():
				check.Fail("table: unresolved evacuation entry %d in space %q", i, s.name)
			case e.IsMarked():
				e.Unmark()
				live++
			default:
				e.MakeFreelistEntry(format.NoEntry)
				freed++
			}
		}
	}
	return live, freed
}

// releaseTrailingSegments gives free segments at or above threshold back to
// the store, highest first, stopping at the first one still in use.
func (t *Table[E, P]) releaseTrailingSegments(s *Space, threshold uint32) int {
	released := 0
	for len(s.segments) > 1 {
		seg := s.segments[len(s.segments)-1]
		if seg.Start < threshold || !t.segmentIsFree(seg) {
			break
		}
		s.segments = s.segments[:len(s.segments)-1]
		t.releaseSegment(seg)
		released++
		t.log.Debug("table: segment released", "space", s.name, "segment", seg.Number(), "start", seg.Start)
	}
	return released
}

func (t *Table[E, P]) segmentIsFree(seg Segment) bool {
	for i := seg.Start; i < seg.End(); i++ {
		if !P(&t.entries[i]).Word().IsFree() {
			return false
		}
	}
	return true
}

// rebuildFreelist relinks every free entry of s so the lowest index is
// handed out first.
func (t *Table[E, P]) rebuildFreelist(s *Space) {
	head := format.NoEntry
	n := 0
	for i := len(s.segments) - 1; i >= 0; i-- {
		seg := s.segments[i]
		for j := seg.End(); j > seg.Start; j-- {
			e := P(&t.entries[j-1])
			if e.Word().IsFree() {
				e.MakeFreelistEntry(head)
				head = j - 1
				n++
			}
		}
	}
	version, _ := unpackHead(s.freelistHead.Load())
	s.freelistHead.Store(packHead(version+1, head))
	s.freeCount.Store(int64(n))
}
