package table

import "github.com/joshuapare/extable/internal/format"

// SpaceStats is a point-in-time view of a space.
type SpaceStats struct {
	Name       string `json:"name"`
	Segments   int    `json:"segments"`
	Capacity   int    `json:"capacity"`
	Free       int    `json:"free"`
	Threshold  uint32 `json:"threshold"`
	Compacting bool   `json:"compacting"`
	Aborted    bool   `json:"aborted"`

	Allocations uint64 `json:"allocations"`
	Frees       uint64 `json:"frees"`
	Grows       uint64 `json:"grows"`
	Evacuations uint64 `json:"evacuations"`
	Aborts      uint64 `json:"aborts"`
}

// Stats returns counters and occupancy of s.
func (s *Space) Stats() SpaceStats {
	s.mu.Lock()
	segments, capacity := len(s.segments), s.capacityLocked()
	s.mu.Unlock()

	return SpaceStats{
		Name:        s.name,
		Segments:    segments,
		Capacity:    capacity,
		Free:        s.FreeCount(),
		Threshold:   s.Threshold(),
		Compacting:  s.IsCompacting(),
		Aborted:     s.CompactionWasAborted(),
		Allocations: s.stats.allocations.Load(),
		Frees:       s.stats.frees.Load(),
		Grows:       s.stats.grows.Load(),
		Evacuations: s.stats.evacuations.Load(),
		Aborts:      s.stats.aborts.Load(),
	}
}

// TableStats describes the table as a whole.
type TableStats struct {
	EntrySize      int    `json:"entry_size"`
	SegmentEntries uint32 `json:"segment_entries"`
	MaxSegments    int    `json:"max_segments"`
	SegmentsInUse  int    `json:"segments_in_use"`
	CommittedBytes int    `json:"committed_bytes"`
}

// Stats returns table-wide figures. CommittedBytes comes from the store when
// it tracks commitment, and is derived from the segment count otherwise.
func (t *Table[E, P]) Stats() TableStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	inUse := t.segmentsInUse
	committed := inUse * t.segmentBytes
	if c, ok := t.store.(interface{ Committed() int }); ok {
		committed = c.Committed()
	}
	return TableStats{
		EntrySize:      t.entrySize,
		SegmentEntries: t.cfg.SegmentEntries,
		MaxSegments:    len(t.segmentUsed),
		SegmentsInUse:  inUse,
		CommittedBytes: committed,
	}
}

// SegmentUsage counts entry states in one segment.
type SegmentUsage struct {
	Segment
	Live       int `json:"live"`
	Marked     int `json:"marked"`
	Free       int `json:"free"`
	Evacuation int `json:"evacuation"`
}

// Occupancy returns per-segment entry counts for s. Requires exclusive
// access.
func (t *Table[E, P]) Occupancy(s *Space) []SegmentUsage {
	segs := s.Segments()
	out := make([]SegmentUsage, 0, len(segs))
	for _, seg := range segs {
		u := SegmentUsage{Segment: seg}
		for i := seg.Start; i < seg.End(); i++ {
			e := P(&t.entries[i])
			switch w := e.Word(); {
			case w.IsFree():
				u.Free++
			case w.IsEvacuation():
				u.Evacuation++
			default:
				u.Live++
				if e.IsMarked() {
					u.Marked++
				}
			}
		}
		out = append(out, u)
	}
	return out
}

// HandleIndex is DecodeHandle without the validity flag, for display.
func HandleIndex(h Handle) uint32 {
	index, _ := format.DecodeHandle(h)
	return index
}
