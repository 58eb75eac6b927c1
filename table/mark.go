package table

import (
	"github.com/joshuapare/extable/internal/check"
	"github.com/joshuapare/extable/internal/format"
)

// Mark sets the marking bit of the entry h refers to. field is the slot the
// handle was read from; compaction needs it to move the entry. Handles of
// the null entry are ignored. Safe for concurrent use by marking workers and
// allocating mutators.
func (t *Table[E, P]) Mark(s *Space, h Handle, field *HandleField) {
	if h == NullHandle {
		return
	}
	index := t.index(h)
	if index == format.NoEntry {
		return
	}
	e := P(&t.entries[index])
	if !e.Word().IsLive() {
		check.Fail("table: mark of non-live entry %d", index)
	}

	// Only the marker that set the bit evacuates, so an entry gets at most
	// one evacuation record per cycle.
	if e.Mark() && index >= s.threshold.Load() {
		t.maybeCreateEvacuationEntry(s, index, field)
	}
}

// maybeCreateEvacuationEntry reserves a free entry below the threshold as
// the future home of the entry at from.
func (t *Table[E, P]) maybeCreateEvacuationEntry(s *Space, from uint32, field *HandleField) {
	threshold := s.threshold.Load()
	if from < threshold {
		return
	}
	if field == nil {
		t.abortCompacting(s, "marked entry has no owning field", from)
		return
	}
	to, ok := t.popEvacuationTarget(s, threshold)
	if !ok {
		t.abortCompacting(s, "no free entry below threshold", from)
		return
	}
	record := s.addEvacuation(field, from)
	P(&t.entries[to]).MakeEvacuationEntry(record)
	s.stats.evacuations.Add(1)
}

// IsMarked reports whether the entry h refers to is marked. The null entry
// is never marked.
func (t *Table[E, P]) IsMarked(h Handle) bool {
	if h == NullHandle {
		return false
	}
	index := t.index(h)
	return index != format.NoEntry && P(&t.entries[index]).IsMarked()
}

// Unmark clears the marking bit of the entry h refers to.
func (t *Table[E, P]) Unmark(h Handle) {
	if h == NullHandle {
		return
	}
	if index := t.index(h); index != format.NoEntry {
		P(&t.entries[index]).Unmark()
	}
}
