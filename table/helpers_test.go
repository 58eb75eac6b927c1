package table

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/extable/internal/format"
	"github.com/joshuapare/extable/internal/vmem"
)

// ============================================================================
// Test Entry
// ============================================================================

// testEntry is a one-word entry: a 48-bit value with the marking bit just
// above it.
type testEntry struct {
	w atomic.Uint64
}

const testMark = uint64(1) << 48

func (e *testEntry) Word() format.Word { return format.Word(e.w.Load()) }

func (e *testEntry) MakeFreelistEntry(next uint32) {
	e.w.Store(uint64(format.FreeWord(next)))
}

func (e *testEntry) MakeEvacuationEntry(record uint32) {
	e.w.Store(uint64(format.EvacuationWord(record)))
}

func (e *testEntry) Mark() bool {
	for {
		old := e.w.Load()
		if old&testMark != 0 {
			return false
		}
		if e.w.CompareAndSwap(old, old|testMark) {
			return true
		}
	}
}

func (e *testEntry) Unmark() {
	for {
		old := e.w.Load()
		if e.w.CompareAndSwap(old, old&^testMark) {
			return
		}
	}
}

func (e *testEntry) IsMarked() bool {
	w := e.Word()
	return w.IsLive() && w.Has(testMark)
}

func (e *testEntry) MoveFrom(src *testEntry) {
	e.w.Store(src.w.Load() | testMark)
}

func (e *testEntry) Content() (uint64, uint64) {
	return e.w.Load() &^ testMark, 0
}

func (e *testEntry) set(value uint64, marked bool) {
	if marked {
		value |= testMark
	}
	e.w.Store(value)
}

func (e *testEntry) value() uint64 {
	v, _ := e.Content()
	return v
}

// ============================================================================
// Table Utilities
// ============================================================================

type testTable = Table[testEntry, *testEntry]

// newTestTable builds a heap-backed table with small segments.
func newTestTable(t testing.TB, segmentEntries, maxEntries uint32, opts ...func(*Config)) *testTable {
	t.Helper()

	cfg := DefaultConfig
	cfg.SegmentEntries = segmentEntries
	cfg.MaxEntries = maxEntries
	for _, opt := range opts {
		opt(&cfg)
	}
	tbl, err := New[testEntry, *testEntry](vmem.NewHeap(), &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, tbl.Close()) })
	return tbl
}

// testObject stands in for a sandboxed object holding one handle.
type testObject struct {
	field HandleField
	value uint64
}

func allocObject(t testing.TB, tbl *testTable, s *Space, value uint64) *testObject {
	t.Helper()

	index, err := tbl.AllocateEntry(s)
	require.NoError(t, err)
	tbl.At(index).set(value, s.AllocatingBlack())
	o := &testObject{value: value}
	o.field.Store(EncodeHandle(index))
	return o
}

func allocObjects(t testing.TB, tbl *testTable, s *Space, n int) []*testObject {
	t.Helper()

	objs := make([]*testObject, n)
	for i := range objs {
		objs[i] = allocObject(t, tbl, s, uint64(i+1)*0x1000)
	}
	return objs
}

func indexOf(o *testObject) uint32 {
	index, _ := DecodeHandle(o.field.Load())
	return index
}

func markObject(tbl *testTable, s *Space, o *testObject) {
	tbl.Mark(s, o.field.Load(), &o.field)
}

// requireIntact checks every object still resolves to its own value.
func requireIntact(t testing.TB, tbl *testTable, objs []*testObject) {
	t.Helper()

	for _, o := range objs {
		require.Equal(t, o.value, tbl.Lookup(o.field.Load()).value(), "object at index %d", indexOf(o))
	}
}

// freelistOrder walks the freelist of s.
func freelistOrder(tbl *testTable, s *Space) []uint32 {
	var out []uint32
	_, index := unpackHead(s.freelistHead.Load())
	for index != format.NoEntry {
		out = append(out, index)
		index = tbl.At(index).Word().Payload()
	}
	return out
}

// failingStore refuses commits after the first n.
type failingStore struct {
	*vmem.Heap
	commits int
	limit   int
}

func (f *failingStore) Commit(off, size int) error {
	f.commits++
	if f.commits > f.limit {
		return errCommitRefused
	}
	return f.Heap.Commit(off, size)
}

// pageStore reports a 4 KiB granularity.
type pageStore struct {
	*vmem.Heap
}

func (pageStore) Granularity() int { return 4096 }

// oddStore reports a granularity that is not a power of two.
type oddStore struct {
	*vmem.Heap
}

func (oddStore) Granularity() int { return 24 }
