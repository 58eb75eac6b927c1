package table

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/extable/internal/format"
)

func Test_Verify_DetectsCorruption(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(tbl *testTable, s *Space, objs []*testObject)
	}{
		{
			name: "live entry on freelist",
			corrupt: func(tbl *testTable, s *Space, objs []*testObject) {
				_, head := unpackHead(s.freelistHead.Load())
				tbl.At(head).set(5, false)
			},
		},
		{
			name: "cycle",
			corrupt: func(tbl *testTable, s *Space, objs []*testObject) {
				_, head := unpackHead(s.freelistHead.Load())
				tbl.At(head).MakeFreelistEntry(head)
			},
		},
		{
			name: "leaked free entry",
			corrupt: func(tbl *testTable, s *Space, objs []*testObject) {
				tbl.At(indexOf(objs[0])).MakeFreelistEntry(format.NoEntry)
			},
		},
		{
			name: "stray evacuation entry",
			corrupt: func(tbl *testTable, s *Space, objs []*testObject) {
				tbl.At(indexOf(objs[1])).MakeEvacuationEntry(0)
			},
		},
		{
			name: "count mismatch",
			corrupt: func(tbl *testTable, s *Space, objs []*testObject) {
				s.freeCount.Add(1)
			},
		},
		{
			name: "foreign index",
			corrupt: func(tbl *testTable, s *Space, objs []*testObject) {
				_, head := unpackHead(s.freelistHead.Load())
				tbl.At(head).MakeFreelistEntry(40)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTestTable(t, 8, 64)
			s := NewSpace("s")
			objs := allocObjects(t, tbl, s, 5)
			require.NoError(t, tbl.Verify(s))

			tt.corrupt(tbl, s, objs)
			err := tbl.Verify(s)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrCorrupt))
		})
	}
}

func Test_Fingerprint_IgnoresPlacementAndMarks(t *testing.T) {
	a := newTestTable(t, 8, 64)
	b := newTestTable(t, 8, 64)
	sa, sb := NewSpace("a"), NewSpace("b")

	objs := allocObjects(t, a, sa, 6)
	for i := 5; i >= 0; i-- {
		allocObject(t, b, sb, uint64(i+1)*0x1000)
	}
	require.Equal(t, a.Fingerprint(sa), b.Fingerprint(sb))

	markObject(a, sa, objs[3])
	require.Equal(t, a.Fingerprint(sa), b.Fingerprint(sb))

	a.FreeEntry(sa, objs[0].field.Load())
	require.NotEqual(t, a.Fingerprint(sa), b.Fingerprint(sb))
}

func Test_Stats_Occupancy(t *testing.T) {
	tbl := newTestTable(t, 8, 64)
	s := NewSpace("s")
	objs := allocObjects(t, tbl, s, 10)
	markObject(tbl, s, objs[0])

	usage := tbl.Occupancy(s)
	require.Len(t, usage, 2)
	require.Equal(t, SegmentUsage{Segment: Segment{8, 8}, Live: 8, Marked: 1}, usage[0])
	require.Equal(t, SegmentUsage{Segment: Segment{16, 8}, Live: 2, Free: 6}, usage[1])

	st := s.Stats()
	require.Equal(t, "s", st.Name)
	require.Equal(t, 16, st.Capacity)
	require.Equal(t, 6, st.Free)
	require.Equal(t, uint64(10), st.Allocations)
	require.Equal(t, NotCompacting, st.Threshold)

	ts := tbl.Stats()
	require.Equal(t, 8, ts.EntrySize)
	require.Equal(t, 8, ts.MaxSegments)
	require.Equal(t, 3, ts.SegmentsInUse)
	require.Equal(t, 3*8*8, ts.CommittedBytes)
}

func Test_IterateActiveEntriesIn_SkipsFreeEntries(t *testing.T) {
	tbl := newTestTable(t, 8, 64)
	s := NewSpace("s")
	objs := allocObjects(t, tbl, s, 4)
	tbl.FreeEntry(s, objs[1].field.Load())

	var got []Handle
	tbl.IterateActiveEntriesIn(s, func(h Handle, e *testEntry) {
		got = append(got, h)
		require.True(t, e.Word().IsLive())
	})
	require.Equal(t, []Handle{objs[0].field.Load(), objs[2].field.Load(), objs[3].field.Load()}, got)
}
