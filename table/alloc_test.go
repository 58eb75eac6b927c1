package table

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/extable/internal/format"
	"github.com/joshuapare/extable/internal/vmem"
)

func Test_Allocate_NeverReturnsNullEntry(t *testing.T) {
	tbl := newTestTable(t, 8, 64)
	s := NewSpace("s")

	for range 40 {
		index, err := tbl.AllocateEntry(s)
		require.NoError(t, err)
		require.NotEqual(t, format.NoEntry, index)
		require.GreaterOrEqual(t, index, uint32(8), "segment 0 is reserved")
		tbl.At(index).set(1, false)
	}
}

func Test_Allocate_GrowsOneSegmentAtATime(t *testing.T) {
	tbl := newTestTable(t, 8, 64)
	s := NewSpace("s")

	objs := allocObjects(t, tbl, s, 8)
	require.Equal(t, []Segment{{Start: 8, Count: 8}}, s.Segments())
	for i, o := range objs {
		require.Equal(t, uint32(8+i), indexOf(o), "fresh segment is handed out in ascending order")
	}
	require.Zero(t, s.FreeCount())

	allocObject(t, tbl, s, 1)
	require.Equal(t, []Segment{{Start: 8, Count: 8}, {Start: 16, Count: 8}}, s.Segments())
	require.Equal(t, 7, s.FreeCount())
	require.Equal(t, uint64(2), s.Stats().Grows)
	require.Equal(t, 3, tbl.Stats().SegmentsInUse)
	require.NoError(t, tbl.Verify(s))
}

func Test_Allocate_SpacesGetDisjointSegments(t *testing.T) {
	tbl := newTestTable(t, 8, 64)
	a, b := NewSpace("a"), NewSpace("b")

	allocObjects(t, tbl, a, 9)
	allocObjects(t, tbl, b, 3)
	allocObjects(t, tbl, a, 8)

	require.Equal(t, []Segment{{8, 8}, {16, 8}, {32, 8}}, a.Segments())
	require.Equal(t, []Segment{{24, 8}}, b.Segments())
	require.NoError(t, tbl.Verify(a))
	require.NoError(t, tbl.Verify(b))
}

func Test_Allocate_OutOfMemory(t *testing.T) {
	tbl := newTestTable(t, 8, 24)
	s := NewSpace("s")

	allocObjects(t, tbl, s, 16)
	_, err := tbl.AllocateEntry(s)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrOutOfMemory))
}

func Test_Allocate_CommitFailureIsOutOfMemory(t *testing.T) {
	store := &failingStore{Heap: vmem.NewHeap(), limit: 1}
	tbl, err := New[testEntry, *testEntry](store, &Config{SegmentEntries: 8, MaxEntries: 64})
	require.NoError(t, err)
	defer tbl.Close()

	_, err = tbl.AllocateEntry(NewSpace("s"))
	require.True(t, errors.Is(err, ErrOutOfMemory))
	require.True(t, errors.Is(err, errCommitRefused))
}

func Test_Free_IsLastInFirstOut(t *testing.T) {
	tbl := newTestTable(t, 8, 64)
	s := NewSpace("s")
	objs := allocObjects(t, tbl, s, 8)

	tbl.FreeEntry(s, objs[2].field.Load())
	tbl.FreeEntry(s, objs[5].field.Load())
	require.Equal(t, []uint32{13, 10}, freelistOrder(tbl, s))

	o := allocObject(t, tbl, s, 99)
	require.Equal(t, indexOf(objs[5]), indexOf(o))
	o = allocObject(t, tbl, s, 100)
	require.Equal(t, indexOf(objs[2]), indexOf(o))
	require.Equal(t, uint64(2), s.Stats().Frees)
}

func Test_Free_RejectsNonLiveEntries(t *testing.T) {
	tbl := newTestTable(t, 8, 64)
	s := NewSpace("s")
	o := allocObject(t, tbl, s, 1)

	tbl.FreeEntry(s, o.field.Load())
	require.Panics(t, func() { tbl.FreeEntry(s, o.field.Load()) }, "double free")
	require.Panics(t, func() { tbl.FreeEntry(s, EncodeHandle(format.NoEntry)) })
	require.Panics(t, func() { tbl.FreeEntry(s, Handle(0x1234)) })
}

// Test_Freelist_MatchesModel runs random allocations and frees against a
// model of issued indices. The live set is capped so the walk stays well
// inside MaxEntries however long it runs.
func Test_Freelist_MatchesModel(t *testing.T) {
	const maxLive = 600
	tbl := newTestTable(t, 16, 1<<13)
	s := NewSpace("s")
	rng := rand.New(rand.NewPCG(7, 11))

	issued := make(map[uint32]uint64)
	var order []uint32
	var lastFreed []uint32

	steps := 5000
	if testing.Short() {
		steps = 500
	}
	for step := range steps {
		if len(order) == 0 || (len(order) < maxLive && rng.IntN(3) != 0) {
			index, err := tbl.AllocateEntry(s)
			require.NoError(t, err)
			_, dup := issued[index]
			require.False(t, dup, "index %d issued twice", index)
			if len(lastFreed) > 0 {
				require.Equal(t, lastFreed[len(lastFreed)-1], index, "allocation reuses the last freed entry")
				lastFreed = lastFreed[:len(lastFreed)-1]
			}
			value := uint64(step + 1)
			tbl.At(index).set(value, false)
			issued[index] = value
			order = append(order, index)
			continue
		}

		i := rng.IntN(len(order))
		index := order[i]
		order[i] = order[len(order)-1]
		order = order[:len(order)-1]
		require.Equal(t, issued[index], tbl.At(index).value())
		tbl.FreeEntry(s, EncodeHandle(index))
		delete(issued, index)
		lastFreed = append(lastFreed, index)

		if step%97 == 0 {
			require.NoError(t, tbl.Verify(s))
		}
	}

	require.NoError(t, tbl.Verify(s))
	require.Equal(t, s.Capacity()-len(issued), s.FreeCount(), "no entry leaked")
	require.LessOrEqual(t, s.Capacity(), maxLive+16, "frees are reused before growing")
	for index, value := range issued {
		require.Equal(t, value, tbl.At(index).value())
	}
}

func Test_Allocate_ConcurrentIsUnique(t *testing.T) {
	tbl := newTestTable(t, 32, 1<<14)
	s := NewSpace("s")

	const workers = 8
	per := 1000
	if testing.Short() {
		per = 200
	}

	results := make([][]uint32, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Go(func() {
			got := make([]uint32, 0, per)
			for i := range per {
				index, err := tbl.AllocateEntry(s)
				if err != nil {
					t.Error(err)
					return
				}
				tbl.At(index).set(uint64(w<<20|i), false)
				got = append(got, index)
				// Free every third entry again to exercise the push path.
				if i%3 == 0 {
					tbl.FreeEntry(s, EncodeHandle(index))
					got = got[:len(got)-1]
				}
			}
			results[w] = got
		})
	}
	wg.Wait()

	seen := make(map[uint32]int)
	for w, got := range results {
		for _, index := range got {
			prev, dup := seen[index]
			require.False(t, dup, "index %d held by workers %d and %d", index, prev, w)
			seen[index] = w
		}
	}
	require.NoError(t, tbl.Verify(s))
	require.Equal(t, s.Capacity()-len(seen), s.FreeCount())
}

func Test_TearDownSpace_ReleasesSegments(t *testing.T) {
	tbl := newTestTable(t, 8, 64)
	s := NewSpace("s")
	allocObjects(t, tbl, s, 20)
	require.Equal(t, 4, tbl.Stats().SegmentsInUse)

	tbl.TearDownSpace(s)
	require.Empty(t, s.Segments())
	require.Zero(t, s.FreeCount())
	require.Equal(t, 1, tbl.Stats().SegmentsInUse)

	o := allocObject(t, tbl, s, 5)
	require.Equal(t, uint32(8), indexOf(o), "lowest segment is reused")
}
