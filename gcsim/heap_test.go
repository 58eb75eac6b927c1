package gcsim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/extable/codeptr"
	"github.com/joshuapare/extable/internal/vmem"
	"github.com/joshuapare/extable/table"
)

func newTestHeap(t testing.TB, cfg *Config) *Heap {
	t.Helper()

	tbl, err := codeptr.New(vmem.NewHeap(), &table.Config{SegmentEntries: 32, MaxEntries: 1 << 14})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, tbl.Close()) })

	h, err := New(tbl, table.NewSpace("code"), cfg)
	require.NoError(t, err)
	return h
}

func Test_Config_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig.Validate())

	bad := []Config{
		{Markers: 0, Survival: 0.5},
		{Markers: 1, Mutators: -1},
		{Markers: 1, Survival: 2},
		{Markers: 1, MidCycleDeaths: -0.1},
	}
	for _, c := range bad {
		require.Error(t, c.Validate(), "%+v", c)
	}
}

func Test_Heap_CyclesKeepContent(t *testing.T) {
	h := newTestHeap(t, nil)
	require.NoError(t, h.Allocate(1500))

	cycles := 12
	if testing.Short() {
		cycles = 4
	}
	compacted := false
	for range cycles {
		report, err := h.Cycle(context.Background())
		require.NoError(t, err)
		require.Equal(t, report.Objects, h.Objects())
		require.Equal(t, report.Survivors+report.Allocated, report.Objects)
		if report.Compaction.Outcome == table.OutcomeSuccess {
			compacted = true
		}
	}
	require.True(t, compacted, "a shrinking heap compacts at least once")
	require.Positive(t, h.Counters().Compactions.Load())
	require.Equal(t, uint64(cycles), h.Counters().Cycles.Load())
}

func Test_Heap_CompactionReleasesSegments(t *testing.T) {
	h := newTestHeap(t, &Config{Markers: 4, Mutators: 0, Survival: 0.2, Seed: 5})
	require.NoError(t, h.Allocate(2000))
	start := len(h.Space().Segments())

	for range 6 {
		_, err := h.Cycle(context.Background())
		require.NoError(t, err)
	}
	require.Less(t, len(h.Space().Segments()), start)
	require.Positive(t, h.Counters().SegmentsReleased.Load())
}

func Test_Heap_IsReproducible(t *testing.T) {
	run := func() []int {
		h := newTestHeap(t, &Config{Markers: 3, Mutators: 2, MutatorAllocs: 16, Survival: 0.6, Seed: 42})
		require.NoError(t, h.Allocate(500))
		var objects []int
		for range 3 {
			report, err := h.Cycle(context.Background())
			require.NoError(t, err)
			objects = append(objects, report.Objects)
		}
		return objects
	}
	require.Equal(t, run(), run())
}

func Test_Heap_CycleHonorsContext(t *testing.T) {
	h := newTestHeap(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Cycle(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
