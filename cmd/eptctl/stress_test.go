package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/extable/gcsim"
	"github.com/joshuapare/extable/table"
)

// resetStressFlags sets a small heap-backed workload.
func resetStressFlags() {
	stressObjects = 2000
	stressCycles = 4
	stressMarkers = 2
	stressMutators = 2
	stressAllocs = 32
	stressSurvival = 0.3
	stressDeaths = gcsim.DefaultConfig.MidCycleDeaths
	stressSeed = 7
	stressSegmentEntries = 64
	stressMinFreeRatio = table.DefaultMinFreeRatio
	stressNoCompaction = false
	stressHeap = true
	stressMap = false
}

func TestStressCommand_JSON(t *testing.T) {
	resetGlobalFlags()
	resetStressFlags()
	jsonOut = true
	stressMap = true

	output, err := captureOutput(t, func() error { return runStress(context.Background()) })
	require.NoError(t, err)

	var res stressResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	require.Len(t, res.Reports, stressCycles)
	require.Equal(t, uint64(stressCycles), res.Cycles)
	require.NotZero(t, res.Compacted, "low survival fragments the space")
	require.NotZero(t, res.Released)
	require.Len(t, res.Occupancy, res.Space.Segments)
	require.Equal(t, res.Reports[len(res.Reports)-1].Free, res.Space.Free)
	require.Equal(t, stressSegmentEntries, res.Table.SegmentEntries)
}

func TestStressCommand_Text(t *testing.T) {
	resetGlobalFlags()
	resetStressFlags()
	stressMap = true

	output, err := captureOutput(t, func() error { return runStress(context.Background()) })
	require.NoError(t, err)
	assertContains(t, output, []string{"cycle", "threshold", "Summary", "Segments released:", "Fingerprint:", "Occupancy", "empty"})
	assertNotContains(t, output, []string{"\x1b["})
}

func TestStressCommand_NoCompaction(t *testing.T) {
	resetGlobalFlags()
	resetStressFlags()
	jsonOut = true
	stressNoCompaction = true

	output, err := captureOutput(t, func() error { return runStress(context.Background()) })
	require.NoError(t, err)

	var res stressResult
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	require.Zero(t, res.Compacted)
	require.Zero(t, res.Evacuated)
	for _, r := range res.Reports {
		require.Equal(t, table.OutcomeNone, r.Compaction.Outcome)
	}
}

func TestStressCommand_IsReproducible(t *testing.T) {
	run := func() stressResult {
		resetGlobalFlags()
		resetStressFlags()
		jsonOut = true
		stressMarkers = 1
		stressMutators = 0

		output, err := captureOutput(t, func() error { return runStress(context.Background()) })
		require.NoError(t, err)
		var res stressResult
		require.NoError(t, json.Unmarshal([]byte(output), &res))
		return res
	}
	a, b := run(), run()
	require.Equal(t, a.Fingerprint, b.Fingerprint)
	require.Equal(t, a.Reports, b.Reports)
}

func TestStressCommand_BadConfig(t *testing.T) {
	resetGlobalFlags()
	resetStressFlags()
	stressSurvival = 2

	_, err := captureOutput(t, func() error { return runStress(context.Background()) })
	require.Error(t, err)

	resetStressFlags()
	stressSegmentEntries = 1
	_, err = captureOutput(t, func() error { return runStress(context.Background()) })
	require.Error(t, err)
}

func TestStressCommand_Canceled(t *testing.T) {
	resetGlobalFlags()
	resetStressFlags()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := captureOutput(t, func() error { return runStress(ctx) })
	require.ErrorIs(t, err, context.Canceled)
}
