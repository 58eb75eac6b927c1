package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/extable/table"
)

func TestFormatNumber(t *testing.T) {
	require.Equal(t, "0", formatNumber(0))
	require.Equal(t, "999", formatNumber(999))
	require.Equal(t, "1,234,567", formatNumber(1234567))
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{64 << 10, "64.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, formatBytes(tt.in))
	}
}

func TestFormatPercent(t *testing.T) {
	require.Equal(t, "-", formatPercent(1, 0))
	require.Equal(t, "25.0%", formatPercent(1, 4))
}

func TestRenderOccupancy(t *testing.T) {
	resetGlobalFlags()

	seg := func(n uint32, free int) table.SegmentUsage {
		return table.SegmentUsage{Segment: table.Segment{Start: n * 8, Count: 8}, Free: free, Live: 8 - free}
	}
	usage := []table.SegmentUsage{seg(1, 0), seg(2, 4), seg(3, 6), seg(4, 7), seg(5, 8)}

	out := renderOccupancy(usage)
	first := strings.SplitN(out, "\n", 2)[0]
	require.Equal(t, "    1 █▓▒░·", first)
	require.Contains(t, out, "empty")

	require.Equal(t, "(no segments)", renderOccupancy(nil))
}

func TestRenderOccupancy_WrapsRows(t *testing.T) {
	resetGlobalFlags()

	usage := make([]table.SegmentUsage, mapColumns+3)
	for i := range usage {
		usage[i] = table.SegmentUsage{Segment: table.Segment{Start: uint32(i+1) * 8, Count: 8}, Free: 8}
	}
	lines := strings.Split(renderOccupancy(usage), "\n")
	require.Equal(t, "    1 "+strings.Repeat("·", mapColumns), lines[0])
	require.Equal(t, "   33 ···", lines[1])
}

func TestFormatThreshold(t *testing.T) {
	require.Equal(t, "-", formatThreshold(table.NotCompacting))
	require.Equal(t, "40", formatThreshold(40))
}
