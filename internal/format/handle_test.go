package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Handle_RoundTrip(t *testing.T) {
	for _, i := range []uint32{1, 2, 7, 8, 4095, 4096, MaxEntries / 2, MaxEntries - 1} {
		h := EncodeHandle(i)
		got, ok := DecodeHandle(h)
		require.True(t, ok, "index %d", i)
		require.Equal(t, i, got)
		require.NotEqual(t, NullHandle, h)
	}
}

func Test_Handle_RoundTripAllIndicesInSmallTable(t *testing.T) {
	for i := uint32(1); i < 1<<14; i++ {
		got, ok := DecodeHandle(EncodeHandle(i))
		if !ok || got != i {
			t.Fatalf("index %d decoded to %d (ok=%v)", i, got, ok)
		}
	}
}

func Test_Handle_NullDecodesToNoEntry(t *testing.T) {
	idx, ok := DecodeHandle(NullHandle)
	require.False(t, ok)
	require.Equal(t, NoEntry, idx)
	require.False(t, IsValidHandle(NullHandle))
}

func Test_Handle_WrongMarkerRejected(t *testing.T) {
	tests := []struct {
		name string
		raw  uint32
	}{
		{"aligned pointer", 0x10000},
		{"tagged pointer", 0x10001},
		{"marker off by one", 5<<HandleShift | (HandleMarker + 2)},
		{"marker without index bits", HandleMarker ^ 0x100},
		{"all ones", 0xffffffff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := DecodeHandle(Handle(tt.raw))
			require.False(t, ok)
			require.Equal(t, NoEntry, idx)
		})
	}
}

func Test_Handle_MarkerIsOdd(t *testing.T) {
	require.Equal(t, 1, HandleMarker&1)
	require.Less(t, HandleMarker, 1<<HandleShift)
}
