package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLayoutCommand(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		encode         bool
		segmentEntries uint32
		json           bool
		wantErr        bool
		wantContain    []string
		wantNotContain []string
	}{
		{
			name:        "overview",
			wantContain: []string{"index << 12 | 0xa5", "code pointer entries", "external pointer entries", "wasm", "external-string"},
		},
		{
			name:        "overview json",
			json:        true,
			wantContain: []string{`"handle_shift": 12`, `"entry_size": 16`, `"entry_size": 8`},
		},
		{
			name:           "decode",
			args:           []string{"0x150a5", "0x10000"},
			wantContain:    []string{"0x000150a5  index 21 (segment 0, offset 21)", "0x00010000", "not a handle"},
			wantNotContain: []string{"0x00000150a5", "0x0000010000"},
		},
		{
			name:           "decode with small segments",
			args:           []string{"0x150a5"},
			segmentEntries: 8,
			wantContain:    []string{"index 21 (segment 2, offset 5)"},
		},
		{
			name:           "encode",
			args:           []string{"21"},
			encode:         true,
			wantContain:    []string{"0x000150a5"},
			wantNotContain: []string{"0x00000150a5"},
		},
		{
			name:    "encode index zero",
			args:    []string{"0"},
			encode:  true,
			wantErr: true,
		},
		{
			name:    "not a number",
			args:    []string{"handle"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGlobalFlags()
			jsonOut = tt.json
			layoutEncode = tt.encode
			layoutSegmentEntries = tt.segmentEntries

			output, err := captureOutput(t, func() error { return runLayout(tt.args) })
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.json {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
			assertNotContains(t, output, tt.wantNotContain)
		})
	}
}

func TestLayoutCommand_DecodeJSON(t *testing.T) {
	resetGlobalFlags()
	jsonOut = true
	layoutEncode = false
	layoutSegmentEntries = 0

	output, err := captureOutput(t, func() error { return runLayout([]string{"0xa5", "0x150a5", "0"}) })
	require.NoError(t, err)

	var got []decodedHandle
	require.NoError(t, json.Unmarshal([]byte(output), &got))
	require.Len(t, got, 3)
	require.True(t, got[0].Valid, "0xa5 names the null entry")
	require.Zero(t, got[0].Index)
	require.Equal(t, uint32(21), got[1].Index)
	require.False(t, got[2].Valid)
}
