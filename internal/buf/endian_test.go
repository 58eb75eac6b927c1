package buf

import "testing"

func TestEndianHelpers(t *testing.T) {
	data := []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}

	if got := U64LE(data); got != 0xefcdab8967452301 {
		t.Fatalf("U64LE = 0x%x, want 0xefcdab8967452301", got)
	}

	out := make([]byte, 8)
	PutU64LE(out, 0xefcdab8967452301)
	for i := range data {
		if out[i] != data[i] {
			t.Fatalf("PutU64LE byte %d = 0x%x, want 0x%x", i, out[i], data[i])
		}
	}

	short := []byte{0xAA}
	if U64LE(short) != 0 {
		t.Fatalf("short reads should return 0")
	}
	PutU64LE(short, 1)
	if short[0] != 0xAA {
		t.Fatalf("short writes should be ignored")
	}
}
