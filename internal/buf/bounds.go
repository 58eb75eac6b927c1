// Package buf contains overflow-safe size arithmetic and little-endian
// helpers used when sizing reservations and hashing entry words.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies a and b, returning ok = false when the result would overflow int.
// This is essential for count * entrySize calculations when sizing a reservation.
func MulOverflowSafe(a, b int) (int, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > 0 && b > 0 {
		if a > math.MaxInt/b {
			return 0, false
		}
	}
	if a < 0 && b < 0 {
		if a < math.MaxInt/b {
			return 0, false
		}
	}
	if a > 0 && b < 0 {
		if b < math.MinInt/a {
			return 0, false
		}
	}
	if a < 0 && b > 0 {
		if a < math.MinInt/b {
			return 0, false
		}
	}
	return a * b, true
}

// CheckRange validates that the byte range [off, off+n) lies inside a region
// of total bytes. Returns the end offset if valid, or an error describing the
// specific failure (overflow or out of bounds).
//
//	end, err := buf.CheckRange(len(region), off, size)
//	if err != nil {
//	    return fmt.Errorf("commit: %w", err)
//	}
func CheckRange(total, off, n int) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset: %d", off)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative length: %d", n)
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok {
		return 0, fmt.Errorf("overflow: offset=%d + size=%d", off, n)
	}
	if end > total {
		return 0, fmt.Errorf("bounds: end=%d > len=%d", end, total)
	}
	return end, nil
}

// SizeOf returns count * elemSize, or ok = false if it overflows or either
// operand is negative.
func SizeOf(count, elemSize int) (int, bool) {
	if count < 0 || elemSize < 0 {
		return 0, false
	}
	return MulOverflowSafe(count, elemSize)
}
