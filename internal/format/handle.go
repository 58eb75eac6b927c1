package format

// Handle is the opaque value stored inside sandboxed memory in place of a
// raw address.
type Handle uint32

// NullHandle refers to no entry.
const NullHandle Handle = 0

// EncodeHandle turns an entry index into a handle.
func EncodeHandle(index uint32) Handle {
	return Handle(index<<HandleShift | HandleMarker)
}

// DecodeHandle returns the entry index h refers to. The null handle yields
// (NoEntry, false). A value without the exact marker is not a handle and also
// yields false; its bits are never interpreted as an index.
func DecodeHandle(h Handle) (uint32, bool) {
	if h == NullHandle || uint32(h)&handleMarkerMask != HandleMarker {
		return NoEntry, false
	}
	return uint32(h) >> HandleShift, true
}

// IsValidHandle reports whether h carries the handle marker.
func IsValidHandle(h Handle) bool {
	_, ok := DecodeHandle(h)
	return ok
}
