// Package format holds the bit-level layout shared by every table in the
// repository: the handle wire format and the state tags folded into the
// primary word of an entry. Nothing here allocates or touches memory; the
// table packages build on these encoders.
package format

const (
	// HandleShift is the number of low bits a handle reserves for its marker.
	// An entry index occupies the remaining high bits, which caps a table at
	// MaxEntries entries.
	HandleShift = 12

	// HandleMarker is the exact pattern a handle carries in its low
	// HandleShift bits. It is odd, so a handle is never zero and never looks
	// like an aligned address; any other low-bit pattern is not a handle.
	HandleMarker = 0xA5

	// handleMarkerMask selects the marker bits of a handle.
	handleMarkerMask = 1<<HandleShift - 1

	// MaxEntries is the number of indices the handle encoding can express.
	MaxEntries = 1 << (32 - HandleShift)

	// NoEntry is what DecodeHandle yields for the null handle. Index 0 is the
	// reserved null entry and never holds content.
	NoEntry uint32 = 0

	// DefaultSegmentSize is the byte size of one segment. It is a multiple
	// of every page size the stores support (4 KiB and 16 KiB).
	DefaultSegmentSize = 64 << 10
)

// Entry state tags. They occupy the top 16 bits of an entry's primary word.
// Live content never sets all of those bits: code addresses are canonical
// 48-bit user addresses and external pointer tags stay below bit 62.
const (
	stateShift = 48
	stateMask  = uint64(0xffff) << stateShift

	// FreeEntryTag marks a freelist node; the low 32 bits hold the next
	// free index.
	FreeEntryTag = uint64(0xffff) << stateShift

	// EvacuationEntryTag marks a slot reserved by compaction; the low 32
	// bits hold the position of its record in the space's evacuation list.
	EvacuationEntryTag = uint64(0xfffe) << stateShift

	payloadMask = uint64(1)<<32 - 1
)

// AddressMask keeps the canonical 48-bit address part of a word.
const AddressMask = uint64(1)<<stateShift - 1

// TagMask selects the top 16 bits, where entrypoint and pointer tags live.
const TagMask = stateMask
