package format

// Word is an entry's primary word viewed as a bit field. Entry types keep
// their content in it when live; the free and evacuation states are encoded
// here so every entry type shares them.
type Word uint64

// FreeWord returns the primary word of a freelist node pointing at next.
func FreeWord(next uint32) Word {
	return Word(FreeEntryTag | uint64(next))
}

// EvacuationWord returns the primary word of an evacuation entry whose
// record sits at position record.
func EvacuationWord(record uint32) Word {
	return Word(EvacuationEntryTag | uint64(record))
}

// IsFree reports whether w is a freelist node.
func (w Word) IsFree() bool {
	return uint64(w)&stateMask == FreeEntryTag
}

// IsEvacuation reports whether w is an evacuation entry.
func (w Word) IsEvacuation() bool {
	return uint64(w)&stateMask == EvacuationEntryTag
}

// IsLive reports whether w holds content.
func (w Word) IsLive() bool {
	return !w.IsFree() && !w.IsEvacuation()
}

// Payload returns the index stored in a free or evacuation word.
func (w Word) Payload() uint32 {
	return uint32(uint64(w) & payloadMask)
}

// Has reports whether every bit of bits is set in w.
func (w Word) Has(bits uint64) bool {
	return uint64(w)&bits == bits
}

// With returns w with bits set.
func (w Word) With(bits uint64) Word {
	return Word(uint64(w) | bits)
}

// Without returns w with bits cleared.
func (w Word) Without(bits uint64) Word {
	return Word(uint64(w) &^ bits)
}
