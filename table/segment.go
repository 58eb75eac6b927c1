package table

// Segment is a contiguous run of entries that a space grows and shrinks by.
type Segment struct {
	Start uint32 `json:"start"`
	Count uint32 `json:"count"`
}

// End returns the first index after s.
func (s Segment) End() uint32 {
	return s.Start + s.Count
}

// Contains reports whether index lies in s.
func (s Segment) Contains(index uint32) bool {
	return index >= s.Start && index < s.End()
}

// Number returns the position of s in the table.
func (s Segment) Number() uint32 {
	return s.Start / s.Count
}

// insertSegment adds seg to segs keeping them sorted by Start.
func insertSegment(segs []Segment, seg Segment) []Segment {
	i := len(segs)
	for i > 0 && segs[i-1].Start > seg.Start {
		i--
	}
	segs = append(segs, Segment{})
	copy(segs[i+1:], segs[i:])
	segs[i] = seg
	return segs
}
