package extptr

import (
	"sync/atomic"

	"github.com/joshuapare/extable/internal/check"
	"github.com/joshuapare/extable/internal/format"
	"github.com/joshuapare/extable/table"
)

const markingBit = uint64(1) << 62

// Entry is one external pointer table slot.
type Entry struct {
	payload atomic.Uint64
}

// MakeExternalPointerEntry initializes e with addr tagged as tag.
func (e *Entry) MakeExternalPointerEntry(addr table.Address, tag Tag, markAsAlive bool) {
	if addr&format.TagMask != 0 {
		check.Fail("extptr: address %#x is not canonical", addr)
	}
	if !tag.Valid() {
		check.Fail("extptr: invalid tag %#x", uint64(tag))
	}

	w := addr | uint64(tag)
	if markAsAlive {
		w |= markingBit
	}
	e.payload.Store(w)
}

// Get returns the address with tag removed. The tag is XORed out, so any
// other tag leaves bits set above the address.
func (e *Entry) Get(tag Tag) table.Address {
	w := e.payload.Load()
	if !format.Word(w).IsLive() {
		check.Fail("extptr: read of non-live entry (%#x)", w)
	}
	return (w ^ uint64(tag)) &^ markingBit
}

// Set replaces the address and tag, keeping the marking bit.
func (e *Entry) Set(addr table.Address, tag Tag) {
	if addr&format.TagMask != 0 {
		check.Fail("extptr: address %#x is not canonical", addr)
	}
	if !tag.Valid() {
		check.Fail("extptr: invalid tag %#x", uint64(tag))
	}
	for {
		old := e.payload.Load()
		if !format.Word(old).IsLive() {
			check.Fail("extptr: write to non-live entry (%#x)", old)
		}
		if e.payload.CompareAndSwap(old, addr|uint64(tag)|old&markingBit) {
			return
		}
	}
}

// HasTag reports whether e is live and tagged with tag.
func (e *Entry) HasTag(tag Tag) bool {
	w := e.payload.Load()
	return format.Word(w).IsLive() && w&tagBits == uint64(tag)
}

// Tag returns the tag of a live entry.
func (e *Entry) Tag() Tag {
	w := e.payload.Load()
	if !format.Word(w).IsLive() {
		check.Fail("extptr: read of non-live entry (%#x)", w)
	}
	return Tag(w & tagBits)
}

// Word returns the entry word.
func (e *Entry) Word() format.Word {
	return format.Word(e.payload.Load())
}

// MakeFreelistEntry turns e into a freelist node.
func (e *Entry) MakeFreelistEntry(next uint32) {
	e.payload.Store(uint64(format.FreeWord(next)))
}

// MakeEvacuationEntry reserves e for an evacuating entry.
func (e *Entry) MakeEvacuationEntry(record uint32) {
	e.payload.Store(uint64(format.EvacuationWord(record)))
}

// Mark sets the marking bit and reports whether this call set it.
func (e *Entry) Mark() bool {
	for {
		old := e.payload.Load()
		if !format.Word(old).IsLive() {
			check.Fail("extptr: mark of non-live entry (%#x)", old)
		}
		if old&markingBit != 0 {
			return false
		}
		if e.payload.CompareAndSwap(old, old|markingBit) {
			return true
		}
	}
}

// Unmark clears the marking bit.
func (e *Entry) Unmark() {
	for {
		old := e.payload.Load()
		if old&markingBit == 0 || e.payload.CompareAndSwap(old, old&^markingBit) {
			return
		}
	}
}

// IsMarked reports whether e is live and marked.
func (e *Entry) IsMarked() bool {
	w := format.Word(e.payload.Load())
	return w.IsLive() && w.Has(markingBit)
}

// MoveFrom copies src into e and marks it.
func (e *Entry) MoveFrom(src *Entry) {
	e.payload.Store(src.payload.Load() | markingBit)
}

// Content returns the tagged address without the marking bit.
func (e *Entry) Content() (uint64, uint64) {
	return e.payload.Load() &^ markingBit, 0
}
