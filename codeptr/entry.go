package codeptr

import (
	"sync/atomic"

	"github.com/joshuapare/extable/internal/check"
	"github.com/joshuapare/extable/internal/format"
	"github.com/joshuapare/extable/table"
)

// markingBit lives in the code word. Code objects are at least two-byte
// aligned, so bit 0 is always clear in a real address.
const markingBit = uint64(1)

// Entry is one code pointer table slot.
type Entry struct {
	code       atomic.Uint64
	entrypoint atomic.Uint64
}

// MakeCodePointerEntry initializes e with a code object and its entrypoint.
// markAsAlive pre-marks the entry, as allocation does while marking runs.
func (e *Entry) MakeCodePointerEntry(code, entrypoint table.Address, tag Tag, markAsAlive bool) {
	if code&markingBit != 0 {
		check.Fail("codeptr: code object %#x has the marking bit set", code)
	}
	if code&format.TagMask != 0 {
		check.Fail("codeptr: code object %#x is not canonical", code)
	}
	if entrypoint&format.TagMask != 0 {
		check.Fail("codeptr: entrypoint %#x overlaps the tag bits", entrypoint)
	}

	word := code
	if markAsAlive {
		word |= markingBit
	}
	e.entrypoint.Store(entrypoint ^ uint64(tag))
	e.code.Store(word)
}

// Entrypoint decodes the entrypoint with tag.
func (e *Entry) Entrypoint(tag Tag) table.Address {
	e.mustBeLive()
	return e.entrypoint.Load() ^ uint64(tag)
}

// SetEntrypoint stores value encoded with tag.
func (e *Entry) SetEntrypoint(value table.Address, tag Tag) {
	if value&format.TagMask != 0 {
		check.Fail("codeptr: entrypoint %#x overlaps the tag bits", value)
	}
	e.mustBeLive()
	e.entrypoint.Store(value ^ uint64(tag))
}

// CodeObject returns the code object address.
func (e *Entry) CodeObject() table.Address {
	w := e.code.Load()
	if !format.Word(w).IsLive() {
		check.Fail("codeptr: read of non-live entry (%#x)", w)
	}
	return w &^ markingBit
}

// SetCodeObject replaces the code object, keeping the marking bit as it is.
func (e *Entry) SetCodeObject(value table.Address) {
	if value&markingBit != 0 {
		check.Fail("codeptr: code object %#x has the marking bit set", value)
	}
	if value&format.TagMask != 0 {
		check.Fail("codeptr: code object %#x is not canonical", value)
	}
	for {
		old := e.code.Load()
		if !format.Word(old).IsLive() {
			check.Fail("codeptr: write to non-live entry (%#x)", old)
		}
		next := value | old&markingBit
		if e.code.CompareAndSwap(old, next) {
			return
		}
	}
}

// Word returns the primary word.
func (e *Entry) Word() format.Word {
	return format.Word(e.code.Load())
}

// MakeFreelistEntry turns e into a freelist node.
func (e *Entry) MakeFreelistEntry(next uint32) {
	e.entrypoint.Store(0)
	e.code.Store(uint64(format.FreeWord(next)))
}

// MakeEvacuationEntry reserves e for an evacuating entry.
func (e *Entry) MakeEvacuationEntry(record uint32) {
	e.entrypoint.Store(0)
	e.code.Store(uint64(format.EvacuationWord(record)))
}

// Mark sets the marking bit and reports whether this call set it.
func (e *Entry) Mark() bool {
	for {
		old := e.code.Load()
		if !format.Word(old).IsLive() {
			check.Fail("codeptr: mark of non-live entry (%#x)", old)
		}
		if old&markingBit != 0 {
			return false
		}
		if e.code.CompareAndSwap(old, old|markingBit) {
			return true
		}
	}
}

// Unmark clears the marking bit.
func (e *Entry) Unmark() {
	for {
		old := e.code.Load()
		if !format.Word(old).IsLive() {
			check.Fail("codeptr: unmark of non-live entry (%#x)", old)
		}
		if old&markingBit == 0 || e.code.CompareAndSwap(old, old&^markingBit) {
			return
		}
	}
}

// IsMarked reports whether e is live and marked.
func (e *Entry) IsMarked() bool {
	w := format.Word(e.code.Load())
	return w.IsLive() && w.Has(markingBit)
}

// MoveFrom copies src into e. The moved entry is marked.
func (e *Entry) MoveFrom(src *Entry) {
	e.entrypoint.Store(src.entrypoint.Load())
	e.code.Store(src.code.Load() | markingBit)
}

// Content returns the code object and the encoded entrypoint.
func (e *Entry) Content() (uint64, uint64) {
	return e.code.Load() &^ markingBit, e.entrypoint.Load()
}

func (e *Entry) mustBeLive() {
	w := format.Word(e.code.Load())
	if !w.IsLive() {
		check.Fail("codeptr: access to non-live entry (%#x)", uint64(w))
	}
}
