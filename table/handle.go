package table

import (
	"sync/atomic"

	"github.com/joshuapare/extable/internal/format"
)

// Handle is the value sandboxed objects store instead of an address.
type Handle = format.Handle

// Address is a native address held by an entry.
type Address = uint64

// NullHandle refers to no entry.
const NullHandle = format.NullHandle

// EncodeHandle turns an entry index into a handle.
func EncodeHandle(index uint32) Handle { return format.EncodeHandle(index) }

// DecodeHandle returns the index h refers to, or (format.NoEntry, false) for
// the null handle and for values without the handle marker.
func DecodeHandle(h Handle) (uint32, bool) { return format.DecodeHandle(h) }

// HandleField is the slot inside a sandboxed object that holds a handle.
// Every allocated entry is owned by exactly one field; compaction rewrites the
// field when it moves the entry.
type HandleField struct {
	h atomic.Uint32
}

// Load returns the handle currently stored in f.
func (f *HandleField) Load() Handle {
	return Handle(f.h.Load())
}

// Store writes h into f.
func (f *HandleField) Store(h Handle) {
	f.h.Store(uint32(h))
}
