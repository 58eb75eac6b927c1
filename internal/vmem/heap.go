package vmem

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

// heapGranularity keeps committed ranges word aligned so entries can be
// accessed atomically.
const heapGranularity = 8

// Heap is a Store backed by ordinary Go memory. It never faults on
// decommitted ranges; it zero-fills them instead. Tests use it for tables
// with segments smaller than a page.
type Heap struct {
	words []uint64
	mem   []byte

	committed int
}

// NewHeap returns an empty heap store.
func NewHeap() *Heap {
	return &Heap{}
}

// Reserve allocates size bytes, rounded up to whole words.
func (h *Heap) Reserve(size int) ([]byte, error) {
	if h.mem != nil {
		return nil, ErrReserved
	}
	if size <= 0 {
		return nil, errors.Newf("vmem: invalid reservation size %d", size)
	}
	// Back the bytes with uint64s so the base is 8-byte aligned.
	h.words = make([]uint64, (size+7)/8)
	h.mem = unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(h.words))), size)
	return h.mem, nil
}

// Commit makes [off, off+size) usable.
func (h *Heap) Commit(off, size int) error {
	if err := checkRange(len(h.mem), off, size, heapGranularity); err != nil {
		return err
	}
	h.committed += size
	return nil
}

// Decommit zero-fills [off, off+size).
func (h *Heap) Decommit(off, size int) error {
	if err := checkRange(len(h.mem), off, size, heapGranularity); err != nil {
		return err
	}
	clear(h.mem[off : off+size])
	h.committed -= size
	return nil
}

// Granularity returns the smallest commit unit.
func (h *Heap) Granularity() int { return heapGranularity }

// Committed returns the number of bytes currently committed.
func (h *Heap) Committed() int { return h.committed }

// Close drops the reservation.
func (h *Heap) Close() error {
	h.mem = nil
	h.words = nil
	h.committed = 0
	return nil
}
