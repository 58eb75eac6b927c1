//go:build windows

package vmem

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"

	"github.com/joshuapare/extable/internal/format"
)

// Mapped is a Store backed by a VirtualAlloc reservation.
type Mapped struct {
	base      uintptr
	data      []byte
	pageSize  int
	committed int
}

func newPlatform() Store {
	return NewMapped()
}

// NewMapped returns an unreserved mapped store.
func NewMapped() *Mapped {
	return &Mapped{pageSize: windows.Getpagesize()}
}

// Reserve reserves size bytes (rounded up to pages) of address space.
func (m *Mapped) Reserve(size int) ([]byte, error) {
	if m.data != nil {
		return nil, ErrReserved
	}
	if size <= 0 {
		return nil, errors.Newf("vmem: invalid reservation size %d", size)
	}
	size = format.AlignUp(size, m.pageSize)
	base, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, errors.Wrapf(err, "vmem: reserve %d bytes", size)
	}
	m.base = base
	m.data = unsafe.Slice((*byte)(unsafe.Pointer(base)), size)
	return m.data, nil
}

// Commit backs [off, off+size) with read-write pages.
func (m *Mapped) Commit(off, size int) error {
	if err := checkRange(len(m.data), off, size, m.pageSize); err != nil {
		return err
	}
	_, err := windows.VirtualAlloc(m.base+uintptr(off), uintptr(size), windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return errors.Wrapf(err, "vmem: commit off=%d size=%d", off, size)
	}
	m.committed += size
	return nil
}

// Decommit returns the pages of [off, off+size) to the OS.
func (m *Mapped) Decommit(off, size int) error {
	if err := checkRange(len(m.data), off, size, m.pageSize); err != nil {
		return err
	}
	if err := windows.VirtualFree(m.base+uintptr(off), uintptr(size), windows.MEM_DECOMMIT); err != nil {
		return errors.Wrapf(err, "vmem: decommit off=%d size=%d", off, size)
	}
	m.committed -= size
	return nil
}

// Granularity returns the OS page size.
func (m *Mapped) Granularity() int { return m.pageSize }

// Committed returns the number of bytes currently committed.
func (m *Mapped) Committed() int { return m.committed }

// Close releases the reservation.
func (m *Mapped) Close() error {
	if m.data == nil {
		return nil
	}
	err := windows.VirtualFree(m.base, 0, windows.MEM_RELEASE)
	m.base = 0
	m.data = nil
	m.committed = 0
	return err
}
