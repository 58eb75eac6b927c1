//go:build linux || darwin || freebsd

package vmem

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"

	"github.com/joshuapare/extable/internal/format"
)

// Mapped is a Store backed by an anonymous private mapping. The whole
// reservation starts inaccessible; Commit opens segments read-write and
// Decommit hands their pages back and closes them again.
type Mapped struct {
	data      []byte
	pageSize  int
	committed int
}

func newPlatform() Store {
	return NewMapped()
}

// NewMapped returns an unreserved mapped store.
func NewMapped() *Mapped {
	return &Mapped{pageSize: unix.Getpagesize()}
}

// Reserve maps size bytes (rounded up to pages) with no access.
func (m *Mapped) Reserve(size int) ([]byte, error) {
	if m.data != nil {
		return nil, ErrReserved
	}
	if size <= 0 {
		return nil, errors.Newf("vmem: invalid reservation size %d", size)
	}
	size = format.AlignUp(size, m.pageSize)
	data, err := unix.Mmap(-1, 0, size, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrapf(err, "vmem: reserve %d bytes", size)
	}
	m.data = data
	return data, nil
}

// Commit makes [off, off+size) readable and writable.
func (m *Mapped) Commit(off, size int) error {
	if err := checkRange(len(m.data), off, size, m.pageSize); err != nil {
		return err
	}
	if err := unix.Mprotect(m.data[off:off+size], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return errors.Wrapf(err, "vmem: commit off=%d size=%d", off, size)
	}
	m.committed += size
	return nil
}

// Decommit releases the pages of [off, off+size) and makes them
// inaccessible. A later Commit sees zeroed memory.
func (m *Mapped) Decommit(off, size int) error {
	if err := checkRange(len(m.data), off, size, m.pageSize); err != nil {
		return err
	}
	region := m.data[off : off+size]
	if err := unix.Madvise(region, unix.MADV_DONTNEED); err != nil {
		return errors.Wrapf(err, "vmem: madvise off=%d size=%d", off, size)
	}
	if err := unix.Mprotect(region, unix.PROT_NONE); err != nil {
		return errors.Wrapf(err, "vmem: decommit off=%d size=%d", off, size)
	}
	m.committed -= size
	return nil
}

// Granularity returns the OS page size.
func (m *Mapped) Granularity() int { return m.pageSize }

// Committed returns the number of bytes currently committed.
func (m *Mapped) Committed() int { return m.committed }

// Close unmaps the reservation.
func (m *Mapped) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	m.committed = 0
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
