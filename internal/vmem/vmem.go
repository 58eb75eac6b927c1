// Package vmem provides page-granularity backing stores for entry tables.
//
// A store hands out one contiguous reservation up front and then commits or
// decommits whole segments inside it. Decommitted memory is returned to the
// OS; on the mapped stores any later access faults instead of reading stale
// content.
package vmem

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/extable/internal/buf"
	"github.com/joshuapare/extable/internal/format"
)

var (
	// ErrReserved indicates Reserve was called twice on the same store.
	ErrReserved = errors.New("vmem: region already reserved")

	// ErrNotReserved indicates an operation on a store with no reservation.
	ErrNotReserved = errors.New("vmem: no region reserved")

	// ErrUnaligned indicates a commit or decommit range not aligned to the
	// store granularity.
	ErrUnaligned = errors.New("vmem: range not aligned to granularity")
)

// New returns the platform's mapped store, or a heap store where virtual
// memory reservation is unavailable.
func New() Store {
	return newPlatform()
}

// Store is the set of operations every backing store implements.
type Store interface {
	Reserve(size int) ([]byte, error)
	Commit(off, size int) error
	Decommit(off, size int) error
	Granularity() int
	Close() error
}

// checkRange validates [off, off+size) against a reservation of total bytes
// and the store granularity, a power of two.
func checkRange(total, off, size, granularity int) error {
	if total == 0 {
		return ErrNotReserved
	}
	if _, err := buf.CheckRange(total, off, size); err != nil {
		return errors.Wrap(err, "vmem")
	}
	if !format.IsAligned(off, granularity) || !format.IsAligned(size, granularity) {
		return errors.Wrapf(ErrUnaligned, "off=%d size=%d granularity=%d", off, size, granularity)
	}
	return nil
}
