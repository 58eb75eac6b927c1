package table

import "github.com/cockroachdb/errors"

var (
	// ErrOutOfMemory indicates the table could not grow: the reservation is
	// exhausted or the store failed to commit a segment. Callers should treat
	// it as fatal.
	ErrOutOfMemory = errors.New("table: out of memory")

	// ErrBadConfig indicates an unusable Config.
	ErrBadConfig = errors.New("table: bad config")

	// ErrCorrupt indicates Verify found a broken freelist or segment list.
	ErrCorrupt = errors.New("table: corrupt space")

	// ErrBadThreshold indicates StartCompactingAt was given a threshold
	// outside the space.
	ErrBadThreshold = errors.New("table: bad evacuation threshold")
)
