package gcsim

import "github.com/cockroachdb/errors"

var (
	// ErrLostContent indicates a surviving object no longer resolves to the
	// code it was created with.
	ErrLostContent = errors.New("gcsim: object content lost")

	// ErrNotCompacted indicates a successful compaction left a survivor in
	// the evacuation area.
	ErrNotCompacted = errors.New("gcsim: survivor left above threshold")
)
