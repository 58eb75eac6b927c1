package table

import (
	"github.com/cespare/xxhash/v2"

	"github.com/joshuapare/extable/internal/buf"
)

// Fingerprint digests the live content of s. Entries are hashed one by one
// and the sums added, so the result ignores where entries sit and whether
// they are marked: a compaction that moves entries without losing or
// altering any leaves it unchanged. Requires exclusive access.
func (t *Table[E, P]) Fingerprint(s *Space) uint64 {
	var sum uint64
	var b [16]byte
	t.IterateActiveEntriesIn(s, func(_ Handle, e P) {
		primary, secondary := e.Content()
		buf.PutU64LE(b[:8], primary)
		buf.PutU64LE(b[8:], secondary)
		sum += xxhash.Sum64(b[:])
	})
	return sum
}
