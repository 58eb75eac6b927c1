// Package table implements the sandboxed external entity table.
//
// # Overview
//
// Objects that live inside a sandboxed heap never store raw native addresses.
// Instead they store a Handle: a 32-bit value that names a slot in a Table.
// The Table is the only place the real addresses are kept, so resolving a
// handle always goes through it.
//
// The package is generic over the entry type. Concrete tables plug in their
// entry layout through the Entry constraint:
//
//   - codeptr: code object plus entrypoint XOR tag (two words)
//   - extptr: tagged external pointer (one word)
//
// # Layout
//
// The index range is split into fixed-size Segments. Segment 0 holds the null
// entry and is never handed out. Every other segment belongs to exactly one
// Space, which owns a lock-free freelist over the free slots of its segments.
//
//	index:   0      SegmentEntries   2*SegmentEntries ...
//	        [null  ][space A       ][space B         ][space A ...
//
// A handle is index<<12 | 0xA5. The null handle is 0.
//
// # Allocation
//
// AllocateEntry pops the freelist head with a CAS on a versioned head word.
// When the freelist is empty the space grows by one segment under its mutex,
// links the new slots and retries. ErrOutOfMemory is only returned when the
// reservation is exhausted or the store fails to commit.
//
// # Marking and compaction
//
// A GC driver calls, once per cycle:
//
//	t.StartCompactingIfNeeded(space)   // marking start, single-threaded
//	t.Mark(space, h, field)            // concurrently, per live handle
//	t.FinishCompaction(space, sink)    // sweep, exclusive access
//
// When compacting, marking a handle at or above the evacuation threshold
// reserves a free slot below it and turns that slot into an evacuation entry
// that remembers the owning HandleField. The source entry is left alone, so
// readers keep working through the old handle until sweep. Sweep moves the
// content, rewrites the field and poisons the source. Trailing segments that
// end up completely free are returned to the store.
//
// Compaction aborts instead of failing: growth during compaction, an ordinary
// allocation inside the evacuation area, or a lack of free slots below the
// threshold all leave the space intact and only skip reclamation this cycle.
//
// # Thread Safety
//
// AllocateEntry, Mark, FreeEntry and the entry accessors are safe for
// concurrent use. StartCompactingIfNeeded, FinishCompaction,
// IterateActiveEntriesIn, Verify and Fingerprint require the caller to
// quiesce mutators and markers.
package table
