package table

import "github.com/joshuapare/extable/internal/format"

// Entry is the set of operations the table needs from an entry type E. It is
// satisfied by *E. E must be free of Go pointers: entries live in memory
// obtained from a Store, which the garbage collector does not scan.
//
// The primary word returned by Word decides the state. format.Word.IsFree and
// IsEvacuation identify the two table-owned states; anything else is live
// content owned by the concrete entry type.
type Entry[E any] interface {
	*E

	// Word returns the current primary word.
	Word() format.Word

	// MakeFreelistEntry turns the entry into a freelist node pointing at next.
	MakeFreelistEntry(next uint32)

	// MakeEvacuationEntry reserves the entry as the destination of the
	// evacuation record at position record.
	MakeEvacuationEntry(record uint32)

	// Mark sets the marking bit and reports whether this call set it.
	Mark() bool
	Unmark()
	IsMarked() bool

	// MoveFrom copies src's content into the entry and marks it.
	MoveFrom(src *E)

	// Content returns the live content words with the marking bit cleared.
	Content() (primary, secondary uint64)
}
