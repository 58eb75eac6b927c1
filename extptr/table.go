package extptr

import (
	"github.com/joshuapare/extable/internal/format"
	"github.com/joshuapare/extable/table"
)

// Table is a table of external pointer entries.
type Table struct {
	*table.Table[Entry, *Entry]
}

// New creates an external pointer table.
func New(store table.Store, cfg *table.Config) (*Table, error) {
	t, err := table.New[Entry, *Entry](store, cfg)
	if err != nil {
		return nil, err
	}
	return &Table{Table: t}, nil
}

// AllocateAndInitializeEntry allocates an entry in s holding addr tagged
// with tag.
func (t *Table) AllocateAndInitializeEntry(s *table.Space, addr table.Address, tag Tag) (table.Handle, error) {
	index, err := t.AllocateEntry(s)
	if err != nil {
		return table.NullHandle, err
	}
	t.At(index).MakeExternalPointerEntry(addr, tag, s.AllocatingBlack())
	return format.EncodeHandle(index), nil
}

// Get returns the address h refers to, expecting tag.
func (t *Table) Get(h table.Handle, tag Tag) table.Address {
	return t.Lookup(h).Get(tag)
}

// Set stores addr tagged with tag in h's entry.
func (t *Table) Set(h table.Handle, addr table.Address, tag Tag) {
	t.LookupForWrite(h).Set(addr, tag)
}

// HasTag reports whether h's entry carries tag. The null handle carries no
// tag.
func (t *Table) HasTag(h table.Handle, tag Tag) bool {
	if h == table.NullHandle {
		return false
	}
	return t.Lookup(h).HasTag(tag)
}
