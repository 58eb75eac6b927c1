package codeptr

import (
	"github.com/joshuapare/extable/internal/format"
	"github.com/joshuapare/extable/table"
)

// Table is a table of code pointer entries.
type Table struct {
	*table.Table[Entry, *Entry]
}

// New creates a code pointer table. Nil arguments select the defaults of
// table.New.
func New(store table.Store, cfg *table.Config) (*Table, error) {
	t, err := table.New[Entry, *Entry](store, cfg)
	if err != nil {
		return nil, err
	}
	return &Table{Table: t}, nil
}

// AllocateAndInitializeEntry allocates an entry in s for code and its
// entrypoint and returns its handle.
func (t *Table) AllocateAndInitializeEntry(s *table.Space, code, entrypoint table.Address, tag Tag) (table.Handle, error) {
	index, err := t.AllocateEntry(s)
	if err != nil {
		return table.NullHandle, err
	}
	t.At(index).MakeCodePointerEntry(code, entrypoint, tag, s.AllocatingBlack())
	return format.EncodeHandle(index), nil
}

// GetEntrypoint returns the entrypoint of h decoded with tag.
func (t *Table) GetEntrypoint(h table.Handle, tag Tag) table.Address {
	return t.Lookup(h).Entrypoint(tag)
}

// SetEntrypoint stores value as the entrypoint of h.
func (t *Table) SetEntrypoint(h table.Handle, value table.Address, tag Tag) {
	t.LookupForWrite(h).SetEntrypoint(value, tag)
}

// GetCodeObject returns the code object of h.
func (t *Table) GetCodeObject(h table.Handle) table.Address {
	return t.Lookup(h).CodeObject()
}

// SetCodeObject replaces the code object of h.
func (t *Table) SetCodeObject(h table.Handle, value table.Address) {
	t.LookupForWrite(h).SetCodeObject(value)
}
