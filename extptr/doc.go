// Package extptr is the external pointer table: handles from sandboxed
// objects to memory the sandbox does not own.
//
// An entry is a single word:
//
//	bit 63      unused (0)
//	bit 62      marking bit
//	bits 48..61 type tag
//	bits 0..47  address
//
// Get strips the tag the caller expects. If the entry carries another tag,
// some tag bits survive and the result is not a canonical address, so type
// confusion faults instead of reading the wrong object.
package extptr
