// Package codeptr is the code pointer table: handles from sandboxed objects
// to compiled code.
//
// Each entry holds two words:
//
//	primary:   code object address | marking bit (bit 0)
//	secondary: entrypoint address XOR entrypoint tag
//
// Reading an entrypoint XORs the tag back out. A caller that passes the
// wrong tag gets an address with bits set in the top 16, which is not
// canonical and faults on use, instead of a plausible address of another
// kind of code.
package codeptr
