// Package gcsim drives a code pointer table the way a VM garbage collector
// does, so the table can be exercised end to end outside a VM.
//
// A Heap owns objects that each hold one handle. Every Cycle:
//
//  1. picks which objects survive (seeded, reproducible),
//  2. turns on black allocation and asks the table whether to compact,
//  3. runs marking workers and allocating mutators concurrently,
//  4. sweeps with FinishCompaction and checks every surviving object
//     against the content it was created with.
//
// A mismatch is reported as ErrLostContent, which always means a table bug.
package gcsim
