// Package check turns broken table invariants into hard faults. A table that
// keeps running after one of these fires could hand out a forged address, so
// the checks stay on in every build.
package check

import "github.com/cockroachdb/errors"

// That panics with an assertion failure when cond is false. Its arguments
// are boxed on every call, so hot paths test cond themselves and call Fail.
func That(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.AssertionFailedf(format, args...))
	}
}

// Fail panics with an assertion failure.
func Fail(format string, args ...any) {
	panic(errors.AssertionFailedf(format, args...))
}
