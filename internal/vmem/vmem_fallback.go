//go:build !linux && !darwin && !freebsd && !windows

package vmem

func newPlatform() Store {
	return NewHeap()
}
