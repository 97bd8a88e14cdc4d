// Package affinity pins the calling OS thread to a logical CPU, on platforms that support it.
//
// Pinning is only a performance hint: callers should log errors and carry on.
package affinity

import (
	"runtime"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned by Pin on platforms without thread affinity control.
var ErrUnsupported = errors.New("thread affinity not supported on " + runtime.GOOS)

// Supported reports whether Pin can have any effect on this platform.
func Supported() bool {
	return supported
}

// Pin the calling OS thread to the logical CPU cpu, modulo the number of CPUs available.
//
// The caller must have called runtime.LockOSThread, otherwise the goroutine may migrate to
// another (unpinned) thread right after.
func Pin(cpu int) error {
	if cpu < 0 {
		return errors.Errorf("invalid cpu %d for thread affinity", cpu)
	}
	return pin(cpu % runtime.NumCPU())
}
