//go:build linux

package affinity

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const supported = true

func pin(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	// pid 0 is the calling thread.
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "failed to pin thread to cpu %d", cpu)
	}
	return nil
}
