package affinity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPin(t *testing.T) {
	assert.Error(t, Pin(-1))

	done := make(chan error)
	go func() {
		// Never unlocked: the pinned thread is terminated when the goroutine exits.
		runtime.LockOSThread()
		done <- Pin(runtime.NumCPU() + 1)
	}()
	err := <-done
	if Supported() {
		// Pinning may still be denied inside restricted containers, so only check the wrapping.
		if err != nil {
			assert.Contains(t, err.Error(), "failed to pin thread")
		}
	} else {
		assert.ErrorIs(t, err, ErrUnsupported)
	}
}
