//go:build !linux

package affinity

const supported = false

func pin(int) error {
	return ErrUnsupported
}
