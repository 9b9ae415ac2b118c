//go:build !(windows && amd64)

package hook

import "github.com/pkg/errors"

var errUnsupported = errors.New("hook: trampoline hooks need windows/amd64")

type unsupportedPatcher struct{}

// DefaultPatcher returns a patcher that fails on this platform.
func DefaultPatcher() Patcher {
	return unsupportedPatcher{}
}

func (unsupportedPatcher) ReadCode(uintptr, int) ([]byte, error) {
	return nil, errUnsupported
}

func (unsupportedPatcher) Install(uintptr, uintptr, int) (uintptr, error) {
	return 0, errUnsupported
}

func (unsupportedPatcher) Restore(uintptr, []byte) error {
	return errUnsupported
}

func (unsupportedPatcher) Call(uintptr, ...uintptr) uintptr {
	return 0
}
