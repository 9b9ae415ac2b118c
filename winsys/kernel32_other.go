//go:build !windows

package winsys

import "github.com/pkg/errors"

// ErrUnsupported is returned by every Kernel32 method off Windows.
var ErrUnsupported = errors.New("winsys: not supported on this platform")

// Kernel32 is a stub so the injector builds everywhere.
type Kernel32 struct{}

func (Kernel32) OpenProcess(uint32, uint32) (Handle, error)       { return 0, ErrUnsupported }
func (Kernel32) VirtualAllocEx(Handle, uintptr) (uintptr, error)  { return 0, ErrUnsupported }
func (Kernel32) WriteProcessMemory(Handle, uintptr, []byte) error { return ErrUnsupported }
func (Kernel32) VirtualFreeEx(Handle, uintptr) error              { return ErrUnsupported }
func (Kernel32) LoaderAddress() (uintptr, error)                  { return 0, ErrUnsupported }
func (Kernel32) CreateRemoteThread(Handle, uintptr, uintptr) (Handle, error) {
	return 0, ErrUnsupported
}
func (Kernel32) WaitForSingleObject(Handle, uint32) (uint32, error) {
	return WAIT_FAILED, ErrUnsupported
}
func (Kernel32) GetExitCodeThread(Handle) (uint32, error) { return 0, ErrUnsupported }
func (Kernel32) CloseHandle(Handle) error                 { return ErrUnsupported }
