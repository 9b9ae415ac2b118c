//go:build windows

package winsys

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var (
	ModKernel32 = windows.NewLazySystemDLL("kernel32.dll")

	ProcVirtualAllocEx     = ModKernel32.NewProc("VirtualAllocEx")
	ProcVirtualFreeEx      = ModKernel32.NewProc("VirtualFreeEx")
	ProcCreateRemoteThread = ModKernel32.NewProc("CreateRemoteThread")
	ProcGetExitCodeThread  = ModKernel32.NewProc("GetExitCodeThread")
	ProcLoadLibraryW       = ModKernel32.NewProc("LoadLibraryW")
)

// Kernel32 performs the remote process operations against the real OS.
type Kernel32 struct{}

func (Kernel32) OpenProcess(access, pid uint32) (Handle, error) {
	h, err := windows.OpenProcess(access, false, pid)
	if err != nil {
		return 0, err
	}
	return Handle(h), nil
}

func (Kernel32) VirtualAllocEx(proc Handle, size uintptr) (uintptr, error) {
	addr, _, lastErr := ProcVirtualAllocEx.Call(
		uintptr(proc),
		0,
		size,
		MEM_COMMIT|MEM_RESERVE,
		PAGE_READWRITE)
	if addr == 0 {
		return 0, lastErr
	}
	return addr, nil
}

func (Kernel32) WriteProcessMemory(proc Handle, addr uintptr, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var written uintptr
	return windows.WriteProcessMemory(windows.Handle(proc), addr, &data[0], uintptr(len(data)), &written)
}

func (Kernel32) VirtualFreeEx(proc Handle, addr uintptr) error {
	ok, _, lastErr := ProcVirtualFreeEx.Call(uintptr(proc), addr, 0, MEM_RELEASE)
	if ok == 0 {
		return lastErr
	}
	return nil
}

// LoaderAddress returns LoadLibraryW as mapped in this process. kernel32 is
// mapped at the same base in every process of a session, so the address is
// valid in the target too.
func (Kernel32) LoaderAddress() (uintptr, error) {
	if err := ProcLoadLibraryW.Find(); err != nil {
		return 0, errors.Wrap(err, "resolve LoadLibraryW")
	}
	return ProcLoadLibraryW.Addr(), nil
}

func (Kernel32) CreateRemoteThread(proc Handle, start, arg uintptr) (Handle, error) {
	var tid uint32
	h, _, lastErr := ProcCreateRemoteThread.Call(
		uintptr(proc),
		0,
		0,
		start,
		arg,
		0,
		uintptr(unsafe.Pointer(&tid)))
	if h == 0 {
		return 0, lastErr
	}
	return Handle(h), nil
}

func (Kernel32) WaitForSingleObject(h Handle, ms uint32) (uint32, error) {
	return windows.WaitForSingleObject(windows.Handle(h), ms)
}

func (Kernel32) GetExitCodeThread(h Handle) (uint32, error) {
	var code uint32
	ok, _, lastErr := ProcGetExitCodeThread.Call(uintptr(h), uintptr(unsafe.Pointer(&code)))
	if ok == 0 {
		return 0, lastErr
	}
	return code, nil
}

func (Kernel32) CloseHandle(h Handle) error {
	return windows.CloseHandle(windows.Handle(h))
}
