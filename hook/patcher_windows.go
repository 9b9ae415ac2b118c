//go:build windows && amd64

package hook

import (
	"syscall"

	"github.com/stavinski/winhook"
	"golang.org/x/sys/windows"
)

var procFlushInstructionCache = windows.NewLazySystemDLL("kernel32.dll").NewProc("FlushInstructionCache")

type winhookPatcher struct{}

// DefaultPatcher returns the in-process patcher backed by winhook.
func DefaultPatcher() Patcher {
	return winhookPatcher{}
}

func (winhookPatcher) ReadCode(addr uintptr, n int) ([]byte, error) {
	buf := make([]byte, n)
	var read uintptr
	err := windows.ReadProcessMemory(windows.CurrentProcess(), addr, &buf[0], uintptr(n), &read)
	return buf[:read], err
}

func (winhookPatcher) Install(target, detour uintptr, stealLen int) (uintptr, error) {
	return winhook.InstallHook64(target, detour, stealLen)
}

func (winhookPatcher) Restore(addr uintptr, code []byte) error {
	if len(code) == 0 {
		return nil
	}
	var old uint32
	if err := windows.VirtualProtect(addr, uintptr(len(code)), windows.PAGE_EXECUTE_READWRITE, &old); err != nil {
		return err
	}
	var written uintptr
	err := windows.WriteProcessMemory(windows.CurrentProcess(), addr, &code[0], uintptr(len(code)), &written)
	windows.VirtualProtect(addr, uintptr(len(code)), old, &old)
	if err != nil {
		return err
	}
	procFlushInstructionCache.Call(uintptr(windows.CurrentProcess()), addr, uintptr(len(code)))
	return nil
}

func (winhookPatcher) Call(fn uintptr, args ...uintptr) uintptr {
	r, _, _ := syscall.SyscallN(fn, args...)
	return r
}
