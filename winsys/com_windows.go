//go:build windows

package winsys

import (
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// VTableEntry returns slot index of the COM object's virtual table.
func VTableEntry(obj uintptr, index int) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtbl + uintptr(index)*unsafe.Sizeof(uintptr(0))))
}

// ComCall invokes method index on obj with obj as the implicit this.
func ComCall(obj uintptr, index int, args ...uintptr) uintptr {
	all := make([]uintptr, 0, len(args)+1)
	all = append(all, obj)
	all = append(all, args...)
	r, _, _ := syscall.SyscallN(VTableEntry(obj, index), all...)
	return r
}

// HRESULTError turns a failed HRESULT into an error.
func HRESULTError(hr uintptr, op string) error {
	if int32(hr) >= 0 {
		return nil
	}
	return errors.Errorf("%s: HRESULT %#08x", op, uint32(hr))
}

// QueryInterface asks obj for iid.
func QueryInterface(obj uintptr, iid *ole.GUID) (uintptr, error) {
	disp, err := (*ole.IUnknown)(unsafe.Pointer(obj)).QueryInterface(iid)
	if err != nil {
		return 0, err
	}
	return uintptr(unsafe.Pointer(disp)), nil
}

// Release drops one reference to obj. A zero obj is ignored.
func Release(obj uintptr) {
	if obj == 0 {
		return
	}
	(*ole.IUnknown)(unsafe.Pointer(obj)).Release()
}

// ModuleLoaded reports whether name is mapped in this process, without
// loading it or touching its reference count.
func ModuleLoaded(name string) bool {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return false
	}
	var h windows.Handle
	err = windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, p, &h)
	return err == nil && h != 0
}

// ExportAddress returns the address of an export of a module already mapped
// in this process.
func ExportAddress(module, export string) (uintptr, error) {
	p, err := windows.UTF16PtrFromString(module)
	if err != nil {
		return 0, err
	}
	var h windows.Handle
	if err := windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, p, &h); err != nil {
		return 0, errors.Wrapf(err, "%s not loaded", module)
	}
	addr, err := windows.GetProcAddress(h, export)
	if err != nil {
		return 0, errors.Wrapf(err, "%s!%s", module, export)
	}
	return addr, nil
}

// ModuleFileName returns the path of the module containing addr.
func ModuleFileName(addr uintptr) (string, error) {
	var h windows.Handle
	flags := uint32(windows.GET_MODULE_HANDLE_EX_FLAG_FROM_ADDRESS | windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT)
	if err := windows.GetModuleHandleEx(flags, (*uint16)(unsafe.Pointer(addr)), &h); err != nil {
		return "", errors.Wrap(err, "module from address")
	}
	buf := make([]uint16, 32768)
	n, err := windows.GetModuleFileName(h, &buf[0], uint32(len(buf)))
	if err != nil {
		return "", errors.Wrap(err, "module file name")
	}
	return windows.UTF16ToString(buf[:n]), nil
}
