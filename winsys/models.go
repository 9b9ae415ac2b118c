// Package winsys holds the raw Windows bindings used by the injector and by
// the injected overlay module.
package winsys

import (
	"encoding/binary"
	"unicode/utf16"
)

// Process access rights.
const (
	PROCESS_CREATE_THREAD             = 0x0002
	PROCESS_VM_OPERATION              = 0x0008
	PROCESS_VM_READ                   = 0x0010
	PROCESS_VM_WRITE                  = 0x0020
	PROCESS_QUERY_INFORMATION         = 0x0400
	PROCESS_QUERY_LIMITED_INFORMATION = 0x1000

	// InjectAccess is what OpenProcess needs for a LoadLibrary injection.
	InjectAccess = PROCESS_CREATE_THREAD | PROCESS_QUERY_INFORMATION |
		PROCESS_VM_OPERATION | PROCESS_VM_WRITE | PROCESS_VM_READ
)

// Memory allocation constants.
const (
	MEM_COMMIT  = 0x1000
	MEM_RESERVE = 0x2000
	MEM_RELEASE = 0x8000

	PAGE_READWRITE = 0x04
)

// Wait results.
const (
	WAIT_OBJECT_0 = 0x00000000
	WAIT_TIMEOUT  = 0x00000102
	WAIT_FAILED   = 0xFFFFFFFF

	INFINITE = 0xFFFFFFFF
)

// Handle is an OS handle value.
type Handle uintptr

// UTF16Bytes encodes s as a NUL terminated little endian UTF-16 string, the
// layout LoadLibraryW expects in the target's memory.
func UTF16Bytes(s string) []byte {
	u := utf16.Encode([]rune(s))
	out := make([]byte, 2*(len(u)+1))
	for i, c := range u {
		binary.LittleEndian.PutUint16(out[2*i:], c)
	}
	return out
}
