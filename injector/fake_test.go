package injector

import (
	"io"
	"sync"

	ps "github.com/mitchellh/go-ps"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/winsys"
)

type fakeProc struct {
	pid int
	exe string
}

func (p fakeProc) Pid() int           { return p.pid }
func (p fakeProc) PPid() int          { return 0 }
func (p fakeProc) Executable() string { return p.exe }

func listOf(procs ...fakeProc) Lister {
	return func() ([]ps.Process, error) {
		out := make([]ps.Process, len(procs))
		for i, p := range procs {
			out[i] = p
		}
		return out, nil
	}
}

// fakeAPI records calls and tracks what is still open or allocated.
type fakeAPI struct {
	mu sync.Mutex

	calls   []string
	open    map[winsys.Handle]bool
	alloc   map[uintptr]bool
	written map[uintptr][]byte
	next    uintptr

	openErr, allocErr, writeErr, loaderErr, threadErr error
	exitCode                                          uint32
	// pending is the number of WAIT_TIMEOUT results before the thread exits;
	// negative means never.
	pending int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		open:     make(map[winsys.Handle]bool),
		alloc:    make(map[uintptr]bool),
		written:  make(map[uintptr][]byte),
		next:     0x100,
		exitCode: 0x7ffd0000,
	}
}

func (f *fakeAPI) record(name string) {
	f.calls = append(f.calls, name)
}

func (f *fakeAPI) handle() winsys.Handle {
	f.next += 4
	h := winsys.Handle(f.next)
	f.open[h] = true
	return h
}

func (f *fakeAPI) OpenProcess(access, pid uint32) (winsys.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("OpenProcess")
	if f.openErr != nil {
		return 0, f.openErr
	}
	return f.handle(), nil
}

func (f *fakeAPI) VirtualAllocEx(proc winsys.Handle, size uintptr) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("VirtualAllocEx")
	if f.allocErr != nil {
		return 0, f.allocErr
	}
	addr := uintptr(0x10000) + f.next
	f.next += 0x1000
	f.alloc[addr] = true
	return addr, nil
}

func (f *fakeAPI) WriteProcessMemory(proc winsys.Handle, addr uintptr, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("WriteProcessMemory")
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written[addr] = append([]byte{}, data...)
	return nil
}

func (f *fakeAPI) VirtualFreeEx(proc winsys.Handle, addr uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("VirtualFreeEx")
	if !f.alloc[addr] {
		return errors.New("not allocated")
	}
	delete(f.alloc, addr)
	return nil
}

func (f *fakeAPI) LoaderAddress() (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("LoaderAddress")
	if f.loaderErr != nil {
		return 0, f.loaderErr
	}
	return 0x7ff80000, nil
}

func (f *fakeAPI) CreateRemoteThread(proc winsys.Handle, start, arg uintptr) (winsys.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateRemoteThread")
	if f.threadErr != nil {
		return 0, f.threadErr
	}
	return f.handle(), nil
}

func (f *fakeAPI) WaitForSingleObject(h winsys.Handle, ms uint32) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("WaitForSingleObject")
	if f.pending != 0 {
		if f.pending > 0 {
			f.pending--
		}
		return winsys.WAIT_TIMEOUT, nil
	}
	return winsys.WAIT_OBJECT_0, nil
}

func (f *fakeAPI) GetExitCodeThread(h winsys.Handle) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetExitCodeThread")
	return f.exitCode, nil
}

func (f *fakeAPI) CloseHandle(h winsys.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CloseHandle")
	if !f.open[h] {
		return errors.New("bad handle")
	}
	delete(f.open, h)
	return nil
}

func (f *fakeAPI) called(name string) bool {
	for _, c := range f.calls {
		if c == name {
			return true
		}
	}
	return false
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
