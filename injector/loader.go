// Package injector loads a module into another process with the classic
// LoadLibrary remote thread technique.
package injector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/winsys"
)

// API is the OS surface the loader drives. winsys.Kernel32 implements it.
type API interface {
	OpenProcess(access, pid uint32) (winsys.Handle, error)
	VirtualAllocEx(proc winsys.Handle, size uintptr) (uintptr, error)
	WriteProcessMemory(proc winsys.Handle, addr uintptr, data []byte) error
	VirtualFreeEx(proc winsys.Handle, addr uintptr) error
	LoaderAddress() (uintptr, error)
	CreateRemoteThread(proc winsys.Handle, start, arg uintptr) (winsys.Handle, error)
	WaitForSingleObject(h winsys.Handle, ms uint32) (uint32, error)
	GetExitCodeThread(h winsys.Handle) (uint32, error)
	CloseHandle(h winsys.Handle) error
}

// DefaultWaitSlice is how long a single wait on the remote thread lasts before
// the loader checks for cancellation.
const DefaultWaitSlice = 100 * time.Millisecond

// Loader injects modules through API.
type Loader struct {
	api       API
	log       logrus.FieldLogger
	waitSlice time.Duration
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the progress logger.
func WithLoaderLogger(l logrus.FieldLogger) LoaderOption {
	return func(ld *Loader) { ld.log = l }
}

// WithWaitSlice overrides DefaultWaitSlice.
func WithWaitSlice(d time.Duration) LoaderOption {
	return func(ld *Loader) { ld.waitSlice = d }
}

// NewLoader returns a Loader using api.
func NewLoader(api API, opts ...LoaderOption) *Loader {
	l := &Loader{
		api:       api,
		log:       logrus.StandardLogger(),
		waitSlice: DefaultWaitSlice,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

type remoteAllocation struct {
	addr uintptr
	size uintptr
}

// Inject makes process pid load the module at modulePath and returns once the
// module's attach routine has finished. Every handle it opens is closed and
// the remote path buffer is released before it returns, except when ctx ends
// the wait early: the loader thread may still read the buffer then, so it is
// left in place.
func (l *Loader) Inject(ctx context.Context, pid uint32, modulePath string) (err error) {
	log := l.log.WithField("pid", pid)

	proc, err := l.api.OpenProcess(winsys.InjectAccess, pid)
	if err != nil {
		return errors.Wrapf(ErrAccessDenied, "pid %d: %v", pid, err)
	}
	defer l.closeHandle(log, proc)
	log.WithField("handle", uintptr(proc)).Debug("process opened")

	path := winsys.UTF16Bytes(modulePath)
	addr, err := l.api.VirtualAllocEx(proc, uintptr(len(path)))
	if err != nil {
		return errors.Wrapf(ErrRemoteAllocationFailed, "%d bytes: %v", len(path), err)
	}
	mem := remoteAllocation{addr: addr, size: uintptr(len(path))}
	keep := false
	defer func() {
		if keep {
			log.WithField("addr", mem.addr).Warn("remote path buffer left allocated")
			return
		}
		if ferr := l.api.VirtualFreeEx(proc, mem.addr); ferr != nil {
			log.WithError(ferr).Warn("can't free remote memory")
		}
	}()
	log.WithFields(logrus.Fields{"addr": mem.addr, "size": mem.size}).Debug("remote memory allocated")

	if err := l.api.WriteProcessMemory(proc, mem.addr, path); err != nil {
		return errors.Wrapf(ErrRemoteWriteFailed, "at %#x: %v", mem.addr, err)
	}

	loadLibrary, err := l.api.LoaderAddress()
	if err != nil {
		return errors.Wrap(ErrLoaderUnresolved, err.Error())
	}
	log.WithField("loader", loadLibrary).Debug("loader resolved")

	thread, err := l.api.CreateRemoteThread(proc, loadLibrary, mem.addr)
	if err != nil {
		return errors.Wrapf(ErrRemoteThreadFailed, "%v", err)
	}
	defer l.closeHandle(log, thread)
	log.WithField("thread", uintptr(thread)).Debug("remote thread created")

	if err := l.wait(ctx, thread); err != nil {
		if errors.Is(err, ErrWaitAbandoned) {
			keep = true
		}
		return err
	}

	code, err := l.api.GetExitCodeThread(thread)
	if err != nil {
		return errors.Wrap(err, "can't read remote thread exit code")
	}
	if code == 0 {
		return errors.Wrap(ErrModuleLoadFailed, modulePath)
	}
	return nil
}

// wait blocks until thread exits. Without a cancellable ctx the wait has no
// timeout.
func (l *Loader) wait(ctx context.Context, thread winsys.Handle) error {
	slice := uint32(winsys.INFINITE)
	if ctx.Done() != nil {
		slice = uint32(l.waitSlice / time.Millisecond)
	}
	for {
		ev, err := l.api.WaitForSingleObject(thread, slice)
		switch {
		case ev == winsys.WAIT_OBJECT_0:
			return nil
		case ev == winsys.WAIT_TIMEOUT:
			if ctx.Err() != nil {
				return errors.Wrap(ErrWaitAbandoned, ctx.Err().Error())
			}
		default:
			if err == nil {
				err = errors.Errorf("unexpected wait result %#x", ev)
			}
			return errors.Wrap(err, "wait for remote thread")
		}
	}
}

func (l *Loader) closeHandle(log logrus.FieldLogger, h winsys.Handle) {
	if err := l.api.CloseHandle(h); err != nil {
		log.WithError(err).Warn("can't close handle")
	}
}
