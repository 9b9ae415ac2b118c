// Package hook installs trampoline hooks on functions in the current process.
//
// All raw address manipulation in the overlay lives here: callers hand the
// Engine a target address and a native detour, and get back a Record whose
// Call method runs the original function.
package hook

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

var (
	ErrNotInitialized  = errors.New("hook: engine not initialized")
	ErrInvalidPrologue = errors.New("hook: target prologue cannot be patched")
	ErrAlreadyCreated  = errors.New("hook: hook already created for target")
	ErrNotCreated      = errors.New("hook: no hook created for target")
	ErrAlreadyEnabled  = errors.New("hook: hook already enabled")
	ErrNullAddress     = errors.New("hook: null address")
)

// Patcher is the machine level hooking primitive.
type Patcher interface {
	// ReadCode returns up to n bytes of code at addr.
	ReadCode(addr uintptr, n int) ([]byte, error)
	// Install copies stealLen bytes of target into a trampoline, redirects
	// target to detour and returns the trampoline address.
	Install(target, detour uintptr, stealLen int) (uintptr, error)
	// Restore writes code back over addr.
	Restore(addr uintptr, code []byte) error
	// Call invokes the native function at fn.
	Call(fn uintptr, args ...uintptr) uintptr
}

// Record describes one hooked function. It lives as long as the module and is
// never moved.
type Record struct {
	Target uintptr
	Detour uintptr

	stealLen   int
	original   []byte
	trampoline atomic.Uintptr
	// entry is what Call jumps to: the trampoline once enabled, or Target
	// itself after a failed install put the original bytes back.
	entry   atomic.Uintptr
	enabled atomic.Bool
	patcher Patcher
}

// Trampoline returns the address that runs the original function, or 0 while
// the hook is not enabled.
func (r *Record) Trampoline() uintptr {
	return r.trampoline.Load()
}

// Enabled reports whether calls to Target are redirected.
func (r *Record) Enabled() bool {
	return r.enabled.Load()
}

// StealLength is the number of prologue bytes moved to the trampoline.
func (r *Record) StealLength() int {
	return r.stealLen
}

// Call runs the original function with args and returns its result.
//
// The jump is written before the primitive hands back the trampoline, so a
// detour can fire on another thread a moment before it is published. Call
// yields until EnableHook settles. If an install fails and the prologue
// cannot be restored either, callers already inside the detour never return.
func (r *Record) Call(args ...uintptr) uintptr {
	t := r.entry.Load()
	for t == 0 {
		runtime.Gosched()
		t = r.entry.Load()
	}
	return r.patcher.Call(t, args...)
}

// Engine tracks hooks by target address.
type Engine struct {
	mu          sync.Mutex
	patcher     Patcher
	initialized bool
	records     map[uintptr]*Record
}

// NewEngine returns an Engine using p. Pass DefaultPatcher() outside tests.
func NewEngine(p Patcher) *Engine {
	return &Engine{patcher: p}
}

// Initialize prepares the engine. It is safe to call more than once.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return nil
	}
	if e.patcher == nil {
		return errors.Wrap(ErrNotInitialized, "no patcher")
	}
	e.records = make(map[uintptr]*Record)
	e.initialized = true
	return nil
}

// CreateHook validates target and registers detour for it. The target is not
// modified until EnableHook.
func (e *Engine) CreateHook(target, detour uintptr) (*Record, error) {
	if target == 0 || detour == 0 {
		return nil, ErrNullAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return nil, ErrNotInitialized
	}
	if _, ok := e.records[target]; ok {
		return nil, errors.Wrapf(ErrAlreadyCreated, "target %#x", target)
	}

	code, err := e.patcher.ReadCode(target, codeWindow)
	if err != nil && len(code) == 0 {
		return nil, errors.Wrapf(err, "hook: read code at %#x", target)
	}
	n, err := StealLength(code)
	if err != nil {
		return nil, errors.WithMessagef(err, "target %#x", target)
	}

	r := &Record{
		Target:   target,
		Detour:   detour,
		stealLen: n,
		original: append([]byte(nil), code[:n]...),
		patcher:  e.patcher,
	}
	e.records[target] = r
	return r, nil
}

// EnableHook redirects target to its detour.
func (e *Engine) EnableHook(target uintptr) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	r, ok := e.records[target]
	if !ok {
		return errors.Wrapf(ErrNotCreated, "target %#x", target)
	}
	if r.Enabled() {
		return errors.Wrapf(ErrAlreadyEnabled, "target %#x", target)
	}

	tramp, err := e.patcher.Install(r.Target, r.Detour, r.stealLen)
	if err != nil {
		// The jump may already be in place. Put the prologue back so a
		// detour that fired meanwhile can fall through to the target.
		if rerr := e.patcher.Restore(r.Target, r.original); rerr != nil {
			return errors.Wrapf(err, "hook: install at %#x (restore: %v)", target, rerr)
		}
		r.entry.Store(r.Target)
		return errors.Wrapf(err, "hook: install at %#x", target)
	}
	r.trampoline.Store(tramp)
	r.entry.Store(tramp)
	r.enabled.Store(true)
	return nil
}

// Lookup returns the record for target.
func (e *Engine) Lookup(target uintptr) (*Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.records[target]
	return r, ok
}
