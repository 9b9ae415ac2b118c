// Package present intercepts the host's frame presentation call and draws the
// overlay on top of each frame.
package present

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/hook"
)

var (
	// ErrHookTargetUnresolvable means the graphics library never loaded or
	// the presentation function could not be located.
	ErrHookTargetUnresolvable = errors.New("present: hook target unresolvable")
	// ErrHookInstallFailed means the hook engine refused the target.
	ErrHookInstallFailed = errors.New("present: hook install failed")
)

// State is the interceptor's progress.
type State int32

const (
	Waiting State = iota
	Resolved
	Hooked
	Failed
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Resolved:
		return "resolved"
	case Hooked:
		return "hooked"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Target is one function to hook.
type Target struct {
	Name   string
	Addr   uintptr
	Detour uintptr
	// Bind hands the backend the record its detour calls through. It runs
	// before the hook is enabled.
	Bind func(*hook.Record)
}

// Backend locates the presentation entry points of one graphics API.
type Backend interface {
	Name() string
	// Loaded reports whether the host has the API's library mapped.
	Loaded() bool
	// Resolve returns the functions to hook. Only called once Loaded is true.
	Resolve() ([]Target, error)
}

// Hooker is the subset of hook.Engine the interceptor drives.
type Hooker interface {
	Initialize() error
	CreateHook(target, detour uintptr) (*hook.Record, error)
	EnableHook(target uintptr) error
}

// Options controls the wait for the graphics library.
type Options struct {
	PollInterval    time.Duration
	PollMaxInterval time.Duration
	// LoadTimeout of zero waits until ctx is done.
	LoadTimeout time.Duration
}

// Interceptor runs the Waiting, Resolved, Hooked sequence once.
type Interceptor struct {
	hooks    Hooker
	backends []Backend
	opts     Options
	log      logrus.FieldLogger

	state  atomic.Int32
	active atomic.Value // Backend
}

// New returns an Interceptor that hooks the first of backends to load.
func New(hooks Hooker, backends []Backend, opts Options, log logrus.FieldLogger) *Interceptor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.PollMaxInterval < opts.PollInterval {
		opts.PollMaxInterval = opts.PollInterval
	}
	return &Interceptor{
		hooks:    hooks,
		backends: backends,
		opts:     opts,
		log:      log,
	}
}

// State returns the current state.
func (i *Interceptor) State() State {
	return State(i.state.Load())
}

// Backend returns the backend that was hooked, or nil.
func (i *Interceptor) Backend() Backend {
	b, _ := i.active.Load().(Backend)
	return b
}

func (i *Interceptor) set(s State) {
	i.state.Store(int32(s))
	i.log.WithField("state", s).Debug("interceptor state")
}

// Run waits for a graphics library, resolves its presentation function and
// hooks it. It does not retry: any error leaves the interceptor Failed.
func (i *Interceptor) Run(ctx context.Context) error {
	i.set(Waiting)

	b, err := i.waitLoaded(ctx)
	if err != nil {
		i.set(Failed)
		return err
	}
	log := i.log.WithField("backend", b.Name())
	log.Info("graphics library loaded")

	targets, err := b.Resolve()
	if err != nil {
		i.set(Failed)
		return errors.Wrapf(ErrHookTargetUnresolvable, "%s: %v", b.Name(), err)
	}
	if len(targets) == 0 {
		i.set(Failed)
		return errors.Wrapf(ErrHookTargetUnresolvable, "%s: no targets", b.Name())
	}
	i.set(Resolved)

	if err := i.hooks.Initialize(); err != nil {
		i.set(Failed)
		return errors.Wrap(ErrHookInstallFailed, err.Error())
	}
	for _, t := range targets {
		if err := i.install(t); err != nil {
			i.set(Failed)
			return err
		}
		log.WithFields(logrus.Fields{"target": t.Name, "addr": t.Addr}).Info("hook enabled")
	}

	i.active.Store(b)
	i.set(Hooked)
	return nil
}

func (i *Interceptor) install(t Target) error {
	rec, err := i.hooks.CreateHook(t.Addr, t.Detour)
	if err != nil {
		return errors.Wrapf(ErrHookInstallFailed, "%s: %v", t.Name, err)
	}
	if t.Bind != nil {
		t.Bind(rec)
	}
	if err := i.hooks.EnableHook(t.Addr); err != nil {
		return errors.Wrapf(ErrHookInstallFailed, "%s: %v", t.Name, err)
	}
	return nil
}

func (i *Interceptor) waitLoaded(ctx context.Context) (Backend, error) {
	var deadline <-chan time.Time
	if i.opts.LoadTimeout > 0 {
		t := time.NewTimer(i.opts.LoadTimeout)
		defer t.Stop()
		deadline = t.C
	}

	interval := i.opts.PollInterval
	for {
		for _, b := range i.backends {
			if b.Loaded() {
				return b, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ErrHookTargetUnresolvable, ctx.Err().Error())
		case <-deadline:
			return nil, errors.Wrapf(ErrHookTargetUnresolvable, "no graphics library after %v", i.opts.LoadTimeout)
		case <-time.After(interval):
		}

		interval *= 2
		if interval > i.opts.PollMaxInterval {
			interval = i.opts.PollMaxInterval
		}
	}
}
