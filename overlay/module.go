// Package overlay wires the pieces that run inside the target process.
package overlay

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/channel"
	"github.com/r0lh/poverlay/config"
	"github.com/r0lh/poverlay/present"
	"github.com/r0lh/poverlay/render"
)

// BackendFunc builds the presentation backends for a configured backend name.
type BackendFunc func(name string, state *render.State, log logrus.FieldLogger) ([]present.Backend, error)

// Module owns the render state shared by the command channel and the
// presentation detours.
type Module struct {
	cfg   config.Config
	log   logrus.FieldLogger
	state *render.State

	interceptor *present.Interceptor
	server      *channel.Server

	wg sync.WaitGroup
}

// New prepares a module. Nothing runs until Start.
func New(cfg config.Config, hooks present.Hooker, backends BackendFunc, log logrus.FieldLogger) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Module{
		cfg:   cfg,
		log:   log,
		state: render.NewState(),
	}

	bs, err := backends(cfg.Backend, m.state, log)
	if err != nil {
		return nil, errors.Wrap(err, "overlay: backends")
	}
	m.interceptor = present.New(hooks, bs, present.Options{
		PollInterval:    cfg.PollInterval,
		PollMaxInterval: cfg.PollMaxInterval,
		LoadTimeout:     cfg.LoadTimeout,
	}, log.WithField("component", "interceptor"))
	return m, nil
}

// State returns the draw list.
func (m *Module) State() *render.State { return m.state }

// Interceptor returns the presentation interceptor.
func (m *Module) Interceptor() *present.Interceptor { return m.interceptor }

// Addr returns the command channel address, or nil before a successful Start.
func (m *Module) Addr() net.Addr {
	if m.server == nil {
		return nil
	}
	return m.server.Addr()
}

// Start launches the interceptor and binds the command channel. The
// interceptor runs even when the channel cannot be bound; the bind error is
// returned so the caller can log it.
func (m *Module) Start(ctx context.Context) error {
	m.spawn("interceptor", func() {
		if err := m.interceptor.Run(ctx); err != nil {
			m.log.WithError(err).Error("presentation hook not installed")
			return
		}
		m.log.WithField("backend", m.interceptor.Backend().Name()).Info("overlay active")
	})

	srv, err := channel.Listen(m.cfg.Addr, m.state,
		channel.WithLogger(m.log.WithField("component", "channel")),
		channel.WithReconnect(m.cfg.Reconnect))
	if err != nil {
		return err
	}
	m.server = srv
	m.log.WithField("addr", srv.Addr().String()).Info("command channel listening")

	m.spawn("channel", func() {
		err := srv.Serve(ctx)
		switch {
		case errors.Is(err, channel.ErrConnectionClosed):
			m.log.Info("command channel closed")
		case err != nil && ctx.Err() == nil:
			m.log.WithError(err).Error("command channel failed")
		}
	})
	return nil
}

// Wait blocks until every goroutine started by Start has returned.
func (m *Module) Wait() {
	m.wg.Wait()
}

// spawn runs fn on its own goroutine. A panic is logged and does not reach
// the host.
func (m *Module) spawn(name string, fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				m.log.WithFields(logrus.Fields{"goroutine": name, "panic": r}).Error("recovered")
			}
		}()
		fn()
	}()
}
