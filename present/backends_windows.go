//go:build windows

package present

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/config"
	"github.com/r0lh/poverlay/render"
)

// Backends returns the backends selected by name, in polling order.
func Backends(name string, state *render.State, log logrus.FieldLogger) ([]Backend, error) {
	switch name {
	case config.BackendD3D11:
		return []Backend{NewD3D11(state, log)}, nil
	case config.BackendOpenGL:
		return []Backend{NewOpenGL(state, log)}, nil
	case config.BackendAuto, "":
		return []Backend{NewD3D11(state, log), NewOpenGL(state, log)}, nil
	}
	return nil, errors.Errorf("present: unknown backend %q", name)
}
