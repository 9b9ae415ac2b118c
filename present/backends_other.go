//go:build !windows

package present

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/r0lh/poverlay/render"
)

// Backends has no graphics backends to offer off Windows.
func Backends(name string, state *render.State, log logrus.FieldLogger) ([]Backend, error) {
	return nil, errors.Errorf("present: backend %q needs windows", name)
}
