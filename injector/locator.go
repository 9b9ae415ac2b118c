package injector

import (
	"strings"

	ps "github.com/mitchellh/go-ps"
	"github.com/pkg/errors"
)

// Lister enumerates running processes.
type Lister func() ([]ps.Process, error)

// Locator finds processes by executable name.
type Locator struct {
	list Lister
}

// NewLocator returns a Locator over the live process table.
func NewLocator() *Locator {
	return &Locator{list: ps.Processes}
}

// NewLocatorWith returns a Locator over a custom process source.
func NewLocatorWith(list Lister) *Locator {
	return &Locator{list: list}
}

// Find returns the pid of the first process whose executable file name
// equals name, ignoring case. With several matches the winner depends on
// enumeration order.
func (l *Locator) Find(name string) (uint32, error) {
	procs, err := l.list()
	if err != nil {
		return 0, errors.Wrap(err, "enumerate processes")
	}
	want := baseName(name)
	for _, p := range procs {
		if strings.EqualFold(baseName(p.Executable()), want) {
			return uint32(p.Pid()), nil
		}
	}
	return 0, errors.Wrap(ErrProcessNotFound, name)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}
