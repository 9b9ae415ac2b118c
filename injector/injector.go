package injector

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Injector resolves a process by name and loads a module into it.
type Injector struct {
	Locator *Locator
	Loader  *Loader
}

// New returns an Injector over the live process table and api.
func New(api API, opts ...LoaderOption) *Injector {
	return &Injector{
		Locator: NewLocator(),
		Loader:  NewLoader(api, opts...),
	}
}

// InjectByName injects modulePath into the first process named processName
// and returns its pid. The path is made absolute because the target resolves
// it against its own working directory.
func (i *Injector) InjectByName(ctx context.Context, processName, modulePath string) (uint32, error) {
	abs, err := filepath.Abs(modulePath)
	if err != nil {
		return 0, errors.Wrap(err, "resolve module path")
	}
	if st, err := os.Stat(abs); err != nil || st.IsDir() {
		return 0, errors.Wrap(ErrModuleNotFound, abs)
	}

	pid, err := i.Locator.Find(processName)
	if err != nil {
		return 0, err
	}
	if err := i.Loader.Inject(ctx, pid, abs); err != nil {
		return pid, err
	}
	return pid, nil
}
