package injector

import "github.com/pkg/errors"

var (
	ErrProcessNotFound        = errors.New("process not found")
	ErrModuleNotFound         = errors.New("module file not found")
	ErrAccessDenied           = errors.New("can't open remote process")
	ErrRemoteAllocationFailed = errors.New("can't allocate memory in remote process")
	ErrRemoteWriteFailed      = errors.New("can't write to remote process memory")
	ErrLoaderUnresolved       = errors.New("can't resolve loader address")
	ErrRemoteThreadFailed     = errors.New("can't create remote thread")
	ErrWaitAbandoned          = errors.New("gave up waiting for remote thread")
	ErrModuleLoadFailed       = errors.New("remote loader returned NULL")
)
