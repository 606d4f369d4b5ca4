package curling

import (
	"fmt"
	"sync"

	"github.com/luizaranda/curling/pkg/transport"
)

const _registryName = "curling"

// runtime is the state shared by every open Request: the transports and
// their connection pools. It lives while at least one Request is open.
type runtime struct {
	registry *transport.Registry
}

var (
	_runtimeMu   sync.Mutex
	_runtime     *runtime
	_runtimeRefs int

	// newRegistry is replaced in tests.
	newRegistry = func() (*transport.Registry, error) {
		return transport.NewRegistry(_registryName, transport.DefaultRegistrySize), nil
	}
)

// acquireRuntime returns the shared runtime, creating it for the first
// caller. Every successful call must be paired with releaseRuntime.
func acquireRuntime() (*runtime, error) {
	_runtimeMu.Lock()
	defer _runtimeMu.Unlock()

	if _runtime == nil {
		registry, err := newRegistry()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInitialization, err)
		}
		_runtime = &runtime{registry: registry}
	}

	_runtimeRefs++
	return _runtime, nil
}

// releaseRuntime drops a reference and tears the runtime down when it was
// the last one.
func releaseRuntime() {
	_runtimeMu.Lock()
	defer _runtimeMu.Unlock()

	if _runtimeRefs == 0 {
		return
	}

	_runtimeRefs--
	if _runtimeRefs == 0 {
		_runtime.registry.Close()
		_runtime = nil
	}
}

// runtimeRefs returns the number of open Requests.
func runtimeRefs() int {
	_runtimeMu.Lock()
	defer _runtimeMu.Unlock()
	return _runtimeRefs
}

func (rt *runtime) transport(cfg transport.Config) (*transport.PooledTransport, error) {
	t, err := rt.registry.Get(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogic, err)
	}
	return t, nil
}
