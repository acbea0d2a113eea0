package renderer

import (
	"fmt"
	"sync"

	"github.com/spritekit/prism/engine/core"
)

// Backend name constants.
const (
	// BackendNoop is the headless backend that performs no graphics calls.
	BackendNoop = "noop"
	// BackendGL is the desktop OpenGL 3.3 core backend.
	BackendGL = "gl"
	// BackendGLES is the OpenGL ES 3.x backend.
	BackendGLES = "gles"
	// BackendWebGL is the WebGL2 backend, available under js/wasm only.
	BackendWebGL = "webgl"
)

// BackendFactory creates a new backend instance.
type BackendFactory func() RendererBackend

var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
	// Priority order for default selection (first available wins). The noop
	// backend is always last: it is the fallback when nothing real exists.
	backendPriority = []string{BackendWebGL, BackendGL, BackendGLES, BackendNoop}
)

// Register registers a backend factory under a name. Typically called from
// init() in backend packages, so platform availability follows build tags.
func Register(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry. Useful for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}

// Get returns a new backend instance by name. Requesting a backend that is
// not registered on this platform fails with core.ErrUnsupportedBackend.
func Get(name string) (RendererBackend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("renderer: backend %q: %w", name, core.ErrUnsupportedBackend)
	}
	return factory(), nil
}

// Default returns the best available backend based on priority, or an error
// when nothing is registered.
func Default() (RendererBackend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range backendPriority {
		if factory, ok := backends[name]; ok {
			return factory(), nil
		}
	}
	for _, factory := range backends {
		return factory(), nil
	}
	return nil, fmt.Errorf("renderer: no backend registered: %w", core.ErrUnsupportedBackend)
}
