package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/edgefx"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	// The GPU backend is preferred; software is the fallback.
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get opens a device from the named backend.
func Get(name string) (Device, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, name, err)
	}
	return dev, nil
}

// Default opens a device from the best available backend.
// Priority order: wgpu > software > any other registered backend.
// A backend whose factory fails is skipped.
func Default() (Device, error) {
	names := Available()
	ordered := make([]string, 0, len(names))
	for _, name := range backendPriority {
		if IsRegistered(name) {
			ordered = append(ordered, name)
		}
	}
	for _, name := range names {
		if !contains(backendPriority, name) {
			ordered = append(ordered, name)
		}
	}

	var lastErr error
	for _, name := range ordered {
		dev, err := Get(name)
		if err == nil {
			edgefx.Logger().Info("backend: selected", "name", name)
			return dev, nil
		}
		edgefx.Logger().Warn("backend: unavailable", "name", name, "err", err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrBackendNotAvailable
	}
	return nil, lastErr
}

// MustDefault returns the default device or panics.
func MustDefault() Device {
	d, err := Default()
	if err != nil {
		panic(fmt.Sprintf("backend: no device available: %v", err))
	}
	return d
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
