package framebridge

import (
	"errors"
	"sort"
	"sync"
)

// BackendOptions configures backend creation.
type BackendOptions struct {
	// Label is attached to backend log output and GPU object labels
	// for debugging. May be empty.
	Label string
}

// BackendFactory creates a new GraphicsBackend with the given options.
// Implementations should validate options and return descriptive errors.
type BackendFactory func(opts BackendOptions) (GraphicsBackend, error)

// RegistryEntry represents a registered graphics backend.
type RegistryEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: GPU backends (wgpu)
	//   - 10: pure software backends
	Priority int

	// Factory creates backend instances.
	Factory BackendFactory

	// Available reports if the backend is available on this system.
	Available func() bool
}

// globalRegistry is the default registry.
var globalRegistry = &Registry{}

// Registry manages registered graphics backends.
//
// The registry lets GPU implementations register themselves from their
// own packages, keeping the root package free of GPU imports.
//
// Example registration:
//
//	func init() {
//	    framebridge.Register("wgpu", 100, wgpuFactory, wgpuAvailable)
//	}
//
// Example usage:
//
//	b, err := framebridge.NewBackendByName("wgpu")
//	// or auto-select best available:
//	b, err := framebridge.NewBackend()
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*RegistryEntry
}

// NewRegistry creates a new empty registry.
// Most code should use the global registry via Register and NewBackend.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*RegistryEntry),
	}
}

// Register adds a backend to the global registry.
//
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func Register(name string, priority int, factory BackendFactory, available func() bool) {
	globalRegistry.Register(name, priority, factory, available)
}

// Unregister removes a backend from the global registry.
func Unregister(name string) {
	globalRegistry.Unregister(name)
}

// List returns all registered backend names sorted by priority (highest first).
func List() []string {
	return globalRegistry.List()
}

// Available returns names of all available backends sorted by priority.
func Available() []string {
	return globalRegistry.Available()
}

// Get returns information about a specific backend.
func Get(name string) (*RegistryEntry, bool) {
	return globalRegistry.Get(name)
}

// NewBackend creates a backend using the best available implementation.
// Returns an error if no backends are available.
func NewBackend() (GraphicsBackend, error) {
	return globalRegistry.NewBackend(BackendOptions{})
}

// NewBackendWithOptions creates a backend using the best available
// implementation.
func NewBackendWithOptions(opts BackendOptions) (GraphicsBackend, error) {
	return globalRegistry.NewBackend(opts)
}

// NewBackendByName creates a backend using a specific named implementation.
func NewBackendByName(name string) (GraphicsBackend, error) {
	return globalRegistry.NewBackendByName(name, BackendOptions{})
}

// NewBackendByNameWithOptions creates a backend using a specific named
// implementation.
func NewBackendByNameWithOptions(name string, opts BackendOptions) (GraphicsBackend, error) {
	return globalRegistry.NewBackendByName(name, opts)
}

// Register adds a backend to this registry.
func (r *Registry) Register(name string, priority int, factory BackendFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[string]*RegistryEntry)
	}

	if available == nil {
		available = func() bool { return true }
	}

	r.entries[name] = &RegistryEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend from this registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all registered backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(false)
}

// Available returns names of all available backends sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(true)
}

// Get returns information about a specific backend.
func (r *Registry) Get(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}

	// Return a copy to prevent modification
	entryCopy := *entry
	return &entryCopy, true
}

// NewBackend creates a backend using the best available implementation.
func (r *Registry) NewBackend(opts BackendOptions) (GraphicsBackend, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoBackendAvailable
	}

	// Try each available backend in priority order
	var lastErr error
	for _, name := range available {
		b, err := r.NewBackendByName(name, opts)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoBackendAvailable
}

// NewBackendByName creates a backend using a specific implementation.
func (r *Registry) NewBackendByName(name string, opts BackendOptions) (GraphicsBackend, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}

	if !entry.Available() {
		return nil, &BackendUnavailableError{Name: name}
	}

	return entry.Factory(opts)
}

// sortedNames returns backend names sorted by priority (highest first).
// If onlyAvailable is true, filters to available backends only.
// Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	if len(r.entries) == 0 {
		return nil
	}

	type entry struct {
		name     string
		priority int
	}

	entries := make([]entry, 0, len(r.entries))
	for name, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, entry{name: name, priority: e.Priority})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].priority > entries[j].priority
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names
}

// Errors.
var (
	// ErrNoBackendAvailable is returned when no graphics backends are
	// registered or available on the current system.
	ErrNoBackendAvailable = errors.New("framebridge: no backend available")
)

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "framebridge: backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "framebridge: backend unavailable: " + e.Name
}
