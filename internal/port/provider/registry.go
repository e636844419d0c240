package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the known provider adapters and their static descriptors.
// It carries no execution state, so concurrent callers only contend on
// map-level synchronization. Construct one per orchestrator; there is no
// process-wide instance inside the library.
type Registry struct {
	mu          sync.RWMutex
	defaultName string
	entries     map[string]entry
}

type entry struct {
	rt   Runtime
	desc Descriptor
}

// NewRegistry creates an empty registry. defaultName is resolved when a
// request names no provider; it may be empty if callers always name one.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		defaultName: defaultName,
		entries:     make(map[string]entry),
	}
}

// Register binds an adapter under name. It fails if the name is already
// bound; use Replace for hot-swapping.
func (r *Registry) Register(name string, rt Runtime, desc Descriptor) error {
	if name == "" {
		return fmt.Errorf("register: name is required")
	}
	if rt == nil {
		return fmt.Errorf("register %q: runtime is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("register: %q already bound", name)
	}
	desc.Name = name
	r.entries[name] = entry{rt: rt, desc: desc}
	return nil
}

// Replace binds an adapter under name, overwriting any existing binding.
func (r *Registry) Replace(name string, rt Runtime, desc Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	desc.Name = name
	r.entries[name] = entry{rt: rt, desc: desc}
}

// Unregister removes a binding. Removing an unknown name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Resolve returns the adapter bound under name, or the default adapter when
// name is empty. Unknown names fail with ErrAdapterNotFound.
func (r *Registry) Resolve(name string) (Runtime, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultName
	}
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", name, ErrAdapterNotFound)
	}
	return e.rt, nil
}

// Descriptor returns the static metadata for name.
func (r *Registry) Descriptor(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("descriptor %q: %w", name, ErrAdapterNotFound)
	}
	return e.desc, nil
}

// Descriptors returns all descriptors sorted by provider name, so iteration
// order is deterministic for routing.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	descs := r.Descriptors()
	names := make([]string, 0, len(descs))
	for _, d := range descs {
		names = append(names, d.Name)
	}
	return names
}

// DefaultName returns the configured default adapter name.
func (r *Registry) DefaultName() string {
	return r.defaultName
}
