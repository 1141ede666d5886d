package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a fresh Tool instance each time a reference is resolved.
type Factory func() (Tool, error)

// Registry keeps the mapping between tool references and factories. It is
// safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds ref to factory. A reference may only be registered once.
func (r *Registry) Register(ref string, factory Factory) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("%w: tool reference is empty", ErrConfiguration)
	}
	if factory == nil {
		return fmt.Errorf("%w: tool %s has a nil factory", ErrConfiguration, ref)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[ref]; exists {
		return fmt.Errorf("%w: tool %s already registered", ErrConfiguration, ref)
	}
	r.factories[ref] = factory
	return nil
}

// Add registers a ready-made tool under its descriptor name and returns that
// name. The same instance is handed out on every resolution.
func (r *Registry) Add(tool Tool) (string, error) {
	desc, err := Describe(tool)
	if err != nil {
		return "", err
	}
	if err := r.Register(desc.Name, func() (Tool, error) { return tool, nil }); err != nil {
		return "", err
	}
	return desc.Name, nil
}

// Replace swaps the factory for an existing or new reference.
func (r *Registry) Replace(ref string, factory Factory) error {
	ref = strings.TrimSpace(ref)
	if ref == "" || factory == nil {
		return fmt.Errorf("%w: replace requires a reference and a factory", ErrConfiguration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[ref] = factory
	return nil
}

// Unregister removes ref. Handles created earlier fail on their next resolve.
func (r *Registry) Unregister(ref string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.factories, strings.TrimSpace(ref))
}

// Resolve instantiates the tool bound to ref.
func (r *Registry) Resolve(ref string) (Tool, error) {
	ref = strings.TrimSpace(ref)
	r.mu.RLock()
	factory, ok := r.factories[ref]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tool %s is not registered", ErrConfiguration, ref)
	}

	tool, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: instantiate tool %s: %w", ErrConfiguration, ref, err)
	}
	if isNil(tool) {
		return nil, fmt.Errorf("%w: tool %s does not implement the Tool interface", ErrConfiguration, ref)
	}
	return tool, nil
}

// Attach resolves ref and returns its descriptor together with a Handle that
// can resolve it again at execution time.
func (r *Registry) Attach(ref string) (Descriptor, Handle, error) {
	tool, err := r.Resolve(ref)
	if err != nil {
		return Descriptor{}, Handle{}, err
	}
	desc, err := Describe(tool)
	if err != nil {
		return Descriptor{}, Handle{}, fmt.Errorf("describe tool %s: %w", ref, err)
	}
	return desc, Handle{Name: desc.Name, Ref: strings.TrimSpace(ref), registry: r}, nil
}

// Refs lists registered references in lexical order.
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]string, 0, len(r.factories))
	for ref := range r.factories {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Describe resolves ref and returns its descriptor.
func (r *Registry) Describe(ref string) (Descriptor, error) {
	desc, _, err := r.Attach(ref)
	return desc, err
}

// Handle associates a tool name from a provider response with the registry
// reference it was attached from.
type Handle struct {
	Name     string
	Ref      string
	registry *Registry
}

// Resolve instantiates the tool behind h.
func (h Handle) Resolve() (Tool, error) {
	if h.registry == nil {
		return nil, fmt.Errorf("%w: tool %s has no registry", ErrConfiguration, h.Name)
	}
	return h.registry.Resolve(h.Ref)
}

// Invoke re-resolves the tool behind h and runs it with args. Errors returned
// by the tool itself are passed through unchanged.
func Invoke(ctx context.Context, h Handle, args map[string]any) (any, error) {
	tool, err := h.Resolve()
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return tool.Invoke(ctx, args)
}
