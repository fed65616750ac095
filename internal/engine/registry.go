package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/homiodev/homio-hquery/internal/parse"
	"github.com/homiodev/homio-hquery/internal/query"
)

// Operation is the callable bound to one registered descriptor.
type Operation func(ctx context.Context, args []query.Arg, opts ...CallOption) (any, error)

// Registry maps query names to descriptors executed by an Engine.
type Registry struct {
	engine *Engine

	mu      sync.RWMutex
	entries map[string]*query.Descriptor
}

// NewRegistry creates an empty registry backed by e.
func NewRegistry(e *Engine) *Registry {
	return &Registry{
		engine:  e,
		entries: make(map[string]*query.Descriptor),
	}
}

// Engine returns the backing engine.
func (r *Registry) Engine() *Engine { return r.engine }

// Register validates d and binds it to a name. Registering a name twice is
// an error; use Replace to swap a whole set.
func (r *Registry) Register(d query.Descriptor) (Operation, error) {
	desc, err := prepare(d)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[desc.Name]; exists {
		return nil, fmt.Errorf("%w: %s is already registered", query.ErrInvalidDescriptor, desc.Name)
	}
	r.entries[desc.Name] = desc
	return r.operation(desc), nil
}

// Replace validates every descriptor and then swaps the whole set at once.
// On error the registry is unchanged.
func (r *Registry) Replace(descs []query.Descriptor) error {
	next := make(map[string]*query.Descriptor, len(descs))
	for _, d := range descs {
		desc, err := prepare(d)
		if err != nil {
			return err
		}
		if _, exists := next[desc.Name]; exists {
			return fmt.Errorf("%w: %s is defined twice", query.ErrInvalidDescriptor, desc.Name)
		}
		next[desc.Name] = desc
	}

	r.mu.Lock()
	r.entries = next
	r.mu.Unlock()
	return nil
}

// Operation returns the callable for name.
func (r *Registry) Operation(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return r.operation(d), true
}

// Get returns a copy of the descriptor registered as name.
func (r *Registry) Get(name string) (query.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[name]
	if !ok {
		return query.Descriptor{}, false
	}
	return *d, true
}

// Descriptors returns all registered descriptors sorted by name.
func (r *Registry) Descriptors() []query.Descriptor {
	r.mu.RLock()
	out := make([]query.Descriptor, 0, len(r.entries))
	for _, d := range r.entries {
		out = append(out, *d)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Call invokes the query registered as name.
func (r *Registry) Call(ctx context.Context, name string, args ...query.Arg) (any, error) {
	return r.CallWith(ctx, name, args)
}

// CallWith invokes the query registered as name with call options.
func (r *Registry) CallWith(ctx context.Context, name string, args []query.Arg, opts ...CallOption) (any, error) {
	r.mu.RLock()
	d, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &query.Error{Kind: query.ErrUnknownQuery, Query: name}
	}
	return r.engine.Execute(ctx, d, args, opts...)
}

func (r *Registry) operation(d *query.Descriptor) Operation {
	return func(ctx context.Context, args []query.Arg, opts ...CallOption) (any, error) {
		return r.engine.Execute(ctx, d, args, opts...)
	}
}

// As converts a call result to T, decoding records into structs.
func As[T any](v any, err error) (T, error) {
	var out T
	if err != nil || v == nil {
		return out, err
	}
	if t, ok := v.(T); ok {
		return t, nil
	}
	if err := parse.Decode(v, &out); err != nil {
		return out, err
	}
	return out, nil
}

func prepare(d query.Descriptor) (*query.Descriptor, error) {
	if d.Returns == "" {
		d.Returns = query.ReturnString
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}
