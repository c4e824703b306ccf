package choice

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// TagKey is the reserved document key carrying the discriminator value. It
// is metadata, never a field of a variant struct.
const TagKey = "type"

// Variant binds one concrete struct type to a tag within a registry.
type Variant struct {
	Tag  string
	Type reflect.Type

	registry *Registry
}

// New returns a pointer to a fresh zero value of the variant's type.
func (v Variant) New() any {
	return reflect.New(v.Type).Interface()
}

// Registry is a per-hierarchy-root table of tag to concrete type. It is
// append-only: a tag, once bound, never rebinds to a different type.
//
// The registry is safe for concurrent use by multiple goroutines.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]Variant

	defaultTag string
	resolver   func(tag string) (any, bool)

	// Discovery runs at most once, under its own mutex so that concurrent
	// first lookups block rather than double-load.
	discoverMu sync.Mutex
	discovered bool
	source     Source
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithDefault sets the tag substituted when a decoded document carries none.
func WithDefault(tag string) Option {
	return func(r *Registry) { r.defaultTag = tag }
}

// WithDiscovery attaches a lazy Source. It is loaded exactly once, on the
// first Get, Known or Decode call against the registry.
func WithDiscovery(src Source) Option {
	return func(r *Registry) { r.source = src }
}

// WithResolver installs a last-chance resolver consulted only after a
// registry lookup fails. It receives the unknown tag and may return a
// prototype value of the concrete type to decode into. This is the hook for
// external conventions such as fully-qualified type paths; the registry
// itself never records the result.
func WithResolver(fn func(tag string) (any, bool)) Option {
	return func(r *Registry) { r.resolver = fn }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{variants: make(map[string]Variant)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register binds tag to the concrete type of prototype, which must be a
// struct or pointer to struct. Registering the same pair again is a no-op;
// registering a bound tag with a different type returns a *ConflictError.
func (r *Registry) Register(tag string, prototype any) error {
	if tag == "" {
		return fmt.Errorf("choice: tag must not be empty")
	}
	t, err := structType(prototype)
	if err != nil {
		return fmt.Errorf("choice: register %q: %w", tag, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.variants[tag]; ok {
		if existing.Type == t {
			return nil
		}
		return &ConflictError{Tag: tag, Existing: existing.Type, New: t}
	}
	r.variants[tag] = Variant{Tag: tag, Type: t, registry: r}
	return nil
}

// MustRegister is Register, panicking on error. Intended for init-time
// registration where a failure is a programming error.
func (r *Registry) MustRegister(tag string, prototype any) {
	if err := r.Register(tag, prototype); err != nil {
		panic(err)
	}
}

// Reserve returns a bind function for tag, so a tag can be claimed where
// the hierarchy is declared and the concrete type applied where it is
// defined.
func (r *Registry) Reserve(tag string) func(prototype any) error {
	return func(prototype any) error { return r.Register(tag, prototype) }
}

// Add registers the struct type T under tag.
func Add[T any](r *Registry, tag string) error {
	return r.Register(tag, *new(T))
}

// MustAdd is Add, panicking on error.
func MustAdd[T any](r *Registry, tag string) {
	if err := Add[T](r, tag); err != nil {
		panic(err)
	}
}

// Get resolves a tag to its variant, triggering discovery on first use. An
// unbound tag yields an error wrapping ErrUnknownTag; discovery failures
// propagate unmodified.
func (r *Registry) Get(tag string) (Variant, error) {
	if err := r.discover(); err != nil {
		return Variant{}, err
	}
	r.mu.RLock()
	v, ok := r.variants[tag]
	r.mu.RUnlock()
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownTag, tag)
	}
	return v, nil
}

// Known returns a copy of the full tag table, triggering discovery on
// first use.
func (r *Registry) Known() (map[string]Variant, error) {
	if err := r.discover(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Variant, len(r.variants))
	for tag, v := range r.variants {
		out[tag] = v
	}
	return out, nil
}

// NameOf returns the tag bound to the given concrete type (pointer types
// are reduced to their element). The scan is linear; registries are small
// and built once.
func (r *Registry) NameOf(t reflect.Type) (string, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for tag, v := range r.variants {
		if v.Type == t {
			return tag, nil
		}
	}
	return "", fmt.Errorf("choice: no tag registered for %s", t)
}

// DefaultTag returns the configured default tag, or "" when the registry
// has none.
func (r *Registry) DefaultTag() string { return r.defaultTag }

// tags returns the sorted tag set without triggering discovery; used for
// diagnostics after discovery has already run (or failed).
func (r *Registry) tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.variants))
	for tag := range r.variants {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// isLeaf reports whether t is one of this registry's concrete variant
// types.
func (r *Registry) isLeaf(t reflect.Type) bool {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.variants {
		if v.Type == t {
			return true
		}
	}
	return false
}

func structType(prototype any) (reflect.Type, error) {
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("prototype must be a struct or pointer to struct, got %T", prototype)
	}
	return t, nil
}
