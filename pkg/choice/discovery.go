package choice

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"
	"sync"
)

// Source populates a registry on its first use. A registry configured with
// WithDiscovery loads its source exactly once; every later lookup is free.
type Source interface {
	Load(r *Registry) error
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(r *Registry) error

// Load calls fn(r).
func (fn SourceFunc) Load(r *Registry) error { return fn(r) }

// The loader index is the explicit rendering of import-side-effect plugin
// registration: a plugin package calls RegisterLoader from its init under
// its own import path, and blank-importing the package is what makes the
// loader visible. A Namespace source then runs every loader one path
// segment below the configured path.
var (
	loadersMu sync.RWMutex
	loaders   = make(map[string]func(*Registry) error)
)

// RegisterLoader records a registration function under a slash-separated
// path, typically the plugin package's import path. Registering the same
// path twice panics: loaders are identified by where they live.
func RegisterLoader(path string, fn func(*Registry) error) {
	if path == "" || fn == nil {
		panic("choice: RegisterLoader requires a path and a function")
	}
	loadersMu.Lock()
	defer loadersMu.Unlock()
	if _, exists := loaders[path]; exists {
		panic(fmt.Sprintf("choice: loader %q is already registered", path))
	}
	loaders[path] = fn
}

// Namespace returns a Source that runs every registered loader exactly one
// path segment below path, in sorted order. Loader order must not matter
// for correctness (each loader registers disjoint tags); sorting only keeps
// failures deterministic. A namespace with no loaders is an error, since an
// unknown namespace and a typo are indistinguishable.
func Namespace(path string) Source {
	return SourceFunc(func(r *Registry) error {
		prefix := strings.TrimSuffix(path, "/") + "/"

		loadersMu.RLock()
		var matched []string
		for p := range loaders {
			rest, ok := strings.CutPrefix(p, prefix)
			if ok && rest != "" && !strings.Contains(rest, "/") {
				matched = append(matched, p)
			}
		}
		loadersMu.RUnlock()

		if len(matched) == 0 {
			return fmt.Errorf("choice: no loaders registered under namespace %q", path)
		}
		sort.Strings(matched)
		for _, p := range matched {
			loadersMu.RLock()
			fn := loaders[p]
			loadersMu.RUnlock()
			if err := fn(r); err != nil {
				return fmt.Errorf("loader %q: %w", p, err)
			}
		}
		return nil
	})
}

// Dir returns a Source that opens every shared object (*.so) directly under
// dir. Each shared object's init functions are expected to register
// variants, usually via RegisterLoader plus an explicit Register call, or
// by registering into a registry they share with the host. Enumeration is
// non-recursive and any open failure aborts the whole load.
func Dir(dir string) Source {
	return SourceFunc(func(r *Registry) error {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("choice: plugin directory: %w", err)
		}
		names, err := filepath.Glob(filepath.Join(dir, "*.so"))
		if err != nil {
			return fmt.Errorf("choice: plugin directory %q: %w", dir, err)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := plugin.Open(name); err != nil {
				return fmt.Errorf("choice: plugin %q: %w", name, err)
			}
		}
		return nil
	})
}

// Sources combines several sources into one, loaded in order.
func Sources(srcs ...Source) Source {
	return SourceFunc(func(r *Registry) error {
		for _, src := range srcs {
			if err := src.Load(r); err != nil {
				return err
			}
		}
		return nil
	})
}

// discover runs the registry's source exactly once. Concurrent first
// callers block on the mutex rather than double-loading. A failed load is
// not marked done, so the error resurfaces on every subsequent lookup;
// Register's idempotence makes a repeated partial load harmless. Loaders
// must not look tags up in the registry they are populating.
func (r *Registry) discover() error {
	if r.source == nil {
		return nil
	}
	r.discoverMu.Lock()
	defer r.discoverMu.Unlock()
	if r.discovered {
		return nil
	}
	if err := r.source.Load(r); err != nil {
		return err
	}
	r.discovered = true
	return nil
}

// resetLoaders clears the loader index (for tests only).
func resetLoaders() {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	loaders = make(map[string]func(*Registry) error)
}
