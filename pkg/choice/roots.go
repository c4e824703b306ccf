package choice

import (
	"fmt"
	"reflect"
	"sync"
)

// The root index maps interface types to their owning registries. It is the
// explicit rendering of "descendants share the nearest ancestor's registry":
// a nested choice field is resolved by the exact interface type it is
// declared as, and binding a narrower interface to its own registry starts
// a new hierarchy root. Bindings happen at definition time (init), never
// during lookup.
var (
	rootsMu sync.RWMutex
	roots   = make(map[reflect.Type]*Registry)
)

// BindRoot declares the interface type I as the root of the given registry.
// Rebinding the same interface to the same registry is a no-op; binding it
// to a different registry panics, mirroring tag conflicts.
func BindRoot[I any](r *Registry) {
	t := reflect.TypeOf((*I)(nil)).Elem()
	if t.Kind() != reflect.Interface {
		panic(fmt.Sprintf("choice: BindRoot requires an interface type, got %s", t))
	}
	rootsMu.Lock()
	defer rootsMu.Unlock()
	if existing, ok := roots[t]; ok {
		if existing == r {
			return
		}
		panic(fmt.Sprintf("choice: %s is already bound to a different registry", t))
	}
	roots[t] = r
}

// RootRegistry returns the registry bound to the given interface type, if
// any.
func RootRegistry(t reflect.Type) (*Registry, bool) {
	rootsMu.RLock()
	defer rootsMu.RUnlock()
	r, ok := roots[t]
	return r, ok
}

// implementsRoot reports whether t implements any interface bound to r.
func implementsRoot(r *Registry, t reflect.Type) bool {
	rootsMu.RLock()
	defer rootsMu.RUnlock()
	for iface, reg := range roots {
		if reg == r && t.Implements(iface) {
			return true
		}
	}
	return false
}

// resetRoots clears the root index (for tests only).
func resetRoots() {
	rootsMu.Lock()
	defer rootsMu.Unlock()
	roots = make(map[reflect.Type]*Registry)
}
