package codec

import (
	"fmt"
	"reflect"
	"sync"
)

type entry struct {
	typ     reflect.Type
	rebuild RebuildFunc
}

// Registry maps stable type ids to reconstructible types. It is populated
// during start-up and sealed by the first Decode; registering afterwards
// fails with ErrSealed.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]entry
	byType map[reflect.Type]string
	sealed bool
}

// NewRegistry returns a registry that already knows the builtin primitive and
// container types, so they can be used as type references.
func NewRegistry() *Registry {
	r := &Registry{
		byID:   make(map[string]entry),
		byType: make(map[reflect.Type]string),
	}
	builtins := []struct {
		id  string
		typ reflect.Type
	}{
		{"bool", reflect.TypeFor[bool]()},
		{"int", reflect.TypeFor[int]()},
		{"float64", reflect.TypeFor[float64]()},
		{"string", reflect.TypeFor[string]()},
		{"[]any", reflect.TypeFor[[]any]()},
		{mapID, reflect.TypeFor[map[string]any]()},
	}
	for _, b := range builtins {
		r.byID[b.id] = entry{typ: b.typ}
		r.byType[b.typ] = b.id
	}
	return r
}

// Register binds id to typ. A nil rebuild registers a type that can be
// referenced (for example an interface used as a collection base) but not
// reconstructed from a record.
func (r *Registry) Register(id string, typ reflect.Type, rebuild RebuildFunc) error {
	if id == "" || id == typeRefID || typ == nil {
		return fmt.Errorf("codec: invalid registration %q", id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrSealed, id)
	}
	if prev, ok := r.byID[id]; ok && prev.typ != typ {
		return fmt.Errorf("codec: type id %q already bound to %s", id, prev.typ)
	}
	r.byID[id] = entry{typ: typ, rebuild: rebuild}
	if _, ok := r.byType[typ]; !ok {
		r.byType[typ] = id
	}
	return nil
}

// RegisterType registers a referenceable, non-reconstructible type.
func (r *Registry) RegisterType(id string, typ reflect.Type) error {
	return r.Register(id, typ, nil)
}

// Register binds id to T with a typed rebuild function.
func Register[T any](r *Registry, id string, rebuild func(fields map[string]any) (T, error)) error {
	return r.Register(id, reflect.TypeFor[T](), func(fields map[string]any) (any, error) {
		v, err := rebuild(fields)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// MustRegister is Register for init functions.
func MustRegister[T any](r *Registry, id string, rebuild func(fields map[string]any) (T, error)) {
	if err := Register(r, id, rebuild); err != nil {
		panic(err)
	}
}

// Seal stops further registration. Decode seals implicitly.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// ResolveType returns the type registered under id.
func (r *Registry) ResolveType(id string) (reflect.Type, error) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLookup, id)
	}
	return e.typ, nil
}

// TypeName returns the id registered for typ, or its Go qualified name when
// the type is unknown. The latter will not decode.
func (r *Registry) TypeName(typ reflect.Type) string {
	r.mu.RLock()
	id, ok := r.byType[typ]
	r.mu.RUnlock()
	if ok {
		return id
	}
	return qualifiedName(typ)
}

func (r *Registry) lookup(id string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	return e, ok
}
