package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Decode rebuilds a value from a tagged tree. The first call seals the
// registry.
func (r *Registry) Decode(tree any) (any, error) {
	r.mu.RLock()
	sealed := r.sealed
	r.mu.RUnlock()
	if !sealed {
		r.Seal()
	}
	return r.decode(tree)
}

func (r *Registry) decode(tree any) (any, error) {
	switch x := tree.(type) {
	case nil, bool, string, int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return x, nil
	case json.Number:
		return decodeNumber(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			d, err := r.decode(e)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case map[string]any:
		if id, payload, ok := tagged(x); ok {
			return r.decodeObject(id, payload)
		}
		return r.decodeFields(x)
	}
	return nil, fmt.Errorf("%w: %T in tree", ErrUnsupported, tree)
}

func (r *Registry) decodeFields(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, e := range m {
		d, err := r.decode(e)
		if err != nil {
			return nil, err
		}
		out[k] = d
	}
	return out, nil
}

func tagged(m map[string]any) (string, any, bool) {
	if len(m) != 2 {
		return "", nil, false
	}
	id, ok := m[KeyTypeID].(string)
	if !ok {
		return "", nil, false
	}
	payload, ok := m[KeyValue]
	return id, payload, ok
}

func (r *Registry) decodeObject(id string, payload any) (any, error) {
	if id == typeRefID {
		name, ok := payload.(string)
		if !ok {
			return nil, fmt.Errorf("%w: type reference %T", ErrUnsupported, payload)
		}
		return r.ResolveType(name)
	}
	if id == mapID {
		raw, ok := payload.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: payload of %q is %T", ErrUnsupported, id, payload)
		}
		return r.decodeFields(raw)
	}
	e, ok := r.lookup(id)
	if !ok || e.rebuild == nil {
		return nil, fmt.Errorf("%w: %q", ErrLookup, id)
	}
	raw, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: payload of %q is %T", ErrUnsupported, id, payload)
	}
	fields := make(map[string]any, len(raw))
	for k, fv := range raw {
		d, err := r.decode(fv)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", id, k, err)
		}
		fields[k] = d
	}
	v, err := e.rebuild(fields)
	if err != nil {
		return nil, fmt.Errorf("codec: rebuild %q: %w", id, err)
	}
	return v, nil
}

func decodeNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: number %q", ErrUnsupported, s)
	}
	return f, nil
}
