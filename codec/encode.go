package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Encode converts v into a tagged tree.
func (r *Registry) Encode(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string, json.Number:
		return x, nil
	case int:
		return x, nil
	case float64:
		return encodeFloat(x)
	case reflect.Type:
		return map[string]any{KeyTypeID: typeRefID, KeyValue: r.TypeName(x)}, nil
	case Reducer:
		if rv := reflect.ValueOf(x); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil
		}
		return r.encodeObject(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt {
			return nil, fmt.Errorf("%w: %d overflows int", ErrUnsupported, u)
		}
		return int(u), nil
	case reflect.Float32, reflect.Float64:
		return encodeFloat(rv.Float())
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			e, err := r.Encode(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = e
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key %s", ErrUnsupported, rv.Type().Key())
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			e, err := r.Encode(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = e
		}
		if _, _, ok := tagged(out); ok {
			return map[string]any{KeyTypeID: mapID, KeyValue: out}, nil
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return r.Encode(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
}

func (r *Registry) encodeObject(x Reducer) (any, error) {
	var id string
	if ider, ok := x.(Identifier); ok {
		id = ider.TypeID()
	} else {
		id = r.TypeName(reflect.TypeOf(x))
	}
	fields := x.Reduce()
	value := make(map[string]any, len(fields))
	for k, fv := range fields {
		e, err := r.Encode(fv)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", id, k, err)
		}
		value[k] = e
	}
	return map[string]any{KeyTypeID: id, KeyValue: value}, nil
}

// encodeFloat keeps a decimal point or exponent in the text so the value
// decodes as a float even when it is integral.
func encodeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return json.Number(s), nil
}
