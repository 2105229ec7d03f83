package codec

import (
	"fmt"
	"reflect"
)

// Int reads an integer field from a decoded field map.
func Int(fields map[string]any, key string) (int, error) {
	v, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q missing", ErrField, key)
	}
	i, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("%w: %q is %T, want int", ErrField, key, v)
	}
	return i, nil
}

// String reads a string field.
func String(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %q missing", ErrField, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrField, key, v)
	}
	return s, nil
}

// List reads a sequence field.
func List(fields map[string]any, key string) ([]any, error) {
	v, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q missing", ErrField, key)
	}
	l, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, want list", ErrField, key, v)
	}
	return l, nil
}

// Ints reads a sequence field of integers.
func Ints(fields map[string]any, key string) ([]int, error) {
	l, err := List(fields, key)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(l))
	for i, e := range l {
		n, ok := e.(int)
		if !ok {
			return nil, fmt.Errorf("%w: %q[%d] is %T, want int", ErrField, key, i, e)
		}
		out[i] = n
	}
	return out, nil
}

// Type reads a type reference field; a null reference yields nil.
func Type(fields map[string]any, key string) (reflect.Type, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, nil
	}
	t, ok := v.(reflect.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, want type", ErrField, key, v)
	}
	return t, nil
}
