// Package typed provides an ordered collection constrained to a base type.
//
// Lookups take an explicit Query: either a concrete value, matched by deep
// equality, or a type, matched against each element's dynamic type. A type
// matches when it is the element's type or, for interface types, when the
// element implements it.
package typed

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrType is returned for a query that is neither a value of the base
	// type nor a type.
	ErrType = errors.New("typed: not a value of the base type or a type")
	// ErrValue is returned when an inserted value violates the base type.
	ErrValue = errors.New("typed: value does not satisfy base type")
	// ErrNotFound is returned by Index when nothing matches.
	ErrNotFound = errors.New("typed: no matching element")
	// ErrOutOfRange is returned for positions outside the list.
	ErrOutOfRange = errors.New("typed: index out of range")
)

// List is an ordered collection of values. A nil base leaves it unconstrained.
type List struct {
	base  reflect.Type
	items []any
}

// New returns a list constrained to base holding items.
func New(base reflect.Type, items ...any) (*List, error) {
	l := &List{base: base, items: make([]any, 0, len(items))}
	for _, v := range items {
		if err := l.Append(v); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Of returns a list whose base is T. Every item satisfies T by construction.
func Of[T any](items ...T) *List {
	l := &List{base: reflect.TypeFor[T](), items: make([]any, len(items))}
	for i, v := range items {
		l.items[i] = v
	}
	return l
}

// IsDerivative reports whether t is base or, for an interface base, implements it.
func IsDerivative(t, base reflect.Type) bool {
	if t == nil || base == nil {
		return false
	}
	if t == base {
		return true
	}
	return base.Kind() == reflect.Interface && t.Implements(base)
}

func (l *List) Base() reflect.Type { return l.base }
func (l *List) Len() int           { return len(l.items) }

func (l *List) admits(v any) bool {
	if l.base == nil {
		return true
	}
	return IsDerivative(reflect.TypeOf(v), l.base)
}

func (l *List) Append(v any) error {
	if !l.admits(v) {
		return fmt.Errorf("%w: %T is not %v", ErrValue, v, l.base)
	}
	l.items = append(l.items, v)
	return nil
}

func (l *List) Get(i int) (any, error) {
	if i < 0 || i >= len(l.items) {
		return nil, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(l.items))
	}
	return l.items[i], nil
}

func (l *List) Set(i int, v any) error {
	if i < 0 || i >= len(l.items) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, i, len(l.items))
	}
	if !l.admits(v) {
		return fmt.Errorf("%w: %T is not %v", ErrValue, v, l.base)
	}
	l.items[i] = v
	return nil
}

// Items returns a copy of the elements.
func (l *List) Items() []any {
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Index returns the position of the first element matching q.
func (l *List) Index(q Query) (int, error) {
	match, err := l.matcher(q)
	if err != nil {
		return -1, err
	}
	for i, v := range l.items {
		if match(v) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %v", ErrNotFound, q)
}

// Contains reports whether any element matches q.
func (l *List) Contains(q Query) (bool, error) {
	_, err := l.Index(q)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// FilterType returns every element whose type matches t, in order.
func (l *List) FilterType(t reflect.Type) ([]any, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrType)
	}
	out := []any{}
	for _, v := range l.items {
		if IsDerivative(reflect.TypeOf(v), t) {
			out = append(out, v)
		}
	}
	return out, nil
}

// RemoveType deletes every element whose type matches t, keeping the order of
// the rest.
func (l *List) RemoveType(t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("%w: nil type", ErrType)
	}
	kept := l.items[:0]
	for _, v := range l.items {
		if !IsDerivative(reflect.TypeOf(v), t) {
			kept = append(kept, v)
		}
	}
	clear(l.items[len(kept):])
	l.items = kept
	return nil
}

func (l *List) matcher(q Query) (func(any) bool, error) {
	if q.byType {
		if q.typ == nil {
			return nil, fmt.Errorf("%w: nil type", ErrType)
		}
		return func(v any) bool { return IsDerivative(reflect.TypeOf(v), q.typ) }, nil
	}
	if !l.admits(q.value) {
		return nil, fmt.Errorf("%w: %T is not %v", ErrType, q.value, l.base)
	}
	return func(v any) bool { return reflect.DeepEqual(v, q.value) }, nil
}

// Clone returns a copy of the list. Elements are copied by value.
func (l *List) Clone() *List {
	return &List{base: l.base, items: l.Items()}
}

// Equal reports whether both lists share a base and hold equal elements.
func (l *List) Equal(other *List) bool {
	if l == nil || other == nil {
		return l == other
	}
	if l.base != other.base || len(l.items) != len(other.items) {
		return false
	}
	for i := range l.items {
		if !reflect.DeepEqual(l.items[i], other.items[i]) {
			return false
		}
	}
	return true
}

func (l *List) String() string {
	parts := make([]string, len(l.items))
	for i, v := range l.items {
		parts[i] = fmt.Sprint(v)
	}
	base := "nil"
	if l.base != nil {
		base = l.base.String()
	}
	return fmt.Sprintf("List[%s]{%s}", base, strings.Join(parts, ", "))
}
