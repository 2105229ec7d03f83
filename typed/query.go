package typed

import (
	"fmt"
	"reflect"
)

// Query selects elements either by value or by type.
type Query struct {
	value  any
	typ    reflect.Type
	byType bool
}

// Value matches elements deeply equal to v.
func Value(v any) Query { return Query{value: v} }

// Type matches elements whose type is t or implements it.
func Type(t reflect.Type) Query { return Query{typ: t, byType: true} }

// TypeOf is Type(reflect.TypeFor[T]()).
func TypeOf[T any]() Query { return Type(reflect.TypeFor[T]()) }

func (q Query) String() string {
	if q.byType {
		return fmt.Sprintf("type %v", q.typ)
	}
	return fmt.Sprintf("value %v", q.value)
}
