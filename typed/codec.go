package typed

import (
	"github.com/brensch/mazewar/codec"
)

const TypeID = "typed.List"

func init() {
	if err := RegisterTypes(codec.Default); err != nil {
		panic(err)
	}
}

// RegisterTypes makes lists decodable by r.
func RegisterTypes(r *codec.Registry) error {
	return codec.Register(r, TypeID, FromFields)
}

func (l *List) TypeID() string { return TypeID }

// Reduce writes the base as a type reference so decoding can restore the
// constraint; an unregistered base fails to decode.
func (l *List) Reduce() map[string]any {
	var base any
	if l.base != nil {
		base = l.base
	}
	return map[string]any{"base": base, "items": l.Items()}
}

// FromFields rebuilds a list from its decoded field map.
func FromFields(fields map[string]any) (*List, error) {
	base, err := codec.Type(fields, "base")
	if err != nil {
		return nil, err
	}
	items, err := codec.List(fields, "items")
	if err != nil {
		return nil, err
	}
	return New(base, items...)
}
