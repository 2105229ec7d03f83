package grid

import (
	"fmt"

	"github.com/brensch/mazewar/codec"
)

// TypeID is shared by every instantiation; decoding yields *Grid[any].
const TypeID = "grid.Grid"

func init() {
	if err := RegisterTypes(codec.Default); err != nil {
		panic(err)
	}
}

// RegisterTypes makes grids decodable by r.
func RegisterTypes(r *codec.Registry) error {
	return codec.Register(r, TypeID, FromFields)
}

func (g *Grid[T]) TypeID() string { return TypeID }

func (g *Grid[T]) Reduce() map[string]any {
	data := make([]any, len(g.data))
	for i, v := range g.data {
		data[i] = v
	}
	return map[string]any{"width": g.width, "height": g.height, "data": data}
}

// FromFields rebuilds a grid from its decoded field map.
func FromFields(fields map[string]any) (*Grid[any], error) {
	w, err := codec.Int(fields, "width")
	if err != nil {
		return nil, err
	}
	h, err := codec.Int(fields, "height")
	if err != nil {
		return nil, err
	}
	if w < 0 || h < 0 {
		return nil, fmt.Errorf("%w: negative size %dx%d", ErrSizeMismatch, w, h)
	}
	data, ok := fields["data"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrType, fields["data"])
	}
	return NewWithData(w, h, data)
}

// Convert narrows the cells of a decoded grid to T.
func Convert[T any](g *Grid[any]) (*Grid[T], error) {
	out := New[T](g.width, g.height)
	for i, v := range g.data {
		if v == nil {
			continue
		}
		t, ok := v.(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("%w: cell %d is %T, want %T", ErrType, i, v, zero)
		}
		out.data[i] = t
	}
	return out, nil
}
