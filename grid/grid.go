// Package grid provides a fixed-size, row-major 2D container.
package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"reflect"
	"strings"
)

var (
	ErrOutOfBounds  = errors.New("grid: coordinate out of bounds")
	ErrSizeMismatch = errors.New("grid: data size mismatch")
	ErrType         = errors.New("grid: data is not a sequence")
)

// Coord is a grid coordinate. (0,0) is the top-left cell and y grows downwards.
type Coord struct {
	X int
	Y int
}

func (c Coord) String() string { return fmt.Sprintf("(%d, %d)", c.X, c.Y) }

// Add returns c translated by (dx, dy).
func (c Coord) Add(dx, dy int) Coord { return Coord{X: c.X + dx, Y: c.Y + dy} }

// Grid stores width*height cells, x varying fastest.
type Grid[T any] struct {
	width  int
	height int
	data   []T
}

// New returns a grid with every cell set to the zero value of T.
func New[T any](width, height int) *Grid[T] {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("grid: negative size %dx%d", width, height))
	}
	return &Grid[T]{width: width, height: height, data: make([]T, width*height)}
}

// NewWithData returns a grid backed by a copy of data.
func NewWithData[T any](width, height int, data []T) (*Grid[T], error) {
	g := New[T](width, height)
	if err := g.SetData(data); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grid[T]) Width() int        { return g.width }
func (g *Grid[T]) Height() int       { return g.height }
func (g *Grid[T]) Len() int          { return len(g.data) }
func (g *Grid[T]) Shape() (int, int) { return g.width, g.height }

func (g *Grid[T]) InBounds(c Coord) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.width && c.Y < g.height
}

// CoordToIndex converts a coordinate into a linear offset.
func (g *Grid[T]) CoordToIndex(c Coord) (int, error) {
	if !g.InBounds(c) {
		return 0, fmt.Errorf("%w: %v in %dx%d", ErrOutOfBounds, c, g.width, g.height)
	}
	return c.Y*g.width + c.X, nil
}

// IndexToCoord converts a linear offset into a coordinate.
func (g *Grid[T]) IndexToCoord(i int) (Coord, error) {
	if i < 0 || i >= len(g.data) {
		return Coord{}, fmt.Errorf("%w: index %d in %dx%d", ErrOutOfBounds, i, g.width, g.height)
	}
	return Coord{X: i % g.width, Y: i / g.width}, nil
}

func (g *Grid[T]) At(c Coord) (T, error) {
	i, err := g.CoordToIndex(c)
	if err != nil {
		var zero T
		return zero, err
	}
	return g.data[i], nil
}

func (g *Grid[T]) Set(c Coord, v T) error {
	i, err := g.CoordToIndex(c)
	if err != nil {
		return err
	}
	g.data[i] = v
	return nil
}

// Keys returns every coordinate in row-major order.
func (g *Grid[T]) Keys() []Coord {
	keys := make([]Coord, 0, len(g.data))
	for c := range g.All() {
		keys = append(keys, c)
	}
	return keys
}

// All iterates over coordinates and cells in row-major order.
func (g *Grid[T]) All() iter.Seq2[Coord, T] {
	return func(yield func(Coord, T) bool) {
		for i, v := range g.data {
			if !yield(Coord{X: i % g.width, Y: i / g.width}, v) {
				return
			}
		}
	}
}

// Values returns a copy of the backing data.
func (g *Grid[T]) Values() []T {
	out := make([]T, len(g.data))
	copy(out, g.data)
	return out
}

// SetData replaces the backing data. The length must be width*height.
func (g *Grid[T]) SetData(data []T) error {
	if len(data) != g.width*g.height {
		return fmt.Errorf("%w: got %d cells, want %d", ErrSizeMismatch, len(data), g.width*g.height)
	}
	g.data = make([]T, len(data))
	copy(g.data, data)
	return nil
}

// Clone returns an independent copy. Cells that implement Clone() T are
// cloned as well.
func (g *Grid[T]) Clone() *Grid[T] {
	out := &Grid[T]{width: g.width, height: g.height, data: make([]T, len(g.data))}
	for i, v := range g.data {
		if c, ok := any(v).(interface{ Clone() T }); ok && !isNil(v) {
			out.data[i] = c.Clone()
			continue
		}
		out.data[i] = v
	}
	return out
}

// Equal reports whether both grids have the same shape and equal cells.
func (g *Grid[T]) Equal(other *Grid[T]) bool {
	if g == nil || other == nil {
		return g == other
	}
	if g.width != other.width || g.height != other.height {
		return false
	}
	for i := range g.data {
		if !cellEqual(g.data[i], other.data[i]) {
			return false
		}
	}
	return true
}

func cellEqual[T any](a, b T) bool {
	if e, ok := any(a).(interface{ Equal(T) bool }); ok && !isNil(a) {
		return e.Equal(b)
	}
	return reflect.DeepEqual(a, b)
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// String renders one literal sequence per row.
func (g *Grid[T]) String() string {
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		b.WriteByte('[')
		for x := 0; x < g.width; x++ {
			if x > 0 {
				b.WriteString(", ")
			}
			fmt.Fprint(&b, g.data[y*g.width+x])
		}
		b.WriteString("]\n")
	}
	return b.String()
}

// CompactString renders each row as the concatenation of its cells.
func (g *Grid[T]) CompactString() string {
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			fmt.Fprint(&b, g.data[y*g.width+x])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type canonical[T any] struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Data   []T `json:"data"`
}

// MarshalJSON writes the canonical {"width","height","data"} form.
func (g *Grid[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(canonical[T]{Width: g.width, Height: g.height, Data: g.data})
}

// UnmarshalJSON reads the canonical form.
func (g *Grid[T]) UnmarshalJSON(b []byte) error {
	var c canonical[T]
	if err := json.Unmarshal(b, &c); err != nil {
		return err
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: negative size %dx%d", ErrSizeMismatch, c.Width, c.Height)
	}
	if c.Data == nil {
		c.Data = make([]T, 0)
	}
	ng, err := NewWithData(c.Width, c.Height, c.Data)
	if err != nil {
		return err
	}
	*g = *ng
	return nil
}
