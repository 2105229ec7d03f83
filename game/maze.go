package game

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/brensch/mazewar/grid"
	"github.com/brensch/mazewar/layout"
	"github.com/brensch/mazewar/typed"
)

// Component is a marker that can occupy a maze cell. Several components may
// share one cell, e.g. Free and Food.
type Component interface {
	component()
}

type (
	Wall  struct{}
	Free  struct{}
	Food  struct{}
	Spawn struct{ Index int }
)

func (Wall) component()  {}
func (Free) component()  {}
func (Food) component()  {}
func (Spawn) component() {}

func (Wall) String() string    { return "#" }
func (Free) String() string    { return " " }
func (Food) String() string    { return "." }
func (s Spawn) String() string { return fmt.Sprintf("spawn %d", s.Index) }

var componentType = reflect.TypeFor[Component]()

// NewCell returns an empty cell list constrained to Component.
func NewCell(cs ...Component) *typed.List {
	l, _ := typed.New(componentType)
	for _, c := range cs {
		l.Append(c)
	}
	return l
}

// Maze is the static geometry plus the food left on the board. It exposes no
// mutators; food is only removed through Tx.EatFood on a private copy.
type Maze struct {
	cells *grid.Grid[*typed.List]
}

// NewMaze wraps a grid of component lists. Every cell must hold a list based
// on Component.
func NewMaze(cells *grid.Grid[*typed.List]) (*Maze, error) {
	for c, l := range cells.All() {
		if l == nil || l.Base() != componentType {
			return nil, fmt.Errorf("%w: cell %v is not a component list", ErrInvariant, c)
		}
	}
	return &Maze{cells: cells}, nil
}

// MazeFromLayout builds a maze from a parsed layout. Spawn markers are kept
// on their cells.
func MazeFromLayout(l *layout.Layout) *Maze {
	cells := grid.New[*typed.List](l.Width(), l.Height())
	for c, ch := range l.Cells.All() {
		switch ch {
		case layout.Wall:
			cells.Set(c, NewCell(Wall{}))
		case layout.Food:
			cells.Set(c, NewCell(Free{}, Food{}))
		default:
			cells.Set(c, NewCell(Free{}))
		}
	}
	for i, c := range l.Spawns {
		cell, _ := cells.At(c)
		cell.Append(Spawn{Index: i})
	}
	return &Maze{cells: cells}
}

func (m *Maze) Width() int        { return m.cells.Width() }
func (m *Maze) Height() int       { return m.cells.Height() }
func (m *Maze) Shape() (int, int) { return m.cells.Shape() }

func (m *Maze) InBounds(c grid.Coord) bool { return m.cells.InBounds(c) }

// Has reports whether the cell at c holds a component of type t. Out of
// bounds cells hold nothing.
func (m *Maze) Has(c grid.Coord, t reflect.Type) bool {
	l, err := m.cells.At(c)
	if err != nil {
		return false
	}
	ok, _ := l.Contains(typed.Type(t))
	return ok
}

// IsWall treats everything outside the maze as wall.
func (m *Maze) IsWall(c grid.Coord) bool {
	return !m.InBounds(c) || m.Has(c, reflect.TypeFor[Wall]())
}

func (m *Maze) HasFood(c grid.Coord) bool { return m.Has(c, reflect.TypeFor[Food]()) }

// Components returns a copy of the markers at c.
func (m *Maze) Components(c grid.Coord) ([]Component, error) {
	l, err := m.cells.At(c)
	if err != nil {
		return nil, err
	}
	items := l.Items()
	out := make([]Component, len(items))
	for i, v := range items {
		out[i] = v.(Component)
	}
	return out, nil
}

// Positions lists every non-wall cell in row-major order.
func (m *Maze) Positions() []grid.Coord {
	var out []grid.Coord
	for c := range m.cells.All() {
		if !m.IsWall(c) {
			out = append(out, c)
		}
	}
	return out
}

// FoodList lists every food cell in row-major order.
func (m *Maze) FoodList() []grid.Coord {
	var out []grid.Coord
	for c := range m.cells.All() {
		if m.HasFood(c) {
			out = append(out, c)
		}
	}
	return out
}

// Cells returns a deep copy of the underlying grid.
func (m *Maze) Cells() *grid.Grid[*typed.List] { return m.cells.Clone() }

func (m *Maze) Clone() *Maze { return &Maze{cells: m.cells.Clone()} }

func (m *Maze) Equal(other *Maze) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.cells.Equal(other.cells)
}

func (m *Maze) removeFood(c grid.Coord) bool {
	l, err := m.cells.At(c)
	if err != nil {
		return false
	}
	if ok, _ := l.Contains(typed.Type(reflect.TypeFor[Food]())); !ok {
		return false
	}
	l.RemoveType(reflect.TypeFor[Food]())
	return true
}

// String renders the maze in layout notation, without bots.
func (m *Maze) String() string {
	var b strings.Builder
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			c := grid.Coord{X: x, Y: y}
			switch {
			case m.IsWall(c):
				b.WriteRune(layout.Wall)
			case m.HasFood(c):
				b.WriteRune(layout.Food)
			default:
				b.WriteRune(layout.Free)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
