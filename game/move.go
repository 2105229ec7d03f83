package game

import (
	"fmt"
	"strings"

	"github.com/brensch/mazewar/grid"
)

// Move is one step of a bot. North decreases y.
type Move int

const (
	Stop Move = iota
	North
	South
	West
	East
)

// Moves lists every move in the order legal-move queries report them.
var Moves = []Move{North, South, West, East, Stop}

var moveNames = [...]string{"stop", "north", "south", "west", "east"}

var moveAliases = map[string]Move{
	"stay":  Stop,
	"up":    North,
	"down":  South,
	"left":  West,
	"right": East,
}

func (m Move) String() string {
	if m < 0 || int(m) >= len(moveNames) {
		return fmt.Sprintf("Move(%d)", int(m))
	}
	return moveNames[m]
}

// Delta returns the coordinate offset of the move.
func (m Move) Delta() (dx, dy int) {
	switch m {
	case North:
		return 0, -1
	case South:
		return 0, 1
	case West:
		return -1, 0
	case East:
		return 1, 0
	}
	return 0, 0
}

// Apply returns the position reached from c.
func (m Move) Apply(c grid.Coord) grid.Coord {
	dx, dy := m.Delta()
	return c.Add(dx, dy)
}

// ParseMove accepts the canonical names and the stay/up/down/left/right aliases.
func ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range moveNames {
		if n == s {
			return Move(i), nil
		}
	}
	if m, ok := moveAliases[s]; ok {
		return m, nil
	}
	return Stop, fmt.Errorf("game: unknown move %q", s)
}

// MoveBetween returns the move leading from one coordinate to an adjacent one.
func MoveBetween(from, to grid.Coord) (Move, bool) {
	for _, m := range Moves {
		if m.Apply(from) == to {
			return m, true
		}
	}
	return Stop, false
}

func (m Move) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Move) UnmarshalText(b []byte) error {
	mv, err := ParseMove(string(b))
	if err != nil {
		return err
	}
	*m = mv
	return nil
}
