// Package layout parses textual maze layouts.
//
// A layout is a rectangle of characters: '#' is a wall, '.' is food, ' ' is
// free space and a digit n marks the spawn position of bot n. Leading and
// trailing whitespace on each line is ignored, as are blank lines.
package layout

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/brensch/mazewar/grid"
)

const (
	Wall = '#'
	Food = '.'
	Free = ' '
)

var (
	ErrShape        = errors.New("layout: malformed shape")
	ErrMissingSpawn = errors.New("layout: missing bot spawn")
	ErrUnknownChar  = errors.New("layout: unknown character")
)

// Layout is the parsed maze: wall/food/free cells plus bot spawn positions.
type Layout struct {
	Cells  *grid.Grid[rune]
	Spawns []grid.Coord
}

func (l *Layout) Width() int   { return l.Cells.Width() }
func (l *Layout) Height() int  { return l.Cells.Height() }
func (l *Layout) NumBots() int { return len(l.Spawns) }

// Parse reads a layout with numBots bots. Digits that are not below numBots
// are treated as free space.
func Parse(text string, numBots int) (*Layout, error) {
	if numBots < 0 {
		return nil, fmt.Errorf("%w: %d bots", ErrShape, numBots)
	}
	var rows [][]rune
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rows = append(rows, []rune(line))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrShape)
	}

	width, height := len(rows[0]), len(rows)
	cells := grid.New[rune](width, height)
	spawns := make([]grid.Coord, numBots)
	seen := make([]bool, numBots)

	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrShape, y, len(row), width)
		}
		for x, ch := range row {
			c := grid.Coord{X: x, Y: y}
			switch {
			case ch == Wall || ch == Food || ch == Free:
				cells.Set(c, ch)
			case ch >= '0' && ch <= '9':
				cells.Set(c, Free)
				idx := int(ch - '0')
				if idx >= numBots {
					continue
				}
				if seen[idx] {
					return nil, fmt.Errorf("%w: bot %d placed twice", ErrShape, idx)
				}
				seen[idx] = true
				spawns[idx] = c
			default:
				return nil, fmt.Errorf("%w: %q at %v", ErrUnknownChar, ch, c)
			}
		}
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: bot %d", ErrMissingSpawn, i)
		}
	}
	return &Layout{Cells: cells, Spawns: spawns}, nil
}

// Load reads and parses a layout file.
func Load(path string, numBots int) (*Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	l, err := Parse(string(b), numBots)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// String renders the layout back to text, spawns included.
func (l *Layout) String() string {
	out := grid.New[rune](l.Width(), l.Height())
	out.SetData(l.Cells.Values())
	for i, c := range l.Spawns {
		if i < 10 {
			out.Set(c, rune('0'+i))
		}
	}
	var b strings.Builder
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			ch, _ := out.At(grid.Coord{X: x, Y: y})
			b.WriteRune(ch)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
