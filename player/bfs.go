package player

import (
	"context"
	"fmt"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/grid"
	"github.com/brensch/mazewar/rules"
)

// BFS walks the shortest path to the nearest enemy food.
//
// The adjacency is built once in Init. The planned path is kept between
// rounds and consumed one step per call; it is recomputed when it runs out or
// when the bot is not where the last step should have taken it.
type BFS struct {
	adj      *rules.Adjacency
	path     []grid.Coord
	expected *grid.Coord
}

func NewBFS() *BFS { return &BFS{} }

func (b *BFS) Init(_ context.Context, v View) error {
	if err := v.Validate(); err != nil {
		return err
	}
	b.adj = rules.NewAdjacency(v.Current.Maze())
	b.expected = nil
	b.plan(v)
	return nil
}

// Adjacency returns the graph built in Init.
func (b *BFS) Adjacency() *rules.Adjacency { return b.adj }

// Path returns the remaining planned cells, next step first.
func (b *BFS) Path() []grid.Coord { return append([]grid.Coord(nil), b.path...) }

func (b *BFS) plan(v View) {
	path, ok := b.adj.ShortestPath(v.CurrentPos(), v.EnemyFood())
	if !ok {
		path = nil
	}
	b.path = path
}

func (b *BFS) GetMove(_ context.Context, v View) (game.Move, error) {
	if b.adj == nil {
		return game.Stop, fmt.Errorf("player: bfs agent used before Init")
	}
	pos := v.CurrentPos()
	if b.expected != nil && *b.expected != pos {
		b.path = nil
	}
	if len(b.path) == 0 || !b.adj.Adjacent(pos, b.path[0]) {
		b.plan(v)
	}
	if len(b.path) == 0 {
		b.expected = &pos
		return game.Stop, nil
	}

	next := b.path[0]
	b.path = b.path[1:]
	b.expected = &next
	m, ok := game.MoveBetween(pos, next)
	if !ok {
		return game.Stop, fmt.Errorf("player: planned step %v is not next to %v", next, pos)
	}
	return m, nil
}
