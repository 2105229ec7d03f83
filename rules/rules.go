// Package rules holds move legality and the capture-the-flag variant.
package rules

import (
	"errors"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/grid"
)

// ErrIllegalMove is returned for a move into a wall or off the board.
var ErrIllegalMove = errors.New("rules: illegal move")

// MoveTarget pairs a move with the cell it leads to.
type MoveTarget struct {
	Move   game.Move
	Target grid.Coord
}

// LegalMoves returns the legal moves from pos in game.Moves order. Stop is
// always legal from a free cell; a wall or off-board pos has no moves.
func LegalMoves(maze *game.Maze, pos grid.Coord) []MoveTarget {
	if maze.IsWall(pos) {
		return nil
	}
	moves := make([]MoveTarget, 0, len(game.Moves))
	for _, m := range game.Moves {
		p := m.Apply(pos)
		if isSafe(maze, p) {
			moves = append(moves, MoveTarget{Move: m, Target: p})
		}
	}
	return moves
}

func isSafe(maze *game.Maze, p grid.Coord) bool {
	return maze.InBounds(p) && !maze.IsWall(p)
}

// IsLegal reports whether move is legal for a bot standing on pos.
func IsLegal(maze *game.Maze, pos grid.Coord, move game.Move) bool {
	for _, mt := range LegalMoves(maze, pos) {
		if mt.Move == move {
			return true
		}
	}
	return false
}

// Adjacency maps every free cell to the cells reachable in one legal move,
// the cell itself included. It is built once from the static maze and must
// not be modified.
type Adjacency struct {
	order []grid.Coord
	next  map[grid.Coord][]grid.Coord
}

// NewAdjacency builds the adjacency of maze. Cells are ordered row-major and
// neighbours in game.Moves order.
func NewAdjacency(maze *game.Maze) *Adjacency {
	a := &Adjacency{next: make(map[grid.Coord][]grid.Coord)}
	for _, pos := range maze.Positions() {
		moves := LegalMoves(maze, pos)
		targets := make([]grid.Coord, len(moves))
		for i, mt := range moves {
			targets[i] = mt.Target
		}
		a.order = append(a.order, pos)
		a.next[pos] = targets
	}
	return a
}

func (a *Adjacency) Len() int { return len(a.order) }

// Positions returns the cells in insertion order.
func (a *Adjacency) Positions() []grid.Coord { return append([]grid.Coord(nil), a.order...) }

// Neighbors returns the cells reachable from c, or nil for a wall.
func (a *Adjacency) Neighbors(c grid.Coord) []grid.Coord {
	return append([]grid.Coord(nil), a.next[c]...)
}

func (a *Adjacency) Contains(c grid.Coord) bool {
	_, ok := a.next[c]
	return ok
}

// Adjacent reports whether to is one legal move from from.
func (a *Adjacency) Adjacent(from, to grid.Coord) bool {
	for _, n := range a.next[from] {
		if n == to {
			return true
		}
	}
	return false
}

// ShortestPath runs a breadth-first search from start and returns the path
// to the first goal reached, excluding start. Among equally short routes the
// one through the most recently visited cells wins. A start that is itself a
// goal yields an empty path and true; no reachable goal yields nil and false.
func (a *Adjacency) ShortestPath(start grid.Coord, goals []grid.Coord) ([]grid.Coord, bool) {
	if !a.Contains(start) {
		return nil, false
	}
	isGoal := make(map[grid.Coord]bool, len(goals))
	for _, g := range goals {
		isGoal[g] = true
	}
	if isGoal[start] {
		return []grid.Coord{}, true
	}

	dist := map[grid.Coord]int{start: 0}
	visit := map[grid.Coord]int{}
	queue := []grid.Coord{start}
	var found grid.Coord
	reached := false
	for len(queue) > 0 && !reached {
		cur := queue[0]
		queue = queue[1:]
		visit[cur] = len(visit)
		if isGoal[cur] {
			found, reached = cur, true
			continue
		}
		for _, n := range a.next[cur] {
			if _, seen := dist[n]; !seen {
				dist[n] = dist[cur] + 1
				queue = append(queue, n)
			}
		}
	}
	if !reached {
		return nil, false
	}

	path := make([]grid.Coord, dist[found])
	cur := found
	for i := len(path) - 1; i >= 0; i-- {
		path[i] = cur
		best, bestVisit := cur, -1
		for _, n := range a.next[cur] {
			v, ok := visit[n]
			if ok && dist[n] == dist[cur]-1 && v > bestVisit {
				best, bestVisit = n, v
			}
		}
		cur = best
	}
	return path, true
}
