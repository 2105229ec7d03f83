// Package player defines the agent contract and the reference agents.
//
// The referee calls Init once when an agent takes a slot and GetMove once per
// round. Both receive a View: the current snapshot, the snapshot the agent saw
// on its previous call and derived conveniences. Snapshots are immutable, so
// an agent may keep them around.
package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/grid"
	"github.com/brensch/mazewar/rules"
)

// Agent decides the moves of one bot.
type Agent interface {
	Init(ctx context.Context, v View) error
	GetMove(ctx context.Context, v View) (game.Move, error)
}

// ErrNoMoves is returned by a Scripted agent that ran out of moves.
var ErrNoMoves = errors.New("player: no moves left")

// View is what an agent sees of the game. Previous is nil on the first call.
type View struct {
	Index    int
	Current  *game.Universe
	Previous *game.Universe
}

func (v View) Me() game.Bot { return v.Current.Bot(v.Index) }

// TeamBots returns the teammates of this bot, itself excluded.
func (v View) TeamBots() []game.Bot {
	var out []game.Bot
	for _, b := range v.Current.TeamBots(v.Me().TeamIndex) {
		if b.Index != v.Index {
			out = append(out, b)
		}
	}
	return out
}

func (v View) EnemyBots() []game.Bot  { return v.Current.EnemyBots(v.Me().TeamIndex) }
func (v View) CurrentPos() grid.Coord { return v.Me().CurrentPos }
func (v View) InitialPos() grid.Coord { return v.Me().InitialPos }

// PreviousPos is the position this bot had on the previous call.
func (v View) PreviousPos() (grid.Coord, bool) {
	if v.Previous == nil {
		return grid.Coord{}, false
	}
	return v.Previous.Bot(v.Index).CurrentPos, true
}

func (v View) LegalMoves() []rules.MoveTarget {
	return rules.LegalMoves(v.Current.Maze(), v.CurrentPos())
}

func (v View) TeamFood() []grid.Coord  { return v.Current.TeamFood(v.Me().TeamIndex) }
func (v View) EnemyFood() []grid.Coord { return v.Current.EnemyFood(v.Me().TeamIndex) }

// Validate checks that the view refers to a bot of its snapshots.
func (v View) Validate() error {
	if v.Current == nil {
		return fmt.Errorf("player: view without universe")
	}
	if v.Index < 0 || v.Index >= v.Current.NumBots() {
		return fmt.Errorf("player: view for bot %d of %d", v.Index, v.Current.NumBots())
	}
	if v.Previous != nil && v.Previous.NumBots() != v.Current.NumBots() {
		return fmt.Errorf("player: previous universe has %d bots, want %d", v.Previous.NumBots(), v.Current.NumBots())
	}
	return nil
}

// Stopping never moves.
type Stopping struct{}

func (Stopping) Init(context.Context, View) error { return nil }

func (Stopping) GetMove(context.Context, View) (game.Move, error) { return game.Stop, nil }

// Scripted plays a fixed list of moves, then fails with ErrNoMoves.
type Scripted struct {
	moves []game.Move
	next  int
}

func NewScripted(moves ...game.Move) *Scripted {
	return &Scripted{moves: append([]game.Move(nil), moves...)}
}

func (s *Scripted) Init(context.Context, View) error { return nil }

func (s *Scripted) GetMove(context.Context, View) (game.Move, error) {
	if s.next >= len(s.moves) {
		return game.Stop, ErrNoMoves
	}
	m := s.moves[s.next]
	s.next++
	return m, nil
}
