package player

import (
	"context"
	"math/rand"

	"github.com/brensch/mazewar/game"
)

// Random picks uniformly among the legal moves. The same seed replays the
// same game.
type Random struct {
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Init(context.Context, View) error { return nil }

func (r *Random) GetMove(_ context.Context, v View) (game.Move, error) {
	moves := v.LegalMoves()
	if len(moves) == 0 {
		return game.Stop, nil
	}
	return moves[r.rng.Intn(len(moves))].Move, nil
}
