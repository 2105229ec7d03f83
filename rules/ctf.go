package rules

import (
	"fmt"

	"github.com/brensch/mazewar/game"
)

const (
	FoodPoints = 1
	KillPoints = 5
)

// CTF is the capture-the-flag variant: harvesters eat enemy food, destroyers
// send harvesters home.
type CTF struct{}

// Apply moves bot and resolves food and collisions on a new snapshot. An
// illegal move returns ErrIllegalMove and leaves u untouched.
func (CTF) Apply(u *game.Universe, bot int, move game.Move) (*game.Universe, []game.Event, error) {
	if bot < 0 || bot >= u.NumBots() {
		return u, nil, fmt.Errorf("rules: no bot %d", bot)
	}
	me := u.Bot(bot)
	if !IsLegal(u.Maze(), me.CurrentPos, move) {
		return u, nil, fmt.Errorf("%w: bot %d %s from %v", ErrIllegalMove, bot, move, me.CurrentPos)
	}
	target := move.Apply(me.CurrentPos)

	var events []game.Event
	ev := func(kind game.EventKind, b, team, points int) {
		events = append(events, game.Event{
			Kind: kind, Round: u.Round(), Bot: b, Team: team,
			Pos: target, Move: move, Points: points,
		})
	}

	next, err := u.Update(func(tx *game.Tx) error {
		if err := tx.MoveBot(bot, target); err != nil {
			return err
		}
		if move != game.Stop {
			ev(game.BotMoved, bot, me.TeamIndex, 0)
		}
		me = tx.Bot(bot)

		if me.IsHarvester() && tx.Universe().Maze().HasFood(target) {
			if err := tx.EatFood(target); err != nil {
				return err
			}
			if err := tx.AddScore(me.TeamIndex, FoodPoints); err != nil {
				return err
			}
			ev(game.FoodEaten, bot, me.TeamIndex, FoodPoints)
		}

		for _, other := range tx.Universe().BotsAt(target) {
			if other.TeamIndex == me.TeamIndex {
				continue
			}
			switch {
			case me.IsHarvester() && other.IsDestroyer():
				if err := tx.ResetBot(bot); err != nil {
					return err
				}
				if err := tx.AddScore(other.TeamIndex, KillPoints); err != nil {
					return err
				}
				ev(game.BotDestroyed, bot, other.TeamIndex, KillPoints)
				return nil
			case me.IsDestroyer() && other.IsHarvester():
				if err := tx.ResetBot(other.Index); err != nil {
					return err
				}
				if err := tx.AddScore(me.TeamIndex, KillPoints); err != nil {
					return err
				}
				ev(game.BotDestroyed, other.Index, me.TeamIndex, KillPoints)
			}
		}
		return nil
	})
	if err != nil {
		return u, nil, err
	}
	return next, events, nil
}

// Finished reports whether some team has no food left to defend.
func (CTF) Finished(u *game.Universe) bool {
	for i := 0; i < u.NumTeams(); i++ {
		if len(u.TeamFood(i)) == 0 {
			return true
		}
	}
	return false
}
