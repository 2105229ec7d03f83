package game

import (
	"fmt"

	"github.com/brensch/mazewar/grid"
)

type EventKind int

const (
	BotMoved EventKind = iota
	FoodEaten
	BotDestroyed
	IllegalMove
	Timeout
	AgentError
	TeamWins
	Draw
)

var eventNames = [...]string{
	"bot_moved", "food_eaten", "bot_destroyed", "illegal_move",
	"timeout", "agent_error", "team_wins", "draw",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventNames[k]
}

// Event records something that happened during a round. Fields that do not
// apply to the kind are left at -1 (Bot, Team) or zero.
type Event struct {
	Kind   EventKind
	Round  int
	Bot    int
	Team   int
	Pos    grid.Coord
	Move   Move
	Points int
	Detail string
}

func (e Event) String() string {
	switch e.Kind {
	case BotMoved:
		return fmt.Sprintf("round %d: bot %d moved %s to %v", e.Round, e.Bot, e.Move, e.Pos)
	case FoodEaten:
		return fmt.Sprintf("round %d: bot %d ate food at %v (+%d team %d)", e.Round, e.Bot, e.Pos, e.Points, e.Team)
	case BotDestroyed:
		return fmt.Sprintf("round %d: bot %d destroyed at %v (+%d team %d)", e.Round, e.Bot, e.Pos, e.Points, e.Team)
	case IllegalMove, Timeout, AgentError:
		return fmt.Sprintf("round %d: bot %d %s, stopping: %s", e.Round, e.Bot, e.Kind, e.Detail)
	case TeamWins:
		return fmt.Sprintf("round %d: team %d wins", e.Round, e.Team)
	case Draw:
		return fmt.Sprintf("round %d: draw", e.Round)
	}
	return e.Kind.String()
}
