package game

import (
	"fmt"

	"github.com/brensch/mazewar/layout"
)

// NumTeams is the number of teams in a capture-the-flag game.
const NumTeams = 2

// NewCTFUniverse builds the starting snapshot for a two-team game. Bot i
// plays for team i%2; team 0 owns the left half of the maze and team 1 the
// right half. Missing team names default to "team 0" and "team 1".
func NewCTFUniverse(l *layout.Layout, names ...string) (*Universe, error) {
	w := l.Width()
	if w%2 != 0 {
		return nil, fmt.Errorf("%w: width %d is odd, zones cannot be split", ErrInvariant, w)
	}
	teams := make([]Team, NumTeams)
	for i := range teams {
		teams[i] = Team{
			Index: i,
			Name:  fmt.Sprintf("team %d", i),
			Zone:  Zone{MinX: i * w / 2, MaxX: (i + 1) * w / 2},
		}
		if i < len(names) && names[i] != "" {
			teams[i].Name = names[i]
		}
	}
	bots := make([]Bot, l.NumBots())
	for i, pos := range l.Spawns {
		team := i % NumTeams
		bots[i] = Bot{
			Index:      i,
			TeamIndex:  team,
			CurrentPos: pos,
			InitialPos: pos,
			HomeZone:   teams[team].Zone,
		}
	}
	return NewUniverse(MazeFromLayout(l), bots, teams)
}
