// Package game defines the game state types for maze capture-the-flag.
//
// A Universe is an immutable snapshot: the maze, every bot, the teams and the
// round/turn counters. Changes go through Update, which works on a private
// copy and returns a new snapshot, so a reference to a past snapshot keeps
// describing that moment of the game.
package game

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/brensch/mazewar/grid"
	"github.com/brensch/mazewar/typed"
)

var (
	// ErrInvariant reports a snapshot that breaks the state rules: a bot off
	// the board or inside a wall, or a reference to a missing team.
	ErrInvariant = errors.New("game: invariant violated")
	ErrNoFood    = errors.New("game: no food at position")
)

// Zone is a half-open column range [MinX, MaxX).
type Zone struct {
	MinX int
	MaxX int
}

func (z Zone) Contains(c grid.Coord) bool { return c.X >= z.MinX && c.X < z.MaxX }

// Bot is one mobile agent. Index is its slot.
type Bot struct {
	Index      int
	TeamIndex  int
	CurrentPos grid.Coord
	InitialPos grid.Coord
	HomeZone   Zone
}

func (b Bot) InHomeZone() bool { return b.HomeZone.Contains(b.CurrentPos) }

// IsHarvester reports whether the bot is in enemy territory.
func (b Bot) IsHarvester() bool { return !b.InHomeZone() }

// IsDestroyer reports whether the bot is defending its own zone.
func (b Bot) IsDestroyer() bool { return b.InHomeZone() }

type Team struct {
	Index int
	Name  string
	Score int
	Zone  Zone
}

var botType = reflect.TypeFor[Bot]()

type Universe struct {
	maze  *Maze
	bots  *typed.List
	teams []Team
	round int
	turn  int
}

// NewUniverse assembles and validates a snapshot at round 0.
func NewUniverse(maze *Maze, bots []Bot, teams []Team) (*Universe, error) {
	l := typed.Of(bots...)
	u := &Universe{maze: maze, bots: l, teams: append([]Team(nil), teams...)}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Maze is shared between snapshots and must not be modified.
func (u *Universe) Maze() *Maze { return u.maze }
func (u *Universe) Round() int  { return u.round }
func (u *Universe) Turn() int   { return u.turn }

func (u *Universe) NumBots() int { return u.bots.Len() }

// Bot returns bot i. It panics if i is out of range.
func (u *Universe) Bot(i int) Bot {
	v, err := u.bots.Get(i)
	if err != nil {
		panic(err)
	}
	return v.(Bot)
}

func (u *Universe) Bots() []Bot {
	out := make([]Bot, 0, u.bots.Len())
	for _, v := range u.bots.Items() {
		out = append(out, v.(Bot))
	}
	return out
}

func (u *Universe) TeamBots(team int) []Bot {
	var out []Bot
	for _, b := range u.Bots() {
		if b.TeamIndex == team {
			out = append(out, b)
		}
	}
	return out
}

func (u *Universe) EnemyBots(team int) []Bot {
	var out []Bot
	for _, b := range u.Bots() {
		if b.TeamIndex != team {
			out = append(out, b)
		}
	}
	return out
}

// BotsAt lists the bots standing on c in slot order.
func (u *Universe) BotsAt(c grid.Coord) []Bot {
	var out []Bot
	for _, b := range u.Bots() {
		if b.CurrentPos == c {
			out = append(out, b)
		}
	}
	return out
}

func (u *Universe) NumTeams() int { return len(u.teams) }

// Team returns team i. It panics if i is out of range.
func (u *Universe) Team(i int) Team { return u.teams[i] }

func (u *Universe) Teams() []Team { return append([]Team(nil), u.teams...) }

func (u *Universe) Scores() []int {
	out := make([]int, len(u.teams))
	for i, t := range u.teams {
		out[i] = t.Score
	}
	return out
}

// TeamFood lists the food inside the team's own zone, the food it defends.
func (u *Universe) TeamFood(team int) []grid.Coord {
	var out []grid.Coord
	zone := u.teams[team].Zone
	for _, c := range u.maze.FoodList() {
		if zone.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

// EnemyFood lists the food the team can harvest.
func (u *Universe) EnemyFood(team int) []grid.Coord {
	var out []grid.Coord
	zone := u.teams[team].Zone
	for _, c := range u.maze.FoodList() {
		if !zone.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

// Validate checks that every bot is on the board, off the walls and on a
// known team.
func (u *Universe) Validate() error {
	if u.maze == nil {
		return fmt.Errorf("%w: no maze", ErrInvariant)
	}
	if u.bots.Base() != botType {
		return fmt.Errorf("%w: bot list based on %v", ErrInvariant, u.bots.Base())
	}
	for i, b := range u.Bots() {
		if b.Index != i {
			return fmt.Errorf("%w: bot in slot %d has index %d", ErrInvariant, i, b.Index)
		}
		if b.TeamIndex < 0 || b.TeamIndex >= len(u.teams) {
			return fmt.Errorf("%w: bot %d on unknown team %d", ErrInvariant, i, b.TeamIndex)
		}
		if u.maze.IsWall(b.CurrentPos) {
			return fmt.Errorf("%w: bot %d at %v is off the board or in a wall", ErrInvariant, i, b.CurrentPos)
		}
		if u.maze.IsWall(b.InitialPos) {
			return fmt.Errorf("%w: bot %d starts at %v in a wall", ErrInvariant, i, b.InitialPos)
		}
	}
	return nil
}

// Clone performs a deep copy of the snapshot.
func (u *Universe) Clone() *Universe {
	if u == nil {
		return nil
	}
	return &Universe{
		maze:  u.maze.Clone(),
		bots:  u.bots.Clone(),
		teams: append([]Team(nil), u.teams...),
		round: u.round,
		turn:  u.turn,
	}
}

func (u *Universe) Equal(other *Universe) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.round == other.round &&
		u.turn == other.turn &&
		reflect.DeepEqual(u.teams, other.teams) &&
		u.bots.Equal(other.bots) &&
		u.maze.Equal(other.maze)
}

// String renders the maze with bot slot numbers on top.
func (u *Universe) String() string {
	rows := strings.Split(strings.TrimSuffix(u.maze.String(), "\n"), "\n")
	cells := make([][]rune, len(rows))
	for y, r := range rows {
		cells[y] = []rune(r)
	}
	for _, b := range u.Bots() {
		if b.Index < 10 {
			cells[b.CurrentPos.Y][b.CurrentPos.X] = rune('0' + b.Index)
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "round %d turn %d scores %v\n", u.round, u.turn, u.Scores())
	for _, r := range cells {
		sb.WriteString(string(r))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Update applies fn to a private copy and returns the new snapshot. The
// receiver is never modified; if fn fails or the result breaks an invariant,
// the error is returned and no snapshot is produced.
func (u *Universe) Update(fn func(*Tx) error) (*Universe, error) {
	tx := &Tx{next: &Universe{
		maze:  u.maze,
		bots:  u.bots.Clone(),
		teams: append([]Team(nil), u.teams...),
		round: u.round,
		turn:  u.turn,
	}}
	if err := fn(tx); err != nil {
		return nil, err
	}
	if err := tx.next.Validate(); err != nil {
		return nil, err
	}
	return tx.next, nil
}

// Tx is the mutable view handed to Update callbacks. The maze is copied on
// the first write.
type Tx struct {
	next       *Universe
	mazeCopied bool
}

// Universe returns the work in progress. It is only valid inside Update.
func (tx *Tx) Universe() *Universe { return tx.next }

func (tx *Tx) Bot(i int) Bot { return tx.next.Bot(i) }

func (tx *Tx) setBot(b Bot) error {
	return tx.next.bots.Set(b.Index, b)
}

// MoveBot places bot i on to. Legality is the caller's concern; Update still
// rejects positions inside walls.
func (tx *Tx) MoveBot(i int, to grid.Coord) error {
	if i < 0 || i >= tx.next.NumBots() {
		return fmt.Errorf("%w: no bot %d", ErrInvariant, i)
	}
	b := tx.next.Bot(i)
	b.CurrentPos = to
	return tx.setBot(b)
}

// ResetBot sends bot i back to its initial position.
func (tx *Tx) ResetBot(i int) error {
	if i < 0 || i >= tx.next.NumBots() {
		return fmt.Errorf("%w: no bot %d", ErrInvariant, i)
	}
	b := tx.next.Bot(i)
	b.CurrentPos = b.InitialPos
	return tx.setBot(b)
}

func (tx *Tx) EatFood(c grid.Coord) error {
	if !tx.next.maze.HasFood(c) {
		return fmt.Errorf("%w: %v", ErrNoFood, c)
	}
	if !tx.mazeCopied {
		tx.next.maze = tx.next.maze.Clone()
		tx.mazeCopied = true
	}
	tx.next.maze.removeFood(c)
	return nil
}

func (tx *Tx) AddScore(team, points int) error {
	if team < 0 || team >= len(tx.next.teams) {
		return fmt.Errorf("%w: no team %d", ErrInvariant, team)
	}
	tx.next.teams[team].Score += points
	return nil
}

func (tx *Tx) AdvanceTurn()  { tx.next.turn++ }
func (tx *Tx) AdvanceRound() { tx.next.round++ }
