package game

import (
	"fmt"
	"reflect"

	"github.com/brensch/mazewar/codec"
	"github.com/brensch/mazewar/grid"
	"github.com/brensch/mazewar/typed"
)

const (
	ComponentTypeID = "game.Component"
	WallTypeID      = "game.Wall"
	FreeTypeID      = "game.Free"
	FoodTypeID      = "game.Food"
	SpawnTypeID     = "game.Spawn"
	BotTypeID       = "game.Bot"
	TeamTypeID      = "game.Team"
	MazeTypeID      = "game.Maze"
	UniverseTypeID  = "game.Universe"
	EventTypeID     = "game.Event"
)

func init() {
	if err := RegisterTypes(codec.Default); err != nil {
		panic(err)
	}
}

func marker[T Component](map[string]any) (T, error) {
	var zero T
	return zero, nil
}

// RegisterTypes makes every game type decodable by r. Grids and typed lists
// must be registered separately.
func RegisterTypes(r *codec.Registry) error {
	regs := []func() error{
		func() error { return r.RegisterType(ComponentTypeID, componentType) },
		func() error { return codec.Register(r, WallTypeID, marker[Wall]) },
		func() error { return codec.Register(r, FreeTypeID, marker[Free]) },
		func() error { return codec.Register(r, FoodTypeID, marker[Food]) },
		func() error { return codec.Register(r, SpawnTypeID, spawnFromFields) },
		func() error { return codec.Register(r, BotTypeID, BotFromFields) },
		func() error { return codec.Register(r, TeamTypeID, TeamFromFields) },
		func() error { return codec.Register(r, MazeTypeID, MazeFromFields) },
		func() error { return codec.Register(r, UniverseTypeID, UniverseFromFields) },
		func() error { return codec.Register(r, EventTypeID, EventFromFields) },
	}
	for _, reg := range regs {
		if err := reg(); err != nil {
			return err
		}
	}
	return nil
}

func (Wall) TypeID() string  { return WallTypeID }
func (Free) TypeID() string  { return FreeTypeID }
func (Food) TypeID() string  { return FoodTypeID }
func (Spawn) TypeID() string { return SpawnTypeID }

func (Wall) Reduce() map[string]any    { return map[string]any{} }
func (Free) Reduce() map[string]any    { return map[string]any{} }
func (Food) Reduce() map[string]any    { return map[string]any{} }
func (s Spawn) Reduce() map[string]any { return map[string]any{"index": s.Index} }

func spawnFromFields(f map[string]any) (Spawn, error) {
	i, err := codec.Int(f, "index")
	return Spawn{Index: i}, err
}

// Coordinates travel as two-element sequences.
func coordField(f map[string]any, key string) (grid.Coord, error) {
	xy, err := codec.Ints(f, key)
	if err != nil {
		return grid.Coord{}, err
	}
	if len(xy) != 2 {
		return grid.Coord{}, fmt.Errorf("%w: %q has %d elements, want 2", codec.ErrField, key, len(xy))
	}
	return grid.Coord{X: xy[0], Y: xy[1]}, nil
}

func coordValue(c grid.Coord) [2]int { return [2]int{c.X, c.Y} }

func zoneField(f map[string]any, key string) (Zone, error) {
	r, err := codec.Ints(f, key)
	if err != nil {
		return Zone{}, err
	}
	if len(r) != 2 {
		return Zone{}, fmt.Errorf("%w: %q has %d elements, want 2", codec.ErrField, key, len(r))
	}
	return Zone{MinX: r[0], MaxX: r[1]}, nil
}

func (Bot) TypeID() string { return BotTypeID }

func (b Bot) Reduce() map[string]any {
	return map[string]any{
		"index":       b.Index,
		"team":        b.TeamIndex,
		"current_pos": coordValue(b.CurrentPos),
		"initial_pos": coordValue(b.InitialPos),
		"home_zone":   [2]int{b.HomeZone.MinX, b.HomeZone.MaxX},
	}
}

func BotFromFields(f map[string]any) (Bot, error) {
	var b Bot
	var err error
	if b.Index, err = codec.Int(f, "index"); err != nil {
		return Bot{}, err
	}
	if b.TeamIndex, err = codec.Int(f, "team"); err != nil {
		return Bot{}, err
	}
	if b.CurrentPos, err = coordField(f, "current_pos"); err != nil {
		return Bot{}, err
	}
	if b.InitialPos, err = coordField(f, "initial_pos"); err != nil {
		return Bot{}, err
	}
	if b.HomeZone, err = zoneField(f, "home_zone"); err != nil {
		return Bot{}, err
	}
	return b, nil
}

func (Team) TypeID() string { return TeamTypeID }

func (t Team) Reduce() map[string]any {
	return map[string]any{
		"index": t.Index,
		"name":  t.Name,
		"score": t.Score,
		"zone":  [2]int{t.Zone.MinX, t.Zone.MaxX},
	}
}

func TeamFromFields(f map[string]any) (Team, error) {
	var t Team
	var err error
	if t.Index, err = codec.Int(f, "index"); err != nil {
		return Team{}, err
	}
	if t.Name, err = codec.String(f, "name"); err != nil {
		return Team{}, err
	}
	if t.Score, err = codec.Int(f, "score"); err != nil {
		return Team{}, err
	}
	if t.Zone, err = zoneField(f, "zone"); err != nil {
		return Team{}, err
	}
	return t, nil
}

func (m *Maze) TypeID() string { return MazeTypeID }

func (m *Maze) Reduce() map[string]any { return map[string]any{"cells": m.cells} }

func MazeFromFields(f map[string]any) (*Maze, error) {
	g, ok := f["cells"].(*grid.Grid[any])
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, want grid", codec.ErrField, "cells", f["cells"])
	}
	cells, err := grid.Convert[*typed.List](g)
	if err != nil {
		return nil, err
	}
	return NewMaze(cells)
}

func (u *Universe) TypeID() string { return UniverseTypeID }

func (u *Universe) Reduce() map[string]any {
	teams := make([]any, len(u.teams))
	for i, t := range u.teams {
		teams[i] = t
	}
	return map[string]any{
		"maze":  u.maze,
		"bots":  u.bots,
		"teams": teams,
		"round": u.round,
		"turn":  u.turn,
	}
}

func UniverseFromFields(f map[string]any) (*Universe, error) {
	maze, ok := f["maze"].(*Maze)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, want maze", codec.ErrField, "maze", f["maze"])
	}
	bots, ok := f["bots"].(*typed.List)
	if !ok || bots.Base() != reflect.TypeFor[Bot]() {
		return nil, fmt.Errorf("%w: %q is not a bot list", codec.ErrField, "bots")
	}
	rawTeams, err := codec.List(f, "teams")
	if err != nil {
		return nil, err
	}
	teams := make([]Team, len(rawTeams))
	for i, v := range rawTeams {
		t, ok := v.(Team)
		if !ok {
			return nil, fmt.Errorf("%w: teams[%d] is %T", codec.ErrField, i, v)
		}
		teams[i] = t
	}
	u := &Universe{maze: maze, bots: bots, teams: teams}
	if u.round, err = codec.Int(f, "round"); err != nil {
		return nil, err
	}
	if u.turn, err = codec.Int(f, "turn"); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

func (Event) TypeID() string { return EventTypeID }

func (e Event) Reduce() map[string]any {
	return map[string]any{
		"kind":   e.Kind.String(),
		"round":  e.Round,
		"bot":    e.Bot,
		"team":   e.Team,
		"pos":    coordValue(e.Pos),
		"move":   e.Move.String(),
		"points": e.Points,
		"detail": e.Detail,
	}
}

func EventFromFields(f map[string]any) (Event, error) {
	var e Event
	kind, err := codec.String(f, "kind")
	if err != nil {
		return Event{}, err
	}
	found := false
	for i, n := range eventNames {
		if n == kind {
			e.Kind, found = EventKind(i), true
		}
	}
	if !found {
		return Event{}, fmt.Errorf("%w: unknown event kind %q", codec.ErrField, kind)
	}
	move, err := codec.String(f, "move")
	if err != nil {
		return Event{}, err
	}
	if e.Move, err = ParseMove(move); err != nil {
		return Event{}, err
	}
	if e.Round, err = codec.Int(f, "round"); err != nil {
		return Event{}, err
	}
	if e.Bot, err = codec.Int(f, "bot"); err != nil {
		return Event{}, err
	}
	if e.Team, err = codec.Int(f, "team"); err != nil {
		return Event{}, err
	}
	if e.Pos, err = coordField(f, "pos"); err != nil {
		return Event{}, err
	}
	if e.Points, err = codec.Int(f, "points"); err != nil {
		return Event{}, err
	}
	if e.Detail, err = codec.String(f, "detail"); err != nil {
		return Event{}, err
	}
	return e, nil
}
