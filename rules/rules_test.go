package rules

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/grid"
	"github.com/brensch/mazewar/layout"
)

func pt(x, y int) grid.Coord { return grid.Coord{X: x, Y: y} }

func universe(t *testing.T, text string, bots int) *game.Universe {
	t.Helper()
	l, err := layout.Parse(text, bots)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	u, err := game.NewCTFUniverse(l)
	if err != nil {
		t.Fatalf("universe: %v", err)
	}
	return u
}

func corridor(t *testing.T) *game.Universe {
	t.Helper()
	l, err := layout.Get("corridor", 2)
	if err != nil {
		t.Fatal(err)
	}
	u, err := game.NewCTFUniverse(l)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func sorted(cs []grid.Coord) []grid.Coord {
	out := append([]grid.Coord(nil), cs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func TestLegalMoves(t *testing.T) {
	u := corridor(t)
	got := LegalMoves(u.Maze(), pt(1, 1))
	want := []MoveTarget{{game.South, pt(1, 2)}, {game.Stop, pt(1, 1)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("LegalMoves(1,1) = %v, want %v", got, want)
	}
	got = LegalMoves(u.Maze(), pt(10, 2))
	want = []MoveTarget{
		{game.North, pt(10, 1)}, {game.South, pt(10, 3)},
		{game.West, pt(9, 2)}, {game.Stop, pt(10, 2)},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("LegalMoves(10,2) = %v, want %v", got, want)
	}
	if moves := LegalMoves(u.Maze(), pt(0, 0)); moves != nil {
		t.Fatalf("wall has moves %v", moves)
	}
	if IsLegal(u.Maze(), pt(1, 1), game.East) {
		t.Fatal("east from (1,1) runs into a wall")
	}
}

func TestAdjacency(t *testing.T) {
	u := corridor(t)
	adj := NewAdjacency(u.Maze())
	target := map[grid.Coord][]grid.Coord{
		pt(7, 3):  {pt(7, 2), pt(7, 3), pt(6, 3)},
		pt(1, 3):  {pt(1, 2), pt(2, 3), pt(1, 3)},
		pt(12, 1): {pt(13, 1), pt(12, 1), pt(11, 1)},
		pt(16, 2): {pt(16, 3), pt(16, 1), pt(16, 2)},
		pt(15, 1): {pt(16, 1), pt(15, 1), pt(14, 1)},
		pt(5, 1):  {pt(6, 1), pt(5, 1), pt(4, 1)},
		pt(10, 3): {pt(10, 2), pt(11, 3), pt(10, 3), pt(9, 3)},
		pt(7, 2):  {pt(7, 3), pt(7, 1), pt(8, 2), pt(7, 2)},
		pt(1, 2):  {pt(1, 3), pt(1, 1), pt(1, 2)},
		pt(3, 3):  {pt(4, 3), pt(3, 3), pt(2, 3)},
		pt(13, 3): {pt(14, 3), pt(13, 3), pt(12, 3)},
		pt(8, 1):  {pt(8, 2), pt(8, 1), pt(7, 1)},
		pt(16, 3): {pt(16, 2), pt(16, 3)},
		pt(6, 3):  {pt(7, 3), pt(6, 3), pt(5, 3)},
		pt(14, 1): {pt(15, 1), pt(14, 1), pt(13, 1)},
		pt(11, 1): {pt(12, 1), pt(11, 1), pt(10, 1)},
		pt(4, 1):  {pt(5, 1), pt(4, 1), pt(3, 1)},
		pt(1, 1):  {pt(1, 2), pt(1, 1)},
		pt(12, 3): {pt(13, 3), pt(12, 3), pt(11, 3)},
		pt(8, 2):  {pt(8, 1), pt(9, 2), pt(8, 2), pt(7, 2)},
		pt(7, 1):  {pt(7, 2), pt(8, 1), pt(7, 1), pt(6, 1)},
		pt(9, 3):  {pt(9, 2), pt(10, 3), pt(9, 3)},
		pt(2, 3):  {pt(3, 3), pt(2, 3), pt(1, 3)},
		pt(10, 1): {pt(10, 2), pt(11, 1), pt(10, 1)},
		pt(5, 3):  {pt(6, 3), pt(5, 3), pt(4, 3)},
		pt(13, 1): {pt(14, 1), pt(13, 1), pt(12, 1)},
		pt(9, 2):  {pt(9, 3), pt(10, 2), pt(9, 2), pt(8, 2)},
		pt(6, 1):  {pt(7, 1), pt(6, 1), pt(5, 1)},
		pt(3, 1):  {pt(4, 1), pt(3, 1)},
		pt(11, 3): {pt(12, 3), pt(11, 3), pt(10, 3)},
		pt(16, 1): {pt(16, 2), pt(16, 1), pt(15, 1)},
		pt(4, 3):  {pt(5, 3), pt(4, 3), pt(3, 3)},
		pt(14, 3): {pt(14, 3), pt(13, 3)},
		pt(10, 2): {pt(10, 3), pt(10, 1), pt(10, 2), pt(9, 2)},
	}
	if adj.Len() != len(target) {
		t.Fatalf("adjacency has %d cells, want %d", adj.Len(), len(target))
	}
	for c, want := range target {
		if got := adj.Neighbors(c); !reflect.DeepEqual(sorted(got), sorted(want)) {
			t.Errorf("Neighbors(%v) = %v, want %v", c, got, want)
		}
	}
	// dead ends list their single open neighbour plus themselves
	if got := adj.Neighbors(pt(16, 3)); len(got) != 2 {
		t.Errorf("dead end (16,3) = %v", got)
	}
	if adj.Neighbors(pt(0, 0)) != nil || adj.Contains(pt(0, 0)) {
		t.Error("walls have no adjacency")
	}
	if !adj.Adjacent(pt(1, 1), pt(1, 2)) || adj.Adjacent(pt(1, 1), pt(1, 3)) {
		t.Error("Adjacent disagrees with the maze")
	}
	if got := adj.Positions(); got[0] != pt(1, 1) || got[len(got)-1] != pt(16, 3) {
		t.Errorf("positions not row-major: %v", got)
	}
}

func TestShortestPath(t *testing.T) {
	u := corridor(t)
	adj := NewAdjacency(u.Maze())
	want := []grid.Coord{
		pt(1, 2), pt(1, 3), pt(2, 3), pt(3, 3), pt(4, 3), pt(5, 3), pt(6, 3),
		pt(7, 3), pt(7, 2), pt(8, 2), pt(9, 2), pt(10, 2), pt(10, 3), pt(11, 3),
	}
	got, ok := adj.ShortestPath(pt(1, 1), u.EnemyFood(0))
	if !ok || !reflect.DeepEqual(got, want) {
		t.Fatalf("ShortestPath = %v, %v\nwant %v", got, ok, want)
	}

	got, ok = adj.ShortestPath(pt(11, 3), []grid.Coord{pt(11, 1), pt(14, 3)})
	if !ok || !reflect.DeepEqual(got, []grid.Coord{pt(12, 3), pt(13, 3), pt(14, 3)}) {
		t.Fatalf("ShortestPath from (11,3) = %v, %v", got, ok)
	}

	if got, ok := adj.ShortestPath(pt(3, 1), []grid.Coord{pt(3, 1)}); !ok || len(got) != 0 {
		t.Fatalf("at goal = %v, %v", got, ok)
	}
	if got, ok := adj.ShortestPath(pt(1, 1), []grid.Coord{pt(2, 1)}); ok || got != nil {
		t.Fatalf("wall as goal = %v, %v", got, ok)
	}
	if _, ok := adj.ShortestPath(pt(1, 1), nil); ok {
		t.Fatal("no goals should not be reachable")
	}
}

const lane = `
	##########
	#0 .  . 1#
	##########
`

func TestApplyIllegalMove(t *testing.T) {
	u := universe(t, lane, 2)
	next, events, err := CTF{}.Apply(u, 0, game.North)
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("err = %v, want ErrIllegalMove", err)
	}
	if next != u || events != nil {
		t.Fatal("illegal move must leave the snapshot alone")
	}
}

func TestApplyMoveAndStop(t *testing.T) {
	u := universe(t, lane, 2)
	next, events, err := CTF{}.Apply(u, 0, game.East)
	if err != nil {
		t.Fatal(err)
	}
	if next.Bot(0).CurrentPos != pt(2, 1) || u.Bot(0).CurrentPos != pt(1, 1) {
		t.Fatalf("bot 0 at %v, original at %v", next.Bot(0).CurrentPos, u.Bot(0).CurrentPos)
	}
	if len(events) != 1 || events[0].Kind != game.BotMoved || events[0].Pos != pt(2, 1) {
		t.Fatalf("events = %v", events)
	}
	_, events, err = CTF{}.Apply(next, 1, game.Stop)
	if err != nil || len(events) != 0 {
		t.Fatalf("stop: %v, %v", events, err)
	}
}

func TestDestroyerDoesNotEatOwnFood(t *testing.T) {
	u := universe(t, lane, 2)
	u, _ = u.Update(func(tx *game.Tx) error { return tx.MoveBot(0, pt(2, 1)) })
	next, _, err := CTF{}.Apply(u, 0, game.East)
	if err != nil {
		t.Fatal(err)
	}
	if !next.Maze().HasFood(pt(3, 1)) || next.Scores()[0] != 0 {
		t.Fatalf("own food eaten:\n%s", next)
	}
}

func TestHarvesterEatsAndGetsDestroyed(t *testing.T) {
	u := universe(t, lane, 2)
	u, _ = u.Update(func(tx *game.Tx) error {
		if err := tx.MoveBot(0, pt(5, 1)); err != nil {
			return err
		}
		return tx.MoveBot(1, pt(6, 1))
	})
	next, events, err := CTF{}.Apply(u, 0, game.East)
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("\n%s", next)
	if next.Maze().HasFood(pt(6, 1)) {
		t.Fatal("food should be eaten")
	}
	if next.Bot(0).CurrentPos != pt(1, 1) {
		t.Fatalf("harvester at %v, want reset to (1, 1)", next.Bot(0).CurrentPos)
	}
	if got := next.Scores(); !reflect.DeepEqual(got, []int{FoodPoints, KillPoints}) {
		t.Fatalf("scores = %v", got)
	}
	kinds := []game.EventKind{}
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	if !reflect.DeepEqual(kinds, []game.EventKind{game.BotMoved, game.FoodEaten, game.BotDestroyed}) {
		t.Fatalf("events = %v", events)
	}
	if !(CTF{}).Finished(next) {
		t.Fatal("team 1 has no food left, game should be over")
	}
	if (CTF{}).Finished(u) {
		t.Fatal("game over too early")
	}
}

func TestDestroyerCatchesHarvester(t *testing.T) {
	u := universe(t, lane, 2)
	u, _ = u.Update(func(tx *game.Tx) error {
		if err := tx.MoveBot(0, pt(3, 1)); err != nil {
			return err
		}
		return tx.MoveBot(1, pt(4, 1))
	})
	next, events, err := CTF{}.Apply(u, 0, game.East)
	if err != nil {
		t.Fatal(err)
	}
	if next.Bot(1).CurrentPos != pt(8, 1) || next.Bot(0).CurrentPos != pt(4, 1) {
		t.Fatalf("positions after catch:\n%s", next)
	}
	if got := next.Scores(); !reflect.DeepEqual(got, []int{KillPoints, 0}) {
		t.Fatalf("scores = %v", got)
	}
	last := events[len(events)-1]
	if last.Kind != game.BotDestroyed || last.Bot != 1 || last.Team != 0 {
		t.Fatalf("last event = %v", last)
	}
}
