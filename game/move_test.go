package game

import (
	"testing"

	"github.com/brensch/mazewar/grid"
)

func TestParseMove(t *testing.T) {
	cases := map[string]Move{
		"stop":   Stop,
		"stay":   Stop,
		"north":  North,
		"up":     North,
		"South":  South,
		"down":   South,
		" west ": West,
		"left":   West,
		"east":   East,
		"right":  East,
	}
	for in, want := range cases {
		got, err := ParseMove(in)
		if err != nil || got != want {
			t.Errorf("ParseMove(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMove("jump"); err == nil {
		t.Fatal("expected error for unknown move")
	}
}

func TestMoveApply(t *testing.T) {
	from := grid.Coord{X: 3, Y: 3}
	want := map[Move]grid.Coord{
		Stop:  {X: 3, Y: 3},
		North: {X: 3, Y: 2},
		South: {X: 3, Y: 4},
		West:  {X: 2, Y: 3},
		East:  {X: 4, Y: 3},
	}
	for m, w := range want {
		if got := m.Apply(from); got != w {
			t.Errorf("%s from %v = %v, want %v", m, from, got, w)
		}
		back, ok := MoveBetween(from, w)
		if !ok || back != m {
			t.Errorf("MoveBetween(%v, %v) = %v, %v; want %v", from, w, back, ok, m)
		}
	}
	if _, ok := MoveBetween(from, grid.Coord{X: 5, Y: 3}); ok {
		t.Fatal("two cells apart should not be one move")
	}
}

func TestMoveText(t *testing.T) {
	b, err := West.MarshalText()
	if err != nil || string(b) != "west" {
		t.Fatalf("MarshalText = %q, %v", b, err)
	}
	var m Move
	if err := m.UnmarshalText([]byte("up")); err != nil || m != North {
		t.Fatalf("UnmarshalText = %v, %v", m, err)
	}
	if s := Move(42).String(); s != "Move(42)" {
		t.Fatalf("String = %q", s)
	}
}
