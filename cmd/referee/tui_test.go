package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/layout"
	"github.com/brensch/mazewar/referee"
)

func TestModelFollowsRounds(t *testing.T) {
	l, err := layout.Get("small", 4)
	if err != nil {
		t.Fatal(err)
	}
	u, err := game.NewCTFUniverse(l, "red", "blue")
	if err != nil {
		t.Fatal(err)
	}
	updates := make(chan referee.RoundResult, 1)
	m := newModel(u, 3, updates)

	next, cmd := m.Update(referee.RoundResult{
		Round:    0,
		Universe: u,
		State:    referee.RoundInProgress,
		Events: []game.Event{
			{Kind: game.BotMoved, Bot: 0},
			{Kind: game.FoodEaten, Bot: 1, Team: 1, Points: 1},
		},
	})
	if cmd == nil {
		t.Fatal("model should keep waiting for rounds")
	}
	m = next.(model)
	if m.round != 1 || len(m.recent) != 1 {
		t.Fatalf("round %d, recent %q", m.round, m.recent)
	}

	m.now = m.startTime.Add(2 * time.Second)
	view := m.View()
	for _, want := range []string{"Round:      1/3", "red", "blue", "Recent Events:", u.String()} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}

	close(updates)
	if msg := waitForRound(updates)(); msg != (playDone{}) {
		t.Fatalf("closed channel gave %T", msg)
	}
	if _, cmd := m.Update(playDone{}); cmd == nil {
		t.Fatal("finished game should quit")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Fatal("q should quit")
	}
}
