package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/referee"
)

const recentEvents = 10

type model struct {
	rounds    int
	round     int
	state     referee.State
	universe  *game.Universe
	recent    []string
	startTime time.Time
	now       time.Time
	updates   <-chan referee.RoundResult
}

func newModel(u *game.Universe, rounds int, updates <-chan referee.RoundResult) model {
	return model{
		rounds:    rounds,
		state:     referee.RoundInProgress,
		universe:  u,
		startTime: time.Now(),
		now:       time.Now(),
		updates:   updates,
	}
}

type TickMsg time.Time

// playDone arrives once the referee stops producing rounds.
type playDone struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForRound(updates <-chan referee.RoundResult) tea.Cmd {
	return func() tea.Msg {
		rr, ok := <-updates
		if !ok {
			return playDone{}
		}
		return rr
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForRound(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()
	case referee.RoundResult:
		m.round = msg.Round + 1
		m.universe = msg.Universe
		m.state = msg.State
		for _, ev := range msg.Events {
			if ev.Kind == game.BotMoved {
				continue
			}
			m.recent = append([]string{ev.String()}, m.recent...)
		}
		if len(m.recent) > recentEvents {
			m.recent = m.recent[:recentEvents]
		}
		return m, waitForRound(m.updates)
	case playDone:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	elapsed := m.now.Sub(m.startTime)
	roundsPerSec := 0.0
	if elapsed.Seconds() >= 1 {
		roundsPerSec = float64(m.round) / elapsed.Seconds()
	}

	fmt.Fprintf(&b, "Round:      %d/%d (%s)\n", m.round, m.rounds, m.state)
	fmt.Fprintf(&b, "Duration:   %s\n", elapsed.Round(time.Second))
	fmt.Fprintf(&b, "Rounds/Sec: %.2f\n\n", roundsPerSec)
	if m.universe != nil {
		for _, team := range m.universe.Teams() {
			fmt.Fprintf(&b, "%-12s %d\n", team.Name, team.Score)
		}
		b.WriteString("\n")
		b.WriteString(m.universe.String())
		b.WriteString("\n")
	}

	b.WriteString("\nRecent Events:\n")
	for _, ev := range m.recent {
		b.WriteString(ev + "\n")
	}
	b.WriteString("\nPress q to quit.\n")
	return b.String()
}
