// Package referee runs a game: it owns the current universe, asks each
// registered agent for a move in slot order and keeps the round history.
package referee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/layout"
	"github.com/brensch/mazewar/player"
	"github.com/brensch/mazewar/rules"
)

var (
	// ErrInvalidState is returned for operations the current state does not
	// allow: playing before every slot is taken or after the game finished,
	// registering into a full game.
	ErrInvalidState = errors.New("referee: invalid state")
	// ErrDuplicateAgent is returned when the same agent takes a second slot.
	ErrDuplicateAgent = errors.New("referee: agent already registered")
	// ErrAgentPanic wraps a panic recovered from an agent.
	ErrAgentPanic = errors.New("referee: agent panicked")
	// ErrAgentBusy is returned instead of calling an agent whose previous
	// call timed out and has not returned yet. It counts as a timeout.
	ErrAgentBusy = errors.New("referee: agent still answering an earlier call")
)

type State int

const (
	Initializing State = iota
	RoundInProgress
	Finished
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case RoundInProgress:
		return "round-in-progress"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Rules decides what a move does to the universe.
type Rules interface {
	Apply(u *game.Universe, bot int, move game.Move) (*game.Universe, []game.Event, error)
	Finished(u *game.Universe) bool
}

// RoundResult is handed to round hooks after every completed round.
type RoundResult struct {
	Round    int
	Universe *game.Universe
	Events   []game.Event
	State    State
}

type Option func(*Referee)

func WithRules(r Rules) Option { return func(ref *Referee) { ref.rules = r } }

func WithLogger(l *slog.Logger) Option {
	return func(ref *Referee) {
		if l != nil {
			ref.log = l
		}
	}
}

// WithMoveTimeout bounds each agent call. Zero means no bound.
func WithMoveTimeout(d time.Duration) Option { return func(ref *Referee) { ref.timeout = d } }

// WithRoundHook registers fn to run after each round, outside the referee's
// locks.
func WithRoundHook(fn func(RoundResult)) Option {
	return func(ref *Referee) { ref.hooks = append(ref.hooks, fn) }
}

// WithTeamNames names the teams in the initial universe.
func WithTeamNames(names ...string) Option {
	return func(ref *Referee) { ref.teamNames = names }
}

type Referee struct {
	// ctl serialises Register and PlayRound; mu guards the fields below it
	// so readers never wait on an agent.
	ctl sync.Mutex

	rules     Rules
	log       *slog.Logger
	timeout   time.Duration
	hooks     []func(RoundResult)
	teamNames []string
	numBots   int
	rounds    int

	// busy marks slots with an agent call in flight.
	busy []atomic.Bool

	mu       sync.RWMutex
	state    State
	universe *game.Universe
	history  []*game.Universe
	events   []game.Event
	agents   []player.Agent
	previous []*game.Universe
}

// New prepares a game on l for numBots bots that ends after rounds rounds at
// the latest. Only the first numBots spawns of the layout are used.
func New(l *layout.Layout, numBots, rounds int, opts ...Option) (*Referee, error) {
	if numBots <= 0 || numBots > l.NumBots() {
		return nil, fmt.Errorf("referee: %d bots for a layout with %d spawns", numBots, l.NumBots())
	}
	if rounds <= 0 {
		return nil, fmt.Errorf("referee: round limit %d must be positive", rounds)
	}
	r := &Referee{
		rules:   rules.CTF{},
		log:     slog.Default(),
		numBots: numBots,
		rounds:  rounds,
	}
	for _, opt := range opts {
		opt(r)
	}

	trimmed := *l
	trimmed.Spawns = l.Spawns[:numBots]
	u, err := game.NewCTFUniverse(&trimmed, r.teamNames...)
	if err != nil {
		return nil, err
	}
	r.universe = u
	r.previous = make([]*game.Universe, numBots)
	r.busy = make([]atomic.Bool, numBots)
	return r, nil
}

// Register binds a to the next free slot and calls its Init. It returns the
// slot.
func (r *Referee) Register(ctx context.Context, a player.Agent) (int, error) {
	r.ctl.Lock()
	defer r.ctl.Unlock()

	r.mu.RLock()
	state, slot, u := r.state, len(r.agents), r.universe
	for _, other := range r.agents {
		if sameAgent(a, other) {
			r.mu.RUnlock()
			return -1, ErrDuplicateAgent
		}
	}
	r.mu.RUnlock()
	if state != Initializing || slot >= r.numBots {
		return -1, fmt.Errorf("%w: cannot register in state %s with %d/%d slots taken", ErrInvalidState, state, slot, r.numBots)
	}

	_, err := r.call(ctx, slot, func(ctx context.Context) (game.Move, error) {
		return game.Stop, a.Init(ctx, player.View{Index: slot, Current: u})
	})
	if err != nil {
		return -1, fmt.Errorf("referee: init slot %d: %w", slot, err)
	}

	r.mu.Lock()
	r.agents = append(r.agents, a)
	if len(r.agents) == r.numBots {
		r.state = RoundInProgress
	}
	r.mu.Unlock()
	r.log.Debug("agent registered", "slot", slot, "team", slot%game.NumTeams)
	return slot, nil
}

// sameAgent compares pointer agents by identity. Value agents such as
// player.Stopping carry no state and may fill several slots.
func sameAgent(a, b player.Agent) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != reflect.Pointer || vb.Kind() != reflect.Pointer {
		return false
	}
	return va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
}

// PlayRound asks every agent for one move, in slot order. Agent errors,
// panics, timeouts and illegal moves are replaced by game.Stop. A cancelled
// ctx aborts the round without recording it.
func (r *Referee) PlayRound(ctx context.Context) error {
	r.ctl.Lock()
	defer r.ctl.Unlock()

	r.mu.RLock()
	state, u := r.state, r.universe
	previous := append([]*game.Universe(nil), r.previous...)
	agents := r.agents
	r.mu.RUnlock()
	if state != RoundInProgress {
		return fmt.Errorf("%w: cannot play a round in state %s", ErrInvalidState, state)
	}

	round := u.Round()
	var events []game.Event
	for slot, a := range agents {
		if err := ctx.Err(); err != nil {
			return err
		}
		view := player.View{Index: slot, Current: u, Previous: previous[slot]}
		previous[slot] = u

		move, err := r.call(ctx, slot, func(ctx context.Context) (game.Move, error) { return a.GetMove(ctx, view) })
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			events = append(events, r.substitute(round, slot, u, move, err))
			move = game.Stop
		}

		next, evs, err := r.rules.Apply(u, slot, move)
		if errors.Is(err, rules.ErrIllegalMove) {
			events = append(events, r.substitute(round, slot, u, move, err))
			next, evs, err = r.rules.Apply(u, slot, game.Stop)
		}
		if err != nil {
			return fmt.Errorf("referee: applying stop for bot %d: %w", slot, err)
		}
		events = append(events, evs...)

		u, err = next.Update(func(tx *game.Tx) error {
			tx.AdvanceTurn()
			return nil
		})
		if err != nil {
			return err
		}
	}

	u, err := u.Update(func(tx *game.Tx) error {
		tx.AdvanceRound()
		return nil
	})
	if err != nil {
		return err
	}

	newState := RoundInProgress
	if u.Round() >= r.rounds || r.rules.Finished(u) {
		newState = Finished
		events = append(events, result(u))
	}

	r.mu.Lock()
	r.universe = u
	r.previous = previous
	r.history = append(r.history, u)
	r.events = append(r.events, events...)
	r.state = newState
	r.mu.Unlock()

	r.log.Debug("round complete", "round", round, "turn", u.Turn(), "scores", u.Scores())
	if newState == Finished {
		r.log.Info("game finished", "rounds", u.Round(), "scores", u.Scores(), "result", events[len(events)-1].String())
	}
	for _, hook := range r.hooks {
		hook(RoundResult{Round: round, Universe: u, Events: events, State: newState})
	}
	return nil
}

func (r *Referee) substitute(round, slot int, u *game.Universe, move game.Move, err error) game.Event {
	kind := game.AgentError
	switch {
	case errors.Is(err, rules.ErrIllegalMove):
		kind = game.IllegalMove
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrAgentBusy):
		kind = game.Timeout
	}
	bot := u.Bot(slot)
	r.log.Warn("replacing move with stop", "round", round, "bot", slot, "kind", kind.String(), "move", move.String(), "err", err)
	return game.Event{
		Kind: kind, Round: round, Bot: slot, Team: bot.TeamIndex,
		Pos: bot.CurrentPos, Move: move, Detail: err.Error(),
	}
}

func result(u *game.Universe) game.Event {
	scores := u.Scores()
	best, winner := -1, -1
	for team, s := range scores {
		switch {
		case s > best:
			best, winner = s, team
		case s == best:
			winner = -1
		}
	}
	if winner < 0 {
		return game.Event{Kind: game.Draw, Round: u.Round(), Bot: -1, Team: -1, Points: best}
	}
	return game.Event{Kind: game.TeamWins, Round: u.Round(), Bot: -1, Team: winner, Points: best}
}

// call runs fn in its own goroutine so a slow or panicking agent cannot stall
// or crash the referee. A timed-out call keeps its slot busy until fn returns,
// so an agent is never driven concurrently.
func (r *Referee) call(ctx context.Context, slot int, fn func(context.Context) (game.Move, error)) (game.Move, error) {
	busy := &r.busy[slot]
	if !busy.CompareAndSwap(false, true) {
		return game.Stop, fmt.Errorf("%w: bot %d", ErrAgentBusy, slot)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	type reply struct {
		move game.Move
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		rep := reply{move: game.Stop}
		defer func() {
			if p := recover(); p != nil {
				rep = reply{game.Stop, fmt.Errorf("%w: %v", ErrAgentPanic, p)}
			}
			busy.Store(false)
			ch <- rep
		}()
		rep.move, rep.err = fn(ctx)
	}()
	select {
	case rep := <-ch:
		return rep.move, rep.err
	case <-ctx.Done():
		return game.Stop, ctx.Err()
	}
}

// Play runs rounds until the game finishes or ctx is cancelled.
func (r *Referee) Play(ctx context.Context) error {
	for r.State() != Finished {
		if err := r.PlayRound(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Referee) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Referee) Universe() *game.Universe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.universe
}

// History returns one snapshot per completed round, oldest first.
func (r *Referee) History() []*game.Universe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*game.Universe(nil), r.history...)
}

func (r *Referee) Events() []game.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]game.Event(nil), r.events...)
}

func (r *Referee) NumBots() int { return r.numBots }
func (r *Referee) Rounds() int  { return r.rounds }
