// Package config reads the referee's YAML match description.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/layout"
	"github.com/brensch/mazewar/player"
)

// Agent kinds.
const (
	KindStopping = "stopping"
	KindRandom   = "random"
	KindBFS      = "bfs"
	KindLua      = "lua"
	KindScripted = "scripted"
	KindRemote   = "remote"
)

// ErrRemote is returned by AgentSpec.Build for agents that connect over the
// network instead of running in process.
var ErrRemote = errors.New("config: remote agents are not built locally")

type Config struct {
	Layout      LayoutSpec    `yaml:"layout"`
	Bots        int           `yaml:"bots"`
	Rounds      int           `yaml:"rounds"`
	MoveTimeout time.Duration `yaml:"move_timeout"`
	Listen      string        `yaml:"listen"`
	Compression bool          `yaml:"compression"`
	Teams       []string      `yaml:"teams,omitempty"`
	Log         LogSpec       `yaml:"log"`
	Agents      []AgentSpec   `yaml:"agents"`
}

// LayoutSpec names a built-in layout, a layout file or inline layout text.
// Exactly one may be set.
type LayoutSpec struct {
	Name   string `yaml:"name,omitempty"`
	File   string `yaml:"file,omitempty"`
	Inline string `yaml:"inline,omitempty"`
}

type LogSpec struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// AgentSpec describes the agent for one slot, in slot order.
type AgentSpec struct {
	Kind       string   `yaml:"kind"`
	Seed       int64    `yaml:"seed,omitempty"`
	Script     string   `yaml:"script,omitempty"`
	ScriptFile string   `yaml:"script_file,omitempty"`
	Moves      []string `yaml:"moves,omitempty"`
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults, normalizes and validates.
func Parse(b []byte) (Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func Defaults() Config {
	return Config{
		Bots:        4,
		Rounds:      300,
		MoveTimeout: 3 * time.Second,
		Listen:      ":8080",
		Log:         LogSpec{Format: "pretty", Level: "info"},
	}
}

// Normalize fills the layout name and pads the agent list with bfs agents.
func (c *Config) Normalize() {
	if c.Layout.Name == "" && c.Layout.File == "" && c.Layout.Inline == "" {
		c.Layout.Name = "small"
	}
	for i := range c.Agents {
		c.Agents[i].Kind = strings.ToLower(strings.TrimSpace(c.Agents[i].Kind))
	}
	for len(c.Agents) < c.Bots {
		c.Agents = append(c.Agents, AgentSpec{Kind: KindBFS})
	}
}

func (c Config) Validate() error {
	set := 0
	for _, s := range []string{c.Layout.Name, c.Layout.File, c.Layout.Inline} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("config: layout needs exactly one of name, file or inline, got %d", set)
	}
	if c.Bots <= 0 {
		return fmt.Errorf("config: bots must be positive, got %d", c.Bots)
	}
	if c.Rounds <= 0 {
		return fmt.Errorf("config: rounds must be positive, got %d", c.Rounds)
	}
	if c.MoveTimeout < 0 {
		return fmt.Errorf("config: negative move_timeout %s", c.MoveTimeout)
	}
	if len(c.Teams) > game.NumTeams {
		return fmt.Errorf("config: %d team names for %d teams", len(c.Teams), game.NumTeams)
	}
	if len(c.Agents) != c.Bots {
		return fmt.Errorf("config: %d agents for %d bots", len(c.Agents), c.Bots)
	}
	for i, a := range c.Agents {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("config: agent %d: %w", i, err)
		}
	}
	if c.Remotes() > 0 && c.Listen == "" {
		return errors.New("config: remote agents need a listen address")
	}
	return nil
}

// Remotes counts the slots filled over the network.
func (c Config) Remotes() int {
	n := 0
	for _, a := range c.Agents {
		if a.Kind == KindRemote {
			n++
		}
	}
	return n
}

func (c Config) LoadLayout() (*layout.Layout, error) {
	switch {
	case c.Layout.File != "":
		return layout.Load(c.Layout.File, c.Bots)
	case c.Layout.Inline != "":
		return layout.Parse(c.Layout.Inline, c.Bots)
	}
	return layout.Get(c.Layout.Name, c.Bots)
}

func (a AgentSpec) Validate() error {
	switch a.Kind {
	case KindStopping, KindRandom, KindBFS, KindRemote:
	case KindLua:
		if (a.Script == "") == (a.ScriptFile == "") {
			return errors.New("lua agent needs exactly one of script or script_file")
		}
	case KindScripted:
		if _, err := a.moves(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown agent kind %q", a.Kind)
	}
	return nil
}

func (a AgentSpec) moves() ([]game.Move, error) {
	out := make([]game.Move, len(a.Moves))
	for i, s := range a.Moves {
		m, err := game.ParseMove(s)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Build constructs an in-process agent. Remote specs return ErrRemote.
func (a AgentSpec) Build() (player.Agent, error) {
	switch a.Kind {
	case KindStopping:
		return player.Stopping{}, nil
	case KindRandom:
		return player.NewRandom(a.Seed), nil
	case KindBFS:
		return player.NewBFS(), nil
	case KindLua:
		if a.ScriptFile != "" {
			return player.LoadLua(a.ScriptFile)
		}
		return player.NewLua(a.Script)
	case KindScripted:
		moves, err := a.moves()
		if err != nil {
			return nil, err
		}
		return player.NewScripted(moves...), nil
	case KindRemote:
		return nil, ErrRemote
	}
	return nil, fmt.Errorf("config: unknown agent kind %q", a.Kind)
}
