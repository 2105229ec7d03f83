package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/mazewar/config"
	"github.com/brensch/mazewar/game"
	"github.com/brensch/mazewar/logging"
	"github.com/brensch/mazewar/player"
	"github.com/brensch/mazewar/referee"
	"github.com/brensch/mazewar/transport"
)

func main() {
	configPath := flag.String("config", getEnvOrDefault("MAZEWAR_CONFIG", ""), "YAML match description (defaults are used when empty)")
	layoutName := flag.String("layout", getEnvOrDefault("MAZEWAR_LAYOUT", ""), "Built-in layout name, overrides the config")
	rounds := flag.Int("rounds", getEnvIntOrDefault("MAZEWAR_ROUNDS", 0), "Round limit, overrides the config when > 0")
	listen := flag.String("listen", getEnvOrDefault("MAZEWAR_LISTEN", ""), "Address remote bots connect to, overrides the config")
	moveTimeout := flag.Duration("move-timeout", getEnvDurationOrDefault("MAZEWAR_MOVE_TIMEOUT", 0), "Per-move timeout, overrides the config when > 0")
	logFormat := flag.String("log-format", getEnvOrDefault("MAZEWAR_LOG_FORMAT", ""), "pretty, line, json or text")
	logLevel := flag.String("log-level", getEnvOrDefault("MAZEWAR_LOG_LEVEL", ""), "debug, info, warn or error")
	logFile := flag.String("log-file", getEnvOrDefault("MAZEWAR_LOG_FILE", "referee.log"), "Where logs go while -tui is on")
	tui := flag.Bool("tui", false, "Show live progress instead of logging to stderr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *layoutName != "" {
		cfg.Layout = config.LayoutSpec{Name: *layoutName}
	}
	if *rounds > 0 {
		cfg.Rounds = *rounds
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *moveTimeout > 0 {
		cfg.MoveTimeout = *moveTimeout
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	var out io.Writer = os.Stderr
	if *tui {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		out = f
	}
	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level, out)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	final, err := run(ctx, cfg, logger, *tui)
	if err != nil {
		log.Fatalf("Game aborted: %v", err)
	}
	printResult(os.Stdout, final)
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, tui bool) (*referee.Referee, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l, err := cfg.LoadLayout()
	if err != nil {
		return nil, err
	}

	updates := make(chan referee.RoundResult, cfg.Rounds)
	opts := []referee.Option{
		referee.WithLogger(logger),
		referee.WithMoveTimeout(cfg.MoveTimeout),
		referee.WithTeamNames(cfg.Teams...),
	}
	if tui {
		opts = append(opts, referee.WithRoundHook(func(rr referee.RoundResult) { updates <- rr }))
	}
	ref, err := referee.New(l, cfg.Bots, cfg.Rounds, opts...)
	if err != nil {
		return nil, err
	}

	var hub *transport.Hub
	if cfg.Remotes() > 0 {
		hub = transport.NewHub(transport.WithLogger(logger), transport.WithCompression(cfg.Compression))
		mux := http.NewServeMux()
		mux.Handle("/bot", hub)
		srv := &http.Server{Addr: cfg.Listen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("listener failed", "addr", cfg.Listen, "err", err)
				cancel()
			}
		}()
		defer func() {
			hub.Close()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("waiting for remote bots", "addr", cfg.Listen, "path", "/bot", "count", cfg.Remotes())
	}

	for slot, spec := range cfg.Agents {
		var a player.Agent
		if spec.Kind == config.KindRemote {
			ra, err := hub.Accept(ctx)
			if err != nil {
				return nil, fmt.Errorf("waiting for bot %d: %w", slot, err)
			}
			defer ra.Close()
			a = ra
		} else {
			a, err = spec.Build()
			if err != nil {
				return nil, fmt.Errorf("building agent %d: %w", slot, err)
			}
			if c, ok := a.(interface{ Close() }); ok {
				defer c.Close()
			}
		}
		if _, err := ref.Register(ctx, a); err != nil {
			return nil, err
		}
		logger.Info("slot filled", "slot", slot, "kind", spec.Kind, "team", slot%game.NumTeams)
	}

	if !tui {
		return ref, ref.Play(ctx)
	}

	played := make(chan error, 1)
	go func() {
		played <- ref.Play(ctx)
		close(updates)
	}()
	p := tea.NewProgram(newModel(ref.Universe(), cfg.Rounds, updates))
	if _, err := p.Run(); err != nil {
		return nil, err
	}
	// q during the game cancels it
	cancel()
	return ref, <-played
}

func printResult(w io.Writer, ref *referee.Referee) {
	u := ref.Universe()
	fmt.Fprintf(w, "%s\n", u)
	for _, team := range u.Teams() {
		fmt.Fprintf(w, "%-12s %d\n", team.Name, team.Score)
	}
	events := ref.Events()
	if len(events) > 0 {
		fmt.Fprintln(w, events[len(events)-1])
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
