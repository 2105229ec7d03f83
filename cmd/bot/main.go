package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/mazewar/config"
	"github.com/brensch/mazewar/logging"
	"github.com/brensch/mazewar/transport"
)

func main() {
	url := flag.String("url", getEnvOrDefault("MAZEWAR_URL", "ws://localhost:8080/bot"), "Referee hub websocket URL")
	name := flag.String("name", getEnvOrDefault("MAZEWAR_NAME", "bot"), "Name sent in the hello")
	kind := flag.String("agent", getEnvOrDefault("MAZEWAR_AGENT", config.KindBFS), "bfs, random, stopping or lua")
	script := flag.String("script", getEnvOrDefault("MAZEWAR_SCRIPT", ""), "Lua script file for -agent lua")
	seed := flag.Int64("seed", 1, "Seed for -agent random")
	compress := flag.Bool("compress", false, "Ask the referee for zstd frames")
	logFormat := flag.String("log-format", getEnvOrDefault("MAZEWAR_LOG_FORMAT", logging.FormatText), "pretty, line, json or text")
	logLevel := flag.String("log-level", getEnvOrDefault("MAZEWAR_LOG_LEVEL", "info"), "debug, info, warn or error")
	flag.Parse()

	logger, err := logging.New(*logFormat, *logLevel, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	spec := config.AgentSpec{Kind: *kind, Seed: *seed, ScriptFile: *script}
	if spec.Kind == config.KindRemote {
		log.Fatalf("A bot cannot serve a remote agent")
	}
	if err := spec.Validate(); err != nil {
		log.Fatalf("Invalid agent: %v", err)
	}
	agent, err := spec.Build()
	if err != nil {
		log.Fatalf("Failed to build agent: %v", err)
	}
	if c, ok := agent.(interface{ Close() }); ok {
		defer c.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, err := transport.Dial(dialCtx, *url, *name, transport.DialOptions{Compression: *compress, Logger: logger})
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()
	logger.Info("connected", "url", *url, "session", conn.Session, "agent", spec.Kind, "compression", conn.Compression)

	if err := transport.Serve(ctx, conn, agent); err != nil && ctx.Err() == nil {
		logger.Error("connection lost", "err", err)
		os.Exit(1)
	}
	logger.Info("game over")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
