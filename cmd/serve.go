package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"ollama-gateway/internal/config"
	"ollama-gateway/internal/metrics"
	"ollama-gateway/internal/ollama"
	"ollama-gateway/internal/server"
)

const serveUsage = `Usage:
  ollama-gateway serve [--config <path>] [--port <port>] [--model <name>] [--start-ollama]

Flags:
  --config string   Path to YAML configuration file (optional)
  --port   int      Override gateway port from configuration
  --model  string   Override default backend model from configuration
  --start-ollama    Start the Ollama daemon when it is not running`

func serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
	}

	var cfgPath string
	var overridePort int
	var overrideModel string
	var startOllama bool
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.IntVar(&overridePort, "port", 0, "override gateway port")
	fs.StringVar(&overrideModel, "model", "", "override default backend model")
	fs.BoolVar(&startOllama, "start-ollama", false, "start ollama when not running")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse serve flags: %w", err)
	}

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if overridePort != 0 {
		if overridePort <= 0 || overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
		}
		cfg.Server.Port = overridePort
	}
	if overrideModel != "" {
		cfg.Ollama.DefaultModel = overrideModel
	}
	if startOllama {
		cfg.Ollama.StartIfDown = true
	}

	backend, err := ollama.NewClient(cfg.Ollama.URL, cfg.Ollama.RequestTimeout())
	if err != nil {
		return fmt.Errorf("initialise backend client: %w", err)
	}

	if !backend.IsRunning(ctx) {
		if !cfg.Ollama.StartIfDown {
			return fmt.Errorf("ollama is not reachable at %s; run 'ollama serve' or pass --start-ollama", cfg.Ollama.URL)
		}
		if err := backend.Start(ctx); err != nil {
			return fmt.Errorf("ollama is not running and could not be started: %w", err)
		}
	}

	// Best effort: a missing default model is pulled, but a pull failure
	// only degrades requests that rely on model substitution.
	if err := backend.EnsureModel(ctx, cfg.Ollama.DefaultModel); err != nil {
		slog.Warn("default model not available", "model", cfg.Ollama.DefaultModel, "err", err)
	}

	srv, err := server.New(cfg, backend, metrics.New())
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}
