package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marketsignal/newsmatch/config"
	"github.com/marketsignal/newsmatch/internal/coordinator"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	args := flag.Args()
	if len(args) > 0 {
		switch args[0] {
		case "migrate":
			runMigrate(*configPath)
			return
		case "status":
			runStatus(*configPath)
			return
		case "run":
			// falls through to the default pipeline startup below
		default:
			slog.Error("unknown subcommand", "command", args[0])
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("newsmatch pipeline starting",
		"config", *configPath,
		"news_sources", cfg.News.Sources,
		"platforms", cfg.Platforms.Names,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	co, err := coordinator.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to build coordinator", "err", err)
		os.Exit(1)
	}

	co.Start(ctx)
	<-ctx.Done()

	slog.Info("shutdown signal received, stopping pipeline")
	co.Shutdown()
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
