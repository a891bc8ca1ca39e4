package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/marketsignal/newsmatch/config"
	"github.com/marketsignal/newsmatch/internal/adapters/store"
)

// runMigrate applies every pending schema migration and exits. store.New
// already runs migrations on open, so this subcommand exists only to let an
// operator apply them ahead of starting the full pipeline.
func runMigrate(configPath string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", configPath)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	st, err := store.New(context.Background(), cfg.Storage.DSN, cfg.Embedding.Dimension)
	if err != nil {
		slog.Error("migration failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	slog.Info("migrations applied")
}
