package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"

	"github.com/marketsignal/newsmatch/config"
	"github.com/marketsignal/newsmatch/internal/adapters/store"
	"github.com/marketsignal/newsmatch/internal/domain"
)

var statusOrder = []domain.ArticleStatus{
	domain.ArticleStatusPending,
	domain.ArticleStatusEmbedded,
	domain.ArticleStatusMatched,
	domain.ArticleStatusValidated,
	domain.ArticleStatusFailed,
}

// runStatus prints the article pipeline's current funnel counts and the
// most recent alerts sent, then exits.
func runStatus(configPath string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", configPath)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	ctx := context.Background()
	st, err := store.New(ctx, cfg.Storage.DSN, cfg.Embedding.Dimension)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		fmt.Printf("store: unreachable (%v)\n", err)
	} else {
		fmt.Println("store: reachable")
	}

	counts, err := st.CountArticlesByStatus(ctx)
	if err != nil {
		slog.Error("failed to count articles", "err", err)
		os.Exit(1)
	}

	fmt.Println("\nArticle pipeline")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Status", "Count")
	for _, status := range statusOrder {
		table.Append(string(status), fmt.Sprintf("%d", counts[status]))
	}
	table.Render()

	alerts, err := st.RecentAlerts(ctx, 10)
	if err != nil {
		slog.Error("failed to load recent alerts", "err", err)
		os.Exit(1)
	}

	fmt.Println("\nRecent alerts")
	alertTable := tablewriter.NewWriter(os.Stdout)
	alertTable.Header("Match", "Position", "Confidence", "Sent At")
	for _, m := range alerts {
		sentAt := "-"
		if m.AlertSentAt != nil {
			sentAt = m.AlertSentAt.Format("2006-01-02 15:04")
		}
		alertTable.Append(m.ID, string(m.SuggestedPosition), fmt.Sprintf("%.2f", m.Confidence), sentAt)
	}
	alertTable.Render()
}
