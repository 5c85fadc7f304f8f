package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/hr-assistant/internal/bootstrap"
	"github.com/kirillkom/hr-assistant/internal/config"
	"github.com/kirillkom/hr-assistant/internal/observability/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(config.Path())
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		return 1
	}
	slog.SetDefault(logging.New(os.Stderr, "hr-indexer", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexer, err := bootstrap.NewIndexer(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer indexer.Close()

	report, err := indexer.IndexUC.IndexAll(ctx)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)

	if err != nil {
		slog.Error("indexing_failed", "error", err)
		return 1
	}
	if len(report.Failures) > 0 {
		slog.Warn("indexing_incomplete", "failures", len(report.Failures))
		return 2
	}
	return 0
}
