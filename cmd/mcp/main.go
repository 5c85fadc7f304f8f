package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/hr-assistant/internal/adapters/mcp"
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
	slog.SetDefault(logging.New(os.Stderr, "hr-mcp", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "mcp")
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer app.Close()

	go app.Run(ctx)

	if err := mcpadapter.NewServer(app.Chat).Serve(); err != nil {
		slog.Error("mcp_serve_failed", "error", err)
		return 1
	}
	return 0
}
