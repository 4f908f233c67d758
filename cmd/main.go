package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tranquiltaiwan/internal/application"
	"tranquiltaiwan/pkg/logx"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Bootstrap logger until the config is loaded. Run swaps in the
	// configured one via slog.SetDefault.
	log := logx.NewLogger(slog.LevelInfo, "text")
	slog.SetDefault(log)

	if err := application.Run(ctx, log); err != nil {
		slog.Error("application failed", logx.Error(err))
		os.Exit(1)
	}

	slog.Info("application stopped")
}
