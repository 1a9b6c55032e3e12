package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/moonwalker/assetwatch/cmd/assetwatch/commands"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := commands.New(version).ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "err", err.Error())
		os.Exit(1)
	}
}
