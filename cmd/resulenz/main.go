package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resulenz-backend/internal/bootstrap"
	"resulenz-backend/internal/cli"
	"resulenz-backend/internal/shared/config"
	"resulenz-backend/internal/shared/storage/db"
	"resulenz-backend/internal/shared/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	// Keep stdout for command output.
	telemetry.SetOutput(os.Stderr)
	telemetry.SetLevel(getLogLevel(cfg.LogLevel))
	defer telemetry.Sync()

	dbOpts := db.DefaultCLIOptions()
	build := func(ctx context.Context) (*bootstrap.App, error) {
		return bootstrap.Build(ctx, cfg, bootstrap.Options{DBOptions: &dbOpts, SkipRouter: true})
	}
	if err := cli.Execute(ctx, build, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// getLogLevel quiets info logs unless a level was set explicitly.
func getLogLevel(configured string) string {
	if os.Getenv("LOG_LEVEL") == "" {
		return "warn"
	}
	return configured
}
