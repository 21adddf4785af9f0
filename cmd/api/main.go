package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"resulenz-backend/internal/bootstrap"
	"resulenz-backend/internal/shared/config"
	"resulenz-backend/internal/shared/server"
	"resulenz-backend/internal/shared/telemetry"
	"resulenz-backend/internal/shared/tracing"
)

func main() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Exporter:    cfg.TracingExporter,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	app.RunJanitors(ctx)

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		telemetry.Info("server.start", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error("server.error", map[string]any{"error": err})
			stop()
		}
	}()

	<-ctx.Done()
	telemetry.Info("server.shutdown", nil)

	// Ingestions run detached from the request, so give them time to land
	// their second write.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.LLMTimeout+10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Error("server.shutdown_failed", map[string]any{"error": err})
	}
	app.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		telemetry.Warn("tracing.shutdown_failed", map[string]any{"error": err})
	}
}
