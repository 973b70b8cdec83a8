package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-push-scheduler/internal/app"
	"github.com/go-push-scheduler/internal/config"
	"github.com/go-push-scheduler/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-push-scheduler/internal/infrastructure/jwt"
	transporthttp "github.com/go-push-scheduler/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration rejected", "err", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(2)
	}

	// Local stacks start empty; create the tables on boot.
	if cfg.AppEnv == "development" {
		dynamo.Bootstrap(ctx, a.Dynamo, cfg.DynamoTables)
	}

	// Operator JWTs are optional; the trigger key alone is enough for a scheduler.
	var jwtProvider *jwtinfra.Provider
	if cfg.JWTPublicKeyPath != "" {
		if p, err := jwtinfra.NewProvider(cfg.JWTPublicKeyPath); err == nil {
			jwtProvider = p
		} else {
			slog.Warn("JWT provider not available", "err", err)
		}
	}

	if cfg.SweepCron != "" {
		c, err := app.NewSweepSchedule(ctx, cfg.Location(), cfg.SweepCron, a.Sweeps)
		if err != nil {
			slog.Error("invalid SWEEP_CRON", "schedule", cfg.SweepCron, "err", err)
			os.Exit(2)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		slog.Info("in-process sweep schedule enabled", "schedule", cfg.SweepCron)
	}

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Sweeps:         a.Sweeps,
		Campaigns:      a.Campaigns,
		JWTProvider:    jwtProvider,
		TriggerKeyHash: cfg.TriggerKeyHash,
	})

	// A sweep is synchronous and can outlast a typical request deadline.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	slog.Info("server stopped")
}
