// Command sweep runs one push sweep, or sends one campaign, and exits.
// Exit status is 0 on success or a skipped run, 1 when the run failed and 2
// on bad flags or configuration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-push-scheduler/internal/app"
	"github.com/go-push-scheduler/internal/config"
	"github.com/go-push-scheduler/internal/domain"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	mode := flag.String("mode", string(domain.ModeScheduled), "sweep mode: scheduled or manual")
	campaignID := flag.String("campaign", "", "send this campaign instead of running a sweep")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("configuration rejected", "err", err)
		return 2
	}
	runMode := domain.RunMode(*mode)
	if runMode != domain.ModeScheduled && runMode != domain.ModeManual {
		slog.Error("unknown mode", "mode", *mode)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		return 2
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *campaignID != "" {
		c, err := a.Campaigns.Send(ctx, *campaignID)
		if c != nil {
			_ = enc.Encode(c)
		}
		if err != nil {
			slog.Error("campaign failed", "campaign_id", *campaignID, "err", err)
			return 1
		}
		return 0
	}

	rep, err := a.Sweeps.Run(ctx, runMode)
	_ = enc.Encode(rep)
	if err != nil {
		slog.Error("sweep failed", "run_id", rep.RunID, "err", err)
		return 1
	}
	return 0
}
