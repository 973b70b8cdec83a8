package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-push-scheduler/internal/config"
	"github.com/go-push-scheduler/internal/domain"
	"github.com/go-push-scheduler/internal/transport/http/handler"
	appmiddleware "github.com/go-push-scheduler/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the trigger surface router. ctx bounds the
// rate limiter's background cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appmiddleware.TriggerKeyHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// A sweep touches every recipient, so triggers are throttled hard.
	triggerRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(1), 3)

	healthH := handler.NewHealthHandler()
	sweepH := handler.NewSweepHandler(deps.Sweeps)
	campaignH := handler.NewCampaignHandler(deps.Campaigns)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Group(func(r chi.Router) {
			r.Use(triggerRL.Limit)
			r.Use(appmiddleware.Auth(deps.JWTProvider, deps.TriggerKeyHash))
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleOperator))

			r.Post("/sweeps", sweepH.Trigger)
			r.Post("/campaigns/{id}/send", campaignH.Send)
		})
	})

	return r
}
