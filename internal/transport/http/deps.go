package http

import (
	"github.com/go-push-scheduler/internal/application/campaign"
	"github.com/go-push-scheduler/internal/application/sweep"
	jwtinfra "github.com/go-push-scheduler/internal/infrastructure/jwt"
)

// Deps holds the services and credentials the trigger surface needs.
type Deps struct {
	Sweeps    sweep.Service
	Campaigns campaign.Service

	// JWTProvider verifies operator tokens. Nil disables Bearer auth.
	JWTProvider *jwtinfra.Provider
	// TriggerKeyHash is the bcrypt hash of the scheduler's shared key.
	// Empty disables key auth.
	TriggerKeyHash string
}
