// Package campaign sends an operator broadcast to a named segment.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-push-scheduler/internal/application/dispatch"
	"github.com/go-push-scheduler/internal/domain"
	"github.com/go-push-scheduler/internal/pkg/id"
)

type CampaignStore interface {
	Get(ctx context.Context, id string) (*domain.CampaignRun, error)
	Transition(ctx context.Context, id string, from, to domain.CampaignStatus, now time.Time) error
	AddProgress(ctx context.Context, id string, sent, failed int64) error
	Finalize(ctx context.Context, c *domain.CampaignRun) error
}

type Segments interface {
	ResolveSegment(ctx context.Context, segment string) ([]domain.Recipient, error)
}

type CredentialSource interface {
	Mint(ctx context.Context) (domain.BearerToken, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, runID string, deliveries []dispatch.Delivery, bearer domain.BearerToken, onBatch dispatch.BatchFunc) (dispatch.Result, error)
}

type Reporter interface {
	Publish(ctx context.Context, rep domain.RunReport) error
}

type ServiceDeps struct {
	Campaigns   CampaignStore
	Segments    Segments
	Credentials CredentialSource
	Dispatcher  Dispatcher
	Reporter    Reporter
	Now         func() time.Time
}

type Service interface {
	// Send claims a pending campaign, delivers it and finalizes it. The
	// returned run reflects the stored terminal state.
	Send(ctx context.Context, campaignID string) (*domain.CampaignRun, error)
}

type service struct {
	d ServiceDeps
}

func NewService(d ServiceDeps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &service{d: d}
}

func (s *service) Send(ctx context.Context, campaignID string) (*domain.CampaignRun, error) {
	c, err := s.d.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CampaignPending {
		return nil, fmt.Errorf("%w: campaign %s is %s", domain.ErrConflict, campaignID, c.Status)
	}
	if err := s.d.Campaigns.Transition(ctx, campaignID, domain.CampaignPending, domain.CampaignSending, s.d.Now()); err != nil {
		return nil, err
	}
	c.Status = domain.CampaignSending

	started := s.d.Now()
	rep := domain.RunReport{
		RunID:      id.NewAt(started),
		Kind:       domain.RunCampaign,
		Mode:       domain.ModeManual,
		CampaignID: campaignID,
		StartedAt:  started,
	}

	res, runErr := s.deliver(ctx, c, &rep)
	c.TotalSent, c.TotalFailed = res.TotalSent, res.TotalFailed
	rep.TotalSent, rep.TotalFailed, rep.NoTokens = res.TotalSent, res.TotalFailed, res.NoTokens

	now := s.d.Now()
	c.UpdatedAt = now
	if runErr != nil {
		c.Status = domain.CampaignFailed
		c.FailureReason = runErr.Error()
		rep.Status = domain.RunFailed
		rep.Error = runErr.Error()
	} else {
		c.Status = domain.CampaignSent
		c.SentAt = &now
		rep.Status = domain.RunCompleted
	}

	// Finalize even if the caller's context is gone so the campaign never
	// stays stuck in sending.
	finCtx := context.WithoutCancel(ctx)
	if err := s.d.Campaigns.Finalize(finCtx, c); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("finalize campaign %s: %w", campaignID, err))
	}
	rep.FinishedAt = s.d.Now()
	if err := s.d.Reporter.Publish(finCtx, rep); err != nil {
		slog.Warn("publish run report failed", "run_id", rep.RunID, "campaign_id", campaignID, "err", err)
	}
	return c, runErr
}

func (s *service) deliver(ctx context.Context, c *domain.CampaignRun, rep *domain.RunReport) (dispatch.Result, error) {
	recipients, err := s.d.Segments.ResolveSegment(ctx, c.TargetAudience)
	if err != nil {
		return dispatch.Result{}, err
	}
	rep.Eligible = len(recipients)

	msg := domain.Message{
		Title:    c.Title,
		Body:     c.Body,
		Category: domain.CategoryCampaign,
		SourceID: c.CampaignID,
	}
	deliveries := make([]dispatch.Delivery, 0, len(recipients))
	tokens := 0
	for _, r := range recipients {
		deliveries = append(deliveries, dispatch.Delivery{Recipient: r, Message: msg})
		tokens += len(r.DeviceTokens)
	}
	rep.Selected = len(deliveries)
	if tokens == 0 {
		slog.Info("campaign has no reachable devices", "campaign_id", c.CampaignID, "recipients", len(recipients))
		return dispatch.Result{NoTokens: int64(len(recipients))}, nil
	}

	bearer, err := s.d.Credentials.Mint(ctx)
	if err != nil {
		return dispatch.Result{}, err
	}
	return s.d.Dispatcher.Dispatch(ctx, rep.RunID, deliveries, bearer, func(ctx context.Context, batch dispatch.Result) {
		if err := s.d.Campaigns.AddProgress(ctx, c.CampaignID, batch.TotalSent, batch.TotalFailed); err != nil {
			slog.Warn("campaign progress write failed", "campaign_id", c.CampaignID, "err", err)
		}
	})
}
