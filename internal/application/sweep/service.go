// Package sweep runs one scheduled pass over every eligible recipient.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-push-scheduler/internal/application/content"
	"github.com/go-push-scheduler/internal/application/dispatch"
	"github.com/go-push-scheduler/internal/domain"
	"github.com/go-push-scheduler/internal/pkg/id"
)

// ErrOutsideWindow marks a scheduled run refused by the time-of-day gate.
var ErrOutsideWindow = errors.New("outside send window")

type CredentialSource interface {
	Mint(ctx context.Context) (domain.BearerToken, error)
}

type Audience interface {
	ResolveEligible(ctx context.Context, minCooldown time.Duration) ([]domain.Recipient, error)
	AttachTokens(ctx context.Context, recipients []domain.Recipient) error
}

type Selector interface {
	Select(r domain.Recipient, rules *content.RuleSet, now time.Time) (domain.Message, bool, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, runID string, deliveries []dispatch.Delivery, bearer domain.BearerToken, onBatch dispatch.BatchFunc) (dispatch.Result, error)
}

type Reporter interface {
	Publish(ctx context.Context, rep domain.RunReport) error
}

type ServiceDeps struct {
	Credentials CredentialSource
	Audience    Audience
	Rules       content.RuleStore
	Selector    Selector
	Dispatcher  Dispatcher
	Reporter    Reporter

	MinCooldown     time.Duration
	WindowStartHour int
	WindowEndHour   int
	Location        *time.Location
	Now             func() time.Time
}

type Service interface {
	// Run executes one sweep. A scheduled run outside the send window returns
	// a skipped report and a nil error; manual runs bypass the window. A run
	// started while another is in progress fails with domain.ErrConflict.
	Run(ctx context.Context, mode domain.RunMode) (domain.RunReport, error)
}

type service struct {
	d ServiceDeps

	// running is held for the duration of a run; runs never overlap.
	running sync.Mutex
}

func NewService(d ServiceDeps) Service {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &service{d: d}
}

func (s *service) Run(ctx context.Context, mode domain.RunMode) (domain.RunReport, error) {
	started := s.d.Now()
	rep := domain.RunReport{
		RunID:     id.NewAt(started),
		Kind:      domain.RunSweep,
		Mode:      mode,
		StartedAt: started,
	}
	if !s.running.TryLock() {
		rep.Status = domain.RunSkipped
		rep.FinishedAt = started
		rep.Error = "another sweep is in progress"
		slog.Warn("sweep refused", "run_id", rep.RunID, "mode", mode, "reason", rep.Error)
		return rep, fmt.Errorf("%w: %s", domain.ErrConflict, rep.Error)
	}
	defer s.running.Unlock()

	err := s.run(ctx, &rep)
	rep.FinishedAt = s.d.Now()
	switch {
	case errors.Is(err, ErrOutsideWindow):
		rep.Status = domain.RunSkipped
		rep.Error = err.Error()
		slog.Info("sweep skipped", "run_id", rep.RunID, "mode", mode, "reason", err)
		return rep, nil
	case err != nil:
		rep.Status = domain.RunFailed
		rep.Error = err.Error()
	default:
		rep.Status = domain.RunCompleted
	}
	if perr := s.d.Reporter.Publish(ctx, rep); perr != nil {
		slog.Warn("publish run report failed", "run_id", rep.RunID, "err", perr)
	}
	return rep, err
}

func (s *service) run(ctx context.Context, rep *domain.RunReport) error {
	now := rep.StartedAt.In(s.d.Location)
	if rep.Mode != domain.ModeManual && !InWindow(now, s.d.WindowStartHour, s.d.WindowEndHour) {
		return fmt.Errorf("%w: %02d:%02d not in [%02d:00, %02d:00)", ErrOutsideWindow,
			now.Hour(), now.Minute(), s.d.WindowStartHour, s.d.WindowEndHour)
	}

	bearer, err := s.d.Credentials.Mint(ctx)
	if err != nil {
		return err
	}
	recipients, err := s.d.Audience.ResolveEligible(ctx, s.d.MinCooldown)
	if err != nil {
		return err
	}
	rules, err := content.LoadRuleSet(ctx, s.d.Rules)
	if err != nil {
		return err
	}
	rep.Eligible = len(recipients)

	deliveries := make([]dispatch.Delivery, 0, len(recipients))
	for _, r := range recipients {
		msg, ok, err := s.d.Selector.Select(r, rules, now)
		if err != nil {
			slog.Warn("content selection failed", "run_id", rep.RunID, "user_id", r.UserID, "err", err)
			continue
		}
		if ok {
			deliveries = append(deliveries, dispatch.Delivery{Recipient: r, Message: msg})
		}
	}
	rep.Selected = len(deliveries)

	// Tokens are only loaded for recipients that have a message.
	targets := make([]domain.Recipient, len(deliveries))
	for i := range deliveries {
		targets[i] = deliveries[i].Recipient
	}
	if err := s.d.Audience.AttachTokens(ctx, targets); err != nil {
		return err
	}
	for i := range deliveries {
		deliveries[i].Recipient = targets[i]
	}

	res, err := s.d.Dispatcher.Dispatch(ctx, rep.RunID, deliveries, bearer, nil)
	rep.TotalSent, rep.TotalFailed, rep.NoTokens = res.TotalSent, res.TotalFailed, res.NoTokens
	return err
}

// InWindow reports whether now's hour lies in [start, end). end may be 24.
func InWindow(now time.Time, start, end int) bool {
	h := now.Hour()
	return h >= start && h < end
}
