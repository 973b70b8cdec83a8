// Package audience decides who a run may reach.
package audience

import (
	"context"
	"fmt"
	"time"

	"github.com/go-push-scheduler/internal/domain"
	"golang.org/x/sync/errgroup"
)

// tokenLookups bounds the concurrent per-recipient token queries.
const tokenLookups = 16

// RecipientStore is the read side of the recipient directory.
type RecipientStore interface {
	ListEnabled(ctx context.Context) ([]domain.Recipient, error)
	ListSegment(ctx context.Context, segment string) ([]domain.Recipient, error)
}

// TokenStore lists a recipient's device registrations.
type TokenStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error)
}

type Service interface {
	// ResolveEligible returns opted-in recipients outside the cooldown.
	// Tokens are not loaded; call AttachTokens on the ones that get a
	// message. Order is unspecified.
	ResolveEligible(ctx context.Context, minCooldown time.Duration) ([]domain.Recipient, error)
	// AttachTokens loads the device tokens of each recipient in place.
	AttachTokens(ctx context.Context, recipients []domain.Recipient) error
	// ResolveSegment returns opted-in recipients in a named segment with their
	// tokens, ignoring cooldown.
	ResolveSegment(ctx context.Context, segment string) ([]domain.Recipient, error)
}

type service struct {
	recipients RecipientStore
	tokens     TokenStore
	now        func() time.Time
}

func NewService(recipients RecipientStore, tokens TokenStore, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{recipients: recipients, tokens: tokens, now: now}
}

func (s *service) ResolveEligible(ctx context.Context, minCooldown time.Duration) ([]domain.Recipient, error) {
	all, err := s.recipients.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAudienceResolution, err)
	}
	now := s.now()
	eligible := make([]domain.Recipient, 0, len(all))
	for _, r := range all {
		if !r.NotificationsEnabled || r.CoolingDown(now, minCooldown) {
			continue
		}
		eligible = append(eligible, r)
	}
	return eligible, nil
}

func (s *service) ResolveSegment(ctx context.Context, segment string) ([]domain.Recipient, error) {
	if segment == "" {
		return nil, fmt.Errorf("%w: empty segment", domain.ErrBadRequest)
	}
	all, err := s.recipients.ListSegment(ctx, segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAudienceResolution, err)
	}
	members := make([]domain.Recipient, 0, len(all))
	for _, r := range all {
		if r.NotificationsEnabled && domain.MatchesAudience(segment, r) {
			members = append(members, r)
		}
	}
	if err := s.AttachTokens(ctx, members); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *service) AttachTokens(ctx context.Context, recipients []domain.Recipient) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tokenLookups)
	for i := range recipients {
		g.Go(func() error {
			tokens, err := s.tokens.ListByUser(gctx, recipients[i].UserID)
			if err != nil {
				return fmt.Errorf("%w: tokens of %s: %w", domain.ErrAudienceResolution, recipients[i].UserID, err)
			}
			recipients[i].DeviceTokens = tokens
			return nil
		})
	}
	return g.Wait()
}
