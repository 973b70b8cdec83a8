// Package dispatch fans selected messages out to device tokens.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-push-scheduler/internal/domain"
	"github.com/go-push-scheduler/internal/pkg/id"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 100
	DefaultSendTimeout = 10 * time.Second
)

// Gateway sends one message to one device token. Errors wrap
// domain.ErrPermanentDelivery or domain.ErrTransientDelivery.
type Gateway interface {
	Send(ctx context.Context, bearer domain.BearerToken, token domain.DeviceToken, msg domain.Message) error
}

type TokenStore interface {
	Delete(ctx context.Context, token string) error
}

type RecipientStore interface {
	StampLastSent(ctx context.Context, userID string, at time.Time) error
}

type OutcomeStore interface {
	Put(ctx context.Context, o domain.DeliveryOutcome) error
}

// Delivery pairs a recipient (with tokens attached) and the message chosen for it.
type Delivery struct {
	Recipient domain.Recipient
	Message   domain.Message
}

// Result aggregates one dispatch. NoTokens counts recipients that had nothing
// to send to; they are neither sent nor failed.
type Result struct {
	TotalSent   int64
	TotalFailed int64
	NoTokens    int64
}

// BatchFunc observes the counts of each finished batch.
type BatchFunc func(ctx context.Context, batch Result)

type Deps struct {
	Gateway     Gateway
	Tokens      TokenStore
	Recipients  RecipientStore
	Outcomes    OutcomeStore
	Limiter     *rate.Limiter // nil disables pacing
	BatchSize   int
	Concurrency int
	SendTimeout time.Duration
	Now         func() time.Time
}

type Dispatcher struct {
	gateway     Gateway
	tokens      TokenStore
	recipients  RecipientStore
	outcomes    OutcomeStore
	limiter     *rate.Limiter
	batchSize   int
	concurrency int
	sendTimeout time.Duration
	now         func() time.Time
}

func New(d Deps) *Dispatcher {
	if d.BatchSize <= 0 {
		d.BatchSize = DefaultBatchSize
	}
	if d.Concurrency <= 0 {
		d.Concurrency = DefaultConcurrency
	}
	if d.SendTimeout <= 0 {
		d.SendTimeout = DefaultSendTimeout
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Dispatcher{
		gateway:     d.Gateway,
		tokens:      d.Tokens,
		recipients:  d.Recipients,
		outcomes:    d.Outcomes,
		limiter:     d.Limiter,
		batchSize:   d.BatchSize,
		concurrency: d.Concurrency,
		sendTimeout: d.SendTimeout,
		now:         d.Now,
	}
}

// NewLimiter paces sends at perSec with a one-second burst. perSec <= 0
// returns nil (unpaced).
func NewLimiter(perSec int) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSec), perSec)
}

type counters struct {
	sent   atomic.Int64
	failed atomic.Int64
}

// Dispatch delivers every message. Batches run one after another; recipients
// within a batch run concurrently up to the configured limit, and a
// recipient's tokens are tried in order until one is accepted. Per-token
// failures never abort the run. The returned error is only ever ctx.Err().
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, deliveries []Delivery, bearer domain.BearerToken, onBatch BatchFunc) (Result, error) {
	var res Result
	withTokens := make([]Delivery, 0, len(deliveries))
	for _, dl := range deliveries {
		if len(dl.Recipient.DeviceTokens) == 0 {
			res.NoTokens++
			continue
		}
		withTokens = append(withTokens, dl)
	}

	for i, batch := range Batches(withTokens, d.batchSize) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var c counters
		g := new(errgroup.Group)
		g.SetLimit(d.concurrency)
		for _, dl := range batch {
			g.Go(func() error {
				d.deliver(ctx, runID, bearer, dl, &c)
				return nil
			})
		}
		_ = g.Wait()

		delta := Result{TotalSent: c.sent.Load(), TotalFailed: c.failed.Load()}
		res.TotalSent += delta.TotalSent
		res.TotalFailed += delta.TotalFailed
		slog.Debug("dispatch batch done", "run_id", runID, "batch", i, "size", len(batch),
			"sent", delta.TotalSent, "failed", delta.TotalFailed)
		if onBatch != nil {
			onBatch(ctx, delta)
		}
	}
	return res, nil
}

// deliver tries the recipient's tokens sequentially and stops at the first success.
func (d *Dispatcher) deliver(ctx context.Context, runID string, bearer domain.BearerToken, dl Delivery, c *counters) {
	r := dl.Recipient
	for _, tok := range r.DeviceTokens {
		if d.limiter != nil {
			if err := d.limiter.Wait(ctx); err != nil {
				slog.Warn("send pacing aborted", "run_id", runID, "user_id", r.UserID, "err", err)
				break
			}
		}
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		err := d.gateway.Send(sendCtx, bearer, tok, dl.Message)
		cancel()

		now := d.now()
		outcome := domain.DeliveryOutcome{
			DeliveryID:  id.NewAt(now),
			RunID:       runID,
			RecipientID: r.UserID,
			DeviceToken: tok.Token,
			Platform:    tok.Platform,
			Category:    dl.Message.Category,
			SourceID:    dl.Message.SourceID,
			CreatedAt:   now,
		}
		switch {
		case err == nil:
			outcome.Status = domain.DeliverySent
			d.record(ctx, outcome)
			if serr := d.recipients.StampLastSent(ctx, r.UserID, now); serr != nil {
				slog.Warn("stamp last sent failed", "run_id", runID, "user_id", r.UserID, "err", serr)
			}
			c.sent.Add(1)
			return
		case errors.Is(err, domain.ErrPermanentDelivery):
			outcome.Status = domain.DeliveryPermanentFailure
			outcome.ErrorDetail = err.Error()
			if derr := d.tokens.Delete(ctx, tok.Token); derr != nil {
				slog.Warn("prune token failed", "run_id", runID, "user_id", r.UserID, "err", derr)
			}
			d.record(ctx, outcome)
		default:
			outcome.Status = domain.DeliveryTransientFailure
			outcome.ErrorDetail = err.Error()
			d.record(ctx, outcome)
		}
	}
	c.failed.Add(1)
}

func (d *Dispatcher) record(ctx context.Context, o domain.DeliveryOutcome) {
	if err := d.outcomes.Put(ctx, o); err != nil {
		slog.Warn("record delivery outcome failed", "run_id", o.RunID, "user_id", o.RecipientID, "err", err)
	}
}

// Batches packs deliveries in order so that each batch holds at most size
// device tokens. A recipient with more than size tokens gets a batch alone.
func Batches(deliveries []Delivery, size int) [][]Delivery {
	var (
		out    [][]Delivery
		cur    []Delivery
		tokens int
	)
	for _, dl := range deliveries {
		n := len(dl.Recipient.DeviceTokens)
		if len(cur) > 0 && tokens+n > size {
			out = append(out, cur)
			cur, tokens = nil, 0
		}
		cur = append(cur, dl)
		tokens += n
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
