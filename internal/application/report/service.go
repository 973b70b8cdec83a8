// Package report publishes run summaries: a log line always, an S3 archive
// when a bucket is configured, and an SNS alert when a run went wrong.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-push-scheduler/internal/domain"
)

type Archiver interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
}

type Alerter interface {
	Publish(ctx context.Context, subject, message string) error
}

type Service interface {
	Publish(ctx context.Context, rep domain.RunReport) error
}

type service struct {
	archive Archiver // nil when REPORT_BUCKET is unset
	alert   Alerter  // nil when ALERT_TOPIC_ARN is unset
}

func NewService(archive Archiver, alert Alerter) Service {
	return &service{archive: archive, alert: alert}
}

func (s *service) Publish(ctx context.Context, rep domain.RunReport) error {
	attrs := []any{
		"run_id", rep.RunID, "kind", rep.Kind, "status", rep.Status,
		"eligible", rep.Eligible, "selected", rep.Selected,
		"sent", rep.TotalSent, "failed", rep.TotalFailed, "no_tokens", rep.NoTokens,
		"duration", rep.FinishedAt.Sub(rep.StartedAt),
	}
	if rep.CampaignID != "" {
		attrs = append(attrs, "campaign_id", rep.CampaignID)
	}
	if NeedsAlert(rep) {
		slog.Warn("run finished with failures", append(attrs, "err", rep.Error)...)
	} else {
		slog.Info("run finished", attrs...)
	}

	var errs []error
	if s.archive != nil {
		if _, err := s.archive.PutJSON(ctx, Key(rep), rep); err != nil {
			errs = append(errs, fmt.Errorf("archive report: %w", err))
		}
	}
	if s.alert != nil && NeedsAlert(rep) {
		if err := s.alert.Publish(ctx, Subject(rep), Body(rep)); err != nil {
			errs = append(errs, fmt.Errorf("alert: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NeedsAlert is true for failed runs and runs with any failed recipient.
func NeedsAlert(rep domain.RunReport) bool {
	return rep.Status == domain.RunFailed || rep.TotalFailed > 0
}

// Key is the archive object key, partitioned by kind and UTC day.
func Key(rep domain.RunReport) string {
	return fmt.Sprintf("runs/%s/%s/%s.json", rep.Kind, rep.StartedAt.UTC().Format("2006/01/02"), rep.RunID)
}

func Subject(rep domain.RunReport) string {
	if rep.Status == domain.RunFailed {
		return fmt.Sprintf("push %s %s failed", rep.Kind, rep.RunID)
	}
	return fmt.Sprintf("push %s %s: %d failed", rep.Kind, rep.RunID, rep.TotalFailed)
}

func Body(rep domain.RunReport) string {
	body := fmt.Sprintf("status=%s eligible=%d selected=%d sent=%d failed=%d no_tokens=%d",
		rep.Status, rep.Eligible, rep.Selected, rep.TotalSent, rep.TotalFailed, rep.NoTokens)
	if rep.CampaignID != "" {
		body += " campaign=" + rep.CampaignID
	}
	if rep.Error != "" {
		body += "\nerror: " + rep.Error
	}
	return body
}
