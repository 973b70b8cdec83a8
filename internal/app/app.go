// Package app assembles the sweep and campaign services from configuration.
// Both binaries share this graph.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-push-scheduler/internal/application/audience"
	"github.com/go-push-scheduler/internal/application/campaign"
	"github.com/go-push-scheduler/internal/application/content"
	"github.com/go-push-scheduler/internal/application/dispatch"
	"github.com/go-push-scheduler/internal/application/report"
	"github.com/go-push-scheduler/internal/application/sweep"
	"github.com/go-push-scheduler/internal/config"
	"github.com/go-push-scheduler/internal/infrastructure/dynamo"
	"github.com/go-push-scheduler/internal/infrastructure/fcm"
	"github.com/go-push-scheduler/internal/infrastructure/google"
	s3infra "github.com/go-push-scheduler/internal/infrastructure/s3"
	"github.com/go-push-scheduler/internal/infrastructure/sns"
)

// App holds the wired services.
type App struct {
	Dynamo    *dynamodb.Client
	Sweeps    sweep.Service
	Campaigns campaign.Service
}

// Build wires repositories, the credential minter, the push gateway and the
// report sinks. Sinks are only attached when configured.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dynamo client: %w", err)
	}
	t := cfg.DynamoTables
	recipients := dynamo.NewRecipientRepo(dynamoClient, t.Recipients)
	tokens := dynamo.NewDeviceTokenRepo(dynamoClient, t.DeviceTokens)
	rules := dynamo.NewContentRepo(dynamoClient, t.JourneyTemplates, t.CycleReminders, t.Broadcasts)
	deliveries := dynamo.NewDeliveryRepo(dynamoClient, t.Deliveries)
	campaigns := dynamo.NewCampaignRepo(dynamoClient, t.Campaigns)

	key, err := google.LoadServiceAccount(cfg)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.SendTimeout}
	minter := google.NewCachedMinter(
		google.NewMinter(key, cfg.OAuthTokenURL, httpClient, cfg.CredentialTimeout),
		cfg.TokenExpirySkew,
	)

	dispatcher := dispatch.New(dispatch.Deps{
		Gateway:     fcm.NewGateway(cfg.FCMEndpoint, key.ProjectID, httpClient),
		Tokens:      tokens,
		Recipients:  recipients,
		Outcomes:    deliveries,
		Limiter:     dispatch.NewLimiter(cfg.DispatchRatePerSec),
		BatchSize:   cfg.DispatchBatchSize,
		Concurrency: cfg.DispatchConcurrency,
		SendTimeout: cfg.SendTimeout,
	})

	reporter, err := newReporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	aud := audience.NewService(recipients, tokens, nil)

	return &App{
		Dynamo: dynamoClient,
		Sweeps: sweep.NewService(sweep.ServiceDeps{
			Credentials:     minter,
			Audience:        aud,
			Rules:           rules,
			Selector:        content.NewSelector(cfg.Location(), nil),
			Dispatcher:      dispatcher,
			Reporter:        reporter,
			MinCooldown:     cfg.MinCooldown,
			WindowStartHour: cfg.SendWindowStartHour,
			WindowEndHour:   cfg.SendWindowEndHour,
			Location:        cfg.Location(),
		}),
		Campaigns: campaign.NewService(campaign.ServiceDeps{
			Campaigns:   campaigns,
			Segments:    aud,
			Credentials: minter,
			Dispatcher:  dispatcher,
			Reporter:    reporter,
		}),
	}, nil
}

func newReporter(ctx context.Context, cfg *config.Config) (report.Service, error) {
	var archive report.Archiver
	if cfg.ReportBucket != "" {
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		archive = s3infra.NewStore(client, cfg.ReportBucket)
	} else {
		slog.Info("REPORT_BUCKET not set, run reports are not archived")
	}

	var alert report.Alerter
	if cfg.AlertTopicARN != "" {
		client, err := sns.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		alert = sns.NewPublisher(client, cfg.AlertTopicARN)
	} else {
		slog.Info("ALERT_TOPIC_ARN not set, failed runs are only logged")
	}
	return report.NewService(archive, alert), nil
}
