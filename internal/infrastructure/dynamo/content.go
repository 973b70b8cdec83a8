package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-push-scheduler/internal/domain"
)

// ContentRepo reads the three content rule tables. Rules are loaded once per run.
type ContentRepo struct {
	client     API
	templates  string
	reminders  string
	broadcasts string
}

func NewContentRepo(client API, templates, reminders, broadcasts string) *ContentRepo {
	return &ContentRepo{client: client, templates: templates, reminders: reminders, broadcasts: broadcasts}
}

func (r *ContentRepo) ListJourneyTemplates(ctx context.Context) ([]domain.JourneyDayTemplate, error) {
	out, err := scanAll[domain.JourneyDayTemplate](ctx, r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.templates),
	})
	if err != nil {
		return nil, fmt.Errorf("scan journey templates: %w", err)
	}
	return out, nil
}

func (r *ContentRepo) ListEnabledReminders(ctx context.Context) ([]domain.CycleReminderRule, error) {
	filter, names, values := boolFilter(fieldEnabled)
	out, err := scanAll[domain.CycleReminderRule](ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.reminders),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return nil, fmt.Errorf("scan cycle reminders: %w", err)
	}
	return out, nil
}

// ListEnabledBroadcasts returns enabled broadcasts. Window checks happen in
// the selector against the run clock.
func (r *ContentRepo) ListEnabledBroadcasts(ctx context.Context) ([]domain.ScheduledBroadcast, error) {
	filter, names, values := boolFilter(fieldEnabled)
	out, err := scanAll[domain.ScheduledBroadcast](ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.broadcasts),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return nil, fmt.Errorf("scan broadcasts: %w", err)
	}
	return out, nil
}
