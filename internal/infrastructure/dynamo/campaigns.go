package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-push-scheduler/internal/domain"
)

type CampaignRepo struct {
	client API
	table  string
}

func NewCampaignRepo(client API, table string) *CampaignRepo {
	return &CampaignRepo{client: client, table: table}
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.CampaignRun, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            strKey(fieldCampaignID, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, domain.ErrNotFound
	}
	var c domain.CampaignRun
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Transition moves a campaign from one status to another. It fails with
// ErrConflict when the stored status is not from, so two runs can never both
// claim the same campaign.
func (r *CampaignRepo) Transition(ctx context.Context, id string, from, to domain.CampaignStatus, now time.Time) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 strKey(fieldCampaignID, id),
		UpdateExpression:    aws.String("SET #s = :to, #u = :now"),
		ConditionExpression: aws.String("#s = :from"),
		ExpressionAttributeNames: map[string]string{
			"#s": fieldStatus,
			"#u": fieldUpdatedAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":from": &types.AttributeValueMemberS{Value: string(from)},
			":to":   &types.AttributeValueMemberS{Value: string(to)},
			":now":  &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
		},
	})
	return conditional(err, "transition campaign %s", id)
}

// AddProgress atomically increments the running totals after a batch.
func (r *CampaignRepo) AddProgress(ctx context.Context, id string, sent, failed int64) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 strKey(fieldCampaignID, id),
		UpdateExpression:    aws.String("ADD #ts :s, #tf :f"),
		ConditionExpression: aws.String("#st = :sending"),
		ExpressionAttributeNames: map[string]string{
			"#ts": fieldTotalSent,
			"#tf": fieldTotalFailed,
			"#st": fieldStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":       &types.AttributeValueMemberN{Value: strconv.FormatInt(sent, 10)},
			":f":       &types.AttributeValueMemberN{Value: strconv.FormatInt(failed, 10)},
			":sending": &types.AttributeValueMemberS{Value: string(domain.CampaignSending)},
		},
	})
	return conditional(err, "add progress to campaign %s", id)
}

// Finalize writes the terminal status and final totals of a sending campaign.
func (r *CampaignRepo) Finalize(ctx context.Context, c *domain.CampaignRun) error {
	if !c.Terminal() {
		return fmt.Errorf("%w: campaign %s is not terminal", domain.ErrBadRequest, c.CampaignID)
	}
	updates := map[string]interface{}{
		fieldStatus:      c.Status,
		fieldTotalSent:   c.TotalSent,
		fieldTotalFailed: c.TotalFailed,
		fieldUpdatedAt:   c.UpdatedAt,
	}
	if c.SentAt != nil {
		updates[fieldSentAt] = *c.SentAt
	}
	if c.FailureReason != "" {
		updates[fieldFailureReason] = c.FailureReason
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	ue.Names["#cur"] = fieldStatus
	ue.Values[":sending"] = &types.AttributeValueMemberS{Value: string(domain.CampaignSending)}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       strKey(fieldCampaignID, c.CampaignID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#cur = :sending"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return conditional(err, "finalize campaign %s", c.CampaignID)
}

// conditional maps a failed condition check to ErrConflict.
func conditional(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: "+format, append([]any{domain.ErrConflict}, args...)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
