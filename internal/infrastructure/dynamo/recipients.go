package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-push-scheduler/internal/domain"
)

type RecipientRepo struct {
	client API
	table  string
}

func NewRecipientRepo(client API, table string) *RecipientRepo {
	return &RecipientRepo{client: client, table: table}
}

// ListEnabled returns every recipient with notifications switched on.
func (r *RecipientRepo) ListEnabled(ctx context.Context) ([]domain.Recipient, error) {
	filter, names, values := boolFilter(fieldNotificationsEnabled)
	out, err := scanAll[domain.Recipient](ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return nil, fmt.Errorf("scan recipients: %w", err)
	}
	return out, nil
}

// ListSegment returns enabled recipients whose life stage or role equals
// segment. "all" returns every enabled recipient.
func (r *RecipientRepo) ListSegment(ctx context.Context, segment string) ([]domain.Recipient, error) {
	if segment == domain.AudienceAll {
		return r.ListEnabled(ctx)
	}
	out, err := scanAll[domain.Recipient](ctx, r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.table),
		FilterExpression: aws.String("#en = :t AND (#stage = :seg OR #role = :seg)"),
		ExpressionAttributeNames: map[string]string{
			"#en":    fieldNotificationsEnabled,
			"#stage": "life_stage",
			"#role":  "role",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":seg": &types.AttributeValueMemberS{Value: segment},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan segment %q: %w", segment, err)
	}
	return out, nil
}

// StampLastSent records a successful send. A recipient deleted mid-run is
// left deleted and the stamp is dropped.
func (r *RecipientRepo) StampLastSent(ctx context.Context, userID string, at time.Time) error {
	av, err := attributevalue.Marshal(at)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String("SET #f = :v"),
		ConditionExpression:       aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:  map[string]string{"#f": fieldLastSentAt, "#id": fieldUserID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": av},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stamp last sent %s: %w", userID, err)
	}
	return nil
}
