package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-push-scheduler/internal/domain"
)

// deliveryRetention bounds how long audit rows live before DynamoDB TTL expires them.
const deliveryRetention = 90 * 24 * time.Hour

type DeliveryRepo struct {
	client API
	table  string
}

func NewDeliveryRepo(client API, table string) *DeliveryRepo {
	return &DeliveryRepo{client: client, table: table}
}

// Put appends one audit record. Records are never updated.
func (r *DeliveryRepo) Put(ctx context.Context, o domain.DeliveryOutcome) error {
	item, err := deliveryItem(o)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(delivery_id)"),
	})
	if err != nil {
		return fmt.Errorf("put delivery %s: %w", o.DeliveryID, err)
	}
	return nil
}

func deliveryItem(o domain.DeliveryOutcome) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return nil, fmt.Errorf("marshal delivery: %w", err)
	}
	expires := o.CreatedAt.Add(deliveryRetention).Unix()
	item["expires_at"] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expires)}
	return item, nil
}
