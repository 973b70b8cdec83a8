package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-push-scheduler/internal/domain"
)

type DeviceTokenRepo struct {
	client API
	table  string
}

func NewDeviceTokenRepo(client API, table string) *DeviceTokenRepo {
	return &DeviceTokenRepo{client: client, table: table}
}

// ListByUser returns the registrations of one recipient, oldest first.
func (r *DeviceTokenRepo) ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	out, err := queryAll[domain.DeviceToken](ctx, r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(indexUserID),
		KeyConditionExpression:    aws.String("#u = :u"),
		ExpressionAttributeNames:  map[string]string{"#u": fieldUserID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
	})
	if err != nil {
		return nil, fmt.Errorf("query tokens for %s: %w", userID, err)
	}
	sortTokens(out)
	return out, nil
}

// Delete removes a token. Deleting a missing token is not an error.
func (r *DeviceTokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       strKey(fieldToken, token),
	})
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// sortTokens orders by registration time so fallback tries the oldest device first.
func sortTokens(tokens []domain.DeviceToken) {
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].CreatedAt.Before(tokens[j].CreatedAt)
	})
}
