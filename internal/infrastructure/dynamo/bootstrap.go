package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-push-scheduler/internal/config"
)

// Bootstrap creates the directory tables and GSIs if they don't already exist.
// Existing tables are left untouched.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) {
	createTable(ctx, client, hashTable(tables.Recipients, fieldUserID))

	devices := hashTable(tables.DeviceTokens, fieldToken)
	devices.AttributeDefinitions = append(devices.AttributeDefinitions, strAttr(fieldUserID))
	devices.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{gsi(indexUserID, fieldUserID, "")}
	createTable(ctx, client, devices)

	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:   aws.String(tables.JourneyTemplates),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			strAttr("stage"),
			{AttributeName: aws.String("day_number"), AttributeType: types.ScalarAttributeTypeN},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("stage"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("day_number"), KeyType: types.KeyTypeRange},
		},
	})

	createTable(ctx, client, &dynamodb.CreateTableInput{
		TableName:            aws.String(tables.CycleReminders),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{strAttr(fieldUserID), strAttr("rule_id")},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(fieldUserID), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("rule_id"), KeyType: types.KeyTypeRange},
		},
	})

	createTable(ctx, client, hashTable(tables.Broadcasts, "broadcast_id"))

	deliveries := hashTable(tables.Deliveries, "delivery_id")
	deliveries.AttributeDefinitions = append(deliveries.AttributeDefinitions,
		strAttr(fieldUserID), strAttr("run_id"), strAttr("created_at"))
	deliveries.GlobalSecondaryIndexes = []types.GlobalSecondaryIndex{
		gsi("user_id-created_at-index", fieldUserID, "created_at"),
		gsi("run_id-index", "run_id", ""),
	}
	createTable(ctx, client, deliveries)
	enableTTL(ctx, client, tables.Deliveries, "expires_at")

	createTable(ctx, client, hashTable(tables.Campaigns, fieldCampaignID))
}

func strAttr(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
}

// hashTable describes an on-demand table keyed by a single string attribute.
func hashTable(name, hashKey string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{strAttr(hashKey)},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
		},
	}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			slog.Warn("could not create table", "table", *input.TableName, "err", err)
		}
		return
	}
	slog.Info("created table", "table", *input.TableName)
}

func enableTTL(ctx context.Context, client *dynamodb.Client, tableName, ttlAttr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		slog.Warn("could not enable TTL", "table", tableName, "err", err)
	}
}
