package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/config"
)

// TableCreator is the part of the DynamoDB client Bootstrap needs.
type TableCreator interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Safe to call on every startup, tables that already exist are skipped.
// Tables whose mutations trigger notifications get NEW_AND_OLD_IMAGES streams.
func Bootstrap(ctx context.Context, client TableCreator, tables config.DynamoTables, log *zap.Logger) {
	for _, in := range tableDefinitions(tables) {
		createTable(ctx, client, in, log)
	}
}

func tableDefinitions(tables config.DynamoTables) []*dynamodb.CreateTableInput {
	return []*dynamodb.CreateTableInput{
		{
			TableName:   aws.String(tables.Notifications),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("notification_id", types.ScalarAttributeTypeS),
				attr("user_id", types.ScalarAttributeTypeS),
				attr("created_at", types.ScalarAttributeTypeN),
			},
			KeySchema: hashKey("notification_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(notificationsByUserIndex, "user_id", "created_at"),
			},
		},
		{
			TableName:            aws.String(tables.ArchivedNotifications),
			BillingMode:          types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{attr("notification_id", types.ScalarAttributeTypeS)},
			KeySchema:            hashKey("notification_id"),
		},
		{
			TableName:   aws.String(tables.Users),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("user_id", types.ScalarAttributeTypeS),
				attr("student_id", types.ScalarAttributeTypeS),
				attr("role", types.ScalarAttributeTypeS),
			},
			KeySchema: hashKey("user_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi("student_id-index", "student_id", ""),
				gsi("role-index", "role", ""),
			},
		},
		{
			TableName:            aws.String(tables.Courses),
			BillingMode:          types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{attr("course_id", types.ScalarAttributeTypeS)},
			KeySchema:            hashKey("course_id"),
		},
		{
			TableName:   aws.String(tables.Schedules),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("course_id", types.ScalarAttributeTypeS),
				attr("schedule_id", types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("course_id"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("schedule_id"), KeyType: types.KeyTypeRange},
			},
			StreamSpecification: changeStream(),
		},
		{
			TableName:            aws.String(tables.Tasks),
			BillingMode:          types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{attr("task_id", types.ScalarAttributeTypeS)},
			KeySchema:            hashKey("task_id"),
			StreamSpecification:  changeStream(),
		},
		{
			TableName:   aws.String(tables.StudentTasks),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("task_id", types.ScalarAttributeTypeS),
				attr("student_id", types.ScalarAttributeTypeS),
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("task_id"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("student_id"), KeyType: types.KeyTypeRange},
			},
		},
		{
			TableName:   aws.String(tables.Payments),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("payment_id", types.ScalarAttributeTypeS),
				attr("status", types.ScalarAttributeTypeS),
			},
			KeySchema: hashKey("payment_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi("status-index", "status", ""),
			},
		},
		{
			TableName:   aws.String(tables.Attendance),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				attr("attendance_id", types.ScalarAttributeTypeS),
				attr("student_id", types.ScalarAttributeTypeS),
				attr("date", types.ScalarAttributeTypeN),
			},
			KeySchema: hashKey("attendance_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi("student_id-date-index", "student_id", "date"),
			},
			StreamSpecification: changeStream(),
		},
		{
			TableName:            aws.String(tables.Settings),
			BillingMode:          types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{attr("setting_id", types.ScalarAttributeTypeS)},
			KeySchema:            hashKey("setting_id"),
		},
	}
}

func attr(name string, t types.ScalarAttributeType) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: t}
}

func hashKey(name string) []types.KeySchemaElement {
	return []types.KeySchemaElement{{AttributeName: aws.String(name), KeyType: types.KeyTypeHash}}
}

func changeStream() *types.StreamSpecification {
	return &types.StreamSpecification{
		StreamEnabled:  aws.Bool(true),
		StreamViewType: types.StreamViewTypeNewAndOldImages,
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

func createTable(ctx context.Context, client TableCreator, input *dynamodb.CreateTableInput, log *zap.Logger) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			log.Warn("could not create table", zap.String("table", *input.TableName), zap.Error(err))
		}
		return
	}
	log.Info("created table", zap.String("table", *input.TableName))
}
