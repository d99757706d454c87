package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tuition-notify/internal/domain"
)

const notificationsByUserIndex = "user_id-created_at-index"

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    API
	tableName string
}

func NewNotificationRepo(client API, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

// Table is the notifications table name, for callers building WriteOps.
func (r *NotificationRepo) Table() string { return r.tableName }

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put notification", err)
	}
	return nil
}

// HasRecent reports whether userID already has a notification of type t created after since.
// A zero since matches notifications of any age. An empty correlationID matches any subject.
func (r *NotificationRepo) HasRecent(ctx context.Context, userID string, t domain.NotificationType, correlationID string, since time.Time) (bool, error) {
	keyCond := "user_id = :uid"
	filter := "#t = :type"
	values := map[string]types.AttributeValue{
		":uid":  &types.AttributeValueMemberS{Value: userID},
		":type": &types.AttributeValueMemberS{Value: string(t)},
	}
	if !since.IsZero() {
		keyCond += " AND created_at > :since"
		values[":since"] = unixAttr(since.Unix())
	}
	if correlationID != "" {
		filter += " AND correlation_id = :cid"
		values[":cid"] = &types.AttributeValueMemberS{Value: correlationID}
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(notificationsByUserIndex),
		KeyConditionExpression:    aws.String(keyCond),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  map[string]string{"#t": "type"},
		ExpressionAttributeValues: values,
		ProjectionExpression:      aws.String("notification_id"),
	}
	// Filters run after the page is read, so an empty page does not mean no match.
	for {
		out, err := r.client.Query(ctx, in)
		if err != nil {
			return false, storeErr("query recent notifications", err)
		}
		if len(out.Items) > 0 {
			return true, nil
		}
		if len(out.LastEvaluatedKey) == 0 {
			return false, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// ListCreatedBefore scans for every notification created strictly before cutoff.
func (r *NotificationRepo) ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]domain.Notification, error) {
	items, err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("created_at < :cutoff"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cutoff": unixAttr(cutoff.Unix()),
		},
	})
	if err != nil {
		return nil, storeErr("scan old notifications", err)
	}
	var notifications []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(items, &notifications); err != nil {
		return nil, fmt.Errorf("unmarshal notifications: %w", err)
	}
	return notifications, nil
}
