package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/pkg/validate"
)

// SettingsRepo reads configuration documents from the settings table.
type SettingsRepo struct {
	client    API
	tableName string
}

func NewSettingsRepo(client API, tableName string) *SettingsRepo {
	return &SettingsRepo{client: client, tableName: tableName}
}

// GetRetentionConfig loads the notification_cleanup document. Attributes missing
// from the document keep their default values. On any error the defaults are
// returned together with the error.
func (r *SettingsRepo) GetRetentionConfig(ctx context.Context) (domain.RetentionConfig, error) {
	cfg := domain.DefaultRetentionConfig()
	if err := r.load(ctx, domain.SettingNotificationCleanup, &cfg); err != nil {
		return domain.DefaultRetentionConfig(), err
	}
	return cfg, nil
}

// GetReminderConfig loads the task_notifications document, with the same fallback
// rules as GetRetentionConfig.
func (r *SettingsRepo) GetReminderConfig(ctx context.Context) (domain.ReminderConfig, error) {
	cfg := domain.DefaultReminderConfig()
	if err := r.load(ctx, domain.SettingTaskNotifications, &cfg); err != nil {
		return domain.DefaultReminderConfig(), err
	}
	return cfg, nil
}

// MarkCleanup records when the retention sweep last completed.
func (r *SettingsRepo) MarkCleanup(ctx context.Context, at time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"last_cleanup_time": at.Unix(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("setting_id", domain.SettingNotificationCleanup),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return storeErr("mark cleanup", err)
	}
	return nil
}

func (r *SettingsRepo) load(ctx context.Context, settingID string, out interface{}) error {
	res, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("setting_id", settingID),
	})
	if err != nil {
		return storeErr("get setting "+settingID, err)
	}
	if res.Item == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("setting %s: %w: %w", settingID, domain.ErrConfig, err)
	}
	if err := validate.Struct(out); err != nil {
		return fmt.Errorf("setting %s: %w: %w", settingID, domain.ErrConfig, err)
	}
	return nil
}
