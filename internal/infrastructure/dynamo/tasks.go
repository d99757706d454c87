package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/tuition-notify/internal/domain"
)

// TaskRepo reads the tasks table.
type TaskRepo struct {
	client    API
	tableName string
}

func NewTaskRepo(client API, tableName string) *TaskRepo {
	return &TaskRepo{client: client, tableName: tableName}
}

// ListOpenDueBetween returns tasks that are not completed and fall due in [from, to).
// A zero from leaves the range open at the start.
func (r *TaskRepo) ListOpenDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	filter := "due_date < :to AND is_completed = :f"
	values := map[string]types.AttributeValue{
		":to": unixAttr(to.Unix()),
		":f":  &types.AttributeValueMemberBOOL{Value: false},
	}
	if !from.IsZero() {
		filter = "due_date >= :from AND " + filter
		values[":from"] = unixAttr(from.Unix())
	}
	items, err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return nil, storeErr("scan due tasks", err)
	}
	var tasks []domain.Task
	if err := attributevalue.UnmarshalListOfMaps(items, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// StudentTaskRepo reads per-student task completion.
type StudentTaskRepo struct {
	client    API
	tableName string
}

func NewStudentTaskRepo(client API, tableName string) *StudentTaskRepo {
	return &StudentTaskRepo{client: client, tableName: tableName}
}

// IsCompleted reports whether studentID has completed taskID. A missing record means not completed.
func (r *StudentTaskRepo) IsCompleted(ctx context.Context, taskID, studentID string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("task_id", taskID, "student_id", studentID),
	})
	if err != nil {
		return false, storeErr("get student task", err)
	}
	if out.Item == nil {
		return false, nil
	}
	var st domain.StudentTask
	if err := attributevalue.UnmarshalMap(out.Item, &st); err != nil {
		return false, err
	}
	return st.IsCompleted, nil
}
