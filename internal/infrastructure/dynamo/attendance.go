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

// AttendanceRepo reads the attendance table.
type AttendanceRepo struct {
	client    API
	tableName string
}

func NewAttendanceRepo(client API, tableName string) *AttendanceRepo {
	return &AttendanceRepo{client: client, tableName: tableName}
}

// ListForStudentBetween returns studentID's attendance records dated within [from, to].
func (r *AttendanceRepo) ListForStudentBetween(ctx context.Context, studentID string, from, to time.Time) ([]domain.Attendance, error) {
	items, err := queryAll(ctx, r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("student_id-date-index"),
		KeyConditionExpression: aws.String("student_id = :sid AND #d BETWEEN :from AND :to"),
		ExpressionAttributeNames: map[string]string{
			"#d": "date",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid":  &types.AttributeValueMemberS{Value: studentID},
			":from": unixAttr(from.Unix()),
			":to":   unixAttr(to.Unix()),
		},
	})
	if err != nil {
		return nil, storeErr("query attendance", err)
	}
	var records []domain.Attendance
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, err
	}
	return records, nil
}
