package lambda

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/config"
	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/pkg/logger"
)

type scheduleHandler interface {
	Handle(ctx context.Context, before, after *domain.Schedule) error
}

type taskHandler interface {
	Handle(ctx context.Context, before, after *domain.Task) error
}

type attendanceHandler interface {
	Handle(ctx context.Context, before, after *domain.Attendance) error
}

// waiter is satisfied by the dispatcher; background token pruning must finish
// before the invocation returns.
type waiter interface {
	Wait()
}

type StreamDeps struct {
	Tables     config.DynamoTables
	Schedules  scheduleHandler
	Tasks      taskHandler
	Attendance attendanceHandler
	Dispatcher waiter
	Log        *zap.Logger
}

// StreamRouter feeds DynamoDB stream records to the mutation handler of their table.
type StreamRouter struct {
	d StreamDeps
}

func NewStreamRouter(d StreamDeps) *StreamRouter {
	return &StreamRouter{d: d}
}

// Handle processes every record of ev. Failures are logged per record and never
// returned, so the stream does not redeliver the batch.
func (s *StreamRouter) Handle(ctx context.Context, ev events.DynamoDBEvent) error {
	defer s.d.Dispatcher.Wait()
	for _, rec := range ev.Records {
		table := tableFromARN(rec.EventSourceArn)
		if err := s.route(ctx, table, rec.Change); err != nil {
			logger.Swallowed(s.d.Log, "stream record failed", err,
				zap.String("handler", "stream"),
				zap.String("table", table),
				zap.String("event_id", rec.EventID),
				zap.String("event_name", rec.EventName))
		}
	}
	return nil
}

func (s *StreamRouter) route(ctx context.Context, table string, c events.DynamoDBStreamRecord) error {
	switch table {
	case s.d.Tables.Schedules:
		before, after, err := decodePair[domain.Schedule](c)
		if err != nil {
			return err
		}
		return s.d.Schedules.Handle(ctx, before, after)
	case s.d.Tables.Tasks:
		before, after, err := decodePair[domain.Task](c)
		if err != nil {
			return err
		}
		return s.d.Tasks.Handle(ctx, before, after)
	case s.d.Tables.Attendance:
		before, after, err := decodePair[domain.Attendance](c)
		if err != nil {
			return err
		}
		return s.d.Attendance.Handle(ctx, before, after)
	default:
		s.d.Log.Debug("ignoring stream record", zap.String("table", table))
		return nil
	}
}

func decodePair[T any](c events.DynamoDBStreamRecord) (*T, *T, error) {
	before, err := decodeImage[T](c.OldImage)
	if err != nil {
		return nil, nil, fmt.Errorf("old image: %w: %w", domain.ErrStore, err)
	}
	after, err := decodeImage[T](c.NewImage)
	if err != nil {
		return nil, nil, fmt.Errorf("new image: %w: %w", domain.ErrStore, err)
	}
	return before, after, nil
}

// tableFromARN extracts the table name from a stream ARN of the form
// arn:aws:dynamodb:<region>:<account>:table/<name>/stream/<label>.
func tableFromARN(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}
