package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/retention"
	"github.com/tuition-notify/internal/application/sweep"
	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/pkg/logger"
)

type sweepRegistry interface {
	ByName(name string) (func(context.Context) (sweep.Result, error), bool)
}

type cleaner interface {
	Cleanup(ctx context.Context, now time.Time) (retention.Result, error)
}

type ScheduleDeps struct {
	Sweeps     sweepRegistry
	Retention  cleaner
	Dispatcher waiter
	Log        *zap.Logger
}

// ScheduleRouter runs the sweep an EventBridge schedule rule names.
type ScheduleRouter struct {
	d ScheduleDeps
}

func NewScheduleRouter(d ScheduleDeps) *ScheduleRouter {
	return &ScheduleRouter{d: d}
}

// jobDetail lets a rule name its job explicitly through a constant input.
type jobDetail struct {
	Job string `json:"job"`
}

// Handle never returns an error; failures are logged with their kind.
func (s *ScheduleRouter) Handle(ctx context.Context, ev events.CloudWatchEvent) error {
	defer s.d.Dispatcher.Wait()
	job := jobName(ev)
	log := s.d.Log.With(zap.String("handler", job), zap.String("event_id", ev.ID))

	if err := s.run(ctx, job, ev.Time); err != nil {
		logger.Swallowed(log, "scheduled job failed", err)
	}
	return nil
}

func (s *ScheduleRouter) run(ctx context.Context, job string, at time.Time) error {
	if job == retention.JobName {
		if at.IsZero() {
			at = time.Now()
		}
		_, err := s.d.Retention.Cleanup(ctx, at)
		return err
	}
	fn, ok := s.d.Sweeps.ByName(job)
	if !ok {
		return fmt.Errorf("unknown scheduled job %q: %w", job, domain.ErrConfig)
	}
	_, err := fn(ctx)
	return err
}

var jobs = []string{
	retention.JobName,
	sweep.TaskReminders,
	sweep.OverdueTasks,
	sweep.OutstandingPayments,
	sweep.PaymentsDueSoon,
	sweep.MonthlyOverduePayments,
	sweep.WeeklyAttendanceSummary,
}

// jobName reads the job from the event detail, falling back to the rule name.
// Rule names may carry a prefix, e.g. prod-task-reminders.
func jobName(ev events.CloudWatchEvent) string {
	var d jobDetail
	if len(ev.Detail) > 0 && json.Unmarshal(ev.Detail, &d) == nil && d.Job != "" {
		return d.Job
	}
	for _, res := range ev.Resources {
		_, rule, ok := strings.Cut(res, ":rule/")
		if !ok {
			continue
		}
		for _, j := range jobs {
			if rule == j || strings.HasSuffix(rule, "-"+j) {
				return j
			}
		}
		return rule
	}
	return ""
}
