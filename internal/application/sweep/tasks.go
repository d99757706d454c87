package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/dedupe"
	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/pkg/logger"
)

// TaskReminders applies every reminder rule of the task_notifications setting.
// A rule matches open tasks due on today + DaysFromDueDate and fires once per
// student, task and rule type.
func (s *Sweeps) TaskReminders(ctx context.Context) (Result, error) {
	r := s.begin(TaskReminders)
	cfg, err := s.d.Settings.GetReminderConfig(ctx)
	if err != nil {
		logger.Swallowed(r.log, "reminder settings unavailable, using defaults", err)
	}
	if !cfg.Enabled {
		r.log.Info("task reminders disabled")
		return Result{}, nil
	}

	var records, failed int
	for _, rule := range cfg.ReminderDays {
		day := r.today.AddDate(0, 0, rule.DaysFromDueDate)
		tasks, err := s.d.Tasks.ListOpenDueBetween(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return r.finish(records, failed), fmt.Errorf("%s rule %d: %w", TaskReminders, rule.DaysFromDueDate, err)
		}
		records += len(tasks)
		scan := Scanner[domain.Task]{Name: TaskReminders, Log: r.log}
		failed += scan.Run(ctx, tasks, cfg.BatchSize, func(ctx context.Context, t domain.Task) error {
			return r.remind(ctx, rule, t)
		})
	}
	return r.finish(records, failed), nil
}

func (r *run) remind(ctx context.Context, rule domain.ReminderRule, t domain.Task) error {
	students, c, err := r.pendingStudents(ctx, t)
	if err != nil {
		return err
	}
	due := t.DueDate.In(r.d.Location).Format("Monday, January 2")
	for _, studentID := range students {
		r.send(ctx, dispatch.Message{
			RecipientID:   studentID,
			Type:          rule.Type,
			Title:         rule.Title,
			Body:          fmt.Sprintf("%s: %q for %s (%s)", rule.Message, t.Title, c.DisplayName(), due),
			CorrelationID: t.TaskID,
			Data: map[string]interface{}{
				"taskId":          t.TaskID,
				"courseId":        t.CourseID,
				"dueDate":         t.DueDate,
				"daysFromDueDate": rule.DaysFromDueDate,
			},
		}, dedupe.Forever)
	}
	return nil
}

// OverdueTasks nags every student with an open task due before today, at most
// once a week per task.
func (s *Sweeps) OverdueTasks(ctx context.Context) (Result, error) {
	r := s.begin(OverdueTasks)
	tasks, err := s.d.Tasks.ListOpenDueBetween(ctx, time.Time{}, r.today)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", OverdueTasks, err)
	}
	scan := Scanner[domain.Task]{Name: OverdueTasks, Log: r.log}
	failed := scan.Run(ctx, tasks, DefaultBatchSize, r.overdue)
	return r.finish(len(tasks), failed), nil
}

func (r *run) overdue(ctx context.Context, t domain.Task) error {
	students, c, err := r.pendingStudents(ctx, t)
	if err != nil {
		return err
	}
	days := daysBetween(t.DueDate, r.today, r.d.Location)
	for _, studentID := range students {
		r.send(ctx, dispatch.Message{
			RecipientID:   studentID,
			Type:          domain.TypeTaskOverdue,
			Title:         "Task Overdue!",
			Body:          fmt.Sprintf("%q for %s is %d days overdue. Please complete it as soon as possible.", t.Title, c.DisplayName(), days),
			CorrelationID: t.TaskID,
			Data: map[string]interface{}{
				"taskId":      t.TaskID,
				"courseId":    t.CourseID,
				"dueDate":     t.DueDate,
				"daysOverdue": days,
			},
		}, overdueCooldown)
	}
	r.log.Debug("overdue task checked", zap.String("task_id", t.TaskID), zap.Int("pending", len(students)))
	return nil
}
