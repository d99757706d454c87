package sweep

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/dedupe"
	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
)

// Sweep names, shared by the schedule triggers and the worker.
const (
	TaskReminders           = "task-reminders"
	OverdueTasks            = "overdue-tasks"
	OutstandingPayments     = "outstanding-payments"
	PaymentsDueSoon         = "payments-due-soon"
	MonthlyOverduePayments  = "monthly-overdue-payments"
	WeeklyAttendanceSummary = "weekly-attendance-summary"
)

const (
	overdueCooldown    = 7 * 24 * time.Hour
	paymentCooldown    = 3 * 24 * time.Hour
	summaryCooldown    = 7 * 24 * time.Hour
	attendanceLookback = 7 * 24 * time.Hour
	urgentAfterDays    = 7
	dueSoonWindowDays  = 3
)

type taskStore interface {
	ListOpenDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error)
}

type completionStore interface {
	IsCompleted(ctx context.Context, taskID, studentID string) (bool, error)
}

type courseStore interface {
	Get(ctx context.Context, courseID string) (*domain.Course, error)
}

type paymentStore interface {
	ListByStatus(ctx context.Context, status string) ([]domain.Payment, error)
}

type studentStore interface {
	ListActiveStudents(ctx context.Context) ([]domain.User, error)
}

type attendanceStore interface {
	ListForStudentBetween(ctx context.Context, studentID string, from, to time.Time) ([]domain.Attendance, error)
}

type reminderSettings interface {
	GetReminderConfig(ctx context.Context) (domain.ReminderConfig, error)
}

type suppressor interface {
	ShouldSuppress(ctx context.Context, k dedupe.Key, cooldown time.Duration) bool
}

type dispatcher interface {
	Dispatch(ctx context.Context, m dispatch.Message) dispatch.Outcome
}

type Deps struct {
	Tasks        taskStore
	StudentTasks completionStore
	Courses      courseStore
	Payments     paymentStore
	Students     studentStore
	Attendance   attendanceStore
	Settings     reminderSettings
	Dedupe       suppressor
	Dispatcher   dispatcher
	// Location defines calendar days. Nil means UTC.
	Location *time.Location
	Log      *zap.Logger
	Now      func() time.Time
}

// Result summarises one sweep run.
type Result struct {
	Records int
	// Sent counts dispatches that wrote the in-app record or reached a device.
	Sent int
	// Undelivered counts dispatches that produced neither.
	Undelivered int
	Failed      int
}

// Sweeps holds the timer-driven handlers.
type Sweeps struct {
	d Deps
}

func New(d Deps) *Sweeps {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Sweeps{d: d}
}

// ByName returns the sweep registered under name.
func (s *Sweeps) ByName(name string) (func(context.Context) (Result, error), bool) {
	fn, ok := map[string]func(context.Context) (Result, error){
		TaskReminders:           s.TaskReminders,
		OverdueTasks:            s.OverdueTasks,
		OutstandingPayments:     s.OutstandingPayments,
		PaymentsDueSoon:         s.PaymentsDueSoon,
		MonthlyOverduePayments:  s.MonthlyOverduePayments,
		WeeklyAttendanceSummary: s.WeeklyAttendanceSummary,
	}[name]
	return fn, ok
}

// run is the per-invocation state shared by the records of one sweep.
type run struct {
	*Sweeps
	name    string
	now     time.Time
	today   time.Time
	sent    atomic.Int64
	lost    atomic.Int64
	log     *zap.Logger
	mu      sync.Mutex
	courses map[string]*domain.Course
}

func (s *Sweeps) begin(name string) *run {
	now := s.d.Now().In(s.d.Location)
	return &run{
		Sweeps:  s,
		name:    name,
		now:     now,
		today:   startOfDay(now),
		log:     s.d.Log.With(zap.String("handler", name)),
		courses: map[string]*domain.Course{},
	}
}

func (r *run) finish(records, failed int) Result {
	res := Result{
		Records:     records,
		Sent:        int(r.sent.Load()),
		Undelivered: int(r.lost.Load()),
		Failed:      failed,
	}
	r.log.Info("sweep finished",
		zap.Int("records", res.Records),
		zap.Int("sent", res.Sent),
		zap.Int("undelivered", res.Undelivered),
		zap.Int("failed", res.Failed))
	return res
}

// course caches course lookups for the duration of the run.
func (r *run) course(ctx context.Context, courseID string) (*domain.Course, error) {
	r.mu.Lock()
	c, ok := r.courses[courseID]
	r.mu.Unlock()
	if ok {
		return c, nil
	}
	c, err := r.d.Courses.Get(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("course %s: %w", courseID, err)
	}
	r.mu.Lock()
	r.courses[courseID] = c
	r.mu.Unlock()
	return c, nil
}

// send dispatches m unless an equal notification went out within cooldown.
func (r *run) send(ctx context.Context, m dispatch.Message, cooldown time.Duration) {
	k := dedupe.Key{RecipientID: m.RecipientID, Type: m.Type, CorrelationID: m.CorrelationID}
	if r.d.Dedupe.ShouldSuppress(ctx, k, cooldown) {
		return
	}
	out := r.d.Dispatcher.Dispatch(ctx, m)
	if out.Err == nil || out.NotificationID != "" || out.Delivered > 0 {
		r.sent.Add(1)
		return
	}
	r.lost.Add(1)
}

// pendingStudents returns the enrolled students who have not completed t.
func (r *run) pendingStudents(ctx context.Context, t domain.Task) ([]string, *domain.Course, error) {
	c, err := r.course(ctx, t.CourseID)
	if err != nil {
		return nil, nil, err
	}
	var pending []string
	for _, studentID := range c.Students {
		done, err := r.d.StudentTasks.IsCompleted(ctx, t.TaskID, studentID)
		if err != nil {
			return nil, nil, fmt.Errorf("task %s student %s: %w", t.TaskID, studentID, err)
		}
		if !done {
			pending = append(pending, studentID)
		}
	}
	return pending, c, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b in loc.
func daysBetween(a, b time.Time, loc *time.Location) int {
	from := startOfDay(a.In(loc))
	to := startOfDay(b.In(loc))
	return int(to.Sub(from).Round(time.Hour).Hours() / 24)
}
