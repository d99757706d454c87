package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/dedupe"
	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
)

// Monday.
var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type mockTasks struct{ mock.Mock }

func (m *mockTasks) ListOpenDueBetween(ctx context.Context, from, to time.Time) ([]domain.Task, error) {
	args := m.Called(from, to)
	return args.Get(0).([]domain.Task), args.Error(1)
}

type mockCompletion struct{ mock.Mock }

func (m *mockCompletion) IsCompleted(ctx context.Context, taskID, studentID string) (bool, error) {
	args := m.Called(taskID, studentID)
	return args.Bool(0), args.Error(1)
}

type mockCourses struct{ mock.Mock }

func (m *mockCourses) Get(ctx context.Context, courseID string) (*domain.Course, error) {
	args := m.Called(courseID)
	if c, _ := args.Get(0).(*domain.Course); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPayments struct{ mock.Mock }

func (m *mockPayments) ListByStatus(ctx context.Context, status string) ([]domain.Payment, error) {
	args := m.Called(status)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

type mockStudents struct{ mock.Mock }

func (m *mockStudents) ListActiveStudents(ctx context.Context) ([]domain.User, error) {
	args := m.Called()
	return args.Get(0).([]domain.User), args.Error(1)
}

type mockAttendance struct{ mock.Mock }

func (m *mockAttendance) ListForStudentBetween(ctx context.Context, studentID string, from, to time.Time) ([]domain.Attendance, error) {
	args := m.Called(studentID)
	return args.Get(0).([]domain.Attendance), args.Error(1)
}

type mockSettings struct{ mock.Mock }

func (m *mockSettings) GetReminderConfig(ctx context.Context) (domain.ReminderConfig, error) {
	args := m.Called()
	return args.Get(0).(domain.ReminderConfig), args.Error(1)
}

// neverSuppress lets every notification through.
type neverSuppress struct{}

func (neverSuppress) ShouldSuppress(context.Context, dedupe.Key, time.Duration) bool { return false }

// sentLog is an in-memory notification history that also records dispatches,
// so a real dedupe.Policy can run against it.
type sentLog struct {
	mu   sync.Mutex
	sent []domain.Notification
	// fail makes dispatches to these recipients write nothing.
	fail map[string]error
}

func (l *sentLog) HasRecent(_ context.Context, userID string, t domain.NotificationType, correlationID string, since time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, n := range l.sent {
		if n.UserID == userID && n.Type == t && n.CorrelationID == correlationID && n.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (l *sentLog) Dispatch(_ context.Context, m dispatch.Message) dispatch.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail[m.RecipientID]; err != nil {
		return dispatch.Outcome{RecipientID: m.RecipientID, Type: m.Type, Err: err}
	}
	l.sent = append(l.sent, domain.Notification{
		UserID:        m.RecipientID,
		Type:          m.Type,
		Title:         m.Title,
		Message:       m.Body,
		CorrelationID: m.CorrelationID,
		CreatedAt:     time.Now(),
	})
	return dispatch.Outcome{RecipientID: m.RecipientID, Type: m.Type}
}

func (l *sentLog) seed(n domain.Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, n)
}

func (l *sentLog) messages() []domain.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Notification(nil), l.sent...)
}

type fixture struct {
	tasks      *mockTasks
	completion *mockCompletion
	courses    *mockCourses
	payments   *mockPayments
	students   *mockStudents
	attendance *mockAttendance
	settings   *mockSettings
	log        *sentLog
}

func newFixture() *fixture {
	return &fixture{
		tasks:      &mockTasks{},
		completion: &mockCompletion{},
		courses:    &mockCourses{},
		payments:   &mockPayments{},
		students:   &mockStudents{},
		attendance: &mockAttendance{},
		settings:   &mockSettings{},
		log:        &sentLog{},
	}
}

func (f *fixture) sweeps(s suppressor) *Sweeps {
	return New(Deps{
		Tasks:        f.tasks,
		StudentTasks: f.completion,
		Courses:      f.courses,
		Payments:     f.payments,
		Students:     f.students,
		Attendance:   f.attendance,
		Settings:     f.settings,
		Dedupe:       s,
		Dispatcher:   f.log,
		Location:     time.UTC,
		Log:          zap.NewNop(),
		Now:          func() time.Time { return fixedNow },
	})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
