package sweep

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuition-notify/internal/domain"
)

func enrolled() *domain.Course {
	return &domain.Course{CourseID: "c1", Subject: "Science", Grade: "6", Students: []string{"s1", "s2"}}
}

func TestTaskReminders_SkipsStudentsWhoCompleted(t *testing.T) {
	f := newFixture()
	f.settings.On("GetReminderConfig").Return(domain.DefaultReminderConfig(), nil)
	task := domain.Task{TaskID: "t1", CourseID: "c1", Title: "Lab report", DueDate: day(2025, 3, 11)}
	f.tasks.On("ListOpenDueBetween", day(2025, 3, 11), day(2025, 3, 12)).Return([]domain.Task{task}, nil)
	f.tasks.On("ListOpenDueBetween", day(2025, 3, 9), day(2025, 3, 10)).Return([]domain.Task(nil), nil)
	f.tasks.On("ListOpenDueBetween", day(2025, 3, 7), day(2025, 3, 8)).Return([]domain.Task(nil), nil)
	f.courses.On("Get", "c1").Return(enrolled(), nil)
	f.completion.On("IsCompleted", "t1", "s1").Return(true, nil)
	f.completion.On("IsCompleted", "t1", "s2").Return(false, nil)

	res, err := f.sweeps(neverSuppress{}).TaskReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{Records: 1, Sent: 1}, res)
	sent := f.log.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "s2", sent[0].UserID)
	assert.Equal(t, domain.TypeTaskReminder, sent[0].Type)
	assert.Equal(t, "t1", sent[0].CorrelationID)
	assert.Equal(t, `Your task is due tomorrow: "Lab report" for Science Grade 6 (Tuesday, March 11)`, sent[0].Message)
	f.tasks.AssertExpectations(t)
}

func TestTaskReminders_Disabled(t *testing.T) {
	f := newFixture()
	cfg := domain.DefaultReminderConfig()
	cfg.Enabled = false
	f.settings.On("GetReminderConfig").Return(cfg, nil)

	res, err := f.sweeps(neverSuppress{}).TaskReminders(context.Background())

	require.NoError(t, err)
	assert.Zero(t, res)
	f.tasks.AssertNumberOfCalls(t, "ListOpenDueBetween", 0)
}

func TestTaskReminders_BadSettingsFallBackToDefaults(t *testing.T) {
	f := newFixture()
	f.settings.On("GetReminderConfig").
		Return(domain.DefaultReminderConfig(), fmt.Errorf("setting: %w", domain.ErrConfig))
	f.tasks.On("ListOpenDueBetween", day(2025, 3, 11), day(2025, 3, 12)).Return([]domain.Task(nil), nil)
	f.tasks.On("ListOpenDueBetween", day(2025, 3, 9), day(2025, 3, 10)).Return([]domain.Task(nil), nil)
	f.tasks.On("ListOpenDueBetween", day(2025, 3, 7), day(2025, 3, 8)).Return([]domain.Task(nil), nil)

	_, err := f.sweeps(neverSuppress{}).TaskReminders(context.Background())

	require.NoError(t, err)
	f.tasks.AssertNumberOfCalls(t, "ListOpenDueBetween", 3)
}

func TestTaskReminders_CompletionLookupFailureIsolated(t *testing.T) {
	f := newFixture()
	cfg := domain.DefaultReminderConfig()
	cfg.ReminderDays = cfg.ReminderDays[:1]
	f.settings.On("GetReminderConfig").Return(cfg, nil)
	tasks := []domain.Task{
		{TaskID: "t1", CourseID: "c1", Title: "A", DueDate: day(2025, 3, 11)},
		{TaskID: "t2", CourseID: "c1", Title: "B", DueDate: day(2025, 3, 11)},
	}
	f.tasks.On("ListOpenDueBetween", day(2025, 3, 11), day(2025, 3, 12)).Return(tasks, nil)
	f.courses.On("Get", "c1").Return(enrolled(), nil)
	f.completion.On("IsCompleted", "t1", "s1").Return(false, fmt.Errorf("get: %w", domain.ErrStore))
	f.completion.On("IsCompleted", "t1", "s2").Return(false, nil)
	f.completion.On("IsCompleted", "t2", "s1").Return(false, nil)
	f.completion.On("IsCompleted", "t2", "s2").Return(false, nil)

	res, err := f.sweeps(neverSuppress{}).TaskReminders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 2, res.Sent)
}

func TestOverdueTasks(t *testing.T) {
	f := newFixture()
	task := domain.Task{TaskID: "t1", CourseID: "c1", Title: "Essay", DueDate: day(2025, 3, 6)}
	f.tasks.On("ListOpenDueBetween", time.Time{}, day(2025, 3, 10)).Return([]domain.Task{task}, nil)
	f.courses.On("Get", "c1").Return(enrolled(), nil)
	f.completion.On("IsCompleted", "t1", "s1").Return(false, nil)
	f.completion.On("IsCompleted", "t1", "s2").Return(true, nil)

	res, err := f.sweeps(neverSuppress{}).OverdueTasks(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	sent := f.log.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Task Overdue!", sent[0].Title)
	assert.Equal(t, `"Essay" for Science Grade 6 is 4 days overdue. Please complete it as soon as possible.`, sent[0].Message)
}

func TestOverdueTasks_QueryFailure(t *testing.T) {
	f := newFixture()
	f.tasks.On("ListOpenDueBetween", time.Time{}, day(2025, 3, 10)).
		Return([]domain.Task(nil), fmt.Errorf("scan: %w", domain.ErrStore))

	_, err := f.sweeps(neverSuppress{}).OverdueTasks(context.Background())

	assert.ErrorIs(t, err, domain.ErrStore)
}
