package sweep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuition-notify/internal/domain"
)

func TestWeeklyAttendanceSummary(t *testing.T) {
	f := newFixture()
	f.students.On("ListActiveStudents").Return([]domain.User{
		{UserID: "u1", StudentID: "s1", Role: domain.RoleStudent, IsActive: true},
		{UserID: "u2", StudentID: "s2", Role: domain.RoleStudent, IsActive: true},
	}, nil)
	f.attendance.On("ListForStudentBetween", "s1").Return([]domain.Attendance{
		{Status: domain.AttendancePresent},
		{Status: domain.AttendancePresent},
		{Status: domain.AttendanceAbsent},
		{Status: domain.AttendanceExcused},
	}, nil)
	f.attendance.On("ListForStudentBetween", "s2").Return([]domain.Attendance{
		{Status: domain.AttendancePresent},
	}, nil)

	res, err := f.sweeps(neverSuppress{}).WeeklyAttendanceSummary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Result{Records: 2, Sent: 1}, res)
	sent := f.log.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "s1", sent[0].UserID)
	assert.Equal(t, "2025-03-03", sent[0].CorrelationID)
	assert.Equal(t, "This week: 2 present, 1 absent (1 excused) out of 4 classes.", sent[0].Message)
}

func TestSummaryText(t *testing.T) {
	assert.Equal(t, "This week: 0 present, 2 late out of 2 classes.",
		summaryText(domain.AttendanceStats{Late: 2, Total: 2}))
}

func TestByName(t *testing.T) {
	s := newFixture().sweeps(neverSuppress{})
	for _, name := range []string{TaskReminders, OverdueTasks, OutstandingPayments, PaymentsDueSoon, MonthlyOverduePayments, WeeklyAttendanceSummary} {
		_, ok := s.ByName(name)
		assert.True(t, ok, name)
	}
	_, ok := s.ByName("nope")
	assert.False(t, ok)
}
