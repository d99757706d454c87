package change

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuition-notify/internal/domain"
)

func record(status string) *domain.Attendance {
	return &domain.Attendance{
		AttendanceID: "a1",
		StudentID:    "s1",
		CourseID:     "c1",
		Date:         time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Status:       status,
	}
}

func TestAttendanceHandler_PresentToAbsent(t *testing.T) {
	courses, rec := &mockCourses{}, &recorder{}
	courses.On("Get", "c1").Return(mathCourse(), nil)

	err := NewAttendanceHandler(testDeps(courses, rec)).
		Handle(context.Background(), record(domain.AttendancePresent), record(domain.AttendanceAbsent))

	require.NoError(t, err)
	require.Len(t, rec.msgs, 1)
	m := rec.msgs[0]
	assert.Equal(t, "s1", m.RecipientID)
	assert.Equal(t, domain.TypeAttendanceAbsent, m.Type)
	assert.Equal(t, "Marked Absent", m.Title)
	assert.Equal(t, "You were marked absent from Mathematics Grade 5 on Monday, March 10, 2025.", m.Body)
}

func TestAttendanceHandler_SameStatusIsNoOp(t *testing.T) {
	courses, rec := &mockCourses{}, &recorder{}

	err := NewAttendanceHandler(testDeps(courses, rec)).
		Handle(context.Background(), record(domain.AttendanceAbsent), record(domain.AttendanceAbsent))

	require.NoError(t, err)
	assert.Empty(t, rec.msgs)
}

func TestAttendanceHandler_NewExcusedWithRemarks(t *testing.T) {
	courses, rec := &mockCourses{}, &recorder{}
	courses.On("Get", "c1").Return(nil, fmt.Errorf("course: %w", domain.ErrNotFound))
	after := record(domain.AttendanceExcused)
	after.Remarks = "Medical leave"

	require.NoError(t, NewAttendanceHandler(testDeps(courses, rec)).Handle(context.Background(), nil, after))

	require.Len(t, rec.msgs, 1)
	assert.Equal(t, domain.TypeAttendanceExcused, rec.msgs[0].Type)
	assert.Equal(t, "Your absence from your class on Monday, March 10, 2025 has been excused. Remarks: Medical leave", rec.msgs[0].Body)
}

func TestAttendanceHandler_IgnoredStatuses(t *testing.T) {
	courses, rec := &mockCourses{}, &recorder{}
	h := NewAttendanceHandler(testDeps(courses, rec))

	require.NoError(t, h.Handle(context.Background(), record(domain.AttendanceAbsent), record(domain.AttendanceLate)))
	require.NoError(t, h.Handle(context.Background(), nil, record(domain.AttendancePresent)))
	require.NoError(t, h.Handle(context.Background(), record(domain.AttendanceAbsent), nil))

	assert.Empty(t, rec.msgs)
}
