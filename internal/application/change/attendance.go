package change

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
)

// AttendanceHandler tells a student when they are marked absent or excused.
type AttendanceHandler struct {
	Deps
}

func NewAttendanceHandler(d Deps) *AttendanceHandler {
	return &AttendanceHandler{Deps: d}
}

func (h *AttendanceHandler) Handle(ctx context.Context, before, after *domain.Attendance) error {
	statusChanged := before == nil || after == nil || before.Status != after.Status
	c := Classify(before != nil, after != nil, statusChanged, false)
	if c != Created && c != Updated {
		return nil
	}

	var t domain.NotificationType
	var title, format string
	switch after.Status {
	case domain.AttendanceAbsent:
		t, title, format = domain.TypeAttendanceAbsent, "Marked Absent", "You were marked absent from %s on %s."
	case domain.AttendanceExcused:
		t, title, format = domain.TypeAttendanceExcused, "Excused Absence Recorded", "Your absence from %s on %s has been excused."
	default:
		return nil
	}

	name, err := h.courseName(ctx, after.CourseID)
	if err != nil {
		return fmt.Errorf("attendance %s: %w", after.AttendanceID, err)
	}
	body := fmt.Sprintf(format, name, after.Date.In(h.loc()).Format("Monday, January 2, 2006"))
	if after.Remarks != "" {
		body += " Remarks: " + after.Remarks
	}

	out := h.Dispatcher.Dispatch(ctx, dispatch.Message{
		RecipientID:   after.StudentID,
		Type:          t,
		Title:         title,
		Body:          body,
		CorrelationID: after.AttendanceID,
		Data: map[string]interface{}{
			"attendanceId": after.AttendanceID,
			"courseId":     after.CourseID,
			"status":       after.Status,
			"date":         after.Date,
		},
	})
	h.Log.Info("attendance notification dispatched",
		zap.String("attendance_id", after.AttendanceID),
		zap.String("outcome", out.Label()))
	return nil
}
