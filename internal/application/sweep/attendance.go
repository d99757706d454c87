package sweep

import (
	"context"
	"fmt"
	"strings"

	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
)

// WeeklyAttendanceSummary sends each active student their last seven days of
// attendance, but only to students who were absent or late at least once.
func (s *Sweeps) WeeklyAttendanceSummary(ctx context.Context) (Result, error) {
	r := s.begin(WeeklyAttendanceSummary)
	students, err := s.d.Students.ListActiveStudents(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", WeeklyAttendanceSummary, err)
	}
	scan := Scanner[domain.User]{Name: WeeklyAttendanceSummary, Log: r.log}
	failed := scan.Run(ctx, students, DefaultBatchSize, r.summarise)
	return r.finish(len(students), failed), nil
}

func (r *run) summarise(ctx context.Context, u domain.User) error {
	studentID := u.RecipientID()
	weekStart := r.now.Add(-attendanceLookback)
	records, err := r.d.Attendance.ListForStudentBetween(ctx, studentID, weekStart, r.now)
	if err != nil {
		return fmt.Errorf("attendance for %s: %w", studentID, err)
	}

	var stats domain.AttendanceStats
	for _, a := range records {
		stats.Add(a.Status)
	}
	if stats.Absent == 0 && stats.Late == 0 {
		return nil
	}

	r.send(ctx, dispatch.Message{
		RecipientID:   studentID,
		Type:          domain.TypeAttendanceSummary,
		Title:         "Weekly Attendance Summary",
		Body:          summaryText(stats),
		CorrelationID: startOfDay(weekStart).Format("2006-01-02"),
		Data: map[string]interface{}{
			"weekStart": weekStart,
			"weekEnd":   r.now,
			"stats":     stats,
		},
	}, summaryCooldown)
	return nil
}

func summaryText(s domain.AttendanceStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "This week: %d present", s.Present)
	if s.Absent > 0 {
		fmt.Fprintf(&b, ", %d absent", s.Absent)
	}
	if s.Late > 0 {
		fmt.Fprintf(&b, ", %d late", s.Late)
	}
	if s.Excused > 0 {
		fmt.Fprintf(&b, " (%d excused)", s.Excused)
	}
	fmt.Fprintf(&b, " out of %d classes.", s.Total)
	return b.String()
}
