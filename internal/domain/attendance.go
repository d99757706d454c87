package domain

import "time"

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

type Attendance struct {
	AttendanceID string    `json:"id" dynamodbav:"attendance_id"`
	StudentID    string    `json:"student_id" dynamodbav:"student_id"`
	CourseID     string    `json:"course_id" dynamodbav:"course_id"`
	Date         time.Time `json:"date" dynamodbav:"date,unixtime"`
	Status       string    `json:"status" dynamodbav:"status"`
	Remarks      string    `json:"remarks,omitempty" dynamodbav:"remarks,omitempty"`
}

// AttendanceStats counts a student's attendance records by status.
type AttendanceStats struct {
	Present int `json:"present" dynamodbav:"present"`
	Absent  int `json:"absent" dynamodbav:"absent"`
	Late    int `json:"late" dynamodbav:"late"`
	Excused int `json:"excused" dynamodbav:"excused"`
	Total   int `json:"total" dynamodbav:"total"`
}

func (s *AttendanceStats) Add(status string) {
	s.Total++
	switch status {
	case AttendancePresent:
		s.Present++
	case AttendanceAbsent:
		s.Absent++
	case AttendanceLate:
		s.Late++
	case AttendanceExcused:
		s.Excused++
	}
}
