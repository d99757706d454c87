package domain

import (
	"fmt"
	"time"
)

type Course struct {
	CourseID string   `json:"id" dynamodbav:"course_id"`
	Subject  string   `json:"subject" dynamodbav:"subject"`
	Grade    string   `json:"grade" dynamodbav:"grade"`
	Students []string `json:"students" dynamodbav:"students"`
}

// DisplayName renders the course the way messages refer to it, e.g. "Mathematics Grade 5".
func (c *Course) DisplayName() string {
	if c.Grade == "" {
		return c.Subject
	}
	return fmt.Sprintf("%s Grade %s", c.Subject, c.Grade)
}

type Schedule struct {
	CourseID      string     `json:"course_id" dynamodbav:"course_id"`
	ScheduleID    string     `json:"id" dynamodbav:"schedule_id"`
	Day           string     `json:"day" dynamodbav:"day"`
	StartTime     string     `json:"start_time" dynamodbav:"start_time"`
	EndTime       string     `json:"end_time" dynamodbav:"end_time"`
	Date          *time.Time `json:"date,omitempty" dynamodbav:"date,unixtime,omitempty"`
	IsReplacement bool       `json:"is_replacement" dynamodbav:"is_replacement"`
}

// SameSlot reports whether o describes the same class slot as s.
func (s *Schedule) SameSlot(o *Schedule) bool {
	if s.Day != o.Day || s.StartTime != o.StartTime || s.EndTime != o.EndTime || s.IsReplacement != o.IsReplacement {
		return false
	}
	if (s.Date == nil) != (o.Date == nil) {
		return false
	}
	return s.Date == nil || s.Date.Equal(*o.Date)
}
