package domain

import "time"

type Task struct {
	TaskID       string                     `json:"id" dynamodbav:"task_id"`
	CourseID     string                     `json:"course_id" dynamodbav:"course_id"`
	Title        string                     `json:"title" dynamodbav:"title"`
	DueDate      time.Time                  `json:"due_date" dynamodbav:"due_date,unixtime"`
	IsCompleted  bool                       `json:"is_completed" dynamodbav:"is_completed"`
	StudentTasks map[string]StudentTaskNote `json:"student_tasks,omitempty" dynamodbav:"student_tasks,omitempty"`
}

// StudentTaskNote is the tutor's per-student annotation embedded in a task.
type StudentTaskNote struct {
	Remarks string `json:"remarks" dynamodbav:"remarks"`
}

// Remarks returns the remarks left for studentID, or "".
func (t *Task) Remarks(studentID string) string {
	if t == nil || t.StudentTasks == nil {
		return ""
	}
	return t.StudentTasks[studentID].Remarks
}

// StudentTask tracks one student's completion of one task.
type StudentTask struct {
	TaskID      string `json:"task_id" dynamodbav:"task_id"`
	StudentID   string `json:"student_id" dynamodbav:"student_id"`
	IsCompleted bool   `json:"is_completed" dynamodbav:"is_completed"`
}
