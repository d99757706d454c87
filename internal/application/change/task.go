package change

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
)

// TaskHandler announces new tasks to the course and forwards tutor feedback
// to the student it was written for.
type TaskHandler struct {
	Deps
}

func NewTaskHandler(d Deps) *TaskHandler {
	return &TaskHandler{Deps: d}
}

func (h *TaskHandler) Handle(ctx context.Context, before, after *domain.Task) error {
	switch Classify(before != nil, after != nil, true, false) {
	case Created:
		return h.created(ctx, after)
	case Updated:
		return h.feedback(ctx, before, after)
	default:
		return nil
	}
}

func (h *TaskHandler) created(ctx context.Context, t *domain.Task) error {
	course, err := h.Courses.Get(ctx, t.CourseID)
	if err != nil {
		return fmt.Errorf("task %s: %w", t.TaskID, err)
	}

	msgs := make([]dispatch.Message, 0, len(course.Students))
	for _, studentID := range course.Students {
		msgs = append(msgs, dispatch.Message{
			RecipientID:   studentID,
			Type:          domain.TypeTaskCreated,
			Title:         "New Task Assigned",
			Body:          fmt.Sprintf("New task %q has been assigned in %s", t.Title, course.DisplayName()),
			CorrelationID: t.TaskID,
			Data: map[string]interface{}{
				"taskId":   t.TaskID,
				"courseId": t.CourseID,
				"dueDate":  t.DueDate,
			},
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	h.Dispatcher.DispatchAll(ctx, msgs)
	h.Log.Info("task announced", zap.String("task_id", t.TaskID), zap.Int("recipients", len(msgs)))
	return nil
}

// feedback sends one notification per student whose remarks are new or were rewritten.
func (h *TaskHandler) feedback(ctx context.Context, before, after *domain.Task) error {
	var students []string
	for studentID, note := range after.StudentTasks {
		if note.Remarks != "" && note.Remarks != before.Remarks(studentID) {
			students = append(students, studentID)
		}
	}
	if len(students) == 0 {
		return nil
	}
	sort.Strings(students)

	msgs := make([]dispatch.Message, 0, len(students))
	for _, studentID := range students {
		msgs = append(msgs, dispatch.Message{
			RecipientID:   studentID,
			Type:          domain.TypeTaskFeedback,
			Title:         "Task Feedback Received",
			Body:          fmt.Sprintf("Your tutor has provided feedback on %q", after.Title),
			CorrelationID: after.TaskID,
			Data: map[string]interface{}{
				"taskId":   after.TaskID,
				"courseId": after.CourseID,
			},
		})
	}
	h.Dispatcher.DispatchAll(ctx, msgs)
	h.Log.Info("task feedback dispatched", zap.String("task_id", after.TaskID), zap.Int("recipients", len(msgs)))
	return nil
}
