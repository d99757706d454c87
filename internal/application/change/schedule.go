package change

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
)

var scheduleText = map[Change]struct{ title, verb string }{
	Created:     {"New Class Schedule", "A new class has been scheduled"},
	Deleted:     {"Class Cancelled", "A class has been cancelled"},
	Updated:     {"Schedule Updated", "The schedule has been updated"},
	Replacement: {"Replacement Class", "A replacement class has been scheduled"},
}

// ScheduleHandler notifies every student of a course when one of its class
// slots is added, removed or moved.
type ScheduleHandler struct {
	Deps
}

func NewScheduleHandler(d Deps) *ScheduleHandler {
	return &ScheduleHandler{Deps: d}
}

// Handle reacts to one schedule mutation. Either side may be nil.
func (h *ScheduleHandler) Handle(ctx context.Context, before, after *domain.Schedule) error {
	changed := before != nil && after != nil && !before.SameSlot(after)
	c := Classify(before != nil, after != nil, changed, after != nil && after.IsReplacement)
	if c == None {
		return nil
	}

	s := after
	if s == nil {
		s = before
	}
	log := h.Log.With(zap.String("course_id", s.CourseID), zap.String("schedule_id", s.ScheduleID), zap.Stringer("change", c))

	course, err := h.Courses.Get(ctx, s.CourseID)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", s.ScheduleID, err)
	}
	if len(course.Students) == 0 {
		log.Debug("course has no students")
		return nil
	}

	t := domain.TypeScheduleChange
	if c == Replacement {
		t = domain.TypeScheduleReplacement
	}
	text := scheduleText[c]
	body := fmt.Sprintf("%s for %s%s", text.verb, course.DisplayName(), h.when(s))

	msgs := make([]dispatch.Message, 0, len(course.Students))
	for _, studentID := range course.Students {
		msgs = append(msgs, dispatch.Message{
			RecipientID:   studentID,
			Type:          t,
			Title:         text.title,
			Body:          body,
			CorrelationID: s.ScheduleID,
			Data: map[string]interface{}{
				"scheduleId": s.ScheduleID,
				"courseId":   s.CourseID,
				"changeType": c.String(),
				"day":        s.Day,
				"startTime":  s.StartTime,
				"endTime":    s.EndTime,
			},
		})
	}
	h.Dispatcher.DispatchAll(ctx, msgs)
	log.Info("schedule change dispatched", zap.Int("recipients", len(msgs)))
	return nil
}

func (h *ScheduleHandler) when(s *domain.Schedule) string {
	day := s.Day
	if s.Date != nil {
		day = s.Date.In(h.loc()).Format("Monday, January 2")
	}
	if day == "" || s.StartTime == "" {
		return ""
	}
	return fmt.Sprintf(" on %s at %s", day, s.StartTime)
}
