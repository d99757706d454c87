package change

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
)

type mockCourses struct{ mock.Mock }

func (m *mockCourses) Get(ctx context.Context, courseID string) (*domain.Course, error) {
	args := m.Called(courseID)
	if c, _ := args.Get(0).(*domain.Course); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// recorder collects every message handed to the dispatcher.
type recorder struct {
	mu   sync.Mutex
	msgs []dispatch.Message
}

func (r *recorder) Dispatch(_ context.Context, m dispatch.Message) dispatch.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return dispatch.Outcome{RecipientID: m.RecipientID, Type: m.Type}
}

func (r *recorder) DispatchAll(ctx context.Context, msgs []dispatch.Message) []dispatch.Outcome {
	outs := make([]dispatch.Outcome, len(msgs))
	for i, m := range msgs {
		outs[i] = r.Dispatch(ctx, m)
	}
	return outs
}

func testDeps(courses *mockCourses, rec *recorder) Deps {
	return Deps{Courses: courses, Dispatcher: rec, Location: time.UTC, Log: zap.NewNop()}
}

func mathCourse() *domain.Course {
	return &domain.Course{CourseID: "c1", Subject: "Mathematics", Grade: "5", Students: []string{"s1", "s2"}}
}
