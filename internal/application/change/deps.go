package change

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
)

type courseStore interface {
	Get(ctx context.Context, courseID string) (*domain.Course, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context, m dispatch.Message) dispatch.Outcome
	DispatchAll(ctx context.Context, msgs []dispatch.Message) []dispatch.Outcome
}

// Deps are shared by every mutation handler.
type Deps struct {
	Courses    courseStore
	Dispatcher dispatcher
	// Location renders dates in messages. Nil means UTC.
	Location *time.Location
	Log      *zap.Logger
}

func (d Deps) loc() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// courseName falls back to a generic label when the course record is gone.
func (d Deps) courseName(ctx context.Context, courseID string) (string, error) {
	c, err := d.Courses.Get(ctx, courseID)
	if errors.Is(err, domain.ErrNotFound) {
		return "your class", nil
	}
	if err != nil {
		return "", err
	}
	return c.DisplayName(), nil
}
