package dedupe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/pkg/logger"
	"github.com/tuition-notify/internal/pkg/metrics"
)

// Forever is the cooldown that matches any earlier notification regardless of age.
const Forever time.Duration = 0

// Key identifies the notifications that count as duplicates of each other.
// An empty CorrelationID matches on recipient and type alone.
type Key struct {
	RecipientID   string
	Type          domain.NotificationType
	CorrelationID string
}

type history interface {
	HasRecent(ctx context.Context, userID string, t domain.NotificationType, correlationID string, since time.Time) (bool, error)
}

type locker interface {
	Acquire(ctx context.Context, recipientID string, t domain.NotificationType, correlationID string, ttl time.Duration) (bool, error)
}

// Policy decides whether a notification would repeat one sent within its cooldown.
type Policy struct {
	history history
	lock    locker
	log     *zap.Logger
	now     func() time.Time
}

// New builds a Policy over the notification history. lock may be nil; when set,
// a key that passes the history check must also be claimed in the lock before
// it is allowed through.
func New(h history, lock locker, log *zap.Logger) *Policy {
	return &Policy{history: h, lock: lock, log: log, now: time.Now}
}

// ShouldSuppress reports whether a notification for k was already sent within
// cooldown. Lookup failures never suppress.
func (p *Policy) ShouldSuppress(ctx context.Context, k Key, cooldown time.Duration) bool {
	var since time.Time
	if cooldown > Forever {
		since = p.now().Add(-cooldown)
	}

	found, err := p.history.HasRecent(ctx, k.RecipientID, k.Type, k.CorrelationID, since)
	if err != nil {
		logger.Swallowed(p.log, "dedupe lookup failed, sending anyway", err, k.fields()...)
		return false
	}
	if found {
		p.suppressed(k, "history")
		return true
	}

	if p.lock == nil {
		return false
	}
	won, err := p.lock.Acquire(ctx, k.RecipientID, k.Type, k.CorrelationID, cooldown)
	if err != nil {
		logger.Swallowed(p.log, "dedupe lock failed, sending anyway", err, k.fields()...)
		return false
	}
	if !won {
		p.suppressed(k, "lock")
		return true
	}
	return false
}

func (p *Policy) suppressed(k Key, by string) {
	metrics.DedupeSuppressed.WithLabelValues(string(k.Type)).Inc()
	p.log.Debug("duplicate suppressed", append(k.fields(), zap.String("by", by))...)
}

func (k Key) fields() []zap.Field {
	return []zap.Field{
		zap.String("user_id", k.RecipientID),
		zap.String("notification_type", string(k.Type)),
		zap.String("correlation_id", k.CorrelationID),
	}
}
