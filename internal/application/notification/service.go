package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/dispatch"
	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/infrastructure/sns"
	"github.com/tuition-notify/internal/pkg/logger"
	"github.com/tuition-notify/internal/pkg/metrics"
	"github.com/tuition-notify/internal/pkg/validate"
)

const clickAction = "FLUTTER_NOTIFICATION_CLICK"

// SendRequest is an ad-hoc notification addressed to one student.
type SendRequest struct {
	StudentID   string `validate:"required"`
	Title       string `validate:"required"`
	Message     string `validate:"required"`
	Type        domain.NotificationType
	CreateInApp bool
	Data        map[string]interface{}
}

type SendResult struct {
	MessageID         string
	InAppNotification bool
	NotificationID    string
}

type Service interface {
	// Send resolves the student, writes the in-app record when requested and
	// pushes to the student's most recent device. A result is returned alongside
	// ErrNoPushToken so callers can tell the in-app record was written.
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type recipientResolver interface {
	Resolve(ctx context.Context, recipientID string) (*domain.User, error)
}

type tokenPruner interface {
	RemoveTokens(ctx context.Context, userID string, tokens []string, clearLatest bool) error
}

type ServiceDeps struct {
	Notifications notificationStore
	Resolver      recipientResolver
	Users         tokenPruner
	Sender        sns.Sender
	Log           *zap.Logger
	Now           func() time.Time
}

type service struct {
	notifications notificationStore
	resolver      recipientResolver
	users         tokenPruner
	sender        sns.Sender
	log           *zap.Logger
	now           func() time.Time
}

func NewService(d ServiceDeps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &service{
		notifications: d.Notifications,
		resolver:      d.Resolver,
		users:         d.Users,
		sender:        d.Sender,
		log:           d.Log,
		now:           d.Now,
	}
}

func (s *service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = domain.TypeGeneral
	}
	now := s.now()

	user, err := s.resolver.Resolve(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	data := make(map[string]interface{}, len(req.Data)+3)
	for k, v := range req.Data {
		data[k] = v
	}
	data["type"] = string(req.Type)
	data["click_action"] = clickAction
	data["timestamp"] = now.UTC().Format(time.RFC3339)

	m := dispatch.Message{
		RecipientID: req.StudentID,
		Type:        req.Type,
		Title:       req.Title,
		Body:        req.Message,
		Data:        data,
		SkipInApp:   !req.CreateInApp,
	}
	log := s.log.With(zap.String("user_id", req.StudentID), zap.String("notification_type", string(req.Type)))

	res := &SendResult{}
	if req.CreateInApp {
		n := dispatch.NewNotification(m, now)
		if err := s.notifications.Put(ctx, n); err != nil {
			return nil, err
		}
		res.InAppNotification = true
		res.NotificationID = n.NotificationID
	}

	tokens := dispatch.Tokens(user, dispatch.TokenModeSingle)
	if len(tokens) == 0 {
		metrics.Dispatches.WithLabelValues(string(req.Type), domain.KindNoPushToken).Inc()
		return res, fmt.Errorf("student %s: %w", req.StudentID, domain.ErrNoPushToken)
	}

	msgID, err := s.sender.Send(ctx, tokens[0], dispatch.PushMessage(m, res.NotificationID))
	if err != nil {
		metrics.Dispatches.WithLabelValues(string(req.Type), domain.Kind(err)).Inc()
		if errors.Is(err, domain.ErrInvalidToken) {
			s.prune(ctx, user, tokens[0], log)
		}
		return res, err
	}
	metrics.Dispatches.WithLabelValues(string(req.Type), "delivered").Inc()
	res.MessageID = msgID
	log.Info("notification sent", zap.String("message_id", msgID), zap.Bool("in_app", res.InAppNotification))
	return res, nil
}

func (s *service) prune(ctx context.Context, user *domain.User, token string, log *zap.Logger) {
	if err := s.users.RemoveTokens(ctx, user.UserID, []string{token}, token == user.LatestPushToken); err != nil {
		logger.Swallowed(log, "prune push token", err)
		return
	}
	metrics.PushTokensPruned.Inc()
}
