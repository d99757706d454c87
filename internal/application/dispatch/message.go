package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/infrastructure/sns"
	"github.com/tuition-notify/internal/pkg/id"
)

// Message is one notification addressed to one recipient.
type Message struct {
	RecipientID   string
	Type          domain.NotificationType
	Title         string
	Body          string
	CorrelationID string
	Data          map[string]interface{}
	// SkipInApp sends the push only, without writing an in-app record.
	SkipInApp bool
}

// NewNotification builds the in-app record for m with a fresh id.
func NewNotification(m Message, now time.Time) *domain.Notification {
	data := m.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	return &domain.Notification{
		NotificationID: id.NewAt(now),
		UserID:         m.RecipientID,
		Type:           m.Type,
		Title:          m.Title,
		Message:        m.Body,
		IsRead:         false,
		CorrelationID:  m.CorrelationID,
		Data:           data,
		CreatedAt:      now.UTC(),
	}
}

// PushMessage renders m for the push channel. Every data value is flattened to a
// string and the notification type is always present.
func PushMessage(m Message, notificationID string) sns.Message {
	data := make(map[string]string, len(m.Data)+2)
	for k, v := range m.Data {
		data[k] = stringify(v)
	}
	data["type"] = string(m.Type)
	if notificationID != "" {
		data["notification_id"] = notificationID
	}
	return sns.Message{Title: m.Title, Body: m.Body, Data: data}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return strconv.FormatInt(t.UnixMilli(), 10)
	case *time.Time:
		if t == nil {
			return ""
		}
		return strconv.FormatInt(t.UnixMilli(), 10)
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
