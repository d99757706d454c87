package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tuition-notify/internal/application/notification"
	"github.com/tuition-notify/internal/domain"
	"github.com/tuition-notify/internal/pkg/logger"
)

// NotificationHandler serves the ad-hoc push endpoint.
type NotificationHandler struct {
	svc notification.Service
	log *zap.Logger
}

func NewNotificationHandler(svc notification.Service, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log}
}

// Push reads studentId, title, message, type, createInApp and data from the
// query string or a form body.
func (h *NotificationHandler) Push(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, PushEnvelope{Error: "invalid request"})
		return
	}
	req := notification.SendRequest{
		StudentID:   r.Form.Get("studentId"),
		Title:       r.Form.Get("title"),
		Message:     r.Form.Get("message"),
		Type:        domain.NotificationType(r.Form.Get("type")),
		CreateInApp: r.Form.Get("createInApp") != "false",
		Data:        h.parseData(r.Form.Get("data")),
	}

	res, err := h.svc.Send(r.Context(), req)
	if err != nil {
		h.fail(w, req, res, err)
		return
	}
	writeJSON(w, http.StatusOK, PushEnvelope{
		Success:           true,
		Message:           "Notification sent successfully",
		MessageID:         res.MessageID,
		InAppNotification: res.InAppNotification,
	})
}

// parseData decodes the data parameter. Malformed JSON is logged and dropped.
func (h *NotificationHandler) parseData(raw string) map[string]interface{} {
	data := map[string]interface{}{}
	if raw == "" {
		return data
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		h.log.Warn("ignoring malformed data parameter", zap.String("error_kind", domain.KindValidation), zap.Error(err))
		return map[string]interface{}{}
	}
	return data
}

func (h *NotificationHandler) fail(w http.ResponseWriter, req notification.SendRequest, res *notification.SendResult, err error) {
	env := PushEnvelope{}
	if res != nil {
		env.InAppNotification = res.InAppNotification
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		h.log.Debug("push request rejected", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, PushEnvelope{Error: "Missing required parameters: studentId, title, message"})
		return
	case errors.Is(err, domain.ErrRecipientNotFound):
		status, env.Error = http.StatusNotFound, "Student not found"
	case errors.Is(err, domain.ErrNoPushToken):
		status, env.Error = http.StatusBadRequest, "Student has no registered push token"
	default:
		env.Error = "Failed to send notification"
	}
	logger.Swallowed(h.log, "push request failed", err,
		zap.String("user_id", req.StudentID),
		zap.Int("status", status))
	writeJSON(w, status, env)
}
