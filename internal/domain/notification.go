package domain

import "time"

// NotificationType is the routing key stored on every notification and sent in the push data bag.
type NotificationType string

const (
	TypeScheduleChange      NotificationType = "schedule_change"
	TypeScheduleReplacement NotificationType = "schedule_replacement"
	TypeTaskCreated         NotificationType = "task_created"
	TypeTaskFeedback        NotificationType = "task_feedback"
	TypeTaskReminder        NotificationType = "task_reminder"
	TypeTaskOverdue         NotificationType = "task_overdue"
	TypeTaskOverdueFinal    NotificationType = "task_overdue_final"
	TypeAttendanceAbsent    NotificationType = "attendance_absent"
	TypeAttendanceExcused   NotificationType = "attendance_excused"
	TypeAttendanceSummary   NotificationType = "attendance_summary"
	TypePaymentReminder     NotificationType = "payment_reminder"
	TypePaymentOverdue      NotificationType = "payment_overdue"
	TypePaymentDueSoon      NotificationType = "payment_due_soon"
	TypePaymentConfirmed    NotificationType = "payment_confirmed"
	TypeGeneral             NotificationType = "general_notification"
)

// Notification is an in-app notification record. Only IsRead changes after creation.
type Notification struct {
	NotificationID string                 `json:"id" dynamodbav:"notification_id"`
	UserID         string                 `json:"user_id" dynamodbav:"user_id"`
	Type           NotificationType       `json:"type" dynamodbav:"type"`
	Title          string                 `json:"title" dynamodbav:"title"`
	Message        string                 `json:"message" dynamodbav:"message"`
	IsRead         bool                   `json:"is_read" dynamodbav:"is_read"`
	CorrelationID  string                 `json:"correlation_id,omitempty" dynamodbav:"correlation_id,omitempty"`
	Data           map[string]interface{} `json:"data" dynamodbav:"data"`
	CreatedAt      time.Time              `json:"created" dynamodbav:"created_at,unixtime"`
	ArchivedAt     *time.Time             `json:"archived_at,omitempty" dynamodbav:"archived_at,unixtime,omitempty"`
}
