package domain

import "time"

// Well-known setting_id values in the settings table.
const (
	SettingNotificationCleanup = "notification_cleanup"
	SettingTaskNotifications   = "task_notifications"
)

// RetentionConfig drives the notification retention sweep.
type RetentionConfig struct {
	RetentionPeriodDays        int                `json:"retention_period_days" dynamodbav:"retention_period_days" validate:"gt=0"`
	ArchiveInsteadOfDelete     bool               `json:"archive_instead_of_delete" dynamodbav:"archive_instead_of_delete"`
	PreservedTypes             []NotificationType `json:"preserved_types" dynamodbav:"preserved_types"`
	PreservedTypeRetentionDays int                `json:"preserved_type_retention_days" dynamodbav:"preserved_type_retention_days" validate:"gte=0"`
	LastCleanupTime            *time.Time         `json:"last_cleanup_time,omitempty" dynamodbav:"last_cleanup_time,unixtime,omitempty"`
}

func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		RetentionPeriodDays:        90,
		ArchiveInsteadOfDelete:     true,
		PreservedTypes:             []NotificationType{TypePaymentConfirmed, TypePaymentReminder},
		PreservedTypeRetentionDays: 365,
	}
}

// IsPreserved reports whether t has the longer retention window.
func (c RetentionConfig) IsPreserved(t NotificationType) bool {
	if c.PreservedTypeRetentionDays <= 0 {
		return false
	}
	for _, p := range c.PreservedTypes {
		if p == t {
			return true
		}
	}
	return false
}

// ReminderRule fires for tasks whose due date is DaysFromDueDate days from today.
// Positive values are upcoming tasks, negative values overdue ones.
type ReminderRule struct {
	DaysFromDueDate int              `json:"days_from_due_date" dynamodbav:"days_from_due_date"`
	Type            NotificationType `json:"type" dynamodbav:"type" validate:"required"`
	Title           string           `json:"title" dynamodbav:"title" validate:"required"`
	Message         string           `json:"message" dynamodbav:"message" validate:"required"`
}

// ReminderConfig drives the task due-date sweep.
type ReminderConfig struct {
	Enabled      bool           `json:"enabled" dynamodbav:"enabled"`
	ReminderDays []ReminderRule `json:"reminder_days" dynamodbav:"reminder_days" validate:"dive"`
	BatchSize    int            `json:"batch_size" dynamodbav:"batch_size" validate:"gte=0"`
}

func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Enabled: true,
		ReminderDays: []ReminderRule{
			{
				DaysFromDueDate: 1,
				Type:            TypeTaskReminder,
				Title:           "Task Due Tomorrow",
				Message:         "Your task is due tomorrow",
			},
			{
				DaysFromDueDate: -1,
				Type:            TypeTaskOverdue,
				Title:           "Task Overdue",
				Message:         "Your task was due yesterday and is now overdue",
			},
			{
				DaysFromDueDate: -3,
				Type:            TypeTaskOverdueFinal,
				Title:           "Final Reminder: Task Overdue",
				Message:         "Your task is 3 days overdue. Please remember to complete it",
			},
		},
		BatchSize: 20,
	}
}
