package model

import "time"

type NotificationType string

const (
	NotificationTypeTaskOverdue NotificationType = "TASK_OVERDUE"
	NotificationTypeTaskDueSoon NotificationType = "TASK_DUE_SOON"
	NotificationTypeNoFollowUp  NotificationType = "NO_FOLLOW_UP"
)

// Reason codes carried in notification payloads for downstream filtering.
const (
	ReasonTaskOverdue        = "task_overdue"
	ReasonTaskDueSoon        = "task_due_soon"
	ReasonCaringNoActivity7d = "caring_no_activity_7_days"
	ReasonLeadNoActivity3d   = "lead_no_activity_3_days"
)

// PushTitle is the short heading shown with a push message of this type.
func (t NotificationType) PushTitle() string {
	switch t {
	case NotificationTypeTaskOverdue:
		return "Task overdue"
	case NotificationTypeTaskDueSoon:
		return "Task due soon"
	case NotificationTypeNoFollowUp:
		return "Follow-up needed"
	default:
		return "Notification"
	}
}

// Notification is a durable alert record. EntityID is the originating task or
// lead id; together with (UserID, Type, calendar day of CreatedAt) it forms
// the dedup key: at most one row may exist per key.
type Notification struct {
	ID        int64
	UserID    int64
	Type      NotificationType
	EntityID  int64
	Content   string
	Payload   map[string]any
	IsRead    bool
	CreatedAt time.Time
}
