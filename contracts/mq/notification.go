package mq

import "time"

// NotificationCreatedPayload is published (via the outbox) whenever the
// sweeper inserts a notification row, and drives push fan-out in the pusher.
type NotificationCreatedPayload struct {
	NotificationID int64             `json:"notification_id"`
	UserID         int64             `json:"user_id"`
	Type           string            `json:"type"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
	TraceID        string            `json:"trace_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}
