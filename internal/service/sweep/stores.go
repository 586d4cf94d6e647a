package sweep

import (
	"context"
	"time"

	"crmsweep/internal/model"
)

// TaskStore is the slice of the record store the task rules need.
type TaskStore interface {
	// MarkOverdue sets status OVERDUE on tasks due before today that are not
	// DONE and not already OVERDUE. Returns the number of rows changed.
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	// ListOverdue returns tasks not DONE with due_date before today.
	ListOverdue(ctx context.Context, today time.Time) ([]model.Task, error)
	// ListDueSoon returns IN_PROGRESS tasks due within [from, to], date-only.
	ListDueSoon(ctx context.Context, from, to time.Time) ([]model.Task, error)
}

// LeadStore is the slice of the record store the stale-lead rule needs.
type LeadStore interface {
	// ListStale returns leads in status whose last activity is null or before
	// the cutoff.
	ListStale(ctx context.Context, status model.LeadStatus, before time.Time) ([]model.Lead, error)
}

// NotificationStore persists notifications with same-day dedup. Create
// returns false when the (user, type, entity, day) key already exists.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) (created bool, err error)
}
