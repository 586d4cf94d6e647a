package model

import "time"

type TaskStatus string

const (
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusOverdue    TaskStatus = "OVERDUE"
)

// Task is the sweeper's read model of a CRM task. DueDate carries date
// granularity only; the time component is always midnight in the sweep's
// location. Status is the only field the sweeper ever writes.
type Task struct {
	ID         int64
	Title      string
	Status     TaskStatus
	DueDate    time.Time
	AssignedTo int64
	LeadID     *int64
}
