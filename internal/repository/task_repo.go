package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crmsweep/internal/model"
)

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// MarkOverdue flips status to OVERDUE for every task due strictly before
// today. Rows already OVERDUE are excluded from the predicate so re-runs are
// write-free no-ops.
func (r *TaskRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	query := `
        UPDATE tasks
        SET status = $1
        WHERE status NOT IN ($1, $2)
          AND due_date IS NOT NULL
          AND due_date < $3
    `
	result, err := r.db.Exec(ctx, query,
		model.TaskStatusOverdue,
		model.TaskStatusDone,
		today,
	)
	if err != nil {
		r.logger.Error("Failed to mark overdue tasks", zap.Error(err))
		return 0, fmt.Errorf("failed to mark overdue tasks: %w", err)
	}

	rowsAffected := result.RowsAffected()
	if rowsAffected > 0 {
		r.logger.Info("Marked tasks as overdue",
			zap.Int64("count", rowsAffected),
		)
	}
	return rowsAffected, nil
}

// ListOverdue returns every task not DONE whose due_date is before today.
func (r *TaskRepository) ListOverdue(ctx context.Context, today time.Time) ([]model.Task, error) {
	query := `
        SELECT id, title, status, due_date, assigned_to, lead_id
        FROM tasks
        WHERE status <> $1
          AND due_date IS NOT NULL
          AND due_date < $2
    `
	rows, err := r.db.Query(ctx, query, model.TaskStatusDone, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Status,
			&t.DueDate,
			&t.AssignedTo,
			&t.LeadID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListDueSoon returns IN_PROGRESS tasks with a due_date inside [from, to].
// due_date is date-only, so the window is inclusive on both ends.
func (r *TaskRepository) ListDueSoon(ctx context.Context, from, to time.Time) ([]model.Task, error) {
	query := `
        SELECT id, title, status, due_date, assigned_to, lead_id
        FROM tasks
        WHERE status = $1
          AND due_date IS NOT NULL
          AND due_date >= $2
          AND due_date <= $3
    `
	rows, err := r.db.Query(ctx, query, model.TaskStatusInProgress, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list due-soon tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Status,
			&t.DueDate,
			&t.AssignedTo,
			&t.LeadID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
