package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"crmsweep/internal/model"
)

type LeadRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewLeadRepository(db *pgxpool.Pool, logger *zap.Logger) *LeadRepository {
	return &LeadRepository{
		db:     db,
		logger: logger,
	}
}

// ListStale returns leads in the given status whose last activity is missing
// or older than the cutoff.
func (r *LeadRepository) ListStale(ctx context.Context, status model.LeadStatus, before time.Time) ([]model.Lead, error) {
	query := `
        SELECT id, full_name, status, last_activity_at, assigned_to, owner_id
        FROM leads
        WHERE status = $1
          AND (last_activity_at IS NULL OR last_activity_at < $2)
    `
	rows, err := r.db.Query(ctx, query, status, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale leads: %w", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(
			&l.ID,
			&l.FullName,
			&l.Status,
			&l.LastActivityAt,
			&l.AssignedTo,
			&l.OwnerID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
