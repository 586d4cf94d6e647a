package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "crmsweep/contracts/mq"
	"crmsweep/internal/model"
	"crmsweep/pkg/outbox"
	"crmsweep/pkg/trace"
)

type NotificationRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:         db,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
	}
}

// Create inserts the notification and its notification.created outbox event
// in one transaction. The unique index on (user_id, type, entity_id,
// created_on) absorbs same-day duplicates: when the insert conflicts, nothing
// is written (no outbox event either) and created is false. This replaces the
// check-then-act pattern, so concurrent runs cannot double-notify.
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) (created bool, err error) {
	payloadJSON, err := json.Marshal(n.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO notifications (user_id, type, entity_id, content, payload, is_read, created_at, created_on)
        VALUES ($1, $2, $3, $4, $5, false, $6, $6::date)
        ON CONFLICT (user_id, type, entity_id, created_on) DO NOTHING
        RETURNING id
    `
	err = tx.QueryRow(ctx, query,
		n.UserID,
		n.Type,
		n.EntityID,
		n.Content,
		payloadJSON,
		n.CreatedAt,
	).Scan(&n.ID)
	if err == pgx.ErrNoRows {
		// same-day duplicate, suppressed by the unique index
		r.logger.Debug("Duplicate notification suppressed",
			zap.Int64("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Int64("entity_id", n.EntityID),
		)
		return false, tx.Commit(ctx)
	}
	if err != nil {
		r.logger.Error("Failed to insert notification", zap.Error(err))
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}

	event := mqcontracts.NotificationCreatedPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           string(n.Type),
		Title:          n.Type.PushTitle(),
		Body:           n.Content,
		Data:           pushData(n),
		TraceID:        trace.FromContext(ctx),
		CreatedAt:      n.CreatedAt,
	}
	if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "notification", &n.ID, "notification.created", event); err != nil {
		r.logger.Error("Failed to insert notification.created to outbox", zap.Error(err))
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("Notification created",
		zap.Int64("id", n.ID),
		zap.Int64("user_id", n.UserID),
		zap.String("type", string(n.Type)),
		zap.Int64("entity_id", n.EntityID),
	)
	return true, nil
}

func pushData(n *model.Notification) map[string]string {
	data := map[string]string{
		"type":      string(n.Type),
		"entity_id": strconv.FormatInt(n.EntityID, 10),
	}
	if reason, ok := n.Payload["reason"].(string); ok {
		data["reason"] = reason
	}
	return data
}
