package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontracts "crmsweep/contracts/mq"
	"crmsweep/pkg/logger"
	"crmsweep/pkg/util"
)

const notificationCreatedKey = "notification.created"

// Deliverer fans one notification out to a user's devices.
type Deliverer interface {
	Deliver(ctx context.Context, userID int64, title, body string, data map[string]string) error
}

// DeadLetterer parks messages that failed permanently.
type DeadLetterer interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

type NotificationCreatedHandler struct {
	fanout Deliverer
	dlq    DeadLetterer
	logger *zap.Logger
}

func NewNotificationCreatedHandler(fanout Deliverer, dlq DeadLetterer, log *zap.Logger) *NotificationCreatedHandler {
	return &NotificationCreatedHandler{
		fanout: fanout,
		dlq:    dlq,
		logger: log,
	}
}

// Handle consumes a notification.created event and triggers push fan-out.
// Returning an error requeues the message, so only retryable failures (DB
// outages) propagate; anything permanent goes to the DLQ and is acked.
func (h *NotificationCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.NotificationCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// the payload will never parse; requeueing would loop forever
		h.logger.Error("Failed to unmarshal NotificationCreatedPayload", zap.Error(err))
		h.deadLetter(h.logger, raw, err)
		return nil
	}

	log := logger.WithTrace(ctx, h.logger)
	log.Info("Handling notification.created event",
		zap.Int64("notification_id", p.NotificationID),
		zap.Int64("user_id", p.UserID),
		zap.String("type", p.Type),
	)

	if err := h.fanout.Deliver(ctx, p.UserID, p.Title, p.Body, p.Data); err != nil {
		retryable, errorType := util.IsRetryableError(err)
		if !retryable {
			log.Error("Permanent fan-out failure, dead-lettering message",
				zap.Int64("notification_id", p.NotificationID),
				zap.String("error_type", errorType),
				zap.Error(err),
			)
			h.deadLetter(log, raw, err)
			return nil
		}
		log.Warn("Transient fan-out failure, requeueing",
			zap.Int64("notification_id", p.NotificationID),
			zap.String("error_type", errorType),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (h *NotificationCreatedHandler) deadLetter(log *zap.Logger, raw json.RawMessage, cause error) {
	if err := h.dlq.PublishToDLQ(notificationCreatedKey, raw, cause.Error()); err != nil {
		log.Error("Failed to publish to DLQ, message dropped", zap.Error(err))
	}
}
