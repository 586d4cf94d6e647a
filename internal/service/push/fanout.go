package push

import (
	"context"

	"go.uber.org/zap"

	"crmsweep/pkg/logger"
	"crmsweep/pkg/metrics"
)

// DeviceStore supplies the registered device tokens for a user.
type DeviceStore interface {
	ListTokens(ctx context.Context, userID int64) ([]string, error)
}

// Sender delivers one message to a set of device tokens.
type Sender interface {
	Send(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// Fanout delivers one logical notification to all of a user's devices.
// Delivery is best-effort by contract: the notification row is the durable
// signal, so provider failures are logged and swallowed. Only a device-store
// failure propagates, since the message can be retried meaningfully then.
type Fanout struct {
	devices DeviceStore
	sender  Sender
	logger  *zap.Logger
}

func NewFanout(devices DeviceStore, sender Sender, log *zap.Logger) *Fanout {
	return &Fanout{
		devices: devices,
		sender:  sender,
		logger:  log,
	}
}

func (f *Fanout) Deliver(ctx context.Context, userID int64, title, body string, data map[string]string) error {
	log := logger.WithTrace(ctx, f.logger)

	tokens, err := f.devices.ListTokens(ctx, userID)
	if err != nil {
		log.Error("Failed to load device tokens",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return err
	}

	if len(tokens) == 0 {
		metrics.IncrementPushDelivery("no_devices")
		log.Debug("User has no registered devices",
			zap.Int64("user_id", userID),
		)
		return nil
	}

	if err := f.sender.Send(ctx, tokens, title, body, data); err != nil {
		metrics.IncrementPushDelivery("failed")
		log.Warn("Push delivery failed",
			zap.Int64("user_id", userID),
			zap.Int("tokens", len(tokens)),
			zap.Error(err),
		)
		return nil
	}

	metrics.IncrementPushDelivery("sent")
	log.Info("Push delivered",
		zap.Int64("user_id", userID),
		zap.Int("tokens", len(tokens)),
	)
	return nil
}
