package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
)

// MaxQueueDelay bounds the visibility delay a DelayQueue accepts.
const MaxQueueDelay = 900 * time.Second

// DelayQueue schedules an expiry message for delivery no earlier than delay from now.
type DelayQueue interface {
	Send(ctx context.Context, msg domain.ExpiryMessage, delay time.Duration) error
}

// Notifier fans a human-readable message out to the subscribers of topic.
type Notifier interface {
	Publish(ctx context.Context, topic, subject, message string) error
}

// NotifyBestEffort publishes without letting a failure reach the caller;
// the outcome is only logged.
func NotifyBestEffort(ctx context.Context, n Notifier, logger *zap.Logger, topic, subject, message string) {
	if n == nil {
		return
	}
	if err := n.Publish(ctx, topic, subject, message); err != nil {
		logger.Warn("notification dropped",
			zap.String("topic", topic),
			zap.String("subject", subject),
			zap.Error(domain.NotificationError(err)))
		return
	}
	logger.Debug("notification sent", zap.String("topic", topic), zap.String("subject", subject))
}
