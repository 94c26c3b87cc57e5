package notifier

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the application log. Used by the local driver.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(_ context.Context, topic, subject, message string) error {
	n.logger.Info("notification",
		zap.String("topic", topic),
		zap.String("subject", subject),
		zap.String("message", message))
	return nil
}
