package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/todo/usecase"
	authUC "github.com/fastygo/todo/usecase/auth"
	"github.com/fastygo/todo/usecase/expiry"
	"github.com/fastygo/todo/usecase/relay"
)

// RelayHandler adapts the relay to the dispatcher. Per-event failures are
// counted in the report and never fail the batch.
func RelayHandler(r *relay.Relay, logger *zap.Logger) usecase.StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, batch usecase.StreamBatch) error {
		report := r.HandleBatch(ctx, batch.Events)
		logger.Debug("stream batch relayed",
			zap.Int("scheduled", report.Scheduled),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed))
		return nil
	}
}

// ExpiryHandler adapts the expiry worker to the dispatcher.
func ExpiryHandler(w *expiry.Worker, logger *zap.Logger) usecase.QueueHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, batch usecase.QueueBatch) error {
		report := w.HandleBatch(ctx, batch.Messages)
		logger.Debug("expiry batch handled",
			zap.Int("expired", report.Expired),
			zap.Int("failed", report.Failed))
		return nil
	}
}

func AuthHandler(uc *authUC.UseCase) usecase.AuthHandler {
	return func(ctx context.Context, trigger usecase.AuthSignIn) error {
		return uc.SignedIn(ctx, trigger.Event)
	}
}
