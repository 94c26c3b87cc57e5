package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/changestream"
	"github.com/fastygo/todo/usecase"
)

// Dispatcher routes triggers to the registered usecase handlers.
type Dispatcher interface {
	Dispatch(ctx context.Context, trigger usecase.Trigger) error
}

// StreamConsumer feeds change-stream batches to the dispatcher.
type StreamConsumer struct {
	stream     changestream.Stream
	dispatcher Dispatcher
	batchSize  int
	logger     *zap.Logger
}

func NewStreamConsumer(stream changestream.Stream, dispatcher Dispatcher, batchSize int, logger *zap.Logger) *StreamConsumer {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamConsumer{
		stream:     stream,
		dispatcher: dispatcher,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled.
func (c *StreamConsumer) Run(ctx context.Context) error {
	c.logger.Info("stream consumer started", zap.Int("batch_size", c.batchSize))
	defer c.logger.Info("stream consumer stopped")

	return c.stream.Consume(ctx, c.batchSize, func(ctx context.Context, events []domain.ChangeEvent) error {
		if err := c.dispatcher.Dispatch(ctx, usecase.StreamBatch{Events: events}); err != nil {
			c.logger.Error("stream batch dispatch failed", zap.Int("events", len(events)), zap.Error(err))
			return err
		}
		return nil
	})
}
