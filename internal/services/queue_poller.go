package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/internal/infrastructure/delayqueue"
	"github.com/fastygo/todo/usecase"
)

// PollerConfig controls how often and how much the delay queue is read.
type PollerConfig struct {
	Interval  time.Duration
	BatchSize int
}

// QueuePoller receives due expiry messages and dispatches them as one batch per receive.
type QueuePoller struct {
	queue      delayqueue.Receiver
	dispatcher Dispatcher
	cfg        PollerConfig
	logger     *zap.Logger
}

func NewQueuePoller(queue delayqueue.Receiver, dispatcher Dispatcher, cfg PollerConfig, logger *zap.Logger) *QueuePoller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueuePoller{
		queue:      queue,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run polls until ctx is cancelled. A full batch is followed by an immediate poll.
func (p *QueuePoller) Run(ctx context.Context) error {
	p.logger.Info("queue poller started", zap.Duration("interval", p.cfg.Interval))
	defer p.logger.Info("queue poller stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		n, err := p.Poll(ctx)
		if err != nil && ctx.Err() == nil {
			p.logger.Error("queue poll failed", zap.Error(err))
		}
		if n >= p.cfg.BatchSize {
			timer.Reset(0)
			continue
		}
		timer.Reset(p.cfg.Interval)
	}
}

// Poll runs one receive/dispatch/ack round and returns the number of deliveries.
// Every delivery is acknowledged, including ones that failed to decode or process.
func (p *QueuePoller) Poll(ctx context.Context) (int, error) {
	deliveries, err := p.queue.Receive(ctx, p.cfg.BatchSize)
	if err != nil || len(deliveries) == 0 {
		return 0, err
	}

	messages := make([]domain.ExpiryMessage, 0, len(deliveries))
	for _, d := range deliveries {
		msg, err := d.Decode()
		if err != nil {
			p.logger.Error("undecodable expiry message dropped", zap.String("delivery_id", d.ID), zap.Error(err))
			continue
		}
		messages = append(messages, msg)
	}

	if len(messages) > 0 {
		if err := p.dispatcher.Dispatch(ctx, usecase.QueueBatch{Messages: messages}); err != nil {
			p.logger.Error("expiry batch dispatch failed", zap.Int("messages", len(messages)), zap.Error(err))
		}
	}

	for _, d := range deliveries {
		if err := p.queue.Ack(ctx, d); err != nil {
			p.logger.Warn("delivery ack failed", zap.String("delivery_id", d.ID), zap.Error(err))
		}
	}
	return len(deliveries), nil
}
