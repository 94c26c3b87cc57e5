package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/todo/internal/infrastructure/delayqueue"
)

// Reaper periodically returns delay-queue messages whose visibility timeout
// passed without an ack, so a crashed poller's messages are redelivered.
type Reaper struct {
	queue  delayqueue.Receiver
	cron   *cron.Cron
	logger *zap.Logger
}

// NewReaper schedules the requeue pass. schedule is a standard 5-field cron
// spec or a descriptor such as "@every 30s" or "@hourly".
func NewReaper(queue delayqueue.Receiver, schedule string, logger *zap.Logger) (*Reaper, error) {
	if schedule == "" {
		schedule = "@every 30s"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Reaper{
		queue:  queue,
		cron:   cron.New(),
		logger: logger,
	}
	if _, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		r.Reap(ctx)
	}); err != nil {
		return nil, err
	}
	return r, nil
}

// Start launches the cron scheduler.
func (r *Reaper) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("delay queue reaper started")
}

// Stop gracefully stops the scheduler.
func (r *Reaper) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("delay queue reaper stopped")
}

// Reap requeues expired in-flight messages once.
func (r *Reaper) Reap(ctx context.Context) int {
	n, err := r.queue.RequeueExpired(ctx)
	if err != nil {
		r.logger.Error("requeue of expired deliveries failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		r.logger.Warn("redelivering unacknowledged messages", zap.Int("count", n))
	}
	return n
}
