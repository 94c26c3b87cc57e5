package relay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/usecase"
)

// Report summarises one batch of change events.
type Report struct {
	Scheduled int
	Skipped   int
	Failed    int
}

// Relay turns task store changes into delayed expiry messages.
type Relay struct {
	queue  usecase.DelayQueue
	logger *zap.Logger
	now    func() time.Time
}

func New(queue usecase.DelayQueue, logger *zap.Logger, now func() time.Time) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Relay{
		queue:  queue,
		logger: logger,
		now:    now,
	}
}

// DelaySeconds is the number of seconds until deadlineMs, clamped to
// [0, MaxQueueDelay]. A deadline already passed yields 0.
func DelaySeconds(deadlineMs int64, now time.Time) int64 {
	diff := deadlineMs/1000 - now.Unix()
	maxDelay := int64(usecase.MaxQueueDelay / time.Second)
	if diff < 0 {
		return 0
	}
	if diff > maxDelay {
		return maxDelay
	}
	return diff
}

// HandleBatch processes events in order. A failing event is logged and
// counted; it never stops the rest of the batch and is not retried here.
func (r *Relay) HandleBatch(ctx context.Context, events []domain.ChangeEvent) Report {
	var report Report
	for _, event := range events {
		scheduled, err := r.Handle(ctx, event)
		switch {
		case err != nil:
			report.Failed++
			r.logger.Error("relay event failed",
				zap.String("kind", string(event.Kind)),
				zap.String("key", event.Key()),
				zap.Error(err))
		case scheduled:
			report.Scheduled++
		default:
			report.Skipped++
		}
	}
	return report
}

// Handle schedules the expiry message for one event. It reports false when
// the event is not an insert/modify or carries no deadline.
func (r *Relay) Handle(ctx context.Context, event domain.ChangeEvent) (bool, error) {
	if !event.Schedulable() || !event.NewImage.HasDeadline() {
		return false, nil
	}
	image := event.NewImage
	msg := domain.ExpiryMessage{
		TaskID:   image.TaskID,
		OwnerID:  image.OwnerID,
		Deadline: image.Deadline,
	}
	if err := msg.Validate(); err != nil {
		return false, domain.RelayProcessingError(err)
	}

	delay := DelaySeconds(image.Deadline, r.now())
	if err := r.queue.Send(ctx, msg, time.Duration(delay)*time.Second); err != nil {
		return false, domain.RelayProcessingError(err)
	}
	r.logger.Info("expiry scheduled",
		zap.String("task_id", msg.TaskID),
		zap.String("owner_id", msg.OwnerID),
		zap.Int64("delay_seconds", delay))
	return true, nil
}
