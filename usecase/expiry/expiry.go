package expiry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/usecase"
)

const notificationSubject = "Task Expired"

// Report summarises one batch of expiry messages.
type Report struct {
	Expired int
	Failed  int
}

// Worker flips tasks to EXPIRED when their delayed message arrives.
type Worker struct {
	tasks    repository.TaskRepository
	notifier usecase.Notifier
	topic    string
	logger   *zap.Logger
}

func New(tasks repository.TaskRepository, n usecase.Notifier, topic string, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		tasks:    tasks,
		notifier: n,
		topic:    topic,
		logger:   logger,
	}
}

// HandleBatch expires each message independently; failures are logged and counted.
func (w *Worker) HandleBatch(ctx context.Context, msgs []domain.ExpiryMessage) Report {
	var report Report
	for _, msg := range msgs {
		if err := w.Handle(ctx, msg); err != nil {
			report.Failed++
			w.logger.Error("task expiry failed",
				zap.String("task_id", msg.TaskID),
				zap.String("owner_id", msg.OwnerID),
				zap.Error(err))
			continue
		}
		report.Expired++
	}
	return report
}

// Handle sets the task's status to EXPIRED and notifies subscribers.
// It is idempotent: a redelivered message, an already expired task and a
// deleted task all succeed.
func (w *Worker) Handle(ctx context.Context, msg domain.ExpiryMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if _, err := w.tasks.Update(ctx, msg.OwnerID, msg.TaskID, domain.StatusPatch(domain.StatusExpired)); err != nil {
		return domain.StorageWriteError(err)
	}

	usecase.NotifyBestEffort(ctx, w.notifier, w.logger, w.topic, notificationSubject, expiredMessage(msg))
	w.logger.Info("task marked expired", zap.String("task_id", msg.TaskID))
	return nil
}

func expiredMessage(msg domain.ExpiryMessage) string {
	due := "unknown"
	if at := domain.DeadlineTime(msg.Deadline); !at.IsZero() {
		due = at.Format(time.RFC3339)
	}
	return fmt.Sprintf("Task %s has expired! Due: %s", msg.TaskID, due)
}
