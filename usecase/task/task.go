package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

const defaultListTimeout = 10 * time.Second

type UseCase struct {
	tasks  repository.TaskRepository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string

	lists       singleflight.Group
	listTimeout time.Duration
}

// Option overrides a UseCase collaborator.
type Option func(*UseCase)

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(uc *UseCase) { uc.newID = newID }
}

// WithListTimeout bounds the shared store query behind ListTasks.
func WithListTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		if d > 0 {
			uc.listTimeout = d
		}
	}
}

func New(tasks repository.TaskRepository, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		tasks:  tasks,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,

		listTimeout: defaultListTimeout,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CreateTask stores a new Pending task that expires DeadlineWindow from now.
func (uc *UseCase) CreateTask(ctx context.Context, ownerID, description string) (*domain.Task, error) {
	if domain.BlankDescription(description) {
		return nil, domain.ErrDescriptionEmpty
	}

	task := domain.NewTask(ownerID, description, uc.now(), uc.newID())
	if err := uc.tasks.Put(ctx, task); err != nil {
		uc.logger.Error("task create failed", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, domain.StorageWriteError(err)
	}
	return task, nil
}

func (uc *UseCase) GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := uc.tasks.Get(ctx, ownerID, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		uc.logger.Error("task read failed", zap.String("task_id", taskID), zap.Error(err))
		return nil, domain.StorageReadError(err)
	}
	task.ApplyDefaults()
	return task, nil
}

// ListTasks returns every task of the owner. Concurrent calls for one owner
// share a single store query. The shared query runs detached from any one
// caller's context and each caller stops waiting when its own ctx is done.
func (uc *UseCase) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	ch := uc.lists.DoChan(ownerID, func() (interface{}, error) {
		listCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.listTimeout)
		defer cancel()
		return uc.tasks.ListByOwner(listCtx, ownerID)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, domain.StorageReadError(ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		uc.logger.Error("task list failed", zap.String("owner_id", ownerID), zap.Error(res.Err))
		return nil, domain.StorageReadError(res.Err)
	}
	shared := res.Val.([]domain.Task)
	tasks := make([]domain.Task, len(shared))
	copy(tasks, shared)
	return tasks, nil
}

// UpdateTask applies a partial update. A missing key is not an error.
func (uc *UseCase) UpdateTask(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) error {
	if patch.Empty() {
		return domain.ErrNoFieldsProvided
	}
	if _, err := uc.tasks.Update(ctx, ownerID, taskID, patch); err != nil {
		uc.logger.Error("task update failed", zap.String("task_id", taskID), zap.Error(err))
		return domain.StorageWriteError(err)
	}
	return nil
}

// DeleteTask removes the task. Deleting a missing key succeeds.
func (uc *UseCase) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if _, err := uc.tasks.Delete(ctx, ownerID, taskID); err != nil {
		uc.logger.Error("task delete failed", zap.String("task_id", taskID), zap.Error(err))
		return domain.StorageWriteError(err)
	}
	return nil
}
