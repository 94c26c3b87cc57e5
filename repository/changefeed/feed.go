package changefeed

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

// Publisher ships change events to the change stream.
type Publisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// Repository wraps a TaskRepository and emits a ChangeEvent after every write
// that altered the store, the way a managed table stream would.
type Repository struct {
	next      repository.TaskRepository
	publisher Publisher
	logger    *zap.Logger
}

func New(next repository.TaskRepository, publisher Publisher, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		next:      next,
		publisher: publisher,
		logger:    logger,
	}
}

func (r *Repository) Put(ctx context.Context, task *domain.Task) error {
	if err := r.next.Put(ctx, task); err != nil {
		return err
	}
	image := *task
	r.emit(ctx, domain.ChangeEvent{Kind: domain.ChangeInsert, NewImage: &image})
	return nil
}

func (r *Repository) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	return r.next.Get(ctx, ownerID, taskID)
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return r.next.ListByOwner(ctx, ownerID)
}

func (r *Repository) Update(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	updated, err := r.next.Update(ctx, ownerID, taskID, patch)
	if err != nil || updated == nil {
		return updated, err
	}
	image := *updated
	r.emit(ctx, domain.ChangeEvent{Kind: domain.ChangeModify, NewImage: &image})
	return updated, nil
}

func (r *Repository) Delete(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	removed, err := r.next.Delete(ctx, ownerID, taskID)
	if err != nil || removed == nil {
		return removed, err
	}
	image := *removed
	r.emit(ctx, domain.ChangeEvent{Kind: domain.ChangeRemove, OldImage: &image})
	return removed, nil
}

// emit never fails the write: the record is already stored.
func (r *Repository) emit(ctx context.Context, event domain.ChangeEvent) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Error("change event publish failed",
			zap.String("kind", string(event.Kind)),
			zap.String("key", event.Key()),
			zap.Error(err))
		return
	}
	r.logger.Debug("change event published",
		zap.String("kind", string(event.Kind)),
		zap.String("key", event.Key()))
}

var _ repository.TaskRepository = (*Repository)(nil)
