package repository

import (
	"context"

	"github.com/fastygo/todo/domain"
)

// TaskRepository is the task store: a table keyed by (owner_id, task_id).
//
// Update and Delete never fail on a missing key. Update returns the
// after-image only when it changed a stored record; Delete returns the
// removed record, or nil when nothing was stored under the key.
type TaskRepository interface {
	Put(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error)
	Update(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
}
