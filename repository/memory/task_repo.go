package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

type taskRepository struct {
	mu    sync.RWMutex
	tasks map[string]map[string]domain.Task
}

// NewTaskRepository returns an in-process TaskRepository. Records are stored by value.
func NewTaskRepository() repository.TaskRepository {
	return &taskRepository{tasks: make(map[string]map[string]domain.Task)}
}

func (r *taskRepository) Put(ctx context.Context, task *domain.Task) error {
	if task == nil || task.OwnerID == "" || task.TaskID == "" {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.tasks[task.OwnerID]
	if !ok {
		owner = make(map[string]domain.Task)
		r.tasks[task.OwnerID] = owner
	}
	owner[task.TaskID] = *task
	return nil
}

func (r *taskRepository) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	r.mu.RLock()
	task, ok := r.tasks[ownerID][taskID]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	task.ApplyDefaults()
	return &task, nil
}

func (r *taskRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]domain.Task, 0, len(r.tasks[ownerID]))
	for _, t := range r.tasks[ownerID] {
		t.ApplyDefaults()
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskID < tasks[j].TaskID })
	return tasks, nil
}

func (r *taskRepository) Update(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Empty() {
		return nil, domain.ErrNoFieldsProvided
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[ownerID][taskID]
	if !ok {
		return nil, nil
	}
	task.ApplyDefaults()
	if !patch.Apply(&task) {
		return nil, nil
	}
	r.tasks[ownerID][taskID] = task
	return &task, nil
}

func (r *taskRepository) Delete(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[ownerID][taskID]
	if !ok {
		return nil, nil
	}
	delete(r.tasks[ownerID], taskID)
	if len(r.tasks[ownerID]) == 0 {
		delete(r.tasks, ownerID)
	}
	return &task, nil
}
