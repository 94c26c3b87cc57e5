package bolt

import (
	"context"
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

// taskRepository keeps tasks in a bbolt file: one root bucket per table,
// one nested bucket per owner, task ids as keys.
type taskRepository struct {
	db    *bolt.DB
	table []byte
}

// NewTaskRepository ensures the table bucket exists and returns a bbolt-backed TaskRepository.
func NewTaskRepository(db *bolt.DB, table string) (repository.TaskRepository, error) {
	if table == "" {
		table = "tasks"
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(table))
		return err
	}); err != nil {
		return nil, err
	}
	return &taskRepository{db: db, table: []byte(table)}, nil
}

func (r *taskRepository) Put(ctx context.Context, task *domain.Task) error {
	if task == nil || task.OwnerID == "" || task.TaskID == "" {
		return domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		owner, err := tx.Bucket(r.table).CreateBucketIfNotExists([]byte(task.OwnerID))
		if err != nil {
			return err
		}
		return owner.Put([]byte(task.TaskID), payload)
	})
}

func (r *taskRepository) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var task *domain.Task
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		task, err = r.load(tx, ownerID, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (r *taskRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tasks := []domain.Task{}
	err := r.db.View(func(tx *bolt.Tx) error {
		owner := tx.Bucket(r.table).Bucket([]byte(ownerID))
		if owner == nil {
			return nil
		}
		return owner.ForEach(func(k, v []byte) error {
			var task domain.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return err
			}
			task.ApplyDefaults()
			tasks = append(tasks, task)
			return nil
		})
	})
	return tasks, err
}

func (r *taskRepository) Update(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Empty() {
		return nil, domain.ErrNoFieldsProvided
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var updated *domain.Task
	err := r.db.Update(func(tx *bolt.Tx) error {
		task, err := r.load(tx, ownerID, taskID)
		if err != nil || task == nil {
			return err
		}
		if !patch.Apply(task) {
			return nil
		}
		payload, err := json.Marshal(task)
		if err != nil {
			return err
		}
		if err := tx.Bucket(r.table).Bucket([]byte(ownerID)).Put([]byte(taskID), payload); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *taskRepository) Delete(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var removed *domain.Task
	err := r.db.Update(func(tx *bolt.Tx) error {
		task, err := r.load(tx, ownerID, taskID)
		if err != nil || task == nil {
			return err
		}
		if err := tx.Bucket(r.table).Bucket([]byte(ownerID)).Delete([]byte(taskID)); err != nil {
			return err
		}
		removed = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *taskRepository) load(tx *bolt.Tx, ownerID, taskID string) (*domain.Task, error) {
	owner := tx.Bucket(r.table).Bucket([]byte(ownerID))
	if owner == nil {
		return nil, nil
	}
	raw := owner.Get([]byte(taskID))
	if raw == nil {
		return nil, nil
	}
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, err
	}
	task.ApplyDefaults()
	return &task, nil
}
