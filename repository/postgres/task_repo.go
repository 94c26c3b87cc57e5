package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

const taskColumns = `owner_id, task_id, description, status, deadline, expire_at`

type taskRepository struct {
	pool    *pgxpool.Pool
	queries taskQueries
}

type taskQueries struct {
	put    string
	get    string
	list   string
	update string
	delete string
}

// NewTaskRepository returns a Postgres-backed TaskRepository over the given table.
func NewTaskRepository(pool *pgxpool.Pool, table string) repository.TaskRepository {
	if table == "" {
		table = "tasks"
	}
	return &taskRepository{pool: pool, queries: buildTaskQueries(pgx.Identifier{table}.Sanitize())}
}

func buildTaskQueries(table string) taskQueries {
	return taskQueries{
		put: fmt.Sprintf(`
		INSERT INTO %s (owner_id, task_id, description, status, deadline, expire_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_id, task_id) DO UPDATE
		SET description = EXCLUDED.description,
			status = EXCLUDED.status,
			deadline = EXCLUDED.deadline,
			expire_at = EXCLUDED.expire_at,
			updated_at = NOW()
		`, table),
		get: fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1 AND task_id = $2
		`, taskColumns, table),
		list: fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE owner_id = $1
		ORDER BY task_id
		`, taskColumns, table),
		update: fmt.Sprintf(`
		UPDATE %s
		SET description = COALESCE($3::text, description),
			status = COALESCE($4::text, status),
			updated_at = NOW()
		WHERE owner_id = $1 AND task_id = $2
		  AND (($3::text IS NOT NULL AND description IS DISTINCT FROM $3::text)
		    OR ($4::text IS NOT NULL AND status IS DISTINCT FROM $4::text))
		RETURNING %s
		`, table, taskColumns),
		delete: fmt.Sprintf(`
		DELETE FROM %s
		WHERE owner_id = $1 AND task_id = $2
		RETURNING %s
		`, table, taskColumns),
	}
}

func (r *taskRepository) Put(ctx context.Context, task *domain.Task) error {
	if task == nil || task.OwnerID == "" || task.TaskID == "" {
		return domain.ErrInvalidPayload
	}
	_, err := r.pool.Exec(ctx, r.queries.put,
		task.OwnerID,
		task.TaskID,
		task.Description,
		task.Status,
		nullInt(task.Deadline),
		nullInt(task.ExpireAt),
	)
	return err
}

func (r *taskRepository) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, r.queries.get, ownerID, taskID)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	return task, err
}

func (r *taskRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, r.queries.list, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Update(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Empty() {
		return nil, domain.ErrNoFieldsProvided
	}
	row := r.pool.QueryRow(ctx, r.queries.update, ownerID, taskID, patch.Description, patch.Status)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// missing key or nothing to change
		return nil, nil
	}
	return task, err
}

func (r *taskRepository) Delete(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, r.queries.delete, ownerID, taskID)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task        domain.Task
		description *string
		status      *string
		deadline    *int64
		expireAt    *int64
	)
	if err := row.Scan(
		&task.OwnerID,
		&task.TaskID,
		&description,
		&status,
		&deadline,
		&expireAt,
	); err != nil {
		return nil, err
	}

	task.Description = derefString(description)
	task.Status = derefString(status)
	task.Deadline = derefInt(deadline)
	task.ExpireAt = derefInt(expireAt)
	task.ApplyDefaults()
	return &task, nil
}
