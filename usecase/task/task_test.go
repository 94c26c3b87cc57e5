package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
	"github.com/fastygo/todo/repository/memory"
)

// stubRepository lets a test override single TaskRepository methods.
type stubRepository struct {
	repository.TaskRepository
	put    func(ctx context.Context, task *domain.Task) error
	get    func(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	list   func(ctx context.Context, ownerID string) ([]domain.Task, error)
	update func(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) (*domain.Task, error)
}

func (s *stubRepository) Put(ctx context.Context, task *domain.Task) error {
	if s.put != nil {
		return s.put(ctx, task)
	}
	return s.TaskRepository.Put(ctx, task)
}

func (s *stubRepository) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if s.get != nil {
		return s.get(ctx, ownerID, taskID)
	}
	return s.TaskRepository.Get(ctx, ownerID, taskID)
}

func (s *stubRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	if s.list != nil {
		return s.list(ctx, ownerID)
	}
	return s.TaskRepository.ListByOwner(ctx, ownerID)
}

func (s *stubRepository) Update(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	if s.update != nil {
		return s.update(ctx, ownerID, taskID, patch)
	}
	return s.TaskRepository.Update(ctx, ownerID, taskID, patch)
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func newUseCase(repo repository.TaskRepository) *UseCase {
	var n int64
	return New(repo, nil,
		WithClock(fixedClock(1_000_000)),
		WithIDGenerator(func() string {
			return "task-" + string(rune('a'+atomic.AddInt64(&n, 1)-1))
		}),
	)
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTaskRepository()
	uc := newUseCase(repo)

	created, err := uc.CreateTask(ctx, "alice", "  buy milk ")
	require.NoError(t, err)

	assert.Equal(t, "task-a", created.TaskID)
	assert.Equal(t, "alice", created.OwnerID)
	assert.Equal(t, "  buy milk ", created.Description, "description is stored as given")
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.EqualValues(t, 1_300_000, created.Deadline)
	assert.EqualValues(t, 1_300, created.ExpireAt)

	stored, err := repo.Get(ctx, "alice", created.TaskID)
	require.NoError(t, err)
	assert.Equal(t, *created, *stored)
}

func TestCreateTaskValidation(t *testing.T) {
	uc := newUseCase(memory.NewTaskRepository())

	_, err := uc.CreateTask(context.Background(), "alice", "   ")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestCreateTaskStoreFailure(t *testing.T) {
	repo := &stubRepository{
		TaskRepository: memory.NewTaskRepository(),
		put: func(context.Context, *domain.Task) error {
			return errors.New("connection reset")
		},
	}
	uc := newUseCase(repo)

	_, err := uc.CreateTask(context.Background(), "alice", "x")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeStorageWrite))
}

func TestGetTask(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTaskRepository()
	uc := newUseCase(repo)

	t.Run("missing", func(t *testing.T) {
		_, err := uc.GetTask(ctx, "alice", "nope")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("defaults for missing attributes", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, &domain.Task{OwnerID: "alice", TaskID: "bare"}))

		got, err := uc.GetTask(ctx, "alice", "bare")
		require.NoError(t, err)
		assert.Equal(t, "", got.Description)
		assert.Equal(t, domain.StatusPending, got.Status)
	})

	t.Run("other owner cannot see it", func(t *testing.T) {
		_, err := uc.GetTask(ctx, "bob", "bare")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		failing := newUseCase(&stubRepository{
			TaskRepository: repo,
			get: func(context.Context, string, string) (*domain.Task, error) {
				return nil, errors.New("timeout")
			},
		})
		_, err := failing.GetTask(ctx, "alice", "bare")
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeStorageRead))
	})
}

func TestListTasks(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase(memory.NewTaskRepository())

	empty, err := uc.ListTasks(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = uc.CreateTask(ctx, "alice", "one")
	require.NoError(t, err)
	_, err = uc.CreateTask(ctx, "alice", "two")
	require.NoError(t, err)
	_, err = uc.CreateTask(ctx, "bob", "three")
	require.NoError(t, err)

	tasks, err := uc.ListTasks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, "alice", task.OwnerID)
	}
}

func TestListTasksCollapsesConcurrentCalls(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	repo := &stubRepository{
		TaskRepository: memory.NewTaskRepository(),
		list: func(context.Context, string) ([]domain.Task, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return []domain.Task{{OwnerID: "alice", TaskID: "t-1"}}, nil
		},
	}
	uc := newUseCase(repo)

	var wg sync.WaitGroup
	results := make([][]domain.Task, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = uc.ListTasks(context.Background(), "alice")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	for _, r := range results {
		require.Len(t, r, 1)
	}
	// callers get their own copies
	results[0][0].Description = "mutated"
	assert.Equal(t, "", results[1][0].Description)
}

func TestListTasksSharedCallOutlivesCancelledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	repo := &stubRepository{
		TaskRepository: memory.NewTaskRepository(),
		list: func(ctx context.Context, ownerID string) ([]domain.Task, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				close(started)
			}
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return []domain.Task{{OwnerID: ownerID, TaskID: "t-1"}}, nil
		},
	}
	uc := newUseCase(repo)

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	shortErr := make(chan error, 1)
	go func() {
		_, err := uc.ListTasks(shortCtx, "alice")
		shortErr <- err
	}()
	<-started

	type result struct {
		tasks []domain.Task
		err   error
	}
	healthy := make(chan result, 1)
	go func() {
		tasks, err := uc.ListTasks(context.Background(), "alice")
		healthy <- result{tasks, err}
	}()

	err := <-shortErr
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeStorageRead))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	res := <-healthy
	require.NoError(t, res.err)
	require.Len(t, res.tasks, 1)
	assert.Equal(t, "t-1", res.tasks[0].TaskID)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestListTasksTimeoutBoundsSharedCall(t *testing.T) {
	repo := &stubRepository{
		TaskRepository: memory.NewTaskRepository(),
		list: func(ctx context.Context, _ string) ([]domain.Task, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	uc := New(repo, nil, WithListTimeout(20*time.Millisecond))

	_, err := uc.ListTasks(context.Background(), "alice")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeStorageRead))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTaskRepository()
	uc := newUseCase(repo)

	created, err := uc.CreateTask(ctx, "alice", "old")
	require.NoError(t, err)

	t.Run("empty patch touches nothing", func(t *testing.T) {
		touched := false
		guarded := newUseCase(&stubRepository{
			TaskRepository: repo,
			update: func(context.Context, string, string, domain.TaskPatch) (*domain.Task, error) {
				touched = true
				return nil, nil
			},
		})
		err := guarded.UpdateTask(ctx, "alice", created.TaskID, domain.TaskPatch{})
		assert.ErrorIs(t, err, domain.ErrNoFieldsProvided)
		assert.False(t, touched)
	})

	t.Run("partial update keeps other attributes", func(t *testing.T) {
		desc := "new"
		require.NoError(t, uc.UpdateTask(ctx, "alice", created.TaskID, domain.TaskPatch{Description: &desc}))

		got, err := uc.GetTask(ctx, "alice", created.TaskID)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Description)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.Equal(t, created.Deadline, got.Deadline)
		assert.Equal(t, created.ExpireAt, got.ExpireAt)
	})

	t.Run("missing key is a no-op", func(t *testing.T) {
		status := "Done"
		require.NoError(t, uc.UpdateTask(ctx, "alice", "ghost", domain.TaskPatch{Status: &status}))

		_, err := uc.GetTask(ctx, "alice", "ghost")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase(memory.NewTaskRepository())

	created, err := uc.CreateTask(ctx, "alice", "x")
	require.NoError(t, err)

	require.NoError(t, uc.DeleteTask(ctx, "alice", created.TaskID))
	require.NoError(t, uc.DeleteTask(ctx, "alice", created.TaskID))

	_, err = uc.GetTask(ctx, "alice", created.TaskID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
