// Package repotest holds the behaviour every TaskRepository driver must share.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/todo/domain"
	"github.com/fastygo/todo/repository"
)

// RunContract exercises a fresh repository returned by newRepo for every subtest.
func RunContract(t *testing.T, newRepo func(t *testing.T) repository.TaskRepository) {
	t.Helper()
	ctx := context.Background()
	str := func(s string) *string { return &s }
	sample := func(owner, id string) *domain.Task {
		return &domain.Task{
			OwnerID:     owner,
			TaskID:      id,
			Description: "write tests",
			Status:      domain.StatusPending,
			Deadline:    1_700_000_300_000,
			ExpireAt:    1_700_000_300,
		}
	}

	t.Run("put then get round-trips", func(t *testing.T) {
		repo := newRepo(t)
		task := sample("alice", "t-1")
		require.NoError(t, repo.Put(ctx, task))

		got, err := repo.Get(ctx, "alice", "t-1")
		require.NoError(t, err)
		assert.Equal(t, *task, *got)
	})

	t.Run("put overwrites", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put(ctx, sample("alice", "t-1")))
		replaced := sample("alice", "t-1")
		replaced.Description = "replaced"
		replaced.Deadline, replaced.ExpireAt = 0, 0
		require.NoError(t, repo.Put(ctx, replaced))

		got, err := repo.Get(ctx, "alice", "t-1")
		require.NoError(t, err)
		assert.Equal(t, "replaced", got.Description)
		assert.Zero(t, got.Deadline)
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, "alice", "nope")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("missing attributes read as defaults", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put(ctx, &domain.Task{OwnerID: "alice", TaskID: "bare"}))

		got, err := repo.Get(ctx, "alice", "bare")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)
		assert.Equal(t, "", got.Description)
		assert.False(t, got.HasDeadline())
	})

	t.Run("list is scoped to the owner", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put(ctx, sample("alice", "t-2")))
		require.NoError(t, repo.Put(ctx, sample("alice", "t-1")))
		require.NoError(t, repo.Put(ctx, sample("bob", "t-3")))

		tasks, err := repo.ListByOwner(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		ids := []string{tasks[0].TaskID, tasks[1].TaskID}
		assert.ElementsMatch(t, []string{"t-1", "t-2"}, ids)

		none, err := repo.ListByOwner(ctx, "carol")
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("update changes only patched fields", func(t *testing.T) {
		repo := newRepo(t)
		task := sample("alice", "t-1")
		require.NoError(t, repo.Put(ctx, task))

		updated, err := repo.Update(ctx, "alice", "t-1", domain.TaskPatch{Status: str("Done")})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "Done", updated.Status)
		assert.Equal(t, task.Description, updated.Description)
		assert.Equal(t, task.Deadline, updated.Deadline)
		assert.Equal(t, task.ExpireAt, updated.ExpireAt)

		got, err := repo.Get(ctx, "alice", "t-1")
		require.NoError(t, err)
		assert.Equal(t, *updated, *got)
	})

	t.Run("update without change reports nil", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put(ctx, sample("alice", "t-1")))

		updated, err := repo.Update(ctx, "alice", "t-1", domain.StatusPatch(domain.StatusPending))
		require.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("update missing key is a no-op", func(t *testing.T) {
		repo := newRepo(t)
		updated, err := repo.Update(ctx, "alice", "ghost", domain.StatusPatch(domain.StatusExpired))
		require.NoError(t, err)
		assert.Nil(t, updated)

		_, err = repo.Get(ctx, "alice", "ghost")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("update with empty patch", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Update(ctx, "alice", "t-1", domain.TaskPatch{})
		assert.ErrorIs(t, err, domain.ErrNoFieldsProvided)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		task := sample("alice", "t-1")
		require.NoError(t, repo.Put(ctx, task))

		removed, err := repo.Delete(ctx, "alice", "t-1")
		require.NoError(t, err)
		require.NotNil(t, removed)
		assert.Equal(t, *task, *removed)

		removed, err = repo.Delete(ctx, "alice", "t-1")
		require.NoError(t, err)
		assert.Nil(t, removed)

		_, err = repo.Get(ctx, "alice", "t-1")
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})
}
