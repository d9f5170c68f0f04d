// Package storetest holds the behavior every task.Repository must share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/taskapi/internal/task"
)

// Run exercises repo constructors against the task.Repository contract.
// newRepo must return an empty repository.
func Run(t *testing.T, newRepo func(t *testing.T) task.Repository) {
	t.Run("InsertAssignsID", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		desc := "Test Description"
		tk := task.Task{Title: "Test Task", Description: &desc}
		require.NoError(t, repo.Save(ctx, &tk))

		assert.NotZero(t, tk.ID)
		assert.False(t, tk.CreatedAt.IsZero())
		assert.False(t, tk.UpdatedAt.IsZero())

		got, err := repo.FindByID(ctx, tk.ID)
		require.NoError(t, err)
		assert.Equal(t, tk.ID, got.ID)
		assert.Equal(t, "Test Task", got.Title)
		require.NotNil(t, got.Description)
		assert.Equal(t, "Test Description", *got.Description)
		assert.False(t, got.Completed)
	})

	t.Run("NilDescriptionRoundTrips", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		tk := task.Task{Title: "no description"}
		require.NoError(t, repo.Save(ctx, &tk))

		got, err := repo.FindByID(ctx, tk.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Description)
	})

	t.Run("IDsAreUnique", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		seen := map[int64]bool{}
		for _, title := range []string{"a", "b", "c"} {
			tk := task.Task{Title: title}
			require.NoError(t, repo.Save(ctx, &tk))
			assert.False(t, seen[tk.ID], "duplicate id %d", tk.ID)
			seen[tk.ID] = true
		}
	})

	t.Run("UpdateKeepsID", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		tk := task.Task{Title: "before"}
		require.NoError(t, repo.Save(ctx, &tk))
		id := tk.ID

		tk.Title = "after"
		tk.Completed = true
		require.NoError(t, repo.Save(ctx, &tk))
		assert.Equal(t, id, tk.ID)

		got, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "after", got.Title)
		assert.True(t, got.Completed)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		repo := newRepo(t)
		tk := task.Task{ID: 999, Title: "ghost"}
		assert.ErrorIs(t, repo.Save(context.Background(), &tk), task.ErrNotFound)
	})

	t.Run("FindMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByID(context.Background(), 999)
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("FindAllOrderAndFilter", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		all, err := repo.FindAll(ctx, task.Filter{})
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)

		for i, title := range []string{"one", "two", "three"} {
			tk := task.Task{Title: title, Completed: i == 1}
			require.NoError(t, repo.Save(ctx, &tk))
		}

		all, err = repo.FindAll(ctx, task.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"one", "two", "three"}, titles(all))
		assert.Less(t, all[0].ID, all[1].ID)
		assert.Less(t, all[1].ID, all[2].ID)

		done := true
		completed, err := repo.FindAll(ctx, task.Filter{Completed: &done})
		require.NoError(t, err)
		assert.Equal(t, []string{"two"}, titles(completed))

		open := false
		pending, err := repo.FindAll(ctx, task.Filter{Completed: &open})
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "three"}, titles(pending))
	})

	t.Run("ExistsAndDelete", func(t *testing.T) {
		ctx := context.Background()
		repo := newRepo(t)

		tk := task.Task{Title: "doomed"}
		require.NoError(t, repo.Save(ctx, &tk))

		ok, err := repo.ExistsByID(ctx, tk.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, repo.DeleteByID(ctx, tk.ID))

		ok, err = repo.ExistsByID(ctx, tk.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.FindByID(ctx, tk.ID)
		assert.ErrorIs(t, err, task.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteByID(ctx, tk.ID), task.ErrNotFound)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(context.Background()))
	})
}

func titles(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}
