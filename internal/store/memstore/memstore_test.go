package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/taskapi/internal/store/storetest"
	"github.com/broady/taskapi/internal/task"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) task.Repository {
		return New()
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	desc := "original"
	tk := task.Task{Title: "t", Description: &desc}
	require.NoError(t, s.Save(ctx, &tk))

	desc = "mutated by caller"
	got, err := s.FindByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", *got.Description)

	*got.Description = "mutated by reader"
	again, err := s.FindByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", *again.Description)
}

func TestStore_IDsNotReused(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := task.Task{Title: "first"}
	require.NoError(t, s.Save(ctx, &first))
	require.NoError(t, s.DeleteByID(ctx, first.ID))

	second := task.Task{Title: "second"}
	require.NoError(t, s.Save(ctx, &second))
	assert.Greater(t, second.ID, first.ID)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New()
	_, err := s.FindAll(ctx, task.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Save(ctx, &task.Task{Title: "x"}), context.Canceled)
}
