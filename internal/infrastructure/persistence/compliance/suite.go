// Package compliance holds the behavioural contract every task store backend must satisfy.
package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/domain"
)

// RunTaskStoreComplianceTest runs a standard set of tests against a Repository implementation.
// setup returns a fresh (clean) store and a cleanup function that is called after each subtest.
func RunTaskStoreComplianceTest(t *testing.T, setup func() (todo.Repository, func())) {
	base := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

	newTask := func(title string, offset time.Duration, tags ...string) *domain.Task {
		id, err := uuid.NewV7()
		require.NoError(t, err)
		if tags == nil {
			tags = []string{}
		}
		return &domain.Task{
			ID:        id.String(),
			Title:     title,
			Priority:  domain.TaskPriorityMedium,
			Tags:      tags,
			CreatedAt: base.Add(offset),
		}
	}

	t.Run("CreateAndFind", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		due := base.Add(72 * time.Hour)
		task := newTask("Write report", 0, "work", "q1")
		task.Priority = domain.TaskPriorityHigh
		task.DueAt = &due

		created, err := store.CreateTask(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, task.ID, created.ID)

		fetched, err := store.FindTaskByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, fetched.ID)
		assert.Equal(t, "Write report", fetched.Title)
		assert.False(t, fetched.Completed)
		assert.Equal(t, domain.TaskPriorityHigh, fetched.Priority)
		assert.Equal(t, []string{"work", "q1"}, fetched.Tags)
		assert.True(t, base.Equal(fetched.CreatedAt), "created_at round-trips at millisecond precision")
		require.NotNil(t, fetched.DueAt)
		assert.True(t, due.Equal(*fetched.DueAt))
		assert.Nil(t, fetched.CompletedAt)
	})

	t.Run("CreateWithoutTags", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		task := newTask("No tags", 0)
		_, err := store.CreateTask(ctx, task)
		require.NoError(t, err)

		fetched, err := store.FindTaskByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Empty(t, fetched.Tags)
		assert.Nil(t, fetched.DueAt)
	})

	t.Run("CreateDuplicateID", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		task := newTask("Once", 0)
		_, err := store.CreateTask(ctx, task)
		require.NoError(t, err)

		_, err = store.CreateTask(ctx, task)
		assert.Error(t, err)
	})

	t.Run("FindNonExistentTask", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		_, err := store.FindTaskByID(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		tasks, err := store.ListTasks(context.Background(), domain.TaskFilter{})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("ListOrderAndFilters", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		oldest := newTask("oldest", 0, "home")
		middle := newTask("middle", time.Minute, "work", "urgent")
		newest := newTask("newest", 2*time.Minute)
		for _, task := range []*domain.Task{middle, oldest, newest} {
			_, err := store.CreateTask(ctx, task)
			require.NoError(t, err)
		}
		doneAt := base.Add(time.Hour)
		_, err := store.UpdateTaskCompletion(ctx, middle.ID, true, &doneAt)
		require.NoError(t, err)

		ids := func(tasks []domain.Task) []string {
			out := make([]string, len(tasks))
			for i, task := range tasks {
				out[i] = task.ID
			}
			return out
		}

		all, err := store.ListTasks(ctx, domain.TaskFilter{Status: domain.StatusFilterAll})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, middle.ID, oldest.ID}, ids(all))

		active, err := store.ListTasks(ctx, domain.TaskFilter{Status: domain.StatusFilterActive})
		require.NoError(t, err)
		assert.Equal(t, []string{newest.ID, oldest.ID}, ids(active))

		completed, err := store.ListTasks(ctx, domain.TaskFilter{Status: domain.StatusFilterCompleted})
		require.NoError(t, err)
		assert.Equal(t, []string{middle.ID}, ids(completed))

		tagged, err := store.ListTasks(ctx, domain.TaskFilter{Tags: []string{"home", "urgent"}})
		require.NoError(t, err)
		assert.Equal(t, []string{middle.ID, oldest.ID}, ids(tagged))

		none, err := store.ListTasks(ctx, domain.TaskFilter{Status: domain.StatusFilterActive, Tags: []string{"urgent"}})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("UpdateCompletion", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		task := newTask("Toggle me", 0, "a")
		_, err := store.CreateTask(ctx, task)
		require.NoError(t, err)

		doneAt := base.Add(90 * time.Minute)
		updated, err := store.UpdateTaskCompletion(ctx, task.ID, true, &doneAt)
		require.NoError(t, err)
		assert.True(t, updated.Completed)
		require.NotNil(t, updated.CompletedAt)
		assert.True(t, doneAt.Equal(*updated.CompletedAt))
		assert.Equal(t, "Toggle me", updated.Title)
		assert.Equal(t, []string{"a"}, updated.Tags)

		fetched, err := store.FindTaskByID(ctx, task.ID)
		require.NoError(t, err)
		assert.True(t, fetched.Completed)
		require.NotNil(t, fetched.CompletedAt)
		assert.True(t, doneAt.Equal(*fetched.CompletedAt))

		reopened, err := store.UpdateTaskCompletion(ctx, task.ID, false, nil)
		require.NoError(t, err)
		assert.False(t, reopened.Completed)
		assert.Nil(t, reopened.CompletedAt)
	})

	t.Run("UpdateNonExistentTask", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()

		now := base
		_, err := store.UpdateTaskCompletion(context.Background(), uuid.NewString(), true, &now)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		store, teardown := setup()
		defer teardown()
		ctx := context.Background()

		keep := newTask("keep", 0)
		drop := newTask("drop", time.Second)
		for _, task := range []*domain.Task{keep, drop} {
			_, err := store.CreateTask(ctx, task)
			require.NoError(t, err)
		}

		require.NoError(t, store.DeleteTask(ctx, drop.ID))

		_, err := store.FindTaskByID(ctx, drop.ID)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)

		remaining, err := store.ListTasks(ctx, domain.TaskFilter{})
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, keep.ID, remaining[0].ID)

		assert.ErrorIs(t, store.DeleteTask(ctx, drop.ID), domain.ErrTaskNotFound)
	})
}
