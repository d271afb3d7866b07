package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/domain"
	"github.com/rezkam/tasklens/internal/infrastructure/persistence/compliance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Compliance(t *testing.T) {
	compliance.RunTaskStoreComplianceTest(t, func() (todo.Repository, func()) {
		path := filepath.Join(t.TempDir(), "tasks.db")
		store, err := NewStore(context.Background(), path)
		require.NoError(t, err)
		return store, func() { _ = store.Close() }
	})
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	store, err := NewStore(ctx, path)
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, &domain.Task{
		ID:       "task-1",
		Title:    "Persist me",
		Priority: domain.TaskPriorityLow,
		Tags:     []string{"home"},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Migrations are idempotent on an existing file.
	reopened, err := NewStore(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	task, err := reopened.FindTaskByID(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "Persist me", task.Title)
	assert.Equal(t, []string{"home"}, task.Tags)
}

func TestNewStore_RequiresPath(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.Error(t, err)
}

func TestBuildListQuery_TagPlaceholders(t *testing.T) {
	query, args := buildListQuery(domain.TaskFilter{
		Status: domain.StatusFilterActive,
		Tags:   []string{"a", "b"},
	})
	assert.Contains(t, query, "completed = 0")
	assert.Contains(t, query, "json_each.value IN (?, ?)")
	assert.Equal(t, []any{"a", "b"}, args)
}
