package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/domain"
	"github.com/rezkam/tasklens/internal/infrastructure/persistence/compliance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_Compliance(t *testing.T) {
	compliance.RunTaskStoreComplianceTest(t, func() (todo.Repository, func()) {
		tmpDir, err := os.MkdirTemp("", "fs-store-test-*")
		require.NoError(t, err)

		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		cleanup := func() {
			os.RemoveAll(tmpDir)
		}

		return store, cleanup
	})
}

func TestFSStore_RejectsPathTraversal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"../escape", "a/b", ".hidden", ""} {
		_, err := store.FindTaskByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound, id)

		assert.ErrorIs(t, store.DeleteTask(ctx, id), domain.ErrTaskNotFound, id)

		_, err = store.CreateTask(ctx, &domain.Task{ID: id, Title: "x", CreatedAt: time.Now().UTC()})
		assert.ErrorIs(t, err, domain.ErrInvalidID, id)
	}
}

func TestFSStore_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.CreateTask(ctx, &domain.Task{ID: "good", Title: "ok", Priority: domain.TaskPriorityLow, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	tasks, err := store.ListTasks(ctx, domain.TaskFilter{})

	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "good", tasks[0].ID)
}

func TestFSStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.CreateTask(context.Background(), &domain.Task{ID: "t1", Title: "a", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "t1.json", entries[0].Name())
}
