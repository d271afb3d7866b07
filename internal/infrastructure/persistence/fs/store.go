// Package fs stores each task as a JSON document in a directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/domain"
	"github.com/rezkam/tasklens/internal/infrastructure/persistence/document"
)

var _ todo.Repository = (*Store)(nil)

// Store is a filesystem-based implementation of todo.Repository.
type Store struct {
	baseDir string
	mu      sync.RWMutex
}

// NewStore creates a new filesystem store rooted at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// getFilePath returns the document path for id, or false when id could escape baseDir.
func (s *Store) getFilePath(id string) (string, bool) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", false
	}
	return filepath.Join(s.baseDir, id+".json"), true
}

// CreateTask writes a new task document.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.getFilePath(task.ID)
	if !ok {
		return nil, domain.ErrInvalidID
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("task with ID %s already exists", task.ID)
	}

	if err := s.write(path, task); err != nil {
		return nil, err
	}

	out := task.Clone()
	return &out, nil
}

// FindTaskByID reads a task document.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(id)
}

// ListTasks loads every document in parallel and filters in memory.
func (s *Store) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var (
		mu    sync.Mutex
		tasks []domain.Task
		wg    sync.WaitGroup
	)

	// Limit concurrency to avoid "too many open files" on large directories.
	const maxConcurrency = 20
	semaphore := make(chan struct{}, maxConcurrency)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		wg.Add(1)
		semaphore <- struct{}{}

		go func(filename string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			data, err := os.ReadFile(filepath.Join(s.baseDir, filename))
			if err != nil {
				slog.WarnContext(ctx, "Skipping unreadable task file", "file", filename, "error", err)
				return
			}
			task, err := document.Unmarshal(data)
			if err != nil {
				slog.WarnContext(ctx, "Skipping corrupt task file", "file", filename, "error", err)
				return
			}
			if !filter.Matches(task) {
				return
			}

			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()
		}(entry.Name())
	}

	wg.Wait()
	domain.SortTasks(tasks)
	return tasks, nil
}

// UpdateTaskCompletion rewrites the completion fields of an existing document.
func (s *Store) UpdateTaskCompletion(ctx context.Context, id string, completed bool, completedAt *time.Time) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.read(id)
	if err != nil {
		return nil, err
	}

	task.Completed = completed
	task.CompletedAt = nil
	if completedAt != nil {
		at := completedAt.UTC()
		task.CompletedAt = &at
	}

	path, _ := s.getFilePath(id)
	if err := s.write(path, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task document.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, ok := s.getFilePath(id)
	if !ok {
		return domain.ErrTaskNotFound
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *Store) read(id string) (*domain.Task, error) {
	path, ok := s.getFilePath(id)
	if !ok {
		return nil, domain.ErrTaskNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	task, err := document.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// write replaces path atomically through a temporary file in the same directory.
func (s *Store) write(path string, task *domain.Task) error {
	data, err := document.Marshal(task)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.baseDir, ".task-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Close is a no-op; the store holds no open handles.
func (s *Store) Close() error {
	return nil
}
