package todo

import (
	"context"
	"time"

	"github.com/rezkam/tasklens/internal/domain"
)

// Repository defines storage operations for task management.
// Create and update operations return the entity as persisted.
type Repository interface {
	// CreateTask persists a new task.
	CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// FindTaskByID retrieves a single task.
	// Returns domain.ErrTaskNotFound if the task doesn't exist.
	FindTaskByID(ctx context.Context, id string) (*domain.Task, error)

	// ListTasks returns every task matching the filter, newest first.
	ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)

	// UpdateTaskCompletion writes the completion flag and timestamp together.
	// Returns domain.ErrTaskNotFound if the task doesn't exist.
	UpdateTaskCompletion(ctx context.Context, id string, completed bool, completedAt *time.Time) (*domain.Task, error)

	// DeleteTask removes a task.
	// Returns domain.ErrTaskNotFound if the task doesn't exist.
	DeleteTask(ctx context.Context, id string) error
}
