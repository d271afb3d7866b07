package todo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/tasklens/internal/domain"
)

// Config holds configuration for the Service.
type Config struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Service provides business logic for task management.
// It orchestrates operations using the Repository interface.
type Service struct {
	repo   Repository
	config Config

	mu        sync.RWMutex
	listeners []func()
}

// NewService creates a new task service.
func NewService(repo Repository, config Config) *Service {
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Service{
		repo:   repo,
		config: config,
	}
}

// OnChange registers fn to be called after every successful mutation.
// Listeners run synchronously on the mutating goroutine and must not block.
func (s *Service) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) notifyChanged() {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// now returns the service clock in UTC, truncated to milliseconds so every
// storage backend round-trips timestamps exactly.
func (s *Service) now() time.Time {
	return s.config.Now().UTC().Truncate(time.Millisecond)
}

// CreateTask validates params and persists a new task.
func (s *Service) CreateTask(ctx context.Context, params domain.CreateTaskParams) (*domain.Task, error) {
	title, err := domain.NewTitle(params.Title)
	if err != nil {
		return nil, err // ErrTitleRequired or ErrTitleTooLong
	}

	priority, err := domain.NewTaskPriority(params.Priority)
	if err != nil {
		return nil, err
	}

	idObj, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}

	task := &domain.Task{
		ID:        idObj.String(),
		Title:     title.String(),
		Priority:  priority,
		Tags:      domain.NormalizeTags(params.Tags),
		CreatedAt: s.now(),
	}
	if params.DueAt != nil {
		due := params.DueAt.UTC().Truncate(time.Millisecond)
		task.DueAt = &due
	}

	created, err := s.repo.CreateTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.notifyChanged()
	return created, nil
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	if id == "" {
		return nil, domain.ErrTaskNotFound
	}

	return s.repo.FindTaskByID(ctx, id) // Repository returns domain errors
}

// ListTasks returns the tasks matching filter, newest first.
func (s *Service) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	status, err := domain.NewStatusFilter(string(filter.Status))
	if err != nil {
		return nil, err
	}
	filter.Status = status
	filter.Tags = domain.NormalizeTags(filter.Tags)

	tasks, err := s.repo.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// AllTasks returns the complete task collection.
func (s *Service) AllTasks(ctx context.Context) ([]domain.Task, error) {
	return s.ListTasks(ctx, domain.TaskFilter{})
}

// SetCompleted moves a task to the requested completion state.
// Setting the state a task already has is a no-op that returns the stored task.
func (s *Service) SetCompleted(ctx context.Context, id string, completed bool) (*domain.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if !task.SetCompleted(completed, s.now()) {
		return task, nil
	}

	return s.saveCompletion(ctx, task)
}

// ToggleTask flips the completion state of a task.
func (s *Service) ToggleTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	task.Toggle(s.now())
	return s.saveCompletion(ctx, task)
}

func (s *Service) saveCompletion(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	updated, err := s.repo.UpdateTaskCompletion(ctx, task.ID, task.Completed, task.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.notifyChanged()
	return updated, nil
}

// DeleteTask removes a task. Returns domain.ErrTaskNotFound for unknown IDs.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrTaskNotFound
	}

	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.notifyChanged()
	return nil
}
