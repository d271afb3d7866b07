// Package postgres implements the task repository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/domain"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const taskColumns = `id, title, completed, priority, due_at, tags, created_at, completed_at`

// Store is the PostgreSQL implementation of todo.Repository.
type Store struct {
	pool *pgxpool.Pool
}

var _ todo.Repository = (*Store)(nil)

// NewStore creates a new PostgreSQL store with the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID == "" {
		return nil, domain.ErrInvalidID
	}

	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+taskColumns,
		task.ID,
		task.Title,
		task.Completed,
		string(task.Priority),
		timePtrToPgtype(task.DueAt),
		tags,
		timeToPgtype(task.CreatedAt),
		timePtrToPgtype(task.CompletedAt),
	)

	created, err := scanTask(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("task %s already exists: %w", task.ID, err)
		}
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}
	return created, nil
}

// FindTaskByID loads a task by primary key.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *Store) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	query, args := buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// buildListQuery renders the list statement. Filters only ever add
// positional parameters, never interpolated values.
func buildListQuery(filter domain.TaskFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	switch filter.Status {
	case domain.StatusFilterActive:
		args = append(args, false)
		where = append(where, fmt.Sprintf("completed = $%d", len(args)))
	case domain.StatusFilterCompleted:
		args = append(args, true)
		where = append(where, fmt.Sprintf("completed = $%d", len(args)))
	}

	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		where = append(where, fmt.Sprintf("tags && $%d::text[]", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id ASC")
	return b.String(), args
}

// UpdateTaskCompletion writes the completion fields and returns the stored row.
func (s *Store) UpdateTaskCompletion(ctx context.Context, id string, completed bool, completedAt *time.Time) (*domain.Task, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tasks SET completed = $2, completed_at = $3
		WHERE id = $1
		RETURNING `+taskColumns,
		id, completed, timePtrToPgtype(completedAt),
	)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

// DeleteTask removes a task row.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		task        domain.Task
		priority    string
		dueAt       pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
		completedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Completed,
		&priority,
		&dueAt,
		&task.Tags,
		&createdAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	task.Priority = domain.TaskPriority(priority)
	task.DueAt = pgtypeToTimePtr(dueAt)
	task.CreatedAt = pgtypeToTime(createdAt)
	task.CompletedAt = pgtypeToTimePtr(completedAt)
	if task.Tags == nil {
		task.Tags = []string{}
	}
	return &task, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
