// Package sqlite implements the task repository on an embedded SQLite
// database using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const taskColumns = `id, title, completed, priority, due_at, tags, created_at, completed_at`

// Store is the SQLite implementation of todo.Repository.
// Timestamps are stored as Unix milliseconds and tags as a JSON array.
type Store struct {
	db *sql.DB
}

var _ todo.Repository = (*Store)(nil)

// NewStore opens (or creates) the database file at path and applies migrations.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: database path is required")
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection serialises access.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		slog.InfoContext(ctx, "Applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID == "" {
		return nil, domain.ErrInvalidID
	}

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Title,
		task.Completed,
		string(task.Priority),
		toMillisPtr(task.DueAt),
		tags,
		task.CreatedAt.UnixMilli(),
		toMillisPtr(task.CompletedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return s.FindTaskByID(ctx, task.ID)
}

// FindTaskByID loads a task by primary key.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *Store) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	query, args := buildListQuery(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func buildListQuery(filter domain.TaskFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	switch filter.Status {
	case domain.StatusFilterActive:
		where = append(where, "completed = 0")
	case domain.StatusFilterCompleted:
		where = append(where, "completed = 1")
	}

	if len(filter.Tags) > 0 {
		placeholders := make([]string, len(filter.Tags))
		for i, tag := range filter.Tags {
			placeholders[i] = "?"
			args = append(args, tag)
		}
		where = append(where, "EXISTS (SELECT 1 FROM json_each(tasks.tags) WHERE json_each.value IN ("+
			strings.Join(placeholders, ", ")+"))")
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
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = ?, completed_at = ? WHERE id = ?`,
		completed, toMillisPtr(completedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	} else if n == 0 {
		return nil, domain.ErrTaskNotFound
	}
	return s.FindTaskByID(ctx, id)
}

// DeleteTask removes a task row.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task        domain.Task
		priority    string
		dueAt       sql.NullInt64
		tags        string
		createdAt   int64
		completedAt sql.NullInt64
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Completed,
		&priority,
		&dueAt,
		&tags,
		&createdAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &task.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags for task %s: %w", task.ID, err)
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	task.Priority = domain.TaskPriority(priority)
	task.DueAt = fromMillis(dueAt)
	task.CreatedAt = time.UnixMilli(createdAt).UTC()
	task.CompletedAt = fromMillis(completedAt)
	return &task, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(b), nil
}

func toMillisPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
