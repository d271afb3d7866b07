// Package gcs stores each task as a JSON object in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/domain"
	"github.com/rezkam/tasklens/internal/infrastructure/persistence/document"
)

// DefaultPrefix is the object name prefix used when none is configured.
const DefaultPrefix = "tasks/"

// maxConcurrentReads bounds parallel object reads during a listing.
const maxConcurrentReads = 20

var _ todo.Repository = (*Store)(nil)

// Config holds GCS store configuration.
type Config struct {
	Bucket string
	Prefix string // object name prefix, default "tasks/"

	// Endpoint overrides the API endpoint, e.g. a local emulator.
	// Setting it disables authentication.
	Endpoint string
}

// Store is a GCS-based implementation of todo.Repository.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewStore creates a new GCS store.
// It assumes the client is authenticated (e.g. via GOOGLE_APPLICATION_CREDENTIALS)
// unless an emulator endpoint is configured.
func NewStore(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *Store) objectName(id string) string {
	return s.prefix + id + ".json"
}

func (s *Store) object(id string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.objectName(id))
}

// CreateTask writes a new task object. The write fails if the object already exists.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID == "" || strings.Contains(task.ID, "/") {
		return nil, domain.ErrInvalidID
	}

	obj := s.object(task.ID).If(storage.Conditions{DoesNotExist: true})
	if err := s.write(ctx, obj, task); err != nil {
		return nil, err
	}

	out := task.Clone()
	return &out, nil
}

// FindTaskByID reads a task object.
func (s *Store) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	task, _, err := s.read(ctx, id)
	return task, err
}

// ListTasks scans the prefix and loads objects in parallel.
func (s *Store) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})

	var objectNames []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".json") {
			objectNames = append(objectNames, attrs.Name)
		}
	}

	return collect(ctx, objectNames, filter, s.load)
}

// loadFunc reads one listed object. ok is false for objects to skip; err is
// reserved for failures that invalidate the whole listing.
type loadFunc func(ctx context.Context, objectName string) (task domain.Task, ok bool, err error)

// collect loads names with bounded parallelism and keeps the tasks matching
// filter, newest first. A cancelled context fails the listing rather than
// returning a partial one.
func collect(ctx context.Context, names []string, filter domain.TaskFilter, load loadFunc) ([]domain.Task, error) {
	var (
		mu    sync.Mutex
		tasks []domain.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for _, name := range names {
		g.Go(func() error {
			task, ok, err := load(gctx, name)
			if err != nil {
				return err
			}
			if !ok || !filter.Matches(task) {
				return nil
			}
			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load task objects: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	domain.SortTasks(tasks)
	return tasks, nil
}

// load reads one listed object. Objects deleted since listing, unreadable
// objects and corrupt documents are skipped; context errors are returned.
func (s *Store) load(ctx context.Context, objectName string) (domain.Task, bool, error) {
	r, err := s.client.Bucket(s.bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Task{}, false, ctxErr
		}
		if !errors.Is(err, storage.ErrObjectNotExist) {
			slog.WarnContext(ctx, "Skipping unreadable task object", "object", objectName, "error", err)
		}
		return domain.Task{}, false, nil
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Task{}, false, ctxErr
		}
		slog.WarnContext(ctx, "Skipping unreadable task object", "object", objectName, "error", err)
		return domain.Task{}, false, nil
	}
	task, err := document.Unmarshal(data)
	if err != nil {
		slog.WarnContext(ctx, "Skipping corrupt task object", "object", path.Base(objectName), "error", err)
		return domain.Task{}, false, nil
	}
	return task, true, nil
}

// UpdateTaskCompletion rewrites the completion fields. The write is
// conditional on the generation that was read, so concurrent writers cannot
// silently overwrite each other.
func (s *Store) UpdateTaskCompletion(ctx context.Context, id string, completed bool, completedAt *time.Time) (*domain.Task, error) {
	task, generation, err := s.read(ctx, id)
	if err != nil {
		return nil, err
	}

	task.Completed = completed
	task.CompletedAt = nil
	if completedAt != nil {
		at := completedAt.UTC()
		task.CompletedAt = &at
	}

	obj := s.object(id).If(storage.Conditions{GenerationMatch: generation})
	if err := s.write(ctx, obj, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task object.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.object(id).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return domain.ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) read(ctx context.Context, id string) (*domain.Task, int64, error) {
	if id == "" || strings.Contains(id, "/") {
		return nil, 0, domain.ErrTaskNotFound
	}

	r, err := s.object(id).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, 0, domain.ErrTaskNotFound
		}
		return nil, 0, fmt.Errorf("failed to read object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read object: %w", err)
	}
	task, err := document.Unmarshal(data)
	if err != nil {
		return nil, 0, err
	}
	return &task, r.Attrs.Generation, nil
}

func (s *Store) write(ctx context.Context, obj *storage.ObjectHandle, task *domain.Task) error {
	data, err := document.Marshal(task)
	if err != nil {
		return err
	}

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}
