// Package suggestion maintains the list of proposed follow-up tasks.
package suggestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/tasklens/internal/domain"
)

// Generator produces free text from a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// TaskSource reads the current task collection.
type TaskSource interface {
	AllTasks(ctx context.Context) ([]domain.Task, error)
}

// TaskCreator turns an accepted suggestion into a task.
type TaskCreator interface {
	CreateTask(ctx context.Context, params domain.CreateTaskParams) (*domain.Task, error)
}

// State describes where the suggestion list came from.
type State string

const (
	StateSeeded     State = "seeded"     // fallback list, nothing to refine from
	StateRefreshing State = "refreshing" // generator call in flight, previous list still shown
	StateReady      State = "ready"      // list came from the generator
	StateFailed     State = "failed"     // generator failed, fallback list shown
)

// Snapshot is an immutable view of the active suggestion list.
type Snapshot struct {
	Suggestions []domain.Suggestion
	State       State
	RefreshedAt time.Time // zero until the first refresh completes
}

// Engine holds the active suggestions. It starts seeded with the fallback list.
// Refreshes are serialized; generator failures revert to the fallback list and
// are kept in LastError instead of being returned.
type Engine struct {
	gen     Generator
	tasks   TaskSource
	creator TaskCreator
	now     func() time.Time

	refreshes metric.Int64Counter
	accepted  metric.Int64Counter

	refreshMu sync.Mutex

	mu          sync.Mutex
	active      []domain.Suggestion
	state       State
	refreshedAt time.Time
	lastErr     error
}

// NewEngine creates a seeded suggestion engine. gen may be nil, in which
// case every refresh serves the fallback list.
func NewEngine(gen Generator, tasks TaskSource, creator TaskCreator) *Engine {
	meter := otel.Meter("github.com/rezkam/tasklens/internal/application/suggestion")
	refreshes, err := meter.Int64Counter("tasklens.suggestions.refreshes",
		metric.WithDescription("Suggestion refreshes by outcome"))
	if err != nil {
		slog.Warn("Failed to create refresh counter", "error", err)
	}
	accepted, err := meter.Int64Counter("tasklens.suggestions.accepted",
		metric.WithDescription("Suggestions converted into tasks"))
	if err != nil {
		slog.Warn("Failed to create accept counter", "error", err)
	}

	return &Engine{
		gen:       gen,
		tasks:     tasks,
		creator:   creator,
		now:       time.Now,
		refreshes: refreshes,
		accepted:  accepted,
		active:    domain.FallbackSuggestions(),
		state:     StateSeeded,
	}
}

// Snapshot returns a copy of the active list.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Suggestions: cloneSuggestions(e.active),
		State:       e.state,
		RefreshedAt: e.refreshedAt,
	}
}

// LastError returns the most recent generator failure, or nil after a success.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// RunOnce refreshes the list; it lets the engine run under a worker.Worker.
func (e *Engine) RunOnce(ctx context.Context) error {
	return e.Refresh(ctx)
}

// Refresh rebuilds the list from the current tasks.
//
// An empty collection seeds the fallback list without calling the generator.
// Only task store failures are returned; generator failures revert to the
// fallback list.
func (e *Engine) Refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	tasks, err := e.tasks.AllTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tasks for suggestions: %w", err)
	}

	if len(tasks) == 0 || e.gen == nil {
		e.settle(domain.FallbackSuggestions(), StateSeeded, nil)
		e.count(ctx, e.refreshes, "seeded")
		return nil
	}

	e.mu.Lock()
	e.state = StateRefreshing
	e.mu.Unlock()

	suggestions, err := e.generate(ctx, tasks)
	if err != nil {
		slog.WarnContext(ctx, "Suggestion refresh failed, using fallback suggestions", "error", err)
		e.settle(domain.FallbackSuggestions(), StateFailed, err)
		e.count(ctx, e.refreshes, "fallback")
		return nil
	}

	e.settle(suggestions, StateReady, nil)
	e.count(ctx, e.refreshes, "ready")
	slog.DebugContext(ctx, "Suggestions refreshed", "count", len(suggestions))
	return nil
}

func (e *Engine) generate(ctx context.Context, tasks []domain.Task) ([]domain.Suggestion, error) {
	text, err := e.gen.Generate(ctx, systemPrompt, buildUserPrompt(tasks))
	if err != nil {
		if !errors.Is(err, domain.ErrService) {
			err = fmt.Errorf("%w: %w", domain.ErrService, err)
		}
		return nil, err
	}
	return ParseSuggestions(text)
}

func (e *Engine) settle(list []domain.Suggestion, state State, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.active = list
	e.state = state
	e.lastErr = err
	e.refreshedAt = e.now().UTC()
}

// Accept removes the first suggestion titled title and creates a task from it.
// The removal is immediate and is not undone if creation fails. Returns
// domain.ErrSuggestionNotFound, without touching the store, when no active
// suggestion has that title.
func (e *Engine) Accept(ctx context.Context, title string) (*domain.Task, error) {
	title = strings.TrimSpace(title)

	e.mu.Lock()
	i := slices.IndexFunc(e.active, func(s domain.Suggestion) bool { return s.Title == title })
	if i < 0 {
		e.mu.Unlock()
		return nil, domain.ErrSuggestionNotFound
	}
	picked := e.active[i]
	e.active = slices.Delete(slices.Clone(e.active), i, i+1)
	e.mu.Unlock()

	task, err := e.creator.CreateTask(ctx, picked.CreateParams())
	if err != nil {
		return nil, fmt.Errorf("failed to create task from suggestion: %w", err)
	}

	e.count(ctx, e.accepted, "created")
	return task, nil
}

func (e *Engine) count(ctx context.Context, c metric.Int64Counter, outcome string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func cloneSuggestions(in []domain.Suggestion) []domain.Suggestion {
	out := make([]domain.Suggestion, len(in))
	for i, s := range in {
		out[i] = domain.Suggestion{Title: s.Title, Priority: s.Priority, Tags: slices.Clone(s.Tags)}
	}
	return out
}
