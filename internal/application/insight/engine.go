package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rezkam/tasklens/internal/domain"
)

// DefaultRefineTimeout bounds a single background refinement call.
const DefaultRefineTimeout = 30 * time.Second

// Generator produces free text from a system and user prompt.
// Implementations return errors wrapping domain.ErrService.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds configuration for the Engine.
type Config struct {
	RefineTimeout time.Duration
}

// Snapshot is the analysis currently on display.
type Snapshot struct {
	Analysis  domain.Analysis
	Refined   bool // Analysis came from the generator
	Pending   bool // A refinement for this task collection is in flight
	TaskCount int
}

// Engine keeps the latest analysis for the task collection and refines it in
// the background when a generator is configured. Generator failures never
// reach callers; they are logged and kept in LastError.
type Engine struct {
	gen    Generator
	config Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	refinements metric.Int64Counter

	mu          sync.Mutex
	current     Snapshot
	fingerprint uint64
	primed      bool
	closed      bool
	lastErr     error
}

// NewEngine creates an analytics engine. gen may be nil, in which case the
// basic analysis is always served.
func NewEngine(gen Generator, config Config) *Engine {
	if config.RefineTimeout <= 0 {
		config.RefineTimeout = DefaultRefineTimeout
	}

	meter := otel.Meter("github.com/rezkam/tasklens/internal/application/insight")
	refinements, err := meter.Int64Counter("tasklens.analysis.refinements",
		metric.WithDescription("Analysis refinement attempts by outcome"))
	if err != nil {
		slog.Warn("Failed to create refinement counter", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		gen:         gen,
		config:      config,
		ctx:         ctx,
		cancel:      cancel,
		refinements: refinements,
	}
}

// Analyze returns the snapshot for tasks without blocking on the generator.
//
// When the collection differs from the last one seen, the snapshot resets to
// the basic analysis and one background refinement starts. A refinement whose
// collection has since been replaced is discarded when it lands.
func (e *Engine) Analyze(ctx context.Context, tasks []domain.Task) Snapshot {
	fp := Fingerprint(tasks)

	e.mu.Lock()
	if e.primed && e.fingerprint == fp {
		s := e.current.clone()
		e.mu.Unlock()
		return s
	}

	refine := len(tasks) > 0 && e.gen != nil && !e.closed
	e.primed = true
	e.fingerprint = fp
	e.current = Snapshot{
		Analysis:  ComputeBasicAnalysis(tasks),
		Pending:   refine,
		TaskCount: len(tasks),
	}
	s := e.current.clone()
	if refine {
		e.wg.Add(1)
	}
	e.mu.Unlock()

	if refine {
		snapshot := cloneTasks(tasks)
		go e.refineInBackground(fp, snapshot)
	}

	slog.DebugContext(ctx, "Analysis recomputed", "tasks", len(tasks), "refining", refine)
	return s
}

func (e *Engine) refineInBackground(fp uint64, tasks []domain.Task) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(e.ctx, e.config.RefineTimeout)
	defer cancel()

	analysis, refined := e.Refine(ctx, tasks)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.fingerprint != fp {
		slog.Debug("Discarding refinement for superseded task collection")
		return
	}
	e.current.Pending = false
	if refined {
		e.current.Analysis = analysis
		e.current.Refined = true
	}
}

// Refine asks the generator for an analysis of tasks and validates the reply.
// On any failure it returns the basic analysis and false, recording the error
// in LastError. An empty collection is never sent to the generator.
func (e *Engine) Refine(ctx context.Context, tasks []domain.Task) (domain.Analysis, bool) {
	basic := ComputeBasicAnalysis(tasks)
	if len(tasks) == 0 {
		return basic, false
	}

	analysis, err := e.generate(ctx, tasks)
	if err != nil {
		e.recordFailure(ctx, err)
		return basic, false
	}

	e.mu.Lock()
	e.lastErr = nil
	e.mu.Unlock()
	e.count(ctx, "refined")
	return analysis, true
}

func (e *Engine) generate(ctx context.Context, tasks []domain.Task) (domain.Analysis, error) {
	if e.gen == nil {
		return domain.Analysis{}, domain.ErrGeneratorUnavailable
	}

	prompt, err := buildRefinePrompt(tasks)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("%w: %v", domain.ErrService, err)
	}

	text, err := e.gen.Generate(ctx, refineSystemPrompt, prompt)
	if err != nil {
		if !errors.Is(err, domain.ErrService) {
			err = fmt.Errorf("%w: %w", domain.ErrService, err)
		}
		return domain.Analysis{}, err
	}

	return parseAnalysis(text)
}

func (e *Engine) recordFailure(ctx context.Context, err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()

	slog.WarnContext(ctx, "Analysis refinement failed, keeping basic analysis", "error", err)
	e.count(ctx, "fallback")
}

func (e *Engine) count(ctx context.Context, outcome string) {
	if e.refinements == nil {
		return
	}
	e.refinements.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// LastError returns the most recent refinement failure, or nil after a success.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Wait blocks until every in-flight refinement has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close cancels in-flight refinements and waits for them to exit.
// Analyze keeps serving basic analyses after Close.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	return nil
}

// Fingerprint hashes the fields of a task collection that influence analysis.
// Equal collections in equal order produce equal fingerprints.
func Fingerprint(tasks []domain.Task) uint64 {
	h := xxhash.New()
	buf := make([]byte, 0, 128)
	for _, t := range tasks {
		buf = buf[:0]
		buf = append(buf, t.ID...)
		buf = append(buf, 0)
		buf = append(buf, t.Title...)
		buf = append(buf, 0)
		buf = strconv.AppendBool(buf, t.Completed)
		buf = append(buf, string(t.Priority)...)
		buf = strconv.AppendInt(buf, t.CreatedAt.UnixMilli(), 10)
		buf = append(buf, '|')
		if t.CompletedAt != nil {
			buf = strconv.AppendInt(buf, t.CompletedAt.UnixMilli(), 10)
		}
		buf = append(buf, '|')
		if t.DueAt != nil {
			buf = strconv.AppendInt(buf, t.DueAt.UnixMilli(), 10)
		}
		for _, tag := range t.Tags {
			buf = append(buf, 0)
			buf = append(buf, tag...)
		}
		buf = append(buf, 1)
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Analysis.Insights = slices.Clone(s.Analysis.Insights)
	c.Analysis.SuggestedTags = slices.Clone(s.Analysis.SuggestedTags)
	return c
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
