package suggestion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rezkam/tasklens/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	calls   int
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, _, userPrompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, userPrompt)
	return g.reply, g.err
}

type stubTasks struct {
	tasks []domain.Task
	err   error
}

func (s *stubTasks) AllTasks(context.Context) ([]domain.Task, error) {
	return s.tasks, s.err
}

type recordingCreator struct {
	mu      sync.Mutex
	created []domain.CreateTaskParams
	err     error
}

func (c *recordingCreator) CreateTask(_ context.Context, params domain.CreateTaskParams) (*domain.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, params)
	if c.err != nil {
		return nil, c.err
	}
	priority, _ := domain.NewTaskPriority(params.Priority)
	return &domain.Task{ID: "new", Title: params.Title, Priority: priority, Tags: params.Tags}, nil
}

func oneTask() *stubTasks {
	return &stubTasks{tasks: []domain.Task{{ID: "1", Title: "Launch site", Priority: domain.TaskPriorityHigh, Tags: []string{"web"}}}}
}

const generatedLines = "Write launch post|||medium|||marketing\nSet up monitoring|||high|||ops, web\nCollect feedback|||low"

func titles(s Snapshot) []string {
	out := make([]string, len(s.Suggestions))
	for i, sug := range s.Suggestions {
		out[i] = sug.Title
	}
	return out
}

func TestNewEngine_StartsSeeded(t *testing.T) {
	e := NewEngine(&stubGenerator{}, oneTask(), &recordingCreator{})

	s := e.Snapshot()

	assert.Equal(t, StateSeeded, s.State)
	assert.Equal(t, domain.FallbackSuggestions(), s.Suggestions)
	assert.True(t, s.RefreshedAt.IsZero())
}

func TestRefresh_UsesGeneratedSuggestions(t *testing.T) {
	gen := &stubGenerator{reply: generatedLines}
	e := NewEngine(gen, oneTask(), &recordingCreator{})

	require.NoError(t, e.Refresh(context.Background()))

	s := e.Snapshot()
	assert.Equal(t, StateReady, s.State)
	assert.Equal(t, []string{"Write launch post", "Set up monitoring", "Collect feedback"}, titles(s))
	assert.Equal(t, []string{"ops", "web"}, s.Suggestions[1].Tags)
	assert.False(t, s.RefreshedAt.IsZero())
	assert.NoError(t, e.LastError())
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Launch site (high - web)")
}

func TestRefresh_FailuresRevertToFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
		want error
	}{
		{name: "service error", gen: &stubGenerator{err: errors.New("503 from upstream")}, want: domain.ErrService},
		{name: "malformed output", gen: &stubGenerator{reply: "Sure! Here are three ideas."}, want: domain.ErrMalformedOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(&stubGenerator{reply: generatedLines}, oneTask(), &recordingCreator{})
			require.NoError(t, e.Refresh(context.Background()))
			require.Equal(t, StateReady, e.Snapshot().State)

			e.gen = tt.gen
			require.NoError(t, e.Refresh(context.Background()), "service errors are not returned")

			s := e.Snapshot()
			assert.Equal(t, StateFailed, s.State)
			assert.Equal(t, domain.FallbackSuggestions(), s.Suggestions)
			assert.ErrorIs(t, e.LastError(), tt.want)
		})
	}
}

func TestRefresh_EmptyCollectionSeedsWithoutGenerator(t *testing.T) {
	gen := &stubGenerator{reply: generatedLines}
	source := oneTask()
	e := NewEngine(gen, source, &recordingCreator{})
	require.NoError(t, e.Refresh(context.Background()))

	source.tasks = nil
	require.NoError(t, e.Refresh(context.Background()))

	s := e.Snapshot()
	assert.Equal(t, StateSeeded, s.State)
	assert.Equal(t, domain.FallbackSuggestions(), s.Suggestions)
	assert.Equal(t, 1, gen.calls)
}

func TestRefresh_NilGeneratorServesFallback(t *testing.T) {
	e := NewEngine(nil, oneTask(), &recordingCreator{})

	require.NoError(t, e.Refresh(context.Background()))

	assert.Equal(t, StateSeeded, e.Snapshot().State)
	assert.NoError(t, e.LastError())
}

func TestRefresh_StoreErrorKeepsState(t *testing.T) {
	source := oneTask()
	e := NewEngine(&stubGenerator{reply: generatedLines}, source, &recordingCreator{})
	require.NoError(t, e.Refresh(context.Background()))

	source.err = errors.New("db down")
	err := e.Refresh(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateReady, e.Snapshot().State)
}

func TestRunOnce_Refreshes(t *testing.T) {
	e := NewEngine(&stubGenerator{reply: generatedLines}, oneTask(), &recordingCreator{})

	require.NoError(t, e.RunOnce(context.Background()))

	assert.Equal(t, StateReady, e.Snapshot().State)
}

func TestAccept_RoundTripPreservesFields(t *testing.T) {
	creator := &recordingCreator{}
	e := NewEngine(nil, oneTask(), creator)

	task, err := e.Accept(context.Background(), "Review project timeline")

	require.NoError(t, err)
	assert.Equal(t, "Review project timeline", task.Title)
	assert.Equal(t, domain.TaskPriorityHigh, task.Priority)
	assert.Equal(t, []string{"planning", "review"}, task.Tags)
	require.Len(t, creator.created, 1)
	assert.Equal(t, domain.CreateTaskParams{
		Title:    "Review project timeline",
		Priority: "high",
		Tags:     []string{"planning", "review"},
	}, creator.created[0])

	assert.Equal(t, []string{"Update team documentation", "Schedule weekly sync"}, titles(e.Snapshot()))
}

func TestAccept_IsIdempotentSafe(t *testing.T) {
	creator := &recordingCreator{}
	e := NewEngine(nil, oneTask(), creator)

	_, err := e.Accept(context.Background(), "Schedule weekly sync")
	require.NoError(t, err)

	_, err = e.Accept(context.Background(), "Schedule weekly sync")
	require.ErrorIs(t, err, domain.ErrSuggestionNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Len(t, creator.created, 1)
	assert.Len(t, e.Snapshot().Suggestions, 2)
}

func TestAccept_RemovesOnlyFirstDuplicate(t *testing.T) {
	gen := &stubGenerator{reply: "Same|||high|||a\nSame|||low|||b"}
	creator := &recordingCreator{}
	e := NewEngine(gen, oneTask(), creator)
	require.NoError(t, e.Refresh(context.Background()))

	_, err := e.Accept(context.Background(), " Same ")
	require.NoError(t, err)

	s := e.Snapshot()
	require.Len(t, s.Suggestions, 1)
	assert.Equal(t, domain.TaskPriorityLow, s.Suggestions[0].Priority)
	assert.Equal(t, "high", creator.created[0].Priority)
}

func TestAccept_CreateFailureStillRemoves(t *testing.T) {
	creator := &recordingCreator{err: domain.ErrTitleTooLong}
	e := NewEngine(nil, oneTask(), creator)

	_, err := e.Accept(context.Background(), "Update team documentation")

	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Len(t, e.Snapshot().Suggestions, 2)
}

func TestSnapshot_IsACopy(t *testing.T) {
	e := NewEngine(nil, oneTask(), &recordingCreator{})

	s := e.Snapshot()
	s.Suggestions[0].Tags[0] = "mutated"
	s.Suggestions[1].Title = "mutated"

	again := e.Snapshot()
	assert.Equal(t, "planning", again.Suggestions[0].Tags[0])
	assert.Equal(t, "Update team documentation", again.Suggestions[1].Title)
}

func TestRefresh_ConcurrentCallsAreSerialized(t *testing.T) {
	gen := &stubGenerator{reply: generatedLines}
	e := NewEngine(gen, oneTask(), &recordingCreator{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.Refresh(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, gen.calls)
	assert.Equal(t, StateReady, e.Snapshot().State)
	assert.Len(t, e.Snapshot().Suggestions, 3)
}

func TestRefresh_StampsRefreshedAt(t *testing.T) {
	e := NewEngine(nil, oneTask(), &recordingCreator{})
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return at }

	require.NoError(t, e.Refresh(context.Background()))

	assert.Equal(t, at, e.Snapshot().RefreshedAt)
}
