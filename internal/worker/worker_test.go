package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs    atomic.Int32
	active  atomic.Int32
	overlap atomic.Bool
	ran     chan struct{}
	hold    time.Duration
	err     error
}

func newCountingJob() *countingJob {
	return &countingJob{ran: make(chan struct{}, 100)}
}

func (j *countingJob) RunOnce(ctx context.Context) error {
	if j.active.Add(1) > 1 {
		j.overlap.Store(true)
	}
	defer j.active.Add(-1)

	if j.hold > 0 {
		select {
		case <-time.After(j.hold):
		case <-ctx.Done():
		}
	}
	j.runs.Add(1)
	select {
	case j.ran <- struct{}{}:
	default:
	}
	return j.err
}

func waitRun(t *testing.T, j *countingJob) {
	t.Helper()
	select {
	case <-j.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestWorker_RunsImmediatelyOnStart(t *testing.T) {
	job := newCountingJob()
	w := New(job, WithInterval(time.Hour))

	go func() { _ = w.Start(context.Background()) }()
	waitRun(t, job)

	require.NoError(t, w.Stop())
	assert.Equal(t, int32(1), job.runs.Load())
}

func TestWorker_RunsOnInterval(t *testing.T) {
	job := newCountingJob()
	w := New(job, WithInterval(10*time.Millisecond))

	go func() { _ = w.Start(context.Background()) }()
	for i := 0; i < 3; i++ {
		waitRun(t, job)
	}

	require.NoError(t, w.Stop())
	assert.GreaterOrEqual(t, job.runs.Load(), int32(3))
}

func TestWorker_TriggerRunsAgain(t *testing.T) {
	job := newCountingJob()
	w := New(job, WithInterval(time.Hour))

	go func() { _ = w.Start(context.Background()) }()
	waitRun(t, job)

	w.Trigger()
	waitRun(t, job)

	require.NoError(t, w.Stop())
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestWorker_RunsNeverOverlap(t *testing.T) {
	job := newCountingJob()
	job.hold = 5 * time.Millisecond
	w := New(job, WithInterval(time.Millisecond))

	go func() { _ = w.Start(context.Background()) }()
	for i := 0; i < 5; i++ {
		w.Trigger()
		waitRun(t, job)
	}

	require.NoError(t, w.Stop())
	assert.False(t, job.overlap.Load())
}

func TestWorker_ContextCancellation(t *testing.T) {
	job := newCountingJob()
	w := New(job, WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()
	waitRun(t, job)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestWorker_StopWaitsForRunningJob(t *testing.T) {
	job := newCountingJob()
	job.hold = time.Hour // released by cancellation
	w := New(job, WithInterval(time.Hour))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = w.Start(context.Background())
	}()

	require.Eventually(t, func() bool { return job.active.Load() == 1 }, 5*time.Second, time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Equal(t, int32(0), job.active.Load())
	wg.Wait()
}

func TestWorker_StopBeforeStart(t *testing.T) {
	job := newCountingJob()
	w := New(job)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Start(context.Background()))
	assert.Zero(t, job.runs.Load())
}

func TestWorker_JobErrorsDoNotStopLoop(t *testing.T) {
	job := newCountingJob()
	job.err = errors.New("store unavailable")
	w := New(job, WithInterval(5*time.Millisecond), WithName("failing"))

	go func() { _ = w.Start(context.Background()) }()
	waitRun(t, job)
	waitRun(t, job)

	require.NoError(t, w.Stop())
}

func TestJobFunc(t *testing.T) {
	called := false
	var job Job = JobFunc(func(context.Context) error {
		called = true
		return nil
	})

	require.NoError(t, job.RunOnce(context.Background()))
	assert.True(t, called)
}
