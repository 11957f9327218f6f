package taskpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doubleParams is the input for the doubling work function used across
// these tests.
type doubleParams struct {
	Value int
}

// doubleResult is its output.
type doubleResult struct {
	Doubled int
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newDoublingPool(opts Options) *Pool[doubleParams, doubleResult] {
	if opts.Logger == nil {
		opts.Logger = setupTestLogger()
	}
	return New(func(ctx context.Context, p doubleParams) (doubleResult, error) {
		return doubleResult{Doubled: p.Value * 2}, nil
	}, opts)
}

// waitForDrained polls until the pool has no executing run and an empty
// queue. Callers that only hold run IDs have no blocking wait primitive,
// so tests observe completion the same way real consumers do.
func waitForDrained[P, R any](t *testing.T, pool *Pool[P, R]) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !pool.IsRunning() && pool.QueueSize() == 0
	}, 2*time.Second, 5*time.Millisecond, "pool did not drain in time")
}

func waitForTerminal[P, R any](t *testing.T, pool *Pool[P, R], runID string) Run[P, R] {
	t.Helper()
	var found Run[P, R]
	require.Eventually(t, func() bool {
		run, err := pool.RunByID(runID)
		if err != nil {
			return false
		}
		found = run
		return run.Status.Terminal()
	}, 2*time.Second, 5*time.Millisecond, "run %s did not reach a terminal state", runID)
	return found
}

func TestEnqueueReturnsDistinctIDs(t *testing.T) {
	pool := newDoublingPool(Options{})

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := pool.Enqueue(doubleParams{Value: i})
		require.NoError(t, err)
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "run ID %s issued twice", id)
		seen[id] = true
	}

	waitForDrained(t, pool)
}

func TestRunsExecuteInFIFOOrder(t *testing.T) {
	pool := newDoublingPool(Options{})

	for _, v := range []int{1, 2, 3} {
		_, err := pool.Enqueue(doubleParams{Value: v})
		require.NoError(t, err)
	}

	waitForDrained(t, pool)

	history := pool.History(0)
	require.Len(t, history, 3)

	// Most-recent-first: the last enqueued value surfaces first.
	assert.Equal(t, 6, history[0].Result.Doubled)
	assert.Equal(t, 4, history[1].Result.Doubled)
	assert.Equal(t, 2, history[2].Result.Doubled)

	for _, run := range history {
		assert.Equal(t, StatusCompleted, run.Status)
		assert.NoError(t, run.Err)
		assert.GreaterOrEqual(t, run.QueueTime, time.Duration(0))
		assert.GreaterOrEqual(t, run.Duration, time.Duration(0))
		assert.False(t, run.QueuedAt.After(run.StartedAt))
		assert.False(t, run.StartedAt.After(run.CompletedAt))
	}
}

func TestFailedRunIsContained(t *testing.T) {
	pool := New(func(ctx context.Context, p doubleParams) (doubleResult, error) {
		if p.Value < 0 {
			return doubleResult{}, errors.New("boom")
		}
		return doubleResult{Doubled: p.Value * 2}, nil
	}, Options{Logger: setupTestLogger()})

	failedID, err := pool.Enqueue(doubleParams{Value: -1})
	require.NoError(t, err)

	okID, err := pool.Enqueue(doubleParams{Value: 21})
	require.NoError(t, err)

	failed := waitForTerminal(t, pool, failedID)
	assert.Equal(t, StatusFailed, failed.Status)
	require.Error(t, failed.Err)
	assert.EqualError(t, failed.Err, "boom")
	assert.Zero(t, failed.Result)

	// A failing run must not block or poison the next one.
	ok := waitForTerminal(t, pool, okID)
	assert.Equal(t, StatusCompleted, ok.Status)
	assert.NoError(t, ok.Err)
	assert.Equal(t, 42, ok.Result.Doubled)
}

func TestPanicNormalizedToError(t *testing.T) {
	pool := New(func(ctx context.Context, p doubleParams) (doubleResult, error) {
		panic("unexpected value")
	}, Options{Logger: setupTestLogger()})

	id, err := pool.Enqueue(doubleParams{Value: 1})
	require.NoError(t, err)

	run := waitForTerminal(t, pool, id)
	assert.Equal(t, StatusFailed, run.Status)
	require.Error(t, run.Err)
	assert.Contains(t, run.Err.Error(), "unexpected value")
}

func TestSingleRunAtATime(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	active, maxActive := 0, 0

	pool := New(func(ctx context.Context, p doubleParams) (doubleResult, error) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		<-release

		mu.Lock()
		active--
		mu.Unlock()
		return doubleResult{Doubled: p.Value * 2}, nil
	}, Options{Logger: setupTestLogger()})

	for i := 0; i < 5; i++ {
		_, err := pool.Enqueue(doubleParams{Value: i})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return pool.IsRunning()
	}, time.Second, 5*time.Millisecond)

	// Four still queued while the first occupies the single worker slot.
	assert.Equal(t, 4, pool.QueueSize())

	current, ok := pool.CurrentRun()
	require.True(t, ok)
	assert.Equal(t, StatusRunning, current.Status)
	assert.Equal(t, 0, current.Params.Value)

	close(release)
	waitForDrained(t, pool)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxActive, "more than one run executed concurrently")
}

func TestHistoryEviction(t *testing.T) {
	pool := newDoublingPool(Options{MaxHistorySize: 3})

	for i := 1; i <= 5; i++ {
		_, err := pool.Enqueue(doubleParams{Value: i})
		require.NoError(t, err)
	}

	waitForDrained(t, pool)

	history := pool.History(0)
	require.Len(t, history, 3)

	// Oldest entries (inputs 1 and 2) evicted first.
	assert.Equal(t, 10, history[0].Result.Doubled)
	assert.Equal(t, 8, history[1].Result.Doubled)
	assert.Equal(t, 6, history[2].Result.Doubled)
}

func TestHistoryLimit(t *testing.T) {
	pool := newDoublingPool(Options{})

	for i := 1; i <= 4; i++ {
		_, err := pool.Enqueue(doubleParams{Value: i})
		require.NoError(t, err)
	}
	waitForDrained(t, pool)

	limited := pool.History(2)
	require.Len(t, limited, 2)
	assert.Equal(t, 8, limited[0].Result.Doubled)
	assert.Equal(t, 6, limited[1].Result.Doubled)

	assert.Len(t, pool.History(0), 4)
	assert.Len(t, pool.History(100), 4)
}

func TestHistorySnapshotIsIndependent(t *testing.T) {
	pool := newDoublingPool(Options{})

	id, err := pool.Enqueue(doubleParams{Value: 1})
	require.NoError(t, err)
	waitForDrained(t, pool)

	history := pool.History(0)
	require.Len(t, history, 1)
	history[0].Result.Doubled = 999
	history[0].Status = StatusFailed

	// Mutating the snapshot must not corrupt pool state.
	run, err := pool.RunByID(id)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Result.Doubled)
	assert.Equal(t, StatusCompleted, run.Status)
}

func TestRunByID(t *testing.T) {
	release := make(chan struct{})
	pool := New(func(ctx context.Context, p doubleParams) (doubleResult, error) {
		<-release
		return doubleResult{Doubled: p.Value * 2}, nil
	}, Options{Logger: setupTestLogger()})

	firstID, err := pool.Enqueue(doubleParams{Value: 1})
	require.NoError(t, err)
	secondID, err := pool.Enqueue(doubleParams{Value: 2})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return pool.IsRunning()
	}, time.Second, 5*time.Millisecond)

	// First run is current, second still pending in the queue.
	current, err := pool.RunByID(firstID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, current.Status)

	pending, err := pool.RunByID(secondID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, pending.Status)

	_, err = pool.RunByID("1700000000000-999999")
	assert.ErrorIs(t, err, ErrRunNotFound)

	close(release)
	waitForDrained(t, pool)

	// Both findable in history after draining.
	done, err := pool.RunByID(firstID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestStats(t *testing.T) {
	pool := New(func(ctx context.Context, p doubleParams) (doubleResult, error) {
		if p.Value < 0 {
			return doubleResult{}, fmt.Errorf("negative input %d", p.Value)
		}
		return doubleResult{Doubled: p.Value * 2}, nil
	}, Options{Logger: setupTestLogger()})

	empty := pool.Stats()
	assert.Zero(t, empty.TotalRuns)
	assert.Zero(t, empty.AverageDurationMs)

	for _, v := range []int{1, -1, 2} {
		_, err := pool.Enqueue(doubleParams{Value: v})
		require.NoError(t, err)
	}
	waitForDrained(t, pool)

	stats := pool.Stats()
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, len(pool.History(0)), stats.TotalRuns)
	assert.Equal(t, 2, stats.CompletedRuns)
	assert.Equal(t, 1, stats.FailedRuns)
	assert.Equal(t, 0, stats.CurrentQueueSize)
	assert.False(t, stats.IsRunning)
	assert.GreaterOrEqual(t, stats.AverageDurationMs, int64(0))
}

func TestClearHistory(t *testing.T) {
	pool := newDoublingPool(Options{})

	_, err := pool.Enqueue(doubleParams{Value: 1})
	require.NoError(t, err)
	waitForDrained(t, pool)
	require.Len(t, pool.History(0), 1)

	pool.ClearHistory()
	assert.Empty(t, pool.History(0))
	assert.Zero(t, pool.Stats().TotalRuns)
}

func TestOnProcessedCallback(t *testing.T) {
	pool := newDoublingPool(Options{})

	var mu sync.Mutex
	var processed []Run[doubleParams, doubleResult]
	pool.SetOnProcessed(func(run Run[doubleParams, doubleResult]) {
		mu.Lock()
		processed = append(processed, run)
		mu.Unlock()
	})

	for _, v := range []int{1, 2} {
		_, err := pool.Enqueue(doubleParams{Value: v})
		require.NoError(t, err)
	}
	waitForDrained(t, pool)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(processed) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, processed[0].Result.Doubled)
	assert.Equal(t, 4, processed[1].Result.Doubled)
	for _, run := range processed {
		assert.True(t, run.Status.Terminal())
	}
}

func TestCleanup(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	pool := New(func(ctx context.Context, p doubleParams) (doubleResult, error) {
		close(started)
		<-release
		return doubleResult{Doubled: p.Value * 2}, nil
	}, Options{Logger: setupTestLogger()})

	inflightID, err := pool.Enqueue(doubleParams{Value: 1})
	require.NoError(t, err)
	queuedID, err := pool.Enqueue(doubleParams{Value: 2})
	require.NoError(t, err)

	<-started

	cleanupDone := make(chan error, 1)
	go func() {
		cleanupDone <- pool.Cleanup(context.Background())
	}()

	// Enqueue is rejected as soon as shutdown begins.
	require.Eventually(t, func() bool {
		_, err := pool.Enqueue(doubleParams{Value: 3})
		return errors.Is(err, ErrShuttingDown)
	}, time.Second, 5*time.Millisecond)

	close(release)
	require.NoError(t, <-cleanupDone)

	assert.Equal(t, 0, pool.QueueSize())
	assert.False(t, pool.IsRunning())

	// The in-flight run finished; the queued one was discarded, not run.
	inflight, err := pool.RunByID(inflightID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, inflight.Status)

	_, err = pool.RunByID(queuedID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	// Idempotent.
	require.NoError(t, pool.Cleanup(context.Background()))

	_, err = pool.Enqueue(doubleParams{Value: 4})
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestCleanupHonorsContext(t *testing.T) {
	release := make(chan struct{})
	pool := New(func(ctx context.Context, p doubleParams) (doubleResult, error) {
		<-release
		return doubleResult{}, nil
	}, Options{Logger: setupTestLogger()})

	_, err := pool.Enqueue(doubleParams{Value: 1})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return pool.IsRunning()
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = pool.Cleanup(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Let the hung run finish so the test goroutine does not leak.
	close(release)
	require.NoError(t, pool.Cleanup(context.Background()))
}
