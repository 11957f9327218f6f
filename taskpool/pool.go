package taskpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Common errors returned by the pool.
var (
	// ErrShuttingDown is returned by Enqueue once Cleanup has been
	// called. The condition is permanent for a given pool instance.
	ErrShuttingDown = errors.New("task pool is shutting down")

	// ErrRunNotFound is returned by RunByID when no run with the given
	// ID exists in the current slot, the queue, or history.
	ErrRunNotFound = errors.New("run not found")
)

// DefaultMaxHistorySize bounds the history buffer when Options does not
// specify a size.
const DefaultMaxHistorySize = 100

// drainPollInterval is how often Cleanup re-checks whether the in-flight
// run has finished.
const drainPollInterval = 10 * time.Millisecond

// WorkFunc is the unit of work a pool executes. It receives the params
// supplied to Enqueue and returns a result or an error. The pool applies
// no timeout: a hung work function blocks the pool indefinitely.
type WorkFunc[P, R any] func(ctx context.Context, params P) (R, error)

// Options configures a Pool.
type Options struct {
	// MaxHistorySize bounds how many terminal runs are retained.
	// Zero or negative values fall back to DefaultMaxHistorySize.
	MaxHistorySize int

	// Logger receives structured lifecycle events. Defaults to
	// slog.Default when nil.
	Logger *slog.Logger
}

// Pool executes units of work strictly one at a time in FIFO submission
// order. All state is process-local; nothing is persisted.
type Pool[P, R any] struct {
	work       WorkFunc[P, R]
	maxHistory int
	logger     *slog.Logger

	mu           sync.Mutex
	queue        []*Run[P, R]
	current      *Run[P, R]
	history      []*Run[P, R]
	executing    bool
	shuttingDown bool
	seq          uint64
	onProcessed  func(Run[P, R])
}

// New creates a pool bound to the given work function. The function is
// supplied once and reused for every run.
func New[P, R any](work WorkFunc[P, R], opts Options) *Pool[P, R] {
	maxHistory := opts.MaxHistorySize
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistorySize
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool[P, R]{
		work:       work,
		maxHistory: maxHistory,
		logger:     logger.With("component", "taskpool"),
	}
}

// Enqueue appends a new pending run to the tail of the queue and returns
// its ID immediately, without waiting for execution to start. Dispatch is
// triggered asynchronously. Returns ErrShuttingDown once Cleanup has been
// initiated.
func (p *Pool[P, R]) Enqueue(params P) (string, error) {
	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return "", ErrShuttingDown
	}

	now := time.Now()
	p.seq++
	run := &Run[P, R]{
		ID:       newRunID(now, p.seq),
		Params:   params,
		Status:   StatusPending,
		QueuedAt: now,
	}
	p.queue = append(p.queue, run)
	depth := len(p.queue)
	p.mu.Unlock()

	p.logger.Debug("run enqueued",
		"run_id", run.ID,
		"queue_len", depth)

	go p.dispatch()

	return run.ID, nil
}

// dispatch claims the head of the queue and executes it. It is a no-op
// when a run is already executing, shutdown has been initiated, or the
// queue is empty, which makes it safe to trigger from multiple call
// sites concurrently.
func (p *Pool[P, R]) dispatch() {
	p.mu.Lock()
	if p.executing || p.shuttingDown || len(p.queue) == 0 {
		p.mu.Unlock()
		return
	}

	p.executing = true
	run := p.queue[0]
	p.queue = p.queue[1:]
	run.Status = StatusRunning
	run.StartedAt = time.Now()
	run.QueueTime = run.StartedAt.Sub(run.QueuedAt)
	p.current = run
	p.mu.Unlock()

	p.logger.Debug("run started",
		"run_id", run.ID,
		"queue_time_ms", run.QueueTime.Milliseconds())

	result, err := p.execute(run.Params)

	p.mu.Lock()
	run.CompletedAt = time.Now()
	run.Duration = run.CompletedAt.Sub(run.StartedAt)
	if err != nil {
		run.Status = StatusFailed
		run.Err = err
	} else {
		run.Status = StatusCompleted
		run.Result = result
	}

	p.history = append(p.history, run)
	if len(p.history) > p.maxHistory {
		p.history = p.history[len(p.history)-p.maxHistory:]
	}

	p.current = nil
	p.executing = false
	callback := p.onProcessed
	finished := *run
	pending := len(p.queue)
	shuttingDown := p.shuttingDown
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("run failed",
			"run_id", run.ID,
			"duration_ms", finished.Duration.Milliseconds(),
			"error", err)
	} else {
		p.logger.Debug("run completed",
			"run_id", run.ID,
			"duration_ms", finished.Duration.Milliseconds())
	}

	if callback != nil {
		callback(finished)
	}

	// Re-trigger through a fresh goroutine so draining a long queue
	// never grows the call stack.
	if !shuttingDown && pending > 0 {
		go p.dispatch()
	}
}

// execute invokes the work function, converting a panic into an error so
// one misbehaving task cannot take down the pool. A task failure is
// contained to its run; the pool keeps processing.
func (p *Pool[P, R]) execute(params P) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return p.work(context.Background(), params)
}

// QueueSize returns the count of pending runs still queued, excluding a
// currently executing run.
func (p *Pool[P, R]) QueueSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// IsRunning reports whether a run is actively executing.
func (p *Pool[P, R]) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.executing
}

// CurrentRun returns a copy of the actively executing run, if any.
func (p *Pool[P, R]) CurrentRun() (Run[P, R], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		var zero Run[P, R]
		return zero, false
	}
	return *p.current, true
}

// RunByID returns a copy of the run with the given ID, searching the
// current run first, then the pending queue, then history. Returns
// ErrRunNotFound when no run matches.
func (p *Pool[P, R]) RunByID(id string) (Run[P, R], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil && p.current.ID == id {
		return *p.current, nil
	}
	for _, run := range p.queue {
		if run.ID == id {
			return *run, nil
		}
	}
	for _, run := range p.history {
		if run.ID == id {
			return *run, nil
		}
	}

	var zero Run[P, R]
	return zero, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// History returns copies of terminal runs, most recent first. A positive
// limit truncates the snapshot to that many entries; zero or negative
// returns everything retained.
func (p *Pool[P, R]) History(limit int) []Run[P, R] {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.history)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Run[P, R], 0, n)
	for i := len(p.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *p.history[i])
	}
	return out
}

// ClearHistory empties the history buffer. The queue and any executing
// run are unaffected.
func (p *Pool[P, R]) ClearHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = nil
}

// Stats summarizes the pool's terminal runs and current load.
type Stats struct {
	// TotalRuns counts runs retained in history (terminal runs only).
	TotalRuns int

	// CompletedRuns counts history entries that completed successfully.
	CompletedRuns int

	// FailedRuns counts history entries that failed.
	FailedRuns int

	// CurrentQueueSize is the number of pending runs still queued.
	CurrentQueueSize int

	// IsRunning reports whether a run is actively executing.
	IsRunning bool

	// AverageDurationMs is the mean execution duration across history,
	// rounded to the nearest millisecond. Zero when history is empty.
	AverageDurationMs int64
}

// Stats computes aggregate statistics from the history buffer.
func (p *Pool[P, R]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := Stats{
		TotalRuns:        len(p.history),
		CurrentQueueSize: len(p.queue),
		IsRunning:        p.executing,
	}

	var totalNanos int64
	for _, run := range p.history {
		switch run.Status {
		case StatusCompleted:
			stats.CompletedRuns++
		case StatusFailed:
			stats.FailedRuns++
		}
		totalNanos += run.Duration.Nanoseconds()
	}

	if len(p.history) > 0 {
		meanMillis := float64(totalNanos) / float64(len(p.history)) / float64(time.Millisecond)
		stats.AverageDurationMs = int64(math.Round(meanMillis))
	}

	return stats
}

// SetOnProcessed replaces the processed-callback slot. The callback is
// invoked synchronously with a copy of each run that reaches a terminal
// state after this call, following history insertion. Pass nil to remove
// the callback.
func (p *Pool[P, R]) SetOnProcessed(fn func(Run[P, R])) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onProcessed = fn
}

// Cleanup initiates shutdown and blocks until the pool has drained. The
// shutdown flag is permanent: every subsequent Enqueue fails with
// ErrShuttingDown. Only the in-flight run is allowed to finish; runs
// still queued are discarded, not executed. Safe to call more than once.
func (p *Pool[P, R]) Cleanup(ctx context.Context) error {
	p.mu.Lock()
	if !p.shuttingDown {
		p.shuttingDown = true
		p.logger.Info("task pool shutting down",
			"queued", len(p.queue),
			"running", p.executing)
	}
	p.mu.Unlock()

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		p.mu.Lock()
		if !p.executing {
			discarded := len(p.queue)
			p.queue = nil
			p.mu.Unlock()
			if discarded > 0 {
				p.logger.Info("discarded queued runs on shutdown",
					"count", discarded)
			}
			return nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
