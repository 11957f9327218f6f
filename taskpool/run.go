package taskpool

import (
	"fmt"
	"time"
)

// Status represents the current lifecycle state of a run.
type Status string

// Possible run status values. Transitions are monotonic:
// pending -> running -> completed or failed.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Run records one attempted execution of the pool's work function.
// At a terminal state exactly one of Result and Err is populated.
//
// Accessor methods on Pool return copies of runs, so callers can hold
// and inspect them freely. The copies are shallow with respect to the
// caller-supplied Params and Result values.
type Run[P, R any] struct {
	// ID uniquely identifies the run. IDs are unique even for runs
	// enqueued within the same millisecond.
	ID string

	// Params are the caller-supplied inputs, stored as given.
	Params P

	// Status is the run's current lifecycle state.
	Status Status

	// Result holds the work function's return value once the run
	// completes successfully. Zero otherwise.
	Result R

	// Err holds the failure once the run fails. Nil otherwise.
	Err error

	// QueuedAt is when the run was accepted by Enqueue.
	QueuedAt time.Time

	// StartedAt is when the run was dequeued for execution.
	StartedAt time.Time

	// CompletedAt is when the run reached a terminal state.
	CompletedAt time.Time

	// QueueTime is StartedAt minus QueuedAt.
	QueueTime time.Duration

	// Duration is CompletedAt minus StartedAt.
	Duration time.Duration
}

// newRunID derives a run identifier from the current wall clock and a
// pool-scoped counter. The counter guarantees uniqueness under
// same-millisecond enqueue bursts; the timestamp keeps IDs roughly
// sortable for humans reading logs.
func newRunID(now time.Time, seq uint64) string {
	return fmt.Sprintf("%d-%06d", now.UnixMilli(), seq)
}
