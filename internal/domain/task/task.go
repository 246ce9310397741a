// Package task implements the Task Runtime (C7): a cooperative background
// execution model with named queues, retry-with-backoff, scheduled
// rescheduling (used for prediction polling), and cooperative cancellation
// driven off a Job row's state.
package task

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// DefaultMaxRetries and DefaultRetryDelaySeconds are the runtime's defaults
// per spec §4.7; a Task may override both at enqueue time.
const (
	DefaultMaxRetries        = 3
	DefaultRetryDelaySeconds = 3
)

// State is a Task's lifecycle state, mirroring the generic Job model of
// spec §3.
type State string

const (
	StateQueued    State = "QUEUED"
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

// Task is one unit of background work: a named, queued, retryable job row.
// Payload is opaque JSON; a Handler unmarshals it into whatever shape its
// kind expects, per spec §4.7's "complex objects are passed as identifiers"
// rule (a Task carries ids, never whole aggregates).
type Task struct {
	ID         common.ID
	Kind       string
	Queue      Queue
	Payload    json.RawMessage
	State      State
	Total      int
	Completed  int
	Failed     int
	Attempts   int
	MaxRetries int
	LastError  string
	NotBefore  common.Timestamp
	CreatedAt  common.Timestamp
	UpdatedAt  common.Timestamp
}

// New constructs a QUEUED Task for kind, routing it to the queue its name
// prefix names (see RouteQueue), with payload marshaled to JSON.
func New(kind string, payload any, maxRetries int) (*Task, error) {
	queue, err := RouteQueue(kind)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.InvalidParam("task payload is not serializable: " + err.Error())
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	now := time.Now()
	return &Task{
		ID:         common.NewID(),
		Kind:       kind,
		Queue:      queue,
		Payload:    raw,
		State:      StateQueued,
		MaxRetries: maxRetries,
		NotBefore:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Unmarshal decodes t.Payload into dst.
func (t *Task) Unmarshal(dst any) error {
	if err := json.Unmarshal(t.Payload, dst); err != nil {
		return errors.InvalidParam("task payload does not match the expected shape: " + err.Error())
	}
	return nil
}

// MarkRunning transitions a QUEUED task to RUNNING and bumps its attempt
// counter. A worker calls this immediately before invoking its Handler.
func (t *Task) MarkRunning() error {
	if t.State != StateQueued {
		return errors.InvalidParam("only a QUEUED task can start running")
	}
	t.State = StateRunning
	t.Attempts++
	t.UpdatedAt = time.Now()
	return nil
}

// MarkSucceeded transitions RUNNING -> SUCCEEDED.
func (t *Task) MarkSucceeded() {
	t.State = StateSucceeded
	t.UpdatedAt = time.Now()
}

// Fail records a handler error. If attempts remain, the task goes back to
// QUEUED with NotBefore pushed out by NextRetryDelay (exponential backoff
// off RetryDelaySeconds); otherwise it is terminal FAILED. Returns true if
// the task will be retried.
func (t *Task) Fail(message string, retryDelaySeconds int) bool {
	t.LastError = message
	t.UpdatedAt = time.Now()
	if t.Attempts >= t.MaxRetries {
		t.State = StateFailed
		return false
	}
	t.State = StateQueued
	t.NotBefore = time.Now().Add(t.NextRetryDelay(retryDelaySeconds))
	return true
}

// NextRetryDelay computes the exponential backoff delay for the task's
// current attempt count: base * 2^(attempts-1), per spec §4.7.
func (t *Task) NextRetryDelay(baseSeconds int) time.Duration {
	if baseSeconds <= 0 {
		baseSeconds = DefaultRetryDelaySeconds
	}
	shift := t.Attempts - 1
	if shift < 0 {
		shift = 0
	}
	if shift > 10 {
		shift = 10 // cap to avoid overflowing the duration on a pathological MaxRetries
	}
	return time.Duration(baseSeconds) * time.Second * (1 << shift)
}

// Reschedule requeues t after delaySeconds without counting against
// MaxRetries, used by polling tasks (e.g. prediction status polling) that
// are not retrying a failure but intentionally checking back later.
func (t *Task) Reschedule(delaySeconds int) {
	t.State = StateQueued
	t.NotBefore = time.Now().Add(time.Duration(delaySeconds) * time.Second)
	t.UpdatedAt = time.Now()
}

// Cancel cooperatively cancels t. A RUNNING task is expected to observe
// CANCELLED at its next checkpoint and abort; a QUEUED task is simply never
// dispatched again.
func (t *Task) Cancel() error {
	if t.IsTerminal() {
		return errors.InvalidParam("a terminal task cannot be cancelled")
	}
	t.State = StateCancelled
	t.UpdatedAt = time.Now()
	return nil
}

// RecordProgress updates t's completed/failed counters, used by tasks that
// process many sub-items (CSV chunks, prediction batch items).
func (t *Task) RecordProgress(completed, failed int) {
	t.Completed = completed
	t.Failed = failed
	t.UpdatedAt = time.Now()
}

// IsTerminal reports whether t has reached SUCCEEDED, FAILED, or CANCELLED.
func (t *Task) IsTerminal() bool {
	return t.State == StateSucceeded || t.State == StateFailed || t.State == StateCancelled
}

// IsCustomKind reports whether kind lacks the "tasks." prefix that
// RouteQueue routes on.
func IsCustomKind(kind string) bool {
	return !strings.HasPrefix(kind, "tasks.")
}
