package task

import (
	"context"

	"github.com/moldex-io/moldex/internal/platform/logging"
	"github.com/moldex-io/moldex/pkg/types/common"
)

// Runtime dispatches claimed Tasks to registered Handlers by kind, applying
// the retry/backoff and cooperative-cancellation contract of spec §4.7. A
// wired worker process (cmd/worker) runs a pool of goroutines calling
// RunOnce per queue in a loop; Runtime itself holds no goroutines, keeping
// the dispatch logic independently testable.
type Runtime struct {
	repo              Repository
	handlers          map[string]Handler
	retryDelaySeconds int
	logger            logging.Logger
}

// NewRuntime constructs a Runtime. retryDelaySeconds is the base backoff
// unit (0 selects DefaultRetryDelaySeconds).
func NewRuntime(repo Repository, retryDelaySeconds int, logger logging.Logger) *Runtime {
	if retryDelaySeconds <= 0 {
		retryDelaySeconds = DefaultRetryDelaySeconds
	}
	return &Runtime{repo: repo, handlers: make(map[string]Handler), retryDelaySeconds: retryDelaySeconds, logger: logger}
}

// Register binds kind to h. kind must be an exact task kind (e.g.
// "tasks.ai_predictions.poll_batch"); Runtime does not support wildcard
// handler matching, each kind names exactly one handler.
func (r *Runtime) Register(kind string, h Handler) {
	r.handlers[kind] = h
}

// Enqueue creates and persists a new Task of kind carrying payload.
func (r *Runtime) Enqueue(ctx context.Context, kind string, payload any, maxRetries int) (*Task, error) {
	t, err := New(kind, payload, maxRetries)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Enqueue(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Cancel marks id CANCELLED. A RUNNING task's Handler observes this at its
// next cooperative checkpoint via Repository.IsCancelled.
func (r *Runtime) Cancel(ctx context.Context, id common.ID) error {
	t, err := r.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := t.Cancel(); err != nil {
		return err
	}
	return r.repo.Update(ctx, t)
}

// RunOnce claims and dispatches at most one ready task from queue. It
// returns false with a nil error when queue has no ready work. Handler
// errors are folded into the task's retry/backoff state rather than
// propagated; only infrastructure-level errors (claim/persist failures)
// are returned to the caller.
func (r *Runtime) RunOnce(ctx context.Context, queue Queue) (bool, error) {
	t, err := r.repo.Claim(ctx, queue)
	if err != nil {
		return false, err
	}
	if t == nil {
		return false, nil
	}

	handler, ok := r.handlers[t.Kind]
	if !ok {
		t.Fail("no handler registered for task kind: "+t.Kind, r.retryDelaySeconds)
		return true, r.repo.Update(ctx, t)
	}

	if err := t.MarkRunning(); err != nil {
		return true, r.repo.Update(ctx, t)
	}
	if err := r.repo.Update(ctx, t); err != nil {
		return true, err
	}

	handleErr := handler.Handle(ctx, t)
	if handleErr == nil {
		// A polling handler (e.g. prediction status polling) may have
		// already called t.Reschedule or t.Cancel itself; only force
		// SUCCEEDED if the handler left the task's own state alone.
		if t.State == StateRunning {
			t.MarkSucceeded()
		}
		return true, r.repo.Update(ctx, t)
	}

	retrying := t.Fail(handleErr.Error(), r.retryDelaySeconds)
	if r.logger != nil {
		if retrying {
			r.logger.Warn("task failed, retrying", logging.String("task_id", t.ID.String()), logging.String("kind", t.Kind), logging.Int("attempt", t.Attempts), logging.Err(handleErr))
		} else {
			r.logger.Error("task failed permanently", logging.String("task_id", t.ID.String()), logging.String("kind", t.Kind), logging.Err(handleErr))
		}
	}
	return true, r.repo.Update(ctx, t)
}
