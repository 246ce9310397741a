package task

import (
	"context"

	"github.com/moldex-io/moldex/pkg/types/common"
)

// Repository is the persistence boundary for Task rows.
type Repository interface {
	Enqueue(ctx context.Context, t *Task) error

	// Claim atomically leases the oldest ready (QUEUED, NotBefore <= now)
	// task from queue for exclusive processing by one worker, or returns nil
	// if none is ready. A wired implementation uses a row-locking SELECT ...
	// FOR UPDATE SKIP LOCKED so concurrent workers never double-claim.
	Claim(ctx context.Context, queue Queue) (*Task, error)

	Update(ctx context.Context, t *Task) error
	Get(ctx context.Context, id common.ID) (*Task, error)

	// IsCancelled reports whether id's Task (or, for tasks that shadow a
	// longer-running Job such as an ingestion run, that Job) has moved to
	// CANCELLED, so a RUNNING handler can check a cooperative cancellation
	// checkpoint mid-flight.
	IsCancelled(ctx context.Context, id common.ID) (bool, error)
}

// Handler processes one dispatched Task. Handlers MUST be idempotent: the
// at-least-once delivery model means a Handler may see the same Task run
// more than once after a worker crash mid-processing, per spec §4.7.
type Handler interface {
	Handle(ctx context.Context, t *Task) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, t *Task) error

func (f HandlerFunc) Handle(ctx context.Context, t *Task) error { return f(ctx, t) }
