package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moldex-io/moldex/internal/domain/task"
	"github.com/moldex-io/moldex/internal/platform/logging"
	moldexerrors "github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
)

type taskRepo struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewTaskRepo constructs a task.Repository backed by pool. Claim uses
// SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers draining the same
// queue never double-process a row, per spec §4.7's parallel-worker model.
func NewTaskRepo(pool *pgxpool.Pool, logger logging.Logger) task.Repository {
	return &taskRepo{pool: pool, logger: logger}
}

func (r *taskRepo) Enqueue(ctx context.Context, t *task.Task) error {
	const q = `
		INSERT INTO tasks (id, kind, queue, payload, state, total, completed, failed, attempts,
			max_retries, last_error, not_before, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.pool.Exec(ctx, q, t.ID, t.Kind, t.Queue, t.Payload, t.State, t.Total, t.Completed,
		t.Failed, t.Attempts, t.MaxRetries, t.LastError, t.NotBefore, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "enqueue task")
	}
	return nil
}

func (r *taskRepo) Claim(ctx context.Context, queue task.Queue) (*task.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, wrapDBErr(err, "begin claim transaction")
	}
	defer tx.Rollback(ctx)

	const selectQ = `
		SELECT id, kind, queue, payload, state, total, completed, failed, attempts, max_retries,
			last_error, not_before, created_at, updated_at
		FROM tasks
		WHERE queue = $1 AND state = $2 AND not_before <= $3
		ORDER BY not_before ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1`
	row := tx.QueryRow(ctx, selectQ, queue, task.StateQueued, time.Now())
	t, err := scanTask(row)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}

	const claimQ = `UPDATE tasks SET state = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.Exec(ctx, claimQ, t.ID, task.StateRunning, time.Now()); err != nil {
		return nil, wrapDBErr(err, "mark task claimed")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, wrapDBErr(err, "commit claim transaction")
	}
	t.State = task.StateRunning
	return t, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var t task.Task
	err := row.Scan(&t.ID, &t.Kind, &t.Queue, &t.Payload, &t.State, &t.Total, &t.Completed, &t.Failed,
		&t.Attempts, &t.MaxRetries, &t.LastError, &t.NotBefore, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr(err, "scan task")
	}
	return &t, nil
}

func (r *taskRepo) Update(ctx context.Context, t *task.Task) error {
	const q = `UPDATE tasks SET kind = $2, queue = $3, state = $4, total = $5, completed = $6,
		failed = $7, attempts = $8, max_retries = $9, last_error = $10, not_before = $11, updated_at = $12
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, t.ID, t.Kind, t.Queue, t.State, t.Total, t.Completed, t.Failed,
		t.Attempts, t.MaxRetries, t.LastError, t.NotBefore, t.UpdatedAt)
	if err != nil {
		return wrapDBErr(err, "update task")
	}
	if tag.RowsAffected() == 0 {
		return moldexerrors.New(moldexerrors.CodeTaskNotFound, "task not found").WithDetail("task_id", t.ID.String())
	}
	return nil
}

func (r *taskRepo) Get(ctx context.Context, id common.ID) (*task.Task, error) {
	const q = `SELECT id, kind, queue, payload, state, total, completed, failed, attempts, max_retries,
		last_error, not_before, created_at, updated_at FROM tasks WHERE id = $1`
	t, err := scanTask(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, moldexerrors.New(moldexerrors.CodeTaskNotFound, "task not found").WithDetail("task_id", id.String())
	}
	return t, nil
}

func (r *taskRepo) IsCancelled(ctx context.Context, id common.ID) (bool, error) {
	var state task.State
	err := r.pool.QueryRow(ctx, `SELECT state FROM tasks WHERE id = $1`, id).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapDBErr(err, "check task cancellation")
	}
	return state == task.StateCancelled, nil
}
