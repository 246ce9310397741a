package task_test

import (
	"context"
	"sync"
	"testing"

	"github.com/moldex-io/moldex/internal/domain/task"
	"github.com/moldex-io/moldex/internal/testutil"
	"github.com/moldex-io/moldex/pkg/errors"
	"github.com/moldex-io/moldex/pkg/types/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTaskRepo struct {
	mu        sync.Mutex
	tasks     map[common.ID]*task.Task
	cancelled map[common.ID]bool
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[common.ID]*task.Task), cancelled: make(map[common.ID]bool)}
}

func (r *memTaskRepo) Enqueue(ctx context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	return nil
}

func (r *memTaskRepo) Claim(ctx context.Context, queue task.Queue) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.Queue == queue && t.State == task.StateQueued {
			return t, nil
		}
	}
	return nil, nil
}

func (r *memTaskRepo) Update(ctx context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.ID] = t
	return nil
}

func (r *memTaskRepo) Get(ctx context.Context, id common.ID) (*task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, errors.New(errors.CodeTaskNotFound, "task not found")
	}
	return t, nil
}

func (r *memTaskRepo) IsCancelled(ctx context.Context, id common.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled[id], nil
}

func TestRunOnceDispatchesToRegisteredHandler(t *testing.T) {
	repo := newMemTaskRepo()
	rt := task.NewRuntime(repo, 1, testutil.NewMockLogger())
	var handled bool
	rt.Register("tasks.csv_processing.run_ingestion", task.HandlerFunc(func(ctx context.Context, tk *task.Task) error {
		handled = true
		return nil
	}))

	_, err := rt.Enqueue(context.Background(), "tasks.csv_processing.run_ingestion", map[string]string{"job_id": "abc"}, 0)
	require.NoError(t, err)

	ran, err := rt.RunOnce(context.Background(), task.QueueCSVProcessing)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, handled)
}

func TestRunOnceRetriesThenFailsPermanently(t *testing.T) {
	repo := newMemTaskRepo()
	rt := task.NewRuntime(repo, 1, testutil.NewMockLogger())
	var attempts int
	rt.Register("tasks.default.flaky", task.HandlerFunc(func(ctx context.Context, tk *task.Task) error {
		attempts++
		return errors.New(errors.CodeUnexpectedError, "boom")
	}))

	created, err := rt.Enqueue(context.Background(), "tasks.default.flaky", nil, 2)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ran, err := rt.RunOnce(context.Background(), task.QueueDefault)
		require.NoError(t, err)
		require.True(t, ran)
	}

	final, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StateFailed, final.State)
	assert.Equal(t, 2, attempts)
}

func TestRunOnceNoReadyTask(t *testing.T) {
	repo := newMemTaskRepo()
	rt := task.NewRuntime(repo, 1, testutil.NewMockLogger())
	ran, err := rt.RunOnce(context.Background(), task.QueueDefault)
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestCancelMarksCancelled(t *testing.T) {
	repo := newMemTaskRepo()
	rt := task.NewRuntime(repo, 1, testutil.NewMockLogger())
	created, err := rt.Enqueue(context.Background(), "tasks.default.noop", nil, 0)
	require.NoError(t, err)

	require.NoError(t, rt.Cancel(context.Background(), created.ID))

	final, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StateCancelled, final.State)
}

func TestRouteQueueRejectsMalformedKind(t *testing.T) {
	_, err := task.RouteQueue("not.a.task.kind")
	assert.Error(t, err)
}

func TestRouteQueueDefaultsUnknownSegment(t *testing.T) {
	q, err := task.RouteQueue("tasks.something_unfamiliar.do_work")
	require.NoError(t, err)
	assert.Equal(t, task.QueueDefault, q)
}

func TestRescheduleHandlerLeavesQueuedState(t *testing.T) {
	repo := newMemTaskRepo()
	rt := task.NewRuntime(repo, 1, testutil.NewMockLogger())
	rt.Register("tasks.ai_predictions.poll_batch", task.HandlerFunc(func(ctx context.Context, tk *task.Task) error {
		tk.Reschedule(30)
		return nil
	}))

	created, err := rt.Enqueue(context.Background(), "tasks.ai_predictions.poll_batch", nil, 0)
	require.NoError(t, err)

	ran, err := rt.RunOnce(context.Background(), task.QueueAIPredictions)
	require.NoError(t, err)
	assert.True(t, ran)

	final, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StateQueued, final.State)
}
