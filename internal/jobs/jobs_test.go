package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flashdeck/internal/dbtest"
)

const barry = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

type fakeQueue struct {
	mu      sync.Mutex
	pending []*Job
	done    []uint64
	failed  map[uint64]string
	retried map[uint64]time.Time
}

func newFakeQueue(jobs ...*Job) *fakeQueue {
	return &fakeQueue{pending: jobs, failed: map[uint64]string{}, retried: map[uint64]time.Time{}}
}

func (q *fakeQueue) Claim(context.Context, string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	j := q.pending[0]
	q.pending = q.pending[1:]
	return j, nil
}

func (q *fakeQueue) MarkDone(_ context.Context, id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done = append(q.done, id)
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id uint64, msg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed[id] = msg
	return nil
}

func (q *fakeQueue) RetryLater(_ context.Context, id uint64, _ int, runAt time.Time, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retried[id] = runAt
	return nil
}

type fakePurger struct {
	mu     sync.Mutex
	purged []string
	err    error
}

func (p *fakePurger) Purge(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.purged = append(p.purged, userID)
	return nil
}

func purgeJob(id uint64, userID string, attempts int) *Job {
	payload, _ := json.Marshal(purgePayload{UserID: userID})
	return &Job{ID: id, UserID: userID, Type: TypeAccountPurge, Payload: payload, Attempts: attempts, MaxAttempts: 3}
}

func newWorker(q Queue, p Purger) *Worker {
	return &Worker{ID: "test", Queue: q, Purger: p, Log: zap.NewNop(), Interval: time.Millisecond}
}

func TestWorkerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("purges and marks done", func(t *testing.T) {
		q, p := newFakeQueue(), &fakePurger{}
		newWorker(q, p).handle(ctx, purgeJob(1, barry, 0))
		assert.Equal(t, []string{barry}, p.purged)
		assert.Equal(t, []uint64{1}, q.done)
	})

	t.Run("unknown type fails", func(t *testing.T) {
		q := newFakeQueue()
		newWorker(q, &fakePurger{}).handle(ctx, &Job{ID: 2, Type: "REMINDER_DISPATCH"})
		assert.Equal(t, "unknown job type", q.failed[2])
	})

	t.Run("bad payload fails", func(t *testing.T) {
		q := newFakeQueue()
		newWorker(q, &fakePurger{}).handle(ctx, &Job{ID: 3, Type: TypeAccountPurge, Payload: []byte("{")})
		assert.Equal(t, "bad payload", q.failed[3])
	})

	t.Run("mismatched user fails", func(t *testing.T) {
		q := newFakeQueue()
		j := purgeJob(4, barry, 0)
		j.UserID = "someone-else"
		newWorker(q, &fakePurger{}).handle(ctx, j)
		assert.Contains(t, q.failed, uint64(4))
	})

	t.Run("purge error retries with backoff", func(t *testing.T) {
		q := newFakeQueue()
		before := time.Now()
		newWorker(q, &fakePurger{err: errors.New("auth api down")}).handle(ctx, purgeJob(5, barry, 0))
		require.Contains(t, q.retried, uint64(5))
		assert.WithinDuration(t, before.Add(2*time.Second), q.retried[5], time.Second)
		assert.Empty(t, q.done)
	})

	t.Run("last attempt fails for good", func(t *testing.T) {
		q := newFakeQueue()
		newWorker(q, &fakePurger{err: errors.New("auth api down")}).handle(ctx, purgeJob(6, barry, 2))
		assert.Equal(t, "auth api down", q.failed[6])
		assert.NotContains(t, q.retried, uint64(6))
	})
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 8*time.Second, backoff(3))
	assert.Equal(t, 600*time.Second, backoff(20))
}

func TestWorkerRun(t *testing.T) {
	q, p := newFakeQueue(purgeJob(1, barry, 0), purgeJob(2, barry, 0)), &fakePurger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newWorker(q, p).Run(ctx) }()

	assert.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.done) == 2
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRepoEnqueuePurge(t *testing.T) {
	ctx := context.Background()
	r := &Repo{DB: dbtest.Open(t, &Job{})}

	first, err := r.EnqueuePurge(ctx, barry)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, first.Status)
	assert.Equal(t, TypeAccountPurge, first.Type)

	var p purgePayload
	require.NoError(t, json.Unmarshal(first.Payload, &p))
	assert.Equal(t, barry, p.UserID)

	again, err := r.EnqueuePurge(ctx, barry)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, int64(1), dbtest.Count(t, r.DB, &Job{}))

	runAt := time.Now().Add(time.Minute)
	require.NoError(t, r.RetryLater(ctx, first.ID, 1, runAt, "auth api down"))
	var stored Job
	require.NoError(t, r.DB.First(&stored, first.ID).Error)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "auth api down", *stored.LastError)

	require.NoError(t, r.MarkDone(ctx, first.ID))
	next, err := r.EnqueuePurge(ctx, barry)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID, "finished purges do not block a new one")

	require.NoError(t, r.MarkFailed(ctx, next.ID, "gave up"))
	require.NoError(t, r.DB.First(&stored, next.ID).Error)
	assert.Equal(t, StatusFailed, stored.Status)
}
