package jobs

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"go.uber.org/zap"
)

// Queue is the subset of *Repo the worker drives.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Job, error)
	MarkDone(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error
}

type Purger interface {
	Purge(ctx context.Context, userID string) error
}

type Worker struct {
	ID     string
	Queue  Queue
	Purger Purger
	Log    *zap.Logger
	// Interval between claim attempts; zero means 800ms.
	Interval time.Duration
}

func (w *Worker) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = 800 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			job, err := w.Queue.Claim(ctx, w.ID)
			if err != nil {
				if ctx.Err() == nil {
					w.Log.Warn("claim failed", zap.String("worker", w.ID), zap.Error(err))
				}
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case TypeAccountPurge:
		w.handlePurge(ctx, job)
	default:
		w.fail(ctx, job, "unknown job type")
	}
}

func (w *Worker) handlePurge(ctx context.Context, job *Job) {
	var p purgePayload
	if err := json.Unmarshal(job.Payload, &p); err != nil || p.UserID == "" {
		w.fail(ctx, job, "bad payload")
		return
	}
	if p.UserID != job.UserID {
		w.fail(ctx, job, "payload user does not match job user")
		return
	}

	if err := w.Purger.Purge(ctx, p.UserID); err != nil {
		w.retry(ctx, job, err.Error())
		return
	}

	w.Log.Info("account purged", zap.Uint64("job_id", job.ID), zap.String("user_id", p.UserID))
	if err := w.Queue.MarkDone(ctx, job.ID); err != nil {
		w.Log.Error("mark done failed", zap.Uint64("job_id", job.ID), zap.Error(err))
	}
}

func (w *Worker) fail(ctx context.Context, job *Job, errMsg string) {
	w.Log.Error("job failed", zap.Uint64("job_id", job.ID), zap.String("type", job.Type), zap.String("error", errMsg))
	if err := w.Queue.MarkFailed(ctx, job.ID, errMsg); err != nil {
		w.Log.Error("mark failed failed", zap.Uint64("job_id", job.ID), zap.Error(err))
	}
}

func (w *Worker) retry(ctx context.Context, job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		w.fail(ctx, job, errMsg)
		return
	}

	next := time.Now().Add(backoff(attempts))
	w.Log.Warn("job will retry", zap.Uint64("job_id", job.ID), zap.Int("attempt", attempts), zap.Time("run_at", next), zap.String("error", errMsg))
	if err := w.Queue.RetryLater(ctx, job.ID, attempts, next, errMsg); err != nil {
		w.Log.Error("reschedule failed", zap.Uint64("job_id", job.ID), zap.Error(err))
	}
}

// backoff is 2^attempts seconds, capped at ten minutes.
func backoff(attempts int) time.Duration {
	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	return time.Duration(sec) * time.Second
}
