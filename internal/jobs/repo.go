package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Repo struct {
	DB *gorm.DB
}

// EnqueuePurge schedules an account purge. A purge already pending or
// running for the same user is returned instead of a new one.
func (r *Repo) EnqueuePurge(ctx context.Context, userID string) (*Job, error) {
	var job Job
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND type = ? AND status IN ?",
			userID, TypeAccountPurge, []string{StatusPending, StatusRunning}).
			Limit(1).Find(&job)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		now := time.Now()
		payload, err := json.Marshal(purgePayload{UserID: userID, RequestedAt: now.Unix()})
		if err != nil {
			return err
		}
		job = Job{
			UserID:      userID,
			Type:        TypeAccountPurge,
			Payload:     payload,
			RunAt:       now,
			Status:      StatusPending,
			MaxAttempts: 8,
		}
		return tx.Create(&job).Error
	})
	if err != nil {
		return nil, errors.Wrapf(err, "enqueue purge of %s", userID)
	}
	return &job, nil
}

// Claim one due job atomically using SKIP LOCKED.
// Works on Postgres.
func (r *Repo) Claim(ctx context.Context, workerID string) (*Job, error) {
	var job Job
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// requeue jobs whose worker died mid-run
		if err := tx.Exec(`
update jobs
set status='PENDING', locked_by=null, locked_at=null, updated_at=now()
where status='RUNNING' and locked_at is not null and locked_at < now() - interval '5 minutes'
`).Error; err != nil {
			return err
		}

		// FOR UPDATE SKIP LOCKED ensures no double-claim
		q := tx.Raw(`
with cte as (
  select id
  from jobs
  where status='PENDING' and run_at <= now()
  order by run_at asc
  for update skip locked
  limit 1
)
update jobs
set status='RUNNING', locked_by=?, locked_at=now(), updated_at=now()
where id in (select id from cte)
returning *;
`, workerID)

		return q.Scan(&job).Error
	})
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *Repo) MarkDone(ctx context.Context, id uint64) error {
	return r.update(ctx, id, map[string]any{"status": StatusDone})
}

func (r *Repo) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	return r.update(ctx, id, map[string]any{"status": StatusFailed, "last_error": errMsg})
}

func (r *Repo) RetryLater(ctx context.Context, id uint64, attempts int, runAt time.Time, errMsg string) error {
	return r.update(ctx, id, map[string]any{
		"status":     StatusPending,
		"attempts":   attempts,
		"run_at":     runAt,
		"locked_by":  nil,
		"locked_at":  nil,
		"last_error": errMsg,
	})
}

func (r *Repo) update(ctx context.Context, id uint64, cols map[string]any) error {
	cols["updated_at"] = time.Now()
	return r.DB.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(cols).Error
}
