// Package ledger records one row per (job_name, batch_date) attempt in
// collect_log. The history is append-only: retries add rows, and the latest
// attempt per key answers "did today's run succeed".
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"carpulse/models"
)

// ErrJobRunning is returned when another live attempt holds the same
// (job_name, batch_date) key.
var ErrJobRunning = errors.New("job already running for batch date")

// DefaultStaleAfter bounds how long a RUNNING row stays live. An attempt
// older than this is treated as abandoned and resolved to FAILED before a
// retry may start.
const DefaultStaleAfter = 2 * time.Hour

type Store interface {
	CreateCollectLog(ctx context.Context, entry *models.CollectLog) error
	FinishCollectLog(ctx context.Context, id int64, status models.JobStatus, message string, finishedAt time.Time) error
	RunningCollectLogs(ctx context.Context, jobName, batchDate string) ([]models.CollectLog, error)
	LatestCollectLog(ctx context.Context, jobName, batchDate string) (*models.CollectLog, error)
}

type Ledger struct {
	store      Store
	staleAfter time.Duration
	now        func() time.Time
}

func New(store Store, staleAfter time.Duration) *Ledger {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Ledger{store: store, staleAfter: staleAfter, now: time.Now}
}

// Attempt is one live RUNNING row. Exactly one of Succeed/Fail closes it.
type Attempt struct {
	ledger *Ledger
	entry  *models.CollectLog
}

// Start opens a new RUNNING attempt for (jobName, batchDate). Stale RUNNING
// rows are resolved to FAILED first; a fresh one refuses the start. This is
// an optimistic check: concurrent identical-key runs are an operational
// error, not a normal case.
func (l *Ledger) Start(ctx context.Context, jobName, batchDate string) (*Attempt, error) {
	running, err := l.store.RunningCollectLogs(ctx, jobName, batchDate)
	if err != nil {
		return nil, fmt.Errorf("check running attempts: %w", err)
	}

	for _, r := range running {
		if l.now().Sub(r.StartedAt) < l.staleAfter {
			return nil, fmt.Errorf("%s@%s: %w", jobName, batchDate, ErrJobRunning)
		}
		log.Printf("Resolving stale RUNNING attempt %d for %s@%s", r.ID, jobName, batchDate)
		if err := l.store.FinishCollectLog(ctx, r.ID, models.JobStatusFailed, "stale: resolved before retry", l.now()); err != nil {
			return nil, fmt.Errorf("resolve stale attempt %d: %w", r.ID, err)
		}
	}

	entry := &models.CollectLog{
		JobName:   jobName,
		BatchDate: batchDate,
		Status:    models.JobStatusRunning,
		StartedAt: l.now(),
	}
	if err := l.store.CreateCollectLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	return &Attempt{ledger: l, entry: entry}, nil
}

func (a *Attempt) Succeed(ctx context.Context, message string) error {
	return a.finish(ctx, models.JobStatusSuccess, message)
}

func (a *Attempt) Fail(ctx context.Context, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return a.finish(ctx, models.JobStatusFailed, msg)
}

func (a *Attempt) finish(ctx context.Context, status models.JobStatus, message string) error {
	if a.entry.FinishedAt != nil {
		return fmt.Errorf("attempt %d already finished", a.entry.ID)
	}
	now := a.ledger.now()
	if err := a.ledger.store.FinishCollectLog(ctx, a.entry.ID, status, message, now); err != nil {
		return fmt.Errorf("finish attempt %d: %w", a.entry.ID, err)
	}
	a.entry.Status = status
	a.entry.Message = message
	a.entry.FinishedAt = &now
	return nil
}

// LatestStatus reports the most recent attempt for a key, nil when the job
// never ran for that date.
func (l *Ledger) LatestStatus(ctx context.Context, jobName, batchDate string) (*models.CollectLog, error) {
	return l.store.LatestCollectLog(ctx, jobName, batchDate)
}
