package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/procureflow/procureflow/internal/jobs"
)

// DefaultIdempotencyRetention keeps idempotency keys for a week.
const DefaultIdempotencyRetention = 7 * 24 * time.Hour

// SessionPruner deletes expired session rows.
type SessionPruner interface {
	CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// IdempotencyPruner deletes idempotency keys older than a retention window.
type IdempotencyPruner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// CleanupJob prunes login sessions and idempotency keys.
type CleanupJob struct {
	sessions    SessionPruner
	idempotency IdempotencyPruner
	logger      *slog.Logger
	metrics     *jobmetrics.Metrics
	now         func() time.Time
}

// NewCleanupJob constructs the job handler.
func NewCleanupJob(sessions SessionPruner, idempotency IdempotencyPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{sessions: sessions, idempotency: idempotency, logger: logger, metrics: metrics, now: time.Now}
}

// Handle processes TaskSessionsCleanup tasks.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskSessionsCleanup)
	payload := SessionsCleanupPayload{IdempotencyRetention: DefaultIdempotencyRetention}
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return tracker.End(fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry))
		}
	}
	if payload.IdempotencyRetention <= 0 {
		payload.IdempotencyRetention = DefaultIdempotencyRetention
	}

	var sessions, keys int64
	if j.sessions != nil {
		n, err := j.sessions.CleanupExpiredSessions(ctx, j.now().UTC())
		if err != nil {
			return tracker.End(fmt.Errorf("prune sessions: %w", err))
		}
		sessions = n
		j.metrics.AddPruned("sessions", n)
	}
	if j.idempotency != nil {
		n, err := j.idempotency.Cleanup(ctx, payload.IdempotencyRetention)
		if err != nil {
			return tracker.End(fmt.Errorf("prune idempotency keys: %w", err))
		}
		keys = n
		j.metrics.AddPruned("idempotency_keys", n)
	}
	j.logger.Info("cleanup finished", slog.Int64("sessions", sessions), slog.Int64("idempotency_keys", keys))
	return tracker.End(nil)
}
