package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/rbacgate/rbacgate/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SessionPurger deletes expired sessions and reports how many were removed.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeSessionsJob handles TaskPurgeSessions.
type PurgeSessionsJob struct {
	Sessions SessionPurger
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPurgeSessionsJob wires dependencies for the purge handler.
func NewPurgeSessionsJob(sessions SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *PurgeSessionsJob {
	return &PurgeSessionsJob{Sessions: sessions, Logger: logger, Metrics: metrics}
}

// Handle processes purge tasks. A malformed payload is not retried.
func (j *PurgeSessionsJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Sessions == nil {
		return errors.New("purge sessions: handler not configured")
	}
	var payload PurgeSessionsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.metrics().Track(TaskPurgeSessions)
	logger := j.logger().With(slog.String("reason", payload.Reason))

	removed, err := j.Sessions.PurgeExpired(ctx)
	if err != nil {
		logger.Error("purge expired sessions", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics().AddPurgedSessions(removed)
	logger.Info("purged expired sessions", slog.Int64("removed", removed))
	return tracker.End(nil)
}

func (j *PurgeSessionsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPurgeSessions))
	}
	return slog.Default().With(slog.String("job", TaskPurgeSessions))
}

func (j *PurgeSessionsJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
