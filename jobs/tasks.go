package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurgeSessions removes sessions whose lifetime has elapsed.
	TaskPurgeSessions = "sessions:purge"
)

// PurgeSessionsPayload describes a purge run. Reason is informational and
// ends up in the job log line.
type PurgeSessionsPayload struct {
	Reason string `json:"reason"`
}

// NewPurgeSessionsTask constructs an Asynq task.
func NewPurgeSessionsTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "scheduled"
	}
	data, err := json.Marshal(PurgeSessionsPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurgeSessions, data), nil
}
