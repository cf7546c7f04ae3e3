package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	QueueDefault     = "default"
	QueueMaintenance = "maintenance"

	// TaskPurgeExpired removes expired keys from stores that do not expire
	// them natively.
	TaskPurgeExpired = "kv:purge_expired"
)

// PurgeExpiredPayload is the JSON payload of TaskPurgeExpired.
type PurgeExpiredPayload struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewPurgeExpiredTask builds a purge task. Purges are idempotent, so a
// failed run is retried a few times and then left to the next schedule.
func NewPurgeExpiredTask(requestedBy string) (*asynq.Task, error) {
	payload, err := json.Marshal(PurgeExpiredPayload{
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskPurgeExpired,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue(QueueMaintenance),
		asynq.Timeout(5*time.Minute),
	), nil
}
