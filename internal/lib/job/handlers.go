package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// handlePurgeExpiredTask removes expired keys from the store.
func (j *JobService) handlePurgeExpiredTask(ctx context.Context, t *asynq.Task) error {
	var p PurgeExpiredPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal purge payload: %w", err)
	}

	start := time.Now()
	j.logger.Info().
		Str("task", TaskPurgeExpired).
		Str("requested_by", p.RequestedBy).
		Msg("purging expired keys")

	removed, err := j.store.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error().
			Err(err).
			Str("task", TaskPurgeExpired).
			Dur("duration", time.Since(start)).
			Msg("failed to purge expired keys")
		return err
	}

	j.logger.Info().
		Str("task", TaskPurgeExpired).
		Int64("removed", removed).
		Dur("duration", time.Since(start)).
		Msg("purged expired keys")

	return nil
}
