// Package job provides background job processing using Asynq.
//
// Asynq is a Redis-backed job queue:
//   - Tasks are enqueued (producer) with asynq.Client.
//   - A server runs workers that process those tasks (consumer) with asynq.Server.
//   - A scheduler enqueues periodic tasks such as the expired key purge.
package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/deppfellow/shortlink-edge/internal/config"
	"github.com/deppfellow/shortlink-edge/internal/kv"
)

// JobService holds the Asynq client (enqueue), server (worker execution)
// and scheduler (periodic tasks).
type JobService struct {
	// Client is used to enqueue tasks into Redis.
	Client *asynq.Client

	server    *asynq.Server
	scheduler *asynq.Scheduler
	schedule  string

	store  kv.Store
	logger *zerolog.Logger
}

// NewJobService creates a JobService backed by the Redis in cfg. Tasks
// operate on store.
func NewJobService(logger *zerolog.Logger, cfg *config.Config, store kv.Store) *JobService {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Jobs.Concurrency,
		Queues: map[string]int{
			QueueDefault:     3,
			QueueMaintenance: 1,
		},
	})

	return &JobService{
		Client:    asynq.NewClient(redisOpt),
		server:    server,
		scheduler: asynq.NewScheduler(redisOpt, nil),
		schedule:  cfg.Jobs.PurgeSchedule,
		store:     store,
		logger:    logger,
	}
}

// Start registers task handlers, starts the workers and schedules the
// periodic purge. It does not block.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPurgeExpired, j.handlePurgeExpiredTask)

	j.logger.Info().Msg("starting background job server")

	if err := j.server.Start(mux); err != nil {
		return fmt.Errorf("starting job server: %w", err)
	}

	task, err := NewPurgeExpiredTask("scheduler")
	if err != nil {
		return err
	}
	entryID, err := j.scheduler.Register(j.schedule, task)
	if err != nil {
		return fmt.Errorf("scheduling %s with %q: %w", TaskPurgeExpired, j.schedule, err)
	}
	if err := j.scheduler.Start(); err != nil {
		return fmt.Errorf("starting job scheduler: %w", err)
	}

	j.logger.Info().
		Str("task", TaskPurgeExpired).
		Str("schedule", j.schedule).
		Str("entry_id", entryID).
		Msg("periodic task scheduled")

	return nil
}

// EnqueuePurge asks a worker to purge expired keys now.
func (j *JobService) EnqueuePurge(ctx context.Context, requestedBy string) (string, error) {
	task, err := NewPurgeExpiredTask(requestedBy)
	if err != nil {
		return "", err
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueueing %s: %w", TaskPurgeExpired, err)
	}
	return info.ID, nil
}

// Stop shuts down the scheduler and workers and closes the client.
func (j *JobService) Stop() {
	j.logger.Info().Msg("stopping background job server")
	j.scheduler.Shutdown()
	j.server.Shutdown()
	j.Client.Close()
}
