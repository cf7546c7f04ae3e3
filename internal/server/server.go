// Package server defines the core Server struct that composes the app's main dependencies.
//
// It contains the initialization logic to spin up the HTTP server
// and handles graceful shutdowns.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - the key/value store and whatever backs it (memory, Redis, PostgreSQL)
//   - background job worker server (asynq)
//   - the edge dispatcher's pending cache writes
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/deppfellow/shortlink-edge/internal/config"
	"github.com/deppfellow/shortlink-edge/internal/database"
	"github.com/deppfellow/shortlink-edge/internal/edge"
	"github.com/deppfellow/shortlink-edge/internal/kv"
	"github.com/deppfellow/shortlink-edge/internal/lib/job"
	loggerPkg "github.com/deppfellow/shortlink-edge/internal/logger"
)

// RedisPingTimeout bounds the startup Redis ping.
const RedisPingTimeout = 5 * time.Second

// Server is the application container that holds shared resources.
//
// It is not the HTTP server itself. DB, Redis and Job are nil when the
// configuration does not call for them.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService

	// Store is the key/value backend selected by store.driver, wrapped
	// with slow-operation logging.
	Store kv.Store

	DB    *database.Database
	Redis *redis.Client
	Job   *job.JobService

	// Dispatcher is set once routes are built; Shutdown drains its
	// pending cache writes.
	Dispatcher *edge.Dispatcher

	httpServer *http.Server
}

// New constructs a Server and initializes core dependencies.
//
// It does NOT start the HTTP server or the job workers. Those are started
// by Start and StartJobs.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	s := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
	}

	if cfg.Redis.Address != "" {
		s.Redis = newRedisClient(cfg, logger, loggerService)
	}

	store, err := s.openStore()
	if err != nil {
		_ = s.closeBackends()
		return nil, err
	}
	s.Store = kv.WithLogging(store, logger, cfg.Store.Driver, cfg.Observability.Logging.SlowQueryThreshold)

	if cfg.Jobs.Enabled {
		s.Job = job.NewJobService(logger, cfg, s.Store)
	}

	return s, nil
}

func newRedisClient(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Hooks instrument Redis commands so they show up in distributed traces.
	if loggerService != nil && loggerService.GetApplication() != nil {
		client.AddHook(nrredis.NewHook(client.Options()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), RedisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("failed to connect to Redis, continuing; commands will retry")
	} else {
		logger.Info().Str("address", cfg.Redis.Address).Msg("connected to Redis")
	}

	return client
}

// openStore builds the backend named by store.driver.
func (s *Server) openStore() (kv.Store, error) {
	switch s.Config.Store.Driver {
	case config.DriverMemory:
		s.Logger.Warn().Msg("using the in-memory store; data is lost on restart")
		return kv.NewMemoryStore(), nil

	case config.DriverRedis:
		return kv.NewRedisStore(s.Redis), nil

	case config.DriverPostgres:
		db, err := database.New(s.Config, s.Logger, s.LoggerService)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.DB = db
		return kv.NewPostgresStore(db.Pool), nil
	}

	return nil, fmt.Errorf("unknown store driver %q", s.Config.Store.Driver)
}

// StartJobs starts the background workers and scheduler when enabled.
func (s *Server) StartJobs() error {
	if s.Job == nil {
		return nil
	}
	return s.Job.Start()
}

// SetupHTTPServer configures the internal net/http server around handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: handler,

		// Config stores int values, interpreted here as seconds.
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server. It blocks until the server stops and
// returns http.ErrServerClosed after a graceful Shutdown.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Str("store", s.Config.Store.Driver).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its dependencies.
//
// In-flight requests finish first, then pending cache writes drain, then
// jobs, the database and Redis are closed. Every step runs even when an
// earlier one fails; the errors are joined.
func (s *Server) Shutdown(ctx context.Context) error {
	var errList []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errList = append(errList, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.Dispatcher != nil {
		if err := s.Dispatcher.Wait(ctx); err != nil {
			errList = append(errList, fmt.Errorf("pending cache writes abandoned: %w", err))
		}
	}

	if s.Job != nil {
		s.Job.Stop()
	}

	if err := s.closeBackends(); err != nil {
		errList = append(errList, err)
	}

	if s.LoggerService != nil {
		s.LoggerService.Shutdown()
	}

	return errors.Join(errList...)
}

// Close releases the store backends without touching the HTTP server.
// The CLI uses it after one-off commands.
func (s *Server) Close() error {
	return s.closeBackends()
}

func (s *Server) closeBackends() error {
	var errList []error

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errList = append(errList, fmt.Errorf("failed to close database connection: %w", err))
		}
		s.DB = nil
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errList = append(errList, fmt.Errorf("failed to close redis client: %w", err))
		}
		s.Redis = nil
	}

	return errors.Join(errList...)
}
