package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deppfellow/shortlink-edge/internal/config"
	loggerPkg "github.com/deppfellow/shortlink-edge/internal/logger"
	"github.com/deppfellow/shortlink-edge/internal/repository"
	"github.com/deppfellow/shortlink-edge/internal/server"
	"github.com/deppfellow/shortlink-edge/internal/service"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "shortlink",
		Short:        "URL shortener behind a caching edge dispatcher",
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newAssetsCommand(),
		newUserCommand(),
		newPurgeCommand(),
	)

	return root
}

// deps is what every command needs before it can do anything.
type deps struct {
	cfg           *config.Config
	logger        *zerolog.Logger
	loggerService *loggerPkg.LoggerService
}

func loadRuntime() (*deps, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	loggerService, err := loggerPkg.NewLoggerService(cfg.Observability)
	if err != nil {
		return nil, err
	}

	logger := loggerPkg.NewLoggerWithService(cfg.Observability, loggerService)

	return &deps{
		cfg:           cfg,
		logger:        &logger,
		loggerService: loggerService,
	}, nil
}

// errProcessLocalStore is returned by commands whose effect would vanish
// with the process because the memory store is not shared.
var errProcessLocalStore = errors.New("the memory store lives inside a single process")

// requireSharedStore rejects the memory driver for commands that write
// data a running server is expected to read.
func requireSharedStore(cfg *config.Config) error {
	if cfg.Store.Driver != config.DriverMemory {
		return nil
	}
	return fmt.Errorf("%w: set store.driver to %q or %q, or seed a memory server with `serve --assets <dir>`",
		errProcessLocalStore, config.DriverRedis, config.DriverPostgres)
}

// openServices builds the server container and the service layer for a
// one-off command. The returned func releases them.
func (rt *deps) openServices() (*server.Server, *service.Services, func(), error) {
	srv, err := server.New(rt.cfg, rt.logger, rt.loggerService)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	services, err := service.NewService(srv, repository.NewRepositories(srv))
	if err != nil {
		_ = srv.Close()
		return nil, nil, nil, fmt.Errorf("failed to create services: %w", err)
	}

	release := func() {
		if srv.Job != nil {
			_ = srv.Job.Client.Close()
		}
		if err := srv.Close(); err != nil {
			rt.logger.Warn().Err(err).Msg("failed to release backends")
		}
		rt.loggerService.Shutdown()
	}

	return srv, services, release, nil
}
