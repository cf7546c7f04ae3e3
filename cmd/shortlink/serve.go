package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/deppfellow/shortlink-edge/internal/config"
	"github.com/deppfellow/shortlink-edge/internal/database"
	"github.com/deppfellow/shortlink-edge/internal/handler"
	"github.com/deppfellow/shortlink-edge/internal/repository"
	"github.com/deppfellow/shortlink-edge/internal/router"
	"github.com/deppfellow/shortlink-edge/internal/server"
	"github.com/deppfellow/shortlink-edge/internal/service"
)

// DefaultShutdownTimeout bounds graceful shutdown after a signal.
const DefaultShutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var assetsDir string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, background jobs included when enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), assetsDir)
		},
	}

	serve.Flags().StringVar(&assetsDir, "assets", "", "upload every file under this directory to the asset store before serving")
	return serve
}

func runServe(ctx context.Context, assetsDir string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	log := rt.logger

	// Deployed environments migrate on start; local runs use `shortlink migrate`.
	if rt.cfg.Store.Driver == config.DriverPostgres && !rt.cfg.IsLocal() {
		if err := database.Migrate(ctx, log, rt.cfg); err != nil {
			log.Error().Err(err).Msg("failed to migrate database")
			return err
		}
	}

	srv, _, err := prepareServer(ctx, rt, assetsDir)
	if err != nil {
		return err
	}

	if err := srv.StartJobs(); err != nil {
		log.Error().Err(err).Msg("failed to start background jobs")
		_ = srv.Shutdown(context.Background())
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped unexpectedly")
			_ = srv.Shutdown(context.Background())
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}

	log.Info().Msg("server exited properly")
	return nil
}

// prepareServer opens the backends, seeds assets from assetsDir when it is
// set and wires the router into the HTTP server. Seeding is the only way
// to give the memory store any assets.
func prepareServer(ctx context.Context, rt *deps, assetsDir string) (*server.Server, *echo.Echo, error) {
	log := rt.logger

	srv, err := server.New(rt.cfg, log, rt.loggerService)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize server")
		return nil, nil, err
	}

	services, err := service.NewService(srv, repository.NewRepositories(srv))
	if err != nil {
		log.Error().Err(err).Msg("could not create services")
		_ = srv.Shutdown(context.Background())
		return nil, nil, err
	}

	if assetsDir != "" {
		if _, err := services.Assets.Sync(ctx, assetsDir); err != nil {
			log.Error().Err(err).Str("dir", assetsDir).Msg("failed to seed assets")
			_ = srv.Shutdown(context.Background())
			return nil, nil, fmt.Errorf("seeding assets from %s: %w", assetsDir, err)
		}
	}

	handlers := handler.NewHandlers(srv, services)
	r := router.NewRouter(srv, handlers, services)
	srv.SetupHTTPServer(r)

	return srv, r, nil
}
