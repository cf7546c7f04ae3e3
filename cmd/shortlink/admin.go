package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deppfellow/shortlink-edge/internal/config"
	"github.com/deppfellow/shortlink-edge/internal/database"
	"github.com/deppfellow/shortlink-edge/internal/lib/utils"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema used by the postgres store driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			if rt.cfg.Store.Driver != config.DriverPostgres {
				return fmt.Errorf("store driver is %q, migrations only apply to %q", rt.cfg.Store.Driver, config.DriverPostgres)
			}
			return database.Migrate(cmd.Context(), rt.logger, rt.cfg)
		},
	}
}

func newAssetsCommand() *cobra.Command {
	assets := &cobra.Command{
		Use:   "assets",
		Short: "Manage the static assets served by the site",
	}

	assets.AddCommand(&cobra.Command{
		Use:   "sync <dir>",
		Short: "Upload every file under dir, keyed by its path relative to dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			if err := requireSharedStore(rt.cfg); err != nil {
				return err
			}
			_, services, release, err := rt.openServices()
			if err != nil {
				return err
			}
			defer release()

			n, err := services.Assets.Sync(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return utils.PrintJSON(cmd.OutOrStdout(), map[string]any{"synced": n})
		},
	})

	return assets
}

func newUserCommand() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage API key holders",
	}

	user.AddCommand(&cobra.Command{
		Use:   "create <username>",
		Short: "Create a user and print its API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			if err := requireSharedStore(rt.cfg); err != nil {
				return err
			}
			_, services, release, err := rt.openServices()
			if err != nil {
				return err
			}
			defer release()

			created, err := services.Auth.CreateUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return utils.PrintJSON(cmd.OutOrStdout(), created)
		},
	})

	return user
}

func newPurgeCommand() *cobra.Command {
	var async bool

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired links and cached responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			srv, _, release, err := rt.openServices()
			if err != nil {
				return err
			}
			defer release()

			if async {
				if srv.Job == nil {
					return errors.New("--async needs jobs.enabled and a Redis address")
				}
				id, err := srv.Job.EnqueuePurge(cmd.Context(), "cli")
				if err != nil {
					return err
				}
				return utils.PrintJSON(cmd.OutOrStdout(), map[string]any{"task_id": id})
			}

			if err := requireSharedStore(rt.cfg); err != nil {
				return err
			}
			n, err := srv.Store.PurgeExpired(cmd.Context())
			if err != nil {
				return err
			}
			return utils.PrintJSON(cmd.OutOrStdout(), map[string]any{"purged": n})
		},
	}

	purge.Flags().BoolVar(&async, "async", false, "enqueue the purge for a background worker instead of running it here")
	return purge
}
