package main

import (
	"errors"

	"github.com/spf13/cobra"

	"campusvote/internal/platform/config"
	"campusvote/internal/platform/postgres"
)

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			log, err := commonRun(cfg)
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.StoragePostgres {
				return errors.New("migrate requires STORAGE_DRIVER=postgres")
			}
			db, err := postgres.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.Migrate(cmd.Context(), db, log)
		},
	}
}
