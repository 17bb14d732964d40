package main

import (
	"github.com/spf13/cobra"

	"github.com/nneven/runtrigger/infra/postgres"
)

// MigrateCmd applies the embedded Postgres schema migrations.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(ctx, cmd)
			if err != nil {
				return err
			}
			return postgres.ApplyMigrations(ctx, postgres.DSN(&cfg.Database))
		},
	}
}
