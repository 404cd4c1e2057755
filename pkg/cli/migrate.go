package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/critique/pkg/storage/postgres"
)

func newMigrateCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Long: `Apply every pending schema migration to the primary database and exit.

Migrations are versioned and recorded in schema_migrations; running the
command again is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			cm, err := postgres.Open(cfg.StorageConfig(), logger)
			if err != nil {
				return err
			}
			defer cm.Close()

			if err := postgres.RunMigrations(cmd.Context(), cm.Primary(), logger); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}
