package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending schema migrations to the configured database and exit.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "postgres" {
		return oops.Code("CONFIG_INVALID").Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	st, err := openStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	logger.WithField("driver", cfg.Database.Driver).Info("migrations applied")
	return nil
}
