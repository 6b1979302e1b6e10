package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nestbook/internal/config"
	"nestbook/internal/logging"
)

// NewRootCmd creates the root command with its subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "nestbook",
		Short:        "Nestbook account and session server",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("database.driver", "", "database driver: sqlite or postgres")
	flags.String("database.path", "", "sqlite database file")
	flags.String("database.url", "", "postgres connection URL")
	flags.String("log.level", "", "log level")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSessionsCmd())

	return cmd
}

// setup loads the configuration and builds the logger shared by all subcommands.
func setup(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
