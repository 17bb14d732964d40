package main

import (
	"github.com/spf13/cobra"

	"github.com/nneven/runtrigger/pkg/logger"
)

// RootCmd assembles the runtrigger CLI: trigger to exercise the core
// synchronously, migrate to apply the Postgres schema it persists to.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "runtrigger",
		Short: "Exercise the run trigger pipeline",
	}
	root.PersistentFlags().String("config", "", "path to a YAML config file")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().Bool("log-json", false, "emit logs as JSON")
	root.PersistentFlags().Bool("log-source", false, "include source file:line in logs")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		logLevel, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
		if err != nil {
			return err
		}
		logger.SetupLogger(logLevel, logJSON, logSource)
		return nil
	}

	root.AddCommand(TriggerCmd(), MigrateCmd(), VersionCmd())
	return root
}
