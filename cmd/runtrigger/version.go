package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nneven/runtrigger/pkg/version"
)

// VersionCmd prints the build information ldflags injected into pkg/version.
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "runtrigger version %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", info.CommitHash)
			fmt.Fprintf(cmd.OutOrStdout(), "built: %s\n", info.BuildDate)
		},
	}
}
