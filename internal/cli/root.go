// Package cli is the docinsight command line: the HTTP server plus offline
// ranking tools that run the local pipeline without Redis or a model.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "docinsight",
	Short:         "Persona-driven document section ranking and insights",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion records the build version for the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
