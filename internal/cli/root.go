package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/dago-rulekit/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	LogLevel string
}

// NewLogger builds the logger selected by the global flags. Logs go to stderr
// so they never mix with command output.
func (o *RootOptions) NewLogger() (*zap.Logger, error) {
	return logging.New(o.LogLevel, "stderr")
}

// NewRootCommand creates the root command for the rulekit CLI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "rulekit",
		Short:   "rulekit - ordered condition/effect rules",
		Long:    "Evaluate facts against prioritized rule sets, validate rule files and run the stream worker.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !logging.IsValidLevel(opts.LogLevel) {
				return WrapExitError(ExitCommandError, "invalid flag",
					fmt.Errorf("log level %q: must be one of debug, info, warn, error", opts.LogLevel))
			}
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	// Add subcommands
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewWorkerCommand(opts))

	return cmd
}
