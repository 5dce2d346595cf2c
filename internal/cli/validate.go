package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aescanero/dago-rulekit/pkg/dsl"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a rule file without evaluating it",
		Long: `Validate a rule file: structure, unique names, actions and every CEL
expression and template it contains.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rulesFile, cmd)
		},
	}

	cmd.Flags().StringVarP(&rulesFile, "rules", "r", "", "rule file (.yaml, .yml or .json)")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}

func runValidate(rulesFile string, cmd *cobra.Command) error {
	set, err := dsl.Load(rulesFile)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", rulesFile)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	rules, err := dsl.Compile(set, dsl.Options{})
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", rulesFile)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d rule(s) valid\n", rulesFile, len(rules))
	return nil
}
