package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aescanero/dago-rulekit/internal/telemetry"
	"github.com/aescanero/dago-rulekit/pkg/dsl"
	"github.com/aescanero/dago-rulekit/pkg/rulekit"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	RulesFile string
	FactsFile string
	Order     string
	First     bool
	Passes    int
	PassID    string
}

// EvalResult is the output of the eval command.
type EvalResult struct {
	PassID  string    `json:"pass_id"`
	Applied []string  `json:"applied"`
	Facts   dsl.Facts `json:"facts"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a facts document against a rule file",
		Long: `Evaluate a facts document against a rule file and print the resulting facts.

The rules run in the order declared by the rule file unless --order is given.
With --first only the first matching rule is applied. --passes repeats the
evaluation on the same engine, so rules with max_applications stop matching.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.RulesFile, "rules", "r", "", "rule file (.yaml, .yml or .json)")
	cmd.Flags().StringVarP(&opts.FactsFile, "facts", "f", "-", "facts file (.json, .yaml or .yml); - reads JSON from stdin")
	cmd.Flags().StringVar(&opts.Order, "order", "", "override the rule file order (asc|desc|unordered)")
	cmd.Flags().BoolVar(&opts.First, "first", false, "apply only the first matching rule")
	cmd.Flags().IntVar(&opts.Passes, "passes", 1, "number of evaluation passes")
	cmd.Flags().StringVar(&opts.PassID, "pass-id", "", "pass id to report (random when empty)")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}

func runEval(rootOpts *RootOptions, opts *EvalOptions, cmd *cobra.Command) error {
	if opts.Passes < 1 {
		return WrapExitError(ExitCommandError, "invalid flag", fmt.Errorf("--passes must be at least 1"))
	}

	logger, err := rootOpts.NewLogger()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize logger", err)
	}
	defer func() { _ = logger.Sync() }()

	set, err := dsl.Load(opts.RulesFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}

	facts, err := readFacts(opts.FactsFile, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load facts", err)
	}

	var applied []string
	recorder := rulekit.HookFunc[dsl.Facts]{
		After: func(rule rulekit.Rule[dsl.Facts], _ *dsl.Facts) error {
			applied = append(applied, rule.Name())
			return nil
		},
	}

	engineOpts := dsl.Options{
		Logger: logger,
		Hooks: []rulekit.Hook[dsl.Facts]{
			telemetry.NewLoggingHook[dsl.Facts](logger),
			recorder,
		},
	}
	if cmd.Flags().Changed("order") {
		order, err := rulekit.ParsePriorityOrder(opts.Order)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid flag", err)
		}
		engineOpts.Order = &order
	}

	engine, err := dsl.BuildEngine(set, engineOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile rules", err)
	}

	for i := 0; i < opts.Passes; i++ {
		if opts.First {
			_, err = engine.EvaluateFirst(&facts)
		} else {
			err = engine.EvaluateAll(&facts)
		}
		if err != nil {
			return WrapExitError(ExitFailure, "evaluation failed", err)
		}
	}

	passID := opts.PassID
	if passID == "" {
		passID = uuid.NewString()
	}
	if applied == nil {
		applied = []string{}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(EvalResult{
		PassID:  passID,
		Applied: applied,
		Facts:   facts,
	})
}
