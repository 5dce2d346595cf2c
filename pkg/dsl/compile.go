package dsl

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aescanero/dago-rulekit/internal/eval/cel"
	"github.com/aescanero/dago-rulekit/internal/eval/template"
	"github.com/aescanero/dago-rulekit/pkg/rulekit"
)

// Options controls compilation and engine construction.
type Options struct {
	// Evaluator and Templates are shared across rules; new ones are created when nil.
	Evaluator *cel.Evaluator
	Templates *template.Engine

	// Order overrides the order declared in the rule set when set.
	Order *rulekit.PriorityOrder

	Logger     *zap.Logger
	HookPolicy rulekit.HookErrorPolicy
	Hooks      []rulekit.Hook[Facts]
	Observers  []rulekit.Observer[Facts]
}

// Compile validates a rule set and turns it into rules. Every CEL expression
// and template is compiled up front so errors surface before evaluation.
func Compile(set *RuleSet, opts Options) ([]rulekit.Rule[Facts], error) {
	if err := Validate(set); err != nil {
		return nil, err
	}

	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = cel.NewEvaluator()
	}
	templates := opts.Templates
	if templates == nil {
		templates = template.NewEngine()
	}

	verr := &ValidationError{}
	rules := make([]rulekit.Rule[Facts], 0, len(set.Rules))

	for _, def := range set.Rules {
		if err := evaluator.ValidateCondition(def.When); err != nil {
			verr.add("rule %q: when: %v", def.Name, err)
		}
		for j, action := range def.Then {
			switch {
			case action.Expr != "":
				if err := evaluator.ValidateExpression(action.Expr); err != nil {
					verr.add("rule %q then[%d]: expr: %v", def.Name, j, err)
				}
			case action.Template != "":
				if err := templates.ValidateTemplate(action.Template); err != nil {
					verr.add("rule %q then[%d]: template: %v", def.Name, j, err)
				}
			}
		}

		rules = append(rules, &Rule{
			def:       def,
			evaluator: evaluator,
			templates: templates,
		})
	}

	if len(verr.Issues) > 0 {
		return nil, verr
	}

	return rules, nil
}

// BuildEngine compiles a rule set and builds an engine for it.
func BuildEngine(set *RuleSet, opts Options) (*rulekit.Engine[Facts], error) {
	rules, err := Compile(set, opts)
	if err != nil {
		return nil, err
	}

	order, err := rulekit.ParsePriorityOrder(set.Order)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order: %w", err)
	}
	if opts.Order != nil {
		order = *opts.Order
	}

	builder := rulekit.NewBuilder[Facts]().
		WithRules(rules).
		Priority(order).
		WithHookErrorPolicy(opts.HookPolicy)

	if opts.Logger != nil {
		builder = builder.WithLogger(opts.Logger)
	}
	for _, h := range opts.Hooks {
		builder = builder.WithHook(h)
	}
	for _, o := range opts.Observers {
		builder = builder.WithObserver(o)
	}

	return builder.Build()
}
