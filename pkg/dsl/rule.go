package dsl

import (
	"fmt"

	"github.com/aescanero/dago-rulekit/internal/eval/cel"
	"github.com/aescanero/dago-rulekit/internal/eval/template"
	"github.com/aescanero/dago-rulekit/pkg/rulekit"
)

// Rule is a compiled Definition. It counts its own applications, so a rule
// value must not be shared by engines running concurrently.
type Rule struct {
	rulekit.NoopHooks[Facts]

	def          Definition
	evaluator    *cel.Evaluator
	templates    *template.Engine
	applications int
}

var _ rulekit.Rule[Facts] = (*Rule)(nil)

// Name returns the rule name
func (r *Rule) Name() string {
	return r.def.Name
}

// Priority returns the rule priority
func (r *Rule) Priority() uint32 {
	return r.def.Priority
}

// Definition returns the definition the rule was compiled from
func (r *Rule) Definition() Definition {
	return r.def
}

// Applications returns how many times Apply succeeded
func (r *Rule) Applications() int {
	return r.applications
}

// Evaluate runs the CEL condition. Once MaxApplications is reached the rule no
// longer matches.
func (r *Rule) Evaluate(state *Facts) (bool, error) {
	if r.def.MaxApplications > 0 && r.applications >= r.def.MaxApplications {
		return false, nil
	}

	return r.evaluator.EvaluateBool(r.def.When, factsOf(state))
}

// Apply runs the actions in order. Each action sees the effects of the
// previous ones. A failing action stops Apply and leaves earlier effects in place.
func (r *Rule) Apply(state *Facts) error {
	if *state == nil {
		*state = Facts{}
	}
	facts := *state

	for i, action := range r.def.Then {
		if err := r.run(facts, action); err != nil {
			return fmt.Errorf("action %d (%s %s): %w", i, action.Kind(), action.Path(), err)
		}
	}

	r.applications++
	return nil
}

func (r *Rule) run(facts Facts, action Action) error {
	if action.Unset != "" {
		return unsetPath(facts, action.Unset)
	}

	var value any
	switch {
	case action.Expr != "":
		v, err := r.evaluator.Evaluate(action.Expr, facts)
		if err != nil {
			return err
		}
		value = v
	case action.Template != "":
		v, err := r.templates.Render(action.Template, templateData(facts))
		if err != nil {
			return err
		}
		value = v
	default:
		value = cloneValue(action.Value)
	}

	return setPath(facts, action.Set, value)
}

func factsOf(state *Facts) Facts {
	if state == nil || *state == nil {
		return Facts{}
	}
	return *state
}

// templateData exposes top-level facts directly plus the whole map as "facts".
func templateData(facts Facts) map[string]any {
	data := make(map[string]any, len(facts)+1)
	for k, v := range facts {
		data[k] = v
	}
	data[cel.FactsVar] = facts
	return data
}
