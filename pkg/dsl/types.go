package dsl

import (
	"fmt"
	"strings"
)

// Facts is the context rules run against.
type Facts = map[string]any

// RuleSet is the content of a rule file.
type RuleSet struct {
	// Order is the priority order: asc, desc or unordered (default).
	Order string `yaml:"order,omitempty" json:"order,omitempty"`

	Rules []Definition `yaml:"rules" json:"rules"`
}

// Definition describes a single rule.
type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Priority    uint32 `yaml:"priority,omitempty" json:"priority,omitempty"`

	// When is a CEL condition that must yield a bool.
	When string `yaml:"when" json:"when"`

	// MaxApplications caps how many times the rule applies over the life of
	// the compiled rule. Zero means unlimited.
	MaxApplications int `yaml:"max_applications,omitempty" json:"max_applications,omitempty"`

	Then []Action `yaml:"then" json:"then"`
}

// Action is one effect of a rule. Exactly one of Set or Unset is given; a Set
// takes its value from exactly one of Expr, Template or Value.
type Action struct {
	Set   string `yaml:"set,omitempty" json:"set,omitempty"`
	Unset string `yaml:"unset,omitempty" json:"unset,omitempty"`

	Expr     string `yaml:"expr,omitempty" json:"expr,omitempty"`
	Template string `yaml:"template,omitempty" json:"template,omitempty"`
	Value    any    `yaml:"value,omitempty" json:"value,omitempty"`
}

// Path returns the dotted fact path the action writes or removes.
func (a Action) Path() string {
	if a.Set != "" {
		return a.Set
	}
	return a.Unset
}

// Kind returns "set" or "unset".
func (a Action) Kind() string {
	if a.Unset != "" && a.Set == "" {
		return "unset"
	}
	return "set"
}

// ValidationError lists every problem found in a rule set.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid rule set: %s", strings.Join(e.Issues, "; "))
}

func (e *ValidationError) add(format string, args ...any) {
	e.Issues = append(e.Issues, fmt.Sprintf(format, args...))
}
