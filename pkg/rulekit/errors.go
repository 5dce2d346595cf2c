package rulekit

import (
	"errors"
	"fmt"
)

// ErrBuilderConsumed is returned by Build when the builder was already built.
var ErrBuilderConsumed = errors.New("rulekit: builder already built")

// ConditionError indicates a rule could not decide whether it applies.
type ConditionError struct {
	Rule     string
	Position int
	Cause    error
}

// Error returns the error message.
func (e *ConditionError) Error() string {
	return fmt.Sprintf("rule %q (position %d): evaluation failed: %v", e.Rule, e.Position, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ConditionError) Unwrap() error {
	return e.Cause
}

// ApplicationError indicates a rule's effect could not be completed.
// The context may have been partially mutated by that rule.
type ApplicationError struct {
	Rule     string
	Position int
	Cause    error
}

// Error returns the error message.
func (e *ApplicationError) Error() string {
	return fmt.Sprintf("rule %q (position %d): application failed: %v", e.Rule, e.Position, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ApplicationError) Unwrap() error {
	return e.Cause
}

// HookPhase identifies which lifecycle hook failed.
type HookPhase string

const (
	// PhaseBeforeApply is the hook that runs before Apply.
	PhaseBeforeApply HookPhase = "before_apply"

	// PhaseAfterApply is the hook that runs after Apply.
	PhaseAfterApply HookPhase = "after_apply"
)

// HookError indicates a lifecycle hook failed. It is only returned to callers
// when the engine uses HookErrorPropagate.
type HookError struct {
	Rule     string
	Position int
	Phase    HookPhase
	Cause    error
}

// Error returns the error message.
func (e *HookError) Error() string {
	return fmt.Sprintf("rule %q (position %d): %s hook failed: %v", e.Rule, e.Position, e.Phase, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *HookError) Unwrap() error {
	return e.Cause
}

// IsConditionError returns true if err wraps a ConditionError.
func IsConditionError(err error) bool {
	var ce *ConditionError
	return errors.As(err, &ce)
}

// IsApplicationError returns true if err wraps an ApplicationError.
func IsApplicationError(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}

// IsHookError returns true if err wraps a HookError.
func IsHookError(err error) bool {
	var he *HookError
	return errors.As(err, &he)
}

// RuleName returns the name of the rule that caused err, if any.
func RuleName(err error) (string, bool) {
	var ce *ConditionError
	if errors.As(err, &ce) {
		return ce.Rule, true
	}
	var ae *ApplicationError
	if errors.As(err, &ae) {
		return ae.Rule, true
	}
	var he *HookError
	if errors.As(err, &he) {
		return he.Rule, true
	}
	return "", false
}
