package rulekit

import (
	"fmt"
	"strings"
	"time"
)

// Hook observes rule application from outside the rule. Hooks are meant for
// diagnostics and must not mutate state. A returned error is handled by the
// engine's HookErrorPolicy.
type Hook[T any] interface {
	// BeforeApply is called before the rule's own BeforeApply.
	BeforeApply(rule Rule[T], state *T) error

	// AfterApply is called after the rule's own AfterApply, only when Apply succeeded.
	AfterApply(rule Rule[T], state *T) error
}

// Observer receives notifications about an evaluation pass.
type Observer[T any] interface {
	// RuleEvaluated is called after every Evaluate call.
	RuleEvaluated(rule Rule[T], matched bool, err error)

	// RuleApplied is called after every Apply call.
	RuleApplied(rule Rule[T], err error)

	// PassCompleted is called once at the end of EvaluateAll or EvaluateFirst.
	PassCompleted(applied int, elapsed time.Duration, err error)
}

// HookErrorPolicy decides what happens when a lifecycle hook fails.
type HookErrorPolicy int

const (
	// HookErrorLog logs hook failures and continues the pass. It is the default.
	HookErrorLog HookErrorPolicy = iota

	// HookErrorIgnore drops hook failures silently.
	HookErrorIgnore

	// HookErrorPropagate aborts the pass with a HookError.
	HookErrorPropagate
)

// String returns the canonical name of the policy.
func (p HookErrorPolicy) String() string {
	switch p {
	case HookErrorLog:
		return "log"
	case HookErrorIgnore:
		return "ignore"
	case HookErrorPropagate:
		return "propagate"
	default:
		return fmt.Sprintf("HookErrorPolicy(%d)", int(p))
	}
}

// ParseHookErrorPolicy converts a textual policy into a HookErrorPolicy.
// The empty string maps to HookErrorLog.
func ParseHookErrorPolicy(value string) (HookErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "log":
		return HookErrorLog, nil
	case "ignore":
		return HookErrorIgnore, nil
	case "propagate":
		return HookErrorPropagate, nil
	default:
		return HookErrorLog, fmt.Errorf("unknown hook error policy %q: must be one of log, ignore, propagate", value)
	}
}

// HookFunc adapts a pair of functions to the Hook interface. Nil functions are skipped.
type HookFunc[T any] struct {
	Before func(rule Rule[T], state *T) error
	After  func(rule Rule[T], state *T) error
}

// BeforeApply calls Before if set.
func (h HookFunc[T]) BeforeApply(rule Rule[T], state *T) error {
	if h.Before == nil {
		return nil
	}
	return h.Before(rule, state)
}

// AfterApply calls After if set.
func (h HookFunc[T]) AfterApply(rule Rule[T], state *T) error {
	if h.After == nil {
		return nil
	}
	return h.After(rule, state)
}
