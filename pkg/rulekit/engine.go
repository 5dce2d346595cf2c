package rulekit

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Engine evaluates an ordered set of rules against a mutable context.
type Engine[T any] struct {
	rules      []Rule[T]
	order      PriorityOrder
	hooks      []Hook[T]
	observers  []Observer[T]
	hookPolicy HookErrorPolicy
	logger     *zap.Logger
}

// Option configures an Engine.
type Option[T any] func(*Engine[T])

// WithLogger sets the logger used for diagnostics and swallowed hook failures.
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(e *Engine[T]) {
		e.logger = logger
	}
}

// WithHook registers an engine-level lifecycle hook.
func WithHook[T any](hook Hook[T]) Option[T] {
	return func(e *Engine[T]) {
		if hook != nil {
			e.hooks = append(e.hooks, hook)
		}
	}
}

// WithObserver registers an observer of evaluation passes.
func WithObserver[T any](observer Observer[T]) Option[T] {
	return func(e *Engine[T]) {
		if observer != nil {
			e.observers = append(e.observers, observer)
		}
	}
}

// WithHookErrorPolicy sets how lifecycle hook failures are handled.
func WithHookErrorPolicy[T any](policy HookErrorPolicy) Option[T] {
	return func(e *Engine[T]) {
		e.hookPolicy = policy
	}
}

// New creates an engine holding rules sorted by order. The order is computed
// once here; nil rules are dropped. The engine keeps its own copy of the slice.
func New[T any](rules []Rule[T], order PriorityOrder, opts ...Option[T]) *Engine[T] {
	kept := make([]Rule[T], 0, len(rules))
	for _, rule := range rules {
		if rule != nil {
			kept = append(kept, rule)
		}
	}

	e := &Engine[T]{
		rules: Order(kept, order),
		order: order,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	return e
}

// EvaluateAll runs one evaluation pass over every rule in order.
//
// For each rule whose condition holds, the hooks and Apply run in this order:
// engine hooks BeforeApply, rule BeforeApply, Apply, rule AfterApply, engine
// hooks AfterApply. The first condition or application error ends the pass;
// later rules are not touched and no rollback happens.
func (e *Engine[T]) EvaluateAll(state *T) error {
	start := time.Now()
	applied := 0

	for i, rule := range e.rules {
		matched, err := e.step(i, rule, state)
		if err != nil {
			e.passCompleted(applied, start, err)
			return err
		}
		if matched {
			applied++
		}
	}

	e.passCompleted(applied, start, nil)
	return nil
}

// EvaluateFirst applies only the first rule whose condition holds and reports
// whether such a rule was found. Errors are handled as in EvaluateAll.
func (e *Engine[T]) EvaluateFirst(state *T) (bool, error) {
	start := time.Now()

	for i, rule := range e.rules {
		matched, err := e.step(i, rule, state)
		if err != nil {
			e.passCompleted(0, start, err)
			return false, err
		}
		if matched {
			e.passCompleted(1, start, nil)
			return true, nil
		}
	}

	e.passCompleted(0, start, nil)
	return false, nil
}

// Rules returns the rules in evaluation order.
func (e *Engine[T]) Rules() []Rule[T] {
	rules := make([]Rule[T], len(e.rules))
	copy(rules, e.rules)
	return rules
}

// Order returns the priority order the engine was built with.
func (e *Engine[T]) Order() PriorityOrder {
	return e.order
}

// Len returns the number of rules held by the engine.
func (e *Engine[T]) Len() int {
	return len(e.rules)
}

// step evaluates one rule and applies it when its condition holds.
func (e *Engine[T]) step(pos int, rule Rule[T], state *T) (bool, error) {
	matched, err := rule.Evaluate(state)
	for _, o := range e.observers {
		e.notify("rule_evaluated", func() { o.RuleEvaluated(rule, matched, err) })
	}
	if err != nil {
		e.logger.Debug("rule evaluation failed",
			zap.String("rule", rule.Name()),
			zap.Int("position", pos),
			zap.Error(err),
		)
		return false, &ConditionError{Rule: rule.Name(), Position: pos, Cause: err}
	}

	e.logger.Debug("rule evaluated",
		zap.String("rule", rule.Name()),
		zap.Int("position", pos),
		zap.Bool("matched", matched),
	)

	if !matched {
		return false, nil
	}

	for _, h := range e.hooks {
		if err := e.callHook(pos, rule, PhaseBeforeApply, func() error { return h.BeforeApply(rule, state) }); err != nil {
			return false, err
		}
	}
	if err := e.callHook(pos, rule, PhaseBeforeApply, func() error { rule.BeforeApply(state); return nil }); err != nil {
		return false, err
	}

	err = rule.Apply(state)
	for _, o := range e.observers {
		e.notify("rule_applied", func() { o.RuleApplied(rule, err) })
	}
	if err != nil {
		e.logger.Debug("rule application failed",
			zap.String("rule", rule.Name()),
			zap.Int("position", pos),
			zap.Error(err),
		)
		return false, &ApplicationError{Rule: rule.Name(), Position: pos, Cause: err}
	}

	if err := e.callHook(pos, rule, PhaseAfterApply, func() error { rule.AfterApply(state); return nil }); err != nil {
		return true, err
	}
	for _, h := range e.hooks {
		if err := e.callHook(pos, rule, PhaseAfterApply, func() error { return h.AfterApply(rule, state) }); err != nil {
			return true, err
		}
	}

	return true, nil
}

// callHook runs a hook and applies the hook error policy to its failure.
func (e *Engine[T]) callHook(pos int, rule Rule[T], phase HookPhase, fn func() error) error {
	err := safeCall(fn)
	if err == nil {
		return nil
	}

	switch e.hookPolicy {
	case HookErrorPropagate:
		return &HookError{Rule: rule.Name(), Position: pos, Phase: phase, Cause: err}
	case HookErrorIgnore:
		return nil
	default:
		e.logger.Warn("lifecycle hook failed",
			zap.String("rule", rule.Name()),
			zap.Int("position", pos),
			zap.String("phase", string(phase)),
			zap.Error(err),
		)
		return nil
	}
}

func (e *Engine[T]) passCompleted(applied int, start time.Time, err error) {
	elapsed := time.Since(start)
	for _, o := range e.observers {
		e.notify("pass_completed", func() { o.PassCompleted(applied, elapsed, err) })
	}
}

// notify runs an observer callback. A panicking observer is logged and
// never affects the pass.
func (e *Engine[T]) notify(callback string, fn func()) {
	err := safeCall(func() error {
		fn()
		return nil
	})
	if err != nil {
		e.logger.Warn("observer failed",
			zap.String("callback", callback),
			zap.Error(err),
		)
	}
}

// safeCall converts a panic raised by a hook or observer into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panicked: %v", r)
		}
	}()
	return fn()
}
