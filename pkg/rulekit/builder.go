package rulekit

import "go.uber.org/zap"

// Builder assembles an Engine with a fluent interface. A builder is one-shot:
// after Build, further mutators are ignored and Build returns ErrBuilderConsumed.
type Builder[T any] struct {
	rules []Rule[T]
	order PriorityOrder
	opts  []Option[T]
	built bool
}

// NewBuilder creates an empty builder with no ordering chosen.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{}
}

// WithRules replaces the accumulated rules.
func (b *Builder[T]) WithRules(rules []Rule[T]) *Builder[T] {
	if b.built {
		return b
	}
	b.rules = append([]Rule[T](nil), rules...)
	return b
}

// AddRule appends a single rule. Nil rules are ignored.
func (b *Builder[T]) AddRule(rule Rule[T]) *Builder[T] {
	if b.built || rule == nil {
		return b
	}
	b.rules = append(b.rules, rule)
	return b
}

// Priority sets the evaluation order. The last call wins.
func (b *Builder[T]) Priority(order PriorityOrder) *Builder[T] {
	if b.built {
		return b
	}
	b.order = order
	return b
}

// PriorityAsc evaluates lower priority values first.
func (b *Builder[T]) PriorityAsc() *Builder[T] {
	return b.Priority(Ascending)
}

// PriorityDesc evaluates higher priority values first.
func (b *Builder[T]) PriorityDesc() *Builder[T] {
	return b.Priority(Descending)
}

// Unordered keeps insertion order.
func (b *Builder[T]) Unordered() *Builder[T] {
	return b.Priority(Unordered)
}

// WithLogger sets the engine logger.
func (b *Builder[T]) WithLogger(logger *zap.Logger) *Builder[T] {
	return b.with(WithLogger[T](logger))
}

// WithHook registers an engine-level lifecycle hook.
func (b *Builder[T]) WithHook(hook Hook[T]) *Builder[T] {
	return b.with(WithHook[T](hook))
}

// WithObserver registers an observer of evaluation passes.
func (b *Builder[T]) WithObserver(observer Observer[T]) *Builder[T] {
	return b.with(WithObserver[T](observer))
}

// WithHookErrorPolicy sets how lifecycle hook failures are handled.
func (b *Builder[T]) WithHookErrorPolicy(policy HookErrorPolicy) *Builder[T] {
	return b.with(WithHookErrorPolicy[T](policy))
}

func (b *Builder[T]) with(opt Option[T]) *Builder[T] {
	if b.built {
		return b
	}
	b.opts = append(b.opts, opt)
	return b
}

// Build moves the accumulated rules into a new Engine, sorted once by the
// chosen order.
func (b *Builder[T]) Build() (*Engine[T], error) {
	if b.built {
		return nil, ErrBuilderConsumed
	}
	b.built = true

	rules, opts := b.rules, b.opts
	b.rules, b.opts = nil, nil

	return New(rules, b.order, opts...), nil
}
