package rulekit

// Rule is a unit of condition and effect over a context of type T.
type Rule[T any] interface {
	// Name returns a stable identifier used for diagnostics.
	Name() string

	// Priority returns the ordering key. Its meaning depends on the PriorityOrder.
	Priority() uint32

	// Evaluate reports whether the rule applies. It must not mutate state.
	Evaluate(state *T) (bool, error)

	// Apply runs the rule's effect. It may mutate state and the rule itself.
	Apply(state *T) error

	// BeforeApply is called right before Apply. It must not mutate state.
	BeforeApply(state *T)

	// AfterApply is called right after a successful Apply. It must not mutate state.
	AfterApply(state *T)
}

// NoopHooks provides empty lifecycle hooks. Embed it in rules that do not
// need BeforeApply or AfterApply.
type NoopHooks[T any] struct{}

// BeforeApply does nothing.
func (NoopHooks[T]) BeforeApply(*T) {}

// AfterApply does nothing.
func (NoopHooks[T]) AfterApply(*T) {}
