// Package rulekit implements a deterministic rule engine over a mutable context.
//
// A rule pairs a condition with an effect. The engine holds an ordered set of
// rules and, for every evaluation pass, walks them in that order: when a rule's
// condition holds, its lifecycle hooks and effect run against the shared
// context. The first error stops the pass.
//
// Example usage:
//
//	type Order struct {
//	    Total    float64
//	    Discount float64
//	}
//
//	type HighValueDiscount struct {
//	    rulekit.NoopHooks[Order]
//	}
//
//	func (HighValueDiscount) Name() string     { return "high-value-discount" }
//	func (HighValueDiscount) Priority() uint32 { return 1 }
//	func (HighValueDiscount) Evaluate(o *Order) (bool, error) {
//	    return o.Total > 100, nil
//	}
//	func (HighValueDiscount) Apply(o *Order) error {
//	    o.Discount += o.Total * 0.10
//	    o.Total -= o.Total * 0.10
//	    return nil
//	}
//
//	engine, err := rulekit.NewBuilder[Order]().
//	    AddRule(HighValueDiscount{}).
//	    PriorityAsc().
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	order := Order{Total: 150}
//	if err := engine.EvaluateAll(&order); err != nil {
//	    log.Fatal(err)
//	}
//
// Ordering:
//   - Ascending: lower priority values first
//   - Descending: higher priority values first
//   - Unordered (default): insertion order
//
// Ties always keep insertion order. The order is fixed when the engine is
// built and never recomputed.
//
// An Engine owns the rules it was built with, and rules may keep state that
// Apply mutates. An Engine must therefore not run passes concurrently; run
// one engine per goroutine instead.
package rulekit
