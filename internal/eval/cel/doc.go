// Package cel provides a CEL (Common Expression Language) evaluator for rule
// conditions and computed effects.
//
// CEL is a non-Turing complete expression language that provides fast, safe
// evaluation of conditions. Expressions see the rule context as the map
// variable "facts".
//
// Example usage:
//
//	evaluator := cel.NewEvaluator()
//
//	facts := map[string]interface{}{
//	    "total":    150.0,
//	    "customer": map[string]interface{}{"tier": "gold"},
//	}
//
//	matched, err := evaluator.EvaluateBool("facts.total > 100.0 && facts.customer.tier == 'gold'", facts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Supported operations:
//   - Comparisons: ==, !=, <, <=, >, >= (ints and doubles compare across types)
//   - Boolean logic: &&, ||, !
//   - String operations: contains, startsWith, endsWith, matches, lowerAscii, upperAscii
//   - Arithmetic: +, -, *, /, %
//   - List operations: in, size, all, exists, map, filter
//   - Map access: facts.field, facts["field"], has(facts.field)
package cel
