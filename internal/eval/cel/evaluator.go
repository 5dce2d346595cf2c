package cel

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"github.com/google/cel-go/ext"
)

// FactsVar is the variable name expressions use to reach the rule context.
const FactsVar = "facts"

var nativeString = reflect.TypeOf("")

// Evaluator evaluates CEL expressions
type Evaluator struct {
	env   *cel.Env
	cache map[string]cel.Program
	mu    sync.RWMutex
}

// NewEvaluator creates a new CEL evaluator
func NewEvaluator() *Evaluator {
	env, err := cel.NewEnv(
		cel.Variable(FactsVar, cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
		ext.Strings(),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to create CEL environment: %v", err))
	}

	return &Evaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}
}

// Evaluate evaluates a CEL expression against facts and returns a Go value.
// Lists and maps come back as []interface{} and map[string]interface{}.
func (e *Evaluator) Evaluate(expression string, facts map[string]interface{}) (interface{}, error) {
	program, err := e.getProgram(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}

	if facts == nil {
		facts = map[string]interface{}{}
	}

	out, _, err := program.Eval(map[string]interface{}{FactsVar: facts})
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	result, err := toNative(out)
	if err != nil {
		return nil, fmt.Errorf("failed to convert result: %w", err)
	}

	return result, nil
}

// EvaluateBool evaluates a condition and fails when it does not yield a bool.
func (e *Evaluator) EvaluateBool(expression string, facts map[string]interface{}) (bool, error) {
	result, err := e.Evaluate(expression, facts)
	if err != nil {
		return false, err
	}

	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %T, expected bool", expression, result)
	}

	return matched, nil
}

// toNative converts a CEL value to a plain Go value, descending into lists and maps
func toNative(val ref.Val) (interface{}, error) {
	switch v := val.(type) {
	case types.Null:
		return nil, nil
	case traits.Mapper:
		out := make(map[string]interface{})
		it := v.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			name, err := key.ConvertToNative(nativeString)
			if err != nil {
				return nil, fmt.Errorf("map key %v: %w", key.Value(), err)
			}
			item, _ := v.Find(key)
			native, err := toNative(item)
			if err != nil {
				return nil, err
			}
			out[name.(string)] = native
		}
		return out, nil
	case traits.Lister:
		out := make([]interface{}, 0)
		it := v.Iterator()
		for it.HasNext() == types.True {
			native, err := toNative(it.Next())
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	default:
		return val.Value(), nil
	}
}

// getProgram gets a compiled program from cache or compiles it
func (e *Evaluator) getProgram(expression string) (cel.Program, error) {
	// Check cache first (read lock)
	e.mu.RLock()
	if program, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return program, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Check again in case another goroutine compiled it
	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("parse error: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program generation error: %w", err)
	}

	e.cache[expression] = program

	return program, nil
}

// ValidateExpression checks that an expression compiles and warms the cache
func (e *Evaluator) ValidateExpression(expression string) error {
	_, err := e.getProgram(expression)
	return err
}

// ValidateCondition checks that an expression compiles to a bool or dyn result
func (e *Evaluator) ValidateCondition(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return fmt.Errorf("condition must return bool, got %s", out)
	}

	return e.ValidateExpression(expression)
}

// CacheSize returns the number of compiled programs held in the cache
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// ClearCache clears the compiled program cache
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cel.Program)
}
