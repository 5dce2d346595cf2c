package rulekit

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEngine_EvaluateAll_FollowsPriorityOrder(t *testing.T) {
	rec := &recorder{}
	a, b, c := newRule(rec, "A", 5), newRule(rec, "B", 1), newRule(rec, "C", 5)
	engine := New([]Rule[counterState]{a, b, c}, Ascending)

	state := &counterState{}
	require.NoError(t, engine.EvaluateAll(state))

	assert.Equal(t, []string{"B", "A", "C"}, state.Applied)
	assert.Equal(t, 3, state.Value)
}

func TestEngine_EvaluateAll_FailFastOnApply(t *testing.T) {
	rec := &recorder{}
	r1 := newRule(rec, "R1", 0)
	r2 := newRule(rec, "R2", 0)
	r2.applyErr = errBoom
	r3 := newRule(rec, "R3", 0)
	engine := New([]Rule[counterState]{r1, r2, r3}, Unordered)

	state := &counterState{}
	err := engine.EvaluateAll(state)
	require.Error(t, err)

	var appErr *ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "R2", appErr.Rule)
	assert.Equal(t, 1, appErr.Position)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, IsApplicationError(err))
	assert.False(t, IsConditionError(err))

	// R1 fully applied, R2 partially, R3 never touched
	assert.Equal(t, []string{"R1", "R2"}, state.Applied)
	assert.Equal(t, []string{
		"R1:evaluate", "R1:before", "R1:apply", "R1:after",
		"R2:evaluate", "R2:before", "R2:apply",
	}, rec.calls)
	assert.Zero(t, r3.applications)
}

func TestEngine_EvaluateAll_FailFastOnEvaluate(t *testing.T) {
	rec := &recorder{}
	r1 := newRule(rec, "R1", 0)
	r2 := newRule(rec, "R2", 0)
	r2.evalErr = errBoom
	r3 := newRule(rec, "R3", 0)
	engine := New([]Rule[counterState]{r1, r2, r3}, Unordered)

	state := &counterState{}
	err := engine.EvaluateAll(state)

	var condErr *ConditionError
	require.ErrorAs(t, err, &condErr)
	assert.Equal(t, "R2", condErr.Rule)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{"R1"}, state.Applied)
	assert.Equal(t, []string{
		"R1:evaluate", "R1:before", "R1:apply", "R1:after",
		"R2:evaluate",
	}, rec.calls)
}

func TestEngine_EvaluateAll_SkipsFalseConditions(t *testing.T) {
	rec := &recorder{}
	r := newRule(rec, "skip", 0)
	r.matches = false
	engine := New([]Rule[counterState]{r}, Unordered)

	state := &counterState{Value: 7, Applied: []string{"seed"}}
	before := counterState{Value: state.Value, Applied: append([]string(nil), state.Applied...)}

	require.NoError(t, engine.EvaluateAll(state))

	assert.Equal(t, before, *state)
	assert.Equal(t, []string{"skip:evaluate"}, rec.calls)
}

func TestEngine_EvaluateAll_HookOrdering(t *testing.T) {
	rec := &recorder{}
	r := newRule(rec, "R1", 0)
	skipped := newRule(rec, "R2", 0)
	skipped.matches = false

	hook := HookFunc[counterState]{
		Before: func(rule Rule[counterState], _ *counterState) error {
			rec.record("hook:before:" + rule.Name())
			return nil
		},
		After: func(rule Rule[counterState], _ *counterState) error {
			rec.record("hook:after:" + rule.Name())
			return nil
		},
	}
	engine := New([]Rule[counterState]{r, skipped}, Unordered, WithHook[counterState](hook))

	require.NoError(t, engine.EvaluateAll(&counterState{}))

	assert.Equal(t, []string{
		"R1:evaluate",
		"hook:before:R1", "R1:before", "R1:apply", "R1:after", "hook:after:R1",
		"R2:evaluate",
	}, rec.calls)
}

func TestEngine_HookErrorPolicy_Log(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &recorder{}
	r1, r2 := newRule(rec, "R1", 0), newRule(rec, "R2", 0)

	hook := HookFunc[counterState]{
		Before: func(Rule[counterState], *counterState) error { return errBoom },
	}
	engine := New([]Rule[counterState]{r1, r2}, Unordered,
		WithHook[counterState](hook),
		WithLogger[counterState](zap.New(core)),
	)

	state := &counterState{}
	require.NoError(t, engine.EvaluateAll(state))

	assert.Equal(t, []string{"R1", "R2"}, state.Applied)
	entries := logs.FilterMessage("lifecycle hook failed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "R1", entries[0].ContextMap()["rule"])
	assert.Equal(t, "before_apply", entries[0].ContextMap()["phase"])
}

func TestEngine_HookErrorPolicy_Ignore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &recorder{}
	r := newRule(rec, "R1", 0)

	hook := HookFunc[counterState]{
		After: func(Rule[counterState], *counterState) error { return errBoom },
	}
	engine := New([]Rule[counterState]{r}, Unordered,
		WithHook[counterState](hook),
		WithHookErrorPolicy[counterState](HookErrorIgnore),
		WithLogger[counterState](zap.New(core)),
	)

	require.NoError(t, engine.EvaluateAll(&counterState{}))
	assert.Zero(t, logs.FilterMessage("lifecycle hook failed").Len())
}

func TestEngine_HookErrorPolicy_PropagateBefore(t *testing.T) {
	rec := &recorder{}
	r1, r2 := newRule(rec, "R1", 0), newRule(rec, "R2", 0)

	hook := HookFunc[counterState]{
		Before: func(Rule[counterState], *counterState) error { return errBoom },
	}
	engine := New([]Rule[counterState]{r1, r2}, Unordered,
		WithHook[counterState](hook),
		WithHookErrorPolicy[counterState](HookErrorPropagate),
	)

	state := &counterState{}
	err := engine.EvaluateAll(state)

	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, PhaseBeforeApply, hookErr.Phase)
	assert.Equal(t, "R1", hookErr.Rule)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, state.Applied)
	assert.Equal(t, []string{"R1:evaluate"}, rec.calls)
}

func TestEngine_HookErrorPolicy_PropagateAfter(t *testing.T) {
	rec := &recorder{}
	r1, r2 := newRule(rec, "R1", 0), newRule(rec, "R2", 0)

	hook := HookFunc[counterState]{
		After: func(Rule[counterState], *counterState) error { return errBoom },
	}
	engine := New([]Rule[counterState]{r1, r2}, Unordered,
		WithHook[counterState](hook),
		WithHookErrorPolicy[counterState](HookErrorPropagate),
	)

	state := &counterState{}
	err := engine.EvaluateAll(state)

	assert.True(t, IsHookError(err))
	assert.Equal(t, []string{"R1"}, state.Applied)
	assert.NotContains(t, rec.calls, "R2:evaluate")
}

func TestEngine_RuleHookPanic(t *testing.T) {
	t.Run("logged and pass continues", func(t *testing.T) {
		rec := &recorder{}
		r1, r2 := newRule(rec, "R1", 0), newRule(rec, "R2", 0)
		r1.hookPanic = true
		engine := New([]Rule[counterState]{r1, r2}, Unordered)

		state := &counterState{}
		require.NoError(t, engine.EvaluateAll(state))
		assert.Equal(t, []string{"R1", "R2"}, state.Applied)
	})

	t.Run("propagated", func(t *testing.T) {
		rec := &recorder{}
		r1 := newRule(rec, "R1", 0)
		r1.hookPanic = true
		engine := New([]Rule[counterState]{r1}, Unordered,
			WithHookErrorPolicy[counterState](HookErrorPropagate))

		state := &counterState{}
		err := engine.EvaluateAll(state)
		require.Error(t, err)
		assert.True(t, IsHookError(err))
		assert.Contains(t, err.Error(), "hook panicked: hook exploded")
		assert.Empty(t, state.Applied)
	})
}

func TestEngine_EvaluateFirst(t *testing.T) {
	rec := &recorder{}
	miss := newRule(rec, "miss", 1)
	miss.matches = false
	first := newRule(rec, "first", 2)
	second := newRule(rec, "second", 3)
	engine := New([]Rule[counterState]{second, first, miss}, Ascending)

	state := &counterState{}
	applied, err := engine.EvaluateFirst(state)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, []string{"first"}, state.Applied)
	assert.NotContains(t, rec.calls, "second:evaluate")
}

func TestEngine_EvaluateFirst_NoMatch(t *testing.T) {
	rec := &recorder{}
	miss := newRule(rec, "miss", 1)
	miss.matches = false
	engine := New([]Rule[counterState]{miss}, Unordered)

	applied, err := engine.EvaluateFirst(&counterState{})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestEngine_EvaluateFirst_Error(t *testing.T) {
	rec := &recorder{}
	bad := newRule(rec, "bad", 0)
	bad.evalErr = errBoom
	engine := New([]Rule[counterState]{bad}, Unordered)

	applied, err := engine.EvaluateFirst(&counterState{})
	assert.False(t, applied)
	assert.True(t, IsConditionError(err))
}

func TestEngine_RuleStatePersistsAcrossPasses(t *testing.T) {
	rec := &recorder{}
	r := newRule(rec, "counter", 0)
	engine := New([]Rule[counterState]{r}, Unordered)

	state := &counterState{}
	for i := 0; i < 3; i++ {
		require.NoError(t, engine.EvaluateAll(state))
	}

	assert.Equal(t, 3, r.applications)
	assert.Equal(t, 3, state.Value)
}

func TestEngine_OrderIsFrozen(t *testing.T) {
	rec := &recorder{}
	rules := []Rule[counterState]{newRule(rec, "A", 2), newRule(rec, "B", 1)}
	engine := New(rules, Descending)

	// mutating the caller's slice must not affect the engine
	rules[0] = newRule(rec, "Z", 9)

	assert.Equal(t, []string{"A", "B"}, names(engine.Rules()))
	assert.Equal(t, Descending, engine.Order())
	assert.Equal(t, 2, engine.Len())

	view := engine.Rules()
	view[0] = nil
	assert.Equal(t, []string{"A", "B"}, names(engine.Rules()))

	for i := 0; i < 2; i++ {
		state := &counterState{}
		require.NoError(t, engine.EvaluateAll(state))
		assert.Equal(t, []string{"A", "B"}, state.Applied)
	}
}

func TestEngine_New_DropsNilRules(t *testing.T) {
	rec := &recorder{}
	engine := New([]Rule[counterState]{nil, newRule(rec, "A", 0), nil}, Ascending)
	assert.Equal(t, []string{"A"}, names(engine.Rules()))
}

func TestEngine_EmptyPass(t *testing.T) {
	engine := New[counterState](nil, Unordered)
	require.NoError(t, engine.EvaluateAll(&counterState{}))
	applied, err := engine.EvaluateFirst(&counterState{})
	require.NoError(t, err)
	assert.False(t, applied)
}

type countingObserver struct {
	evaluated, matched, applied, failed int
	passes                              []int
	passErrs                            []error
}

func (o *countingObserver) RuleEvaluated(_ Rule[counterState], matched bool, err error) {
	o.evaluated++
	if matched {
		o.matched++
	}
	if err != nil {
		o.failed++
	}
}

func (o *countingObserver) RuleApplied(_ Rule[counterState], err error) {
	if err == nil {
		o.applied++
	} else {
		o.failed++
	}
}

func (o *countingObserver) PassCompleted(applied int, elapsed time.Duration, err error) {
	o.passes = append(o.passes, applied)
	o.passErrs = append(o.passErrs, err)
}

func TestEngine_Observer(t *testing.T) {
	rec := &recorder{}
	hit := newRule(rec, "hit", 0)
	miss := newRule(rec, "miss", 0)
	miss.matches = false
	broken := newRule(rec, "broken", 0)
	broken.applyErr = errBoom

	obs := &countingObserver{}
	engine := New([]Rule[counterState]{hit, miss, broken}, Unordered, WithObserver[counterState](obs))

	err := engine.EvaluateAll(&counterState{})
	require.Error(t, err)

	assert.Equal(t, 3, obs.evaluated)
	assert.Equal(t, 2, obs.matched)
	assert.Equal(t, 1, obs.applied)
	assert.Equal(t, 1, obs.failed)
	assert.Equal(t, []int{1}, obs.passes)
	require.Len(t, obs.passErrs, 1)
	assert.True(t, errors.Is(obs.passErrs[0], errBoom))
}

type panickingObserver struct{}

func (panickingObserver) RuleEvaluated(Rule[counterState], bool, error) { panic("evaluated exploded") }
func (panickingObserver) RuleApplied(Rule[counterState], error) { panic("applied exploded") }
func (panickingObserver) PassCompleted(int, time.Duration, error) { panic("pass exploded") }

func TestEngine_ObserverPanicDoesNotAbortPass(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	rec := &recorder{}
	a, b := newRule(rec, "A", 0), newRule(rec, "B", 0)

	counting := &countingObserver{}
	engine := New([]Rule[counterState]{a, b}, Unordered,
		WithLogger[counterState](zap.New(core)),
		WithObserver[counterState](panickingObserver{}),
		WithObserver[counterState](counting),
	)

	state := &counterState{}
	require.NotPanics(t, func() {
		require.NoError(t, engine.EvaluateAll(state))
	})

	assert.Equal(t, []string{"A", "B"}, state.Applied)
	assert.Equal(t, 2, counting.applied)
	assert.Equal(t, []int{2}, counting.passes)

	failures := logs.FilterMessage("observer failed").All()
	require.Len(t, failures, 5)
	callbacks := make([]string, 0, len(failures))
	for _, entry := range failures {
		callbacks = append(callbacks, entry.ContextMap()["callback"].(string))
	}
	assert.Equal(t, []string{
		"rule_evaluated", "rule_applied",
		"rule_evaluated", "rule_applied",
		"pass_completed",
	}, callbacks)
	assert.Contains(t, failures[4].ContextMap()["error"], "pass exploded")
}

func TestErrors_Messages(t *testing.T) {
	cause := fmt.Errorf("missing field")

	condErr := &ConditionError{Rule: "age", Position: 2, Cause: cause}
	assert.Equal(t, `rule "age" (position 2): evaluation failed: missing field`, condErr.Error())

	appErr := &ApplicationError{Rule: "age", Position: 0, Cause: cause}
	assert.Equal(t, `rule "age" (position 0): application failed: missing field`, appErr.Error())

	hookErr := &HookError{Rule: "age", Position: 1, Phase: PhaseAfterApply, Cause: cause}
	assert.Equal(t, `rule "age" (position 1): after_apply hook failed: missing field`, hookErr.Error())

	for _, err := range []error{condErr, appErr, hookErr} {
		name, ok := RuleName(fmt.Errorf("wrapped: %w", err))
		assert.True(t, ok)
		assert.Equal(t, "age", name)
	}

	_, ok := RuleName(cause)
	assert.False(t, ok)
}

func TestParseHookErrorPolicy(t *testing.T) {
	for _, p := range []HookErrorPolicy{HookErrorLog, HookErrorIgnore, HookErrorPropagate} {
		parsed, err := ParseHookErrorPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	parsed, err := ParseHookErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, HookErrorLog, parsed)

	_, err = ParseHookErrorPolicy("explode")
	assert.Error(t, err)
}
