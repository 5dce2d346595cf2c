package rulekit

import "errors"

var errBoom = errors.New("boom")

type recorder struct {
	calls []string
}

func (r *recorder) record(call string) {
	r.calls = append(r.calls, call)
}

type counterState struct {
	Value   int
	Applied []string
}

type testRule struct {
	name         string
	priority     uint32
	matches      bool
	evalErr      error
	applyErr     error
	hookPanic    bool
	rec          *recorder
	applications int
}

func (r *testRule) Name() string {
	return r.name
}

func (r *testRule) Priority() uint32 {
	return r.priority
}

func (r *testRule) Evaluate(*counterState) (bool, error) {
	r.rec.record(r.name + ":evaluate")
	return r.matches, r.evalErr
}

func (r *testRule) Apply(s *counterState) error {
	r.rec.record(r.name + ":apply")
	r.applications++
	s.Value++
	s.Applied = append(s.Applied, r.name)
	return r.applyErr
}

func (r *testRule) BeforeApply(*counterState) {
	r.rec.record(r.name + ":before")
	if r.hookPanic {
		panic("hook exploded")
	}
}

func (r *testRule) AfterApply(*counterState) {
	r.rec.record(r.name + ":after")
}

func newRule(rec *recorder, name string, priority uint32) *testRule {
	return &testRule{name: name, priority: priority, matches: true, rec: rec}
}

func names(rules []Rule[counterState]) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name()
	}
	return out
}
