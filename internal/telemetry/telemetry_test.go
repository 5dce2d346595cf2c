package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"

	"github.com/aescanero/dago-rulekit/pkg/rulekit"
)

type counter struct {
	N int
}

type stubRule struct {
	rulekit.NoopHooks[counter]
	name     string
	priority uint32
	matches  bool
	evalErr  error
	applyErr error
}

func (r *stubRule) Name() string     { return r.name }
func (r *stubRule) Priority() uint32 { return r.priority }

func (r *stubRule) Evaluate(*counter) (bool, error) {
	return r.matches, r.evalErr
}

func (r *stubRule) Apply(c *counter) error {
	if r.applyErr != nil {
		return r.applyErr
	}
	c.N++
	return nil
}

func TestLoggingHook(t *testing.T) {
	core, logs := zapobserver.New(zapcore.DebugLevel)

	engine := rulekit.New([]rulekit.Rule[counter]{
		&stubRule{name: "inc", priority: 7, matches: true},
		&stubRule{name: "skip"},
	}, rulekit.Unordered, rulekit.WithHook[counter](NewLoggingHook[counter](zap.New(core))))

	var c counter
	require.NoError(t, engine.EvaluateAll(&c))
	assert.Equal(t, 1, c.N)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "applying rule", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "rule applied", entries[1].Message)
	assert.Equal(t, "inc", entries[1].ContextMap()["rule"])
	assert.Equal(t, uint32(7), entries[1].ContextMap()["priority"])
}

func TestLoggingHook_NilLogger(t *testing.T) {
	hook := NewLoggingHook[counter](nil)
	assert.NoError(t, hook.BeforeApply(&stubRule{name: "x"}, &counter{}))
	assert.NoError(t, hook.AfterApply(&stubRule{name: "x"}, &counter{}))
}

func TestObserver_RecordsPass(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	engine := rulekit.New([]rulekit.Rule[counter]{
		&stubRule{name: "inc", matches: true},
		&stubRule{name: "skip"},
	}, rulekit.Unordered, rulekit.WithObserver(NewObserver[counter](m)))

	var c counter
	require.NoError(t, engine.EvaluateAll(&c))
	require.NoError(t, engine.EvaluateAll(&c))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluationsTotal.WithLabelValues("inc", "matched")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluationsTotal.WithLabelValues("skip", "skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.applicationsTotal.WithLabelValues("inc", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.passDuration))
}

func TestObserver_RecordsErrors(t *testing.T) {
	m := NewMetrics(nil)
	boom := errors.New("boom")

	engine := rulekit.New([]rulekit.Rule[counter]{
		&stubRule{name: "bad-apply", matches: true, applyErr: boom},
	}, rulekit.Unordered, rulekit.WithObserver(NewObserver[counter](m)))

	var c counter
	require.Error(t, engine.EvaluateAll(&c))

	engine = rulekit.New([]rulekit.Rule[counter]{
		&stubRule{name: "bad-eval", evalErr: boom},
	}, rulekit.Unordered, rulekit.WithObserver(NewObserver[counter](m)))
	require.Error(t, engine.EvaluateAll(&c))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.applicationsTotal.WithLabelValues("bad-apply", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluationsTotal.WithLabelValues("bad-eval", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.passesTotal.WithLabelValues("error")))
}

func TestMetrics_RecordReload(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordReload(4, nil)
	m.RecordReload(9, errors.New("bad file"))

	assert.Equal(t, 4.0, testutil.ToFloat64(m.rulesLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloadsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reloadsTotal.WithLabelValues("error")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordReload(3, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rulekit_rules_loaded 3")
}
