package dsl

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const oneRule = "rules:\n  - name: a\n    when: 'true'\n"
const twoRules = "rules:\n  - name: a\n    when: 'true'\n  - name: b\n    when: 'false'\n"

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rules.yaml", oneRule)

	core, logs := observer.New(zapcore.DebugLevel)
	w, err := NewWatcher(path, WithDebounce(20*time.Millisecond), WithWatchLogger(zap.New(core)))
	require.NoError(t, err)

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, abs, w.Path())

	var (
		mu    sync.Mutex
		sizes []int
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(set *RuleSet) error {
			mu.Lock()
			defer mu.Unlock()
			sizes = append(sizes, len(set.Rules))
			return nil
		})
	}()

	// invalid content is reported and skipped
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - when: 'true'\n"), 0o644))
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("failed to reload rules, keeping previous set").Len() > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(twoRules), 0o644))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sizes) > 0 && sizes[len(sizes)-1] == 2
	}, 2*time.Second, 10*time.Millisecond)

	// other files in the directory are ignored
	writeFile(t, dir, "other.yaml", twoRules)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, n := range sizes {
		assert.Equal(t, 2, n)
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "rules.yaml"))
	require.Error(t, err)
}
