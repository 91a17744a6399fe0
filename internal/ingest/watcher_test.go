package ingest

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// changeRecorder collects onChange callback invocations.
type changeRecorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *changeRecorder) onChange(paths []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, paths)
}

func (r *changeRecorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *changeRecorder) allPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, call := range r.calls {
		out = append(out, call...)
	}
	return out
}

// pollUntil polls cond every 10ms until it returns true or the
// deadline passes.
func pollUntil(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestNewWatcherRequiresCallback(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, nil)
	require.Error(t, err)
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &changeRecorder{}

	w, err := NewWatcher(20*time.Millisecond, rec.onChange)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))
	w.Start()
	defer w.Stop()

	path := filepath.Join(dir, "session.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	ok := pollUntil(t, 2*time.Second, func() bool {
		return rec.callCount() > 0
	})
	require.True(t, ok, "watcher never fired")
	assert.Contains(t, rec.allPaths(), path)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	rec := &changeRecorder{}

	w, err := NewWatcher(50*time.Millisecond, rec.onChange)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))
	w.Start()
	defer w.Stop()

	path := filepath.Join(dir, "session.jsonl")
	f, err := os.Create(path)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := f.WriteString("{}\n")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	ok := pollUntil(t, 2*time.Second, func() bool {
		return rec.callCount() > 0
	})
	require.True(t, ok, "watcher never fired")

	// The burst lands well inside one debounce window, so the
	// path is reported once, not ten times.
	count := rec.callCount()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, count, rec.callCount())
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	rec := &changeRecorder{}
	w, err := NewWatcher(10*time.Millisecond, rec.onChange)
	require.NoError(t, err)
	w.Start()

	w.Stop()
	w.Stop()
}
