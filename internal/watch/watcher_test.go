package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIgnoreEvent(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/site/index.html", false},
		{"/site/.index.html.swp", true},
		{"/site/page.html~", true},
		{"/site/#page.html#", true},
		{"/site/.DS_Store", true},
		{"/site/guide/page.html", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldIgnoreEvent(tt.path), tt.path)
	}
}

func TestWatcher_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "_export")
	require.NoError(t, os.MkdirAll(out, 0o750))

	var rebuilds atomic.Int32
	w, err := New(Config{Root: root, Exclude: []string{out}, QuietWindow: 20 * time.Millisecond, MaxDelay: 200 * time.Millisecond},
		func(context.Context) error {
			rebuilds.Add(1)
			return nil
		})
	require.NoError(t, err)
	assert.True(t, w.excluded(filepath.Join(out, "index.md")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the event loop a moment to start consuming.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<p>x</p>"), 0o600))

	require.Eventually(t, func() bool { return rebuilds.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
