package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scx-power-sync/scx-power-sync/internal/logging"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchWarnsOnChange(t *testing.T) {
	t.Setenv(logging.LevelEnv, "")
	logging.Shutdown()
	var out lockedBuffer
	logging.Init(logging.Config{Output: &out, Format: "json"})
	defer logging.Shutdown()

	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", sampleTOML)
	other := filepath.Join(dir, "unrelated.txt")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path) }()

	// The watcher registers asynchronously; keep touching the file until
	// the warning shows up.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(other, []byte("x"), 0o644)
		_ = os.WriteFile(path, []byte(sampleTOML), 0o644)
		return strings.Contains(out.String(), "config_changed_restart_required")
	}, 5*time.Second, 50*time.Millisecond)

	assert.NotContains(t, out.String(), "unrelated.txt")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchMissingDirectoryIsNotFatal(t *testing.T) {
	t.Setenv(logging.LevelEnv, "")
	logging.Shutdown()
	var out lockedBuffer
	logging.Init(logging.Config{Output: &out, Format: "json"})
	defer logging.Shutdown()

	err := Watch(context.Background(), filepath.Join(t.TempDir(), "gone", "config.toml"))
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "config_watch_unavailable")
}
