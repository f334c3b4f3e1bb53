package cli

// Test Plan for CLI commands:
// - enable/disable persist the flag and report the config path
// - status prints the flag and settings; --json emits parseable output
// - status fails on a malformed config file
// - index hashes a project into the manifest under the cache dir
// - index of a missing path fails
// - watch prints the watched key and returns when the context is cancelled
// - watch with auto-index disabled returns without watching
// - watch of a missing path fails
// - cancelling watch lets an in-flight run finish with a live context

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mvp-joe/autoindex/internal/config"
	"github.com/mvp-joe/autoindex/internal/indexer"
	"github.com/mvp-joe/autoindex/internal/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config.yml with an explicit cache dir into a fresh
// config directory and returns the directory.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := "index:\n  cache_dir: " + filepath.ToSlash(filepath.Join(dir, "cache")) + "\n" + extra
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(content), 0644))
	return dir
}

func TestRunSetEnabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, runSetEnabled(&out, dir, false))
	assert.Contains(t, out.String(), "Auto-index disabled")
	assert.Contains(t, out.String(), filepath.Join(dir, config.ConfigFileName))

	store, err := openStore(dir)
	require.NoError(t, err)
	cfg, err := store.LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.AutoIndex.Enabled)

	out.Reset()
	require.NoError(t, runSetEnabled(&out, dir, true))
	assert.Contains(t, out.String(), "Auto-index enabled")

	cfg, err = store.LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.AutoIndex.Enabled)
}

func TestRunStatus(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "auto_index:\n  debounce_ms: 5000\n")

	var out bytes.Buffer
	require.NoError(t, runStatus(&out, dir, false))
	assert.Contains(t, out.String(), "Auto-index:  enabled")
	assert.Contains(t, out.String(), "Debounce:    5s")

	out.Reset()
	require.NoError(t, runStatus(&out, dir, true))

	var status statusOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	assert.True(t, status.Enabled)
	assert.Equal(t, "5s", status.Debounce)
	assert.Equal(t, 100, status.QueueSize)
	assert.NotEmpty(t, status.IgnorePatterns)
}

func TestRunStatus_MalformedConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte("auto_index: [\n"), 0644))

	err := runStatus(&bytes.Buffer{}, dir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestRunIndex(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "")
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "main.go"), []byte("package main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(project, "README.md"), []byte("# hi"), 0644))

	require.NoError(t, runIndex(context.Background(), &bytes.Buffer{}, dir, project, true))

	m, err := indexer.OpenManifest(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	defer m.Close()

	blobs, err := m.Blobs(context.Background(), watcher.NormalizeKey(project).String())
	require.NoError(t, err)
	assert.Len(t, blobs, 2)
}

func TestRunIndex_MissingPath(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "")
	err := runIndex(context.Background(), &bytes.Buffer{}, dir, filepath.Join(t.TempDir(), "missing"), true)
	assert.Error(t, err)
}

func TestRunWatch_UntilCancelled(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "")
	project := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, runWatch(ctx, &out, dir, []string{project}, time.Second, false))

	assert.Contains(t, out.String(), "Watching "+watcher.NormalizeKey(project).String())
	assert.Contains(t, out.String(), "Stopping watches")
}

func TestRunWatch_Disabled(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "auto_index:\n  enabled: false\n")

	var out bytes.Buffer
	require.NoError(t, runWatch(context.Background(), &out, dir, []string{t.TempDir()}, time.Second, false))
	assert.Contains(t, out.String(), "Auto-index is disabled")
}

func TestRunWatch_MissingPath(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "")
	err := runWatch(context.Background(), &bytes.Buffer{}, dir, []string{filepath.Join(t.TempDir(), "missing")}, time.Second, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, watcher.ErrWatchAttach)
}

func TestWatch_InterruptLetsInFlightRunFinish(t *testing.T) {
	t.Parallel()

	dir := writeConfig(t, "")
	project := t.TempDir()

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	runCtxErr := make(chan error, 1)
	idx := watcher.IndexerFunc(func(ctx context.Context, cfg *config.IndexConfig, root string) ([]string, error) {
		started <- struct{}{}
		<-release
		runCtxErr <- ctx.Err()
		return []string{"blob"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- watchWith(ctx, &bytes.Buffer{}, dir, []string{project}, time.Minute, true, idx)
	}()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("initial run never started")
	}

	// Interrupt while the run is in flight
	cancel()

	select {
	case err := <-done:
		t.Fatalf("watch returned before the in-flight run finished: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after the run finished")
	}
	assert.NoError(t, <-runCtxErr, "in-flight run must not see the interrupt")
}
