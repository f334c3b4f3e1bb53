package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mvp-joe/autoindex/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for BlobIndexer:
// - BlobName depends on both path and content
// - UpdateIndex returns one blob per selected file, in path order
// - Re-indexing an unchanged project reports everything unchanged
// - Edits and deletions are reflected in blobs and stats
// - Progress callbacks fire for discovery, each file and completion
// - Nil config, invalid config and missing root are errors
// - Concurrent runs on one cache directory serialize on the manifest lock

func testIndexConfig(t *testing.T) *config.IndexConfig {
	t.Helper()
	cfg := config.Default().Index
	cfg.CacheDir = t.TempDir()
	return &cfg
}

type recordingProgress struct {
	mu         sync.Mutex
	discovered int
	processed  []string
	completed  *Stats
	started    bool
}

func (r *recordingProgress) OnDiscoveryStart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = true
}

func (r *recordingProgress) OnDiscoveryComplete(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovered = n
}

func (r *recordingProgress) OnFileProcessed(relPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, relPath)
}

func (r *recordingProgress) OnComplete(stats *Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = stats
}

func TestBlobName(t *testing.T) {
	t.Parallel()

	a := BlobName("a.go", []byte("package a"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, BlobName("a.go", []byte("package a")))
	assert.NotEqual(t, a, BlobName("b.go", []byte("package a")), "path is part of the blob identity")
	assert.NotEqual(t, a, BlobName("a.go", []byte("package b")))
}

func TestBlobIndexer_UpdateIndex(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":           "package main",
		"docs/guide.md":     "# guide",
		"node_modules/x.js": "ignored",
		"logo.png":          "binary",
	})

	cfg := testIndexConfig(t)
	blobs, err := NewBlobIndexer().UpdateIndex(context.Background(), cfg, root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		BlobName("docs/guide.md", []byte("# guide")),
		BlobName("main.go", []byte("package main")),
	}, blobs)

	_, err = os.Stat(filepath.Join(cfg.CacheDir, ManifestFileName))
	assert.NoError(t, err)
}

func TestBlobIndexer_IncrementalStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go": "package a",
		"b.go": "package b",
	})

	cfg := testIndexConfig(t)
	idx := NewBlobIndexer()

	stats, _, err := idx.Index(ctx, cfg, root)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Equal(t, 2, stats.BlobsAdded)

	stats, _, err = idx.Index(ctx, cfg, root)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.BlobsAdded)
	assert.Equal(t, 2, stats.BlobsUnchanged)

	writeTree(t, root, map[string]string{"a.go": "package a // edited"})
	require.NoError(t, os.Remove(filepath.Join(root, "b.go")))

	stats, blobs, err := idx.Index(ctx, cfg, root)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.BlobsAdded)
	assert.Equal(t, 1, stats.BlobsRemoved)
	assert.Equal(t, []string{BlobName("a.go", []byte("package a // edited"))}, blobs)
}

func TestBlobIndexer_ReportsProgress(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go":     "package a",
		"pkg/b.go": "package pkg",
	})

	progress := &recordingProgress{}
	_, err := NewBlobIndexer(WithProgress(progress)).UpdateIndex(context.Background(), testIndexConfig(t), root)
	require.NoError(t, err)

	assert.True(t, progress.started)
	assert.Equal(t, 2, progress.discovered)
	assert.Equal(t, []string{"a.go", "pkg/b.go"}, progress.processed)
	require.NotNil(t, progress.completed)
	assert.Equal(t, 2, progress.completed.FilesIndexed)
}

func TestBlobIndexer_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := NewBlobIndexer()

	_, err := idx.UpdateIndex(ctx, nil, t.TempDir())
	assert.Error(t, err)

	bad := testIndexConfig(t)
	bad.MaxFileSizeKB = 0
	_, err = idx.UpdateIndex(ctx, bad, t.TempDir())
	assert.ErrorIs(t, err, config.ErrInvalidFileSize)

	_, err = idx.UpdateIndex(ctx, testIndexConfig(t), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.go")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = idx.UpdateIndex(ctx, testIndexConfig(t), file)
	assert.Error(t, err)
}

func TestBlobIndexer_ConcurrentRunsShareCache(t *testing.T) {
	t.Parallel()

	cfg := testIndexConfig(t)
	roots := make([]string, 4)
	for i := range roots {
		roots[i] = t.TempDir()
		writeTree(t, roots[i], map[string]string{"main.go": "package main"})
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(roots))
	for _, root := range roots {
		wg.Add(1)
		go func(root string) {
			defer wg.Done()
			_, err := NewBlobIndexer().UpdateIndex(context.Background(), cfg.Clone(), root)
			errs <- err
		}(root)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	m := openTestManifest(t, cfg.CacheDir)
	for _, root := range roots {
		blobs, err := m.Blobs(context.Background(), root)
		require.NoError(t, err)
		assert.Len(t, blobs, 1)
	}
}
