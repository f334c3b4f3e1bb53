// Package indexer provides BlobIndexer, a content-addressed project indexer
// that records which blob every text file of a project maps to.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/mvp-joe/autoindex/internal/config"
)

// LockFileName guards manifest writes across processes.
const LockFileName = "manifest.lock"

const lockRetryDelay = 50 * time.Millisecond

// BlobIndexer walks a project, hashes its text files into blobs and syncs the
// result into the manifest of the configured cache directory. It satisfies
// the watcher's Indexer interface.
type BlobIndexer struct {
	progress ProgressReporter
	verbose  bool
}

// IndexerOption configures a BlobIndexer.
type IndexerOption func(*BlobIndexer)

// WithProgress sets the progress reporter.
func WithProgress(p ProgressReporter) IndexerOption {
	return func(b *BlobIndexer) {
		if p != nil {
			b.progress = p
		}
	}
}

// WithVerbose enables per-run summary logging.
func WithVerbose(verbose bool) IndexerOption {
	return func(b *BlobIndexer) { b.verbose = verbose }
}

// NewBlobIndexer creates an indexer. Without WithProgress it reports nothing.
func NewBlobIndexer(opts ...IndexerOption) *BlobIndexer {
	b := &BlobIndexer{progress: &NoOpProgressReporter{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// UpdateIndex indexes projectRoot and returns the names of all its current
// blobs, sorted by file path.
func (b *BlobIndexer) UpdateIndex(ctx context.Context, cfg *config.IndexConfig, projectRoot string) ([]string, error) {
	stats, blobs, err := b.Index(ctx, cfg, projectRoot)
	if err != nil {
		return nil, err
	}
	if b.verbose {
		log.Printf("Indexed %d files (%d added, %d removed, %d unchanged)",
			stats.FilesIndexed, stats.BlobsAdded, stats.BlobsRemoved, stats.BlobsUnchanged)
	}
	return blobs, nil
}

// Index is UpdateIndex returning the run statistics as well.
func (b *BlobIndexer) Index(ctx context.Context, cfg *config.IndexConfig, projectRoot string) (*Stats, []string, error) {
	if cfg == nil {
		return nil, nil, errors.New("index config cannot be nil")
	}
	if err := config.ValidateIndex(cfg); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	// Manifest rows are keyed like the watcher keys projects
	projectKey := strings.ReplaceAll(projectRoot, "\\", "/")

	info, err := os.Stat(projectRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat project root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("project root is not a directory: %s", projectRoot)
	}

	cacheDir, err := resolveCacheDir(cfg.CacheDir)
	if err != nil {
		return nil, nil, err
	}

	discovery, err := NewFileDiscovery(projectRoot, cfg.TextExtensions, cfg.ExcludePatterns, cfg.MaxFileSizeKB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	b.progress.OnDiscoveryStart()
	files, err := discovery.DiscoverFiles(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover files: %w", err)
	}
	b.progress.OnDiscoveryComplete(len(files))

	entries := make([]BlobEntry, 0, len(files))
	stats := &Stats{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		content, err := os.ReadFile(f.AbsPath)
		if err != nil {
			// Deleted between discovery and read
			log.Printf("Warning: failed to read %s: %v", f.RelPath, err)
			continue
		}

		entries = append(entries, BlobEntry{
			FilePath: f.RelPath,
			BlobName: BlobName(f.RelPath, content),
			Size:     int64(len(content)),
		})
		stats.TotalBytes += int64(len(content))
		b.progress.OnFileProcessed(f.RelPath)
	}

	result, err := syncManifest(ctx, cacheDir, projectKey, entries)
	if err != nil {
		return nil, nil, err
	}

	stats.FilesIndexed = len(entries)
	stats.BlobsAdded = result.Added
	stats.BlobsRemoved = result.Removed
	stats.BlobsUnchanged = result.Unchanged
	stats.ProcessingTimeSeconds = time.Since(start).Seconds()
	b.progress.OnComplete(stats)

	blobs := make([]string, len(entries))
	for i, e := range entries {
		blobs[i] = e.BlobName
	}

	return stats, blobs, nil
}

// syncManifest writes entries under the cache directory's file lock.
func syncManifest(ctx context.Context, cacheDir, projectKey string, entries []BlobEntry) (SyncResult, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return SyncResult{}, fmt.Errorf("failed to create cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(cacheDir, LockFileName))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return SyncResult{}, fmt.Errorf("failed to acquire manifest lock: %w", err)
	}
	if !locked {
		return SyncResult{}, errors.New("failed to acquire manifest lock")
	}
	defer lock.Unlock()

	manifest, err := OpenManifest(cacheDir)
	if err != nil {
		return SyncResult{}, err
	}
	defer manifest.Close()

	return manifest.Sync(ctx, projectKey, entries)
}

func resolveCacheDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	base, err := config.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "cache"), nil
}
