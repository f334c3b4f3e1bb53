package watcher

import (
	"context"

	"github.com/mvp-joe/autoindex/internal/config"
)

// ConfigSource is the configuration collaborator.
type ConfigSource interface {
	// LoadConfig reads the persisted configuration synchronously.
	// Used once at manager construction for the auto-index flag.
	LoadConfig() (*config.Config, error)

	// CurrentIndexConfig returns the latest index configuration.
	// Called on every trigger so edits apply without restarting watches.
	CurrentIndexConfig(ctx context.Context) (*config.IndexConfig, error)
}

// Indexer is the indexing collaborator.
type Indexer interface {
	// UpdateIndex re-indexes projectRoot, a canonical native path (see
	// CanonicalPath), and returns the identifiers of the produced artifacts.
	UpdateIndex(ctx context.Context, cfg *config.IndexConfig, projectRoot string) ([]string, error)
}

// IndexerFunc adapts a plain function to the Indexer interface.
type IndexerFunc func(ctx context.Context, cfg *config.IndexConfig, projectRoot string) ([]string, error)

// UpdateIndex calls f(ctx, cfg, projectRoot).
func (f IndexerFunc) UpdateIndex(ctx context.Context, cfg *config.IndexConfig, projectRoot string) ([]string, error) {
	return f(ctx, cfg, projectRoot)
}
