package indexer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

// ManifestFileName is the SQLite database kept in the cache directory.
const ManifestFileName = "manifest.db"

const createBlobsTable = `
CREATE TABLE IF NOT EXISTS blobs (
	project_key TEXT NOT NULL,
	file_path   TEXT NOT NULL,
	blob_name   TEXT NOT NULL,
	size_bytes  INTEGER NOT NULL,
	indexed_at  TEXT NOT NULL,
	PRIMARY KEY (project_key, file_path)
)`

const createBlobsIndex = `CREATE INDEX IF NOT EXISTS idx_blobs_project ON blobs(project_key)`

// BlobEntry is one file recorded in the manifest.
type BlobEntry struct {
	FilePath string
	BlobName string
	Size     int64
}

// SyncResult summarizes how a manifest sync changed a project's blobs.
type SyncResult struct {
	Added     int
	Removed   int
	Unchanged int
}

// Manifest tracks which blob each project file currently maps to.
type Manifest struct {
	db *sql.DB
}

// OpenManifest opens (creating if needed) the manifest in cacheDir.
func OpenManifest(cacheDir string) (*Manifest, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(cacheDir, ManifestFileName)+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}

	for _, ddl := range []string{createBlobsTable, createBlobsIndex} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create manifest schema: %w", err)
		}
	}

	return &Manifest{db: db}, nil
}

// Close closes the database.
func (m *Manifest) Close() error {
	return m.db.Close()
}

// Blobs returns the recorded entries of a project keyed by file path.
func (m *Manifest) Blobs(ctx context.Context, projectKey string) (map[string]BlobEntry, error) {
	rows, err := sq.Select("file_path", "blob_name", "size_bytes").
		From("blobs").
		Where(sq.Eq{"project_key": projectKey}).
		RunWith(m.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query blobs: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]BlobEntry)
	for rows.Next() {
		var e BlobEntry
		if err := rows.Scan(&e.FilePath, &e.BlobName, &e.Size); err != nil {
			return nil, fmt.Errorf("failed to scan blob row: %w", err)
		}
		entries[e.FilePath] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blobs: %w", err)
	}
	return entries, nil
}

// Sync replaces the recorded blobs of a project with current in one
// transaction: changed or new files are upserted, vanished files deleted.
func (m *Manifest) Sync(ctx context.Context, projectKey string, current []BlobEntry) (SyncResult, error) {
	var result SyncResult

	previous, err := m.Blobs(ctx, projectKey)
	if err != nil {
		return result, err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin manifest transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	now := time.Now().UTC().Format(time.RFC3339)
	seen := make(map[string]struct{}, len(current))

	for _, e := range current {
		seen[e.FilePath] = struct{}{}
		if prev, ok := previous[e.FilePath]; ok && prev.BlobName == e.BlobName {
			result.Unchanged++
			continue
		}

		_, err := sq.Insert("blobs").
			Columns("project_key", "file_path", "blob_name", "size_bytes", "indexed_at").
			Values(projectKey, e.FilePath, e.BlobName, e.Size, now).
			Options("OR REPLACE").
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to write blob for %s: %w", e.FilePath, err)
		}
		result.Added++
	}

	for path := range previous {
		if _, ok := seen[path]; ok {
			continue
		}
		_, err := sq.Delete("blobs").
			Where(sq.Eq{"project_key": projectKey, "file_path": path}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to delete blob for %s: %w", path, err)
		}
		result.Removed++
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("failed to commit manifest: %w", err)
	}
	return result, nil
}
