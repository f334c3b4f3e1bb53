// Package config provides configuration loading for autoindex.
//
// Configuration lives in a single machine-wide file (~/.autoindex/config.yml)
// and is layered as follows (highest to lowest priority):
//  1. Environment variables (AUTOINDEX_*)
//  2. Config file (<dir>/config.yml)
//  3. Built-in defaults
//
// Nested keys map to environment variables with underscores, e.g.
// AUTOINDEX_AUTO_INDEX_ENABLED=false or AUTOINDEX_INDEX_CACHE_DIR=/tmp/idx.
//
// The file is re-read on every Load, so long-running watchers pick up edits
// without a restart.
package config

import (
	"os"
	"path/filepath"
)

// DirName is the directory under the user's home holding config and cache.
const DirName = ".autoindex"

// Config represents the complete autoindex configuration.
type Config struct {
	AutoIndex AutoIndexConfig `yaml:"auto_index" mapstructure:"auto_index"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
}

// AutoIndexConfig controls the file watcher and trigger behavior.
type AutoIndexConfig struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`                 // Global auto-index switch
	DebounceMs     int      `yaml:"debounce_ms" mapstructure:"debounce_ms"`         // Quiet period before a trigger fires
	QueueSize      int      `yaml:"queue_size" mapstructure:"queue_size"`           // Pending trigger signals per project
	IgnorePatterns []string `yaml:"ignore_patterns" mapstructure:"ignore_patterns"` // Globs (relative to project root) that never trigger
}

// IndexConfig is handed to the indexer on every trigger.
type IndexConfig struct {
	CacheDir        string   `yaml:"cache_dir" mapstructure:"cache_dir"`               // Where index manifests are stored
	TextExtensions  []string `yaml:"text_extensions" mapstructure:"text_extensions"`   // Extensions considered indexable (with leading dot)
	ExcludePatterns []string `yaml:"exclude_patterns" mapstructure:"exclude_patterns"` // Globs excluded from indexing
	MaxFileSizeKB   int      `yaml:"max_file_size_kb" mapstructure:"max_file_size_kb"` // Files larger than this are skipped
}

// Default returns a configuration with sensible defaults.
// CacheDir is left empty; the loader fills it relative to the config dir.
func Default() *Config {
	return &Config{
		AutoIndex: AutoIndexConfig{
			Enabled:    true,
			DebounceMs: 180000,
			QueueSize:  100,
			IgnorePatterns: []string{
				".git/**",
				".autoindex/**",
				"node_modules/**",
				"target/**",
				"*.swp",
				"**/*.swp",
				"*~",
				"**/*~",
			},
		},
		Index: IndexConfig{
			CacheDir: "",
			TextExtensions: []string{
				".go", ".rs", ".py", ".js", ".jsx", ".ts", ".tsx",
				".java", ".c", ".h", ".cpp", ".hpp", ".cs", ".rb",
				".php", ".swift", ".kt", ".scala", ".sh", ".sql",
				".md", ".txt", ".json", ".yaml", ".yml", ".toml",
				".html", ".css", ".vue",
			},
			ExcludePatterns: []string{
				".git/**",
				".autoindex/**",
				"node_modules/**",
				"vendor/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				".venv/**",
			},
			MaxFileSizeKB: 512,
		},
	}
}

// DefaultDir returns ~/.autoindex.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// Clone returns a deep copy of the index configuration.
func (c *IndexConfig) Clone() *IndexConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.TextExtensions = append([]string(nil), c.TextExtensions...)
	out.ExcludePatterns = append([]string(nil), c.ExcludePatterns...)
	return &out
}
