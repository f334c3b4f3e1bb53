package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Store is the configuration collaborator used by the watcher manager.
// Reads always go back to disk; writes are limited to the auto-index flag.
type Store struct {
	loader *Loader
	mu     sync.Mutex // serializes writes to the config file
}

// NewStore creates a store on top of a loader.
func NewStore(loader *Loader) *Store {
	return &Store{loader: loader}
}

// Loader returns the underlying loader.
func (s *Store) Loader() *Loader {
	return s.loader
}

// LoadConfig reads the full configuration synchronously.
func (s *Store) LoadConfig() (*Config, error) {
	return s.loader.Load()
}

// CurrentIndexConfig re-reads the configuration and returns the index section.
func (s *Store) CurrentIndexConfig(ctx context.Context) (*IndexConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, err := s.loader.Load()
	if err != nil {
		return nil, err
	}
	return &cfg.Index, nil
}

// SetAutoIndexEnabled persists the global auto-index flag so it survives
// restarts. Other keys already present in the file are preserved.
func (s *Store) SetAutoIndexEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.loader.Dir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := s.loader.ConfigPath()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	v.Set("auto_index.enabled", enabled)

	// Write to a temporary file first, then rename to prevent partial state
	tmpPath := filepath.Join(s.loader.Dir(), "config.tmp.yml")
	if err := v.WriteConfigAs(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary config file: %w", err)
	}

	return nil
}
