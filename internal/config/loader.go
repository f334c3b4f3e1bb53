package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigFileName is the config file name inside the config directory.
const ConfigFileName = "config.yml"

// Loader reads configuration from a config directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader for the given config directory.
// An empty dir means ~/.autoindex.
func NewLoader(dir string) (*Loader, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = d
	}
	return &Loader{dir: dir}, nil
}

// Dir returns the config directory.
func (l *Loader) Dir() string {
	return l.dir
}

// ConfigPath returns the full path of the config file.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.dir, ConfigFileName)
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (AUTOINDEX_*)
// 2. Config file (<dir>/config.yml)
// 3. Default values
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(l.dir)

	v.SetEnvPrefix("AUTOINDEX")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)
	setDefaults(v, l.dir)

	// Config file not found is acceptable - defaults + env vars apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// bindEnvVars binds all environment variables to config keys.
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("auto_index.enabled")
	v.BindEnv("auto_index.debounce_ms")
	v.BindEnv("auto_index.queue_size")
	v.BindEnv("auto_index.ignore_patterns")

	v.BindEnv("index.cache_dir")
	v.BindEnv("index.text_extensions")
	v.BindEnv("index.exclude_patterns")
	v.BindEnv("index.max_file_size_kb")
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper, dir string) {
	defaults := Default()

	v.SetDefault("auto_index.enabled", defaults.AutoIndex.Enabled)
	v.SetDefault("auto_index.debounce_ms", defaults.AutoIndex.DebounceMs)
	v.SetDefault("auto_index.queue_size", defaults.AutoIndex.QueueSize)
	v.SetDefault("auto_index.ignore_patterns", defaults.AutoIndex.IgnorePatterns)

	v.SetDefault("index.cache_dir", filepath.Join(dir, "cache"))
	v.SetDefault("index.text_extensions", defaults.Index.TextExtensions)
	v.SetDefault("index.exclude_patterns", defaults.Index.ExcludePatterns)
	v.SetDefault("index.max_file_size_kb", defaults.Index.MaxFileSizeKB)
}
