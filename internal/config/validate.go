package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrInvalidDebounce indicates a negative debounce window
	ErrInvalidDebounce = errors.New("invalid debounce window")

	// ErrInvalidQueueSize indicates a non-positive trigger queue size
	ErrInvalidQueueSize = errors.New("invalid queue size")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidExtension indicates a text extension without a leading dot
	ErrInvalidExtension = errors.New("invalid text extension")

	// ErrInvalidFileSize indicates a non-positive max file size
	ErrInvalidFileSize = errors.New("invalid max file size")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateAutoIndex(&cfg.AutoIndex); err != nil {
		errs = append(errs, err)
	}

	if err := ValidateIndex(&cfg.Index); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateAutoIndex(cfg *AutoIndexConfig) error {
	var errs []error

	if cfg.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms must be >= 0, got %d", ErrInvalidDebounce, cfg.DebounceMs))
	}

	if cfg.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: queue_size must be > 0, got %d", ErrInvalidQueueSize, cfg.QueueSize))
	}

	if err := validatePatterns("auto_index.ignore_patterns", cfg.IgnorePatterns); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ValidateIndex checks an index configuration on its own. Callers that
// receive an IndexConfig from outside the loader (MCP, tests) use this.
func ValidateIndex(cfg *IndexConfig) error {
	var errs []error

	for _, ext := range cfg.TextExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("%w: %q must start with '.'", ErrInvalidExtension, ext))
		}
	}

	if err := validatePatterns("index.exclude_patterns", cfg.ExcludePatterns); err != nil {
		errs = append(errs, err)
	}

	if cfg.MaxFileSizeKB <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_file_size_kb must be > 0, got %d", ErrInvalidFileSize, cfg.MaxFileSizeKB))
	}

	return errors.Join(errs...)
}

func validatePatterns(field string, patterns []string) error {
	var errs []error
	for _, p := range patterns {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %q: %v", ErrInvalidPattern, field, p, err))
		}
	}
	return errors.Join(errs...)
}
