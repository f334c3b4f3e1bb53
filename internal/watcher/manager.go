package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mvp-joe/autoindex/internal/config"
	"golang.org/x/sync/singleflight"
)

// DefaultDebounce is used when StartWatching is called without a window.
const DefaultDebounce = 180000 * time.Millisecond

const (
	defaultQueueSize      = 100
	defaultStatusCapacity = 1024
	defaultStatusTTL      = 24 * time.Hour
)

var (
	// ErrWatchAttach indicates the OS watch could not be created or attached.
	ErrWatchAttach = errors.New("failed to attach file watch")

	// ErrManagerClosed is returned by StartWatching after Shutdown.
	ErrManagerClosed = errors.New("watcher manager is shut down")
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	queueSize      int
	ignorePatterns []string
	statusCapacity int
	statusTTL      time.Duration
	verbose        bool
}

// WithQueueSize sets the per-project trigger queue capacity.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithIgnorePatterns overrides the ignore globs from configuration.
func WithIgnorePatterns(patterns []string) Option {
	return func(o *options) { o.ignorePatterns = patterns }
}

// WithStatusTTL sets how long the last run of a project is remembered.
func WithStatusTTL(ttl time.Duration) Option {
	return func(o *options) { o.statusTTL = ttl }
}

// WithVerbose enables debug logging.
func WithVerbose(verbose bool) Option {
	return func(o *options) { o.verbose = verbose }
}

// Manager starts, stops and tracks per-project file watches and owns the
// global auto-index switch. All methods are safe for concurrent use.
type Manager struct {
	ctx     context.Context
	source  ConfigSource
	indexer Indexer
	opts    options

	enabled  atomic.Bool
	registry *registry
	starts   singleflight.Group
	status   *statusStore
	metrics  *RunMetrics

	lifeMu sync.Mutex // orders wg.Add against Shutdown
	closed bool
	wg     sync.WaitGroup
}

// NewManager creates a manager with an empty registry. The auto-index flag
// (and the queue size and ignore globs, unless set by options) come from
// source.LoadConfig; when that fails the flag defaults to enabled.
//
// ctx is handed to config refreshes and indexer calls; cancelling it aborts
// in-flight runs.
func NewManager(ctx context.Context, source ConfigSource, indexer Indexer, opts ...Option) (*Manager, error) {
	if source == nil {
		return nil, errors.New("config source cannot be nil")
	}
	if indexer == nil {
		return nil, errors.New("indexer cannot be nil")
	}

	o := options{
		statusCapacity: defaultStatusCapacity,
		statusTTL:      defaultStatusTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	enabled := true
	defaults := config.Default().AutoIndex
	cfg, err := source.LoadConfig()
	if err != nil {
		log.Printf("Warning: failed to load config, auto-index defaults to enabled: %v", err)
	} else {
		enabled = cfg.AutoIndex.Enabled
		defaults = cfg.AutoIndex
	}

	if o.queueSize <= 0 {
		o.queueSize = defaults.QueueSize
	}
	if o.queueSize <= 0 {
		o.queueSize = defaultQueueSize
	}
	if o.ignorePatterns == nil {
		o.ignorePatterns = defaults.IgnorePatterns
	}
	if o.statusTTL <= 0 {
		o.statusTTL = defaultStatusTTL
	}

	status, err := newStatusStore(o.statusCapacity, o.statusTTL)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		ctx:      ctx,
		source:   source,
		indexer:  indexer,
		opts:     o,
		registry: newRegistry(),
		status:   status,
		metrics:  NewRunMetrics(),
	}
	m.enabled.Store(enabled)
	m.debugf("Auto-index initialized (enabled: %v)", enabled)

	return m, nil
}

// IsAutoIndexEnabled returns the global auto-index flag.
func (m *Manager) IsAutoIndexEnabled() bool {
	return m.enabled.Load()
}

// SetAutoIndexEnabled sets the global flag. Existing watches are not touched
// and the value is not persisted; persisting is up to the caller.
func (m *Manager) SetAutoIndexEnabled(enabled bool) {
	m.enabled.Store(enabled)
	if enabled {
		log.Printf("Global auto-index enabled")
	} else {
		log.Printf("Global auto-index disabled")
	}
}

// StartWatching starts watching projectRoot and re-indexing it after each
// burst of changes followed by debounce of quiet (0 means DefaultDebounce).
//
// It succeeds without doing anything when auto-index is disabled or the
// project is already watched. cfg is the fallback used when the config
// source cannot be read at trigger time.
//
// Concurrent calls for the same project share one attempt, so at most one
// watch is ever built per project.
func (m *Manager) StartWatching(projectRoot string, cfg *config.IndexConfig, debounce time.Duration) error {
	if m.isClosed() {
		return ErrManagerClosed
	}
	if !m.IsAutoIndexEnabled() {
		m.debugf("Auto-index disabled, not watching %s", projectRoot)
		return nil
	}

	root := CanonicalPath(projectRoot)
	key := keyFromPath(root)
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if cfg == nil {
		cfg = &config.Default().Index
	}

	_, err, _ := m.starts.Do(key.String(), func() (any, error) {
		return nil, m.start(key, root, cfg.Clone(), debounce)
	})
	return err
}

// start builds and registers the watch for key, attached to the native path
// root. Runs inside singleflight.
func (m *Manager) start(key ProjectKey, root string, cfg *config.IndexConfig, debounce time.Duration) error {
	if m.registry.Contains(key) {
		m.debugf("[%s] Already watching, skipping", key.Name())
		return nil
	}

	log.Printf("[%s] Starting file watch: %s (debounce %v)", key.Name(), key, debounce)

	d, err := NewDebouncer(root, DebounceOptions{
		Window:         debounce,
		IgnorePatterns: m.opts.ignorePatterns,
		Verbose:        m.opts.verbose,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWatchAttach, key, err)
	}

	p := newPipeline(m.ctx, key, root, cfg, m.source, m.indexer, m.status, m.metrics, m.opts.queueSize, m.opts.verbose)
	entry := &watchEntry{key: key, debouncer: d, pipeline: p}

	m.lifeMu.Lock()
	if m.closed {
		m.lifeMu.Unlock()
		d.Close()
		return ErrManagerClosed
	}
	m.wg.Add(1)
	m.lifeMu.Unlock()

	go func() {
		defer m.wg.Done()
		p.run()
	}()

	if err := d.Start(p.notify); err != nil {
		entry.release()
		return fmt.Errorf("%w: %s: %w", ErrWatchAttach, key, err)
	}

	if !m.registry.InsertIfAbsent(key, entry) {
		entry.release()
		return nil
	}

	// Shutdown may have cleared the registry between the check above and the insert
	if m.isClosed() {
		if e, ok := m.registry.Remove(key); ok {
			e.release()
		}
		return ErrManagerClosed
	}

	log.Printf("[%s] File watch started", key.Name())
	return nil
}

// StopWatching stops the watch for projectRoot. Not watching is not an error.
// An indexing run already in flight is allowed to finish.
func (m *Manager) StopWatching(projectRoot string) error {
	key := NormalizeKey(projectRoot)

	entry, ok := m.registry.Remove(key)
	if !ok {
		m.debugf("[%s] Not watching %s", key.Name(), key)
		return nil
	}

	if err := entry.release(); err != nil {
		return fmt.Errorf("failed to release watch for %s: %w", key, err)
	}

	log.Printf("[%s] File watch stopped", key.Name())
	return nil
}

// StopAll stops every watch and returns how many were stopped.
func (m *Manager) StopAll() int {
	entries := m.registry.Clear()
	if err := releaseAll(entries); err != nil {
		log.Printf("Warning: errors while stopping watches: %v", err)
	}
	log.Printf("Stopped all file watches (%d projects)", len(entries))
	return len(entries)
}

// WatchingProjects returns the keys of all watched projects, sorted.
func (m *Manager) WatchingProjects() []ProjectKey {
	return m.registry.Keys()
}

// IsWatching reports whether projectRoot is watched.
func (m *Manager) IsWatching(projectRoot string) bool {
	return m.registry.Contains(NormalizeKey(projectRoot))
}

// State returns the trigger state of a watched project.
// The second result is false when the project is not watched.
func (m *Manager) State(projectRoot string) (PipelineState, bool) {
	entry, ok := m.registry.Get(NormalizeKey(projectRoot))
	if !ok {
		return StateIdle, false
	}
	return entry.pipeline.State(), true
}

// LastRun returns the most recent indexing run of a project, if remembered.
// Runs stay visible for a while after the project stops being watched.
func (m *Manager) LastRun(projectRoot string) (RunStatus, bool) {
	return m.status.get(NormalizeKey(projectRoot))
}

// Metrics returns run totals across all projects since the manager started.
func (m *Manager) Metrics() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// Trigger queues a manual re-index of a watched project without waiting for
// file changes. It returns false if the project is not watched or its queue
// is full.
func (m *Manager) Trigger(projectRoot string) bool {
	entry, ok := m.registry.Get(NormalizeKey(projectRoot))
	if !ok {
		return false
	}
	return entry.pipeline.enqueue(TriggerManual)
}

// Shutdown stops all watches and waits for in-flight runs to finish or ctx
// to expire. The manager cannot start new watches afterwards.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.lifeMu.Lock()
	m.closed = true
	m.lifeMu.Unlock()

	m.StopAll()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		// Closed here so a timed-out Shutdown still releases the cache once
		// the last run records its status
		m.status.close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for indexing runs: %w", ctx.Err())
	}
}

func (m *Manager) isClosed() bool {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	return m.closed
}

func (m *Manager) debugf(format string, args ...any) {
	if m.opts.verbose {
		log.Printf(format, args...)
	}
}
