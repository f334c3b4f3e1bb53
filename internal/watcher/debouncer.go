package watcher

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DebounceOptions configures a Debouncer.
type DebounceOptions struct {
	// Window is the quiet period after the last event before a notification fires.
	Window time.Duration

	// IgnorePatterns are globs, relative to the watched root with '/'
	// separators, for paths that never count as changes.
	IgnorePatterns []string

	// Verbose enables per-event debug logging.
	Verbose bool
}

// Debouncer watches a directory tree and emits one coalesced notification
// per burst of filesystem events.
type Debouncer struct {
	root    string
	name    string
	watcher *fsnotify.Watcher
	window  time.Duration
	ignore  []glob.Glob
	verbose bool

	notify    func(events int)
	started   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewDebouncer attaches a recursive watch rooted at root. It fails if the
// root cannot be watched (missing, not a directory, permission denied).
// Sub-directories that cannot be watched are logged and skipped.
func NewDebouncer(root string, opts DebounceOptions) (*Debouncer, error) {
	if opts.Window <= 0 {
		return nil, fmt.Errorf("debounce window must be positive, got %v", opts.Window)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	ignore := make([]glob.Glob, 0, len(opts.IgnorePatterns))
	for _, pattern := range opts.IgnorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		ignore = append(ignore, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	d := &Debouncer{
		root:    root,
		name:    filepath.Base(root),
		watcher: fsw,
		window:  opts.Window,
		ignore:  ignore,
		verbose: opts.Verbose,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	if err := d.addDirectoriesRecursively(root); err != nil {
		fsw.Close()
		return nil, err
	}

	return d, nil
}

// Start begins processing events. notify is called from the debouncer's own
// goroutine, once per coalesced burst, with the number of events coalesced.
// notify must not block.
func (d *Debouncer) Start(notify func(events int)) error {
	if notify == nil {
		return errors.New("notify callback is required")
	}
	select {
	case <-d.stopCh:
		return errors.New("debouncer is closed")
	default:
	}
	if !d.started.CompareAndSwap(false, true) {
		return errors.New("debouncer already started")
	}

	d.notify = notify
	go d.loop()
	return nil
}

// Close stops the event loop, waits for it to exit and releases the OS watch.
// After Close returns, notify is never called again. Safe to call repeatedly.
func (d *Debouncer) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.stopCh)

		if d.started.Load() {
			<-d.doneCh
		} else {
			// Never started, close doneCh manually
			close(d.doneCh)
		}

		err = d.watcher.Close()
	})
	return err
}

// loop is the main event loop.
func (d *Debouncer) loop() {
	defer close(d.doneCh)

	// Go 1.23 timers: Reset/Stop discard any stale expiry, so the channel
	// only ever delivers the expiry of the latest burst.
	timer := time.NewTimer(d.window)
	timer.Stop()
	defer timer.Stop()

	var fire <-chan time.Time
	pending := 0

	for {
		select {
		case <-d.stopCh:
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// New directories must be added explicitly, fsnotify is not recursive
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := d.addDirectoriesRecursively(event.Name); err != nil {
						log.Printf("[%s] Warning: failed to watch new directory %s: %v", d.name, event.Name, err)
					}
				}
			}

			if !d.shouldProcessEvent(event) {
				continue
			}

			pending++
			timer.Reset(d.window)
			fire = timer.C

		case <-fire:
			fire = nil
			if pending == 0 {
				continue
			}
			n := pending
			pending = 0
			if d.verbose {
				log.Printf("[%s] Detected %d file change event(s)", d.name, n)
			}
			d.notify(n)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[%s] File watcher error: %v", d.name, err)
		}
	}
}

// shouldProcessEvent filters out chmod-only events and ignored paths.
func (d *Debouncer) shouldProcessEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return !d.isIgnored(event.Name, false)
}

// isIgnored reports whether path matches an ignore pattern. Directories are
// matched with a trailing slash so "node_modules/**" also covers the
// directory itself.
func (d *Debouncer) isIgnored(path string, isDir bool) bool {
	if len(d.ignore) == 0 {
		return false
	}
	rel, err := filepath.Rel(d.root, path)
	if err != nil || rel == "." {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		rel += "/"
	}
	for _, g := range d.ignore {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// addDirectoriesRecursively adds all non-ignored directories in the tree to the watcher.
func (d *Debouncer) addDirectoriesRecursively(rootPath string) error {
	return filepath.WalkDir(rootPath, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			// If it's the root path, fail immediately
			if path == rootPath {
				return err
			}
			log.Printf("[%s] Warning: error accessing %s: %v", d.name, path, err)
			return nil
		}

		if !entry.IsDir() {
			return nil
		}

		if d.isIgnored(path, true) {
			return filepath.SkipDir
		}

		if err := d.watcher.Add(path); err != nil {
			if path == rootPath {
				return err
			}
			log.Printf("[%s] Warning: failed to watch directory %s: %v", d.name, path, err)
		}

		return nil
	})
}
