package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mvp-joe/autoindex/internal/config"
	"github.com/mvp-joe/autoindex/internal/indexer"
	"github.com/mvp-joe/autoindex/internal/watcher"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var (
	watchDebounce time.Duration
	watchInitial  bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Watch projects and re-index them after changes settle",
	Long: `Watch runs in the foreground, watching each given project (default: the
current directory). After a burst of file changes followed by the debounce
window of quiet, the project is re-indexed. Ctrl+C stops all watches and
waits for in-flight runs.

Examples:
  # Watch the current directory with the configured debounce
  autoindex watch

  # Watch two projects, re-indexing 10s after changes stop
  autoindex watch ~/code/api ~/code/web --debounce 10s
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runWatch(ctx, cmd.OutOrStdout(), configDir, args, watchDebounce, watchInitial)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVarP(&watchDebounce, "debounce", "d", 0, "Quiet period before re-indexing (default: auto_index.debounce_ms)")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", false, "Index each project once at startup")
}

// runWatch watches paths until ctx is cancelled, then shuts the manager down.
func runWatch(ctx context.Context, out io.Writer, dir string, paths []string, debounce time.Duration, initial bool) error {
	return watchWith(ctx, out, dir, paths, debounce, initial, newBlobIndexer())
}

func watchWith(ctx context.Context, out io.Writer, dir string, paths []string, debounce time.Duration, initial bool, idx watcher.Indexer) error {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	store, err := openStore(dir)
	if err != nil {
		return err
	}
	cfg, err := store.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if debounce <= 0 {
		debounce = time.Duration(cfg.AutoIndex.DebounceMs) * time.Millisecond
	}

	m, err := newManager(ctx, store, idx)
	if err != nil {
		return err
	}
	defer shutdownManager(m)

	if !m.IsAutoIndexEnabled() {
		fmt.Fprintln(out, "Auto-index is disabled. Run 'autoindex enable' to turn it on.")
		return nil
	}

	for _, p := range paths {
		if err := m.StartWatching(p, &cfg.Index, debounce); err != nil {
			return err
		}
		key := watcher.NormalizeKey(p)
		fmt.Fprintf(out, "✓ Watching %s (debounce %v)\n", key, debounce)
		if initial {
			m.Trigger(p)
		}
	}

	fmt.Fprintln(out, "Press Ctrl+C to stop")
	<-ctx.Done()
	fmt.Fprintln(out, "\nStopping watches...")
	return nil
}

func newBlobIndexer() watcher.Indexer {
	return indexer.NewBlobIndexer(indexer.WithVerbose(verbose))
}

// newManager builds a watcher manager around idx. Runs are detached from
// ctx cancellation so an interrupt lets in-flight runs finish during
// shutdownManager instead of aborting them.
func newManager(ctx context.Context, store *config.Store, idx watcher.Indexer) (*watcher.Manager, error) {
	m, err := watcher.NewManager(context.WithoutCancel(ctx), store, idx,
		watcher.WithVerbose(verbose),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher manager: %w", err)
	}
	return m, nil
}

func shutdownManager(m *watcher.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		log.Printf("Warning: shutdown incomplete: %v", err)
	}
}
