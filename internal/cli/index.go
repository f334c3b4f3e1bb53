package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvp-joe/autoindex/internal/indexer"
	"github.com/mvp-joe/autoindex/internal/watcher"
	"github.com/spf13/cobra"
)

var quietFlag bool

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a project once",
	Long: `Index walks a project, hashes its text files into blobs and records them in
the manifest under the configured cache directory. It is the same run the
watcher performs after changes settle.

Examples:
  # Index the current directory
  autoindex index

  # Index a specific directory without progress output
  autoindex index ~/code/my-project --quiet
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}

		// Set up context with cancellation for Ctrl+C
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return runIndex(ctx, cmd.OutOrStdout(), configDir, path, quietFlag)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
}

func runIndex(ctx context.Context, out io.Writer, dir, path string, quiet bool) error {
	store, err := openStore(dir)
	if err != nil {
		return err
	}
	cfg, err := store.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Same key the watcher uses, so manifests line up with background runs
	key := watcher.NormalizeKey(path)
	if !quiet {
		fmt.Fprintf(out, "Indexing %s\n", key)
	}

	idx := indexer.NewBlobIndexer(
		indexer.WithProgress(NewCLIProgressReporter(out, quiet)),
		indexer.WithVerbose(verbose),
	)
	if _, _, err := idx.Index(ctx, &cfg.Index, watcher.CanonicalPath(path)); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}
