package cli

import (
	"fmt"
	"os"

	"github.com/mvp-joe/autoindex/internal/config"
	"github.com/spf13/cobra"
)

var (
	configDir string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autoindex",
	Short: "Autoindex - watch projects and re-index them when files settle",
	Long: `Autoindex watches project directories for file changes and re-indexes a
project once its changes have been quiet for a debounce window.

Configuration lives in ~/.autoindex/config.yml and can be overridden with
AUTOINDEX_* environment variables.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default is $HOME/.autoindex)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// openStore returns the config store for dir (empty means the default dir).
func openStore(dir string) (*config.Store, error) {
	loader, err := config.NewLoader(dir)
	if err != nil {
		return nil, err
	}
	return config.NewStore(loader), nil
}
