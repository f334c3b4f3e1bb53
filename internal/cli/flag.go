package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

var statusJSON bool

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable auto-index globally",
	Long: `Enable auto-index and save the setting to the config file.

Running watchers pick up the change the next time they start.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd.OutOrStdout(), configDir, true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable auto-index globally",
	Long: `Disable auto-index and save the setting to the config file.

New watches are refused while disabled; existing watches keep running.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetEnabled(cmd.OutOrStdout(), configDir, false)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show auto-index configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.OutOrStdout(), configDir, statusJSON)
	},
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runSetEnabled(out io.Writer, dir string, enabled bool) error {
	store, err := openStore(dir)
	if err != nil {
		return err
	}
	if err := store.SetAutoIndexEnabled(enabled); err != nil {
		return fmt.Errorf("failed to save auto-index setting: %w", err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(out, "✓ Auto-index %s (saved to %s)\n", state, store.Loader().ConfigPath())
	return nil
}

// statusOutput is the JSON form of the status command.
type statusOutput struct {
	Enabled        bool     `json:"enabled"`
	Debounce       string   `json:"debounce"`
	QueueSize      int      `json:"queue_size"`
	IgnorePatterns []string `json:"ignore_patterns"`
	CacheDir       string   `json:"cache_dir"`
	ConfigPath     string   `json:"config_path"`
}

func runStatus(out io.Writer, dir string, asJSON bool) error {
	store, err := openStore(dir)
	if err != nil {
		return err
	}
	cfg, err := store.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	status := statusOutput{
		Enabled:        cfg.AutoIndex.Enabled,
		Debounce:       (time.Duration(cfg.AutoIndex.DebounceMs) * time.Millisecond).String(),
		QueueSize:      cfg.AutoIndex.QueueSize,
		IgnorePatterns: cfg.AutoIndex.IgnorePatterns,
		CacheDir:       cfg.Index.CacheDir,
		ConfigPath:     store.Loader().ConfigPath(),
	}

	if asJSON {
		jsonBytes, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(jsonBytes))
		return nil
	}

	state := "disabled"
	if status.Enabled {
		state = "enabled"
	}
	fmt.Fprintf(out, "Auto-index:  %s\n", state)
	fmt.Fprintf(out, "Debounce:    %s\n", status.Debounce)
	fmt.Fprintf(out, "Queue size:  %d\n", status.QueueSize)
	fmt.Fprintf(out, "Cache dir:   %s\n", status.CacheDir)
	fmt.Fprintf(out, "Config file: %s\n", status.ConfigPath)
	return nil
}
