package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/autoindex/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for controlling project watches",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
start and stop project watches, toggle auto-index and inspect index runs.

The MCP server:
- Exposes the autoindex_* tools
- Communicates via stdio (standard MCP transport)
- Stops all watches on exit

Example:
  autoindex mcp`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openStore(configDir)
	if err != nil {
		return err
	}

	// stdout belongs to the protocol
	fmt.Fprintf(os.Stderr, "Autoindex MCP Server\n")
	fmt.Fprintf(os.Stderr, "Config: %s\n\n", store.Loader().ConfigPath())

	m, err := newManager(ctx, store, newBlobIndexer())
	if err != nil {
		return err
	}
	defer shutdownManager(m)

	server, err := mcp.NewServer(m, store, store, Version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
