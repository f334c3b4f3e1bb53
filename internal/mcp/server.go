// Package mcp exposes the watcher manager as Model Context Protocol tools
// served over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/autoindex/internal/watcher"
)

// ServerName is advertised to MCP clients.
const ServerName = "autoindex-mcp"

// FlagPersister saves the global auto-index flag. *config.Store implements it.
type FlagPersister interface {
	SetAutoIndexEnabled(enabled bool) error
}

// Server manages the MCP server lifecycle.
type Server struct {
	manager *watcher.Manager
	mcp     *server.MCPServer
}

// NewServer creates an MCP server with all watch tools registered.
// persister may be nil, in which case set_enabled cannot persist.
func NewServer(manager *watcher.Manager, source watcher.ConfigSource, persister FlagPersister, version string) (*Server, error) {
	if manager == nil {
		return nil, errors.New("watcher manager is required")
	}
	if source == nil {
		return nil, errors.New("config source is required")
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
	)

	addWatchTools(mcpServer, &toolDeps{
		manager:   manager,
		source:    source,
		persister: persister,
	})

	return &Server{
		manager: manager,
		mcp:     mcpServer,
	}, nil
}

// Serve runs the server on stdio and blocks until the client disconnects,
// a shutdown signal arrives or ctx is cancelled. Watches are left to the
// caller to shut down.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
