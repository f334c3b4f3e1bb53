package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/autoindex/internal/config"
	"github.com/mvp-joe/autoindex/internal/watcher"
)

type toolDeps struct {
	manager   *watcher.Manager
	source    watcher.ConfigSource
	persister FlagPersister
}

// addWatchTools registers every autoindex_* tool with an MCP server.
func addWatchTools(s *server.MCPServer, d *toolDeps) {
	projectRoot := mcp.WithString("project_root",
		mcp.Required(),
		mcp.Description("Absolute path of the project directory"))

	s.AddTool(mcp.NewTool("autoindex_start_watching",
		mcp.WithDescription("Start watching a project and re-index it automatically after file changes settle. Succeeds without watching when auto-index is globally disabled."),
		projectRoot,
		mcp.WithNumber("debounce_ms",
			mcp.Description("Quiet period in milliseconds before re-indexing (default: auto_index.debounce_ms from config, 180000)")),
	), d.handleStartWatching)

	s.AddTool(mcp.NewTool("autoindex_stop_watching",
		mcp.WithDescription("Stop watching a project. Succeeds if the project was not watched."),
		projectRoot,
	), d.handleStopWatching)

	s.AddTool(mcp.NewTool("autoindex_stop_all",
		mcp.WithDescription("Stop watching every project."),
	), d.handleStopAll)

	s.AddTool(mcp.NewTool("autoindex_list_watching",
		mcp.WithDescription("List the normalized keys of all watched projects."),
	), d.handleListWatching)

	s.AddTool(mcp.NewTool("autoindex_is_watching",
		mcp.WithDescription("Report whether a project is watched."),
		projectRoot,
	), d.handleIsWatching)

	s.AddTool(mcp.NewTool("autoindex_get_enabled",
		mcp.WithDescription("Report whether auto-index is globally enabled."),
	), d.handleGetEnabled)

	s.AddTool(mcp.NewTool("autoindex_set_enabled",
		mcp.WithDescription("Enable or disable auto-index globally. Existing watches keep running."),
		mcp.WithBoolean("enabled",
			mcp.Required(),
			mcp.Description("New value of the global flag")),
		mcp.WithBoolean("persist",
			mcp.Description("Also write the value to the config file (default: false)")),
	), d.handleSetEnabled)

	s.AddTool(mcp.NewTool("autoindex_status",
		mcp.WithDescription("Show the watch state and last indexing run of a project."),
		projectRoot,
	), d.handleStatus)

	s.AddTool(mcp.NewTool("autoindex_metrics",
		mcp.WithDescription("Show indexing run totals across all projects since the server started."),
	), d.handleMetrics)

	s.AddTool(mcp.NewTool("autoindex_trigger",
		mcp.WithDescription("Queue an immediate re-index of a watched project."),
		projectRoot,
	), d.handleTrigger)
}

func (d *toolDeps) handleStartWatching(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := argsMap(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	root, err := parseStringArg(args, "project_root", true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	debounceMs := parseIntArg(args, "debounce_ms", 0)
	if debounceMs < 0 {
		return mcp.NewToolResultError("debounce_ms must be positive"), nil
	}

	cfg, err := d.source.LoadConfig()
	if err != nil {
		log.Printf("Warning: failed to load config, using defaults: %v", err)
		cfg = config.Default()
	}
	if debounceMs == 0 {
		debounceMs = cfg.AutoIndex.DebounceMs
	}

	key := watcher.NormalizeKey(root)
	if err := d.manager.StartWatching(root, &cfg.Index, time.Duration(debounceMs)*time.Millisecond); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to start watching %s: %v", key, err)), nil
	}

	resp := WatchResponse{ProjectKey: key.String(), Watching: d.manager.IsWatching(root)}
	if !d.manager.IsAutoIndexEnabled() {
		resp.Message = "auto-index is globally disabled; project not watched"
	}
	return jsonResult(resp)
}

func (d *toolDeps) handleStopWatching(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, errResult := projectRootArg(request)
	if errResult != nil {
		return errResult, nil
	}

	key := watcher.NormalizeKey(root)
	if err := d.manager.StopWatching(root); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to stop watching %s: %v", key, err)), nil
	}
	return jsonResult(WatchResponse{ProjectKey: key.String(), Watching: false})
}

func (d *toolDeps) handleStopAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(StopAllResponse{Stopped: d.manager.StopAll()})
}

func (d *toolDeps) handleListWatching(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keys := d.manager.WatchingProjects()
	projects := make([]string, len(keys))
	for i, k := range keys {
		projects[i] = k.String()
	}
	return jsonResult(ListResponse{Projects: projects, Total: len(projects)})
}

func (d *toolDeps) handleIsWatching(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, errResult := projectRootArg(request)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(WatchResponse{
		ProjectKey: watcher.NormalizeKey(root).String(),
		Watching:   d.manager.IsWatching(root),
	})
}

func (d *toolDeps) handleGetEnabled(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(EnabledResponse{Enabled: d.manager.IsAutoIndexEnabled()})
}

func (d *toolDeps) handleSetEnabled(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := argsMap(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	enabled, err := requireBoolArg(args, "enabled")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	persist := parseBoolArg(args, "persist", false)

	// Persist first so a failed write leaves the running flag unchanged
	if persist {
		if d.persister == nil {
			return mcp.NewToolResultError("persisting is not available in this server"), nil
		}
		if err := d.persister.SetAutoIndexEnabled(enabled); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to persist auto-index flag: %v", err)), nil
		}
	}

	d.manager.SetAutoIndexEnabled(enabled)
	return jsonResult(EnabledResponse{Enabled: enabled, Persisted: persist})
}

func (d *toolDeps) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, errResult := projectRootArg(request)
	if errResult != nil {
		return errResult, nil
	}

	resp := StatusResponse{
		ProjectKey: watcher.NormalizeKey(root).String(),
		Enabled:    d.manager.IsAutoIndexEnabled(),
	}
	if state, ok := d.manager.State(root); ok {
		resp.Watching = true
		resp.State = state.String()
	}
	if run, ok := d.manager.LastRun(root); ok {
		resp.LastRun = &run
	}
	return jsonResult(resp)
}

func (d *toolDeps) handleMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(d.manager.Metrics())
}

func (d *toolDeps) handleTrigger(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, errResult := projectRootArg(request)
	if errResult != nil {
		return errResult, nil
	}

	key := watcher.NormalizeKey(root)
	if !d.manager.IsWatching(root) {
		return mcp.NewToolResultError(fmt.Sprintf("project is not watched: %s", key)), nil
	}
	return jsonResult(TriggerResponse{ProjectKey: key.String(), Queued: d.manager.Trigger(root)})
}

// projectRootArg extracts the required project_root argument, or returns the
// tool error result to send back.
func projectRootArg(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	args, err := argsMap(request)
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	root, err := parseStringArg(args, "project_root", true)
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	return root, nil
}

// jsonResult marshals v as the text content of a tool result (mcp-go convention).
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
