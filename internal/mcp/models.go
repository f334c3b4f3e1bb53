package mcp

import "github.com/mvp-joe/autoindex/internal/watcher"

// WatchResponse is returned by start/stop/is_watching.
type WatchResponse struct {
	ProjectKey string `json:"project_key"`
	Watching   bool   `json:"watching"`
	Message    string `json:"message,omitempty"`
}

// ListResponse is returned by autoindex_list_watching.
type ListResponse struct {
	Projects []string `json:"projects"`
	Total    int      `json:"total"`
}

// StopAllResponse is returned by autoindex_stop_all.
type StopAllResponse struct {
	Stopped int `json:"stopped"`
}

// EnabledResponse is returned by get_enabled/set_enabled.
type EnabledResponse struct {
	Enabled   bool `json:"enabled"`
	Persisted bool `json:"persisted,omitempty"`
}

// StatusResponse is returned by autoindex_status.
type StatusResponse struct {
	ProjectKey string             `json:"project_key"`
	Enabled    bool               `json:"enabled"`
	Watching   bool               `json:"watching"`
	State      string             `json:"state,omitempty"`
	LastRun    *watcher.RunStatus `json:"last_run,omitempty"`
}

// TriggerResponse is returned by autoindex_trigger.
type TriggerResponse struct {
	ProjectKey string `json:"project_key"`
	Queued     bool   `json:"queued"`
}
