package watcher

import (
	"sync"
	"time"
)

// RunMetrics aggregates indexing runs across all projects of a manager.
// All methods are safe for concurrent use.
type RunMetrics struct {
	mu                sync.RWMutex
	lastRunTime       time.Time
	lastRunDuration   time.Duration
	lastRunProject    ProjectKey
	lastRunError      string
	totalRuns         int64
	successfulRuns    int64
	failedRuns        int64
	fallbackConfigs   int64
	lastArtifactCount int
}

// MetricsSnapshot is an immutable copy of RunMetrics at a point in time.
type MetricsSnapshot struct {
	LastRunTime       time.Time     `json:"last_run_time"`
	LastRunDuration   time.Duration `json:"last_run_duration_ns"`
	LastRunProject    ProjectKey    `json:"last_run_project,omitempty"`
	LastRunError      string        `json:"last_run_error,omitempty"`
	TotalRuns         int64         `json:"total_runs"`
	SuccessfulRuns    int64         `json:"successful_runs"`
	FailedRuns        int64         `json:"failed_runs"`
	FallbackConfigs   int64         `json:"fallback_configs"`
	LastArtifactCount int           `json:"last_artifact_count"`
}

// NewRunMetrics creates empty metrics.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{}
}

// RecordRun folds one finished run into the totals.
func (m *RunMetrics) RecordRun(status RunStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastRunTime = status.FinishedAt
	m.lastRunDuration = status.Duration()
	m.lastRunProject = status.ProjectKey
	m.lastArtifactCount = status.Artifacts
	m.totalRuns++
	if status.UsedFallbackConfig {
		m.fallbackConfigs++
	}

	if status.Succeeded() {
		m.successfulRuns++
		m.lastRunError = ""
	} else {
		m.failedRuns++
		m.lastRunError = status.Error
	}
}

// Snapshot returns the current totals.
func (m *RunMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		LastRunTime:       m.lastRunTime,
		LastRunDuration:   m.lastRunDuration,
		LastRunProject:    m.lastRunProject,
		LastRunError:      m.lastRunError,
		TotalRuns:         m.totalRuns,
		SuccessfulRuns:    m.successfulRuns,
		FailedRuns:        m.failedRuns,
		FallbackConfigs:   m.fallbackConfigs,
		LastArtifactCount: m.lastArtifactCount,
	}
}
