package watcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/maypok86/otter"
)

// TriggerSource says what woke a pipeline.
type TriggerSource string

const (
	TriggerFileChange TriggerSource = "file_change"
	TriggerManual     TriggerSource = "manual"
)

// RunStatus records the outcome of one auto-index run.
type RunStatus struct {
	RunID              string        `json:"run_id"`
	ProjectKey         ProjectKey    `json:"project_key"`
	Trigger            TriggerSource `json:"trigger"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
	Artifacts          int           `json:"artifacts"`
	UsedFallbackConfig bool          `json:"used_fallback_config"`
	Error              string        `json:"error,omitempty"`
}

// Succeeded reports whether the run finished without error.
func (s RunStatus) Succeeded() bool {
	return s.Error == ""
}

// Duration is how long the run took.
func (s RunStatus) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// statusStore keeps the latest run per project, bounded in size and age so
// projects that stopped being watched eventually drop out.
type statusStore struct {
	cache     otter.Cache[ProjectKey, RunStatus]
	closeOnce sync.Once
}

func newStatusStore(capacity int, ttl time.Duration) (*statusStore, error) {
	builder, err := otter.NewBuilder[ProjectKey, RunStatus](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create status cache builder: %w", err)
	}
	cache, err := builder.WithTTL(ttl).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build status cache: %w", err)
	}
	return &statusStore{cache: cache}, nil
}

func (s *statusStore) record(status RunStatus) {
	s.cache.Set(status.ProjectKey, status)
}

func (s *statusStore) get(key ProjectKey) (RunStatus, bool) {
	return s.cache.Get(key)
}

// close stops the cache's background goroutines. Safe to call repeatedly.
func (s *statusStore) close() {
	s.closeOnce.Do(s.cache.Close)
}
