package watcher

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mvp-joe/autoindex/internal/config"
)

// PipelineState is the trigger state of one watched project.
type PipelineState int32

const (
	// StateIdle means no indexing run is in flight.
	StateIdle PipelineState = iota
	// StateIndexing means an indexing run is in flight.
	StateIndexing
)

func (s PipelineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIndexing:
		return "indexing"
	default:
		return "unknown"
	}
}

// pipeline is the per-watch consumer: a bounded signal queue drained by one
// goroutine that runs the indexer for each signal, strictly one at a time.
type pipeline struct {
	ctx      context.Context
	key      ProjectKey
	root     string
	name     string
	fallback *config.IndexConfig
	source   ConfigSource
	indexer  Indexer
	status   *statusStore
	metrics  *RunMetrics
	verbose  bool

	state atomic.Int32

	mu      sync.RWMutex // guards closed against sends racing close
	closed  bool
	signals chan TriggerSource
	done    chan struct{}
}

func newPipeline(ctx context.Context, key ProjectKey, root string, fallback *config.IndexConfig, source ConfigSource, indexer Indexer, status *statusStore, metrics *RunMetrics, queueSize int, verbose bool) *pipeline {
	return &pipeline{
		ctx:      ctx,
		key:      key,
		root:     root,
		name:     key.Name(),
		fallback: fallback,
		source:   source,
		indexer:  indexer,
		status:   status,
		metrics:  metrics,
		verbose:  verbose,
		signals:  make(chan TriggerSource, queueSize),
		done:     make(chan struct{}),
	}
}

// State returns the current state.
func (p *pipeline) State() PipelineState {
	return PipelineState(p.state.Load())
}

// enqueue offers a signal without blocking. It returns false if the queue is
// full or closed; a dropped signal is folded into the run already pending.
func (p *pipeline) enqueue(src TriggerSource) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.signals <- src:
		return true
	default:
		return false
	}
}

// notify is the debouncer callback.
func (p *pipeline) notify(events int) {
	if !p.enqueue(TriggerFileChange) && p.verbose {
		log.Printf("[%s] Trigger queue full, dropping signal for %d event(s)", p.name, events)
	}
}

// close closes the signal queue. The run goroutine exits after finishing any
// in-flight run; queued signals that were not yet picked up are discarded.
func (p *pipeline) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.signals)
}

// run processes signals until the queue is closed.
func (p *pipeline) run() {
	defer close(p.done)
	for src := range p.signals {
		p.mu.RLock()
		closed := p.closed
		p.mu.RUnlock()
		if closed {
			// Stopped while signals were queued; drain without indexing
			continue
		}
		p.process(src)
	}
}

// process performs one indexing run: refresh config, index, record outcome.
func (p *pipeline) process(src TriggerSource) {
	p.state.Store(int32(StateIndexing))
	defer p.state.Store(int32(StateIdle))

	status := RunStatus{
		RunID:      uuid.NewString(),
		ProjectKey: p.key,
		Trigger:    src,
		StartedAt:  time.Now(),
	}

	log.Printf("[%s] Auto-index triggered (%s, run %s)", p.name, src, status.RunID)

	cfg, err := p.source.CurrentIndexConfig(p.ctx)
	switch {
	case err != nil:
		log.Printf("[%s] Warning: failed to load latest config, using config from watch start: %v", p.name, err)
	case cfg == nil:
		log.Printf("[%s] Warning: config source returned no index config, using config from watch start", p.name)
	}
	if err != nil || cfg == nil {
		cfg = p.fallback.Clone()
		status.UsedFallbackConfig = true
	}

	artifacts, err := p.callIndexer(cfg)
	status.FinishedAt = time.Now()

	if err != nil {
		status.Error = err.Error()
		log.Printf("[%s] Auto-index failed after %v: %v", p.name, status.Duration().Round(time.Millisecond), err)
	} else {
		status.Artifacts = len(artifacts)
		log.Printf("[%s] ✓ Auto-index complete in %v (%d artifacts)", p.name, status.Duration().Round(time.Millisecond), len(artifacts))
	}

	p.status.record(status)
	p.metrics.RecordRun(status)
}

// callIndexer runs the indexer, turning a panic into an error so a faulty
// indexer cannot take down the process or the watch.
func (p *pipeline) callIndexer(cfg *config.IndexConfig) (artifacts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("indexer panic: %v", r)
		}
	}()
	return p.indexer.UpdateIndex(p.ctx, cfg, p.root)
}
