package indexer

// ProgressReporter provides callbacks for reporting indexing progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(totalFiles int)

	// OnFileProcessed is called after each file is hashed.
	OnFileProcessed(relPath string)

	// OnComplete is called when indexing completes successfully.
	OnComplete(stats *Stats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used for background runs and when the CLI runs with --quiet.
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()              {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(int)        {}
func (n *NoOpProgressReporter) OnFileProcessed(relPath string) {}
func (n *NoOpProgressReporter) OnComplete(stats *Stats)        {}
