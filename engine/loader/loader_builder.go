package loader

import (
	"time"

	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"go.uber.org/zap"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers is an option builder that sets the maximum number of worker goroutines.
//
// Parameters:
//   - n: the worker count, values below 1 are raised to 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker count to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = n
	}
}

// WithQueueSize is an option builder that sets how many tasks may wait for a free worker.
func WithQueueSize(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.queueSize = n
	}
}

// WithIdleTimeout sets how long an idle worker lives before exiting.
func WithIdleTimeout(d time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		l.idleTimeout = d
	}
}

// WithLoaderConfig applies the worker and queue sizes from the engine configuration.
//
// Parameters:
//   - cfg: the loader section of the configuration
//
// Returns:
//   - LoaderBuilderOption: a function that applies the config to a loader
func WithLoaderConfig(cfg config.LoaderConfig) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = cfg.Workers
		l.queueSize = cfg.QueueSize
	}
}

// WithLogger is an option builder that sets the logger used for failed tasks.
func WithLogger(logger *zap.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithResourceRepository is an option builder that sets the repository decoded textures are uploaded to.
//
// Parameters:
//   - repo: the CG API resource repository
//
// Returns:
//   - LoaderBuilderOption: a function that applies the repository to a loader
func WithResourceRepository(repo renderer.CGAPIResourceRepository) LoaderBuilderOption {
	return func(l *loader) {
		l.repo = repo
	}
}
