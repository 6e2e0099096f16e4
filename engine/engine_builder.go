package engine

import (
	"time"

	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/Carmen-Shannon/rhodonite-go/engine/window"
	"go.uber.org/zap"
)

// SystemBuilderOption is a functional option for configuring a System.
// Options are applied directly to the system instance before Init.
type SystemBuilderOption func(*system)

// WithConfig sets the configuration. The System keeps its own copy.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - SystemBuilderOption: option function to apply
func WithConfig(cfg *config.Config) SystemBuilderOption {
	return func(s *system) {
		s.cfg = cfg
	}
}

// WithConfigFile sets a TOML file read on top of the defaults during Init. It wins over WithConfig.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - SystemBuilderOption: option function to apply
func WithConfigFile(path string) SystemBuilderOption {
	return func(s *system) {
		s.configFile = path
	}
}

// WithResourceRepository sets the CG API resource repository instead of creating one from the window.
//
// Parameters:
//   - repo: a pre-built repository, e.g. the headless strategy in tests
//
// Returns:
//   - SystemBuilderOption: option function to apply
func WithResourceRepository(repo renderer.CGAPIResourceRepository) SystemBuilderOption {
	return func(s *system) {
		s.repo = repo
	}
}

// WithLogger sets the logger instead of building one from the logging config.
func WithLogger(logger *zap.Logger) SystemBuilderOption {
	return func(s *system) {
		s.logger = logger
	}
}

// WithProfiling enables or disables the per-second frame stats log.
//
// Parameters:
//   - enabled: if true, the render loop ticks the profiler
//
// Returns:
//   - SystemBuilderOption: option function to apply
func WithProfiling(enabled bool) SystemBuilderOption {
	return func(s *system) {
		s.profilingEnabled = enabled
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - SystemBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) SystemBuilderOption {
	return func(s *system) {
		if fps <= 0 {
			s.renderFrameLimit = 0
			return
		}
		s.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets the window the WebGPU strategy presents to. Without one, Init creates a headless repository.
//
// Parameters:
//   - w: an opened Window
//
// Returns:
//   - SystemBuilderOption: option function to apply
func WithWindow(w window.Window) SystemBuilderOption {
	return func(s *system) {
		s.window = w
	}
}
