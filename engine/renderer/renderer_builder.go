package renderer

import (
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"go.uber.org/zap"
)

// rendererOptions is the pre-creation configuration collected from builder options.
type rendererOptions struct {
	logger               *zap.Logger
	presentMode          PresentMode
	msaa                 MSAASampleCount
	forceFallbackAdapter bool
	width                int
	height               int
	maxLights            int
}

// RendererBuilderOption is a functional option applied during NewResourceRepository.
type RendererBuilderOption func(*rendererOptions)

func newRendererOptions(options ...RendererBuilderOption) *rendererOptions {
	o := &rendererOptions{
		logger:      zap.NewNop(),
		presentMode: PresentModeVSync,
		msaa:        MSAAOff,
		width:       1280,
		height:      720,
		maxLights:   config.Default().MaxLightNumber,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// WithConfig applies the renderer section of the engine configuration and the light limit.
//
// Parameters:
//   - cfg: the engine configuration
//
// Returns:
//   - RendererBuilderOption: a function that applies the configuration
func WithConfig(cfg *config.Config) RendererBuilderOption {
	return func(o *rendererOptions) {
		if cfg == nil {
			return
		}
		o.presentMode = ParsePresentMode(cfg.Renderer.PresentMode)
		if cfg.Renderer.MSAA > 1 {
			o.msaa = MSAA4x
		}
		o.forceFallbackAdapter = cfg.Renderer.ForceSoftware
		o.maxLights = cfg.MaxLightNumber
	}
}

// WithLogger sets the logger the repository derives its named logger from.
func WithLogger(logger *zap.Logger) RendererBuilderOption {
	return func(o *rendererOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync, Uncapped or Mailbox)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(o *rendererOptions) {
		o.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count of the surface attachments.
// When not specified, MSAA is off.
//
// Parameters:
//   - count: MSAAOff or MSAA4x
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(o *rendererOptions) {
		o.msaa = count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(o *rendererOptions) {
		o.forceFallbackAdapter = force
	}
}

// WithCanvasSize sets the initial surface size. The WebGPU strategy reads it from the window instead.
func WithCanvasSize(width, height int) RendererBuilderOption {
	return func(o *rendererOptions) {
		o.width = width
		o.height = height
	}
}
