// Package engine provides the System: the per-frame driver that runs every component stage,
// polls the loader, and executes a render pipeline Frame through the CG API resource repository.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/rhodonite-go/engine/components"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/loader"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/profiler"
	"github.com/Carmen-Shannon/rhodonite-go/engine/render_pipeline"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/Carmen-Shannon/rhodonite-go/engine/window"
	"go.uber.org/zap"
)

var (
	// ErrNotInitialized is returned when the System is used before Init succeeded.
	ErrNotInitialized = errors.New("engine: system not initialized")
	// ErrRenderLoopRunning is returned by StartRenderLoop when a loop is already running.
	ErrRenderLoopRunning = errors.New("engine: render loop already running")
	// ErrNoFrameProvider is returned by RestartRenderLoop when no loop was ever started.
	ErrNoFrameProvider = errors.New("engine: no frame provider")
)

// FrameProvider is called on the render goroutine at the start of every loop iteration.
// It may mutate the world freely and returns the Frame to draw, or nil to only run the component stages.
type FrameProvider func(deltaTime float32) render_pipeline.Frame

// system implements the System interface.
type system struct {
	mu sync.Mutex

	cfg        *config.Config
	configFile string
	logger     *zap.Logger

	world     *ecs.World
	repo      renderer.CGAPIResourceRepository
	materials material.MaterialRepository
	loader    loader.Loader
	executor  render_pipeline.FrameExecutor
	window    window.Window

	initialized  bool
	processCount uint64
	lastStats    render_pipeline.FrameStats

	pendingResize *[2]int

	profiler         *profiler.Profiler
	profilingEnabled bool
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	provider FrameProvider
	running  bool
	quit     chan struct{}
	done     chan struct{}
	loopErr  error
}

// System owns the World and drives it one frame at a time.
type System interface {
	// Init reads the configuration, builds the World, registers the built-in component classes,
	// allocates the shared buffers, and creates the resource repository, material repository and loader.
	// The repository, material repository and loader are stored as World resources.
	//
	// Returns:
	//   - error: error if the configuration is invalid or a collaborator cannot be created
	Init() error

	// World returns the world, nil before Init.
	World() *ecs.World

	// Config returns the configuration in effect.
	Config() *config.Config

	// Logger returns the system logger.
	Logger() *zap.Logger

	// ResourceRepository returns the CG API resource repository.
	ResourceRepository() renderer.CGAPIResourceRepository

	// Materials returns the material repository.
	Materials() material.MaterialRepository

	// Loader returns the asynchronous resource loader.
	Loader() loader.Loader

	// Window returns the window, nil for offscreen systems.
	Window() window.Window

	// Process runs one frame: every stage from Create to Discard for every component type in
	// ascending TID order. The loader is polled at the start of Load, and the frame is executed
	// after the components' Render stage, before Unmount.
	//
	// Parameters:
	//   - frame: the render pipeline to execute, nil to skip drawing
	//
	// Returns:
	//   - render_pipeline.FrameStats: what the executor did
	//   - error: ErrNotInitialized, or an error from frame resolution or the repository
	Process(frame render_pipeline.Frame) (render_pipeline.FrameStats, error)

	// ProcessCount returns how many frames Process has completed.
	ProcessCount() uint64

	// Resize records a new canvas size, applied at the start of the next Process.
	Resize(width, height int)

	// StartRenderLoop runs Process on a new goroutine until StopRenderLoop.
	// A panic in the loop is recovered, logged, and stops the loop.
	//
	// Parameters:
	//   - provider: supplies the frame for each iteration
	//
	// Returns:
	//   - error: ErrNotInitialized or ErrRenderLoopRunning
	StartRenderLoop(provider FrameProvider) error

	// StopRenderLoop stops the loop and waits for the current iteration to finish. No-op when stopped.
	StopRenderLoop()

	// RestartRenderLoop stops the loop if running and starts it again with the last provider.
	//
	// Returns:
	//   - error: ErrNoFrameProvider if StartRenderLoop was never called
	RestartRenderLoop() error

	// IsRenderLoopRunning reports whether the loop goroutine is active.
	IsRenderLoopRunning() bool

	// RenderLoopErr returns the error that stopped the last loop, nil after a clean stop.
	RenderLoopErr() error

	// Run starts the render loop and pumps window messages on the calling goroutine until the
	// window closes, then stops the loop. Without a window it returns ErrNotInitialized.
	//
	// Parameters:
	//   - provider: supplies the frame for each iteration
	//
	// Returns:
	//   - error: error if the loop could not start or stopped on a panic
	Run(provider FrameProvider) error

	// Shutdown stops the loop and releases GPU resources and the window.
	Shutdown()
}

var _ System = &system{}

// NewSystem creates a System with the options applied. Call Init before use.
//
// Parameters:
//   - options: functional options for system configuration
//
// Returns:
//   - System: the uninitialized system
func NewSystem(options ...SystemBuilderOption) System {
	s := &system{}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *system) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	cfg := s.cfg
	if s.configFile != "" {
		loaded, err := config.Load(s.configFile)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		cfg = loaded
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	s.cfg = cfg.Clone()

	if s.logger == nil {
		logger, err := config.NewLogger(s.cfg.Logging)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		s.logger = logger
	}

	world := ecs.NewWorld(s.cfg, ecs.WithLogger(s.logger))
	if err := components.Register(world); err != nil {
		s.logger.Error("component registration failed", zap.Error(err))
		return fmt.Errorf("engine: %w", err)
	}
	for _, use := range []memory.BufferUse{memory.CPUGeneric, memory.GPUInstanceData, memory.GPUVertexData, memory.UBOGeneric} {
		world.MemoryManager().CreateOrGetBuffer(use)
	}

	if s.repo == nil {
		strategy := renderer.StrategyHeadless
		if s.window != nil {
			strategy = renderer.StrategyWebGPU
		}
		repo, err := renderer.NewResourceRepository(strategy, s.window,
			renderer.WithConfig(s.cfg),
			renderer.WithLogger(s.logger.Named("renderer")),
		)
		if err != nil {
			s.logger.Error("resource repository creation failed", zap.Error(err))
			return fmt.Errorf("engine: %w", err)
		}
		s.repo = repo
	}

	s.materials = material.NewMaterialRepository(s.cfg.MaxMaterialInstanceForEachType, s.logger.Named("material"))
	s.loader = loader.NewLoader(
		loader.WithLoaderConfig(s.cfg.Loader),
		loader.WithLogger(s.logger.Named("loader")),
		loader.WithResourceRepository(s.repo),
	)
	s.executor = render_pipeline.NewFrameExecutor(s.repo, s.logger)
	s.profiler = profiler.NewProfiler(s.logger)

	ecs.SetResource(world, s.repo)
	ecs.SetResource(world, s.materials)
	ecs.SetResource(world, s.loader)
	s.world = world

	if s.window != nil {
		s.window.SetResizeCallback(s.Resize)
	}

	s.initialized = true
	s.logger.Info("system initialized",
		zap.Int("max_entities", s.cfg.MaxEntityNumber),
		zap.Bool("window", s.window != nil),
	)
	return nil
}

func (s *system) World() *ecs.World {
	return s.world
}

func (s *system) Config() *config.Config {
	return s.cfg
}

func (s *system) Logger() *zap.Logger {
	if s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}

func (s *system) ResourceRepository() renderer.CGAPIResourceRepository {
	return s.repo
}

func (s *system) Materials() material.MaterialRepository {
	return s.materials
}

func (s *system) Loader() loader.Loader {
	return s.loader
}

func (s *system) Window() window.Window {
	return s.window
}

func (s *system) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	s.pendingResize = &[2]int{width, height}
	s.mu.Unlock()
}

// applyResize runs on the processing goroutine so the repository and camera are never touched concurrently.
func (s *system) applyResize() {
	s.mu.Lock()
	size := s.pendingResize
	s.pendingResize = nil
	s.mu.Unlock()
	if size == nil {
		return
	}

	s.repo.Resize(size[0], size[1])
	if cam := components.CurrentCamera(s.world); cam != nil && cam.ProjectionType() == components.Perspective {
		cam.SetAspect(float32(size[0]) / float32(size[1]))
	}
	s.logger.Debug("canvas resized", zap.Int("width", size[0]), zap.Int("height", size[1]))
}

func (s *system) Process(frame render_pipeline.Frame) (render_pipeline.FrameStats, error) {
	if !s.initialized {
		return render_pipeline.FrameStats{}, ErrNotInitialized
	}
	s.applyResize()

	var stats render_pipeline.FrameStats
	var execErr error
	repo := s.world.Components()
	for _, stage := range ecs.ProcessStages {
		if stage == ecs.StageLoad {
			s.loader.Poll()
		}
		repo.ProcessAll(stage)
		if stage == ecs.StageRender && frame != nil {
			stats, execErr = s.executor.Execute(s.world, frame)
		}
	}

	s.processCount++
	s.lastStats = stats
	if execErr != nil {
		return stats, fmt.Errorf("engine: frame %d: %w", s.processCount, execErr)
	}
	return stats, nil
}

func (s *system) ProcessCount() uint64 {
	return s.processCount
}

func (s *system) StartRenderLoop(provider FrameProvider) error {
	if provider == nil {
		return ErrNoFrameProvider
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.running {
		return ErrRenderLoopRunning
	}

	s.provider = provider
	s.running = true
	s.loopErr = nil
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go s.renderLoop(provider, s.quit, s.done)
	return nil
}

// renderLoop runs Process until quit is closed.
// Recovers from panics to avoid crashing the process and records them as the loop error.
func (s *system) renderLoop(provider FrameProvider, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("engine: render loop panic: %v", r)
			s.logger.Error("render goroutine recovered from panic", zap.Any("panic", r))
			s.mu.Lock()
			s.loopErr = err
			s.running = false
			s.mu.Unlock()
		}
	}()

	lastRender := time.Now()
	for {
		select {
		case <-quit:
			return
		default:
		}

		now := time.Now()
		dt := float32(now.Sub(lastRender).Seconds())
		lastRender = now

		stats, err := s.Process(provider(dt))
		if err != nil {
			s.logger.Debug("frame failed", zap.Error(err))
		}

		if s.profilingEnabled && s.profiler != nil {
			s.profiler.Tick(stats)
		}

		if s.renderFrameLimit > 0 {
			if remaining := s.renderFrameLimit - time.Since(now); remaining > 0 {
				select {
				case <-quit:
					return
				case <-time.After(remaining):
				}
			}
		}
	}
}

func (s *system) StopRenderLoop() {
	s.mu.Lock()
	quit, done := s.quit, s.done
	s.quit = nil
	s.mu.Unlock()
	if quit == nil {
		return
	}

	close(quit)
	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *system) RestartRenderLoop() error {
	s.mu.Lock()
	provider := s.provider
	s.mu.Unlock()
	if provider == nil {
		return ErrNoFrameProvider
	}
	s.StopRenderLoop()
	return s.StartRenderLoop(provider)
}

func (s *system) IsRenderLoopRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *system) RenderLoopErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loopErr
}

func (s *system) Run(provider FrameProvider) error {
	if s.window == nil {
		return fmt.Errorf("%w: no window", ErrNotInitialized)
	}
	if err := s.StartRenderLoop(provider); err != nil {
		return err
	}
	s.window.SetUpdateCallback(func() {
		if !s.IsRenderLoopRunning() {
			_ = s.window.Close()
		}
	})
	s.window.ProcessMessages()
	s.StopRenderLoop()
	return s.RenderLoopErr()
}

func (s *system) Shutdown() {
	s.StopRenderLoop()
	if s.repo != nil {
		s.repo.Release()
	}
	if s.window != nil && s.window.IsRunning() {
		_ = s.window.Close()
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}
