// Package profiler aggregates frame timing, render statistics and Go memory stats, logging a summary at a fixed interval.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/rhodonite-go/engine/render_pipeline"
	"go.uber.org/zap"
)

// Stats is one interval's summary.
type Stats struct {
	FPS          float64
	DrawCalls    float64 // per frame
	CulledMeshes float64 // per frame
	SkippedDraws int
	HeapMB       float64
	SysMB        float64
	AllocRateMB  float64 // MB/s
	GCCount      uint32
	LastPauseUs  uint64
	MaxPauseUs   uint64
}

// Profiler tracks frame rate, draw statistics and memory for performance monitoring.
// It is driven by the render loop goroutine and is not safe for concurrent Tick calls.
type Profiler struct {
	logger         *zap.Logger
	now            func() time.Time
	updateInterval time.Duration

	frameCount   int
	drawCalls    int
	culledMeshes int
	skippedDraws int
	lastTime     time.Time

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// ProfilerOption configures a Profiler.
type ProfilerOption func(*Profiler)

// WithInterval sets how often a summary is produced. Defaults to one second.
func WithInterval(d time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - logger: receives the summary at Info level, nil for none
//   - options: a variadic list of ProfilerOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(logger *zap.Logger, options ...ProfilerOption) *Profiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Profiler{
		logger:         logger.Named("profiler"),
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, option := range options {
		option(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with that frame's render statistics.
// When the update interval has elapsed it computes and logs a Stats summary.
//
// Parameters:
//   - frame: what the executor did this frame
//
// Returns:
//   - bool: true if a summary was produced this tick
func (p *Profiler) Tick(frame render_pipeline.FrameStats) bool {
	p.frameCount++
	p.drawCalls += frame.DrawCalls
	p.culledMeshes += frame.CulledMeshes
	p.skippedDraws += frame.SkippedDraws

	current := p.now()
	elapsed := current.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	frames := float64(p.frameCount)
	s := Stats{
		FPS:          frames / elapsed.Seconds(),
		DrawCalls:    float64(p.drawCalls) / frames,
		CulledMeshes: float64(p.culledMeshes) / frames,
		SkippedDraws: p.skippedDraws,
	}

	runtime.ReadMemStats(&p.memStats)
	s.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	s.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	s.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	s.GCCount = p.memStats.NumGC
	if s.GCCount > 0 {
		// PauseNs is a ring of the last 256 pauses
		s.LastPauseUs = p.memStats.PauseNs[(s.GCCount-1)%256] / 1000
		start := p.lastGCCount
		if s.GCCount-start > 256 {
			start = s.GCCount - 256
		}
		for i := start; i < s.GCCount; i++ {
			s.MaxPauseUs = max(s.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.logger.Info("frame stats",
		zap.Float64("fps", s.FPS),
		zap.Float64("draw_calls", s.DrawCalls),
		zap.Float64("culled", s.CulledMeshes),
		zap.Int("skipped_draws", s.SkippedDraws),
		zap.Float64("heap_mb", s.HeapMB),
		zap.Float64("alloc_rate_mb", s.AllocRateMB),
		zap.Uint32("gc", s.GCCount),
		zap.Uint64("gc_last_us", s.LastPauseUs),
		zap.Uint64("gc_max_us", s.MaxPauseUs),
		zap.Float64("sys_mb", s.SysMB),
	)

	p.last = s
	p.frameCount = 0
	p.drawCalls = 0
	p.culledMeshes = 0
	p.skippedDraws = 0
	p.lastTime = current
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recent summary, the zero Stats before the first one.
func (p *Profiler) Last() Stats {
	return p.last
}
