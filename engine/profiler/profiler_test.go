package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/rhodonite-go/engine/render_pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickSummarizesInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(zap.New(core), WithClock(clock.now), WithInterval(time.Second))

	for i := 0; i < 9; i++ {
		clock.advance(100 * time.Millisecond)
		assert.False(t, p.Tick(render_pipeline.FrameStats{DrawCalls: 4, CulledMeshes: 1}))
	}
	clock.advance(100 * time.Millisecond)
	require.True(t, p.Tick(render_pipeline.FrameStats{DrawCalls: 4, CulledMeshes: 1, SkippedDraws: 2}))

	s := p.Last()
	assert.InDelta(t, 10, s.FPS, 1e-9)
	assert.InDelta(t, 4, s.DrawCalls, 1e-9)
	assert.InDelta(t, 1, s.CulledMeshes, 1e-9)
	assert.Equal(t, 2, s.SkippedDraws)
	assert.Positive(t, s.SysMB)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "profiler", entry.LoggerName)
	assert.Equal(t, "frame stats", entry.Message)
}

func TestTickResetsCounters(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(nil, WithClock(clock.now), WithInterval(time.Second))

	clock.advance(time.Second)
	require.True(t, p.Tick(render_pipeline.FrameStats{DrawCalls: 10}))

	clock.advance(500 * time.Millisecond)
	assert.False(t, p.Tick(render_pipeline.FrameStats{}))
	clock.advance(500 * time.Millisecond)
	require.True(t, p.Tick(render_pipeline.FrameStats{}))
	assert.InDelta(t, 2, p.Last().FPS, 1e-9)
	assert.Zero(t, p.Last().DrawCalls)
}
