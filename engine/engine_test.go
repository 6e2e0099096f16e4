package engine

import (
	"context"
	"encoding/binary"
	"math"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/components"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/loader"
	"github.com/Carmen-Shannon/rhodonite-go/engine/render_pipeline"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	probeTID = ecs.FirstUserComponentTID + iota
	moverTID
)

// probe records the stages it is run in.
type probe struct {
	ecs.ComponentBase
	log *[]string
}

func (p *probe) OnCreate()    { *p.log = append(*p.log, "create") }
func (p *probe) OnLoad()      { *p.log = append(*p.log, "load") }
func (p *probe) OnMount()     { *p.log = append(*p.log, "mount") }
func (p *probe) OnLogic()     { *p.log = append(*p.log, "logic") }
func (p *probe) OnPreRender() { *p.log = append(*p.log, "prerender") }
func (p *probe) OnRender()    { *p.log = append(*p.log, "render") }
func (p *probe) OnUnmount()   { *p.log = append(*p.log, "unmount") }
func (p *probe) OnDiscard()   { *p.log = append(*p.log, "discard") }

// mover sets the X position of its entity to the number of Logic calls.
type mover struct {
	ecs.ComponentBase
	n int
}

func (m *mover) OnLogic() {
	m.n++
	if tr, ok := components.GetTransform(m.Entity()); ok {
		tr.SetLocalPosition(common.Vec3{X: float32(m.n)})
	}
}

func newTestSystem(t *testing.T, options ...SystemBuilderOption) (System, renderer.HeadlessResourceRepository) {
	t.Helper()
	repo := renderer.NewHeadlessResourceRepository(renderer.WithCanvasSize(640, 480))
	options = append([]SystemBuilderOption{WithResourceRepository(repo), WithLogger(zap.NewNop())}, options...)
	s := NewSystem(options...)
	require.NoError(t, s.Init())
	return s, repo
}

func newQuadEntity(t *testing.T, s System) *ecs.Entity {
	t.Helper()
	m, err := s.Materials().CreateMaterial(material.StandardMaterialType)
	require.NoError(t, err)
	p, err := geometry.CreatePrimitive(s.World().MemoryManager(), geometry.PrimitiveDescriptor{
		Name:      "quad",
		Mode:      geometry.Triangles,
		Positions: []float32{-1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  m,
	})
	require.NoError(t, err)
	mesh := geometry.NewMesh("quad")
	mesh.AddPrimitive(p)
	e, err := components.CreateMeshEntity(s.World(), mesh)
	require.NoError(t, err)
	return e
}

func newCamera(t *testing.T, s System, z float32) *components.CameraComponent {
	t.Helper()
	e, cam, err := components.CreateCameraEntity(s.World())
	require.NoError(t, err)
	tr, _ := components.GetTransform(e)
	tr.SetLocalPosition(common.Vec3{Z: z})
	cam.SetAsCurrent()
	return cam
}

func TestProcessBeforeInit(t *testing.T) {
	s := NewSystem()
	_, err := s.Process(nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.StartRenderLoop(func(float32) render_pipeline.Frame { return nil }), ErrNotInitialized)
}

func TestInitStoresCollaborators(t *testing.T) {
	s, repo := newTestSystem(t)

	w := s.World()
	require.NotNil(t, w)
	got, ok := ecs.Resource[renderer.CGAPIResourceRepository](w)
	require.True(t, ok)
	assert.Same(t, repo, got)
	_, ok = ecs.Resource[material.MaterialRepository](w)
	assert.True(t, ok)
	l, ok := ecs.Resource[loader.Loader](w)
	require.True(t, ok)
	assert.Same(t, s.Loader(), l)

	_, err := components.CreateGroupEntity(w)
	assert.NoError(t, err)
	assert.NoError(t, s.Init())
}

func TestInitRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxEntityNumber = 0
	err := NewSystem(WithConfig(cfg), WithLogger(zap.NewNop()), WithResourceRepository(renderer.NewHeadlessResourceRepository())).Init()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	err = NewSystem(WithConfigFile(filepath.Join(t.TempDir(), "missing.toml")), WithLogger(zap.NewNop())).Init()
	assert.Error(t, err)
}

func TestProcessRunsStagesInOrderAndPollsLoader(t *testing.T) {
	s, _ := newTestSystem(t)
	w := s.World()

	var log []string
	require.NoError(t, w.RegisterComponentClasses(
		ecs.NewComponentClass("Probe", probeTID, nil, func() ecs.Component { return &probe{log: &log} }),
	))
	e := w.Entities().CreateEntity()
	_, err := w.Entities().AddComponentToEntity(probeTID, e)
	require.NoError(t, err)

	loader.Submit(s.Loader(), "marker", func(loader.ProgressFunc) (int, error) { return 1, nil }).
		Then(func(int, error) { log = append(log, "poll") })
	ctxWait(t, s.Loader())

	_, err = s.Process(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"create", "poll", "load", "mount", "logic", "prerender", "render", "unmount", "discard"}, log)
	assert.Equal(t, uint64(1), s.ProcessCount())
}

func TestProcessExecutesFrame(t *testing.T) {
	s, repo := newTestSystem(t)
	newCamera(t, s, 5)
	e := newQuadEntity(t, s)

	f := render_pipeline.NewFrame()
	f.AddExpression(render_pipeline.NewExpression("main", render_pipeline.NewRenderPass(render_pipeline.WithEntities(e))))
	require.NoError(t, f.Resolve())

	stats, err := s.Process(f)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RenderPasses)
	assert.Equal(t, 1, stats.DrawCalls)
	require.Len(t, repo.Draws(), 1)

	mr, _ := components.GetMeshRenderer(e)
	assert.True(t, mr.IsReady())
}

func TestLogicMovesReachInstanceDataSameFrame(t *testing.T) {
	s, repo := newTestSystem(t)
	newCamera(t, s, 5)
	e := newQuadEntity(t, s)
	require.NoError(t, s.World().RegisterComponentClasses(
		ecs.NewComponentClass("Mover", moverTID, nil, func() ecs.Component { return &mover{} }),
	))
	_, err := s.World().Entities().AddComponentToEntity(moverTID, e)
	require.NoError(t, err)

	f := render_pipeline.NewFrame()
	f.AddExpression(render_pipeline.NewExpression("main", render_pipeline.NewRenderPass(render_pipeline.WithEntities(e))))
	require.NoError(t, f.Resolve())

	sg, _ := components.GetSceneGraph(e)
	acc := sg.WorldMatrixAccessor()
	for frame := 1; frame <= 3; frame++ {
		_, err := s.Process(f)
		require.NoError(t, err)

		data := repo.InstanceData()
		row := int(sg.ComponentSID()) * acc.ByteStride()
		require.GreaterOrEqual(t, len(data), row+64)
		// column-major translation X
		tx := math.Float32frombits(binary.LittleEndian.Uint32(data[row+48:]))
		assert.Equal(t, float32(frame), tx, "frame %d", frame)
		assert.Equal(t, float32(frame), sg.WorldMatrix().Translation().X)
	}
}

func TestResizeAppliedOnNextProcess(t *testing.T) {
	s, repo := newTestSystem(t)
	cam := newCamera(t, s, 5)

	s.Resize(800, 400)
	w, h := repo.CanvasSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	_, err := s.Process(nil)
	require.NoError(t, err)
	w, h = repo.CanvasSize()
	assert.Equal(t, 800, w)
	assert.Equal(t, 400, h)
	assert.InDelta(t, 2, cam.Aspect(), 1e-6)
}

func TestRenderLoopStartStopRestart(t *testing.T) {
	s, _ := newTestSystem(t, WithRenderFrameLimit(500))

	var frames atomic.Int64
	provider := func(float32) render_pipeline.Frame {
		frames.Add(1)
		return nil
	}
	assert.ErrorIs(t, s.RestartRenderLoop(), ErrNoFrameProvider)

	require.NoError(t, s.StartRenderLoop(provider))
	assert.ErrorIs(t, s.StartRenderLoop(provider), ErrRenderLoopRunning)
	assert.Eventually(t, func() bool { return frames.Load() > 2 }, time.Second, time.Millisecond)

	s.StopRenderLoop()
	assert.False(t, s.IsRenderLoopRunning())
	stopped := frames.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stopped, frames.Load())
	s.StopRenderLoop()

	require.NoError(t, s.RestartRenderLoop())
	assert.True(t, s.IsRenderLoopRunning())
	assert.Eventually(t, func() bool { return frames.Load() > stopped }, time.Second, time.Millisecond)
	s.StopRenderLoop()
	assert.NoError(t, s.RenderLoopErr())
}

func TestRenderLoopRecoversPanic(t *testing.T) {
	s, _ := newTestSystem(t)
	require.NoError(t, s.StartRenderLoop(func(float32) render_pipeline.Frame {
		panic("scene exploded")
	}))

	assert.Eventually(t, func() bool { return !s.IsRenderLoopRunning() }, time.Second, time.Millisecond)
	require.Error(t, s.RenderLoopErr())
	assert.Contains(t, s.RenderLoopErr().Error(), "scene exploded")
	s.StopRenderLoop()
}

func TestRunWithoutWindow(t *testing.T) {
	s, _ := newTestSystem(t)
	assert.ErrorIs(t, s.Run(func(float32) render_pipeline.Frame { return nil }), ErrNotInitialized)
}

func ctxWait(t *testing.T, l loader.Loader) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Wait(ctx))
}
