package render_pipeline

import (
	"encoding/binary"
	"math"
	"slices"
	"testing"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/components"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testScene struct {
	w         *ecs.World
	repo      renderer.HeadlessResourceRepository
	materials material.MaterialRepository
}

func newTestScene(t *testing.T) *testScene {
	t.Helper()
	w := ecs.NewWorld(config.Default())
	require.NoError(t, components.Register(w))
	repo := renderer.NewHeadlessResourceRepository()
	ecs.SetResource[renderer.CGAPIResourceRepository](w, repo)
	return &testScene{w: w, repo: repo, materials: material.NewMaterialRepository(16, nil)}
}

func (s *testScene) material(t *testing.T, options ...material.MaterialBuilderOption) material.Material {
	t.Helper()
	m, err := s.materials.CreateMaterial(material.StandardMaterialType, options...)
	require.NoError(t, err)
	return m
}

func (s *testScene) meshEntity(t *testing.T, m material.Material, pos common.Vec3) *ecs.Entity {
	t.Helper()
	p, err := geometry.CreatePrimitive(s.w.MemoryManager(), geometry.PrimitiveDescriptor{
		Name:      "quad",
		Mode:      geometry.Triangles,
		Positions: []float32{-1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  m,
	})
	require.NoError(t, err)
	mesh := geometry.NewMesh("quad")
	mesh.AddPrimitive(p)

	e, err := components.CreateMeshEntity(s.w, mesh)
	require.NoError(t, err)
	tr, _ := components.GetTransform(e)
	tr.SetLocalPosition(pos)
	return e
}

func (s *testScene) camera(t *testing.T, pos common.Vec3) *components.CameraComponent {
	t.Helper()
	e, cam, err := components.CreateCameraEntity(s.w)
	require.NoError(t, err)
	tr, _ := components.GetTransform(e)
	tr.SetLocalPosition(pos)
	return cam
}

func (s *testScene) prepare() {
	for _, stage := range []ecs.ProcessStage{ecs.StageLoad, ecs.StageLogic, ecs.StagePreRender} {
		s.w.Components().ProcessAll(stage)
	}
}

func sceneGraphSID(t *testing.T, e *ecs.Entity) uint32 {
	t.Helper()
	sg, ok := components.GetSceneGraph(e)
	require.True(t, ok)
	return uint32(sg.ComponentSID())
}

func TestRenderPassMeshComponentsFollowHierarchy(t *testing.T) {
	s := newTestScene(t)
	root, err := components.CreateGroupEntity(s.w)
	require.NoError(t, err)
	rootSG, _ := components.GetSceneGraph(root)

	a := s.meshEntity(t, s.material(t), common.Vec3{})
	aSG, _ := components.GetSceneGraph(a)
	require.NoError(t, rootSG.AddChild(aSG))

	p := NewRenderPass(WithEntities(root, root))
	assert.Len(t, p.Entities(), 1)
	require.Len(t, p.MeshComponents(), 1)
	assert.Equal(t, a.EntityUID(), p.MeshComponents()[0].EntityUID())

	b := s.meshEntity(t, s.material(t), common.Vec3{})
	bSG, _ := components.GetSceneGraph(b)
	require.NoError(t, aSG.AddChild(bSG))
	assert.Len(t, p.MeshComponents(), 2)

	require.NoError(t, s.w.Entities().DeleteEntity(b.EntityUID()))
	assert.Len(t, p.MeshComponents(), 1)

	p.ClearEntities()
	assert.Empty(t, p.MeshComponents())
}

func TestRenderPassDefaults(t *testing.T) {
	p := NewRenderPass()
	for _, c := range []geometry.TranslucencyType{geometry.Opaque, geometry.Translucent, geometry.BlendWithZWrite, geometry.BlendWithoutZWrite} {
		assert.True(t, p.Draws(c), c.String())
	}
	assert.True(t, p.DepthTest())
	assert.True(t, p.Enabled())
	assert.Nil(t, p.FrameBuffer())
	assert.NotEqual(t, p.RenderPassUID(), NewRenderPass().RenderPassUID())

	p.SetMaterial(material.NewMaterial())
	assert.False(t, p.DepthTest())
}

func newTwoExpressionFrame() (Frame, Expression, Expression, RenderPass, RenderPass, FrameBuffer) {
	fb := NewFrameBuffer(64, 32, WithLabel("offscreen"), WithColorAttachments(2))
	scenePass := NewRenderPass(WithTag("scene"))
	postPass := NewRenderPass(WithTag("post"))
	first := NewExpression("first", scenePass)
	second := NewExpression("second", postPass)

	f := NewFrame()
	f.AddExpression(first, WithOutput(scenePass, fb))
	f.AddExpression(second, WithInputRenderPasses(scenePass))
	return f, first, second, scenePass, postPass, fb
}

func TestFrameColorAttachmentFromInputOf(t *testing.T) {
	f, first, second, scenePass, postPass, fb := newTwoExpressionFrame()
	require.NoError(t, f.Resolve())
	assert.Equal(t, fb, scenePass.FrameBuffer())

	rt, err := f.ColorAttachmentFromInputOf(second, scenePass, 1)
	require.NoError(t, err)
	want, _ := fb.ColorAttachment(1)
	assert.Same(t, want, rt)

	_, err = f.ColorAttachmentFromInputOf(second, scenePass, 2)
	require.ErrorIs(t, err, ErrAttachmentNotFound)

	// not declared as an input
	_, err = f.ColorAttachmentFromInputOf(second, postPass, 0)
	require.ErrorIs(t, err, ErrAttachmentNotFound)
	_, err = f.ColorAttachmentFromInputOf(first, scenePass, 0)
	require.ErrorIs(t, err, ErrAttachmentNotFound)

	_, err = f.ColorAttachmentFromInputOf(NewExpression("stray"), scenePass, 0)
	require.ErrorIs(t, err, ErrExpressionNotInFrame)
}

func TestFrameResolvePrefersResolveTarget(t *testing.T) {
	msaa := NewFrameBuffer(16, 16, WithSampleCount(4))
	resolved := NewFrameBuffer(16, 16, WithDepthAttachment(false))
	scenePass := NewRenderPass()
	post := NewExpression("post", NewRenderPass())

	f := NewFrame()
	f.AddExpression(NewExpression("scene", scenePass), WithOutput(scenePass, msaa), WithResolveOutput(scenePass, resolved))
	f.AddExpression(post, WithInputRenderPasses(scenePass))
	require.NoError(t, f.Resolve())

	assert.Equal(t, resolved, scenePass.ResolveFrameBuffer())
	rt, err := f.ColorAttachmentFromInputOf(post, scenePass, 0)
	require.NoError(t, err)
	want, _ := resolved.ColorAttachment(0)
	assert.Same(t, want, rt)
	assert.Equal(t, []FrameBuffer{msaa, resolved}, f.FrameBuffers())
	assert.Nil(t, resolved.DepthAttachment())
}

func TestFrameResolveErrors(t *testing.T) {
	a := NewRenderPass(WithTag("a"))
	b := NewRenderPass(WithTag("b"))

	f := NewFrame()
	f.AddExpression(NewExpression("one", a), WithOutput(b, NewFrameBuffer(8, 8)))
	require.ErrorIs(t, f.Resolve(), ErrPassNotInExpression)

	// input produced by a later expression
	f = NewFrame()
	f.AddExpression(NewExpression("one", a), WithInputRenderPasses(b))
	f.AddExpression(NewExpression("two", b), WithOutput(b, NewFrameBuffer(8, 8)))
	require.ErrorIs(t, f.Resolve(), ErrAttachmentNotFound)

	// input rendered to the surface
	f = NewFrame()
	f.AddExpression(NewExpression("one", a))
	f.AddExpression(NewExpression("two", b), WithInputRenderPasses(a))
	require.ErrorIs(t, f.Resolve(), ErrAttachmentNotFound)
}

func TestFrameBufferLifecycle(t *testing.T) {
	repo := renderer.NewHeadlessResourceRepository()
	fb := NewFrameBuffer(32, 32, WithColorAttachments(2))

	rt, _ := fb.ColorAttachment(0)
	assert.False(t, rt.IsReady())
	require.NoError(t, fb.Create(repo))
	require.NoError(t, fb.Create(repo))
	assert.True(t, fb.IsCreated())
	assert.True(t, rt.IsReady())
	assert.Equal(t, renderer.ResourceRenderTarget, repo.ResourceKind(rt.Handle()))
	assert.Equal(t, renderer.ResourceRenderTarget, repo.ResourceKind(fb.DepthAttachment().Handle()))

	created := 0
	for _, c := range repo.Commands() {
		if c.Kind == renderer.CommandCreateRenderTarget {
			created++
		}
	}
	assert.Equal(t, 3, created)

	old := rt.Handle()
	require.NoError(t, fb.Resize(repo, 64, 16))
	w, h := fb.Size()
	assert.Equal(t, uint32(64), w)
	assert.Equal(t, uint32(16), h)
	assert.Equal(t, renderer.ResourceUnknownHandle, repo.ResourceKind(old))
	resized, _ := fb.ColorAttachment(0)
	assert.Equal(t, uint32(64), resized.Width)
	assert.True(t, resized.IsReady())

	fb.Release(repo)
	assert.False(t, fb.IsCreated())
	assert.False(t, resized.IsReady())

	bad := NewFrameBuffer(0, 0)
	require.Error(t, bad.Create(repo))
	assert.False(t, bad.IsCreated())
}

func TestExecuteSortsOpaqueBeforeBlend(t *testing.T) {
	s := newTestScene(t)
	s.camera(t, common.Vec3{Z: 5})
	far := s.meshEntity(t, s.material(t), common.Vec3{Z: -5})
	blend := s.meshEntity(t, s.material(t, material.WithAlphaMode(material.AlphaModeBlend)), common.Vec3{Z: 2})
	near := s.meshEntity(t, s.material(t), common.Vec3{})
	s.prepare()

	p := NewRenderPass(WithEntities(far, blend, near), WithClearColor([4]float32{0, 0, 0, 1}), WithClearDepth(1))
	f := NewFrame()
	f.AddExpression(NewExpression("main", p))
	require.NoError(t, f.Resolve())

	s.repo.ResetCommands()
	stats, err := NewFrameExecutor(s.repo, nil).Execute(s.w, f)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RenderPasses)
	assert.Equal(t, 3, stats.DrawCalls)
	assert.Zero(t, stats.SkippedDraws)

	draws := s.repo.Draws()
	require.Len(t, draws, 3)
	assert.Equal(t, sceneGraphSID(t, near), draws[0].FirstInstance)
	assert.Equal(t, sceneGraphSID(t, far), draws[1].FirstInstance)
	assert.Equal(t, sceneGraphSID(t, blend), draws[2].FirstInstance)
	assert.True(t, draws[0].DepthWrite)
	assert.False(t, draws[2].DepthWrite)

	kinds := make([]renderer.CommandKind, 0)
	for _, c := range s.repo.Commands() {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, renderer.CommandUpdateLights, kinds[0])
	assert.Equal(t, renderer.CommandPresent, kinds[len(kinds)-1])
}

func TestExecuteUploadsMatricesChangedAfterPreRender(t *testing.T) {
	s := newTestScene(t)
	s.camera(t, common.Vec3{Z: 5})
	e := s.meshEntity(t, s.material(t), common.Vec3{})
	s.prepare()

	f := NewFrame()
	f.AddExpression(NewExpression("main", NewRenderPass(WithEntities(e))))
	require.NoError(t, f.Resolve())
	x := NewFrameExecutor(s.repo, nil)

	// nothing moved since PreRender: no second upload
	s.repo.ResetCommands()
	_, err := x.Execute(s.w, f)
	require.NoError(t, err)
	for _, c := range s.repo.Commands() {
		assert.NotEqual(t, renderer.CommandUploadInstanceData, c.Kind)
	}

	tr, _ := components.GetTransform(e)
	tr.SetLocalPosition(common.Vec3{X: 3})
	s.repo.ResetCommands()
	_, err = x.Execute(s.w, f)
	require.NoError(t, err)

	var kinds []renderer.CommandKind
	for _, c := range s.repo.Commands() {
		kinds = append(kinds, c.Kind)
	}
	upload := slices.Index(kinds, renderer.CommandUploadInstanceData)
	draw := slices.Index(kinds, renderer.CommandDraw)
	require.GreaterOrEqual(t, upload, 0)
	assert.Less(t, upload, draw)

	sg, _ := components.GetSceneGraph(e)
	row := int(sg.ComponentSID()) * sg.WorldMatrixAccessor().ByteStride()
	data := s.repo.InstanceData()
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(data[row+48:])))
}

func TestExecuteFiltersAndCulls(t *testing.T) {
	s := newTestScene(t)
	s.camera(t, common.Vec3{Z: 5})
	opaque := s.meshEntity(t, s.material(t), common.Vec3{})
	behind := s.meshEntity(t, s.material(t), common.Vec3{Z: 20})
	blend := s.meshEntity(t, s.material(t, material.WithAlphaMode(material.AlphaModeBlend)), common.Vec3{})
	hidden := s.meshEntity(t, s.material(t), common.Vec3{})
	mr, _ := components.GetMeshRenderer(hidden)
	mr.SetVisible(false)
	s.prepare()

	p := NewRenderPass(
		WithEntities(opaque, behind, blend, hidden),
		WithFrustumCulling(true),
		WithPrimitiveClasses(true, false, false, false),
	)
	f := NewFrame()
	f.AddExpression(NewExpression("main", p))

	s.repo.ResetCommands()
	stats, err := NewFrameExecutor(s.repo, nil).Execute(s.w, f)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CulledMeshes)
	require.Len(t, s.repo.Draws(), 1)
	assert.Equal(t, sceneGraphSID(t, opaque), s.repo.Draws()[0].FirstInstance)

	p.SetEnabled(false)
	stats, err = NewFrameExecutor(s.repo, nil).Execute(s.w, f)
	require.NoError(t, err)
	assert.Zero(t, stats.RenderPasses)
}

func TestExecuteFullscreenPassReadsOffscreenTarget(t *testing.T) {
	s := newTestScene(t)
	s.camera(t, common.Vec3{Z: 5})
	e := s.meshEntity(t, s.material(t), common.Vec3{})
	s.prepare()

	fb := NewFrameBuffer(64, 64)
	scenePass := NewRenderPass(WithEntities(e), WithClearColor([4]float32{}))
	blit, err := s.materials.CreateMaterial(material.FullscreenMaterialType)
	require.NoError(t, err)
	post := NewRenderPass(WithMaterial(blit), WithTag("blit"))
	postExpr := NewExpression("post", post)

	f := NewFrame()
	f.AddExpression(NewExpression("scene", scenePass), WithOutput(scenePass, fb))
	f.AddExpression(postExpr, WithInputRenderPasses(scenePass))
	require.NoError(t, f.Resolve())
	rt, err := f.ColorAttachmentFromInputOf(postExpr, scenePass, 0)
	require.NoError(t, err)
	blit.SetBaseColorTexture(rt.Texture())

	s.repo.ResetCommands()
	stats, err := NewFrameExecutor(s.repo, nil).Execute(s.w, f)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RenderPasses)
	assert.Equal(t, 2, stats.DrawCalls)
	assert.True(t, rt.IsReady())
	assert.True(t, blit.ShaderProgram().IsValid())

	var passes []renderer.RenderPassDescriptor
	for _, c := range s.repo.Commands() {
		if c.Kind == renderer.CommandBeginRenderPass {
			passes = append(passes, *c.RenderPass)
		}
	}
	require.Len(t, passes, 2)
	assert.Equal(t, []common.CGAPIResourceHandle{rt.Handle()}, passes[0].ColorAttachments)
	assert.Equal(t, fb.DepthAttachment().Handle(), passes[0].DepthAttachment)
	assert.True(t, passes[1].IsSurface())
	assert.Equal(t, "blit", passes[1].Label)

	draws := s.repo.Draws()
	require.Len(t, draws, 2)
	assert.True(t, draws[1].IsFullscreen())
	assert.False(t, draws[1].DepthTest)
}

const testLayout = `
frame_buffers:
  - name: scene
    width: 320
    height: 200
    sample_count: 4
  - name: resolved
    width: 320
    height: 200
    depth: false
expressions:
  - tag: main
    passes:
      - tag: opaque
        frame_buffer: scene
        resolve_frame_buffer: resolved
        clear_color: [0.1, 0.2, 0.3, 1]
        clear_depth: 1
        frustum_culling: true
        primitives: [opaque]
      - tag: blended
        frame_buffer: scene
        resolve_frame_buffer: resolved
        primitives: [translucent, blend_with_z_write, blend_without_z_write]
  - tag: post
    passes:
      - tag: blit
        fullscreen: true
        input_texture: {pass: main/opaque, attachment: 0}
`

func TestFrameLayoutBuild(t *testing.T) {
	s := newTestScene(t)
	e := s.meshEntity(t, s.material(t), common.Vec3{})

	layout, err := ParseFrameLayout([]byte(testLayout))
	require.NoError(t, err)
	require.Len(t, layout.FrameBuffers, 2)

	f, err := layout.Build(s.materials, e)
	require.NoError(t, err)
	require.Len(t, f.Expressions(), 2)

	main, ok := f.ExpressionByTag("main")
	require.True(t, ok)
	opaque, ok := main.RenderPassByTag("opaque")
	require.True(t, ok)
	require.NotNil(t, opaque.FrameBuffer())
	assert.Equal(t, "scene", opaque.FrameBuffer().Label())
	assert.Equal(t, uint32(4), opaque.FrameBuffer().SampleCount())
	assert.Equal(t, "resolved", opaque.ResolveFrameBuffer().Label())
	assert.Equal(t, &[4]float32{0.1, 0.2, 0.3, 1}, opaque.ClearColor())
	assert.True(t, opaque.FrustumCulling())
	assert.True(t, opaque.Draws(geometry.Opaque))
	assert.False(t, opaque.Draws(geometry.BlendWithoutZWrite))
	assert.Len(t, opaque.MeshComponents(), 1)

	post, _ := f.ExpressionByTag("post")
	blit, ok := post.RenderPassByTag("blit")
	require.True(t, ok)
	require.NotNil(t, blit.Material())
	assert.Equal(t, material.FullscreenMaterialType, blit.Material().TypeName())
	want, _ := opaque.ResolveFrameBuffer().ColorAttachment(0)
	assert.Same(t, want.Texture(), blit.Material().BaseColorTexture())
	assert.Empty(t, blit.Entities())
}

func TestFrameLayoutInvalidReferences(t *testing.T) {
	cases := map[string]string{
		"unknown framebuffer": `
expressions:
  - tag: main
    passes:
      - tag: a
        frame_buffer: missing
`,
		"unknown input": `
expressions:
  - tag: main
    inputs: [nope/a]
    passes:
      - tag: a
`,
		"unknown class": `
expressions:
  - tag: main
    passes:
      - tag: a
        primitives: [glass]
`,
		"duplicate framebuffer": `
frame_buffers:
  - name: x
    width: 1
    height: 1
  - name: x
    width: 1
    height: 1
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			layout, err := ParseFrameLayout([]byte(doc))
			require.NoError(t, err)
			_, err = layout.Build(nil)
			require.ErrorIs(t, err, ErrInvalidFrameLayout)
		})
	}

	_, err := ParseFrameLayout([]byte("expressions: [:"))
	require.Error(t, err)
}
