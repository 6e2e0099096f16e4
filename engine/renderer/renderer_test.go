package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMaterial(t *testing.T, typeName string, options ...material.MaterialBuilderOption) material.Material {
	t.Helper()
	repo := material.NewMaterialRepository(8, nil)
	m, err := repo.CreateMaterial(typeName, options...)
	require.NoError(t, err)
	return m
}

func newTestPrimitive(t *testing.T, mode geometry.PrimitiveMode, indices []uint32, m material.Material) *geometry.Primitive {
	t.Helper()
	p, err := geometry.CreatePrimitive(memory.NewMemoryManager(config.Default()), geometry.PrimitiveDescriptor{
		Name:      "tri",
		Mode:      mode,
		Positions: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Indices:   indices,
		Material:  m,
	})
	require.NoError(t, err)
	return p
}

func newWorldMatrices(t *testing.T, count int) *memory.Accessor {
	t.Helper()
	buf := memory.NewBuffer("instances", count*InstanceDataStride, 16)
	view, err := buf.TakeBufferView(count*InstanceDataStride, 0)
	require.NoError(t, err)
	a, err := view.TakeAccessor(memory.AccessorDescriptor{CompositionType: memory.Mat4, ComponentType: memory.Float, Count: count})
	require.NoError(t, err)
	return a
}

func commandKinds(cmds []Command) []CommandKind {
	kinds := make([]CommandKind, 0, len(cmds))
	for _, c := range cmds {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

func TestHeadlessDummiesReadyWithoutCommands(t *testing.T) {
	r := NewHeadlessResourceRepository()

	for _, d := range r.DummyTextures().All() {
		assert.True(t, d.IsReady(), d.Name())
		assert.Equal(t, ResourceTexture, r.ResourceKind(d.Handle()))
		assert.Equal(t, ResourceSampler, r.ResourceKind(d.SamplerHandle()))
	}
	assert.Empty(t, r.Commands())
	assert.Equal(t, 6, r.ResourceCount())
}

func TestNewResourceRepository(t *testing.T) {
	r, err := NewResourceRepository(StrategyHeadless, nil, WithCanvasSize(320, 200))
	require.NoError(t, err)
	assert.Equal(t, StrategyHeadless, r.Strategy())
	w, h := r.CanvasSize()
	assert.Equal(t, 320, w)
	assert.Equal(t, 200, h)

	_, err = NewResourceRepository(StrategyWebGPU, nil)
	require.Error(t, err)
	_, err = NewResourceRepository(StrategyType(42), nil)
	require.Error(t, err)
}

func TestCreateShaderProgramSharesProgramPerSource(t *testing.T) {
	r := NewHeadlessResourceRepository()
	a := newTestMaterial(t, material.StandardMaterialType)
	b := newTestMaterial(t, material.StandardMaterialType)

	ha, err := r.CreateShaderProgram(a)
	require.NoError(t, err)
	hb, err := r.CreateShaderProgram(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Equal(t, ha, a.ShaderProgram())
	assert.NotEqual(t, a.ParamsHandle(), b.ParamsHandle())
	assert.Equal(t, ResourceProgram, r.ResourceKind(ha))
	assert.Equal(t, ResourceParams, r.ResourceKind(a.ParamsHandle()))
	assert.Equal(t, []CommandKind{
		CommandCreateShaderProgram,
		CommandUpdateMaterialParams,
		CommandUpdateMaterialParams,
	}, commandKinds(r.Commands()))
}

func TestCreateShaderProgramRejectsInvalidSource(t *testing.T) {
	r := NewHeadlessResourceRepository()
	m := newTestMaterial(t, material.StandardMaterialType, material.WithShaderSource("fn nothing() {}"))

	h, err := r.CreateShaderProgram(m)
	require.Error(t, err)
	assert.False(t, h.IsValid())
	assert.False(t, m.ShaderProgram().IsValid())
}

func TestUpdateMaterialParamsSkipsUnchangedVersion(t *testing.T) {
	r := NewHeadlessResourceRepository()
	m := newTestMaterial(t, material.StandardMaterialType)

	_, err := r.UpdateMaterialParams(m)
	require.ErrorIs(t, err, ErrShaderProgramNotCreated)

	_, err = r.CreateShaderProgram(m)
	require.NoError(t, err)

	uploaded, err := r.UpdateMaterialParams(m)
	require.NoError(t, err)
	assert.False(t, uploaded)

	m.SetBaseColor([4]float32{1, 0, 0, 1})
	uploaded, err = r.UpdateMaterialParams(m)
	require.NoError(t, err)
	assert.True(t, uploaded)
}

func TestUploadInstanceDataSkipsUnchangedBuffer(t *testing.T) {
	r := NewHeadlessResourceRepository()
	worlds := newWorldMatrices(t, 2)
	worlds.SetMat4(1, common.IdentityMat4())

	uploaded, err := r.UploadInstanceData(worlds)
	require.NoError(t, err)
	assert.True(t, uploaded)
	assert.Len(t, r.InstanceData(), 2*InstanceDataStride)

	uploaded, err = r.UploadInstanceData(worlds)
	require.NoError(t, err)
	assert.False(t, uploaded, "nothing changed since the last upload")

	worlds.SetMat4(0, common.ComposeTRS(common.Vec3{X: 1}, common.IdentityQuat(), common.Vec3{X: 1, Y: 1, Z: 1}))
	uploaded, err = r.UploadInstanceData(worlds)
	require.NoError(t, err)
	assert.True(t, uploaded)

	_, err = r.UploadInstanceData(nil)
	require.Error(t, err)
}

func TestDrawValidation(t *testing.T) {
	r := NewHeadlessResourceRepository()
	m := newTestMaterial(t, material.StandardMaterialType)
	p := newTestPrimitive(t, geometry.Triangles, []uint32{0, 1, 2}, m)

	err := r.Draw(DrawCommand{Primitive: p, Material: m})
	require.ErrorIs(t, err, ErrNoRenderPass)

	require.NoError(t, r.BeginRenderPass(RenderPassDescriptor{Label: "main"}))
	require.ErrorIs(t, r.BeginRenderPass(RenderPassDescriptor{}), ErrRenderPassOpen)

	err = r.Draw(DrawCommand{Primitive: p, Material: m})
	require.ErrorIs(t, err, ErrShaderProgramNotCreated)

	_, err = r.CreateShaderProgram(m)
	require.NoError(t, err)
	err = r.Draw(DrawCommand{Primitive: p, Material: m})
	require.ErrorIs(t, err, ErrPrimitiveNotUploaded)

	_, err = r.CreateVertexBufferAndIndexBuffer(p)
	require.NoError(t, err)
	require.NoError(t, r.Draw(DrawCommand{Primitive: p, Material: m, FirstInstance: 3}))

	require.ErrorIs(t, r.Present(), ErrRenderPassOpen)
	require.NoError(t, r.EndRenderPass())
	require.ErrorIs(t, r.EndRenderPass(), ErrNoRenderPass)
	require.NoError(t, r.Present())

	draws := r.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, uint32(3), draws[0].FirstInstance)
	assert.Equal(t, uint32(1), draws[0].InstanceCount)
}

func TestDrawFullscreenNeedsNoPrimitive(t *testing.T) {
	r := NewHeadlessResourceRepository()
	m := newTestMaterial(t, material.FullscreenMaterialType)
	_, err := r.CreateShaderProgram(m)
	require.NoError(t, err)

	require.NoError(t, r.BeginRenderPass(RenderPassDescriptor{}))
	require.NoError(t, r.Draw(DrawCommand{Material: m}))
	require.NoError(t, r.EndRenderPass())

	draws := r.Draws()
	require.Len(t, draws, 1)
	assert.True(t, draws[0].IsFullscreen())
}

func TestRecordedCommandsCarryPassIndex(t *testing.T) {
	r := NewHeadlessResourceRepository()
	m := newTestMaterial(t, material.StandardMaterialType)
	p := newTestPrimitive(t, geometry.Triangles, nil, m)
	_, err := r.CreateShaderProgram(m)
	require.NoError(t, err)
	_, err = r.CreateVertexBufferAndIndexBuffer(p)
	require.NoError(t, err)
	r.ResetCommands()

	for range 2 {
		require.NoError(t, r.BeginRenderPass(RenderPassDescriptor{}))
		require.NoError(t, r.Draw(DrawCommand{Primitive: p, Material: m}))
		require.NoError(t, r.EndRenderPass())
	}
	require.NoError(t, r.Present())

	var passes []int
	for _, c := range r.Commands() {
		if c.Kind == CommandDraw {
			passes = append(passes, c.Pass)
		}
	}
	assert.Equal(t, []int{0, 1}, passes)
	assert.Equal(t, -1, r.Commands()[len(r.Commands())-1].Pass)
}

func TestVertexHandlesExpandFanAndLoop(t *testing.T) {
	r := NewHeadlessResourceRepository()
	m := newTestMaterial(t, material.StandardMaterialType)

	fan := newTestPrimitive(t, geometry.TriangleFan, nil, m)
	h, err := r.CreateVertexBufferAndIndexBuffer(fan)
	require.NoError(t, err)
	assert.Equal(t, geometry.Triangles, h.Mode)
	assert.Equal(t, 6, h.Count)
	assert.True(t, h.IsIndexed())
	assert.Same(t, h, fan.VertexHandles())

	loop := newTestPrimitive(t, geometry.LineLoop, []uint32{0, 1, 2}, m)
	h, err = r.CreateVertexBufferAndIndexBuffer(loop)
	require.NoError(t, err)
	assert.Equal(t, geometry.Lines, h.Mode)
	assert.Equal(t, 6, h.Count)

	tris := newTestPrimitive(t, geometry.Triangles, nil, m)
	h, err = r.CreateVertexBufferAndIndexBuffer(tris)
	require.NoError(t, err)
	assert.False(t, h.IsIndexed())
	assert.Equal(t, 4, h.Count)
	for _, s := range vertexStreams {
		assert.Equal(t, ResourceVertexBuffer, r.ResourceKind(h.VertexBuffers[s.semantic]))
	}
}

func TestDrawIndices(t *testing.T) {
	mode, idx := drawIndices(geometry.TriangleFan, []uint32{4, 5, 6, 7}, 8)
	assert.Equal(t, geometry.Triangles, mode)
	assert.Equal(t, []uint32{4, 5, 6, 4, 6, 7}, idx)

	mode, idx = drawIndices(geometry.LineLoop, nil, 3)
	assert.Equal(t, geometry.Lines, mode)
	assert.Equal(t, []uint32{0, 1, 1, 2, 2, 0}, idx)

	mode, idx = drawIndices(geometry.TriangleStrip, nil, 4)
	assert.Equal(t, geometry.TriangleStrip, mode)
	assert.Nil(t, idx)
}

func TestPackAttributeZeroFillsMissingStream(t *testing.T) {
	out := packAttribute(nil, 3, 4)
	assert.Len(t, out, 4*3*4)
	for _, b := range out {
		assert.Zero(t, b)
	}
}

func TestDeleteVertexBuffersAndResources(t *testing.T) {
	r := NewHeadlessResourceRepository()
	m := newTestMaterial(t, material.StandardMaterialType)
	p := newTestPrimitive(t, geometry.Triangles, []uint32{0, 1, 2}, m)
	before := r.ResourceCount()

	h, err := r.CreateVertexBufferAndIndexBuffer(p)
	require.NoError(t, err)
	assert.Equal(t, before+4, r.ResourceCount())

	r.DeleteVertexBufferAndIndexBuffer(h)
	assert.Equal(t, before, r.ResourceCount())
	assert.Equal(t, ResourceUnknownHandle, r.ResourceKind(h.IndexBuffer))

	require.ErrorIs(t, r.DeleteResource(h.IndexBuffer), ErrResourceNotFound)

	prog, err := r.CreateShaderProgram(m)
	require.NoError(t, err)
	require.NoError(t, r.DeleteResource(prog))

	// deleting a program drops the source cache so it is created again
	again, err := r.CreateShaderProgram(m)
	require.NoError(t, err)
	assert.NotEqual(t, prog, again)
}

func TestRenderTargetAttachments(t *testing.T) {
	r := NewHeadlessResourceRepository()

	_, err := r.CreateRenderTargetTexture(RenderTargetDescriptor{Label: "empty"})
	require.Error(t, err)

	color, err := r.CreateRenderTargetTexture(RenderTargetDescriptor{Label: "color", Width: 64, Height: 64, Format: FormatRGBA8})
	require.NoError(t, err)
	depth, err := r.CreateRenderTargetTexture(RenderTargetDescriptor{Label: "depth", Width: 64, Height: 64, Format: FormatDepth24})
	require.NoError(t, err)
	assert.Equal(t, ResourceRenderTarget, r.ResourceKind(color))

	err = r.BeginRenderPass(RenderPassDescriptor{ColorAttachments: []common.CGAPIResourceHandle{r.DummyTextures().White.Handle()}})
	require.ErrorIs(t, err, ErrResourceNotFound, "a sampled texture is not an attachment")

	clear := [4]float32{0, 0, 0, 1}
	require.NoError(t, r.BeginRenderPass(RenderPassDescriptor{
		Label:            "offscreen",
		ColorAttachments: []common.CGAPIResourceHandle{color},
		DepthAttachment:  depth,
		ClearColor:       &clear,
	}))
	require.NoError(t, r.EndRenderPass())

	cmds := r.Commands()
	begin := cmds[len(cmds)-2]
	require.Equal(t, CommandBeginRenderPass, begin.Kind)
	assert.False(t, begin.RenderPass.IsSurface())
	assert.Equal(t, depth, begin.RenderPass.DepthAttachment)
}

func TestCreateTextureValidatesPixels(t *testing.T) {
	r := NewHeadlessResourceRepository()

	require.Error(t, r.CreateTexture(texture.NewTexture("empty")))

	short := texture.NewTextureFromPixels("short", &common.TextureStagingData{Pixels: []byte{1, 2, 3, 4}, Width: 2, Height: 2})
	require.Error(t, r.CreateTexture(short))
	assert.False(t, short.IsReady())

	ok := texture.NewTextureFromPixels("ok", &common.TextureStagingData{Pixels: make([]byte, 16), Width: 2, Height: 2})
	require.NoError(t, r.CreateTexture(ok))
	assert.True(t, ok.IsReady())
}

func TestFrameUniformLayout(t *testing.T) {
	u := FrameUniform{
		ViewProjection: common.IdentityMat4(),
		CameraPosition: common.Vec3{X: 1, Y: 2, Z: 3},
		LightCount:     4,
	}
	buf := u.Marshal()
	require.Len(t, buf, FrameUniformSize)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(1), f(0))
	assert.Equal(t, float32(1), f(60))
	assert.Equal(t, float32(1), f(64))
	assert.Equal(t, float32(3), f(72))
	assert.Equal(t, float32(1), f(76))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(buf[80:]))
}

func TestLightLayout(t *testing.T) {
	l := GPULight{
		Position:     common.Vec3{X: 1, Y: 2, Z: 3},
		Type:         LightTypeSpot,
		Direction:    common.Vec3{Z: -1},
		Color:        common.Vec3{X: 5},
		Range:        10,
		InnerConeCos: 0.9,
		OuterConeCos: 0.8,
	}
	buf := MarshalLights([]GPULight{l, l})
	require.Len(t, buf, 2*GPULightSize)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(LightTypeSpot), f(12))
	assert.Equal(t, float32(-1), f(24))
	assert.Equal(t, float32(5), f(32))
	assert.Equal(t, float32(10), f(48))
	assert.Equal(t, float32(0.8), f(56))
	assert.Equal(t, float32(3), f(GPULightSize+8))

	assert.Len(t, MarshalLights(nil), GPULightSize)
}

func TestParsePresentMode(t *testing.T) {
	assert.Equal(t, PresentModeUncapped, ParsePresentMode("immediate"))
	assert.Equal(t, PresentModeMailbox, ParsePresentMode("mailbox"))
	assert.Equal(t, PresentModeVSync, ParsePresentMode("fifo"))
	assert.Equal(t, PresentModeVSync, ParsePresentMode(""))
}
