package shader

import (
	"testing"

	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardProgramReflection(t *testing.T) {
	p, err := NewProgram("standard", material.StandardShaderSource)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", p.VertexEntryPoint())
	assert.Equal(t, "fs_main", p.FragmentEntryPoint())
	assert.NotContains(t, p.Source(), includePrefix)
	assert.Equal(t, 1, MaxBindGroup(p))

	group0 := p.BindGroupLayoutDescriptors()[0].Entries
	require.Len(t, group0, 3)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, group0[0].Buffer.Type)
	assert.Equal(t, uint64(96), group0[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, group0[1].Buffer.Type)
	assert.Equal(t, uint64(64), group0[1].Buffer.MinBindingSize)
	assert.Equal(t, uint64(64), group0[2].Buffer.MinBindingSize)

	group1 := p.BindGroupLayoutDescriptors()[1].Entries
	require.Len(t, group1, 3)
	assert.Equal(t, uint64(32), group1[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.TextureViewDimension2D, group1[1].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, group1[1].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, group1[2].Sampler.Type)
	assert.Equal(t, "baseColorTexture", p.BindGroupVarName(1, 1))

	inputs := p.VertexInputs()
	require.Len(t, inputs, 3)
	assert.Equal(t, VertexInput{Name: "position", Location: 0, Format: wgpu.VertexFormatFloat32x3, Size: 12}, inputs[0])
	assert.Equal(t, uint32(2), inputs[2].Location)
	assert.Equal(t, uint64(8), p.VertexBufferLayouts()[2].ArrayStride)
}

func TestFullscreenProgramHasNoVertexInputs(t *testing.T) {
	p, err := NewProgram("fullscreen", material.FullscreenShaderSource)
	require.NoError(t, err)
	assert.Empty(t, p.VertexInputs())
	assert.Empty(t, p.VertexBufferLayouts())
	_, hasFrameGroup := p.BindGroupLayoutDescriptors()[0]
	assert.False(t, hasFrameGroup)
}

func TestProgramErrors(t *testing.T) {
	_, err := NewProgram("broken", "@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(); }")
	require.ErrorIs(t, err, ErrMissingEntryPoint)

	_, err = NewProgram("include", "//#include nothing\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing")
}

func TestPreProcessorIncludesOnce(t *testing.T) {
	pp := NewPreProcessor()
	pp.Register("x", "struct X { a: f32, };")
	out, err := pp.Process("//#include x\n  //#include x\nfn f() {}")
	require.NoError(t, err)
	assert.Equal(t, "struct X { a: f32, };\nfn f() {}", out)

	_, err = pp.Process("//#include\n")
	assert.Error(t, err)
}

func TestStructLayoutRules(t *testing.T) {
	structs := parseStructBlocks("struct A { a: vec3<f32>, b: f32, c: vec2<f32>, }; struct B { inner: A, n: array<A, 2>, };")
	sizes := computeStructSizes(structs)
	assert.Equal(t, wgslTypeLayout{32, 16}, sizes["A"])
	assert.Equal(t, wgslTypeLayout{96, 16}, sizes["B"])
}
