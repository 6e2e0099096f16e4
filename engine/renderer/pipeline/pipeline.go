// Package pipeline describes the fixed-function state a render pipeline is created with.
// Pipelines are identified by a key derived from that state so a resource repository can cache them.
package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the program and the state the render pipeline is created from, plus the created pipeline.
type pipeline struct {
	program shader.Program

	// renderPipeline is nil until a resource repository creates it.
	renderPipeline *wgpu.RenderPipeline

	depthTestEnabled  bool
	depthWriteEnabled bool
	hasDepth          bool
	blendEnabled      bool

	cullMode    wgpu.CullMode
	topology    wgpu.PrimitiveTopology
	frontFace   wgpu.FrontFace
	writeMask   wgpu.ColorWriteMask
	blendState  *wgpu.BlendState
	colorFormat wgpu.TextureFormat
	sampleCount uint32
}

// Pipeline defines the interface for a render pipeline: a shader program plus depth, blend,
// cull and topology settings and the attachment format it renders into.
type Pipeline interface {
	// PipelineKey returns the unique key derived from the program and every state setting.
	// Two pipelines with the same key can share one GPU object.
	//
	// Returns:
	//   - string: the cache key
	PipelineKey() string

	// Program returns the shader program of the pipeline.
	Program() shader.Program

	// RenderPipeline returns the created GPU pipeline, or nil before creation.
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline stores the created GPU pipeline.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// DepthTestEnabled returns whether fragments are depth tested.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether fragments write depth.
	DepthWriteEnabled() bool

	// HasDepth returns whether the target has a depth attachment at all.
	HasDepth() bool

	// BlendEnabled returns whether blending is enabled for this pipeline.
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// ColorFormat returns the format of the color attachment.
	ColorFormat() wgpu.TextureFormat

	// SampleCount returns the multisample count of the attachments.
	SampleCount() uint32

	// Descriptor builds the WebGPU render pipeline descriptor.
	//
	// Parameters:
	//   - layout: the pipeline layout built from the program's bind groups
	//   - module: the compiled shader module of the program
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor ready for CreateRenderPipeline
	Descriptor(layout *wgpu.PipelineLayout, module *wgpu.ShaderModule) *wgpu.RenderPipelineDescriptor
}

var _ Pipeline = &pipeline{}

// AlphaBlending is the non-premultiplied "over" blend used by blended materials.
var AlphaBlending = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// NewPipeline is the entry point to create a new Pipeline for a program.
//
// Parameters:
//   - program: the reflected shader program
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline with depth test and write on, no blending and a triangle list topology
func NewPipeline(program shader.Program, opts ...PipelineBuilderOption) Pipeline {
	blend := AlphaBlending
	p := &pipeline{
		program:           program,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		hasDepth:          true,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState:        &blend,
		colorFormat:       wgpu.TextureFormatBGRA8Unorm,
		sampleCount:       1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return fmt.Sprintf("%s|topo=%d|cull=%d|blend=%t|depth=%t/%t/%t|fmt=%d|samples=%d",
		p.program.Key(), p.topology, p.cullMode, p.blendEnabled,
		p.hasDepth, p.depthTestEnabled, p.depthWriteEnabled, p.colorFormat, p.sampleCount)
}

func (p *pipeline) Program() shader.Program {
	return p.program
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) HasDepth() bool {
	return p.hasDepth
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) Descriptor(layout *wgpu.PipelineLayout, module *wgpu.ShaderModule) *wgpu.RenderPipelineDescriptor {
	target := wgpu.ColorTargetState{
		Format:    p.colorFormat,
		WriteMask: p.writeMask,
	}
	if p.blendEnabled {
		target.Blend = p.blendState
	}

	primitive := wgpu.PrimitiveState{
		Topology:  p.topology,
		FrontFace: p.frontFace,
		CullMode:  p.cullMode,
	}
	if p.topology == wgpu.PrimitiveTopologyTriangleStrip || p.topology == wgpu.PrimitiveTopologyLineStrip {
		primitive.StripIndexFormat = wgpu.IndexFormatUint32
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey(),
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: p.program.VertexEntryPoint(),
			Buffers:    p.program.VertexBufferLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: p.program.FragmentEntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: primitive,
		Multisample: wgpu.MultisampleState{
			Count: p.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	}

	if p.hasDepth {
		depthCompare := wgpu.CompareFunctionLess
		if !p.depthTestEnabled {
			depthCompare = wgpu.CompareFunctionAlways
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: p.depthWriteEnabled,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
	return desc
}
