package renderer

import (
	"errors"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
)

// StrategyType identifies the CG API implementation behind a CGAPIResourceRepository.
type StrategyType int

const (
	// StrategyWebGPU issues real GPU work through WebGPU.
	StrategyWebGPU StrategyType = iota

	// StrategyHeadless records every call without touching a GPU. Used by tests and servers.
	StrategyHeadless
)

func (s StrategyType) String() string {
	switch s {
	case StrategyWebGPU:
		return "webgpu"
	case StrategyHeadless:
		return "headless"
	}
	return "unknown"
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped

	// PresentModeMailbox replaces the queued frame with the newest one without tearing.
	PresentModeMailbox
)

// ParsePresentMode maps the configuration strings "fifo", "immediate" and "mailbox".
func ParsePresentMode(s string) PresentMode {
	switch s {
	case "immediate":
		return PresentModeUncapped
	case "mailbox":
		return PresentModeMailbox
	}
	return PresentModeVSync
}

// MSAASampleCount is the number of samples of the surface color and depth attachments.
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4
)

// TextureFormat is the storage format of a render target texture.
type TextureFormat int

const (
	// FormatRGBA8 is an 8-bit per channel color target that can be sampled later.
	FormatRGBA8 TextureFormat = iota
	// FormatDepth24 is a depth target.
	FormatDepth24
)

func (f TextureFormat) IsDepth() bool { return f == FormatDepth24 }

var (
	// ErrNoRenderPass is returned when a draw or EndRenderPass happens outside BeginRenderPass/EndRenderPass.
	ErrNoRenderPass = errors.New("no render pass is open")

	// ErrRenderPassOpen is returned when a render pass is begun or the frame presented while another pass is open.
	ErrRenderPassOpen = errors.New("a render pass is already open")

	// ErrResourceNotFound is returned for handles the repository never created or already deleted.
	ErrResourceNotFound = errors.New("cg api resource not found")

	// ErrPrimitiveNotUploaded is returned when drawing a primitive without vertex handles.
	ErrPrimitiveNotUploaded = errors.New("primitive has no vertex buffers")

	// ErrShaderProgramNotCreated is returned when drawing with a material whose program was never created.
	ErrShaderProgramNotCreated = errors.New("material has no shader program")

	// ErrUnsupportedTopology is returned for primitive modes the strategy cannot draw.
	ErrUnsupportedTopology = errors.New("unsupported primitive topology")
)

// RenderTargetDescriptor describes a texture used as a framebuffer attachment.
type RenderTargetDescriptor struct {
	Label       string
	Width       uint32
	Height      uint32
	Format      TextureFormat
	SampleCount uint32
}

// RenderPassDescriptor selects the attachments and load operations of a render pass.
type RenderPassDescriptor struct {
	Label string
	// ColorAttachments are render target handles; empty renders to the surface.
	ColorAttachments []common.CGAPIResourceHandle
	// DepthAttachment is ignored for surface passes, which use the repository depth buffer.
	DepthAttachment common.CGAPIResourceHandle
	// ResolveTarget receives the resolved multisampled color when valid.
	ResolveTarget common.CGAPIResourceHandle
	// ClearColor clears the color attachments when set; nil loads their contents.
	ClearColor *[4]float32
	// ClearDepth clears the depth attachment when set; nil loads it.
	ClearDepth *float32
	// Viewport is x, y, width, height in pixels; nil covers the whole target.
	Viewport *[4]float32
}

// IsSurface reports whether the pass draws into the presentable surface.
func (d RenderPassDescriptor) IsSurface() bool {
	return len(d.ColorAttachments) == 0
}

// DrawCommand is one draw call: a primitive (or the fullscreen triangle) shaded by a material.
type DrawCommand struct {
	// Primitive is nil for the buffer-less fullscreen triangle.
	Primitive *geometry.Primitive
	Material  material.Material
	// FirstInstance indexes the world matrix storage buffer; it is the SceneGraph SID.
	FirstInstance uint32
	InstanceCount uint32
	DepthTest     bool
	DepthWrite    bool
}

// IsFullscreen reports whether the command draws the buffer-less fullscreen triangle.
func (c DrawCommand) IsFullscreen() bool {
	return c.Primitive == nil
}

func (c DrawCommand) instances() uint32 {
	if c.InstanceCount == 0 {
		return 1
	}
	return c.InstanceCount
}
