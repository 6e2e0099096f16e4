package render_pipeline

import (
	"github.com/Carmen-Shannon/rhodonite-go/engine/components"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
)

// RenderPassBuilderOption is a functional option for configuring a RenderPass.
// Use the With* functions to create options.
type RenderPassBuilderOption func(p *renderPass)

// WithTag sets the tag used to find the pass in a frame.
func WithTag(tag string) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.tag = tag
	}
}

// WithEntities registers the entities the pass draws.
//
// Parameters:
//   - entities: root entities; their SceneGraph descendants are drawn too
//
// Returns:
//   - RenderPassBuilderOption: option function to apply
func WithEntities(entities ...*ecs.Entity) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.AddEntities(entities...)
	}
}

// WithClearColor clears the color attachments to c before drawing.
func WithClearColor(c [4]float32) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.clearColor = &c
	}
}

// WithClearDepth clears the depth attachment to d before drawing.
func WithClearDepth(d float32) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.clearDepth = &d
	}
}

// WithCamera sets the camera of the pass instead of the world's current camera.
func WithCamera(c *components.CameraComponent) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.camera = c
	}
}

// WithMaterial makes the pass a fullscreen pass shaded by m.
//
// Parameters:
//   - m: the fullscreen material, usually of type material.FullscreenMaterialType
//
// Returns:
//   - RenderPassBuilderOption: option function to apply
func WithMaterial(m material.Material) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.material = m
	}
}

// WithFrameBuffer sets the render target of the pass.
func WithFrameBuffer(fb FrameBuffer) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.frameBuffer = fb
	}
}

// WithResolveFrameBuffer sets the framebuffer receiving the resolved multisampled color.
func WithResolveFrameBuffer(fb FrameBuffer) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.resolveFrameBuffer = fb
	}
}

// WithViewport restricts drawing to x, y, width, height in pixels.
func WithViewport(v [4]float32) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.viewport = &v
	}
}

// WithFrustumCulling skips mesh entities whose world AABB lies outside the camera frustum.
func WithFrustumCulling(enabled bool) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.frustumCulling = enabled
	}
}

// WithPrimitiveClasses selects which translucency classes the pass draws.
// Every class is drawn by default.
//
// Parameters:
//   - opaque: draw opaque primitives
//   - translucent: draw translucent primitives
//   - blendWithZWrite: draw blended primitives that write depth
//   - blendWithoutZWrite: draw blended primitives that do not write depth
//
// Returns:
//   - RenderPassBuilderOption: option function to apply
func WithPrimitiveClasses(opaque, translucent, blendWithZWrite, blendWithoutZWrite bool) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.opaque = opaque
		p.translucent = translucent
		p.blendWithZWrite = blendWithZWrite
		p.blendWithoutZWrite = blendWithoutZWrite
	}
}

// WithDepthTest enables or disables depth testing for the primitives of the pass.
func WithDepthTest(enabled bool) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.depthTest = enabled
	}
}
