// Package render_pipeline describes what is drawn each frame: render passes grouped into
// expressions, expressions ordered in a frame, and the framebuffers that connect them.
package render_pipeline

import (
	"slices"
	"sync/atomic"

	"github.com/Carmen-Shannon/rhodonite-go/engine/components"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
)

var renderPassCount atomic.Int32

// RenderPass draws a set of entities, or one fullscreen material, into a framebuffer.
// A pass without a framebuffer renders to the surface.
type RenderPass interface {
	// RenderPassUID returns the process-wide unique ID of the pass.
	RenderPassUID() int

	Tag() string
	SetTag(tag string)

	// AddEntities registers entities whose subtrees the pass draws.
	// Each entity's SceneGraph descendants are drawn as well.
	//
	// Parameters:
	//   - entities: entities to add; duplicates are ignored
	AddEntities(entities ...*ecs.Entity)

	// ClearEntities removes every registered entity.
	ClearEntities()

	// Entities returns the registered entities, without their descendants.
	Entities() []*ecs.Entity

	// MeshComponents returns the mesh components of the registered subtrees in traversal order.
	// The list is rebuilt only when the entity list or the world structure changed.
	//
	// Returns:
	//   - []*components.MeshComponent: live mesh components, no duplicates
	MeshComponents() []*components.MeshComponent

	// Draws reports whether primitives of class t are drawn by this pass.
	Draws(t geometry.TranslucencyType) bool

	ToRenderOpaquePrimitives() bool
	SetToRenderOpaquePrimitives(b bool)
	ToRenderTranslucentPrimitives() bool
	SetToRenderTranslucentPrimitives(b bool)
	ToRenderBlendWithZWritePrimitives() bool
	SetToRenderBlendWithZWritePrimitives(b bool)
	ToRenderBlendWithoutZWritePrimitives() bool
	SetToRenderBlendWithoutZWritePrimitives(b bool)

	// ClearColor returns the clear color, nil when the color attachment is loaded instead.
	ClearColor() *[4]float32
	SetClearColor(c *[4]float32)
	// ClearDepth returns the clear depth, nil when the depth attachment is loaded instead.
	ClearDepth() *float32
	SetClearDepth(d *float32)

	// Camera returns the pass camera; nil means the world's current camera.
	Camera() *components.CameraComponent
	SetCamera(c *components.CameraComponent)

	// Material returns the material of a fullscreen pass, nil for a pass drawing entities.
	Material() material.Material
	// SetMaterial turns the pass into a fullscreen pass that draws one viewport-covering triangle.
	SetMaterial(m material.Material)

	FrameBuffer() FrameBuffer
	SetFrameBuffer(fb FrameBuffer)

	// ResolveFrameBuffer receives the resolved color of a multisampled framebuffer.
	ResolveFrameBuffer() FrameBuffer
	SetResolveFrameBuffer(fb FrameBuffer)

	// Viewport returns x, y, width and height in pixels; nil covers the whole target.
	Viewport() *[4]float32
	SetViewport(v *[4]float32)

	FrustumCulling() bool
	SetFrustumCulling(b bool)

	// DepthTest reports whether drawn primitives are depth tested. Fullscreen passes never are.
	DepthTest() bool
	SetDepthTest(b bool)

	Enabled() bool
	SetEnabled(b bool)
}

type renderPass struct {
	uid int
	tag string

	entities        []*ecs.Entity
	entitiesVersion uint64

	meshComponents      []*components.MeshComponent
	cachedEntities      uint64
	cachedStructure     uint64
	meshComponentsValid bool

	opaque             bool
	translucent        bool
	blendWithZWrite    bool
	blendWithoutZWrite bool

	clearColor *[4]float32
	clearDepth *float32

	camera             *components.CameraComponent
	material           material.Material
	frameBuffer        FrameBuffer
	resolveFrameBuffer FrameBuffer
	viewport           *[4]float32

	frustumCulling bool
	depthTest      bool
	enabled        bool
}

var _ RenderPass = &renderPass{}

// NewRenderPass creates a pass that draws every translucency class with depth testing.
//
// Parameters:
//   - options: variadic list of RenderPassBuilderOption functions
//
// Returns:
//   - RenderPass: the pass
func NewRenderPass(options ...RenderPassBuilderOption) RenderPass {
	p := &renderPass{
		uid:                int(renderPassCount.Add(1)),
		opaque:             true,
		translucent:        true,
		blendWithZWrite:    true,
		blendWithoutZWrite: true,
		depthTest:          true,
		enabled:            true,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *renderPass) RenderPassUID() int { return p.uid }

func (p *renderPass) Tag() string { return p.tag }

func (p *renderPass) SetTag(tag string) { p.tag = tag }

func (p *renderPass) AddEntities(entities ...*ecs.Entity) {
	for _, e := range entities {
		if e == nil || slices.Contains(p.entities, e) {
			continue
		}
		p.entities = append(p.entities, e)
	}
	p.entitiesVersion++
}

func (p *renderPass) ClearEntities() {
	p.entities = nil
	p.entitiesVersion++
}

func (p *renderPass) Entities() []*ecs.Entity {
	return slices.Clone(p.entities)
}

func (p *renderPass) structureVersion() uint64 {
	for _, e := range p.entities {
		if w := e.World(); w != nil {
			return w.StructureVersion()
		}
	}
	return 0
}

func (p *renderPass) MeshComponents() []*components.MeshComponent {
	structure := p.structureVersion()
	if p.meshComponentsValid && p.cachedEntities == p.entitiesVersion && p.cachedStructure == structure {
		return p.meshComponents
	}

	p.meshComponents = make([]*components.MeshComponent, 0, len(p.meshComponents))
	seen := make(map[ecs.EntityUID]struct{})
	var walk func(sg *components.SceneGraphComponent)
	walk = func(sg *components.SceneGraphComponent) {
		if _, ok := seen[sg.EntityUID()]; ok {
			return
		}
		seen[sg.EntityUID()] = struct{}{}
		if e := sg.Entity(); e != nil {
			if mc, ok := components.GetMesh(e); ok {
				p.meshComponents = append(p.meshComponents, mc)
			}
		}
		for _, c := range sg.Children() {
			walk(c)
		}
	}
	for _, e := range p.entities {
		if !e.IsAlive() {
			continue
		}
		if sg, ok := components.GetSceneGraph(e); ok {
			walk(sg)
		}
	}

	p.cachedEntities = p.entitiesVersion
	p.cachedStructure = structure
	p.meshComponentsValid = true
	return p.meshComponents
}

func (p *renderPass) Draws(t geometry.TranslucencyType) bool {
	switch t {
	case geometry.Opaque:
		return p.opaque
	case geometry.Translucent:
		return p.translucent
	case geometry.BlendWithZWrite:
		return p.blendWithZWrite
	case geometry.BlendWithoutZWrite:
		return p.blendWithoutZWrite
	}
	return false
}

func (p *renderPass) ToRenderOpaquePrimitives() bool { return p.opaque }

func (p *renderPass) SetToRenderOpaquePrimitives(b bool) { p.opaque = b }

func (p *renderPass) ToRenderTranslucentPrimitives() bool { return p.translucent }

func (p *renderPass) SetToRenderTranslucentPrimitives(b bool) { p.translucent = b }

func (p *renderPass) ToRenderBlendWithZWritePrimitives() bool { return p.blendWithZWrite }

func (p *renderPass) SetToRenderBlendWithZWritePrimitives(b bool) { p.blendWithZWrite = b }

func (p *renderPass) ToRenderBlendWithoutZWritePrimitives() bool { return p.blendWithoutZWrite }

func (p *renderPass) SetToRenderBlendWithoutZWritePrimitives(b bool) { p.blendWithoutZWrite = b }

func (p *renderPass) ClearColor() *[4]float32 { return p.clearColor }

func (p *renderPass) SetClearColor(c *[4]float32) { p.clearColor = c }

func (p *renderPass) ClearDepth() *float32 { return p.clearDepth }

func (p *renderPass) SetClearDepth(d *float32) { p.clearDepth = d }

func (p *renderPass) Camera() *components.CameraComponent {
	if p.camera != nil && !p.camera.IsAlive() {
		p.camera = nil
	}
	return p.camera
}

func (p *renderPass) SetCamera(c *components.CameraComponent) { p.camera = c }

func (p *renderPass) Material() material.Material { return p.material }

func (p *renderPass) SetMaterial(m material.Material) { p.material = m }

func (p *renderPass) FrameBuffer() FrameBuffer { return p.frameBuffer }

func (p *renderPass) SetFrameBuffer(fb FrameBuffer) { p.frameBuffer = fb }

func (p *renderPass) ResolveFrameBuffer() FrameBuffer { return p.resolveFrameBuffer }

func (p *renderPass) SetResolveFrameBuffer(fb FrameBuffer) { p.resolveFrameBuffer = fb }

func (p *renderPass) Viewport() *[4]float32 { return p.viewport }

func (p *renderPass) SetViewport(v *[4]float32) { p.viewport = v }

func (p *renderPass) FrustumCulling() bool { return p.frustumCulling }

func (p *renderPass) SetFrustumCulling(b bool) { p.frustumCulling = b }

func (p *renderPass) DepthTest() bool { return p.depthTest && p.material == nil }

func (p *renderPass) SetDepthTest(b bool) { p.depthTest = b }

func (p *renderPass) Enabled() bool { return p.enabled }

func (p *renderPass) SetEnabled(b bool) { p.enabled = b }
