// Package geometry pairs vertex data with materials and computes the draw order of primitives.
package geometry

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
)

// PrimitiveMode is the topology of a primitive, numbered as in glTF.
type PrimitiveMode uint32

const (
	Points PrimitiveMode = iota
	Lines
	LineLoop
	LineStrip
	Triangles
	TriangleStrip
	TriangleFan
)

// VertexAttributeSemantic names a vertex attribute.
type VertexAttributeSemantic string

const (
	Position  VertexAttributeSemantic = "POSITION"
	Normal    VertexAttributeSemantic = "NORMAL"
	Tangent   VertexAttributeSemantic = "TANGENT"
	Texcoord0 VertexAttributeSemantic = "TEXCOORD_0"
	Texcoord1 VertexAttributeSemantic = "TEXCOORD_1"
	Color0    VertexAttributeSemantic = "COLOR_0"
	Joints0   VertexAttributeSemantic = "JOINTS_0"
	Weights0  VertexAttributeSemantic = "WEIGHTS_0"
)

// VertexHandles are the GPU buffers a resource repository created for a primitive.
type VertexHandles struct {
	// IndexBuffer is invalid for non-indexed draws.
	IndexBuffer   common.CGAPIResourceHandle
	VertexBuffers map[VertexAttributeSemantic]common.CGAPIResourceHandle
	// Mode is the topology as uploaded. Fans and loops are expanded into lists.
	Mode PrimitiveMode
	// Count is the number of indices, or vertices for non-indexed draws.
	Count int
}

// IsIndexed reports whether the draw reads an index buffer.
func (h *VertexHandles) IsIndexed() bool {
	return h.IndexBuffer.IsValid()
}

// Handles returns every buffer handle, index buffer first.
func (h *VertexHandles) Handles() []common.CGAPIResourceHandle {
	out := make([]common.CGAPIResourceHandle, 0, len(h.VertexBuffers)+1)
	if h.IndexBuffer.IsValid() {
		out = append(out, h.IndexBuffer)
	}
	for _, s := range sortedSemantics(h.VertexBuffers) {
		out = append(out, h.VertexBuffers[s])
	}
	return out
}

func sortedSemantics(m map[VertexAttributeSemantic]common.CGAPIResourceHandle) []VertexAttributeSemantic {
	out := make([]VertexAttributeSemantic, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Primitive is one draw call worth of geometry plus the material it is shaded with.
type Primitive struct {
	name       string
	mode       PrimitiveMode
	attributes map[VertexAttributeSemantic]*memory.Accessor
	semantics  []VertexAttributeSemantic
	indices    *memory.Accessor

	material         material.Material
	variants         map[string]material.Material
	activeVariant    string
	originalMaterial material.Material

	sortKey   PrimitiveSortKey
	viewDepth float32

	aabb      common.AABB
	aabbDirty bool

	vertexHandles *VertexHandles
}

// NewPrimitive creates a primitive from its builder options and computes its sort key.
//
// Parameters:
//   - options: functional options (mode, attributes, indices, material)
//
// Returns:
//   - *Primitive: the primitive
func NewPrimitive(options ...PrimitiveBuilderOption) *Primitive {
	p := &Primitive{
		mode:       Triangles,
		attributes: make(map[VertexAttributeSemantic]*memory.Accessor),
		variants:   make(map[string]material.Material),
		aabbDirty:  true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.calcSortKey()
	return p
}

func (p *Primitive) Name() string { return p.name }

func (p *Primitive) Mode() PrimitiveMode { return p.mode }

// Attribute returns the accessor of a vertex attribute.
func (p *Primitive) Attribute(s VertexAttributeSemantic) (*memory.Accessor, bool) {
	a, ok := p.attributes[s]
	return a, ok
}

// Semantics returns the attribute semantics in the order they were added.
func (p *Primitive) Semantics() []VertexAttributeSemantic { return p.semantics }

// Indices returns the index accessor, nil for non-indexed primitives.
func (p *Primitive) Indices() *memory.Accessor { return p.indices }

// VertexCount returns the number of vertices in the POSITION attribute.
func (p *Primitive) VertexCount() int {
	if a, ok := p.attributes[Position]; ok {
		return a.Count()
	}
	return 0
}

// IndexCount returns the number of indices, 0 for non-indexed primitives.
func (p *Primitive) IndexCount() int {
	if p.indices == nil {
		return 0
	}
	return p.indices.Count()
}

// DrawCount returns the number of vertices a draw call consumes.
func (p *Primitive) DrawCount() int {
	if p.indices != nil {
		return p.indices.Count()
	}
	return p.VertexCount()
}

func (p *Primitive) Material() material.Material { return p.material }

// SetMaterial replaces the material and recomputes the sort key.
func (p *Primitive) SetMaterial(m material.Material) {
	p.material = m
	p.calcSortKey()
}

// SortKey returns the packed draw-order key.
func (p *Primitive) SortKey() PrimitiveSortKey { return p.sortKey }

// ViewDepth returns the depth used to order primitives sharing a sort key.
func (p *Primitive) ViewDepth() float32 { return p.viewDepth }

// SetViewDepth records the depth of the primitive along the camera view direction.
func (p *Primitive) SetViewDepth(d float32) { p.viewDepth = d }

// SetViewportLayer sets the 3-bit viewport layer field of the sort key.
func (p *Primitive) SetViewportLayer(layer uint32) {
	p.sortKey = SetSortKeyField(p.sortKey, ViewportLayerOffset, ViewportLayerBits, layer)
}

// SetViewport sets the 3-bit viewport field of the sort key.
func (p *Primitive) SetViewport(viewport uint32) {
	p.sortKey = SetSortKeyField(p.sortKey, ViewportOffset, ViewportBits, viewport)
}

// SetFullscreenLayer sets the 2-bit fullscreen layer field of the sort key.
func (p *Primitive) SetFullscreenLayer(layer uint32) {
	p.sortKey = SetSortKeyField(p.sortKey, FullscreenLayerOffset, FullscreenLayerBits, layer)
}

// calcSortKey refreshes the fields derived from the topology and the material.
// Viewport and layer fields set by the caller are kept.
func (p *Primitive) calcSortKey() {
	key := SetSortKeyField(p.sortKey, PrimitiveTypeOffset, PrimitiveTypeBits, uint32(p.mode))
	var tid uint32
	translucency := Opaque
	if p.material != nil {
		tid = p.material.MaterialTID()
		switch {
		case p.material.IsTranslucent():
			translucency = Translucent
		case p.material.IsBlend() && p.material.ZWriteWhenBlend():
			translucency = BlendWithZWrite
		case p.material.IsBlend():
			translucency = BlendWithoutZWrite
		}
	}
	key = SetSortKeyField(key, MaterialTIDOffset, MaterialTIDBits, tid)
	key = SetSortKeyField(key, TranslucencyOffset, TranslucencyBits, uint32(translucency))
	p.sortKey = key
}

// RefreshSortKey recomputes the sort key after the material's blending state changed.
func (p *Primitive) RefreshSortKey() { p.calcSortKey() }

// SetMaterialVariant registers a named alternative material.
//
// Parameters:
//   - name: variant name
//   - m: the material used while the variant is active
func (p *Primitive) SetMaterialVariant(name string, m material.Material) {
	p.variants[name] = m
}

// ApplyMaterialVariant activates a named variant, or restores the original material when name is empty.
// The material replaced by the first variant is kept so it can be restored later.
//
// Parameters:
//   - name: variant name, empty to reset
//
// Returns:
//   - error: an error if the variant is not registered
func (p *Primitive) ApplyMaterialVariant(name string) error {
	if name == "" {
		if p.originalMaterial != nil {
			p.material = p.originalMaterial
			p.originalMaterial = nil
		}
		p.activeVariant = ""
		p.calcSortKey()
		return nil
	}

	m, ok := p.variants[name]
	if !ok {
		return fmt.Errorf("material variant %q not found on primitive %q", name, p.name)
	}
	if p.originalMaterial == nil {
		p.originalMaterial = p.material
	}
	p.material = m
	p.activeVariant = name
	p.calcSortKey()
	return nil
}

// MaterialVariant returns the material registered under name.
func (p *Primitive) MaterialVariant(name string) (material.Material, bool) {
	m, ok := p.variants[name]
	return m, ok
}

// ActiveMaterialVariant returns the active variant name, empty if none.
func (p *Primitive) ActiveMaterialVariant() string { return p.activeVariant }

// MaterialVariantNames returns the registered variant names sorted.
func (p *Primitive) MaterialVariantNames() []string {
	out := make([]string, 0, len(p.variants))
	for name := range p.variants {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// VertexHandles returns the GPU buffers, nil until the resource repository created them.
func (p *Primitive) VertexHandles() *VertexHandles { return p.vertexHandles }

// SetVertexHandles records the GPU buffers of the primitive.
func (p *Primitive) SetVertexHandles(h *VertexHandles) { p.vertexHandles = h }

// AABB returns the local bounding box of the POSITION attribute.
func (p *Primitive) AABB() common.AABB {
	if !p.aabbDirty {
		return p.aabb
	}
	box := common.NewAABB()
	if pos, ok := p.attributes[Position]; ok {
		for i := 0; i < pos.Count(); i++ {
			box = box.AddPoint(pos.GetVec3(i))
		}
	}
	p.aabb = box
	p.aabbDirty = false
	return box
}

// Triangles calls fn for every triangle of the primitive, in local space.
// Non-triangle topologies yield nothing. Iteration stops when fn returns false.
//
// Parameters:
//   - fn: receives the triangle index and its three vertices
func (p *Primitive) Triangles(fn func(i int, a, b, c common.Vec3) bool) {
	pos, ok := p.attributes[Position]
	if !ok {
		return
	}
	index := func(i int) int {
		if p.indices != nil {
			return int(p.indices.GetUint(i))
		}
		return i
	}
	n := p.DrawCount()

	switch p.mode {
	case Triangles:
		for t := 0; t+2 < n; t += 3 {
			if !fn(t/3, pos.GetVec3(index(t)), pos.GetVec3(index(t+1)), pos.GetVec3(index(t+2))) {
				return
			}
		}
	case TriangleStrip:
		for t := 0; t+2 < n; t++ {
			a, b, c := index(t), index(t+1), index(t+2)
			if t%2 == 1 {
				a, b = b, a
			}
			if !fn(t, pos.GetVec3(a), pos.GetVec3(b), pos.GetVec3(c)) {
				return
			}
		}
	case TriangleFan:
		for t := 1; t+1 < n; t++ {
			if !fn(t-1, pos.GetVec3(index(0)), pos.GetVec3(index(t)), pos.GetVec3(index(t+1))) {
				return
			}
		}
	}
}

// CastRay intersects a local-space ray with the primitive.
//
// Parameters:
//   - ray: the ray in the primitive's local space
//
// Returns:
//   - common.RayHit: the nearest hit
//   - int: the triangle index of the hit
//   - bool: false if nothing was hit
func (p *Primitive) CastRay(ray common.Ray) (common.RayHit, int, bool) {
	var best common.RayHit
	bestTri := -1
	p.Triangles(func(i int, a, b, c common.Vec3) bool {
		hit, ok := ray.IntersectTriangle(a, b, c)
		if ok && (bestTri < 0 || hit.Distance < best.Distance) {
			best = hit
			bestTri = i
		}
		return true
	})
	return best, bestTri, bestTri >= 0
}
