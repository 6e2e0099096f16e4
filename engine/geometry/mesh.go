package geometry

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
)

// Mesh is a named list of primitives drawn with the same world transform.
type Mesh struct {
	name       string
	primitives []*Primitive
	uid        int
}

var (
	meshCount      atomic.Int64
	primitiveCount atomic.Int64
)

// NewMesh creates an empty mesh.
//
// Parameters:
//   - name: mesh label
//
// Returns:
//   - *Mesh: the mesh
func NewMesh(name string) *Mesh {
	return &Mesh{name: name, uid: int(meshCount.Add(1))}
}

func (m *Mesh) Name() string { return m.name }

// MeshUID returns a process-unique id, used to key GPU resources of the mesh.
func (m *Mesh) MeshUID() int { return m.uid }

// AddPrimitive appends p to the mesh.
func (m *Mesh) AddPrimitive(p *Primitive) { m.primitives = append(m.primitives, p) }

func (m *Mesh) Primitives() []*Primitive { return m.primitives }

// AABB returns the union of the primitive boxes in mesh-local space.
func (m *Mesh) AABB() common.AABB {
	box := common.NewAABB()
	for _, p := range m.primitives {
		box = box.Merge(p.AABB())
	}
	return box
}

// IsOpaque reports whether any primitive draws in the opaque bucket.
func (m *Mesh) IsOpaque() bool {
	for _, p := range m.primitives {
		if IsOpaque(p) {
			return true
		}
	}
	return false
}

// IsTranslucentOrBlend reports whether any primitive draws after the opaque bucket.
func (m *Mesh) IsTranslucentOrBlend() bool {
	for _, p := range m.primitives {
		if !IsOpaque(p) {
			return true
		}
	}
	return false
}

// CastRay intersects a mesh-local ray with every primitive and returns the nearest hit.
//
// Parameters:
//   - ray: the ray in mesh-local space
//
// Returns:
//   - common.RayHit: the nearest hit
//   - bool: false if nothing was hit
func (m *Mesh) CastRay(ray common.Ray) (common.RayHit, bool) {
	var best common.RayHit
	found := false
	for _, p := range m.primitives {
		hit, _, ok := p.CastRay(ray)
		if ok && (!found || hit.Distance < best.Distance) {
			best = hit
			found = true
		}
	}
	return best, found
}

// ApplyMaterialVariant forwards to every primitive that carries the variant. An empty name resets all primitives.
//
// Parameters:
//   - name: variant name, empty to reset
//
// Returns:
//   - int: the number of primitives that switched material
func (m *Mesh) ApplyMaterialVariant(name string) int {
	n := 0
	for _, p := range m.primitives {
		if p.ApplyMaterialVariant(name) == nil {
			n++
		}
	}
	return n
}

// SortPrimitives orders primitives for drawing, in place.
// Keys sort ascending; within equal keys opaque primitives go near to far
// and all others far to near.
//
// Parameters:
//   - prims: the primitives with view depths already set
func SortPrimitives(prims []*Primitive) {
	sort.SliceStable(prims, func(i, j int) bool {
		a, b := prims[i], prims[j]
		if a.sortKey != b.sortKey {
			return a.sortKey < b.sortKey
		}
		if a.sortKey.IsOpaque() {
			return a.viewDepth < b.viewDepth
		}
		return a.viewDepth > b.viewDepth
	})
}

// PrimitiveDescriptor holds plain vertex arrays to be copied into engine memory.
type PrimitiveDescriptor struct {
	Name      string
	Mode      PrimitiveMode
	Positions []float32
	Normals   []float32
	Texcoords []float32
	Indices   []uint32
	Material  material.Material
}

// CreatePrimitive copies the arrays of desc into an on-demand buffer and builds a primitive over it.
// Positions and normals are vec3, texcoords are vec2, indices are uint32.
//
// Parameters:
//   - mm: the memory manager owning the on-demand buffer
//   - desc: the vertex arrays and material
//
// Returns:
//   - *Primitive: the primitive
//   - error: an error if the arrays are malformed
func CreatePrimitive(mm memory.MemoryManager, desc PrimitiveDescriptor) (*Primitive, error) {
	if len(desc.Positions) == 0 || len(desc.Positions)%3 != 0 {
		return nil, fmt.Errorf("create primitive %q: positions length %d is not a positive multiple of 3", desc.Name, len(desc.Positions))
	}
	vertexCount := len(desc.Positions) / 3
	if len(desc.Normals) != 0 && len(desc.Normals) != vertexCount*3 {
		return nil, fmt.Errorf("create primitive %q: %d normals for %d vertices", desc.Name, len(desc.Normals)/3, vertexCount)
	}
	if len(desc.Texcoords) != 0 && len(desc.Texcoords) != vertexCount*2 {
		return nil, fmt.Errorf("create primitive %q: %d texcoords for %d vertices", desc.Name, len(desc.Texcoords)/2, vertexCount)
	}
	for _, idx := range desc.Indices {
		if int(idx) >= vertexCount {
			return nil, fmt.Errorf("create primitive %q: index %d out of %d vertices", desc.Name, idx, vertexCount)
		}
	}

	byteLength := 4 * (len(desc.Positions) + len(desc.Normals) + len(desc.Texcoords) + len(desc.Indices))
	owner := fmt.Sprintf("primitive:%s:%d", desc.Name, primitiveCount.Add(1))
	buf := mm.CreateBufferOnDemand(byteLength, owner, 4)

	take := func(values []float32, comp memory.CompositionType) (*memory.Accessor, error) {
		n := comp.NumberOfComponents()
		view, err := buf.TakeBufferView(len(values)*4, 0)
		if err != nil {
			return nil, err
		}
		a, err := view.TakeAccessor(memory.AccessorDescriptor{
			CompositionType: comp,
			ComponentType:   memory.Float,
			Count:           len(values) / n,
		})
		if err != nil {
			return nil, err
		}
		for i := 0; i < a.Count(); i++ {
			a.SetElement(i, values[i*n:(i+1)*n]...)
		}
		return a, nil
	}

	options := []PrimitiveBuilderOption{WithName(desc.Name), WithMode(desc.Mode), WithMaterial(desc.Material)}

	pos, err := take(desc.Positions, memory.Vec3)
	if err != nil {
		return nil, fmt.Errorf("create primitive %q: %w", desc.Name, err)
	}
	options = append(options, WithAttribute(Position, pos))

	if len(desc.Normals) > 0 {
		nrm, err := take(desc.Normals, memory.Vec3)
		if err != nil {
			return nil, fmt.Errorf("create primitive %q: %w", desc.Name, err)
		}
		options = append(options, WithAttribute(Normal, nrm))
	}
	if len(desc.Texcoords) > 0 {
		uv, err := take(desc.Texcoords, memory.Vec2)
		if err != nil {
			return nil, fmt.Errorf("create primitive %q: %w", desc.Name, err)
		}
		options = append(options, WithAttribute(Texcoord0, uv))
	}
	if len(desc.Indices) > 0 {
		view, err := buf.TakeBufferView(len(desc.Indices)*4, 0)
		if err != nil {
			return nil, fmt.Errorf("create primitive %q: %w", desc.Name, err)
		}
		idx, err := view.TakeAccessor(memory.AccessorDescriptor{
			CompositionType: memory.Scalar,
			ComponentType:   memory.UnsignedInt,
			Count:           len(desc.Indices),
		})
		if err != nil {
			return nil, fmt.Errorf("create primitive %q: %w", desc.Name, err)
		}
		for i, v := range desc.Indices {
			idx.SetUint(i, v)
		}
		options = append(options, WithIndices(idx))
	}

	return NewPrimitive(options...), nil
}
