package components

import (
	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
)

// MeshComponent attaches geometry to an entity. The mesh itself is shared on shallow copy.
type MeshComponent struct {
	ecs.ComponentBase

	mesh       *geometry.Mesh
	sceneGraph *SceneGraphComponent
}

// MeshClass describes MeshComponent. It requires a SceneGraphComponent.
var MeshClass = ecs.NewComponentClass("Mesh", ecs.MeshComponentTID, nil, func() ecs.Component {
	return &MeshComponent{}
}).Requires(ecs.SceneGraphComponentTID)

func (m *MeshComponent) Mesh() *geometry.Mesh { return m.mesh }

// SetMesh replaces the geometry and invalidates the cached bounds.
func (m *MeshComponent) SetMesh(mesh *geometry.Mesh) {
	m.mesh = mesh
	if sg := m.SceneGraph(); sg != nil {
		sg.SetWorldMatrixDirty()
	}
	if w := m.World(); w != nil {
		w.BumpStructure()
	}
}

// SceneGraph returns the scene graph component of the same entity.
func (m *MeshComponent) SceneGraph() *SceneGraphComponent {
	if m.sceneGraph != nil && m.sceneGraph.IsAlive() {
		return m.sceneGraph
	}
	m.sceneGraph = nil
	if e := m.Entity(); e != nil {
		m.sceneGraph, _ = ecs.Get[*SceneGraphComponent](e, ecs.SceneGraphComponentTID)
	}
	return m.sceneGraph
}

// LocalAABB returns the mesh bounds in the entity's local space, vanilla without a mesh.
func (m *MeshComponent) LocalAABB() common.AABB {
	if m.mesh == nil {
		return common.NewAABB()
	}
	return m.mesh.AABB()
}

// CalcViewDepth stores the view-space depth of the mesh center on every primitive,
// for ordering primitives within a translucency bucket.
//
// Parameters:
//   - camera: the camera the depth is measured from
//
// Returns:
//   - float32: the distance in front of the camera, larger is farther
func (m *MeshComponent) CalcViewDepth(camera *CameraComponent) float32 {
	if m.mesh == nil || camera == nil {
		return 0
	}
	center := m.LocalAABB()
	if center.IsVanilla() {
		return 0
	}
	world := common.IdentityMat4()
	if sg := m.SceneGraph(); sg != nil {
		world = sg.WorldMatrix()
	}
	viewPos := camera.ViewMatrix().TransformPoint(world.TransformPoint(center.Center()))
	// the camera looks down -Z in view space
	depth := -viewPos.Z
	for _, p := range m.mesh.Primitives() {
		p.SetViewDepth(depth)
	}
	return depth
}

func (m *MeshComponent) ShallowCopyFrom(src ecs.Component) {
	m.mesh = src.(*MeshComponent).mesh
}
