package components

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
)

// SceneGraphComponent links entities into a tree and caches their world transforms.
// The world matrix row lives in the GPUInstanceData buffer so the whole buffer can be uploaded
// as per-instance data, indexed by ComponentSID.
//
// Parent and children are kept as EntityUIDs and resolved through the World, so a deleted
// entity can never be reached through a stale link.
type SceneGraphComponent struct {
	ecs.ComponentBase

	worldMatrix memory.Field

	parent   ecs.EntityUID
	children []ecs.EntityUID
	isJoint  bool

	worldMatrixDirty bool
	worldMatrixEpoch uint64
	worldAABBDirty   bool
	worldAABB        common.AABB
	mergedAABBDirty  bool
	mergedAABB       common.AABB

	transform *TransformComponent
}

// SceneGraphClass describes SceneGraphComponent. It requires a TransformComponent.
var SceneGraphClass = ecs.NewComponentClass("SceneGraph", ecs.SceneGraphComponentTID, nil, func() ecs.Component {
	return &SceneGraphComponent{}
}).
	RegisterMember(memory.GPUInstanceData, "worldMatrix", memory.Mat4, memory.Float, identityValues()...).
	Requires(ecs.TransformComponentTID)

func identityValues() []float32 {
	m := common.IdentityMat4()
	return m[:]
}

func (sg *SceneGraphComponent) BindMembers() {
	sg.worldMatrix = sg.TakeOne("worldMatrix")
	sg.parent = ecs.InvalidEntityUID
	sg.worldMatrixDirty = true
	sg.worldAABBDirty = true
	sg.mergedAABBDirty = true
}

func (sg *SceneGraphComponent) world() *ecs.World { return sg.World() }

func (sg *SceneGraphComponent) resolve(uid ecs.EntityUID) *SceneGraphComponent {
	if uid == ecs.InvalidEntityUID || sg.world() == nil {
		return nil
	}
	e, ok := sg.world().Entities().GetEntity(uid)
	if !ok {
		return nil
	}
	c, _ := ecs.Get[*SceneGraphComponent](e, ecs.SceneGraphComponentTID)
	return c
}

// Transform returns the transform of the same entity.
func (sg *SceneGraphComponent) Transform() *TransformComponent {
	if sg.transform != nil && sg.transform.IsAlive() {
		return sg.transform
	}
	sg.transform = nil
	if e := sg.Entity(); e != nil {
		sg.transform, _ = ecs.Get[*TransformComponent](e, ecs.TransformComponentTID)
	}
	return sg.transform
}

// Parent returns the parent node, or nil for a root.
func (sg *SceneGraphComponent) Parent() *SceneGraphComponent {
	return sg.resolve(sg.parent)
}

// IsRoot reports whether the node has no parent.
func (sg *SceneGraphComponent) IsRoot() bool {
	return sg.Parent() == nil
}

// Children returns the direct children in insertion order.
func (sg *SceneGraphComponent) Children() []*SceneGraphComponent {
	out := make([]*SceneGraphComponent, 0, len(sg.children))
	for _, uid := range sg.children {
		if c := sg.resolve(uid); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// ChildEntityUIDs returns the entity UIDs of the direct children.
func (sg *SceneGraphComponent) ChildEntityUIDs() []ecs.EntityUID {
	return slices.Clone(sg.children)
}

// AdoptChild attaches child as the last child. Used by ShallowCopyEntity.
func (sg *SceneGraphComponent) AdoptChild(child ecs.Component) error {
	c, ok := child.(*SceneGraphComponent)
	if !ok {
		return fmt.Errorf("adopt %T: not a scene graph component", child)
	}
	return sg.AddChild(c)
}

// Depth returns the number of ancestors of the node.
func (sg *SceneGraphComponent) Depth() int {
	d := 0
	for p := sg.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}

// IsAncestorOf reports whether sg is a strict ancestor of other.
func (sg *SceneGraphComponent) IsAncestorOf(other *SceneGraphComponent) bool {
	for p := other.Parent(); p != nil; p = p.Parent() {
		if p == sg {
			return true
		}
	}
	return false
}

// AddChild makes child the last child of sg, detaching it from its previous parent.
// The child's subtree is marked dirty.
//
// Parameters:
//   - child: the node to attach
//
// Returns:
//   - error: ErrSceneGraphCycle if child is sg or one of its ancestors; the tree is left unchanged
func (sg *SceneGraphComponent) AddChild(child *SceneGraphComponent) error {
	if child == nil || !child.IsAlive() {
		return fmt.Errorf("add child: %w", ecs.ErrEntityNotFound)
	}
	if child == sg || child.IsAncestorOf(sg) {
		return fmt.Errorf("add entity %d under %d: %w", child.EntityUID(), sg.EntityUID(), ErrSceneGraphCycle)
	}
	if old := child.Parent(); old != nil {
		old.detach(child)
	}
	child.parent = sg.EntityUID()
	sg.children = append(sg.children, child.EntityUID())
	child.SetWorldMatrixDirtyRecursively()
	sg.setAABBDirtyUpward()
	sg.world().BumpStructure()
	return nil
}

// RemoveChild detaches child from sg. The child becomes a root.
//
// Parameters:
//   - child: a direct child of sg
//
// Returns:
//   - bool: false if child was not a direct child
func (sg *SceneGraphComponent) RemoveChild(child *SceneGraphComponent) bool {
	if child == nil || child.parent != sg.EntityUID() {
		return false
	}
	sg.detach(child)
	child.SetWorldMatrixDirtyRecursively()
	sg.world().BumpStructure()
	return true
}

func (sg *SceneGraphComponent) detach(child *SceneGraphComponent) {
	sg.children = slices.DeleteFunc(sg.children, func(uid ecs.EntityUID) bool { return uid == child.EntityUID() })
	child.parent = ecs.InvalidEntityUID
	sg.setAABBDirtyUpward()
}

// OnDestroy unlinks the node from its parent and turns its children into roots.
func (sg *SceneGraphComponent) OnDestroy() {
	if p := sg.Parent(); p != nil {
		p.detach(sg)
	}
	for _, c := range sg.Children() {
		c.parent = ecs.InvalidEntityUID
		c.SetWorldMatrixDirtyRecursively()
	}
	sg.children = nil
}

// IsJoint reports whether the node is used as a skeleton joint.
func (sg *SceneGraphComponent) IsJoint() bool { return sg.isJoint }

func (sg *SceneGraphComponent) SetIsJoint(isJoint bool) { sg.isJoint = isJoint }

// ShallowCopyFrom copies the joint flag. Hierarchy links are rebuilt by the entity copy.
func (sg *SceneGraphComponent) ShallowCopyFrom(src ecs.Component) {
	sg.isJoint = src.(*SceneGraphComponent).isJoint
}

// SetWorldMatrixDirty marks only this node's world matrix stale.
func (sg *SceneGraphComponent) SetWorldMatrixDirty() {
	sg.worldMatrixDirty = true
	sg.worldAABBDirty = true
	sg.setAABBDirtyUpward()
}

// SetWorldMatrixDirtyRecursively marks the world matrices of the node and all descendants stale.
func (sg *SceneGraphComponent) SetWorldMatrixDirtyRecursively() {
	sg.SetWorldMatrixDirty()
	for _, c := range sg.Children() {
		c.SetWorldMatrixDirtyRecursively()
	}
}

func (sg *SceneGraphComponent) setAABBDirtyUpward() {
	for n := sg; n != nil; n = n.Parent() {
		n.mergedAABBDirty = true
	}
}

// IsWorldMatrixUpToDate reports whether WorldMatrix would return the cached value.
func (sg *SceneGraphComponent) IsWorldMatrixUpToDate() bool {
	return !sg.worldMatrixDirty
}

// WorldMatrixEpoch increases each time the world matrix is recomputed.
func (sg *SceneGraphComponent) WorldMatrixEpoch() uint64 {
	return sg.worldMatrixEpoch
}

// WorldMatrix returns the world transform, recomputing it from the ancestor chain if it is stale.
//
// Returns:
//   - common.Mat4: parent world matrix times the local transform
func (sg *SceneGraphComponent) WorldMatrix() common.Mat4 {
	if !sg.worldMatrixDirty {
		return sg.worldMatrix.Mat4()
	}

	local := common.IdentityMat4()
	if t := sg.Transform(); t != nil {
		local = t.LocalMatrix()
	}
	m := local
	if p := sg.Parent(); p != nil {
		m = p.WorldMatrix().Mul(local)
	}
	sg.worldMatrix.SetMat4(m)
	sg.worldMatrixDirty = false
	sg.worldMatrixEpoch++
	return m
}

// WorldPosition returns the translation of the world matrix.
func (sg *SceneGraphComponent) WorldPosition() common.Vec3 {
	return sg.WorldMatrix().Translation()
}

// WorldMatrixAccessor returns the accessor holding every node's world matrix, indexed by ComponentSID.
func (sg *SceneGraphComponent) WorldMatrixAccessor() *memory.Accessor {
	return sg.worldMatrix.Accessor()
}

// OnLogic brings the world matrix row up to date for later Logic components.
func (sg *SceneGraphComponent) OnLogic() {
	sg.WorldMatrix()
}

// OnPreRender recomputes rows still dirty after Logic, so MeshRenderer uploads the current matrices.
func (sg *SceneGraphComponent) OnPreRender() {
	sg.WorldMatrix()
}

func (sg *SceneGraphComponent) mesh() *MeshComponent {
	e := sg.Entity()
	if e == nil {
		return nil
	}
	m, _ := ecs.Get[*MeshComponent](e, ecs.MeshComponentTID)
	return m
}

// WorldAABB returns the bounding box of this node's own mesh in world space, vanilla without a mesh.
func (sg *SceneGraphComponent) WorldAABB() common.AABB {
	if sg.worldAABBDirty || sg.worldMatrixDirty {
		sg.worldAABB = common.NewAABB()
		if m := sg.mesh(); m != nil {
			sg.worldAABB = m.LocalAABB().Transform(sg.WorldMatrix())
		}
		sg.worldAABBDirty = false
	}
	return sg.worldAABB
}

// WorldMergedAABB returns the union of the node's world AABB and those of all descendants.
func (sg *SceneGraphComponent) WorldMergedAABB() common.AABB {
	if sg.mergedAABBDirty || sg.worldMatrixDirty {
		box := sg.WorldAABB()
		for _, c := range sg.Children() {
			box = box.Merge(c.WorldMergedAABB())
		}
		sg.mergedAABB = box
		sg.mergedAABBDirty = false
	}
	return sg.mergedAABB
}

// RaycastResult is the nearest ray hit found in a subtree.
type RaycastResult struct {
	EntityUID ecs.EntityUID
	// PrimitiveIndex is the index of the hit primitive within the mesh.
	PrimitiveIndex int
	// Hit has a world-space position; Distance is measured along the normalized ray.
	Hit common.RayHit
}

// CastRay intersects a world-space ray with the meshes of the subtree.
//
// Parameters:
//   - ray: the ray in world space; its direction need not be normalized
//
// Returns:
//   - RaycastResult: the nearest hit
//   - bool: false if nothing was hit
func (sg *SceneGraphComponent) CastRay(ray common.Ray) (RaycastResult, bool) {
	ray.Direction = ray.Direction.Normalize()
	var best RaycastResult
	found := false
	sg.castRay(ray, &best, &found)
	return best, found
}

func (sg *SceneGraphComponent) castRay(ray common.Ray, best *RaycastResult, found *bool) {
	if m := sg.mesh(); m != nil && m.Mesh() != nil {
		world := sg.WorldMatrix()
		if inv, ok := world.Inverse(); ok {
			for i, p := range m.Mesh().Primitives() {
				hit, _, ok := p.CastRay(ray.Transform(inv))
				if !ok {
					continue
				}
				pos := world.TransformPoint(hit.Position)
				dist := pos.Sub(ray.Origin).Length()
				if !*found || dist < best.Hit.Distance {
					hit.Position = pos
					hit.Distance = dist
					*best = RaycastResult{EntityUID: sg.EntityUID(), PrimitiveIndex: i, Hit: hit}
					*found = true
				}
			}
		}
	}
	for _, c := range sg.Children() {
		c.castRay(ray, best, found)
	}
}

// CastRayFromScreen casts a ray through a window position.
//
// Parameters:
//   - x, y: position in pixels, origin at the top left
//   - camera: the camera whose view-projection is unprojected
//   - viewport: x, y, width, height in pixels
//
// Returns:
//   - RaycastResult: the nearest hit
//   - bool: false if nothing was hit or the camera matrix is singular
func (sg *SceneGraphComponent) CastRayFromScreen(x, y float32, camera *CameraComponent, viewport [4]float32) (RaycastResult, bool) {
	ray, ok := camera.ScreenRay(x, y, viewport)
	if !ok {
		return RaycastResult{}, false
	}
	return sg.CastRay(ray)
}
