package components

import (
	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
)

// TransformComponent holds the local translation, rotation and scale of an entity.
// All three live in the CPUGeneric buffer, one row per ComponentSID.
type TransformComponent struct {
	ecs.ComponentBase

	translate memory.Field
	rotate    memory.Field
	scale     memory.Field

	sceneGraph *SceneGraphComponent
}

// TransformClass describes TransformComponent.
var TransformClass = ecs.NewComponentClass("Transform", ecs.TransformComponentTID, nil, func() ecs.Component {
	return &TransformComponent{}
}).
	RegisterMember(memory.CPUGeneric, "translate", memory.Vec3, memory.Float, 0, 0, 0).
	RegisterMember(memory.CPUGeneric, "rotate", memory.Vec4, memory.Float, 0, 0, 0, 1).
	RegisterMember(memory.CPUGeneric, "scale", memory.Vec3, memory.Float, 1, 1, 1)

func (t *TransformComponent) BindMembers() {
	t.translate = t.TakeOne("translate")
	t.rotate = t.TakeOne("rotate")
	t.scale = t.TakeOne("scale")
}

// LocalPosition returns the translation relative to the parent.
func (t *TransformComponent) LocalPosition() common.Vec3 {
	return t.translate.Vec3()
}

// SetLocalPosition sets the translation relative to the parent and invalidates the subtree's world matrices.
func (t *TransformComponent) SetLocalPosition(p common.Vec3) {
	t.translate.SetVec3(p)
	t.changed()
}

// LocalRotation returns the rotation relative to the parent.
func (t *TransformComponent) LocalRotation() common.Quat {
	v := t.rotate.Vec4()
	return common.Quat{X: v.X, Y: v.Y, Z: v.Z, W: v.W}
}

// SetLocalRotation sets the rotation relative to the parent. q is normalized before it is stored.
func (t *TransformComponent) SetLocalRotation(q common.Quat) {
	q = q.Normalize()
	t.rotate.SetVec4(common.Vec4{X: q.X, Y: q.Y, Z: q.Z, W: q.W})
	t.changed()
}

// LocalEulerAngles returns the local rotation as X, Y, Z Euler angles in radians.
func (t *TransformComponent) LocalEulerAngles() common.Vec3 {
	return t.LocalRotation().Euler()
}

// SetLocalEulerAngles sets the local rotation from X, Y, Z Euler angles in radians.
func (t *TransformComponent) SetLocalEulerAngles(e common.Vec3) {
	t.SetLocalRotation(common.QuatFromEuler(e.X, e.Y, e.Z))
}

func (t *TransformComponent) LocalScale() common.Vec3 {
	return t.scale.Vec3()
}

func (t *TransformComponent) SetLocalScale(s common.Vec3) {
	t.scale.SetVec3(s)
	t.changed()
}

// LocalMatrix returns T * R * S of the local values.
//
// Returns:
//   - common.Mat4: the column-major local matrix
func (t *TransformComponent) LocalMatrix() common.Mat4 {
	return common.ComposeTRS(t.LocalPosition(), t.LocalRotation(), t.LocalScale())
}

// SetLocalMatrix decomposes an affine matrix without shear into translation, rotation and scale.
//
// Parameters:
//   - m: a column-major T * R * S matrix
func (t *TransformComponent) SetLocalMatrix(m common.Mat4) {
	translation, rotation, scale := common.DecomposeTRS(m)
	t.translate.SetVec3(translation)
	t.rotate.SetVec4(common.Vec4{X: rotation.X, Y: rotation.Y, Z: rotation.Z, W: rotation.W})
	t.scale.SetVec3(scale)
	t.changed()
}

func (t *TransformComponent) changed() {
	if sg := t.SceneGraph(); sg != nil {
		sg.SetWorldMatrixDirtyRecursively()
	}
}

// SceneGraph returns the scene graph component of the same entity, or nil.
func (t *TransformComponent) SceneGraph() *SceneGraphComponent {
	if t.sceneGraph != nil && t.sceneGraph.IsAlive() {
		return t.sceneGraph
	}
	t.sceneGraph = nil
	if e := t.Entity(); e != nil {
		t.sceneGraph, _ = ecs.Get[*SceneGraphComponent](e, ecs.SceneGraphComponentTID)
	}
	return t.sceneGraph
}
