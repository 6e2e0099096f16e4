package components

import (
	"testing"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/ecs"
	"github.com/Carmen-Shannon/rhodonite-go/engine/geometry"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T) *ecs.World {
	t.Helper()
	w := ecs.NewWorld(config.Default())
	require.NoError(t, Register(w))
	return w
}

func newNode(t *testing.T, w *ecs.World) *SceneGraphComponent {
	t.Helper()
	e, err := CreateGroupEntity(w)
	require.NoError(t, err)
	sg, ok := GetSceneGraph(e)
	require.True(t, ok)
	return sg
}

func newQuadMesh(t *testing.T, w *ecs.World) *geometry.Mesh {
	t.Helper()
	m, err := material.NewMaterialRepository(8, nil).CreateMaterial(material.StandardMaterialType)
	require.NoError(t, err)
	p, err := geometry.CreatePrimitive(w.MemoryManager(), geometry.PrimitiveDescriptor{
		Name:      "quad",
		Mode:      geometry.Triangles,
		Positions: []float32{-1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  m,
	})
	require.NoError(t, err)
	mesh := geometry.NewMesh("quad")
	mesh.AddPrimitive(p)
	return mesh
}

func TestCreateGroupEntityAttachesRequirements(t *testing.T) {
	w := newTestWorld(t)
	e, err := CreateGroupEntity(w)
	require.NoError(t, err)

	assert.True(t, e.HasComponent(ecs.TransformComponentTID))
	assert.True(t, e.HasComponent(ecs.SceneGraphComponentTID))
	assert.False(t, e.HasComponent(ecs.MeshComponentTID))

	tr, _ := GetTransform(e)
	assert.Equal(t, common.Vec3{X: 1, Y: 1, Z: 1}, tr.LocalScale())
	assert.Equal(t, common.IdentityQuat(), tr.LocalRotation())
}

func TestHierarchyWorldPosition(t *testing.T) {
	w := newTestWorld(t)
	parent := newNode(t, w)
	child := newNode(t, w)

	parent.Transform().SetLocalPosition(common.Vec3{X: 1})
	child.Transform().SetLocalPosition(common.Vec3{Y: 2})
	require.NoError(t, parent.AddChild(child))

	assert.Equal(t, parent, child.Parent())
	assert.Equal(t, 1, child.Depth())
	assert.True(t, child.WorldPosition().ApproxEqual(common.Vec3{X: 1, Y: 2}, 1e-6))

	// the world matrix row is written to the shared instance buffer
	row := child.WorldMatrixAccessor().GetMat4(int(child.ComponentSID()))
	assert.True(t, row.Translation().ApproxEqual(common.Vec3{X: 1, Y: 2}, 1e-6))
}

func TestWorldMatrixEpoch(t *testing.T) {
	w := newTestWorld(t)
	parent := newNode(t, w)
	child := newNode(t, w)
	require.NoError(t, parent.AddChild(child))

	child.WorldMatrix()
	epoch := child.WorldMatrixEpoch()
	child.WorldMatrix()
	child.WorldMatrix()
	assert.Equal(t, epoch, child.WorldMatrixEpoch())
	assert.True(t, child.IsWorldMatrixUpToDate())

	parent.Transform().SetLocalPosition(common.Vec3{Z: -3})
	assert.False(t, child.IsWorldMatrixUpToDate())
	assert.True(t, child.WorldPosition().ApproxEqual(common.Vec3{Z: -3}, 1e-6))
	assert.Equal(t, epoch+1, child.WorldMatrixEpoch())
}

func TestAddChildRejectsCycles(t *testing.T) {
	w := newTestWorld(t)
	a := newNode(t, w)
	b := newNode(t, w)
	c := newNode(t, w)
	require.NoError(t, a.AddChild(b))
	require.NoError(t, b.AddChild(c))

	err := c.AddChild(a)
	require.ErrorIs(t, err, ErrSceneGraphCycle)
	require.ErrorIs(t, a.AddChild(a), ErrSceneGraphCycle)

	assert.True(t, a.IsRoot())
	assert.Equal(t, b, c.Parent())
	assert.Equal(t, []ecs.EntityUID{b.EntityUID()}, a.ChildEntityUIDs())
	assert.Empty(t, c.ChildEntityUIDs())
}

func TestReparentMovesChild(t *testing.T) {
	w := newTestWorld(t)
	a := newNode(t, w)
	b := newNode(t, w)
	c := newNode(t, w)
	require.NoError(t, a.AddChild(c))
	require.NoError(t, b.AddChild(c))

	assert.Empty(t, a.ChildEntityUIDs())
	assert.Equal(t, b, c.Parent())

	assert.True(t, b.RemoveChild(c))
	assert.False(t, b.RemoveChild(c))
	assert.True(t, c.IsRoot())
}

func TestSetLocalMatrixDecomposes(t *testing.T) {
	w := newTestWorld(t)
	sg := newNode(t, w)
	m := common.ComposeTRS(common.Vec3{X: 1, Y: 2, Z: 3}, common.QuatFromEuler(0, math32.Pi/2, 0), common.Vec3{X: 2, Y: 2, Z: 2})

	sg.Transform().SetLocalMatrix(m)
	assert.True(t, sg.Transform().LocalPosition().ApproxEqual(common.Vec3{X: 1, Y: 2, Z: 3}, 1e-5))
	assert.True(t, sg.Transform().LocalScale().ApproxEqual(common.Vec3{X: 2, Y: 2, Z: 2}, 1e-5))

	p := common.Vec3{X: 1}
	assert.True(t, sg.WorldMatrix().TransformPoint(p).ApproxEqual(m.TransformPoint(p), 1e-4))
}

func TestDeleteParentMakesChildrenRoots(t *testing.T) {
	w := newTestWorld(t)
	parent := newNode(t, w)
	child := newNode(t, w)
	parent.Transform().SetLocalPosition(common.Vec3{X: 5})
	require.NoError(t, parent.AddChild(child))

	require.NoError(t, w.Entities().DeleteEntity(parent.EntityUID()))
	assert.True(t, child.IsRoot())
	assert.True(t, child.WorldPosition().ApproxEqual(common.Vec3{}, 1e-6))
}

func TestDeleteEntityRecursively(t *testing.T) {
	w := newTestWorld(t)
	root := newNode(t, w)
	mid := newNode(t, w)
	leaf := newNode(t, w)
	require.NoError(t, root.AddChild(mid))
	require.NoError(t, mid.AddChild(leaf))
	before := w.Components().LiveCount(ecs.SceneGraphComponentTID)

	require.NoError(t, w.Entities().DeleteEntityRecursively(root.EntityUID()))
	assert.Equal(t, before-3, w.Components().LiveCount(ecs.SceneGraphComponentTID))
	_, ok := w.Entities().GetEntity(leaf.EntityUID())
	assert.False(t, ok)
}

func TestShallowCopyRemapsSkeleton(t *testing.T) {
	w := newTestWorld(t)
	root := newNode(t, w)
	joint := newNode(t, w)
	require.NoError(t, root.AddChild(joint))
	joint.Transform().SetLocalPosition(common.Vec3{Y: 1})

	skel, err := w.Entities().AddComponentToEntity(ecs.SkeletalComponentTID, root.Entity())
	require.NoError(t, err)
	sk := skel.(*SkeletalComponent)
	require.NoError(t, sk.SetJoints([]*SceneGraphComponent{joint}, nil))
	assert.True(t, joint.IsJoint())

	dup, err := w.Entities().ShallowCopyEntity(root.Entity())
	require.NoError(t, err)
	dupSG, _ := GetSceneGraph(dup)
	dupSk, ok := GetSkeletal(dup)
	require.True(t, ok)

	require.Len(t, dupSG.Children(), 1)
	dupJoint := dupSG.Children()[0]
	assert.NotEqual(t, joint.EntityUID(), dupJoint.EntityUID())
	assert.True(t, dupJoint.IsJoint())
	assert.Equal(t, []ecs.EntityUID{dupJoint.EntityUID()}, dupSk.JointEntityUIDs())
	assert.Equal(t, []ecs.EntityUID{joint.EntityUID()}, sk.JointEntityUIDs())
	assert.True(t, dupJoint.Transform().LocalPosition().ApproxEqual(common.Vec3{Y: 1}, 1e-6))
}

func TestSkeletalJointMatrices(t *testing.T) {
	w := newTestWorld(t)
	root := newNode(t, w)
	joint := newNode(t, w)
	require.NoError(t, root.AddChild(joint))

	c, err := w.Entities().AddComponentToEntity(ecs.SkeletalComponentTID, root.Entity())
	require.NoError(t, err)
	sk := c.(*SkeletalComponent)

	bind := common.ComposeTRS(common.Vec3{Y: 1}, common.IdentityQuat(), common.Vec3{X: 1, Y: 1, Z: 1})
	ibm, ok := bind.Inverse()
	require.True(t, ok)
	require.Error(t, sk.SetJoints([]*SceneGraphComponent{joint}, []common.Mat4{ibm, ibm}))
	require.NoError(t, sk.SetJoints([]*SceneGraphComponent{joint}, []common.Mat4{ibm}))

	// joint at its bind pose yields identity
	joint.Transform().SetLocalPosition(common.Vec3{Y: 1})
	w.Components().ProcessAll(ecs.StageLogic)
	p := common.Vec3{X: 0.5, Y: 1, Z: 0}
	assert.True(t, sk.JointMatrices()[0].TransformPoint(p).ApproxEqual(p, 1e-5))

	joint.Transform().SetLocalPosition(common.Vec3{Y: 3})
	w.Components().ProcessAll(ecs.StageLogic)
	assert.True(t, sk.JointMatrices()[0].TransformPoint(p).ApproxEqual(common.Vec3{X: 0.5, Y: 3}, 1e-5))

	// moving the whole skin leaves the skinning matrices unchanged
	root.Transform().SetLocalPosition(common.Vec3{X: 10})
	w.Components().ProcessAll(ecs.StageLogic)
	assert.True(t, sk.JointMatrices()[0].TransformPoint(p).ApproxEqual(common.Vec3{X: 0.5, Y: 3}, 1e-5))
}

func TestSkeletalBoneLimit(t *testing.T) {
	cfg := config.Default()
	cfg.MaxSkeletalBoneNumber = 1
	w := ecs.NewWorld(cfg)
	require.NoError(t, Register(w))

	root := newNode(t, w)
	a, b := newNode(t, w), newNode(t, w)
	c, err := w.Entities().AddComponentToEntity(ecs.SkeletalComponentTID, root.Entity())
	require.NoError(t, err)
	assert.Error(t, c.(*SkeletalComponent).SetJoints([]*SceneGraphComponent{a, b}, nil))
}

func TestMeshRendererUploadsThroughRepository(t *testing.T) {
	w := newTestWorld(t)
	repo := renderer.NewHeadlessResourceRepository()
	ecs.SetResource[renderer.CGAPIResourceRepository](w, repo)

	e, err := CreateMeshEntity(w, newQuadMesh(t, w))
	require.NoError(t, err)
	mr, ok := GetMeshRenderer(e)
	require.True(t, ok)
	assert.True(t, mr.IsVisible())
	assert.False(t, mr.IsReady())

	w.Components().ProcessAll(ecs.StageLoad)
	require.NoError(t, mr.LoadError())
	assert.True(t, mr.IsReady())

	mc, _ := GetMesh(e)
	prim := mc.Mesh().Primitives()[0]
	require.NotNil(t, prim.VertexHandles())
	assert.True(t, prim.Material().ShaderProgram().IsValid())

	repo.ResetCommands()
	w.Components().ProcessAll(ecs.StageLogic)
	w.Components().ProcessAll(ecs.StagePreRender)
	kinds := make([]renderer.CommandKind, 0)
	for _, c := range repo.Commands() {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, renderer.CommandUploadInstanceData)

	// a second load does nothing
	repo.ResetCommands()
	w.Components().ProcessAll(ecs.StageLoad)
	assert.Empty(t, repo.Commands())
}

func TestMeshRendererWithoutRepositoryStaysUnready(t *testing.T) {
	w := newTestWorld(t)
	e, err := CreateMeshEntity(w, newQuadMesh(t, w))
	require.NoError(t, err)

	w.Components().ProcessAll(ecs.StageLoad)
	mr, _ := GetMeshRenderer(e)
	assert.False(t, mr.IsReady())
	assert.NoError(t, mr.LoadError())
}

func TestMeshWorldAABB(t *testing.T) {
	w := newTestWorld(t)
	parent := newNode(t, w)
	e, err := CreateMeshEntity(w, newQuadMesh(t, w))
	require.NoError(t, err)
	sg, _ := GetSceneGraph(e)
	require.NoError(t, parent.AddChild(sg))

	parent.Transform().SetLocalPosition(common.Vec3{X: 10})
	box := sg.WorldAABB()
	assert.True(t, box.Min.ApproxEqual(common.Vec3{X: 9, Y: -1}, 1e-5))
	assert.True(t, box.Max.ApproxEqual(common.Vec3{X: 11, Y: 1}, 1e-5))

	assert.Equal(t, box, parent.WorldMergedAABB())
}

func TestCameraMatrices(t *testing.T) {
	w := newTestWorld(t)
	e, cam, err := CreateCameraEntity(w)
	require.NoError(t, err)
	sg, _ := GetSceneGraph(e)
	sg.Transform().SetLocalPosition(common.Vec3{Z: 5})

	assert.Equal(t, Perspective, cam.ProjectionType())
	assert.True(t, cam.Position().ApproxEqual(common.Vec3{Z: 5}, 1e-6))

	// the origin sits at the center of the view
	ndc := cam.ViewProjectionMatrix().TransformPoint(common.Vec3{})
	assert.InDelta(t, 0, ndc.X, 1e-5)
	assert.InDelta(t, 0, ndc.Y, 1e-5)
	assert.True(t, ndc.Z > 0 && ndc.Z < 1)

	box := common.NewAABB().AddPoint(common.Vec3{X: -1, Y: -1, Z: -1}).AddPoint(common.Vec3{X: 1, Y: 1, Z: 1})
	assert.True(t, box.IntersectsFrustum(cam.Frustum()))

	cam.SetLookAt(common.Vec3{Z: -5}, common.Vec3{}, common.Vec3{Y: 1})
	assert.True(t, cam.Position().ApproxEqual(common.Vec3{Z: -5}, 1e-6))
	cam.ClearLookAt()
	assert.True(t, cam.Position().ApproxEqual(common.Vec3{Z: 5}, 1e-6))
}

func TestCurrentCamera(t *testing.T) {
	w := newTestWorld(t)
	assert.Nil(t, CurrentCamera(w))

	_, first, err := CreateCameraEntity(w)
	require.NoError(t, err)
	_, second, err := CreateCameraEntity(w)
	require.NoError(t, err)

	assert.Equal(t, first, CurrentCamera(w))
	second.SetAsCurrent()
	assert.Equal(t, second, CurrentCamera(w))

	require.NoError(t, w.Entities().DeleteEntity(second.EntityUID()))
	assert.Equal(t, first, CurrentCamera(w))
}

func TestCastRayFromScreen(t *testing.T) {
	w := newTestWorld(t)
	root := newNode(t, w)
	e, err := CreateMeshEntity(w, newQuadMesh(t, w))
	require.NoError(t, err)
	sg, _ := GetSceneGraph(e)
	require.NoError(t, root.AddChild(sg))

	camEntity, cam, err := CreateCameraEntity(w)
	require.NoError(t, err)
	camSG, _ := GetSceneGraph(camEntity)
	camSG.Transform().SetLocalPosition(common.Vec3{Z: 5})

	viewport := [4]float32{0, 0, 100, 100}
	hit, ok := root.CastRayFromScreen(50, 50, cam, viewport)
	require.True(t, ok)
	assert.Equal(t, e.EntityUID(), hit.EntityUID)
	assert.Equal(t, 0, hit.PrimitiveIndex)
	assert.True(t, hit.Hit.Position.ApproxEqual(common.Vec3{}, 1e-3), "got %v", hit.Hit.Position)

	_, ok = root.CastRayFromScreen(1, 1, cam, viewport)
	assert.False(t, ok)
}

func TestLightGPUData(t *testing.T) {
	w := newTestWorld(t)
	e, l, err := CreateLightEntity(w, SpotLight)
	require.NoError(t, err)
	assert.Equal(t, SpotLight, l.Type())
	assert.Equal(t, "Spot", l.Type().String())

	l.SetColor(common.Vec3{X: 1, Y: 0.5})
	l.SetIntensity(2)
	l.SetSpotAngles(0.1, 0.5)
	sg, _ := GetSceneGraph(e)
	sg.Transform().SetLocalPosition(common.Vec3{Y: 4})

	g := l.GPULight()
	assert.True(t, g.Color.ApproxEqual(common.Vec3{X: 2, Y: 1}, 1e-6))
	assert.True(t, g.Position.ApproxEqual(common.Vec3{Y: 4}, 1e-6))
	assert.InDelta(t, math32.Cos(0.1), g.InnerConeCos, 1e-6)
	assert.InDelta(t, math32.Cos(0.5), g.OuterConeCos, 1e-6)
	assert.True(t, l.Direction().ApproxEqual(common.Vec3{Z: -1}, 1e-6))

	_, off, err := CreateLightEntity(w, PointLight)
	require.NoError(t, err)
	off.SetEnabled(false)
	assert.Len(t, CollectLights(w), 1)
}
