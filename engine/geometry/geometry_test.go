package geometry

import (
	"testing"

	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/config"
	"github.com/Carmen-Shannon/rhodonite-go/engine/memory"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quad(t *testing.T, mat material.Material) *Primitive {
	t.Helper()
	mm := memory.NewMemoryManager(config.Default())
	p, err := CreatePrimitive(mm, PrimitiveDescriptor{
		Name:      "quad",
		Mode:      Triangles,
		Positions: []float32{-1, -1, 0, 1, -1, 0, 1, 1, 0, -1, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Texcoords: []float32{0, 1, 1, 1, 1, 0, 0, 0},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  mat,
	})
	require.NoError(t, err)
	return p
}

func TestSortKeyFields(t *testing.T) {
	var k PrimitiveSortKey
	k = SetSortKeyField(k, MaterialTIDOffset, MaterialTIDBits, 1023)
	k = SetSortKeyField(k, ViewportOffset, ViewportBits, 5)
	k = SetSortKeyField(k, PrimitiveTypeOffset, PrimitiveTypeBits, uint32(TriangleFan))

	assert.Equal(t, uint32(1023), k.MaterialTID())
	assert.Equal(t, uint32(5), k.Viewport())
	assert.Equal(t, TriangleFan, k.PrimitiveType())
	assert.True(t, k.IsOpaque())

	// values wider than the field are masked
	k = SetSortKeyField(k, ViewportOffset, ViewportBits, 9)
	assert.Equal(t, uint32(1), k.Viewport())
	assert.Equal(t, uint32(1023), k.MaterialTID())
}

func TestOpaqueSortsBeforeTranslucentAndBlend(t *testing.T) {
	repo := material.NewMaterialRepository(16, nil)
	_, err := repo.RegisterMaterial("HighTID", material.StandardShaderSource, 4)
	require.NoError(t, err)

	opaqueHigh, err := repo.CreateMaterial("HighTID")
	require.NoError(t, err)
	translucentLow, err := repo.CreateMaterial(material.StandardMaterialType, material.WithTranslucent(true))
	require.NoError(t, err)
	blendZ, err := repo.CreateMaterial(material.StandardMaterialType,
		material.WithAlphaMode(material.AlphaModeBlend), material.WithZWriteWhenBlend(true))
	require.NoError(t, err)
	blend, err := repo.CreateMaterial(material.StandardMaterialType, material.WithAlphaMode(material.AlphaModeBlend))
	require.NoError(t, err)

	prims := []*Primitive{
		NewPrimitive(WithMaterial(blend)),
		NewPrimitive(WithMaterial(translucentLow)),
		NewPrimitive(WithMaterial(opaqueHigh), WithMode(Lines)),
		NewPrimitive(WithMaterial(blendZ)),
		NewPrimitive(WithMaterial(opaqueHigh)),
	}
	for _, p := range prims {
		if IsOpaque(p) {
			for _, q := range prims {
				if !IsOpaque(q) {
					assert.Less(t, p.SortKey(), q.SortKey())
				}
			}
		}
	}

	SortPrimitives(prims)
	assert.True(t, IsOpaque(prims[0]))
	assert.True(t, IsOpaque(prims[1]))
	assert.True(t, IsTranslucent(prims[2]))
	assert.True(t, IsBlendWithZWrite(prims[3]))
	assert.True(t, IsBlendWithoutZWrite(prims[4]))
}

func TestSortWithinBucketUsesDepth(t *testing.T) {
	opaque := material.NewMaterial()
	clear := material.NewMaterial(material.WithTranslucent(true))

	near, far := NewPrimitive(WithMaterial(opaque)), NewPrimitive(WithMaterial(opaque))
	near.SetViewDepth(1)
	far.SetViewDepth(10)
	tNear, tFar := NewPrimitive(WithMaterial(clear)), NewPrimitive(WithMaterial(clear))
	tNear.SetViewDepth(1)
	tFar.SetViewDepth(10)

	prims := []*Primitive{tNear, far, tFar, near}
	SortPrimitives(prims)
	assert.Equal(t, []*Primitive{near, far, tFar, tNear}, prims)
}

func TestViewportFieldsSurviveMaterialChange(t *testing.T) {
	p := NewPrimitive(WithMaterial(material.NewMaterial()))
	p.SetViewport(3)
	p.SetFullscreenLayer(2)
	p.SetMaterial(material.NewMaterial(material.WithTranslucent(true)))

	assert.Equal(t, uint32(3), p.SortKey().Viewport())
	assert.Equal(t, uint32(2), p.SortKey().FullscreenLayer())
	assert.True(t, IsTranslucent(p))
}

func TestApplyMaterialVariantRestoresOriginal(t *testing.T) {
	base := material.NewMaterial(material.WithName("base"))
	red := material.NewMaterial(material.WithName("red"), material.WithAlphaMode(material.AlphaModeBlend))
	blue := material.NewMaterial(material.WithName("blue"))

	p := NewPrimitive(WithMaterial(base), WithMaterialVariant("red", red), WithMaterialVariant("blue", blue))
	assert.Equal(t, []string{"blue", "red"}, p.MaterialVariantNames())

	require.NoError(t, p.ApplyMaterialVariant("red"))
	assert.Same(t, red, p.Material())
	assert.True(t, IsBlend(p))

	require.NoError(t, p.ApplyMaterialVariant("blue"))
	assert.Same(t, blue, p.Material())
	assert.Equal(t, "blue", p.ActiveMaterialVariant())

	require.NoError(t, p.ApplyMaterialVariant(""))
	assert.Same(t, base, p.Material())
	assert.True(t, IsOpaque(p))
	assert.Empty(t, p.ActiveMaterialVariant())

	require.Error(t, p.ApplyMaterialVariant("green"))
	assert.Same(t, base, p.Material())
}

func TestCreatePrimitiveFromArrays(t *testing.T) {
	p := quad(t, nil)
	assert.Equal(t, 4, p.VertexCount())
	assert.Equal(t, 6, p.IndexCount())
	assert.Equal(t, []VertexAttributeSemantic{Position, Normal, Texcoord0}, p.Semantics())

	uv, ok := p.Attribute(Texcoord0)
	require.True(t, ok)
	u, v := uv.GetVec2(2)
	assert.Equal(t, float32(1), u)
	assert.Equal(t, float32(0), v)
	assert.Equal(t, uint32(3), p.Indices().GetUint(5))

	box := p.AABB()
	assert.Equal(t, common.Vec3{X: -1, Y: -1}, box.Min)
	assert.Equal(t, common.Vec3{X: 1, Y: 1}, box.Max)
}

func TestCreatePrimitiveRejectsBadArrays(t *testing.T) {
	mm := memory.NewMemoryManager(config.Default())
	_, err := CreatePrimitive(mm, PrimitiveDescriptor{Positions: []float32{0, 0}})
	assert.Error(t, err)
	_, err = CreatePrimitive(mm, PrimitiveDescriptor{Positions: []float32{0, 0, 0}, Indices: []uint32{1}})
	assert.Error(t, err)
}

func TestPrimitiveAndMeshCastRay(t *testing.T) {
	p := quad(t, nil)
	ray := common.Ray{Origin: common.Vec3{X: 0.5, Y: -0.5, Z: 3}, Direction: common.Vec3{Z: -1}}

	hit, tri, ok := p.CastRay(ray)
	require.True(t, ok)
	assert.Equal(t, 0, tri)
	assert.InDelta(t, 3, hit.Distance, 1e-5)

	_, tri, ok = p.CastRay(common.Ray{Origin: common.Vec3{X: -0.5, Y: 0.5, Z: 3}, Direction: common.Vec3{Z: -1}})
	require.True(t, ok)
	assert.Equal(t, 1, tri)

	m := NewMesh("m")
	m.AddPrimitive(p)
	_, ok = m.CastRay(common.Ray{Origin: common.Vec3{X: 5, Z: 3}, Direction: common.Vec3{Z: -1}})
	assert.False(t, ok)
	_, ok = m.CastRay(ray)
	assert.True(t, ok)
}

func TestTriangleStripWinding(t *testing.T) {
	mm := memory.NewMemoryManager(config.Default())
	p, err := CreatePrimitive(mm, PrimitiveDescriptor{
		Mode:      TriangleStrip,
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0},
	})
	require.NoError(t, err)

	var tris [][3]common.Vec3
	p.Triangles(func(_ int, a, b, c common.Vec3) bool {
		tris = append(tris, [3]common.Vec3{a, b, c})
		return true
	})
	require.Len(t, tris, 2)
	assert.Equal(t, common.Vec3{Y: 1}, tris[1][0])
	assert.Equal(t, common.Vec3{X: 1}, tris[1][1])
	assert.Equal(t, common.Vec3{X: 1, Y: 1}, tris[1][2])
}

func TestMeshBuckets(t *testing.T) {
	m := NewMesh("m")
	m.AddPrimitive(NewPrimitive(WithMaterial(material.NewMaterial())))
	assert.True(t, m.IsOpaque())
	assert.False(t, m.IsTranslucentOrBlend())

	m.AddPrimitive(NewPrimitive(WithMaterial(material.NewMaterial(material.WithTranslucent(true)))))
	assert.True(t, m.IsTranslucentOrBlend())
	assert.NotEqual(t, NewMesh("other").MeshUID(), m.MeshUID())
}
