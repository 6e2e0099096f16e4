package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeTRSTranslationOnly(t *testing.T) {
	m := ComposeTRS(Vec3{1, 2, 3}, IdentityQuat(), Vec3{1, 1, 1})
	assert.Equal(t, Vec3{1, 2, 3}, m.Translation())
	assert.Equal(t, Vec3{2, 3, 4}, m.TransformPoint(Vec3{1, 1, 1}))
}

func TestComposeTRSRotationMatchesQuat(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 1, 0}, math32.Pi/2)
	m := ComposeTRS(Vec3{}, q, Vec3{1, 1, 1})
	got := m.TransformPoint(Vec3{1, 0, 0})
	assert.True(t, got.ApproxEqual(Vec3{0, 0, -1}, 1e-5), "got %v", got)
}

func TestInverseRoundTrip(t *testing.T) {
	m := ComposeTRS(Vec3{3, -2, 5}, QuatFromEuler(0.3, 0.2, -0.7), Vec3{2, 2, 2})
	inv, ok := m.Inverse()
	require.True(t, ok)

	p := Vec3{0.5, 1.5, -2}
	back := inv.TransformPoint(m.TransformPoint(p))
	assert.True(t, back.ApproxEqual(p, 1e-4), "got %v", back)
}

func TestInverseSingular(t *testing.T) {
	var zero Mat4
	inv, ok := zero.Inverse()
	assert.False(t, ok)
	assert.Equal(t, IdentityMat4(), inv)
}

func TestQuatEulerRoundTrip(t *testing.T) {
	in := Vec3{0.4, -0.3, 1.1}
	out := QuatFromEuler(in.X, in.Y, in.Z).Euler()
	assert.True(t, out.ApproxEqual(in, 1e-5), "got %v", out)
}

func TestAABBMergeAndTransform(t *testing.T) {
	b := NewAABB()
	assert.True(t, b.IsVanilla())

	b = b.AddPoint(Vec3{-1, -1, -1}).AddPoint(Vec3{1, 1, 1})
	assert.False(t, b.IsVanilla())

	moved := b.Transform(ComposeTRS(Vec3{10, 0, 0}, IdentityQuat(), Vec3{2, 1, 1}))
	assert.Equal(t, Vec3{8, -1, -1}, moved.Min)
	assert.Equal(t, Vec3{12, 1, 1}, moved.Max)

	assert.Equal(t, b, b.Merge(NewAABB()))
	assert.Equal(t, b, NewAABB().Merge(b))
}

func TestRayIntersectTriangle(t *testing.T) {
	r := Ray{Origin: Vec3{0.25, 0.25, 5}, Direction: Vec3{0, 0, -1}}
	hit, ok := r.IntersectTriangle(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0})
	require.True(t, ok)
	assert.InDelta(t, 5, hit.Distance, 1e-6)
	assert.InDelta(t, 0.25, hit.U, 1e-6)
	assert.InDelta(t, 0.25, hit.V, 1e-6)

	_, ok = Ray{Origin: Vec3{2, 2, 5}, Direction: Vec3{0, 0, -1}}.IntersectTriangle(Vec3{0, 0, 0}, Vec3{1, 0, 0}, Vec3{0, 1, 0})
	assert.False(t, ok)
}

func TestFrustumCulling(t *testing.T) {
	viewProj := PerspectiveMat4(math32.Pi/2, 1, 0.1, 100).Mul(LookAtMat4(Vec3{0, 0, 5}, Vec3{}, Vec3{0, 1, 0}))
	f := ExtractFrustumFromMatrix(viewProj)

	inside := NewAABB().AddPoint(Vec3{-1, -1, -1}).AddPoint(Vec3{1, 1, 1})
	behind := NewAABB().AddPoint(Vec3{-1, -1, 10}).AddPoint(Vec3{1, 1, 12})
	assert.True(t, inside.IntersectsFrustum(f))
	assert.False(t, behind.IntersectsFrustum(f))

	// between the eye and the near plane
	tooClose := NewAABB().AddPoint(Vec3{-0.01, -0.01, 4.95}).AddPoint(Vec3{0.01, 0.01, 4.96})
	assert.False(t, tooClose.IntersectsFrustum(f))
	assert.InDelta(t, 4.9, f.Planes[FrustumNear].SignedDistance(Vec3{}), 1e-3)
}

func TestDecomposeTRSRoundTrip(t *testing.T) {
	q := QuatFromEuler(0.5, -1.2, 2.0)
	m := ComposeTRS(Vec3{4, 5, 6}, q, Vec3{2, 3, 0.5})

	tr, r, s := DecomposeTRS(m)
	assert.True(t, tr.ApproxEqual(Vec3{4, 5, 6}, 1e-5), "got %v", tr)
	assert.True(t, s.ApproxEqual(Vec3{2, 3, 0.5}, 1e-5), "got %v", s)

	p := Vec3{1, -2, 3}
	got := ComposeTRS(tr, r, s).TransformPoint(p)
	assert.True(t, got.ApproxEqual(m.TransformPoint(p), 1e-4), "got %v", got)
}
