package common

// Plane is the set of points p with Normal·p + Distance = 0.
// Points on the side the normal faces give a positive signed distance.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// SignedDistance returns Normal·p + Distance. It is the true distance only for a normalized plane.
func (p Plane) SignedDistance(v Vec3) float32 {
	return p.Normal.Dot(v) + p.Distance
}

func (p Plane) normalized() Plane {
	l := p.Normal.Length()
	if l == 0 {
		return p
	}
	return Plane{Normal: p.Normal.Scale(1 / l), Distance: p.Distance / l}
}

// Frustum holds six inward-facing planes in the order Left, Right, Bottom, Top, Near, Far.
type Frustum struct {
	Planes [6]Plane
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// ExtractFrustumFromMatrix extracts normalized culling planes from a view-projection matrix
// (Gribb/Hartmann). Clip depth is WebGPU's [0, w], so the near plane is row 2 alone.
//
// Parameters:
//   - m: the projection * view matrix, column-major
//
// Returns:
//   - Frustum: planes facing the inside of the view volume
func ExtractFrustumFromMatrix(m Mat4) Frustum {
	row := func(r int) Plane {
		return Plane{Normal: Vec3{m[r], m[4+r], m[8+r]}, Distance: m[12+r]}
	}
	add := func(a, b Plane) Plane {
		return Plane{Normal: a.Normal.Add(b.Normal), Distance: a.Distance + b.Distance}
	}
	sub := func(a, b Plane) Plane {
		return Plane{Normal: a.Normal.Sub(b.Normal), Distance: a.Distance - b.Distance}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	var f Frustum
	f.Planes[FrustumLeft] = add(r3, r0)
	f.Planes[FrustumRight] = sub(r3, r0)
	f.Planes[FrustumBottom] = add(r3, r1)
	f.Planes[FrustumTop] = sub(r3, r1)
	f.Planes[FrustumNear] = r2
	f.Planes[FrustumFar] = sub(r3, r2)
	for i := range f.Planes {
		f.Planes[i] = f.Planes[i].normalized()
	}
	return f
}
