package common

import "github.com/chewxy/math32"

// Ray is a half-line starting at Origin going along Direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// RayHit describes the nearest intersection between a ray and a triangle.
type RayHit struct {
	// Distance along the (unnormalized) ray direction.
	Distance float32
	// Position is the intersection point.
	Position Vec3
	// U and V are the barycentric weights of the second and third vertex.
	U, V float32
}

const rayEpsilon = 1e-7

// IntersectTriangle tests r against triangle (a, b, c) using the Möller–Trumbore algorithm.
// Both faces are considered.
//
// Parameters:
//   - a, b, c: triangle vertices
//
// Returns:
//   - RayHit: the intersection details
//   - bool: false if the ray misses or the triangle lies behind the origin
func (r Ray) IntersectTriangle(a, b, c Vec3) (RayHit, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < rayEpsilon {
		return RayHit{}, false
	}
	invDet := 1 / det

	s := r.Origin.Sub(a)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return RayHit{}, false
	}

	q := s.Cross(e1)
	v := r.Direction.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return RayHit{}, false
	}

	t := e2.Dot(q) * invDet
	if t < 0 {
		return RayHit{}, false
	}

	return RayHit{
		Distance: t,
		Position: r.Origin.Add(r.Direction.Scale(t)),
		U:        u,
		V:        v,
	}, true
}

// Transform returns r with origin and direction moved by m.
func (r Ray) Transform(m Mat4) Ray {
	return Ray{Origin: m.TransformPoint(r.Origin), Direction: m.TransformDirection(r.Direction)}
}
