package common

import "github.com/chewxy/math32"

// AABB is an axis-aligned bounding box.
// A freshly created AABB is "vanilla": it contains nothing until a point or box is merged into it.
type AABB struct {
	Min Vec3
	Max Vec3
}

// NewAABB returns an empty (vanilla) box.
//
// Returns:
//   - AABB: a box whose min is +Inf and max is -Inf
func NewAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// IsVanilla reports whether nothing has been merged into the box yet.
func (b AABB) IsVanilla() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// AddPoint grows the box to contain p.
//
// Parameters:
//   - p: the point to include
//
// Returns:
//   - AABB: the grown box
func (b AABB) AddPoint(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Merge returns the union of b and o. Vanilla boxes are ignored.
//
// Parameters:
//   - o: the other box
//
// Returns:
//   - AABB: the union
func (b AABB) Merge(o AABB) AABB {
	if o.IsVanilla() {
		return b
	}
	if b.IsVanilla() {
		return o
	}
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Transform returns the axis-aligned box enclosing b after transformation by m.
// Uses the per-axis min/max accumulation so the result stays tight for affine transforms.
//
// Parameters:
//   - m: a column-major affine transform
//
// Returns:
//   - AABB: the transformed box, vanilla if b is vanilla
func (b AABB) Transform(m Mat4) AABB {
	if b.IsVanilla() {
		return b
	}
	min := Vec3{m[12], m[13], m[14]}
	max := min

	bMin := [3]float32{b.Min.X, b.Min.Y, b.Min.Z}
	bMax := [3]float32{b.Max.X, b.Max.Y, b.Max.Z}
	outMin := [3]*float32{&min.X, &min.Y, &min.Z}
	outMax := [3]*float32{&max.X, &max.Y, &max.Z}

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			e := m[col*4+row]
			a := e * bMin[col]
			c := e * bMax[col]
			if a < c {
				*outMin[row] += a
				*outMax[row] += c
			} else {
				*outMin[row] += c
				*outMax[row] += a
			}
		}
	}
	return AABB{Min: min, Max: max}
}

// IntersectsFrustum reports whether any part of the box lies inside f.
//
// Parameters:
//   - f: the frustum with inward-facing planes
//
// Returns:
//   - bool: false only if the box lies entirely outside one plane
func (b AABB) IntersectsFrustum(f Frustum) bool {
	if b.IsVanilla() {
		return false
	}
	for _, p := range f.Planes {
		// positive vertex along the plane normal
		x := b.Min.X
		if p.Normal.X >= 0 {
			x = b.Max.X
		}
		y := b.Min.Y
		if p.Normal.Y >= 0 {
			y = b.Max.Y
		}
		z := b.Min.Z
		if p.Normal.Z >= 0 {
			z = b.Max.Z
		}
		if p.SignedDistance(Vec3{x, y, z}) < 0 {
			return false
		}
	}
	return true
}
