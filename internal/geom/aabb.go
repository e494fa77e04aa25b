package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAABB builds a box from two opposite corners in any order.
func NewAABB(a, b mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{math32.Min(a[0], b[0]), math32.Min(a[1], b[1]), math32.Min(a[2], b[2])},
		Max: mgl32.Vec3{math32.Max(a[0], b[0]), math32.Max(a[1], b[1]), math32.Max(a[2], b[2])},
	}
}

// AABBFromCenter builds a box around center with the given half extents.
func AABBFromCenter(center, half mgl32.Vec3) AABB {
	return NewAABB(center.Sub(half), center.Add(half))
}

// InfiniteAABB returns a box covering all of space, used for directional lights.
func InfiniteAABB() AABB {
	m := float32(math32.MaxFloat32)
	return AABB{Min: mgl32.Vec3{-m, -m, -m}, Max: mgl32.Vec3{m, m, m}}
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return mgl32.Vec3{
		b.Min[0]*0.5 + b.Max[0]*0.5,
		b.Min[1]*0.5 + b.Max[1]*0.5,
		b.Min[2]*0.5 + b.Max[2]*0.5,
	}
}

// Size returns the edge lengths of the box.
func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// HalfExtents returns half the edge lengths of the box.
func (b AABB) HalfExtents() mgl32.Vec3 {
	return b.Size().Mul(0.5)
}

// MaxDimension returns the longest edge.
func (b AABB) MaxDimension() float32 {
	s := b.Size()
	return math32.Max(s[0], math32.Max(s[1], s[2]))
}

// IsFinite reports whether every coordinate of the box is finite.
func (b AABB) IsFinite() bool {
	for i := 0; i < 3; i++ {
		if math32.IsInf(b.Min[i], 0) || math32.IsInf(b.Max[i], 0) ||
			math32.IsNaN(b.Min[i]) || math32.IsNaN(b.Max[i]) ||
			b.Min[i] <= -math32.MaxFloat32 || b.Max[i] >= math32.MaxFloat32 {
			return false
		}
	}
	return true
}

// Intersects reports whether two boxes overlap, touching faces included.
func (b AABB) Intersects(o AABB) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// ContainsPoint reports whether p lies inside or on the box.
func (b AABB) ContainsPoint(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Translate returns the box moved by d.
func (b AABB) Translate(d mgl32.Vec3) AABB {
	return AABB{Min: b.Min.Add(d), Max: b.Max.Add(d)}
}

// Union returns the smallest box enclosing both boxes.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{math32.Min(b.Min[0], o.Min[0]), math32.Min(b.Min[1], o.Min[1]), math32.Min(b.Min[2], o.Min[2])},
		Max: mgl32.Vec3{math32.Max(b.Max[0], o.Max[0]), math32.Max(b.Max[1], o.Max[1]), math32.Max(b.Max[2], o.Max[2])},
	}
}

// Transform returns the box enclosing b after transformation by m.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	corners := b.Corners()
	for i, c := range corners {
		corners[i] = mgl32.TransformCoordinate(c, m)
	}
	return BoundsOf(corners[:]...)
}

// DistanceTo returns the distance from p to the closest point of the box, 0 when p is inside.
func (b AABB) DistanceTo(p mgl32.Vec3) float32 {
	var d mgl32.Vec3
	for i := 0; i < 3; i++ {
		switch {
		case p[i] < b.Min[i]:
			d[i] = b.Min[i] - p[i]
		case p[i] > b.Max[i]:
			d[i] = p[i] - b.Max[i]
		}
	}
	return d.Len()
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8]mgl32.Vec3 {
	return [8]mgl32.Vec3{
		{b.Min[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Min[1], b.Min[2]},
		{b.Max[0], b.Max[1], b.Min[2]},
		{b.Min[0], b.Max[1], b.Min[2]},
		{b.Min[0], b.Min[1], b.Max[2]},
		{b.Max[0], b.Min[1], b.Max[2]},
		{b.Max[0], b.Max[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Max[2]},
	}
}

// BoundsOf returns the box enclosing every point.
func BoundsOf(points ...mgl32.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	b := AABB{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			b.Min[i] = math32.Min(b.Min[i], p[i])
			b.Max[i] = math32.Max(b.Max[i], p[i])
		}
	}
	return b
}
