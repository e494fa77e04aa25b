package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is n·p + D = 0, with the positive half-space on the inside of a frustum.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// Distance returns the signed distance from the plane to p.
func (p Plane) Distance(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

func normalizePlane(a, b, c, d float32) Plane {
	l := math32.Sqrt(a*a + b*b + c*c)
	if l == 0 {
		return Plane{Normal: mgl32.Vec3{a, b, c}, D: d}
	}
	return Plane{Normal: mgl32.Vec3{a / l, b / l, c / l}, D: d / l}
}

// Frustum plane indices
const (
	PlaneLeft = iota
	PlaneRight
	PlaneBottom
	PlaneTop
	PlaneNear
	PlaneFar
)

// Frustum is the six-plane volume seen by a camera plus its eight corners.
// Corners 0-3 lie on the near plane, 4-7 on the far plane.
type Frustum struct {
	Planes  [6]Plane
	Corners [8]mgl32.Vec3
}

// NewFrustum extracts the frustum of a combined projection*view matrix (Gribb/Hartmann).
func NewFrustum(viewProj mgl32.Mat4) Frustum {
	// Matrix is in column-major order in mgl32
	m00, m01, m02, m03 := viewProj[0], viewProj[4], viewProj[8], viewProj[12]
	m10, m11, m12, m13 := viewProj[1], viewProj[5], viewProj[9], viewProj[13]
	m20, m21, m22, m23 := viewProj[2], viewProj[6], viewProj[10], viewProj[14]
	m30, m31, m32, m33 := viewProj[3], viewProj[7], viewProj[11], viewProj[15]

	var f Frustum
	f.Planes[PlaneLeft] = normalizePlane(m30+m00, m31+m01, m32+m02, m33+m03)
	f.Planes[PlaneRight] = normalizePlane(m30-m00, m31-m01, m32-m02, m33-m03)
	f.Planes[PlaneBottom] = normalizePlane(m30+m10, m31+m11, m32+m12, m33+m13)
	f.Planes[PlaneTop] = normalizePlane(m30-m10, m31-m11, m32-m12, m33-m13)
	f.Planes[PlaneNear] = normalizePlane(m30+m20, m31+m21, m32+m22, m33+m23)
	f.Planes[PlaneFar] = normalizePlane(m30-m20, m31-m21, m32-m22, m33-m23)

	inv := viewProj.Inv()
	ndc := [8]mgl32.Vec4{
		{-1, -1, -1, 1}, {1, -1, -1, 1}, {1, 1, -1, 1}, {-1, 1, -1, 1},
		{-1, -1, 1, 1}, {1, -1, 1, 1}, {1, 1, 1, 1}, {-1, 1, 1, 1},
	}
	for i, c := range ndc {
		w := inv.Mul4x1(c)
		f.Corners[i] = w.Vec3().Mul(1 / w.W())
	}
	return f
}

// Near returns the near plane.
func (f *Frustum) Near() Plane {
	return f.Planes[PlaneNear]
}

// Bounds returns the box enclosing the frustum corners.
func (f *Frustum) Bounds() AABB {
	return BoundsOf(f.Corners[:]...)
}

// ContainsPoint reports whether p is on the inside of every plane.
func (f *Frustum) ContainsPoint(p mgl32.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].Distance(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether a sphere overlaps the frustum.
func (f *Frustum) IntersectsSphere(center mgl32.Vec3, radius float32) bool {
	for i := range f.Planes {
		if f.Planes[i].Distance(center) < -radius {
			return false
		}
	}
	return true
}

// IntersectsAABB is a conservative AABB test. A box is rejected when its positive vertex
// lies behind any frustum plane, or when every frustum corner lies outside one box face.
// The second pass removes the large boxes near frustum edges that the plane test lets through.
func (f *Frustum) IntersectsAABB(b AABB) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		// Select the positive vertex for this plane normal
		px := b.Max[0]
		if p.Normal[0] < 0 {
			px = b.Min[0]
		}
		py := b.Max[1]
		if p.Normal[1] < 0 {
			py = b.Min[1]
		}
		pz := b.Max[2]
		if p.Normal[2] < 0 {
			pz = b.Min[2]
		}
		if p.Normal[0]*px+p.Normal[1]*py+p.Normal[2]*pz+p.D < 0 {
			return false
		}
	}

	if !b.IsFinite() {
		return true
	}
	for axis := 0; axis < 3; axis++ {
		above, below := 0, 0
		for _, c := range f.Corners {
			if c[axis] > b.Max[axis] {
				above++
			}
			if c[axis] < b.Min[axis] {
				below++
			}
		}
		if above == len(f.Corners) || below == len(f.Corners) {
			return false
		}
	}
	return true
}

// ContainsAABB reports whether the whole box is inside the frustum.
func (f *Frustum) ContainsAABB(b AABB) bool {
	for _, c := range b.Corners() {
		if !f.ContainsPoint(c) {
			return false
		}
	}
	return true
}
