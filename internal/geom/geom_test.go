package geom

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrustum() Frustum {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	return NewFrustum(proj.Mul4(view))
}

func TestAABBBasics(t *testing.T) {
	b := NewAABB(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{-1, -2, -3})
	assert.Equal(t, mgl32.Vec3{-1, -2, -3}, b.Min)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, b.Max)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, b.Center())
	assert.Equal(t, float32(6), b.MaxDimension())
	assert.True(t, b.IsFinite())
	assert.False(t, InfiniteAABB().IsFinite())

	moved := b.Translate(mgl32.Vec3{10, 0, 0})
	assert.Equal(t, mgl32.Vec3{10, 0, 0}, moved.Center())
	assert.False(t, b.Intersects(moved))
	assert.True(t, b.Intersects(b.Translate(mgl32.Vec3{2, 0, 0})), "touching faces intersect")
}

func TestAABBTransform(t *testing.T) {
	b := AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{1, 2, 3})
	moved := b.Transform(mgl32.Translate3D(5, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2)))
	assert.InDelta(t, 3, moved.Min[0], 1e-5)
	assert.InDelta(t, 7, moved.Max[0], 1e-5)
	assert.InDelta(t, 6, moved.Max[2], 1e-5)

	// A quarter turn about y swaps the x and z extents
	turned := b.Transform(mgl32.HomogRotate3DY(mgl32.DegToRad(90)))
	assert.InDelta(t, 3, turned.Max[0], 1e-4)
	assert.InDelta(t, 1, turned.Max[2], 1e-4)
}

func TestAABBDistanceTo(t *testing.T) {
	b := AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	tests := []struct {
		name string
		p    mgl32.Vec3
		want float32
	}{
		{"inside", mgl32.Vec3{0.5, 0, 0}, 0},
		{"face", mgl32.Vec3{0, 0, 10}, 9},
		{"edge", mgl32.Vec3{4, 5, 0}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, b.DistanceTo(tt.p), 1e-5)
		})
	}
}

func TestBoundsOf(t *testing.T) {
	b := BoundsOf(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{-2, 3, 0}, mgl32.Vec3{0, 0, 5})
	assert.Equal(t, mgl32.Vec3{-2, 0, 0}, b.Min)
	assert.Equal(t, mgl32.Vec3{1, 3, 5}, b.Max)
}

func TestFrustumAABB(t *testing.T) {
	f := testFrustum()

	tests := []struct {
		name string
		box  AABB
		want bool
	}{
		{"origin", AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}), true},
		{"far right", AABBFromCenter(mgl32.Vec3{1000, 0, 0}, mgl32.Vec3{1, 1, 1}), false},
		{"behind camera", AABBFromCenter(mgl32.Vec3{0, 0, 20}, mgl32.Vec3{1, 1, 1}), false},
		{"beyond far plane", AABBFromCenter(mgl32.Vec3{0, 0, -200}, mgl32.Vec3{1, 1, 1}), false},
		{"straddles left plane", AABBFromCenter(mgl32.Vec3{-6, 0, 0}, mgl32.Vec3{1, 1, 1}), true},
		{"encloses camera", AABBFromCenter(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{50, 50, 50}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.IntersectsAABB(tt.box))
		})
	}
}

func TestFrustumInfiniteBoxAlwaysVisible(t *testing.T) {
	f := testFrustum()
	assert.True(t, f.IntersectsAABB(InfiniteAABB()))
}

func TestFrustumNearPlaneDistance(t *testing.T) {
	f := testFrustum()
	d := f.Near().Distance(mgl32.Vec3{0, 0, 0})
	assert.InDelta(t, 9.9, d, 1e-2)
	assert.InDelta(t, 4.9, f.Near().Distance(mgl32.Vec3{0, 0, 5}), 1e-2)
}

func TestFrustumCornersAndBounds(t *testing.T) {
	f := testFrustum()
	b := f.Bounds()
	for _, c := range f.Corners {
		assert.True(t, b.ContainsPoint(c))
	}
	assert.InDelta(t, 9.9, f.Corners[0][2], 0.05)
	assert.InDelta(t, -90, f.Corners[4][2], 0.5)
}

// Boxes fully contained must intersect, boxes separated by a plane must not.
func TestFrustumRandomBoxes(t *testing.T) {
	f := testFrustum()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		c := mgl32.Vec3{rng.Float32()*400 - 200, rng.Float32()*400 - 200, rng.Float32()*400 - 200}
		h := rng.Float32()*3 + 0.1
		box := AABBFromCenter(c, mgl32.Vec3{h, h, h})

		if f.ContainsAABB(box) {
			require.True(t, f.IntersectsAABB(box), "contained box %v rejected", box)
		}
		outside := false
		for _, p := range f.Planes {
			all := true
			for _, corner := range box.Corners() {
				if p.Distance(corner) >= 0 {
					all = false
					break
				}
			}
			if all {
				outside = true
				break
			}
		}
		if outside {
			require.False(t, f.IntersectsAABB(box), "outside box %v accepted", box)
		}
	}
}

func TestFrustumSphere(t *testing.T) {
	f := testFrustum()
	assert.True(t, f.IntersectsSphere(mgl32.Vec3{}, 1))
	assert.False(t, f.IntersectsSphere(mgl32.Vec3{0, 0, 30}, 5))
	assert.True(t, f.IntersectsSphere(mgl32.Vec3{0, 0, 30}, 25))
}
