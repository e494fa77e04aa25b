package scene

import (
	"stagerender/internal/geom"
	"stagerender/internal/handle"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera handles the view and projection matrices of a pipeline.
type Camera struct {
	id handle.Handle

	mu       sync.RWMutex
	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32 // degrees
	aspect float32
	near   float32
	far    float32
}

func newCamera() *Camera {
	return &Camera{
		target: mgl32.Vec3{0, 0, -1},
		up:     mgl32.Vec3{0, 1, 0},
		fov:    60.0,
		aspect: 16.0 / 9.0,
		near:   0.1,
		far:    1000.0,
	}
}

// ID returns the camera's handle within its stage.
func (c *Camera) ID() handle.Handle { return c.id }

// SetPerspective sets the projection. fov is the vertical field of view in degrees.
func (c *Camera) SetPerspective(fov, aspect, near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov, c.aspect, c.near, c.far = fov, aspect, near, far
}

// LookAt places the camera at eye looking towards target.
func (c *Camera) LookAt(eye, target, up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position, c.target, c.up = eye, target, up
}

// SetAspectRatio updates the aspect ratio after a resize.
func (c *Camera) SetAspectRatio(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

// AbsolutePosition returns the camera position in world space.
func (c *Camera) AbsolutePosition() mgl32.Vec3 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.position
}

func (c *Camera) GetProjectionMatrix() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return mgl32.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)
}

func (c *Camera) GetViewMatrix() mgl32.Mat4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return mgl32.LookAtV(c.position, c.target, c.up)
}

// Frustum returns the view volume in world space.
func (c *Camera) Frustum() geom.Frustum {
	c.mu.RLock()
	proj := mgl32.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)
	view := mgl32.LookAtV(c.position, c.target, c.up)
	c.mu.RUnlock()
	return geom.NewFrustum(proj.Mul4(view))
}
