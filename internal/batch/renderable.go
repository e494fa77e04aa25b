package batch

import (
	"stagerender/internal/geom"
	"stagerender/internal/partition"

	"github.com/go-gl/mathgl/mgl32"
)

// Arrangement is the primitive topology of a draw.
type Arrangement uint8

const (
	ArrangeTriangles Arrangement = iota
	ArrangeTriangleStrip
	ArrangeTriangleFan
	ArrangeLines
	ArrangeLineStrip
	ArrangePoints
)

// DetailLevel is a distance tier used to pick a mesh representation.
type DetailLevel uint8

const (
	DetailNearest DetailLevel = iota
	DetailNear
	DetailMid
	DetailFar
	DetailFarthest

	DetailLevelCount = 5
)

func (d DetailLevel) String() string {
	switch d {
	case DetailNearest:
		return "nearest"
	case DetailNear:
		return "near"
	case DetailMid:
		return "mid"
	case DetailFar:
		return "far"
	case DetailFarthest:
		return "farthest"
	}
	return "unknown"
}

// VertexSource is the vertex data of a draw. Backends type-assert it to their own buffer type.
type VertexSource interface {
	VertexCount() int
}

// IndexSource is the index data of a draw.
type IndexSource interface {
	IndexCount() int
}

// Light is the per-frame state of a light as seen by a renderable.
type Light struct {
	Ref         partition.NodeRef
	Position    mgl32.Vec3
	Direction   mgl32.Vec3
	Ambient     mgl32.Vec4
	Diffuse     mgl32.Vec4
	Specular    mgl32.Vec4
	Range       float32
	Attenuation mgl32.Vec3 // constant, linear, quadratic
	Bounds      geom.AABB
}

// Directional reports whether the light has no position.
func (l Light) Directional() bool {
	return l.Ref.Kind == partition.KindDirectionalLight
}

// Renderable is one frame-scoped draw request. The queue stores renderables by value
// and reuses the storage on the next frame.
type Renderable struct {
	Node        partition.NodeRef
	Vertices    VertexSource
	Indices     IndexSource
	Material    *Material
	Transform   mgl32.Mat4
	Arrangement Arrangement
	Priority    RenderPriority
	Bounds      geom.AABB
	DetailLevel DetailLevel

	Lights     [MaxLightsPerRenderable]Light
	LightCount int
}

// ActiveLights returns the lights assigned to r.
func (r *Renderable) ActiveLights() []Light {
	return r.Lights[:r.LightCount]
}

// SetLights copies up to MaxLightsPerRenderable lights into r and returns how many were dropped.
func (r *Renderable) SetLights(lights []Light) int {
	r.LightCount = copy(r.Lights[:], lights)
	return len(lights) - r.LightCount
}
