package scene

import (
	"stagerender/internal/batch"
	"stagerender/internal/geom"
	"stagerender/internal/partition"

	"github.com/go-gl/mathgl/mgl32"
)

// Light is a directional, point or spot light. Point and spot lights are bounded by
// their range; directional lights have infinite bounds.
type Light struct {
	node

	direction   mgl32.Vec3
	ambient     mgl32.Vec4
	diffuse     mgl32.Vec4
	specular    mgl32.Vec4
	lightRange  float32
	attenuation mgl32.Vec3
}

func lightBounds(kind partition.Kind, r float32) geom.AABB {
	if kind == partition.KindDirectionalLight {
		return geom.InfiniteAABB()
	}
	return geom.AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{r, r, r})
}

// Kind returns the light type.
func (l *Light) Kind() partition.Kind { return l.ref.Kind }

// SetRange changes the influence radius of a point or spot light.
func (l *Light) SetRange(r float32) {
	l.mutate(func() {
		l.lightRange = r
		l.local = lightBounds(l.ref.Kind, r)
	})
}

// SetDirection sets the direction of directional and spot lights.
func (l *Light) SetDirection(d mgl32.Vec3) {
	l.mu.Lock()
	l.direction = d.Normalize()
	l.mu.Unlock()
}

// SetColours sets the ambient, diffuse and specular colours.
func (l *Light) SetColours(ambient, diffuse, specular mgl32.Vec4) {
	l.mu.Lock()
	l.ambient, l.diffuse, l.specular = ambient, diffuse, specular
	l.mu.Unlock()
}

// SetAttenuation sets the constant, linear and quadratic attenuation factors.
func (l *Light) SetAttenuation(constant, linear, quadratic float32) {
	l.mu.Lock()
	l.attenuation = mgl32.Vec3{constant, linear, quadratic}
	l.mu.Unlock()
}

// Snapshot returns the light state handed to renderables this frame.
func (l *Light) Snapshot() batch.Light {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return batch.Light{
		Ref:         l.ref,
		Position:    l.position,
		Direction:   l.direction,
		Ambient:     l.ambient,
		Diffuse:     l.diffuse,
		Specular:    l.specular,
		Range:       l.lightRange,
		Attenuation: l.attenuation,
		Bounds:      l.boundsLocked(),
	}
}
