package scene

import (
	"math/rand"
	"stagerender/internal/batch"
	"stagerender/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Emitter configures how a particle system spawns particles.
type Emitter struct {
	Rate         float32 // particles per second
	Lifetime     float32 // seconds
	Speed        float32
	Direction    mgl32.Vec3
	Spread       float32 // random velocity added on each axis, in units per second
	Gravity      mgl32.Vec3
	Size         float32
	MaxParticles int
}

// DefaultEmitter is a small upward fountain.
func DefaultEmitter() Emitter {
	return Emitter{
		Rate:         40,
		Lifetime:     2,
		Speed:        3,
		Direction:    mgl32.Vec3{0, 1, 0},
		Spread:       1,
		Gravity:      mgl32.Vec3{0, -2, 0},
		Size:         0.2,
		MaxParticles: 256,
	}
}

type particle struct {
	pos, vel  mgl32.Vec3
	age, life float32
}

// ParticleSystem is a node whose mesh is rebuilt on every Update. Its mesh is empty
// until the first particle is emitted.
type ParticleSystem struct {
	node
	emitter  Emitter
	material *batch.Material
	rng      *rand.Rand

	particles []particle
	carry     float32

	vertices *VertexData
	indices  *IndexData
}

// Emitter returns the emitter settings.
func (p *ParticleSystem) Emitter() Emitter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.emitter
}

// Count returns the number of live particles.
func (p *ParticleSystem) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.particles)
}

// Update ages, spawns and moves particles by dt seconds, rebuilds the mesh and stages
// the new bounds.
func (p *ParticleSystem) Update(dt float32) {
	p.mu.Lock()

	// Age and compact in place
	live := p.particles[:0]
	for _, pt := range p.particles {
		pt.age += dt
		if pt.age >= pt.life {
			continue
		}
		pt.vel = pt.vel.Add(p.emitter.Gravity.Mul(dt))
		pt.pos = pt.pos.Add(pt.vel.Mul(dt))
		live = append(live, pt)
	}
	p.particles = live

	p.carry += p.emitter.Rate * dt
	for p.carry >= 1 && len(p.particles) < p.emitter.MaxParticles {
		p.carry--
		jitter := mgl32.Vec3{
			(p.rng.Float32()*2 - 1) * p.emitter.Spread,
			(p.rng.Float32()*2 - 1) * p.emitter.Spread,
			(p.rng.Float32()*2 - 1) * p.emitter.Spread,
		}
		p.particles = append(p.particles, particle{
			vel:  p.emitter.Direction.Mul(p.emitter.Speed).Add(jitter),
			life: p.emitter.Lifetime,
		})
	}
	if p.carry >= 1 {
		// At capacity: drop the backlog
		p.carry = 0
	}

	p.rebuildLocked()
	p.stage.writes.StageUpdate(p.ref, p.boundsLocked())
	p.mu.Unlock()
}

// rebuildLocked replaces the mesh with one camera-independent quad per particle.
// Renderables of earlier frames keep the previous buffers.
func (p *ParticleSystem) rebuildLocked() {
	vd := &VertexData{
		Positions: make([]mgl32.Vec3, 0, len(p.particles)*4),
		Normals:   make([]mgl32.Vec3, 0, len(p.particles)*4),
		UVs:       make([]mgl32.Vec2, 0, len(p.particles)*4),
	}
	id := &IndexData{Indices: make([]uint32, 0, len(p.particles)*6)}

	h := p.emitter.Size * 0.5
	for _, pt := range p.particles {
		base := uint32(len(vd.Positions))
		vd.Positions = append(vd.Positions,
			pt.pos.Add(mgl32.Vec3{-h, -h, 0}),
			pt.pos.Add(mgl32.Vec3{h, -h, 0}),
			pt.pos.Add(mgl32.Vec3{h, h, 0}),
			pt.pos.Add(mgl32.Vec3{-h, h, 0}),
		)
		for i := 0; i < 4; i++ {
			vd.Normals = append(vd.Normals, mgl32.Vec3{0, 0, 1})
		}
		vd.UVs = append(vd.UVs, mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, mgl32.Vec2{1, 1}, mgl32.Vec2{0, 1})
		id.Indices = append(id.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	p.vertices = vd
	p.indices = id

	if len(vd.Positions) == 0 {
		p.local = geom.AABB{}
		return
	}
	p.local = geom.BoundsOf(vd.Positions...)
}

func (p *ParticleSystem) AppendRenderables(dst []batch.Renderable, level batch.DetailLevel) []batch.Renderable {
	r := p.baseRenderable()
	p.mu.RLock()
	r.Vertices = p.vertices
	r.Indices = p.indices
	p.mu.RUnlock()
	r.Material = p.material
	r.Arrangement = batch.ArrangeTriangles
	r.DetailLevel = level
	return append(dst, r)
}
