package scene

import (
	"fmt"
	"math/rand"
	"stagerender/internal/batch"
	"stagerender/internal/geom"
	"stagerender/internal/handle"
	"stagerender/internal/partition"

	"github.com/go-gl/mathgl/mgl32"
)

// Stage owns a set of scene nodes and the spatial index that culls them. Node
// creation, movement and destruction may happen on any goroutine; each stages a
// write that the render goroutine applies with ApplyStagedWrites.
type Stage struct {
	id   handle.Handle
	name string

	index  partition.Index
	writes *partition.StagedWriteQueue

	actors    *handle.Arena[*Actor]
	geoms     *handle.Arena[*Geom]
	particles *handle.Arena[*ParticleSystem]
	lights    *handle.Arena[*Light]
	cameras   *handle.Arena[*Camera]
}

func newStage(name string, index partition.Index) *Stage {
	return &Stage{
		name:      name,
		index:     index,
		writes:    partition.NewStagedWriteQueue(),
		actors:    handle.NewArena[*Actor](64),
		geoms:     handle.NewArena[*Geom](16),
		particles: handle.NewArena[*ParticleSystem](8),
		lights:    handle.NewArena[*Light](8),
		cameras:   handle.NewArena[*Camera](2),
	}
}

// ID returns the stage's handle within its world.
func (s *Stage) ID() handle.Handle { return s.id }

func (s *Stage) Name() string { return s.name }

// Index returns the stage's spatial index. Only the render goroutine may use it.
func (s *Stage) Index() partition.Index { return s.index }

// PendingWrites returns the number of staged writes not yet applied.
func (s *Stage) PendingWrites() int { return s.writes.Len() }

// ApplyStagedWrites flushes pending writes into the index. Render goroutine only.
func (s *Stage) ApplyStagedWrites() int {
	return s.writes.ApplyAll(s.index)
}

// QueryVisible appends the nodes visible through f to dst. Render goroutine only.
func (s *Stage) QueryVisible(f *geom.Frustum, dst *partition.Visible) {
	s.index.QueryVisible(f, dst)
}

// NewActor creates an actor at pos drawing mesh, which may be nil.
func (s *Stage) NewActor(mesh *Mesh, pos mgl32.Vec3) *Actor {
	a := &Actor{}
	a.meshes[batch.DetailNearest] = mesh
	var local geom.AABB
	if mesh != nil {
		local = mesh.Bounds()
	}
	h := s.actors.Insert(a)
	a.init(s, partition.NodeRef{Kind: partition.KindActor, Handle: h}, pos, local)
	s.writes.StageAdd(a.ref, a.Bounds())
	return a
}

// NewGeom creates static geometry at pos.
func (s *Stage) NewGeom(mesh *Mesh, pos mgl32.Vec3) *Geom {
	g := &Geom{mesh: mesh}
	var local geom.AABB
	if mesh != nil {
		local = mesh.Bounds()
	}
	h := s.geoms.Insert(g)
	g.n.init(s, partition.NodeRef{Kind: partition.KindGeom, Handle: h}, pos, local)
	s.writes.StageAdd(g.n.ref, g.Bounds())
	return g
}

// NewParticleSystem creates a particle system at pos. The seed makes emission deterministic.
func (s *Stage) NewParticleSystem(e Emitter, mat *batch.Material, pos mgl32.Vec3, seed int64) *ParticleSystem {
	p := &ParticleSystem{
		emitter:  e,
		material: mat,
		rng:      rand.New(rand.NewSource(seed)),
		vertices: &VertexData{},
		indices:  &IndexData{},
	}
	h := s.particles.Insert(p)
	p.init(s, partition.NodeRef{Kind: partition.KindParticleSystem, Handle: h}, pos, geom.AABB{})
	s.writes.StageAdd(p.ref, p.Bounds())
	return p
}

func (s *Stage) newLight(kind partition.Kind, pos, dir mgl32.Vec3, r float32) *Light {
	l := &Light{
		direction:   dir.Normalize(),
		ambient:     mgl32.Vec4{0, 0, 0, 1},
		diffuse:     mgl32.Vec4{1, 1, 1, 1},
		specular:    mgl32.Vec4{1, 1, 1, 1},
		lightRange:  r,
		attenuation: mgl32.Vec3{1, 0, 0},
	}
	h := s.lights.Insert(l)
	l.init(s, partition.NodeRef{Kind: kind, Handle: h}, pos, lightBounds(kind, r))
	s.writes.StageAdd(l.ref, l.Bounds())
	return l
}

// NewDirectionalLight creates a light shining along dir everywhere in the stage.
func (s *Stage) NewDirectionalLight(dir mgl32.Vec3) *Light {
	return s.newLight(partition.KindDirectionalLight, mgl32.Vec3{}, dir, 0)
}

// NewPointLight creates a light at pos affecting nodes within r.
func (s *Stage) NewPointLight(pos mgl32.Vec3, r float32) *Light {
	return s.newLight(partition.KindPointLight, pos, mgl32.Vec3{0, -1, 0}, r)
}

// NewSpotLight creates a light at pos pointing along dir, affecting nodes within r.
func (s *Stage) NewSpotLight(pos, dir mgl32.Vec3, r float32) *Light {
	return s.newLight(partition.KindSpotLight, pos, dir, r)
}

// NewCamera creates a camera owned by the stage.
func (s *Stage) NewCamera() *Camera {
	c := newCamera()
	c.id = s.cameras.Insert(c)
	return c
}

// Camera returns the camera for h, or false once it has been destroyed.
func (s *Stage) Camera(h handle.Handle) (*Camera, bool) {
	return s.cameras.Get(h)
}

// DestroyCamera removes a camera. Pipelines using it deactivate on their next run.
func (s *Stage) DestroyCamera(h handle.Handle) bool {
	return s.cameras.Remove(h)
}

// Actor returns the actor for h.
func (s *Stage) Actor(h handle.Handle) (*Actor, bool) { return s.actors.Get(h) }

// Light returns the light for h.
func (s *Stage) Light(h handle.Handle) (*Light, bool) { return s.lights.Get(h) }

// ParticleSystem returns the particle system for h.
func (s *Stage) ParticleSystem(h handle.Handle) (*ParticleSystem, bool) { return s.particles.Get(h) }

// Node returns the node behind ref.
func (s *Stage) Node(ref partition.NodeRef) (Node, bool) {
	switch ref.Kind {
	case partition.KindDirectionalLight, partition.KindPointLight, partition.KindSpotLight:
		if l, ok := s.lights.Get(ref.Handle); ok && l.ref.Kind == ref.Kind {
			return l, true
		}
		return nil, false
	}
	return s.Renderable(ref)
}

// Renderable returns the drawable node behind ref. Lights are not drawable.
func (s *Stage) Renderable(ref partition.NodeRef) (RenderableSource, bool) {
	switch ref.Kind {
	case partition.KindActor:
		if a, ok := s.actors.Get(ref.Handle); ok {
			return a, true
		}
	case partition.KindGeom:
		if g, ok := s.geoms.Get(ref.Handle); ok {
			return g, true
		}
	case partition.KindParticleSystem:
		if p, ok := s.particles.Get(ref.Handle); ok {
			return p, true
		}
	}
	return nil, false
}

// Destroy removes the node behind ref and stages its removal from the index.
// It returns false if the node was already destroyed.
func (s *Stage) Destroy(ref partition.NodeRef) bool {
	var ok bool
	switch ref.Kind {
	case partition.KindActor:
		ok = s.actors.Remove(ref.Handle)
	case partition.KindGeom:
		ok = s.geoms.Remove(ref.Handle)
	case partition.KindParticleSystem:
		ok = s.particles.Remove(ref.Handle)
	case partition.KindDirectionalLight, partition.KindPointLight, partition.KindSpotLight:
		ok = s.lights.Remove(ref.Handle)
	default:
		return false
	}
	if ok {
		s.writes.StageRemove(ref)
	}
	return ok
}

// Stats are the live node counts of a stage.
type Stats struct {
	Actors, Geoms, ParticleSystems, Lights, Cameras int
}

func (s *Stage) Stats() Stats {
	return Stats{
		Actors:          s.actors.Len(),
		Geoms:           s.geoms.Len(),
		ParticleSystems: s.particles.Len(),
		Lights:          s.lights.Len(),
		Cameras:         s.cameras.Len(),
	}
}

func (s *Stage) String() string {
	return fmt.Sprintf("stage %q (%v)", s.name, s.id)
}

// Particles returns every live particle system, for per-frame updates.
func (s *Stage) Particles() []*ParticleSystem {
	_, ps := s.particles.Snapshot(nil, nil)
	return ps
}
