// Package demo builds and animates the sample scene shared by the stagerender binaries.
package demo

import (
	"context"
	"math"
	"math/rand"
	"stagerender/internal/batch"
	"stagerender/internal/scene"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Materials used by the sample scene.
var (
	Opaque = batch.NewMaterial("opaque", 0)

	Glass = &batch.Material{Name: "glass", Passes: []batch.MaterialPass{{
		Blend:     batch.BlendAlpha,
		DepthTest: true,
	}}}

	// Lit draws an ambient base pass, then adds each light on top.
	Lit = &batch.Material{Name: "lit", Passes: []batch.MaterialPass{
		{DepthTest: true, DepthWrite: true},
		{Blend: batch.BlendAdd, DepthTest: true, Iteration: batch.IterateOncePerLight},
	}}

	Sparks = &batch.Material{Name: "sparks", Passes: []batch.MaterialPass{{
		Blend:     batch.BlendAdd,
		DepthTest: true,
	}}}
)

// Options sizes the sample scene.
type Options struct {
	Actors      int
	PointLights int
	Particles   int
	// Radius of the area actors are scattered over.
	Radius float32
	Seed   int64
}

func DefaultOptions() Options {
	return Options{Actors: 200, PointLights: 8, Particles: 2, Radius: 60, Seed: 1}
}

type orbit struct {
	actor  *scene.Actor
	centre mgl32.Vec3
	radius float32
	speed  float32 // radians per second
	phase  float32
}

// Scene is a populated stage plus the state needed to animate it. Step may run on any
// goroutine; every change reaches the index through staged writes.
type Scene struct {
	Stage     *scene.Stage
	Camera    *scene.Camera
	Sun       *scene.Light
	Lights    []*scene.Light
	Particles []*scene.ParticleSystem

	mu      sync.Mutex
	orbits  []orbit
	elapsed float32
}

// Build fills stage with actors, lights and particle systems and adds a camera looking
// at the middle of it.
func Build(stage *scene.Stage, opts Options) *Scene {
	rng := rand.New(rand.NewSource(opts.Seed))
	s := &Scene{Stage: stage}

	box := scene.NewBox(mgl32.Vec3{1, 1, 1}, Opaque)
	pane := scene.NewBox(mgl32.Vec3{1.5, 1.5, 0.1}, Glass)
	lit := scene.NewBox(mgl32.Vec3{1, 1, 1}, Lit)
	coarse := scene.NewBox(mgl32.Vec3{1, 1, 1}, batch.NewMaterial("coarse", 0))

	for i := 0; i < opts.Actors; i++ {
		centre := mgl32.Vec3{
			(rng.Float32()*2 - 1) * opts.Radius,
			rng.Float32() * 10,
			(rng.Float32()*2 - 1) * opts.Radius,
		}
		var a *scene.Actor
		switch i % 5 {
		case 3:
			a = stage.NewActor(pane, centre)
		case 4:
			a = stage.NewActor(lit, centre)
		default:
			a = stage.NewActor(box, centre)
			a.SetMeshAt(batch.DetailFar, coarse)
		}
		s.orbits = append(s.orbits, orbit{
			actor:  a,
			centre: centre,
			radius: 1 + rng.Float32()*4,
			speed:  0.2 + rng.Float32(),
			phase:  rng.Float32() * 2 * math.Pi,
		})
	}

	s.Sun = stage.NewDirectionalLight(mgl32.Vec3{-0.3, -1, -0.2})
	s.Sun.SetColours(mgl32.Vec4{0.15, 0.15, 0.18, 1}, mgl32.Vec4{0.7, 0.7, 0.65, 1}, mgl32.Vec4{1, 1, 1, 1})
	for i := 0; i < opts.PointLights; i++ {
		pos := mgl32.Vec3{(rng.Float32()*2 - 1) * opts.Radius, 4, (rng.Float32()*2 - 1) * opts.Radius}
		l := stage.NewPointLight(pos, 15+rng.Float32()*10)
		l.SetColours(mgl32.Vec4{}, mgl32.Vec4{rng.Float32(), rng.Float32(), rng.Float32(), 1}, mgl32.Vec4{1, 1, 1, 1})
		l.SetAttenuation(1, 0.09, 0.032)
		s.Lights = append(s.Lights, l)
	}
	for i := 0; i < opts.Particles; i++ {
		pos := mgl32.Vec3{(rng.Float32()*2 - 1) * opts.Radius / 2, 0, (rng.Float32()*2 - 1) * opts.Radius / 2}
		s.Particles = append(s.Particles, stage.NewParticleSystem(scene.DefaultEmitter(), Sparks, pos, opts.Seed+int64(i)))
	}

	s.Camera = stage.NewCamera()
	s.Camera.LookAt(mgl32.Vec3{0, 30, opts.Radius * 1.5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	return s
}

// Step advances the animation by dt seconds: actors follow their orbits and particle
// systems emit and move.
func (s *Scene) Step(dt float32) {
	s.mu.Lock()
	s.elapsed += dt
	t := s.elapsed
	s.mu.Unlock()

	for _, o := range s.orbits {
		a := o.phase + o.speed*t
		o.actor.Move(o.centre.Add(mgl32.Vec3{math32.Cos(a) * o.radius, 0, math32.Sin(a) * o.radius}))
	}
	for _, p := range s.Particles {
		p.Update(dt)
	}
}

// Elapsed returns the animated time in seconds.
func (s *Scene) Elapsed() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// OrbitCamera circles the camera around the origin at the given radius and height.
func (s *Scene) OrbitCamera(t, radius, height float32) {
	a := t * 0.1
	s.Camera.LookAt(mgl32.Vec3{math32.Cos(a) * radius, height, math32.Sin(a) * radius}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
}

// RunLoader steps the scene every interval until ctx is done. It stands in for game
// logic or streaming running beside the render loop.
func RunLoader(ctx context.Context, s *Scene, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Step(float32(interval.Seconds()))
		}
	}
}
