package demo

import (
	"context"
	"stagerender/internal/compositor"
	"stagerender/internal/partition"
	"stagerender/internal/scene"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildScene(t *testing.T, variant string) (*scene.World, *Scene) {
	t.Helper()
	w := scene.NewWorld()
	stage, err := w.NewStage("demo", variant, partition.Options{})
	require.NoError(t, err)
	return w, Build(stage, Options{Actors: 50, PointLights: 4, Particles: 1, Radius: 30, Seed: 7})
}

func TestBuild(t *testing.T) {
	_, s := buildScene(t, partition.VariantHash)
	stats := s.Stage.Stats()
	assert.Equal(t, 50, stats.Actors)
	assert.Equal(t, 5, stats.Lights)
	assert.Equal(t, 1, stats.ParticleSystems)
	assert.Equal(t, 1, stats.Cameras)
	assert.Equal(t, 50+5+1+30, s.Stage.PendingWrites(), "creation plus one bounds update per far mesh")
}

func TestStepStagesMoves(t *testing.T) {
	_, s := buildScene(t, partition.VariantFrustum)
	s.Stage.ApplyStagedWrites()

	s.Step(0.5)
	assert.InDelta(t, 0.5, s.Elapsed(), 1e-6)
	assert.GreaterOrEqual(t, s.Stage.PendingWrites(), 50)
	assert.Positive(t, s.Particles[0].Count())
}

func TestRenderWhileLoading(t *testing.T) {
	w, s := buildScene(t, partition.VariantHash)
	r := &compositor.NullRenderer{}
	c := compositor.New(w, r, compositor.NewTarget("screen", 640, 480), compositor.WithPrepWorkers(2))
	defer c.Close()
	p, err := c.CreatePipeline("main", s.Stage, s.Camera)
	require.NoError(t, err)
	p.Activate()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		RunLoader(ctx, s, time.Millisecond)
	}()

	for i := 0; i < 30; i++ {
		s.OrbitCamera(float32(i), 45, 20)
		c.Run()
	}
	cancel()
	wg.Wait()

	assert.Equal(t, uint64(30), c.FrameID())
	assert.Positive(t, r.Draws)
	assert.Equal(t, 30, r.Frames)
}
