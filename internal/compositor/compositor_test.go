package compositor

import (
	"bytes"
	"fmt"
	"stagerender/internal/batch"
	"stagerender/internal/geom"
	"stagerender/internal/partition"
	"stagerender/internal/profiling"
	"stagerender/internal/scene"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type visit struct {
	node   partition.NodeRef
	level  batch.DetailLevel
	lights []partition.NodeRef
}

// recorder draws nothing and remembers every visit and the stage of every pass.
type recorder struct {
	NullRenderer
	visits []visit
	stages []string
}

func (r *recorder) Visitor(_ *scene.Camera, stage *scene.Stage) batch.Visitor {
	r.stages = append(r.stages, stage.Name())
	return &recordVisitor{r: r}
}

type recordVisitor struct {
	batch.NopVisitor
	r *recorder
}

func (v *recordVisitor) Visit(r *batch.Renderable, _ *batch.MaterialPass, _ int) {
	vi := visit{node: r.Node, level: r.DetailLevel}
	for _, l := range r.ActiveLights() {
		vi.lights = append(vi.lights, l.Ref)
	}
	v.r.visits = append(v.r.visits, vi)
}

type fixture struct {
	world *scene.World
	stage *scene.Stage
	cam   *scene.Camera
	box   *scene.Mesh
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()
	w := scene.NewWorld()
	return addStage(t, w, name)
}

func addStage(t *testing.T, w *scene.World, name string) *fixture {
	t.Helper()
	s, err := w.NewStage(name, partition.VariantFrustum, partition.Options{})
	require.NoError(t, err)
	cam := s.NewCamera()
	cam.SetPerspective(60, 1, 0.1, 1000)
	cam.LookAt(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	return &fixture{
		world: w,
		stage: s,
		cam:   cam,
		box:   scene.NewBox(mgl32.Vec3{1, 1, 1}, batch.NewMaterial("box", 1)),
	}
}

func (f *fixture) pipeline(t *testing.T, c *Compositor, name string) *Pipeline {
	t.Helper()
	p, err := c.CreatePipeline(name, f.stage, f.cam)
	require.NoError(t, err)
	p.Activate()
	return p
}

func pointLight(x float32, r float32) batch.Light {
	pos := mgl32.Vec3{x, 0, 0}
	return batch.Light{
		Ref:      partition.NodeRef{Kind: partition.KindPointLight},
		Position: pos,
		Range:    r,
		Bounds:   geom.AABBFromCenter(pos, mgl32.Vec3{r, r, r}),
	}
}

func directional() batch.Light {
	return batch.Light{
		Ref:    partition.NodeRef{Kind: partition.KindDirectionalLight},
		Bounds: geom.InfiniteAABB(),
	}
}

func TestDetailLevelAt(t *testing.T) {
	f := newFixture(t, "lod")
	c := New(f.world, &NullRenderer{}, NewTarget("screen", 640, 480))
	p := f.pipeline(t, c, "main")

	assert.Equal(t, DefaultDetailDistances, p.DetailLevelDistances())
	assert.Equal(t, batch.DetailFarthest, p.DetailLevelAt(250))

	p.SetDetailLevelDistances(10, 20, 30, 40)
	tests := []struct {
		d    float32
		want batch.DetailLevel
	}{
		{1, batch.DetailNearest},
		{10, batch.DetailNear},
		{25, batch.DetailMid},
		{35, batch.DetailFar},
		{50, batch.DetailFarthest},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.d), func(t *testing.T) {
			assert.Equal(t, tt.want, p.DetailLevelAt(tt.d))
		})
	}
}

func TestSelectLightsOrdering(t *testing.T) {
	node := geom.AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	far, near, mid := pointLight(3, 10), pointLight(1, 10), pointLight(2, 10)
	outOfRange := pointLight(50, 2)
	sun := directional()

	got, dropped := SelectLights(nil, []batch.Light{far, outOfRange, near, sun, mid}, node, batch.MaxLightsPerRenderable)
	require.Len(t, got, 4)
	assert.Equal(t, 0, dropped)
	assert.True(t, got[0].Directional())
	assert.Equal(t, []float32{1, 2, 3}, []float32{got[1].Position[0], got[2].Position[0], got[3].Position[0]})
}

func TestSelectLightsTruncates(t *testing.T) {
	node := geom.AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	candidates := []batch.Light{directional()}
	for _, x := range []float32{6, 5, 4, 3, 2, 1} {
		candidates = append(candidates, pointLight(x, 10))
	}

	got, dropped := SelectLights(nil, candidates, node, 4)
	require.Len(t, got, 4)
	assert.Equal(t, 3, dropped)
	assert.True(t, got[0].Directional())
	for i, want := range []float32{1, 2, 3} {
		assert.Equal(t, want, got[i+1].Position[0])
	}

	got, dropped = SelectLights(nil, []batch.Light{directional(), directional(), pointLight(1, 10)}, node, 1)
	require.Len(t, got, 1)
	assert.True(t, got[0].Directional())
	assert.Equal(t, 2, dropped)

	got, dropped = SelectLights(nil, candidates, node, 0)
	assert.Empty(t, got)
	assert.Equal(t, 7, dropped)
}

func TestCreatePipelineErrors(t *testing.T) {
	f := newFixture(t, "main")
	other := addStage(t, f.world, "other")
	c := New(f.world, &NullRenderer{}, NewTarget("screen", 640, 480))

	_, err := c.CreatePipeline("", f.stage, f.cam)
	assert.ErrorIs(t, err, ErrUnnamedPipeline)

	_, err = c.CreatePipeline("p", nil, f.cam)
	assert.ErrorIs(t, err, ErrIncompletePipeline)

	_, err = c.CreatePipeline("p", f.stage, other.cam)
	assert.ErrorIs(t, err, ErrIncompletePipeline)

	p, err := c.CreatePipeline("p", f.stage, f.cam)
	require.NoError(t, err)
	assert.False(t, p.IsActive(), "pipelines start inactive")
}

func TestPipelineAutoDeactivates(t *testing.T) {
	t.Run("camera destroyed", func(t *testing.T) {
		f := newFixture(t, "main")
		f.stage.NewActor(f.box, mgl32.Vec3{})
		r := &recorder{}
		c := New(f.world, r, NewTarget("screen", 640, 480))
		p := f.pipeline(t, c, "main")

		require.True(t, f.stage.DestroyCamera(f.cam.ID()))
		c.Run()
		assert.False(t, p.IsActive())
		assert.Empty(t, r.visits)
		assert.Equal(t, 0, c.Stats().PipelinesRun)
	})
	t.Run("stage destroyed", func(t *testing.T) {
		f := newFixture(t, "main")
		f.stage.NewActor(f.box, mgl32.Vec3{})
		r := &recorder{}
		c := New(f.world, r, NewTarget("screen", 640, 480))
		p := f.pipeline(t, c, "main")

		c.Run()
		require.Len(t, r.visits, 1)

		require.True(t, f.world.DestroyStage(f.stage.ID()))
		c.Run()
		assert.False(t, p.IsActive())
		assert.Len(t, r.visits, 1)
	})
}

func TestSetCameraIgnoresNil(t *testing.T) {
	f := newFixture(t, "main")
	f.stage.NewActor(f.box, mgl32.Vec3{})
	r := &recorder{}
	c := New(f.world, r, NewTarget("screen", 640, 480))
	p := f.pipeline(t, c, "main")

	assert.NotPanics(t, func() { p.SetCamera(nil) })
	c.Run()
	assert.True(t, p.IsActive())
	assert.Len(t, r.visits, 1)
}

func TestPipelinesRunInPriorityOrder(t *testing.T) {
	a := newFixture(t, "a")
	b := addStage(t, a.world, "b")
	r := &recorder{}
	c := New(a.world, r, NewTarget("screen", 640, 480))

	pa := a.pipeline(t, c, "a")
	pb := b.pipeline(t, c, "b")
	pa.SetPriority(10)
	pb.SetPriority(-5)

	c.Run()
	assert.Equal(t, []string{"b", "a"}, r.stages)

	r.stages = nil
	pb.SetPriority(20)
	c.Run()
	assert.Equal(t, []string{"a", "b"}, r.stages)

	r.stages = nil
	pa.Deactivate()
	c.Run()
	assert.Equal(t, []string{"b"}, r.stages)
}

func TestSharedTargetClearedOncePerFrame(t *testing.T) {
	a := newFixture(t, "a")
	b := addStage(t, a.world, "b")
	r := &NullRenderer{}
	c := New(a.world, r, NewTarget("screen", 640, 480))
	a.pipeline(t, c, "a")
	pb := b.pipeline(t, c, "b")

	c.Run()
	assert.Equal(t, 1, r.Clears)
	assert.Equal(t, 3, r.Viewports, "one full-target viewport for the clear plus one per pipeline")

	c.Run()
	assert.Equal(t, 2, r.Clears)

	pb.SetClearFlags(ClearDepth)
	c.Run()
	assert.Equal(t, 4, r.Clears)

	second := NewTarget("offscreen", 128, 128)
	pb.SetTarget(second)
	c.Run()
	assert.Equal(t, 7, r.Clears, "each target cleared once, plus the pipeline's own clear")
}

func TestRunEndToEnd(t *testing.T) {
	f := newFixture(t, "main")
	actor := f.stage.NewActor(f.box, mgl32.Vec3{})
	r := &recorder{}
	c := New(f.world, r, NewTarget("screen", 640, 480))
	f.pipeline(t, c, "main")

	c.Run()
	require.Len(t, r.visits, 1)
	assert.Equal(t, actor.Ref(), r.visits[0].node)
	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.FrameID)
	assert.Equal(t, 1, stats.PipelinesRun)
	assert.Equal(t, 1, stats.NodesVisible)
	assert.Equal(t, 1, stats.RenderablesQueued)
	assert.Equal(t, 1, stats.WritesApplied)

	actor.Move(mgl32.Vec3{1000, 0, 0})
	c.Run()
	assert.Len(t, r.visits, 1, "moved actor must not be drawn")
	assert.Equal(t, 0, c.Stats().NodesVisible)

	actor.Move(mgl32.Vec3{})
	actor.SetVisible(false)
	c.Run()
	assert.Len(t, r.visits, 1, "hidden actor must not be drawn")
}

func TestRunAssignsLightsAndDetail(t *testing.T) {
	f := newFixture(t, "main")
	actor := f.stage.NewActor(f.box, mgl32.Vec3{})
	farMesh := scene.NewBox(mgl32.Vec3{1, 1, 1}, batch.NewMaterial("far", 2))
	actor.SetMeshAt(batch.DetailFar, farMesh)

	sun := f.stage.NewDirectionalLight(mgl32.Vec3{0, -1, 0})
	far := f.stage.NewPointLight(mgl32.Vec3{3, 0, 0}, 10)
	near := f.stage.NewPointLight(mgl32.Vec3{1.5, 0, 0}, 10)
	f.stage.NewPointLight(mgl32.Vec3{0, 40, 0}, 1)

	r := &recorder{}
	c := New(f.world, r, NewTarget("screen", 640, 480))
	f.pipeline(t, c, "main")

	c.Run()
	require.Len(t, r.visits, 1)
	assert.Equal(t, batch.DetailNearest, r.visits[0].level)
	assert.Equal(t, []partition.NodeRef{sun.Ref(), near.Ref(), far.Ref()}, r.visits[0].lights)

	f.cam.LookAt(mgl32.Vec3{0, 0, 160}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	c.Run()
	require.Len(t, r.visits, 2)
	assert.Equal(t, batch.DetailFar, r.visits[1].level)
}

func TestFindHasDestroy(t *testing.T) {
	f := newFixture(t, "main")
	c := New(f.world, &NullRenderer{}, NewTarget("screen", 640, 480))
	main := f.pipeline(t, c, "main")
	overlay := f.pipeline(t, c, "overlay")

	got, ok := c.FindPipeline("overlay")
	require.True(t, ok)
	assert.Same(t, overlay, got)
	assert.True(t, c.HasPipeline("main"))

	overlay.Destroy()
	assert.False(t, overlay.IsActive())
	assert.False(t, c.HasPipeline("overlay"))
	assert.Len(t, c.Pipelines(), 1)
	overlay.Activate()
	assert.False(t, overlay.IsActive(), "destroyed pipelines cannot be reactivated")

	c.Run()
	_, ok = c.Pipeline(overlay.ID())
	assert.False(t, ok)
	got, ok = c.Pipeline(main.ID())
	require.True(t, ok)
	assert.Same(t, main, got)

	c.DestroyAll()
	c.Run()
	assert.Empty(t, c.Pipelines())
	assert.False(t, c.HasPipeline("main"))
}

func TestDumpRenderTrace(t *testing.T) {
	f := newFixture(t, "main")
	f.stage.NewActor(f.box, mgl32.Vec3{})
	f.stage.NewActor(f.box, mgl32.Vec3{2, 0, 0})
	c := New(f.world, &NullRenderer{}, NewTarget("screen", 640, 480))
	f.pipeline(t, c, "main")

	var buf bytes.Buffer
	c.DumpRenderTrace(&buf)
	c.Run()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "frame,renderable"))
	assert.True(t, strings.HasPrefix(lines[1], "1,"))

	c.Run()
	assert.Len(t, strings.Split(strings.TrimSpace(buf.String()), "\n"), 3, "trace covers one frame only")
}

func buildLitScene(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, "crowd")
	f.cam.LookAt(mgl32.Vec3{0, 0, 60}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	f.stage.NewDirectionalLight(mgl32.Vec3{0, -1, 0})
	for x := -20; x <= 20; x += 4 {
		f.stage.NewPointLight(mgl32.Vec3{float32(x), 0, 0}, 6)
	}
	for i := 0; i < 400; i++ {
		x := float32(i%20)*2 - 20
		y := float32(i/20)*2 - 20
		f.stage.NewActor(f.box, mgl32.Vec3{x, y, float32(i % 7)})
	}
	return f
}

func TestPrepWorkersMatchSerial(t *testing.T) {
	serialScene := buildLitScene(t)
	serial := &recorder{}
	sc := New(serialScene.world, serial, NewTarget("screen", 640, 480))
	serialScene.pipeline(t, sc, "main")
	sc.Run()

	pooledScene := buildLitScene(t)
	pooled := &recorder{}
	pc := New(pooledScene.world, pooled, NewTarget("screen", 640, 480), WithPrepWorkers(4), WithProfiler(profiling.New()))
	defer pc.Close()
	pooledScene.pipeline(t, pc, "main")
	pc.Run()

	require.NotEmpty(t, serial.visits)
	assert.Equal(t, serial.visits, pooled.visits)
	assert.Equal(t, sc.Stats(), pc.Stats())
	assert.Greater(t, pc.Profile().Total(), time.Duration(0))
}

func TestWithMaxLights(t *testing.T) {
	f := newFixture(t, "main")
	f.stage.NewActor(f.box, mgl32.Vec3{})
	f.stage.NewPointLight(mgl32.Vec3{1, 0, 0}, 5)
	f.stage.NewPointLight(mgl32.Vec3{2, 0, 0}, 5)
	r := &recorder{}
	c := New(f.world, r, NewTarget("screen", 640, 480), WithMaxLights(1))
	f.pipeline(t, c, "main")

	c.Run()
	require.Len(t, r.visits, 1)
	assert.Len(t, r.visits[0].lights, 1)
	assert.Equal(t, 1, c.Stats().LightsDropped)
}
