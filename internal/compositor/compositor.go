package compositor

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"stagerender/internal/batch"
	"stagerender/internal/handle"
	"stagerender/internal/partition"
	"stagerender/internal/profiling"
	"stagerender/internal/scene"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrIncompletePipeline is returned when a pipeline has no live stage, camera or target.
	ErrIncompletePipeline = errors.New("incomplete pipeline")
	// ErrUnnamedPipeline is returned by CreatePipeline for an empty name.
	ErrUnnamedPipeline = errors.New("pipeline name is empty")
)

// prepChunk is the minimum number of nodes handed to one prep worker.
const prepChunk = 64

// Option configures a Compositor.
type Option func(*Compositor)

// WithMaxLights sets how many lights each renderable receives, at most MaxLightsPerRenderable.
func WithMaxLights(n int) Option {
	return func(c *Compositor) {
		c.SetMaxLights(n)
	}
}

// WithPrepWorkers computes detail levels and light sets on n workers. Queue insertion
// always stays on the goroutine calling Run.
func WithPrepWorkers(n int) Option {
	return func(c *Compositor) {
		if n < 1 {
			n = 1
		}
		c.prepWorkers = n
	}
}

// WithProfiler records section timings of every Run.
func WithProfiler(p *profiling.Profiler) Option {
	return func(c *Compositor) {
		c.profiler = p
	}
}

// FrameStats describes the most recent Run.
type FrameStats struct {
	FrameID            uint64
	PipelinesRun       int
	NodesVisible       int
	LightsVisible      int
	RenderablesQueued  int
	RenderablesDropped int
	LightsDropped      int
	WritesApplied      int
}

// prepared is the per-node result of LOD and light selection.
type prepared struct {
	src    scene.RenderableSource
	level  batch.DetailLevel
	lights [batch.MaxLightsPerRenderable]batch.Light
	count  int
	// dropped counts lights that matched the node but did not fit
	dropped int
}

// Compositor runs the pipelines of a world in priority order once per frame.
// Run must be called from a single goroutine; pipeline configuration may happen anywhere.
type Compositor struct {
	world    *scene.World
	renderer Renderer
	target   RenderTarget

	mu        sync.Mutex
	pipelines []*Pipeline
	handles   *handle.Arena[*Pipeline]
	destroyed []*Pipeline
	trace     io.Writer

	maxLights   int
	prepWorkers int
	pool        worker.DynamicWorkerPool
	profiler    *profiling.Profiler

	frameID uint64
	cleared map[RenderTarget]struct{}
	visible partition.Visible
	lights  []batch.Light
	prep    []prepared
	scratch []batch.Renderable
	stats   FrameStats

	overflowOnce sync.Once
}

// New creates a compositor drawing through renderer. Pipelines draw into target unless
// given another one. RenderTarget implementations must be comparable.
func New(world *scene.World, renderer Renderer, target RenderTarget, opts ...Option) *Compositor {
	c := &Compositor{
		world:       world,
		renderer:    renderer,
		target:      target,
		handles:     handle.NewArena[*Pipeline](4),
		maxLights:   batch.MaxLightsPerRenderable,
		prepWorkers: 1,
		cleared:     make(map[RenderTarget]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.prepWorkers > 1 {
		c.pool = worker.NewDynamicWorkerPool(c.prepWorkers, 256, time.Second)
	}
	return c
}

// Close stops the prep workers.
func (c *Compositor) Close() {
	if c.pool != nil {
		c.pool.Stop()
		c.pool = nil
	}
}

// SetMaxLights changes the per-renderable light budget from the next Run. Call it from
// the goroutine that calls Run.
func (c *Compositor) SetMaxLights(n int) {
	if n < 0 {
		n = 0
	}
	if n > batch.MaxLightsPerRenderable {
		n = batch.MaxLightsPerRenderable
	}
	c.maxLights = n
}

// Profile returns the profiler given with WithProfiler, or nil.
func (c *Compositor) Profile() *profiling.Profiler { return c.profiler }

// CreatePipeline adds an inactive pipeline rendering stage through cam, which must
// belong to stage.
func (c *Compositor) CreatePipeline(name string, stage *scene.Stage, cam *scene.Camera) (*Pipeline, error) {
	if name == "" {
		return nil, fmt.Errorf("create pipeline: %w", ErrUnnamedPipeline)
	}
	if stage == nil || cam == nil {
		return nil, fmt.Errorf("create pipeline %q: nil stage or camera: %w", name, ErrIncompletePipeline)
	}
	if s, ok := c.world.Stage(stage.ID()); !ok || s != stage {
		return nil, fmt.Errorf("create pipeline %q: %v is not in this world: %w", name, stage, ErrIncompletePipeline)
	}
	if got, ok := stage.Camera(cam.ID()); !ok || got != cam {
		return nil, fmt.Errorf("create pipeline %q: camera %v is not in %v: %w", name, cam.ID(), stage, ErrIncompletePipeline)
	}

	p := &Pipeline{
		c:        c,
		name:     name,
		stage:    stage.ID(),
		camera:   cam.ID(),
		viewport: FullViewport(c.clearColour()),
		target:   c.target,
		detail:   DefaultDetailDistances,
		queue:    batch.NewQueue(),
	}
	p.id = c.handles.Insert(p)

	c.mu.Lock()
	c.pipelines = append(c.pipelines, p)
	c.mu.Unlock()
	c.sortPipelines()
	return p, nil
}

func (c *Compositor) clearColour() (colour mgl32.Vec4) {
	if c.target != nil {
		colour = c.target.ClearEveryFrameColour()
	}
	return colour
}

// Pipeline returns the pipeline for h.
func (c *Compositor) Pipeline(h handle.Handle) (*Pipeline, bool) {
	p, ok := c.handles.Get(h)
	if !ok || p.isDestroyed() {
		return nil, false
	}
	return p, true
}

// FindPipeline returns the first pipeline, in run order, with the given name.
func (c *Compositor) FindPipeline(name string) (*Pipeline, bool) {
	for _, p := range c.Pipelines() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// HasPipeline reports whether a live pipeline has the given name.
func (c *Compositor) HasPipeline(name string) bool {
	_, ok := c.FindPipeline(name)
	return ok
}

// Pipelines returns the live pipelines in run order.
func (c *Compositor) Pipelines() []*Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Pipeline, 0, len(c.pipelines))
	for _, p := range c.pipelines {
		if !p.isDestroyed() {
			out = append(out, p)
		}
	}
	return out
}

// DestroyAll destroys every pipeline.
func (c *Compositor) DestroyAll() {
	for _, p := range c.Pipelines() {
		p.Destroy()
	}
}

func (p *Pipeline) isDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

func (c *Compositor) enqueueDestroy(p *Pipeline) {
	c.mu.Lock()
	c.destroyed = append(c.destroyed, p)
	c.mu.Unlock()
}

func (c *Compositor) sortPipelines() {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.SliceStable(c.pipelines, func(i, j int) bool {
		return c.pipelines[i].Priority() < c.pipelines[j].Priority()
	})
}

// cleanDestroyed removes the pipelines destroyed since the last Run.
func (c *Compositor) cleanDestroyed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.destroyed) == 0 {
		return
	}
	for _, d := range c.destroyed {
		for i, p := range c.pipelines {
			if p == d {
				c.pipelines = append(c.pipelines[:i], c.pipelines[i+1:]...)
				break
			}
		}
		c.handles.Remove(d.id)
	}
	clear(c.destroyed)
	c.destroyed = c.destroyed[:0]
}

// DumpRenderTrace makes the next Run write one CSV row per draw to w.
func (c *Compositor) DumpRenderTrace(w io.Writer) {
	c.mu.Lock()
	c.trace = w
	c.mu.Unlock()
}

// Stats returns the counters of the last Run.
func (c *Compositor) Stats() FrameStats { return c.stats }

// FrameID returns the id of the last Run, starting at 1.
func (c *Compositor) FrameID() uint64 { return c.frameID }

// Run renders one frame: every active pipeline in ascending priority order.
func (c *Compositor) Run() {
	defer c.profiler.Track("compositor.run")()

	c.cleanDestroyed()
	clear(c.cleared)
	c.frameID++
	c.stats = FrameStats{FrameID: c.frameID}

	c.mu.Lock()
	pipelines := append([]*Pipeline(nil), c.pipelines...)
	traceOut := c.trace
	c.trace = nil
	c.mu.Unlock()

	var trace *batch.TraceWriter
	if traceOut != nil {
		trace = batch.NewTraceWriter(traceOut)
	}

	c.renderer.PreRender()
	for _, p := range pipelines {
		c.runPipeline(p, trace)
	}

	if trace != nil {
		if err := trace.Flush(); err != nil {
			log.Printf("compositor: render trace for frame %d: %v", c.frameID, err)
		}
	}
}

func (c *Compositor) runPipeline(p *Pipeline, trace *batch.TraceWriter) {
	st := p.state()
	if !st.active {
		return
	}
	stage, cam, err := c.resolve(st)
	if err != nil {
		log.Printf("compositor: deactivating: %v", err)
		p.Deactivate()
		return
	}
	c.stats.PipelinesRun++

	if _, done := c.cleared[st.target]; !done {
		if flags := st.target.ClearEveryFrameFlags(); flags != 0 {
			c.renderer.ApplyViewport(st.target, FullViewport(st.target.ClearEveryFrameColour()))
			c.renderer.Clear(st.target, st.target.ClearEveryFrameColour(), flags)
		}
		c.cleared[st.target] = struct{}{}
	}

	c.renderer.ApplyViewport(st.target, st.viewport)
	if st.clearFlags != 0 {
		c.renderer.Clear(st.target, st.viewport.Colour, st.clearFlags)
	}

	stopApply := c.profiler.Track("compositor.apply")
	c.stats.WritesApplied += stage.ApplyStagedWrites()
	stopApply()

	stopCull := c.profiler.Track("compositor.cull")
	frustum := cam.Frustum()
	camPos := cam.AbsolutePosition()
	c.visible.Reset()
	stage.QueryVisible(&frustum, &c.visible)
	c.stats.NodesVisible += len(c.visible.Geometry)
	c.snapshotLights(stage)
	c.stats.LightsVisible += len(c.lights)
	stopCull()

	stopPrep := c.profiler.Track("compositor.prep")
	c.prepare(stage, camPos, st.detail)
	stopPrep()

	stopQueue := c.profiler.Track("compositor.queue")
	q := p.queue
	q.Reset(camPos, frustum.Near())
	for i := range c.prep {
		pr := &c.prep[i]
		if pr.src == nil {
			continue
		}
		c.stats.LightsDropped += pr.dropped
		if pr.dropped > 0 {
			c.overflowOnce.Do(func() {
				log.Printf("compositor: %v matched more than %d lights, extra lights dropped", pr.src.Ref(), c.maxLights)
			})
		}
		c.scratch = pr.src.AppendRenderables(c.scratch[:0], pr.level)
		for j := range c.scratch {
			r := c.scratch[j]
			r.SetLights(pr.lights[:pr.count])
			q.Insert(r)
		}
	}
	clear(c.scratch)
	c.stats.RenderablesQueued += q.Len()
	c.stats.RenderablesDropped += q.Dropped()
	stopQueue()

	stopDraw := c.profiler.Track("compositor.traverse")
	var v batch.Visitor = c.renderer.Visitor(cam, stage)
	if trace != nil {
		v = batch.Tee(v, trace)
	}
	q.Traverse(v, c.frameID)
	q.Clear()
	stopDraw()
}

// snapshotLights copies the visible lights, directional lights first, each group by handle.
func (c *Compositor) snapshotLights(stage *scene.Stage) {
	clear(c.lights)
	c.lights = c.lights[:0]
	for _, ref := range c.visible.Lights {
		l, ok := stage.Light(ref.Handle)
		if !ok || l.Kind() != ref.Kind || !l.Visible() {
			continue
		}
		c.lights = append(c.lights, l.Snapshot())
	}
	sort.Slice(c.lights, func(i, j int) bool {
		a, b := &c.lights[i], &c.lights[j]
		if a.Directional() != b.Directional() {
			return a.Directional()
		}
		return a.Ref.Less(b.Ref)
	})
}

// prepare fills c.prep with one entry per visible geometry node.
func (c *Compositor) prepare(stage *scene.Stage, camPos mgl32.Vec3, detail [batch.DetailLevelCount]float32) {
	n := len(c.visible.Geometry)
	if cap(c.prep) < n {
		c.prep = make([]prepared, n)
	}
	c.prep = c.prep[:n]

	work := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			c.prepareNode(stage, c.visible.Geometry[i], &c.prep[i], camPos, detail)
		}
	}

	if c.pool == nil || n <= prepChunk {
		work(0, n)
		return
	}

	chunk := (n + c.prepWorkers - 1) / c.prepWorkers
	if chunk < prepChunk {
		chunk = prepChunk
	}
	var wg sync.WaitGroup
	for id, lo := 0, 0; lo < n; id, lo = id+1, lo+chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		c.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				work(lo, hi)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (c *Compositor) prepareNode(stage *scene.Stage, ref partition.NodeRef, out *prepared, camPos mgl32.Vec3, detail [batch.DetailLevelCount]float32) {
	*out = prepared{}
	src, ok := stage.Renderable(ref)
	if !ok || !src.Visible() {
		return
	}
	bounds, ok := stage.Index().Bounds(ref)
	if !ok {
		return
	}
	out.src = src
	out.level = detailLevel(detail, bounds.DistanceTo(camPos))
	lights, dropped := SelectLights(out.lights[:0], c.lights, bounds, c.maxLights)
	out.count = len(lights)
	out.dropped = dropped
}
