package compositor

import (
	"fmt"
	"stagerender/internal/batch"
	"stagerender/internal/handle"
	"stagerender/internal/scene"
	"sync"
)

// DefaultDetailDistances are the detail level thresholds of a new pipeline.
var DefaultDetailDistances = [batch.DetailLevelCount]float32{25, 50, 100, 200, 400}

// Pipeline renders one stage through one camera into a viewport of a target.
// Configuration calls take effect on the next Run.
type Pipeline struct {
	c  *Compositor
	id handle.Handle

	mu         sync.Mutex
	name       string
	stage      handle.Handle
	camera     handle.Handle
	viewport   Viewport
	target     RenderTarget
	priority   int32
	clearFlags ClearFlags
	detail     [batch.DetailLevelCount]float32
	active     bool
	destroyed  bool

	queue *batch.Queue
}

// pipelineState is the copy of a pipeline's configuration used during one pass.
type pipelineState struct {
	name       string
	stage      handle.Handle
	camera     handle.Handle
	viewport   Viewport
	target     RenderTarget
	clearFlags ClearFlags
	detail     [batch.DetailLevelCount]float32
	active     bool
}

func (p *Pipeline) state() pipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pipelineState{
		name:       p.name,
		stage:      p.stage,
		camera:     p.camera,
		viewport:   p.viewport,
		target:     p.target,
		clearFlags: p.clearFlags,
		detail:     p.detail,
		active:     p.active && !p.destroyed,
	}
}

// ID returns the pipeline's handle within its compositor.
func (p *Pipeline) ID() handle.Handle { return p.id }

func (p *Pipeline) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *Pipeline) SetName(name string) {
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

func (p *Pipeline) Priority() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.priority
}

// SetPriority moves the pipeline in the compositor's run order. Lower runs first.
func (p *Pipeline) SetPriority(priority int32) {
	p.mu.Lock()
	changed := p.priority != priority
	p.priority = priority
	p.mu.Unlock()
	if changed {
		p.c.sortPipelines()
	}
}

// SetDetailLevelDistances sets the thresholds between the five detail levels. The last
// threshold is kept for reference only; anything beyond far is drawn at the farthest level.
func (p *Pipeline) SetDetailLevelDistances(nearest, near, mid, far float32) {
	p.mu.Lock()
	p.detail[0], p.detail[1], p.detail[2], p.detail[3] = nearest, near, mid, far
	p.mu.Unlock()
}

// DetailLevelDistances returns the current thresholds.
func (p *Pipeline) DetailLevelDistances() [batch.DetailLevelCount]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detail
}

// DetailLevelAt returns the detail level for an object at distance d from the camera.
func (p *Pipeline) DetailLevelAt(d float32) batch.DetailLevel {
	return detailLevel(p.DetailLevelDistances(), d)
}

func detailLevel(t [batch.DetailLevelCount]float32, d float32) batch.DetailLevel {
	switch {
	case d < t[0]:
		return batch.DetailNearest
	case d < t[1]:
		return batch.DetailNear
	case d < t[2]:
		return batch.DetailMid
	case d < t[3]:
		return batch.DetailFar
	}
	return batch.DetailFarthest
}

// SetClearFlags sets the buffers cleared inside the viewport before drawing.
func (p *Pipeline) SetClearFlags(flags ClearFlags) {
	p.mu.Lock()
	p.clearFlags = flags
	p.mu.Unlock()
}

func (p *Pipeline) SetViewport(vp Viewport) {
	p.mu.Lock()
	p.viewport = vp
	p.mu.Unlock()
}

func (p *Pipeline) Viewport() Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

func (p *Pipeline) SetTarget(t RenderTarget) {
	p.mu.Lock()
	p.target = t
	p.mu.Unlock()
}

// SetCamera points the pipeline at another camera of its stage. A nil camera is ignored.
func (p *Pipeline) SetCamera(cam *scene.Camera) {
	if cam == nil {
		return
	}
	p.mu.Lock()
	p.camera = cam.ID()
	p.mu.Unlock()
}

func (p *Pipeline) Activate() {
	p.mu.Lock()
	p.active = !p.destroyed
	p.mu.Unlock()
}

func (p *Pipeline) Deactivate() {
	p.mu.Lock()
	p.active = false
	p.mu.Unlock()
}

func (p *Pipeline) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active && !p.destroyed
}

// Destroy deactivates the pipeline and removes it at the start of the next Run.
func (p *Pipeline) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.destroyed = true
	p.mu.Unlock()
	p.c.enqueueDestroy(p)
}

// resolve looks up the stage and camera of the pipeline.
func (c *Compositor) resolve(st pipelineState) (*scene.Stage, *scene.Camera, error) {
	stage, ok := c.world.Stage(st.stage)
	if !ok {
		return nil, nil, fmt.Errorf("pipeline %q: stage %v: %w", st.name, st.stage, ErrIncompletePipeline)
	}
	cam, ok := stage.Camera(st.camera)
	if !ok {
		return nil, nil, fmt.Errorf("pipeline %q: camera %v: %w", st.name, st.camera, ErrIncompletePipeline)
	}
	if st.target == nil {
		return nil, nil, fmt.Errorf("pipeline %q: no target: %w", st.name, ErrIncompletePipeline)
	}
	return stage, cam, nil
}
