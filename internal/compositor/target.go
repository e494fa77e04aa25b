package compositor

import (
	"stagerender/internal/batch"
	"stagerender/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

// ClearFlags selects the buffers cleared on a target.
type ClearFlags uint8

const (
	ClearColour ClearFlags = 1 << iota
	ClearDepth
	ClearStencil

	ClearAll = ClearColour | ClearDepth | ClearStencil
)

// Viewport is a region of a target in normalised [0,1] coordinates plus the colour
// used when clearing it.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	Colour        mgl32.Vec4
}

// FullViewport covers the whole target.
func FullViewport(colour mgl32.Vec4) Viewport {
	return Viewport{Width: 1, Height: 1, Colour: colour}
}

// Pixels converts the viewport to pixel coordinates on a target of the given size.
func (v Viewport) Pixels(width, height int) (x, y, w, h int32) {
	return int32(v.X * float32(width)), int32(v.Y * float32(height)),
		int32(v.Width * float32(width)), int32(v.Height * float32(height))
}

// RenderTarget is a surface pipelines draw into.
type RenderTarget interface {
	Size() (width, height int)
	// ClearEveryFrameFlags are cleared the first time the target is used in a frame.
	ClearEveryFrameFlags() ClearFlags
	ClearEveryFrameColour() mgl32.Vec4
}

// Target is a plain RenderTarget, typically the window's default framebuffer.
type Target struct {
	Name        string
	Width       int
	Height      int
	ClearFlags  ClearFlags
	ClearColour mgl32.Vec4
}

// NewTarget returns a target cleared to black every frame.
func NewTarget(name string, width, height int) *Target {
	return &Target{
		Name:        name,
		Width:       width,
		Height:      height,
		ClearFlags:  ClearAll,
		ClearColour: mgl32.Vec4{0, 0, 0, 1},
	}
}

func (t *Target) Size() (int, int)                  { return t.Width, t.Height }
func (t *Target) ClearEveryFrameFlags() ClearFlags  { return t.ClearFlags }
func (t *Target) ClearEveryFrameColour() mgl32.Vec4 { return t.ClearColour }

// Renderer is the GPU backend driven by the compositor.
type Renderer interface {
	PreRender()
	ApplyViewport(target RenderTarget, vp Viewport)
	Clear(target RenderTarget, colour mgl32.Vec4, flags ClearFlags)
	// Visitor returns the visitor that draws a queue for camera within stage.
	Visitor(camera *scene.Camera, stage *scene.Stage) batch.Visitor
}

// NullRenderer draws nothing and counts the calls it receives.
type NullRenderer struct {
	Frames    int
	Clears    int
	Viewports int
	Draws     int
}

func (r *NullRenderer) PreRender()                                 { r.Frames++ }
func (r *NullRenderer) ApplyViewport(RenderTarget, Viewport)       { r.Viewports++ }
func (r *NullRenderer) Clear(RenderTarget, mgl32.Vec4, ClearFlags) { r.Clears++ }

func (r *NullRenderer) Visitor(*scene.Camera, *scene.Stage) batch.Visitor {
	return drawCounter{r}
}

type drawCounter struct {
	r *NullRenderer
}

func (drawCounter) StartTraversal(*batch.Queue, uint64)                         {}
func (drawCounter) ChangeRenderGroup(*batch.GroupKey, *batch.GroupKey)          {}
func (drawCounter) ChangeMaterialPass(*batch.MaterialPass, *batch.MaterialPass) {}
func (drawCounter) ApplyLights([]batch.Light)                                   {}
func (drawCounter) ChangeLight(*batch.Light, *batch.Light)                      {}
func (drawCounter) EndTraversal(*batch.Queue)                                   {}

func (d drawCounter) Visit(*batch.Renderable, *batch.MaterialPass, int) { d.r.Draws++ }
