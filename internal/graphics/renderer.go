package graphics

import (
	"fmt"
	"stagerender/internal/batch"
	"stagerender/internal/compositor"
	"stagerender/internal/scene"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Renderer draws compositor pipelines with OpenGL 4.1. All methods must be called on
// the goroutine that owns the GL context.
type Renderer struct {
	lib     *Library
	meshes  *meshCache
	overlay *Overlay

	// current GL state, so the visitor only issues changes
	program    uint32
	textures   [batch.MaxTextureUnits]uint32
	blend      batch.BlendType
	depthTest  bool
	depthWrite bool
	wireframe  bool

	draws int
}

var _ compositor.Renderer = (*Renderer)(nil)

// NewRenderer initialises GL and compiles the built-in shader.
func NewRenderer() (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}
	lib, err := NewLibrary()
	if err != nil {
		return nil, err
	}
	overlay, err := NewOverlay()
	if err != nil {
		lib.Delete()
		return nil, err
	}

	// Configure OpenGL
	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)
	gl.Enable(gl.SCISSOR_TEST)

	r := &Renderer{
		lib:        lib,
		meshes:     newMeshCache(),
		overlay:    overlay,
		depthTest:  true,
		depthWrite: true,
	}
	// Uploading the glyph atlas left it bound
	r.textures[0] = overlay.texture
	return r, nil
}

// Library returns the shader and texture registry used by materials.
func (r *Renderer) Library() *Library { return r.lib }

// SetWireframe toggles line rendering.
func (r *Renderer) SetWireframe(on bool) { r.wireframe = on }

// Draws returns the draw calls issued since the last PreRender.
func (r *Renderer) Draws() int { return r.draws }

func (r *Renderer) PreRender() {
	r.draws = 0
	r.meshes.nextFrame()
	if r.wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

func (r *Renderer) ApplyViewport(target compositor.RenderTarget, vp compositor.Viewport) {
	w, h := target.Size()
	x, y, vw, vh := vp.Pixels(w, h)
	gl.Viewport(x, y, vw, vh)
	gl.Scissor(x, y, vw, vh)
}

func (r *Renderer) Clear(_ compositor.RenderTarget, colour mgl32.Vec4, flags compositor.ClearFlags) {
	mask := clearMask(flags)
	if mask == 0 {
		return
	}
	if mask&gl.DEPTH_BUFFER_BIT != 0 && !r.depthWrite {
		// glClear honours the depth mask
		gl.DepthMask(true)
		r.depthWrite = true
	}
	gl.ClearColor(colour[0], colour[1], colour[2], colour[3])
	gl.Clear(mask)
}

func (r *Renderer) Visitor(cam *scene.Camera, _ *scene.Stage) batch.Visitor {
	return &visitor{
		r:      r,
		view:   cam.GetViewMatrix(),
		proj:   cam.GetProjectionMatrix(),
		camPos: cam.AbsolutePosition(),
	}
}

// DrawOverlay writes lines of text over everything drawn this frame.
func (r *Renderer) DrawOverlay(lines []string, width, height int) {
	r.overlay.Draw(lines, width, height)
	r.program = r.overlay.shader.ID
	r.textures[0] = r.overlay.texture
	r.blend = batch.BlendAlpha
	r.depthTest = false
}

// Dispose frees every GL object owned by the renderer.
func (r *Renderer) Dispose() {
	r.meshes.clear()
	r.overlay.Delete()
	r.lib.Delete()
}

func (r *Renderer) useProgram(s *Shader) bool {
	if s.ID == r.program {
		return false
	}
	s.Use()
	r.program = s.ID
	return true
}

func (r *Renderer) bindTextures(ids [batch.MaxTextureUnits]batch.TextureID) {
	for unit, id := range ids {
		tex := r.lib.Texture(id)
		if tex == r.textures[unit] {
			continue
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, tex)
		r.textures[unit] = tex
	}
}

func (r *Renderer) applyPass(p *batch.MaterialPass) {
	if p.Blend != r.blend {
		src, dst, enabled := blendFactors(p.Blend)
		if enabled {
			gl.Enable(gl.BLEND)
			gl.BlendFunc(src, dst)
		} else {
			gl.Disable(gl.BLEND)
		}
		r.blend = p.Blend
	}
	if p.DepthTest != r.depthTest {
		if p.DepthTest {
			gl.Enable(gl.DEPTH_TEST)
		} else {
			gl.Disable(gl.DEPTH_TEST)
		}
		r.depthTest = p.DepthTest
	}
	if p.DepthWrite != r.depthWrite {
		gl.DepthMask(p.DepthWrite)
		r.depthWrite = p.DepthWrite
	}
}
