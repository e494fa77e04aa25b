package graphics

import (
	_ "embed"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	//go:embed shaders/text.vert
	textVertexSource string
	//go:embed shaders/text.frag
	textFragmentSource string
)

const (
	overlayPixels  = 16
	overlayMargin  = 8
	overlayAtlasW  = 512
	overlayLineGap = 4
)

// Overlay draws lines of text over the finished frame, for stats and key help.
type Overlay struct {
	atlas   *GlyphAtlas
	shader  *Shader
	texture uint32
	vao     uint32
	vbo     uint32
	verts   []float32
	colour  mgl32.Vec3
}

// NewOverlay bakes the ASCII range of the bundled mono face and uploads it.
func NewOverlay() (*Overlay, error) {
	face, err := MonoFace(overlayPixels)
	if err != nil {
		return nil, err
	}
	defer func() { _ = face.Close() }()

	atlas, err := BakeAtlas(face, 32, 126, overlayAtlasW)
	if err != nil {
		return nil, err
	}
	shader, err := NewShaderFromSource(textVertexSource, textFragmentSource)
	if err != nil {
		return nil, fmt.Errorf("text shader: %w", err)
	}

	o := &Overlay{atlas: atlas, shader: shader, colour: mgl32.Vec3{1, 1, 1}}
	o.upload()
	return o, nil
}

func (o *Overlay) upload() {
	img := o.atlas.Image
	gl.GenTextures(1, &o.texture)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, o.texture)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RED, int32(img.Rect.Dx()), int32(img.Rect.Dy()), 0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.GenVertexArrays(1, &o.vao)
	gl.GenBuffers(1, &o.vbo)
	gl.BindVertexArray(o.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 4, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.BindVertexArray(0)
}

// SetColour sets the text colour.
func (o *Overlay) SetColour(c mgl32.Vec3) { o.colour = c }

// Draw renders lines from the top-left corner of a width x height framebuffer. It
// leaves blending on, depth testing off and its own program and texture bound.
func (o *Overlay) Draw(lines []string, width, height int) {
	o.verts = o.verts[:0]
	y := float32(overlayMargin + overlayPixels)
	for _, line := range lines {
		o.verts = o.atlas.AppendQuads(o.verts, line, overlayMargin, y, 1)
		y += overlayPixels + overlayLineGap
	}
	if len(o.verts) == 0 {
		return
	}

	gl.Viewport(0, 0, int32(width), int32(height))
	gl.Scissor(0, 0, int32(width), int32(height))
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	o.shader.Use()
	o.shader.SetMatrix4("uProjection", mgl32.Ortho(0, float32(width), float32(height), 0, -1, 1))
	o.shader.SetVec3("uColour", o.colour)
	o.shader.SetInt("uGlyphs", 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, o.texture)

	gl.BindVertexArray(o.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)
	size := len(o.verts) * 4
	// Orphan before the upload so the driver does not stall on last frame's draw
	gl.BufferData(gl.ARRAY_BUFFER, size, nil, gl.STREAM_DRAW)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, gl.Ptr(o.verts))
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(o.verts)/4))
	gl.BindVertexArray(0)
}

// Delete frees the GL objects.
func (o *Overlay) Delete() {
	gl.DeleteBuffers(1, &o.vbo)
	gl.DeleteVertexArrays(1, &o.vao)
	gl.DeleteTextures(1, &o.texture)
	o.shader.Delete()
}
