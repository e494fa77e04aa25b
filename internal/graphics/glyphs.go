package graphics

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Glyph is one baked character: where it sits in the atlas and how to place it.
type Glyph struct {
	// Pixel rectangle in the atlas, top-left origin
	AtlasX, AtlasY float32
	Width, Height  float32
	// Offset from the pen position on the baseline
	BearingX, BearingY float32
	Advance            int
}

// GlyphAtlas is a single-channel bitmap holding a run of glyphs.
type GlyphAtlas struct {
	Image  *image.Alpha
	Glyphs map[rune]Glyph
}

// MonoFace returns the bundled Go Mono face at the given pixel size.
func MonoFace(pixels float64) (font.Face, error) {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: pixels, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	return face, nil
}

// BakeAtlas renders the runes first..last of face into rows of the given width. The
// atlas height is whatever the rows need.
func BakeAtlas(face font.Face, first, last rune, width int) (*GlyphAtlas, error) {
	const padding = 1

	type placed struct {
		r       rune
		dr      image.Rectangle
		mask    image.Image
		maskp   image.Point
		advance fixed.Int26_6
		x, y    int
	}

	var glyphs []placed
	x, y, rowH := 0, 0, 0
	for r := first; r <= last; r++ {
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok {
			continue
		}
		if dr.Dx() > width {
			return nil, fmt.Errorf("glyph %q is wider than the atlas (%d > %d)", r, dr.Dx(), width)
		}
		if x+dr.Dx() > width {
			x = 0
			y += rowH + padding
			rowH = 0
		}
		glyphs = append(glyphs, placed{r: r, dr: dr, mask: mask, maskp: maskp, advance: advance, x: x, y: y})
		x += dr.Dx() + padding
		rowH = max(rowH, dr.Dy())
	}
	if len(glyphs) == 0 {
		return nil, fmt.Errorf("no glyphs in %q..%q", first, last)
	}

	atlas := &GlyphAtlas{
		Image:  image.NewAlpha(image.Rect(0, 0, width, y+rowH)),
		Glyphs: make(map[rune]Glyph, len(glyphs)),
	}
	for _, g := range glyphs {
		if g.dr.Dx() > 0 && g.dr.Dy() > 0 {
			dst := image.Rect(g.x, g.y, g.x+g.dr.Dx(), g.y+g.dr.Dy())
			draw.Draw(atlas.Image, dst, g.mask, g.maskp, draw.Src)
		}
		atlas.Glyphs[g.r] = Glyph{
			AtlasX:   float32(g.x),
			AtlasY:   float32(g.y),
			Width:    float32(g.dr.Dx()),
			Height:   float32(g.dr.Dy()),
			BearingX: float32(g.dr.Min.X),
			BearingY: float32(-g.dr.Min.Y),
			Advance:  int(math.Round(float64(g.advance) / 64.0)),
		}
	}
	return atlas, nil
}

// Measure returns the width and tallest glyph of text at scale. Missing runes advance
// like a space.
func (a *GlyphAtlas) Measure(text string, scale float32) (float32, float32) {
	var w, h float32
	for _, r := range text {
		g, ok := a.Glyphs[r]
		if !ok {
			g = a.Glyphs[' ']
		}
		w += float32(g.Advance) * scale
		h = max(h, g.Height*scale)
	}
	return w, h
}

// AppendQuads appends two triangles per visible glyph of text, as x, y, u, v floats,
// with the pen starting at (x, y) on the baseline.
func (a *GlyphAtlas) AppendQuads(dst []float32, text string, x, y, scale float32) []float32 {
	aw := float32(a.Image.Rect.Dx())
	ah := float32(a.Image.Rect.Dy())
	for _, r := range text {
		g, ok := a.Glyphs[r]
		if !ok {
			x += float32(a.Glyphs[' '].Advance) * scale
			continue
		}
		if g.Width > 0 && g.Height > 0 {
			x0 := x + g.BearingX*scale
			y0 := y - g.BearingY*scale
			x1 := x0 + g.Width*scale
			y1 := y0 + g.Height*scale
			u0, v0 := g.AtlasX/aw, g.AtlasY/ah
			u1, v1 := (g.AtlasX+g.Width)/aw, (g.AtlasY+g.Height)/ah
			dst = append(dst,
				x0, y1, u0, v1,
				x0, y0, u0, v0,
				x1, y0, u1, v0,
				x0, y1, u0, v1,
				x1, y0, u1, v0,
				x1, y1, u1, v1,
			)
		}
		x += float32(g.Advance) * scale
	}
	return dst
}
