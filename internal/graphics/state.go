package graphics

import (
	"stagerender/internal/batch"
	"stagerender/internal/compositor"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// blendFactors returns the source and destination factors for b, and false for BlendNone.
func blendFactors(b batch.BlendType) (src, dst uint32, enabled bool) {
	switch b {
	case batch.BlendAdd:
		return gl.ONE, gl.ONE, true
	case batch.BlendAlpha:
		return gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, true
	case batch.BlendColour:
		return gl.SRC_COLOR, gl.ONE_MINUS_SRC_COLOR, true
	case batch.BlendModulate:
		return gl.DST_COLOR, gl.ZERO, true
	case batch.BlendOneOneMinusAlpha:
		return gl.ONE, gl.ONE_MINUS_SRC_ALPHA, true
	}
	return gl.ONE, gl.ZERO, false
}

// primitiveMode maps an arrangement to a GL draw mode.
func primitiveMode(a batch.Arrangement) uint32 {
	switch a {
	case batch.ArrangeTriangleStrip:
		return gl.TRIANGLE_STRIP
	case batch.ArrangeTriangleFan:
		return gl.TRIANGLE_FAN
	case batch.ArrangeLines:
		return gl.LINES
	case batch.ArrangeLineStrip:
		return gl.LINE_STRIP
	case batch.ArrangePoints:
		return gl.POINTS
	}
	return gl.TRIANGLES
}

// clearMask maps clear flags to a glClear mask.
func clearMask(f compositor.ClearFlags) uint32 {
	var mask uint32
	if f&compositor.ClearColour != 0 {
		mask |= gl.COLOR_BUFFER_BIT
	}
	if f&compositor.ClearDepth != 0 {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if f&compositor.ClearStencil != 0 {
		mask |= gl.STENCIL_BUFFER_BIT
	}
	return mask
}
