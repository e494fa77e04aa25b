package graphics

import (
	"stagerender/internal/batch"
	"stagerender/internal/compositor"
	"testing"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/stretchr/testify/assert"
)

func TestBlendFactors(t *testing.T) {
	tests := []struct {
		blend    batch.BlendType
		src, dst uint32
		enabled  bool
	}{
		{batch.BlendNone, gl.ONE, gl.ZERO, false},
		{batch.BlendAdd, gl.ONE, gl.ONE, true},
		{batch.BlendAlpha, gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, true},
		{batch.BlendColour, gl.SRC_COLOR, gl.ONE_MINUS_SRC_COLOR, true},
		{batch.BlendModulate, gl.DST_COLOR, gl.ZERO, true},
		{batch.BlendOneOneMinusAlpha, gl.ONE, gl.ONE_MINUS_SRC_ALPHA, true},
	}
	for _, tt := range tests {
		t.Run(tt.blend.String(), func(t *testing.T) {
			src, dst, enabled := blendFactors(tt.blend)
			assert.Equal(t, tt.src, src)
			assert.Equal(t, tt.dst, dst)
			assert.Equal(t, tt.enabled, enabled)
		})
	}
}

func TestPrimitiveMode(t *testing.T) {
	assert.Equal(t, uint32(gl.TRIANGLES), primitiveMode(batch.ArrangeTriangles))
	assert.Equal(t, uint32(gl.TRIANGLE_STRIP), primitiveMode(batch.ArrangeTriangleStrip))
	assert.Equal(t, uint32(gl.LINES), primitiveMode(batch.ArrangeLines))
	assert.Equal(t, uint32(gl.POINTS), primitiveMode(batch.ArrangePoints))
}

func TestClearMask(t *testing.T) {
	assert.Equal(t, uint32(0), clearMask(0))
	assert.Equal(t, uint32(gl.DEPTH_BUFFER_BIT), clearMask(compositor.ClearDepth))
	assert.Equal(t, uint32(gl.COLOR_BUFFER_BIT|gl.DEPTH_BUFFER_BIT|gl.STENCIL_BUFFER_BIT), clearMask(compositor.ClearAll))
}
