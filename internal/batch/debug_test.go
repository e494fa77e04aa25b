//go:build stagedebug

package batch

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestInvalidRenderablePanicsInDebugBuilds(t *testing.T) {
	q := newQueue()
	r := newRenderable(NewMaterial("m", 1), mgl32.Vec3{})
	r.Material = nil
	assert.Panics(t, func() { q.Insert(r) })
}
