package scene

import (
	"stagerender/internal/batch"
	"stagerender/internal/geom"
	"stagerender/internal/partition"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is a scene object tracked by a stage's index.
type Node interface {
	Ref() partition.NodeRef
	// Bounds returns the world-space bounds.
	Bounds() geom.AABB
	Visible() bool
}

// RenderableSource is a node that produces draws.
type RenderableSource interface {
	Node
	// AppendRenderables appends the node's draws at the given detail level to dst.
	AppendRenderables(dst []batch.Renderable, level batch.DetailLevel) []batch.Renderable
}

// node carries the transform shared by every node kind. The mutex guards the
// transform and local bounds so loaders may move nodes while the render goroutine reads them.
type node struct {
	stage *Stage
	ref   partition.NodeRef

	mu       sync.RWMutex
	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	local    geom.AABB
	hidden   bool
	priority batch.RenderPriority
}

func (n *node) init(s *Stage, ref partition.NodeRef, position mgl32.Vec3, local geom.AABB) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stage = s
	n.ref = ref
	n.position = position
	n.rotation = mgl32.QuatIdent()
	n.scale = mgl32.Vec3{1, 1, 1}
	n.local = local
}

func (n *node) Ref() partition.NodeRef { return n.ref }

func (n *node) transformLocked() mgl32.Mat4 {
	return mgl32.Translate3D(n.position[0], n.position[1], n.position[2]).
		Mul4(n.rotation.Mat4()).
		Mul4(mgl32.Scale3D(n.scale[0], n.scale[1], n.scale[2]))
}

// Transform returns the local-to-world matrix.
func (n *node) Transform() mgl32.Mat4 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.transformLocked()
}

func (n *node) boundsLocked() geom.AABB {
	switch n.ref.Kind {
	case partition.KindDirectionalLight:
		return geom.InfiniteAABB()
	case partition.KindPointLight, partition.KindSpotLight:
		// Influence is a range around the position, unaffected by rotation or scale
		return n.local.Translate(n.position)
	}
	return n.local.Transform(n.transformLocked())
}

func (n *node) Bounds() geom.AABB {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.boundsLocked()
}

// Position returns the world position.
func (n *node) Position() mgl32.Vec3 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.position
}

func (n *node) Visible() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return !n.hidden
}

// SetVisible hides or shows the node without removing it from the index.
func (n *node) SetVisible(v bool) {
	n.mu.Lock()
	n.hidden = !v
	n.mu.Unlock()
}

// RenderPriority returns the priority tier of the node's draws.
func (n *node) RenderPriority() batch.RenderPriority {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.priority
}

func (n *node) SetRenderPriority(p batch.RenderPriority) {
	n.mu.Lock()
	n.priority = p
	n.mu.Unlock()
}

// mutate applies fn under the write lock and stages the resulting bounds before
// releasing it, so staged updates of one node keep the order of its mutations.
func (n *node) mutate(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fn()
	n.stage.writes.StageUpdate(n.ref, n.boundsLocked())
}

// Move places the node at pos.
func (n *node) Move(pos mgl32.Vec3) {
	n.mutate(func() { n.position = pos })
}

// MoveBy translates the node by d.
func (n *node) MoveBy(d mgl32.Vec3) {
	n.mutate(func() { n.position = n.position.Add(d) })
}

// Rotate sets the node orientation.
func (n *node) Rotate(q mgl32.Quat) {
	n.mutate(func() { n.rotation = q.Normalize() })
}

// Scale sets the node scale.
func (n *node) Scale(s mgl32.Vec3) {
	n.mutate(func() { n.scale = s })
}

func (n *node) setLocalBounds(b geom.AABB) {
	n.mutate(func() { n.local = b })
}

func (n *node) baseRenderable() batch.Renderable {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return batch.Renderable{
		Node:      n.ref,
		Transform: n.transformLocked(),
		Priority:  n.priority,
		Bounds:    n.boundsLocked(),
	}
}
