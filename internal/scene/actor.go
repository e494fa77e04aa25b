package scene

import (
	"stagerender/internal/batch"
	"stagerender/internal/geom"
	"stagerender/internal/partition"
)

// Actor is a movable node drawn from a mesh, with optional per-detail-level meshes.
type Actor struct {
	node
	meshes meshSet
}

// SetMesh sets the mesh used at every detail level that has no mesh of its own.
func (a *Actor) SetMesh(m *Mesh) {
	a.SetMeshAt(batch.DetailNearest, m)
}

// SetMeshAt sets the mesh drawn at level. Bounds follow the nearest-level mesh.
func (a *Actor) SetMeshAt(level batch.DetailLevel, m *Mesh) {
	var local geom.AABB
	a.mu.Lock()
	a.meshes[level] = m
	if base := a.meshes.at(batch.DetailNearest); base != nil {
		local = base.Bounds()
	}
	a.mu.Unlock()
	a.setLocalBounds(local)
}

// MeshAt returns the mesh that would be drawn at level.
func (a *Actor) MeshAt(level batch.DetailLevel) *Mesh {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.meshes.at(level)
}

func (a *Actor) AppendRenderables(dst []batch.Renderable, level batch.DetailLevel) []batch.Renderable {
	base := a.baseRenderable()
	base.DetailLevel = level
	return appendMesh(dst, a.MeshAt(level), base)
}

// Geom is static geometry. It is placed once at creation and never moves.
type Geom struct {
	n    node
	mesh *Mesh
}

func (g *Geom) Ref() partition.NodeRef { return g.n.Ref() }
func (g *Geom) Bounds() geom.AABB      { return g.n.Bounds() }
func (g *Geom) Visible() bool          { return g.n.Visible() }
func (g *Geom) SetVisible(v bool)      { g.n.SetVisible(v) }

// Mesh returns the geometry drawn by g.
func (g *Geom) Mesh() *Mesh { return g.mesh }

func (g *Geom) AppendRenderables(dst []batch.Renderable, level batch.DetailLevel) []batch.Renderable {
	base := g.n.baseRenderable()
	base.DetailLevel = level
	return appendMesh(dst, g.mesh, base)
}
