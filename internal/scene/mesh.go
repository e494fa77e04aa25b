package scene

import (
	"stagerender/internal/batch"
	"stagerender/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// VertexData is CPU-side vertex storage. Treat it as immutable once handed to a mesh:
// renderables reference it for the rest of the frame.
type VertexData struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	UVs       []mgl32.Vec2
}

func (v *VertexData) VertexCount() int { return len(v.Positions) }

// IndexData is CPU-side index storage.
type IndexData struct {
	Indices []uint32
}

func (i *IndexData) IndexCount() int { return len(i.Indices) }

// SubMesh is one draw of a mesh: a material and the geometry drawn with it.
type SubMesh struct {
	Name        string
	Material    *batch.Material
	Vertices    *VertexData
	Indices     *IndexData
	Arrangement batch.Arrangement
}

// Mesh groups the submeshes of one representation of an object.
type Mesh struct {
	Name      string
	SubMeshes []*SubMesh
	bounds    geom.AABB
}

// NewMesh builds a mesh and computes its local bounds.
func NewMesh(name string, subs ...*SubMesh) *Mesh {
	m := &Mesh{Name: name, SubMeshes: subs}
	first := true
	for _, s := range subs {
		if s.Vertices == nil || len(s.Vertices.Positions) == 0 {
			continue
		}
		b := geom.BoundsOf(s.Vertices.Positions...)
		if first {
			m.bounds = b
			first = false
		} else {
			m.bounds = m.bounds.Union(b)
		}
	}
	return m
}

// Bounds returns the local-space bounds of every submesh.
func (m *Mesh) Bounds() geom.AABB { return m.bounds }

// NewBox returns an axis-aligned box mesh with 24 vertices and 36 indices.
func NewBox(half mgl32.Vec3, mat *batch.Material) *Mesh {
	faces := [6]struct {
		normal mgl32.Vec3
		u, v   mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	scale := func(p mgl32.Vec3) mgl32.Vec3 {
		return mgl32.Vec3{p[0] * half[0], p[1] * half[1], p[2] * half[2]}
	}

	vd := &VertexData{}
	id := &IndexData{}
	for _, f := range faces {
		base := uint32(len(vd.Positions))
		corners := [4]mgl32.Vec3{
			f.normal.Sub(f.u).Sub(f.v),
			f.normal.Add(f.u).Sub(f.v),
			f.normal.Add(f.u).Add(f.v),
			f.normal.Sub(f.u).Add(f.v),
		}
		uvs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
		for i, c := range corners {
			vd.Positions = append(vd.Positions, scale(c))
			vd.Normals = append(vd.Normals, f.normal)
			vd.UVs = append(vd.UVs, uvs[i])
		}
		id.Indices = append(id.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewMesh("box", &SubMesh{
		Name:        "box",
		Material:    mat,
		Vertices:    vd,
		Indices:     id,
		Arrangement: batch.ArrangeTriangles,
	})
}

// meshSet holds one optional mesh per detail level.
type meshSet [batch.DetailLevelCount]*Mesh

// at returns the mesh for level, falling back to the closest finer level, then the
// closest coarser one.
func (s *meshSet) at(level batch.DetailLevel) *Mesh {
	if int(level) >= len(s) {
		level = batch.DetailFarthest
	}
	for l := int(level); l >= 0; l-- {
		if s[l] != nil {
			return s[l]
		}
	}
	for l := int(level) + 1; l < len(s); l++ {
		if s[l] != nil {
			return s[l]
		}
	}
	return nil
}

func appendMesh(dst []batch.Renderable, m *Mesh, base batch.Renderable) []batch.Renderable {
	if m == nil {
		return dst
	}
	for _, sm := range m.SubMeshes {
		r := base
		r.Material = sm.Material
		r.Arrangement = sm.Arrangement
		if sm.Vertices != nil {
			r.Vertices = sm.Vertices
		}
		if sm.Indices != nil {
			r.Indices = sm.Indices
		}
		dst = append(dst, r)
	}
	return dst
}
