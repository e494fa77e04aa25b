package graphics

import (
	"log"
	"stagerender/internal/scene"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// evictAfter is how many frames an unused buffer survives.
const evictAfter = 120

type gpuMesh struct {
	vao, vbo    uint32
	ebo         uint32
	indexCount  int32
	vertexCount int
	lastUsed    uint64
}

type meshKey struct {
	vertices *scene.VertexData
	indices  *scene.IndexData
}

// meshCache uploads scene vertex and index data on first use. Particle systems hand out
// fresh buffers on every update, so entries unused for a while are freed.
type meshCache struct {
	meshes map[meshKey]*gpuMesh
	frame  uint64
}

func newMeshCache() *meshCache {
	return &meshCache{meshes: make(map[meshKey]*gpuMesh)}
}

// bind makes the mesh current and returns it, or nil if the sources are not scene buffers.
func (c *meshCache) bind(vs, is any) *gpuMesh {
	vd, ok := vs.(*scene.VertexData)
	if !ok {
		return nil
	}
	id, ok := is.(*scene.IndexData)
	if !ok {
		return nil
	}
	key := meshKey{vd, id}
	m, ok := c.meshes[key]
	if !ok {
		m = upload(vd, id)
		c.meshes[key] = m
	}
	m.lastUsed = c.frame
	gl.BindVertexArray(m.vao)
	return m
}

// upload interleaves position, normal and uv into one buffer.
func upload(vd *scene.VertexData, id *scene.IndexData) *gpuMesh {
	n := vd.VertexCount()
	data := make([]float32, 0, n*8)
	for i := 0; i < n; i++ {
		p := vd.Positions[i]
		data = append(data, p[0], p[1], p[2])
		if i < len(vd.Normals) {
			nm := vd.Normals[i]
			data = append(data, nm[0], nm[1], nm[2])
		} else {
			data = append(data, 0, 1, 0)
		}
		if i < len(vd.UVs) {
			uv := vd.UVs[i]
			data = append(data, uv[0], uv[1])
		} else {
			data = append(data, 0, 0)
		}
	}

	m := &gpuMesh{indexCount: int32(id.IndexCount()), vertexCount: n}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if len(data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	}

	stride := int32(8 * 4)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	if len(id.Indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(id.Indices)*4, gl.Ptr(id.Indices), gl.STATIC_DRAW)
	}
	return m
}

// nextFrame advances the frame counter and frees meshes left unused too long.
func (c *meshCache) nextFrame() {
	c.frame++
	if c.frame%evictAfter != 0 {
		return
	}
	freed := 0
	for k, m := range c.meshes {
		if c.frame-m.lastUsed >= evictAfter {
			m.free()
			delete(c.meshes, k)
			freed++
		}
	}
	if freed > 0 {
		log.Printf("mesh cache: freed %d unused meshes, %d live", freed, len(c.meshes))
	}
}

func (m *gpuMesh) free() {
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteBuffers(1, &m.ebo)
	gl.DeleteVertexArrays(1, &m.vao)
}

func (c *meshCache) clear() {
	for k, m := range c.meshes {
		m.free()
		delete(c.meshes, k)
	}
}
