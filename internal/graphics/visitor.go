package graphics

import (
	"fmt"
	"stagerender/internal/batch"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// lightUniforms are the uniform names of each slot of uLights.
var lightUniforms = func() (u [batch.MaxLightsPerRenderable]struct {
	position, direction, ambient, diffuse, specular, lightRange, attenuation string
}) {
	for i := range u {
		p := fmt.Sprintf("uLights[%d].", i)
		u[i].position = p + "position"
		u[i].direction = p + "direction"
		u[i].ambient = p + "ambient"
		u[i].diffuse = p + "diffuse"
		u[i].specular = p + "specular"
		u[i].lightRange = p + "range"
		u[i].attenuation = p + "attenuation"
	}
	return u
}()

// visitor replays one pipeline's queue as GL calls.
type visitor struct {
	r      *Renderer
	shader *Shader
	view   mgl32.Mat4
	proj   mgl32.Mat4
	camPos mgl32.Vec3
}

func (v *visitor) StartTraversal(*batch.Queue, uint64) {}

func (v *visitor) ChangeRenderGroup(_, next *batch.GroupKey) {
	v.shader = v.r.lib.Shader(next.Shader)
	v.r.useProgram(v.shader)
	v.shader.SetMatrix4("uView", v.view)
	v.shader.SetMatrix4("uProjection", v.proj)
	v.shader.SetVec3("uCameraPos", v.camPos)
	v.shader.SetInt("uTexture0", 0)
	v.shader.SetBool("uTextured", next.Textures[0] != 0)
	v.r.bindTextures(next.Textures)
}

func (v *visitor) ChangeMaterialPass(_, next *batch.MaterialPass) {
	v.r.applyPass(next)
}

func (v *visitor) ApplyLights(lights []batch.Light) {
	for i := range lights {
		v.setLight(i, &lights[i])
	}
	v.shader.SetInt("uLightCount", int32(len(lights)))
}

func (v *visitor) ChangeLight(_, next *batch.Light) {
	v.setLight(0, next)
	v.shader.SetInt("uLightCount", 1)
}

func (v *visitor) setLight(slot int, l *batch.Light) {
	u := &lightUniforms[slot]
	w := float32(1)
	if l.Directional() {
		w = 0
	}
	v.shader.SetVec4(u.position, l.Position.Vec4(w))
	v.shader.SetVec3(u.direction, l.Direction)
	v.shader.SetVec4(u.ambient, l.Ambient)
	v.shader.SetVec4(u.diffuse, l.Diffuse)
	v.shader.SetVec4(u.specular, l.Specular)
	v.shader.SetFloat(u.lightRange, l.Range)
	v.shader.SetVec3(u.attenuation, l.Attenuation)
}

func (v *visitor) Visit(r *batch.Renderable, _ *batch.MaterialPass, _ int) {
	m := v.r.meshes.bind(r.Vertices, r.Indices)
	if m == nil || m.indexCount == 0 {
		return
	}
	v.shader.SetMatrix4("uModel", r.Transform)
	gl.DrawElements(primitiveMode(r.Arrangement), m.indexCount, gl.UNSIGNED_INT, nil)
	v.r.draws++
}

func (v *visitor) EndTraversal(*batch.Queue) {
	gl.BindVertexArray(0)
}
