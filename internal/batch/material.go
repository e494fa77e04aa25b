package batch

import "fmt"

const (
	// MaxTextureUnits is the number of texture bindings a material pass can carry.
	MaxTextureUnits = 8
	// MaxLightsPerRenderable bounds the lights handed to a single draw.
	MaxLightsPerRenderable = 4
)

type (
	ShaderID  uint32
	TextureID uint32
)

// BlendType selects the blend equation of a pass. Anything but BlendNone is drawn
// in the back-to-front pass.
type BlendType uint8

const (
	BlendNone BlendType = iota
	BlendAdd
	BlendAlpha
	BlendColour
	BlendModulate
	BlendOneOneMinusAlpha
)

// Valid reports whether b is a known blend type.
func (b BlendType) Valid() bool { return b <= BlendOneOneMinusAlpha }

// IsBlended reports whether passes with this blend type need depth sorting.
func (b BlendType) IsBlended() bool { return b != BlendNone }

func (b BlendType) String() string {
	switch b {
	case BlendNone:
		return "none"
	case BlendAdd:
		return "add"
	case BlendAlpha:
		return "alpha"
	case BlendColour:
		return "colour"
	case BlendModulate:
		return "modulate"
	case BlendOneOneMinusAlpha:
		return "one_one_minus_alpha"
	}
	return fmt.Sprintf("blend(%d)", uint8(b))
}

// IterationType controls how many times a pass is drawn per renderable.
type IterationType uint8

const (
	// IterateOnce draws once with every light applied.
	IterateOnce IterationType = iota
	// IterateN draws MaxIterations times with every light applied.
	IterateN
	// IterateOncePerLight draws once for each light affecting the renderable.
	IterateOncePerLight
)

// MaterialPass is the render state of one pass of a material.
type MaterialPass struct {
	Shader     ShaderID
	Textures   [MaxTextureUnits]TextureID
	Blend      BlendType
	DepthTest  bool
	DepthWrite bool
	Iteration  IterationType
	// For IterateN, the draw count. For IterateOncePerLight, a cap on lights drawn (0 = no cap).
	MaxIterations int
}

// Material is an ordered list of passes. Pass i of every material is drawn in the same layer.
type Material struct {
	Name   string
	Passes []MaterialPass
}

// NewMaterial returns a single-pass opaque material.
func NewMaterial(name string, shader ShaderID, textures ...TextureID) *Material {
	pass := MaterialPass{
		Shader:     shader,
		DepthTest:  true,
		DepthWrite: true,
	}
	copy(pass.Textures[:], textures)
	return &Material{Name: name, Passes: []MaterialPass{pass}}
}
