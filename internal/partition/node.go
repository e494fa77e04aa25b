package partition

import (
	"fmt"
	"stagerender/internal/handle"
)

// Kind discriminates the scene nodes an index tracks.
type Kind uint8

const (
	KindActor Kind = iota + 1
	KindGeom
	KindParticleSystem
	KindDirectionalLight
	KindPointLight
	KindSpotLight
)

// IsLight reports whether nodes of this kind are returned in Visible.Lights.
func (k Kind) IsLight() bool {
	return k == KindDirectionalLight || k == KindPointLight || k == KindSpotLight
}

func (k Kind) String() string {
	switch k {
	case KindActor:
		return "actor"
	case KindGeom:
		return "geom"
	case KindParticleSystem:
		return "particle_system"
	case KindDirectionalLight:
		return "directional_light"
	case KindPointLight:
		return "point_light"
	case KindSpotLight:
		return "spot_light"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// NodeRef identifies a scene node without owning it.
type NodeRef struct {
	Kind   Kind
	Handle handle.Handle
}

// Less orders refs by kind, then handle.
func (r NodeRef) Less(o NodeRef) bool {
	if r.Kind != o.Kind {
		return r.Kind < o.Kind
	}
	return r.Handle.Less(o.Handle)
}

func (r NodeRef) String() string {
	return r.Kind.String() + "/" + r.Handle.String()
}
