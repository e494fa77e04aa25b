package batch

// RenderPriority is the first ordering tier of a render group.
type RenderPriority int32

const (
	PriorityAbsoluteBackground RenderPriority = -250
	PriorityBackground         RenderPriority = -100
	PriorityDistant            RenderPriority = -50
	PriorityMain               RenderPriority = 0
	PriorityNear               RenderPriority = 50
	PriorityForeground         RenderPriority = 100
	PriorityAbsoluteForeground RenderPriority = 250
)

// GroupKey is the render state shared by a group of draws. Sorting by key keeps
// shader and texture rebinding to a minimum.
type GroupKey struct {
	Priority RenderPriority
	Shader   ShaderID
	Textures [MaxTextureUnits]TextureID
}

// KeyFor returns the group key of a pass drawn at the given priority.
func KeyFor(priority RenderPriority, pass *MaterialPass) GroupKey {
	return GroupKey{Priority: priority, Shader: pass.Shader, Textures: pass.Textures}
}

// Compare orders keys by priority, then shader, then texture units in order.
// It returns -1, 0 or +1.
func (k GroupKey) Compare(o GroupKey) int {
	switch {
	case k.Priority < o.Priority:
		return -1
	case k.Priority > o.Priority:
		return 1
	case k.Shader < o.Shader:
		return -1
	case k.Shader > o.Shader:
		return 1
	}
	for i := range k.Textures {
		if k.Textures[i] < o.Textures[i] {
			return -1
		}
		if k.Textures[i] > o.Textures[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether k sorts before o.
func (k GroupKey) Less(o GroupKey) bool {
	return k.Compare(o) < 0
}
