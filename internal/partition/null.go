package partition

import "stagerender/internal/geom"

// NullIndex returns every tracked node from every query. Used for overlay stages
// where culling is meaningless.
type NullIndex struct {
	set nodeSet
}

func NewNullIndex() *NullIndex {
	return &NullIndex{set: newNodeSet()}
}

func (n *NullIndex) Add(ref NodeRef, bounds geom.AABB) error {
	if !n.set.add(ref, bounds) {
		return duplicateAdd(ref)
	}
	return nil
}

func (n *NullIndex) Update(ref NodeRef, bounds geom.AABB) bool { return n.set.update(ref, bounds) }
func (n *NullIndex) Remove(ref NodeRef) bool                   { return n.set.remove(ref) }
func (n *NullIndex) Bounds(ref NodeRef) (geom.AABB, bool)      { return n.set.bounds(ref) }
func (n *NullIndex) Len() int                                  { return len(n.set.entries) }

func (n *NullIndex) Contains(ref NodeRef) bool {
	_, ok := n.set.pos[ref]
	return ok
}

func (n *NullIndex) QueryVisible(_ *geom.Frustum, dst *Visible) {
	for i := range n.set.entries {
		dst.push(n.set.entries[i].ref)
	}
}
