package partition

import "stagerender/internal/geom"

// FrustumIndex tests every tracked node against the frustum. Correct for any scene,
// linear in the node count.
type FrustumIndex struct {
	set nodeSet
}

func NewFrustumIndex() *FrustumIndex {
	return &FrustumIndex{set: newNodeSet()}
}

func (fi *FrustumIndex) Add(ref NodeRef, bounds geom.AABB) error {
	if !fi.set.add(ref, bounds) {
		return duplicateAdd(ref)
	}
	return nil
}

func (fi *FrustumIndex) Update(ref NodeRef, bounds geom.AABB) bool {
	return fi.set.update(ref, bounds)
}

func (fi *FrustumIndex) Remove(ref NodeRef) bool {
	return fi.set.remove(ref)
}

func (fi *FrustumIndex) Contains(ref NodeRef) bool {
	_, ok := fi.set.pos[ref]
	return ok
}

func (fi *FrustumIndex) Bounds(ref NodeRef) (geom.AABB, bool) {
	return fi.set.bounds(ref)
}

func (fi *FrustumIndex) Len() int {
	return len(fi.set.entries)
}

func (fi *FrustumIndex) QueryVisible(f *geom.Frustum, dst *Visible) {
	for i := range fi.set.entries {
		e := &fi.set.entries[i]
		// Directional lights affect everything
		if e.ref.Kind == KindDirectionalLight || f.IntersectsAABB(e.bounds) {
			dst.push(e.ref)
		}
	}
}
