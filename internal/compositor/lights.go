package compositor

import (
	"stagerender/internal/batch"
	"stagerender/internal/geom"
)

// SelectLights appends to dst the lights affecting a node with the given bounds, at most
// limit of them. Directional lights come first in candidate order; point and spot lights
// whose bounds intersect the node follow, nearest centre first. It returns the selection
// and how many matching lights did not fit.
//
// Distances are measured between box centres, so a light near the edge of a large node
// may lose its slot to one closer to the middle.
func SelectLights(dst, candidates []batch.Light, bounds geom.AABB, limit int) ([]batch.Light, int) {
	base := len(dst)
	dropped := 0
	for i := range candidates {
		if !candidates[i].Directional() {
			continue
		}
		if len(dst)-base < limit {
			dst = append(dst, candidates[i])
		} else {
			dropped++
		}
	}

	first := len(dst)
	centre := bounds.Center()
	var buf [batch.MaxLightsPerRenderable]float32
	dists := buf[:0]
	for i := range candidates {
		l := &candidates[i]
		if l.Directional() || !l.Bounds.Intersects(bounds) {
			continue
		}
		d := l.Bounds.Center().Sub(centre).LenSqr()

		pos := len(dst)
		for pos > first && dists[pos-1-first] > d {
			pos--
		}
		if pos-base >= limit {
			dropped++
			continue
		}
		if len(dst)-base < limit {
			dst = append(dst, batch.Light{})
			dists = append(dists, 0)
		} else {
			dropped++
		}
		copy(dst[pos+1:], dst[pos:len(dst)-1])
		copy(dists[pos-first+1:], dists[pos-first:len(dists)-1])
		dst[pos] = *l
		dists[pos-first] = d
	}
	return dst, dropped
}
