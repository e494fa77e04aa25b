package partition

import (
	"fmt"
	"stagerender/internal/geom"

	"github.com/chewxy/math32"
)

// Cell coordinates are clamped so huge bounds cannot overflow int32.
const cellLimit = 1 << 30

type cellKey struct {
	x, y, z int32
}

type hashNode struct {
	ref    NodeRef
	bounds geom.AABB
	lo, hi cellKey
	// outside the grid: oversized or directional
	loose bool
	// position in HashIndex.loose when loose
	slot  int
	stamp uint32
}

// HashIndex buckets nodes into a uniform grid. A query walks the cells overlapping the
// frustum's bounding box and tests each candidate once against the exact frustum.
// Nodes spanning more than maxCells cells, and directional lights, live outside the
// grid and are tested on every query.
type HashIndex struct {
	cellSize float32
	inv      float32
	maxCells int

	nodes map[NodeRef]*hashNode
	cells map[cellKey][]*hashNode
	loose []*hashNode
	stamp uint32
}

// NewHashIndex creates a hash grid index. cellSize should be chosen so a typical node
// spans one to four cells.
func NewHashIndex(cellSize float32, maxCells int) (*HashIndex, error) {
	if !(cellSize > 0) || math32.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("hash index: invalid cell size %v", cellSize)
	}
	if maxCells <= 0 {
		return nil, fmt.Errorf("hash index: invalid max cells per node %d", maxCells)
	}
	return &HashIndex{
		cellSize: cellSize,
		inv:      1 / cellSize,
		maxCells: maxCells,
		nodes:    make(map[NodeRef]*hashNode),
		cells:    make(map[cellKey][]*hashNode),
	}, nil
}

// CellSize returns the edge length of a grid cell.
func (h *HashIndex) CellSize() float32 { return h.cellSize }

// CellCount returns the number of occupied cells.
func (h *HashIndex) CellCount() int { return len(h.cells) }

func (h *HashIndex) coord(v float32) int32 {
	f := math32.Floor(v * h.inv)
	if math32.IsNaN(f) {
		return 0
	}
	if f > cellLimit {
		return cellLimit
	}
	if f < -cellLimit {
		return -cellLimit
	}
	return int32(f)
}

func (h *HashIndex) cellRange(b geom.AABB) (lo, hi cellKey) {
	lo = cellKey{h.coord(b.Min[0]), h.coord(b.Min[1]), h.coord(b.Min[2])}
	hi = cellKey{h.coord(b.Max[0]), h.coord(b.Max[1]), h.coord(b.Max[2])}
	return lo, hi
}

func rangeVolume(lo, hi cellKey) float64 {
	return float64(int64(hi.x)-int64(lo.x)+1) *
		float64(int64(hi.y)-int64(lo.y)+1) *
		float64(int64(hi.z)-int64(lo.z)+1)
}

func (h *HashIndex) Add(ref NodeRef, bounds geom.AABB) error {
	if _, ok := h.nodes[ref]; ok {
		return duplicateAdd(ref)
	}
	n := &hashNode{ref: ref}
	h.nodes[ref] = n
	h.place(n, bounds)
	return nil
}

func (h *HashIndex) Update(ref NodeRef, bounds geom.AABB) bool {
	n, ok := h.nodes[ref]
	if !ok {
		return false
	}
	if !n.loose {
		lo, hi := h.cellRange(bounds)
		if lo == n.lo && hi == n.hi {
			// Same cells, nothing to move
			n.bounds = bounds
			return true
		}
	}
	h.unplace(n)
	h.place(n, bounds)
	return true
}

func (h *HashIndex) Remove(ref NodeRef) bool {
	n, ok := h.nodes[ref]
	if !ok {
		return false
	}
	h.unplace(n)
	delete(h.nodes, ref)
	return true
}

func (h *HashIndex) Contains(ref NodeRef) bool {
	_, ok := h.nodes[ref]
	return ok
}

func (h *HashIndex) Bounds(ref NodeRef) (geom.AABB, bool) {
	n, ok := h.nodes[ref]
	if !ok {
		return geom.AABB{}, false
	}
	return n.bounds, true
}

func (h *HashIndex) Len() int {
	return len(h.nodes)
}

func (h *HashIndex) place(n *hashNode, bounds geom.AABB) {
	n.bounds = bounds
	n.lo, n.hi = h.cellRange(bounds)

	if n.ref.Kind == KindDirectionalLight || !bounds.IsFinite() ||
		rangeVolume(n.lo, n.hi) > float64(h.maxCells) {
		n.loose = true
		n.slot = len(h.loose)
		h.loose = append(h.loose, n)
		return
	}

	n.loose = false
	for x := n.lo.x; x <= n.hi.x; x++ {
		for y := n.lo.y; y <= n.hi.y; y++ {
			for z := n.lo.z; z <= n.hi.z; z++ {
				k := cellKey{x, y, z}
				h.cells[k] = append(h.cells[k], n)
			}
		}
	}
}

func (h *HashIndex) unplace(n *hashNode) {
	if n.loose {
		last := len(h.loose) - 1
		if n.slot != last {
			moved := h.loose[last]
			h.loose[n.slot] = moved
			moved.slot = n.slot
		}
		h.loose[last] = nil
		h.loose = h.loose[:last]
		return
	}

	for x := n.lo.x; x <= n.hi.x; x++ {
		for y := n.lo.y; y <= n.hi.y; y++ {
			for z := n.lo.z; z <= n.hi.z; z++ {
				k := cellKey{x, y, z}
				bucket := h.cells[k]
				for i, c := range bucket {
					if c == n {
						last := len(bucket) - 1
						bucket[i] = bucket[last]
						bucket[last] = nil
						bucket = bucket[:last]
						break
					}
				}
				if len(bucket) == 0 {
					delete(h.cells, k)
				} else {
					h.cells[k] = bucket
				}
			}
		}
	}
}

func (h *HashIndex) nextStamp() uint32 {
	h.stamp++
	if h.stamp == 0 {
		for _, n := range h.nodes {
			n.stamp = 0
		}
		h.stamp = 1
	}
	return h.stamp
}

func (h *HashIndex) visit(n *hashNode, stamp uint32, f *geom.Frustum, dst *Visible) {
	if n.stamp == stamp {
		return
	}
	n.stamp = stamp
	if f.IntersectsAABB(n.bounds) {
		dst.push(n.ref)
	}
}

func (h *HashIndex) QueryVisible(f *geom.Frustum, dst *Visible) {
	stamp := h.nextStamp()

	for _, n := range h.loose {
		if n.ref.Kind == KindDirectionalLight {
			n.stamp = stamp
			dst.push(n.ref)
			continue
		}
		h.visit(n, stamp, f, dst)
	}

	lo, hi := h.cellRange(f.Bounds())
	if rangeVolume(lo, hi) <= float64(len(h.cells)) {
		for x := lo.x; x <= hi.x; x++ {
			for y := lo.y; y <= hi.y; y++ {
				for z := lo.z; z <= hi.z; z++ {
					for _, n := range h.cells[cellKey{x, y, z}] {
						h.visit(n, stamp, f, dst)
					}
				}
			}
		}
		return
	}

	// Fewer occupied cells than cells under the frustum: walk the map instead
	for k, bucket := range h.cells {
		if k.x < lo.x || k.x > hi.x || k.y < lo.y || k.y > hi.y || k.z < lo.z || k.z > hi.z {
			continue
		}
		for _, n := range bucket {
			h.visit(n, stamp, f, dst)
		}
	}
}
