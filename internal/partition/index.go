package partition

import (
	"errors"
	"fmt"
	"stagerender/internal/geom"
)

var (
	// ErrAlreadyPresent is returned by Add when the node is already tracked.
	ErrAlreadyPresent = errors.New("node already present in index")
	// ErrUnknownVariant is returned by NewIndex for an unrecognised variant name.
	ErrUnknownVariant = errors.New("unknown index variant")
)

// Index tracks the world-space bounds of scene nodes and answers visibility queries.
// It is mutated only from the render goroutine (through StagedWriteQueue.ApplyAll)
// and holds no lock of its own.
type Index interface {
	Add(ref NodeRef, bounds geom.AABB) error
	// Update returns false when the node is not tracked.
	Update(ref NodeRef, bounds geom.AABB) bool
	// Remove returns false when the node is not tracked.
	Remove(ref NodeRef) bool
	Contains(ref NodeRef) bool
	Bounds(ref NodeRef) (geom.AABB, bool)
	Len() int
	// QueryVisible appends the lights and geometry visible through f to dst.
	QueryVisible(f *geom.Frustum, dst *Visible)
}

// Visible is the result of a visibility query. Reuse it across frames to avoid allocations.
type Visible struct {
	Lights   []NodeRef
	Geometry []NodeRef
}

// Reset empties both lists, keeping their storage.
func (v *Visible) Reset() {
	v.Lights = v.Lights[:0]
	v.Geometry = v.Geometry[:0]
}

func (v *Visible) push(ref NodeRef) {
	if ref.Kind.IsLight() {
		v.Lights = append(v.Lights, ref)
	} else {
		v.Geometry = append(v.Geometry, ref)
	}
}

// Index variants accepted by NewIndex.
const (
	VariantNull    = "null"
	VariantFrustum = "frustum"
	VariantHash    = "hash"
)

const (
	DefaultCellSize        = 16
	DefaultMaxCellsPerNode = 512
)

// Options configures NewIndex. Zero values select the defaults.
type Options struct {
	CellSize        float32
	MaxCellsPerNode int
}

// NewIndex builds the index variant with the given name.
func NewIndex(variant string, opts Options) (Index, error) {
	switch variant {
	case VariantNull:
		return NewNullIndex(), nil
	case VariantFrustum, "":
		return NewFrustumIndex(), nil
	case VariantHash:
		cell := opts.CellSize
		if cell == 0 {
			cell = DefaultCellSize
		}
		maxCells := opts.MaxCellsPerNode
		if maxCells == 0 {
			maxCells = DefaultMaxCellsPerNode
		}
		return NewHashIndex(cell, maxCells)
	}
	return nil, fmt.Errorf("new index %q: %w", variant, ErrUnknownVariant)
}

func duplicateAdd(ref NodeRef) error {
	if debugChecks {
		panic(fmt.Sprintf("partition: duplicate add of %v", ref))
	}
	return fmt.Errorf("add %v: %w", ref, ErrAlreadyPresent)
}

type entry struct {
	ref    NodeRef
	bounds geom.AABB
}

// nodeSet is a dense list of tracked nodes with O(1) lookup and swap-remove.
type nodeSet struct {
	entries []entry
	pos     map[NodeRef]int
}

func newNodeSet() nodeSet {
	return nodeSet{pos: make(map[NodeRef]int)}
}

func (s *nodeSet) add(ref NodeRef, bounds geom.AABB) bool {
	if _, ok := s.pos[ref]; ok {
		return false
	}
	s.pos[ref] = len(s.entries)
	s.entries = append(s.entries, entry{ref: ref, bounds: bounds})
	return true
}

func (s *nodeSet) update(ref NodeRef, bounds geom.AABB) bool {
	i, ok := s.pos[ref]
	if !ok {
		return false
	}
	s.entries[i].bounds = bounds
	return true
}

func (s *nodeSet) remove(ref NodeRef) bool {
	i, ok := s.pos[ref]
	if !ok {
		return false
	}
	last := len(s.entries) - 1
	if i != last {
		s.entries[i] = s.entries[last]
		s.pos[s.entries[i].ref] = i
	}
	s.entries = s.entries[:last]
	delete(s.pos, ref)
	return true
}

func (s *nodeSet) bounds(ref NodeRef) (geom.AABB, bool) {
	i, ok := s.pos[ref]
	if !ok {
		return geom.AABB{}, false
	}
	return s.entries[i].bounds, true
}
