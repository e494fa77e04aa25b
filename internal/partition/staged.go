package partition

import (
	"errors"
	"log"
	"stagerender/internal/geom"
	"sync"
)

// Op is the kind of mutation carried by a StagedWrite.
type Op uint8

const (
	OpAdd Op = iota
	OpUpdate
	OpRemove
	opCount
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpRemove:
		return "remove"
	}
	return "op?"
}

// StagedWrite is a pending change to a node's presence or bounds in an Index.
type StagedWrite struct {
	Op     Op
	Ref    NodeRef
	Bounds geom.AABB
}

// coalesced holds the surviving writes of one node within a batch.
type coalesced struct {
	ref   NodeRef
	write [opCount]StagedWrite
	// sequence number of the first and last write of each op, -1 if none
	first [opCount]int
	last  [opCount]int
}

func (c *coalesced) has(op Op) bool { return c.last[op] >= 0 }

// StagedWriteQueue buffers index mutations from any goroutine until the render
// goroutine applies them. The mutex guards only the pending list.
type StagedWriteQueue struct {
	mu      sync.Mutex
	pending []StagedWrite

	// Used only by ApplyAll on the render goroutine
	drained []StagedWrite
	groups  []coalesced
	byRef   map[NodeRef]int

	dupOnce sync.Once
}

func NewStagedWriteQueue() *StagedWriteQueue {
	return &StagedWriteQueue{byRef: make(map[NodeRef]int)}
}

// Stage appends a write. It never blocks on rendering.
func (q *StagedWriteQueue) Stage(w StagedWrite) {
	q.mu.Lock()
	q.pending = append(q.pending, w)
	q.mu.Unlock()
}

func (q *StagedWriteQueue) StageAdd(ref NodeRef, bounds geom.AABB) {
	q.Stage(StagedWrite{Op: OpAdd, Ref: ref, Bounds: bounds})
}

func (q *StagedWriteQueue) StageUpdate(ref NodeRef, bounds geom.AABB) {
	q.Stage(StagedWrite{Op: OpUpdate, Ref: ref, Bounds: bounds})
}

func (q *StagedWriteQueue) StageRemove(ref NodeRef) {
	q.Stage(StagedWrite{Op: OpRemove, Ref: ref})
}

// Len returns the number of writes waiting to be applied.
func (q *StagedWriteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ApplyAll drains the pending writes and applies them to idx, coalescing repeated writes
// per node. Writes staged while ApplyAll runs are left for the next call. It returns the
// number of operations applied to idx; an empty batch changes nothing and returns 0.
//
// Within a node's batch only the last write of each op survives. When both an add and a
// remove are present, whichever was staged first decides the outcome: remove-then-add
// leaves the node present, add-then-remove leaves it absent. An update is applied last,
// only if the node is present and the update was staged after the surviving add.
func (q *StagedWriteQueue) ApplyAll(idx Index) int {
	q.mu.Lock()
	q.drained, q.pending = q.pending, q.drained[:0]
	q.mu.Unlock()

	if len(q.drained) == 0 {
		return 0
	}

	q.groups = q.groups[:0]
	for seq, w := range q.drained {
		gi, ok := q.byRef[w.Ref]
		if !ok {
			gi = len(q.groups)
			q.byRef[w.Ref] = gi
			q.groups = append(q.groups, coalesced{
				ref:   w.Ref,
				first: [opCount]int{-1, -1, -1},
				last:  [opCount]int{-1, -1, -1},
			})
		}
		g := &q.groups[gi]
		if g.first[w.Op] < 0 {
			g.first[w.Op] = seq
		}
		g.last[w.Op] = seq
		g.write[w.Op] = w
	}

	applied := 0
	for i := range q.groups {
		applied += q.apply(idx, &q.groups[i])
	}

	clear(q.byRef)
	clear(q.drained)
	q.drained = q.drained[:0]
	return applied
}

func (q *StagedWriteQueue) apply(idx Index, g *coalesced) int {
	n := 0
	addAndRemove := g.has(OpAdd) && g.has(OpRemove)

	switch {
	case addAndRemove && g.first[OpAdd] < g.first[OpRemove]:
		// Added then removed within the batch: the node ends absent
		idx.Remove(g.ref)
		return 1
	case g.has(OpRemove) && !g.has(OpAdd):
		idx.Remove(g.ref)
		return 1
	case addAndRemove:
		idx.Remove(g.ref)
		n++
	}

	if g.has(OpAdd) {
		w := g.write[OpAdd]
		if err := idx.Add(w.Ref, w.Bounds); err != nil {
			q.reportDuplicate(err)
		}
		n++
	}

	if g.has(OpUpdate) && g.last[OpUpdate] > g.last[OpAdd] {
		w := g.write[OpUpdate]
		idx.Update(w.Ref, w.Bounds)
		n++
	}
	return n
}

func (q *StagedWriteQueue) reportDuplicate(err error) {
	if !errors.Is(err, ErrAlreadyPresent) {
		log.Printf("partition: apply staged write: %v", err)
		return
	}
	q.dupOnce.Do(func() {
		log.Printf("partition: %v (further duplicates are not logged)", err)
	})
}
