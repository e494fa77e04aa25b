package batch

import (
	"fmt"
	"sort"
	"stagerender/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

type group struct {
	key     GroupKey
	members []int32
}

// passLayer holds the opaque groups of one material pass index.
type passLayer struct {
	groups []group
	byKey  map[GroupKey]int
	sorted bool
}

func (l *passLayer) add(key GroupKey, item int32) {
	gi, ok := l.byKey[key]
	if !ok {
		gi = len(l.groups)
		l.byKey[key] = gi
		if gi < cap(l.groups) {
			// Reuse member storage from an earlier frame
			l.groups = l.groups[:gi+1]
			l.groups[gi].key = key
			l.groups[gi].members = l.groups[gi].members[:0]
		} else {
			l.groups = append(l.groups, group{key: key})
		}
		l.sorted = false
	}
	l.groups[gi].members = append(l.groups[gi].members, item)
}

func (l *passLayer) sort() {
	if l.sorted {
		return
	}
	sort.Slice(l.groups, func(i, j int) bool { return l.groups[i].key.Less(l.groups[j].key) })
	for i := range l.groups {
		l.byKey[l.groups[i].key] = i
	}
	l.sorted = true
}

type blendedEntry struct {
	item     int32
	pass     int32
	distance float32
	key      GroupKey
}

// Queue collects the renderables of one pipeline pass and replays them to a Visitor
// grouped by GroupKey. Blended passes are replayed last, farthest first.
// A Queue is used by a single goroutine.
type Queue struct {
	cameraPos mgl32.Vec3
	near      geom.Plane

	items   []Renderable
	layers  []passLayer
	blended []blendedEntry
	dropped int
}

func NewQueue() *Queue {
	return &Queue{}
}

// Reset sets the camera used for blended ordering. Call it before inserting.
func (q *Queue) Reset(cameraPos mgl32.Vec3, near geom.Plane) {
	q.cameraPos = cameraPos
	q.near = near
}

// CameraPosition returns the camera position set by Reset.
func (q *Queue) CameraPosition() mgl32.Vec3 { return q.cameraPos }

// NearDistance returns the signed distance from the camera near plane to the centre of r.
func (q *Queue) NearDistance(r *Renderable) float32 {
	return q.near.Distance(r.Bounds.Center())
}

func invalid(format string, args ...any) bool {
	if debugChecks {
		panic(fmt.Sprintf("batch: "+format, args...))
	}
	return false
}

// Insert queues r. Renderables with no indices are dropped. Renderables missing vertex,
// index or material data, or with an unknown blend type, are skipped (a panic in
// stagedebug builds). It reports whether anything was queued.
func (q *Queue) Insert(r Renderable) bool {
	if r.Vertices == nil || r.Indices == nil || r.Material == nil || len(r.Material.Passes) == 0 {
		q.dropped++
		return invalid("renderable %v is missing vertex, index or material data", r.Node)
	}
	if r.Indices.IndexCount() == 0 {
		q.dropped++
		return false
	}
	for i := range r.Material.Passes {
		if b := r.Material.Passes[i].Blend; !b.Valid() {
			q.dropped++
			return invalid("renderable %v pass %d has invalid blend type %v", r.Node, i, b)
		}
	}
	if r.LightCount > MaxLightsPerRenderable {
		r.LightCount = MaxLightsPerRenderable
	}

	item := int32(len(q.items))
	q.items = append(q.items, r)
	stored := &q.items[item]

	for len(q.layers) < len(r.Material.Passes) {
		q.layers = append(q.layers, passLayer{byKey: make(map[GroupKey]int)})
	}
	for i := range r.Material.Passes {
		pass := &r.Material.Passes[i]
		key := KeyFor(r.Priority, pass)
		if pass.Blend.IsBlended() {
			q.blended = append(q.blended, blendedEntry{
				item:     item,
				pass:     int32(i),
				distance: q.NearDistance(stored),
				key:      key,
			})
			continue
		}
		q.layers[i].add(key, item)
	}
	return true
}

// Len returns the number of queued renderables.
func (q *Queue) Len() int { return len(q.items) }

// PassCount returns the number of opaque pass layers in use.
func (q *Queue) PassCount() int {
	n := 0
	for i := range q.layers {
		if len(q.layers[i].groups) > 0 {
			n = i + 1
		}
	}
	return n
}

// GroupCount returns the number of opaque groups in pass layer p.
func (q *Queue) GroupCount(p int) int {
	if p < 0 || p >= len(q.layers) {
		return 0
	}
	return len(q.layers[p].groups)
}

// BlendedCount returns the number of blended pass draws.
func (q *Queue) BlendedCount() int { return len(q.blended) }

// Dropped returns how many renderables were rejected since the last Clear.
func (q *Queue) Dropped() int { return q.dropped }

// Clear empties the queue and keeps its storage for the next frame.
func (q *Queue) Clear() {
	clear(q.items)
	q.items = q.items[:0]
	for i := range q.layers {
		l := &q.layers[i]
		l.groups = l.groups[:0]
		clear(l.byKey)
		l.sorted = true
	}
	q.blended = q.blended[:0]
	q.dropped = 0
}

// Traverse replays the queue to v: opaque pass layers in order with groups in ascending
// key order, then every blended pass from back to front.
func (q *Queue) Traverse(v Visitor, frameID uint64) {
	v.StartTraversal(q, frameID)

	for p := range q.layers {
		layer := &q.layers[p]
		layer.sort()

		var prevKey *GroupKey
		var prevPass *MaterialPass
		for gi := range layer.groups {
			g := &layer.groups[gi]
			v.ChangeRenderGroup(prevKey, &g.key)
			prevKey = &g.key

			for _, it := range g.members {
				r := &q.items[it]
				pass := &r.Material.Passes[p]
				if pass != prevPass {
					v.ChangeMaterialPass(prevPass, pass)
					prevPass = pass
				}
				iterate(v, r, pass)
			}
		}
	}

	// Farthest first; ties keep insertion order
	sort.SliceStable(q.blended, func(i, j int) bool {
		return q.blended[i].distance > q.blended[j].distance
	})
	var prevKey *GroupKey
	var prevPass *MaterialPass
	for i := range q.blended {
		e := &q.blended[i]
		if prevKey == nil || *prevKey != e.key {
			v.ChangeRenderGroup(prevKey, &e.key)
			prevKey = &e.key
		}
		r := &q.items[e.item]
		pass := &r.Material.Passes[e.pass]
		if pass != prevPass {
			v.ChangeMaterialPass(prevPass, pass)
			prevPass = pass
		}
		iterate(v, r, pass)
	}

	v.EndTraversal(q)
}

func iterate(v Visitor, r *Renderable, pass *MaterialPass) {
	lights := r.ActiveLights()

	switch pass.Iteration {
	case IterateN:
		n := pass.MaxIterations
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			v.ApplyLights(lights)
			v.Visit(r, pass, i)
		}
	case IterateOncePerLight:
		n := len(lights)
		if pass.MaxIterations > 0 && n > pass.MaxIterations {
			n = pass.MaxIterations
		}
		var prev *Light
		for i := 0; i < n; i++ {
			next := &lights[i]
			v.ChangeLight(prev, next)
			v.Visit(r, pass, i)
			prev = next
		}
	default:
		v.ApplyLights(lights)
		v.Visit(r, pass, 0)
	}
}
