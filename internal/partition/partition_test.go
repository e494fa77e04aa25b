package partition

import (
	"math"
	"math/rand"
	"sort"
	"stagerender/internal/geom"
	"stagerender/internal/handle"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrustum(eye, target mgl32.Vec3) geom.Frustum {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
	return geom.NewFrustum(proj.Mul4(view))
}

func newRefs(kind Kind, n int) []NodeRef {
	arena := handle.NewArena[int](n)
	refs := make([]NodeRef, n)
	for i := range refs {
		refs[i] = NodeRef{Kind: kind, Handle: arena.Insert(i)}
	}
	return refs
}

func unitBox(center mgl32.Vec3) geom.AABB {
	return geom.AABBFromCenter(center, mgl32.Vec3{1, 1, 1})
}

func allVariants(t testing.TB) map[string]Index {
	t.Helper()
	out := make(map[string]Index)
	for _, v := range []string{VariantNull, VariantFrustum, VariantHash} {
		idx, err := NewIndex(v, Options{})
		require.NoError(t, err)
		out[v] = idx
	}
	return out
}

func sortedRefs(refs []NodeRef) []NodeRef {
	out := append([]NodeRef(nil), refs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func TestCoalesceRemoveThenAddLeavesNodePresent(t *testing.T) {
	for name, idx := range allVariants(t) {
		t.Run(name, func(t *testing.T) {
			ref := newRefs(KindActor, 1)[0]
			q := NewStagedWriteQueue()
			q.StageRemove(ref)
			q.StageAdd(ref, unitBox(mgl32.Vec3{}))
			q.ApplyAll(idx)
			assert.True(t, idx.Contains(ref))
		})
	}
}

func TestCoalesceAddThenRemoveLeavesNodeAbsent(t *testing.T) {
	for name, idx := range allVariants(t) {
		t.Run(name, func(t *testing.T) {
			ref := newRefs(KindActor, 1)[0]
			q := NewStagedWriteQueue()
			q.StageAdd(ref, unitBox(mgl32.Vec3{}))
			q.StageRemove(ref)
			q.ApplyAll(idx)
			assert.False(t, idx.Contains(ref))
			assert.Equal(t, 0, idx.Len())
		})
	}
}

func TestCoalesceRemoveThenAddReplacesExistingNode(t *testing.T) {
	idx := NewFrustumIndex()
	ref := newRefs(KindActor, 1)[0]
	q := NewStagedWriteQueue()
	q.StageAdd(ref, unitBox(mgl32.Vec3{}))
	q.ApplyAll(idx)

	moved := unitBox(mgl32.Vec3{5, 0, 0})
	q.StageRemove(ref)
	q.StageAdd(ref, moved)
	q.ApplyAll(idx)

	b, ok := idx.Bounds(ref)
	require.True(t, ok)
	assert.Equal(t, moved, b)
}

func TestApplyEmptyBatchIsNoop(t *testing.T) {
	hash, err := NewHashIndex(8, 64)
	require.NoError(t, err)

	refs := newRefs(KindGeom, 3)
	q := NewStagedWriteQueue()
	for i, r := range refs {
		q.StageAdd(r, unitBox(mgl32.Vec3{float32(i) * 10, 0, 0}))
	}
	assert.Equal(t, 3, q.ApplyAll(hash))

	before := make(map[NodeRef]geom.AABB)
	for _, r := range refs {
		b, _ := hash.Bounds(r)
		before[r] = b
	}
	cells := hash.CellCount()

	for i := 0; i < 3; i++ {
		assert.Equal(t, 0, q.ApplyAll(hash))
	}
	assert.Equal(t, 3, hash.Len())
	assert.Equal(t, cells, hash.CellCount())
	for _, r := range refs {
		b, ok := hash.Bounds(r)
		require.True(t, ok)
		assert.Equal(t, before[r], b)
	}
}

func TestCoalesceKeepsLastWriteOfEachOp(t *testing.T) {
	idx := NewFrustumIndex()
	ref := newRefs(KindActor, 1)[0]
	q := NewStagedWriteQueue()

	q.StageAdd(ref, unitBox(mgl32.Vec3{}))
	q.StageUpdate(ref, unitBox(mgl32.Vec3{1, 0, 0}))
	q.StageUpdate(ref, unitBox(mgl32.Vec3{2, 0, 0}))
	q.StageUpdate(ref, unitBox(mgl32.Vec3{3, 0, 0}))
	assert.Equal(t, 4, q.Len())

	assert.Equal(t, 2, q.ApplyAll(idx), "one add and one update survive")
	b, ok := idx.Bounds(ref)
	require.True(t, ok)
	assert.Equal(t, unitBox(mgl32.Vec3{3, 0, 0}), b)
	assert.Equal(t, 0, q.Len())
}

func TestCoalesceUpdateBeforeAddIsSuperseded(t *testing.T) {
	idx := NewFrustumIndex()
	ref := newRefs(KindActor, 1)[0]
	q := NewStagedWriteQueue()

	q.StageUpdate(ref, unitBox(mgl32.Vec3{9, 0, 0}))
	q.StageAdd(ref, unitBox(mgl32.Vec3{}))
	q.ApplyAll(idx)

	b, ok := idx.Bounds(ref)
	require.True(t, ok)
	assert.Equal(t, unitBox(mgl32.Vec3{}), b)
}

func TestUpdateAndRemoveOfAbsentNodeAreSilent(t *testing.T) {
	for name, idx := range allVariants(t) {
		t.Run(name, func(t *testing.T) {
			ref := newRefs(KindActor, 1)[0]
			q := NewStagedWriteQueue()
			q.StageUpdate(ref, unitBox(mgl32.Vec3{}))
			assert.NotPanics(t, func() { q.ApplyAll(idx) })
			assert.False(t, idx.Contains(ref))

			q.StageRemove(ref)
			assert.NotPanics(t, func() { q.ApplyAll(idx) })
			assert.False(t, idx.Update(ref, unitBox(mgl32.Vec3{})))
			assert.False(t, idx.Remove(ref))
		})
	}
}

func TestConcurrentStaging(t *testing.T) {
	idx := NewFrustumIndex()
	q := NewStagedWriteQueue()

	const producers = 8
	const perProducer = 100
	all := newRefs(KindActor, producers*perProducer)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		refs := all[p*perProducer : (p+1)*perProducer]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, r := range refs {
				q.StageAdd(r, unitBox(mgl32.Vec3{float32(i), 0, 0}))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
	assert.Equal(t, producers*perProducer, q.ApplyAll(idx))
	assert.Equal(t, producers*perProducer, idx.Len())
	assert.Equal(t, 0, q.Len())
}

func TestEndToEndMoveOutOfView(t *testing.T) {
	for _, name := range []string{VariantFrustum, VariantHash} {
		t.Run(name, func(t *testing.T) {
			idx, err := NewIndex(name, Options{})
			require.NoError(t, err)
			q := NewStagedWriteQueue()
			actor := newRefs(KindActor, 1)[0]
			f := testFrustum(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{})

			q.StageAdd(actor, unitBox(mgl32.Vec3{}))
			q.ApplyAll(idx)

			var vis Visible
			idx.QueryVisible(&f, &vis)
			assert.Equal(t, []NodeRef{actor}, vis.Geometry)

			q.StageUpdate(actor, unitBox(mgl32.Vec3{1000, 0, 0}))
			// Not yet applied: the index still reports the old placement
			vis.Reset()
			idx.QueryVisible(&f, &vis)
			assert.Len(t, vis.Geometry, 1)

			q.ApplyAll(idx)
			vis.Reset()
			idx.QueryVisible(&f, &vis)
			assert.Empty(t, vis.Geometry)
		})
	}
}

func TestDirectionalLightsAlwaysVisible(t *testing.T) {
	f := testFrustum(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{})
	sun := newRefs(KindDirectionalLight, 1)[0]
	lamps := newRefs(KindPointLight, 2)

	for name, idx := range allVariants(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Add(sun, geom.InfiniteAABB()))
			require.NoError(t, idx.Add(lamps[0], unitBox(mgl32.Vec3{0, 0, 0})))
			require.NoError(t, idx.Add(lamps[1], unitBox(mgl32.Vec3{0, 0, 500})))

			var vis Visible
			idx.QueryVisible(&f, &vis)
			assert.Contains(t, vis.Lights, sun)
			assert.Contains(t, vis.Lights, lamps[0])
			if name == VariantNull {
				assert.Len(t, vis.Lights, 3)
			} else {
				assert.NotContains(t, vis.Lights, lamps[1])
			}
			assert.Empty(t, vis.Geometry)
		})
	}
}

func TestHashMatchesFrustumScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	kinds := []Kind{KindActor, KindGeom, KindParticleSystem, KindPointLight, KindSpotLight}

	for scene := 0; scene < 10; scene++ {
		linear := NewFrustumIndex()
		hash, err := NewHashIndex(float32(4+rng.Intn(28)), 64)
		require.NoError(t, err)

		var refs []NodeRef
		for _, k := range kinds {
			refs = append(refs, newRefs(k, 80)...)
		}
		q1, q2 := NewStagedWriteQueue(), NewStagedWriteQueue()
		randomBox := func() geom.AABB {
			c := mgl32.Vec3{rng.Float32()*300 - 150, rng.Float32()*300 - 150, rng.Float32()*300 - 150}
			// Occasionally huge so some nodes leave the grid
			s := rng.Float32()*6 + 0.1
			if rng.Intn(20) == 0 {
				s = 120
			}
			return geom.AABBFromCenter(c, mgl32.Vec3{s, s * rng.Float32(), s})
		}
		for _, r := range refs {
			b := randomBox()
			q1.StageAdd(r, b)
			q2.StageAdd(r, b)
		}
		// Move and drop some nodes in a second batch
		for _, r := range refs {
			switch rng.Intn(5) {
			case 0:
				b := randomBox()
				q1.StageUpdate(r, b)
				q2.StageUpdate(r, b)
			case 1:
				q1.StageRemove(r)
				q2.StageRemove(r)
			}
		}
		q1.ApplyAll(linear)
		q2.ApplyAll(hash)
		require.Equal(t, linear.Len(), hash.Len())

		for cam := 0; cam < 10; cam++ {
			eye := mgl32.Vec3{rng.Float32()*200 - 100, rng.Float32()*200 - 100, rng.Float32()*200 - 100}
			yaw := rng.Float32() * 2 * math.Pi
			target := eye.Add(mgl32.Vec3{float32(math.Cos(float64(yaw))), rng.Float32() - 0.5, float32(math.Sin(float64(yaw)))})
			f := testFrustum(eye, target)

			var a, b Visible
			linear.QueryVisible(&f, &a)
			hash.QueryVisible(&f, &b)
			require.Equal(t, sortedRefs(a.Geometry), sortedRefs(b.Geometry), "scene %d camera %d", scene, cam)
			require.Equal(t, sortedRefs(a.Lights), sortedRefs(b.Lights), "scene %d camera %d", scene, cam)
		}
	}
}

func TestHashQueryReturnsEachNodeOnce(t *testing.T) {
	hash, err := NewHashIndex(1, 4096)
	require.NoError(t, err)
	ref := newRefs(KindGeom, 1)[0]
	require.NoError(t, hash.Add(ref, geom.AABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{3, 3, 3})))
	assert.Equal(t, 7*7*7, hash.CellCount())

	f := testFrustum(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{})
	var vis Visible
	hash.QueryVisible(&f, &vis)
	assert.Equal(t, []NodeRef{ref}, vis.Geometry)
}

func TestHashUpdateMovesCells(t *testing.T) {
	hash, err := NewHashIndex(10, 64)
	require.NoError(t, err)
	ref := newRefs(KindActor, 1)[0]

	require.NoError(t, hash.Add(ref, geom.NewAABB(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{2, 2, 2})))
	assert.Equal(t, 1, hash.CellCount())

	// Same cell
	assert.True(t, hash.Update(ref, geom.NewAABB(mgl32.Vec3{3, 3, 3}, mgl32.Vec3{4, 4, 4})))
	assert.Equal(t, 1, hash.CellCount())

	// Straddles two cells along x
	assert.True(t, hash.Update(ref, geom.NewAABB(mgl32.Vec3{8, 1, 1}, mgl32.Vec3{12, 2, 2})))
	assert.Equal(t, 2, hash.CellCount())

	// Too many cells: kept outside the grid
	assert.True(t, hash.Update(ref, geom.NewAABB(mgl32.Vec3{-500, -500, -500}, mgl32.Vec3{500, 500, 500})))
	assert.Equal(t, 0, hash.CellCount())
	assert.True(t, hash.Contains(ref))

	assert.True(t, hash.Remove(ref))
	assert.Equal(t, 0, hash.Len())
	assert.Equal(t, 0, hash.CellCount())
}

func TestNewIndexVariants(t *testing.T) {
	tests := []struct {
		variant string
		want    any
	}{
		{VariantNull, &NullIndex{}},
		{VariantFrustum, &FrustumIndex{}},
		{VariantHash, &HashIndex{}},
	}
	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			idx, err := NewIndex(tt.variant, Options{})
			require.NoError(t, err)
			assert.IsType(t, tt.want, idx)
		})
	}

	_, err := NewIndex("octree", Options{})
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestNewHashIndexRejectsBadSettings(t *testing.T) {
	_, err := NewHashIndex(0, 10)
	assert.Error(t, err)
	_, err = NewHashIndex(-4, 10)
	assert.Error(t, err)
	_, err = NewHashIndex(4, 0)
	assert.Error(t, err)
}
