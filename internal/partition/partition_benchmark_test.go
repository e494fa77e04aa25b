package partition

import (
	"math/rand"
	"stagerender/internal/geom"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func populate(b *testing.B, idx Index, n int) {
	b.Helper()
	rng := rand.New(rand.NewSource(1))
	q := NewStagedWriteQueue()
	for _, r := range newRefs(KindActor, n) {
		c := mgl32.Vec3{rng.Float32()*2000 - 1000, rng.Float32()*200 - 100, rng.Float32()*2000 - 1000}
		q.StageAdd(r, geom.AABBFromCenter(c, mgl32.Vec3{2, 2, 2}))
	}
	q.ApplyAll(idx)
}

func benchmarkQuery(b *testing.B, variant string) {
	idx, err := NewIndex(variant, Options{})
	if err != nil {
		b.Fatal(err)
	}
	populate(b, idx, 20000)
	f := testFrustum(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 10, -1})
	var vis Visible

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vis.Reset()
		idx.QueryVisible(&f, &vis)
	}
}

func BenchmarkQueryFrustum(b *testing.B) { benchmarkQuery(b, VariantFrustum) }
func BenchmarkQueryHash(b *testing.B)    { benchmarkQuery(b, VariantHash) }

func BenchmarkApplyMoves(b *testing.B) {
	idx, _ := NewHashIndex(DefaultCellSize, DefaultMaxCellsPerNode)
	refs := newRefs(KindActor, 1000)
	q := NewStagedWriteQueue()
	for _, r := range refs {
		q.StageAdd(r, unitBox(mgl32.Vec3{}))
	}
	q.ApplyAll(idx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		off := float32(i % 64)
		for _, r := range refs {
			q.StageUpdate(r, unitBox(mgl32.Vec3{off, 0, 0}))
		}
		q.ApplyAll(idx)
	}
}
