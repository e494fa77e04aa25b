package profiling

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackAccumulates(t *testing.T) {
	p := New()
	for i := 0; i < 3; i++ {
		stop := p.Track("section")
		time.Sleep(time.Millisecond)
		stop()
	}
	snap := p.Snapshot()
	assert.GreaterOrEqual(t, snap["section"], 3*time.Millisecond)
	assert.Equal(t, snap["section"], p.Total())

	p.ResetFrame()
	assert.Empty(t, p.Snapshot())
	assert.Equal(t, uint64(1), p.Frames())
}

func TestNilProfilerIsNoop(t *testing.T) {
	var p *Profiler
	assert.NotPanics(t, func() {
		p.Track("x")()
		p.ResetFrame()
	})
}

func TestTopN(t *testing.T) {
	p := New()
	p.frameTotals["a"] = 4200 * time.Microsecond
	p.frameTotals["b"] = 2 * time.Millisecond
	p.frameTotals["c"] = 100 * time.Microsecond

	assert.Equal(t, "a:4.2ms, b:2ms", p.TopN(2))
	assert.Equal(t, "a:4.2ms, b:2ms, c:0.1ms", p.TopN(10))
	assert.Equal(t, "", p.TopN(0))
}

func TestConcurrentTrack(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Track("work")()
			}
		}()
	}
	wg.Wait()
	assert.Contains(t, p.Snapshot(), "work")
}
