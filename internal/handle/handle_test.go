package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaInsertGet(t *testing.T) {
	a := NewArena[string](4)
	h := a.Insert("actor")

	require.False(t, h.IsZero())
	v, ok := a.Get(h)
	require.True(t, ok)
	assert.Equal(t, "actor", v)
	assert.Equal(t, 1, a.Len())
}

func TestArenaStaleHandleAfterReuse(t *testing.T) {
	a := NewArena[int](1)
	first := a.Insert(1)
	require.True(t, a.Remove(first))

	second := a.Insert(2)
	assert.Equal(t, first.Index(), second.Index(), "slot should be reused")
	assert.NotEqual(t, first.Generation(), second.Generation())

	_, ok := a.Get(first)
	assert.False(t, ok, "stale handle must not resolve to the new value")

	v, ok := a.Get(second)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestArenaRemoveTwice(t *testing.T) {
	a := NewArena[int](0)
	h := a.Insert(7)
	assert.True(t, a.Remove(h))
	assert.False(t, a.Remove(h))
	assert.Equal(t, 0, a.Len())
}

func TestZeroHandle(t *testing.T) {
	a := NewArena[int](0)
	a.Insert(1)

	var h Handle
	assert.True(t, h.IsZero())
	assert.False(t, a.Contains(h))
	assert.False(t, a.Remove(h))
}

func TestArenaSnapshot(t *testing.T) {
	a := NewArena[int](0)
	h1 := a.Insert(10)
	h2 := a.Insert(20)
	h3 := a.Insert(30)
	a.Remove(h2)

	handles, values := a.Snapshot(nil, nil)
	assert.Equal(t, []Handle{h1, h3}, handles)
	assert.Equal(t, []int{10, 30}, values)
}

func TestHandleLess(t *testing.T) {
	a := Handle{index: 1, gen: 1}
	b := Handle{index: 2, gen: 1}
	c := Handle{index: 2, gen: 3}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.False(t, a.Less(a))
}
