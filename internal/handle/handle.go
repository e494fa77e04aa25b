package handle

import (
	"fmt"
	"sync"
)

// Handle is a weak reference into an Arena. The zero Handle never refers to a live slot.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the invalid handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

// Index returns the slot index of the handle.
func (h Handle) Index() uint32 { return h.index }

// Generation returns the generation the slot had when the handle was issued.
func (h Handle) Generation() uint32 { return h.gen }

// Less orders handles by slot index, then generation.
func (h Handle) Less(o Handle) bool {
	if h.index != o.index {
		return h.index < o.index
	}
	return h.gen < o.gen
}

func (h Handle) String() string {
	return fmt.Sprintf("%d:%d", h.index, h.gen)
}

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena stores values in fixed slots addressed by generation-checked handles.
// A freed slot is reused with a bumped generation, so stale handles resolve to nothing.
type Arena[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []uint32
	count int
}

// NewArena creates an arena with room for capacity values before growing.
func NewArena[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		slots: make([]slot[T], 0, capacity),
	}
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.count++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = v
		s.live = true
		return Handle{index: idx, gen: s.gen}
	}

	a.slots = append(a.slots, slot[T]{value: v, gen: 1, live: true})
	return Handle{index: uint32(len(a.slots) - 1), gen: 1}
}

// Get returns the value for h, or false if the slot was freed or reused.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var zero T
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return zero, false
	}
	s := a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return zero, false
	}
	return s.value, true
}

// Contains reports whether h refers to a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	_, ok := a.Get(h)
	return ok
}

// Remove frees the slot behind h. It returns false if h was already stale.
func (a *Arena[T]) Remove(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if h.IsZero() || int(h.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return false
	}

	var zero T
	s.value = zero
	s.live = false
	s.gen++
	if s.gen == 0 {
		// Wrapped: retire the slot instead of handing out generation 0.
		a.count--
		return true
	}
	a.free = append(a.free, h.index)
	a.count--
	return true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Snapshot appends every live handle and value to the given slices and returns them.
// Iteration happens on the copy, so callers never hold the arena lock while working.
func (a *Arena[T]) Snapshot(handles []Handle, values []T) ([]Handle, []T) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		handles = append(handles, Handle{index: uint32(i), gen: s.gen})
		values = append(values, s.value)
	}
	return handles, values
}
