package scene

import (
	"fmt"
	"stagerender/internal/handle"
	"stagerender/internal/partition"
)

// World owns the stages. Stages are referenced by handle so pipelines never keep a
// destroyed stage alive.
type World struct {
	stages *handle.Arena[*Stage]
}

func NewWorld() *World {
	return &World{stages: handle.NewArena[*Stage](4)}
}

// NewStage creates a stage culled by the named index variant.
func (w *World) NewStage(name, variant string, opts partition.Options) (*Stage, error) {
	idx, err := partition.NewIndex(variant, opts)
	if err != nil {
		return nil, fmt.Errorf("new stage %q: %w", name, err)
	}
	s := newStage(name, idx)
	s.id = w.stages.Insert(s)
	return s, nil
}

// Stage returns the stage for h, or false once it has been destroyed.
func (w *World) Stage(h handle.Handle) (*Stage, bool) {
	return w.stages.Get(h)
}

// DestroyStage removes a stage. Pipelines rendering it deactivate on their next run.
func (w *World) DestroyStage(h handle.Handle) bool {
	return w.stages.Remove(h)
}

// StageCount returns the number of live stages.
func (w *World) StageCount() int {
	return w.stages.Len()
}
