package config

import (
	"stagerender/internal/batch"
	"sync"
)

// Settings holds the live configuration. Setters clamp to usable values instead of failing,
// so a running renderer can take whatever a reload hands it.
type Settings struct {
	mu  sync.RWMutex
	cfg Config
	gen uint64
}

// NewSettings starts from cfg.
func NewSettings(cfg Config) *Settings {
	return &Settings{cfg: cfg}
}

// Config returns a copy of the current configuration.
func (s *Settings) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Generation increases on every change, so a render loop can cheaply spot reloads.
func (s *Settings) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Replace swaps in a validated configuration.
func (s *Settings) Replace(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.gen++
}

func (s *Settings) MaxLights() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Render.MaxLights
}

// SetMaxLights sets the per-renderable light budget
func (s *Settings) SetMaxLights(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n > batch.MaxLightsPerRenderable {
		n = batch.MaxLightsPerRenderable
	}
	s.cfg.Render.MaxLights = n
	s.gen++
}

func (s *Settings) DetailDistances() [4]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Pipeline.DetailDistances
}

// SetDetailDistances sets the LOD thresholds. Negative values become 0 and each
// threshold is raised to at least the previous one.
func (s *Settings) SetDetailDistances(d [4]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range d {
		if d[i] < 0 {
			d[i] = 0
		}
		if i > 0 && d[i] < d[i-1] {
			d[i] = d[i-1]
		}
	}
	s.cfg.Pipeline.DetailDistances = d
	s.gen++
}

// ScaleDetail multiplies every threshold by f, clamped to [0.25, 4].
func (s *Settings) ScaleDetail(f float32) {
	if f < 0.25 {
		f = 0.25
	}
	if f > 4 {
		f = 4
	}
	d := s.DetailDistances()
	for i := range d {
		d[i] *= f
	}
	s.SetDetailDistances(d)
}
