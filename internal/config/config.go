package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"stagerender/internal/batch"
	"stagerender/internal/partition"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the file-backed configuration of the stagerender binaries.
type Config struct {
	Window   Window   `toml:"window" yaml:"window"`
	Stage    Stage    `toml:"stage" yaml:"stage"`
	Pipeline Pipeline `toml:"pipeline" yaml:"pipeline"`
	Render   Render   `toml:"render" yaml:"render"`
}

type Window struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	VSync  bool   `toml:"vsync" yaml:"vsync"`
	// FPSLimit caps the frame rate when vsync is off; 0 means uncapped.
	FPSLimit int `toml:"fps_limit" yaml:"fps_limit"`
}

// Stage selects the spatial index used for culling.
type Stage struct {
	Index           string  `toml:"index" yaml:"index"`
	CellSize        float32 `toml:"cell_size" yaml:"cell_size"`
	MaxCellsPerNode int     `toml:"max_cells_per_node" yaml:"max_cells_per_node"`
}

// IndexOptions returns the partition options for the configured index.
func (s Stage) IndexOptions() partition.Options {
	return partition.Options{CellSize: s.CellSize, MaxCellsPerNode: s.MaxCellsPerNode}
}

type Pipeline struct {
	Priority int32 `toml:"priority" yaml:"priority"`
	// DetailDistances are the nearest, near, mid and far thresholds.
	DetailDistances [4]float32 `toml:"detail_distances" yaml:"detail_distances"`
	ClearColour     [4]float32 `toml:"clear_colour" yaml:"clear_colour"`
}

type Render struct {
	MaxLights   int `toml:"max_lights" yaml:"max_lights"`
	PrepWorkers int `toml:"prep_workers" yaml:"prep_workers"`
	// ProfileEvery logs the slowest sections every n frames; 0 disables it.
	ProfileEvery int `toml:"profile_every" yaml:"profile_every"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: Window{Title: "stagerender", Width: 1280, Height: 720, VSync: true},
		Stage: Stage{
			Index:           partition.VariantHash,
			CellSize:        partition.DefaultCellSize,
			MaxCellsPerNode: partition.DefaultMaxCellsPerNode,
		},
		Pipeline: Pipeline{
			DetailDistances: [4]float32{25, 50, 100, 200},
			ClearColour:     [4]float32{0.1, 0.1, 0.12, 1},
		},
		Render: Render{
			MaxLights:    batch.MaxLightsPerRenderable,
			PrepWorkers:  1,
			ProfileEvery: 0,
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if c.Window.FPSLimit < 0 {
		return fmt.Errorf("%w: fps limit %d", ErrInvalid, c.Window.FPSLimit)
	}
	switch c.Stage.Index {
	case partition.VariantNull, partition.VariantFrustum, partition.VariantHash:
	default:
		return fmt.Errorf("%w: stage index %q", ErrInvalid, c.Stage.Index)
	}
	if c.Stage.Index == partition.VariantHash {
		if c.Stage.CellSize <= 0 {
			return fmt.Errorf("%w: cell size %v", ErrInvalid, c.Stage.CellSize)
		}
		if c.Stage.MaxCellsPerNode <= 0 {
			return fmt.Errorf("%w: max cells per node %d", ErrInvalid, c.Stage.MaxCellsPerNode)
		}
	}
	d := c.Pipeline.DetailDistances
	for i := range d {
		if d[i] < 0 || (i > 0 && d[i] < d[i-1]) {
			return fmt.Errorf("%w: detail distances %v must be non-negative and ascending", ErrInvalid, d)
		}
	}
	if c.Render.MaxLights < 0 || c.Render.MaxLights > batch.MaxLightsPerRenderable {
		return fmt.Errorf("%w: max lights %d outside [0,%d]", ErrInvalid, c.Render.MaxLights, batch.MaxLightsPerRenderable)
	}
	if c.Render.PrepWorkers < 1 {
		return fmt.Errorf("%w: prep workers %d", ErrInvalid, c.Render.PrepWorkers)
	}
	if c.Render.ProfileEvery < 0 {
		return fmt.Errorf("%w: profile interval %d", ErrInvalid, c.Render.ProfileEvery)
	}
	return nil
}

// Load reads a TOML or YAML file, chosen by extension, over the defaults and validates it.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext (".toml", ".yaml" or ".yml").
func Parse(data []byte, ext string) (Config, error) {
	cfg := Default()
	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("%w: unsupported format %q", ErrInvalid, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
