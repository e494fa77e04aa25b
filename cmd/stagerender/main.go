package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"runtime"
	"stagerender/internal/compositor"
	"stagerender/internal/config"
	"stagerender/internal/demo"
	"stagerender/internal/graphics"
	"stagerender/internal/profiling"
	"stagerender/internal/scene"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	cfgPath := flag.String("config", "stagerender.toml", "TOML or YAML config file, reloaded on change")
	actors := flag.Int("actors", 400, "actors in the scene")
	seed := flag.Int64("seed", 1, "scene seed")
	flag.Parse()

	cfg, watch, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	if err := glfw.Init(); err != nil {
		log.Fatal(err)
	}
	defer glfw.Terminate()

	window, err := setupWindow(cfg.Window)
	if err != nil {
		log.Fatal(err)
	}

	r, err := graphics.NewRenderer()
	if err != nil {
		log.Fatal(err)
	}
	defer r.Dispose()

	world := scene.NewWorld()
	stage, err := world.NewStage("demo", cfg.Stage.Index, cfg.Stage.IndexOptions())
	if err != nil {
		log.Fatal(err)
	}
	opts := demo.DefaultOptions()
	opts.Actors = *actors
	opts.Seed = *seed
	s := demo.Build(stage, opts)

	fbW, fbH := window.GetFramebufferSize()
	target := compositor.NewTarget("window", fbW, fbH)
	prof := profiling.New()
	comp := compositor.New(world, r, target,
		compositor.WithMaxLights(cfg.Render.MaxLights),
		compositor.WithPrepWorkers(cfg.Render.PrepWorkers),
		compositor.WithProfiler(prof),
	)
	defer comp.Close()

	pipeline, err := comp.CreatePipeline("main", stage, s.Camera)
	if err != nil {
		log.Fatal(err)
	}
	pipeline.Activate()

	settings := config.NewSettings(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if watch {
		go func() {
			if err := config.Watch(ctx, *cfgPath, settings, nil); err != nil {
				log.Printf("config watch stopped: %v", err)
			}
		}()
	}
	go demo.RunLoader(ctx, s, 16*time.Millisecond)

	loop := &renderLoop{
		window:   window,
		renderer: r,
		comp:     comp,
		pipeline: pipeline,
		target:   target,
		scene:    s,
		settings: settings,
		prof:     prof,
	}
	loop.setupInput()
	loop.run()
}

// loadConfig reads path, falling back to the defaults when it does not exist. It reports
// whether the file should be watched.
func loadConfig(path string) (config.Config, bool, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("no config at %s, using defaults", path)
		return config.Default(), false, nil
	}
	if err != nil {
		return config.Config{}, false, err
	}
	return cfg, true, nil
}

func setupWindow(w config.Window) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(w.Width, w.Height, w.Title, nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(swapInterval(w.VSync))
	return window, nil
}

func swapInterval(vsync bool) int {
	if vsync {
		return 1
	}
	return 0
}

func clearColour(c [4]float32) mgl32.Vec4 {
	return mgl32.Vec4{c[0], c[1], c[2], c[3]}
}
