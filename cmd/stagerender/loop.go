package main

import (
	"fmt"
	"log"
	"os"
	"stagerender/internal/compositor"
	"stagerender/internal/config"
	"stagerender/internal/demo"
	"stagerender/internal/graphics"
	"stagerender/internal/input"
	"stagerender/internal/profiling"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	slowFrame     = 25 * time.Millisecond
	cameraHeight  = 30
	minZoomRadius = 10
	maxZoomRadius = 400
)

// renderLoop owns the window and everything touched on the render goroutine.
type renderLoop struct {
	window   *glfw.Window
	renderer *graphics.Renderer
	comp     *compositor.Compositor
	pipeline *compositor.Pipeline
	target   *compositor.Target
	scene    *demo.Scene
	settings *config.Settings
	prof     *profiling.Profiler
	bindings *input.Bindings
	limiter  frameLimiter

	gen          uint64
	profileEvery int
	angle        float32
	radius       float32
	orbitStop    bool
	wireframe    bool
	profiling    bool
	overlay      bool
	fps          int
	vsync        bool
	fpsLimit     int
	traceFile    *os.File

	frames       int
	lastFPSCheck time.Time
	lastTime     time.Time
}

func (l *renderLoop) setupInput() {
	l.bindings = input.NewBindings()
	l.bindings.Attach(l.window)
	l.radius = 90
	l.overlay = true

	l.window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		l.target.Width, l.target.Height = w, h
		if h > 0 {
			l.scene.Camera.SetAspectRatio(float32(w) / float32(h))
		}
	})
	w, h := l.window.GetFramebufferSize()
	if h > 0 {
		l.scene.Camera.SetAspectRatio(float32(w) / float32(h))
	}
	// Force the first applySettings
	l.gen = ^uint64(0)
}

func (l *renderLoop) run() {
	l.lastTime = time.Now()
	l.lastFPSCheck = l.lastTime
	for !l.window.ShouldClose() {
		l.tick()
	}
	l.closeTrace()
}

func (l *renderLoop) tick() {
	l.prof.ResetFrame()
	now := time.Now()
	dt := float32(now.Sub(l.lastTime).Seconds())
	l.lastTime = now

	func() { defer l.prof.Track("glfw.PollEvents")(); glfw.PollEvents() }()

	l.handleInput(dt)
	l.applySettings()
	l.scene.OrbitCamera(l.angle, l.radius, cameraHeight)

	l.comp.Run()
	l.closeTrace()
	if l.overlay {
		func() {
			defer l.prof.Track("overlay")()
			l.renderer.DrawOverlay(l.overlayLines(), l.target.Width, l.target.Height)
		}()
	}

	func() { defer l.prof.Track("glfw.SwapBuffers")(); l.window.SwapBuffers() }()
	l.bindings.EndFrame()

	if took := time.Since(now); took > slowFrame && l.profiling {
		log.Printf("Slow frame: %v. Top tasks: %s", took, l.prof.TopN(5))
	} else if l.profileEvery > 0 && l.comp.FrameID()%uint64(l.profileEvery) == 0 {
		log.Printf("frame %d: %s", l.comp.FrameID(), l.prof.TopN(5))
	}
	l.updateFPS(now)

	if !l.vsync {
		l.limiter.Wait(l.fpsLimit)
	}
}

func (l *renderLoop) handleInput(dt float32) {
	b := l.bindings
	if b.JustPressed(input.ActionQuit) {
		l.window.SetShouldClose(true)
	}
	if b.JustPressed(input.ActionPauseOrbit) {
		l.orbitStop = !l.orbitStop
	}
	if !l.orbitStop {
		l.angle += dt
	}
	if b.Held(input.ActionOrbitLeft) {
		l.angle -= dt * 10
	}
	if b.Held(input.ActionOrbitRight) {
		l.angle += dt * 10
	}
	if b.Held(input.ActionZoomIn) {
		l.radius = max(minZoomRadius, l.radius-dt*60)
	}
	if b.Held(input.ActionZoomOut) {
		l.radius = min(maxZoomRadius, l.radius+dt*60)
	}

	if b.JustPressed(input.ActionToggleWireframe) {
		l.wireframe = !l.wireframe
		l.renderer.SetWireframe(l.wireframe)
	}
	if b.JustPressed(input.ActionToggleProfiling) {
		l.profiling = !l.profiling
	}
	if b.JustPressed(input.ActionToggleOverlay) {
		l.overlay = !l.overlay
	}
	if b.JustPressed(input.ActionDetailUp) {
		l.settings.ScaleDetail(1.25)
	}
	if b.JustPressed(input.ActionDetailDown) {
		l.settings.ScaleDetail(0.8)
	}
	if b.JustPressed(input.ActionMoreLights) {
		l.settings.SetMaxLights(l.settings.MaxLights() + 1)
	}
	if b.JustPressed(input.ActionFewerLights) {
		l.settings.SetMaxLights(l.settings.MaxLights() - 1)
	}
	if b.JustPressed(input.ActionDumpTrace) && l.traceFile == nil {
		l.startTrace()
	}
}

// applySettings pushes a changed configuration into the compositor. Index and window
// settings only take effect on restart.
func (l *renderLoop) applySettings() {
	gen := l.settings.Generation()
	if gen == l.gen {
		return
	}
	l.gen = gen

	cfg := l.settings.Config()
	d := cfg.Pipeline.DetailDistances
	l.pipeline.SetDetailLevelDistances(d[0], d[1], d[2], d[3])
	l.pipeline.SetPriority(cfg.Pipeline.Priority)
	l.comp.SetMaxLights(cfg.Render.MaxLights)
	l.target.ClearColour = clearColour(cfg.Pipeline.ClearColour)
	l.profileEvery = cfg.Render.ProfileEvery
	if cfg.Window.VSync != l.vsync {
		l.vsync = cfg.Window.VSync
		glfw.SwapInterval(swapInterval(l.vsync))
	}
	l.fpsLimit = cfg.Window.FPSLimit
	log.Printf("settings: detail %v, max lights %d", d, cfg.Render.MaxLights)
}

func (l *renderLoop) startTrace() {
	name := fmt.Sprintf("render-trace-%d.csv", l.comp.FrameID()+1)
	f, err := os.Create(name)
	if err != nil {
		log.Printf("render trace: %v", err)
		return
	}
	l.traceFile = f
	l.comp.DumpRenderTrace(f)
	log.Printf("writing render trace to %s", name)
}

func (l *renderLoop) closeTrace() {
	if l.traceFile == nil {
		return
	}
	if err := l.traceFile.Close(); err != nil {
		log.Printf("render trace: %v", err)
	}
	l.traceFile = nil
}

func (l *renderLoop) updateFPS(now time.Time) {
	l.frames++
	if now.Sub(l.lastFPSCheck) < time.Second {
		return
	}
	st := l.comp.Stats()
	l.window.SetTitle(fmt.Sprintf("stagerender | FPS: %d | nodes %d | draws %d | dropped %d",
		l.frames, st.NodesVisible, l.renderer.Draws(), st.RenderablesDropped))
	l.fps = l.frames
	l.frames = 0
	l.lastFPSCheck = now
}

func (l *renderLoop) overlayLines() []string {
	st := l.comp.Stats()
	d := l.pipeline.DetailLevelDistances()
	return []string{
		fmt.Sprintf("frame %d  fps %d  draws %d", st.FrameID, l.fps, l.renderer.Draws()),
		fmt.Sprintf("visible nodes %d  lights %d  queued %d", st.NodesVisible, st.LightsVisible, st.RenderablesQueued),
		fmt.Sprintf("dropped renderables %d  lights %d  writes %d", st.RenderablesDropped, st.LightsDropped, st.WritesApplied),
		fmt.Sprintf("detail %.0f/%.0f/%.0f/%.0f/%.0f  max lights %d", d[0], d[1], d[2], d[3], d[4], l.settings.MaxLights()),
		l.prof.TopN(3),
		"",
		"A/D orbit  W/S zoom  space pause  F wireframe  +/- detail  [/] lights",
		"T trace  P profile  H overlay  esc quit",
	}
}
