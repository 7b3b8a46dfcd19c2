package engine

import (
	"ToonForest/internal/config"
	"ToonForest/internal/logger"
	"ToonForest/internal/renderer"
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// statsEvery is how many frames pass between two debug frame reports.
const statsEvery = 300

// Engine owns the window, the graphics resources and the tick loop.
type Engine struct {
	cfg    *config.Config
	window *glfw.Window

	device   *renderer.OpenGLDevice
	programs *renderer.ProgramRegistry
	targets  *renderer.TargetManager
	textures *renderer.TextureManager
	meshes   map[string]*renderer.MeshBuffer
	frame    *renderer.FrameRenderer
	camera   *renderer.Camera

	queue CommandQueue
	state State

	lastX, lastY float64
	firstMouse   bool
	frames       int
}

func New(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg, firstMouse: true}
}

// Run opens the window and ticks until it is closed or ctx is cancelled. Any
// startup failure is returned and nothing is retried.
func (e *Engine) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initialize glfw: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(e.cfg.Window.Width, e.cfg.Window.Height, e.cfg.Window.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	e.window = window
	defer window.Destroy()
	decorateWindow(window, e.cfg.ClearColor)

	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return fmt.Errorf("initialize OpenGL: %w", err)
	}

	defer e.cleanup()
	if err := e.setup(ctx); err != nil {
		return err
	}

	window.SetCursorPosCallback(e.cursorCallback)
	window.SetKeyCallback(e.keyCallback)
	window.SetFramebufferSizeCallback(e.framebufferSizeCallback)

	logger.Log.Info("ToonForest running",
		zap.String("program", e.frame.ActiveProgram()),
		zap.Duration("tick", e.cfg.TickInterval.Std()))
	return e.loop(ctx)
}

func (e *Engine) setup(ctx context.Context) error {
	dev, err := renderer.NewOpenGLDevice()
	if err != nil {
		return err
	}
	e.device = dev

	e.targets, err = renderer.NewTargetManager(dev)
	if err != nil {
		return err
	}

	e.programs = renderer.NewProgramRegistry(dev)
	if err := e.programs.Build(programSources(e.cfg.Programs), renderer.DefaultShaderSources()); err != nil {
		return err
	}

	e.meshes, err = uploadMeshes(ctx, dev, e.cfg.Meshes, e.cfg.MeshCacheDir)
	if err != nil {
		return err
	}
	instances, err := buildInstances(e.cfg.Instances, e.meshes)
	if err != nil {
		return err
	}

	e.textures = renderer.NewTextureManager(dev)
	samplers, err := loadTextures(e.textures, e.cfg.Textures)
	if err != nil {
		return err
	}
	if e.cfg.WatchTextures {
		if err := e.textures.Watch(); err != nil {
			logger.Log.Warn("Texture watcher disabled", zap.Error(err))
		}
	}

	fbWidth, fbHeight := e.window.GetFramebufferSize()
	width, height := int32(fbWidth), int32(fbHeight)

	light := e.cfg.Light
	settings := renderer.Settings{
		ShadowResolution: int32(e.cfg.ShadowResolution),
		ClearColor:       mgl32.Vec4(e.cfg.ClearColor),
		TimeStep:         e.cfg.TimeStep,
		Light:            renderer.NewLightRig(vec3(light.Position), vec3(light.Direction), light.Fov, light.Near, light.Far),
		ActiveProgram:    e.cfg.DefaultProgram,
		Samplers:         samplers,
	}
	e.frame, err = renderer.NewFrameRenderer(dev, e.programs, e.targets, instances, settings, width, height)
	if err != nil {
		return err
	}

	cam := e.cfg.Camera
	e.camera = renderer.NewCamera(vec3(cam.Offset), cam.Fov, cam.Near, cam.Far, cam.Sensitivity, width, height)
	e.state = State{Camera: e.camera, Controls: e.frame}
	return nil
}

// loop ticks at the configured interval. Events are handled while waiting;
// missed ticks are dropped rather than replayed.
func (e *Engine) loop(ctx context.Context) error {
	interval := e.cfg.TickInterval.Std()
	next := time.Now()

	for !e.window.ShouldClose() {
		if ctx.Err() != nil {
			logger.Log.Info("Shutdown requested")
			return nil
		}

		if wait := time.Until(next); wait > 0 {
			glfw.WaitEventsTimeout(wait.Seconds())
			continue
		}
		glfw.PollEvents()

		next = next.Add(interval)
		if now := time.Now(); next.Before(now) {
			next = now.Add(interval)
		}

		if err := e.tick(); err != nil {
			return err
		}
	}
	return nil
}

// tick drains input, uploads finished textures and renders one frame.
func (e *Engine) tick() error {
	if err := e.queue.Drain(&e.state); err != nil {
		logger.Log.Warn("Input command failed", zap.Error(err))
	}
	e.textures.Poll()

	stats, err := e.frame.RenderFrame(e.camera)
	if err != nil {
		return fmt.Errorf("render frame: %w", err)
	}
	e.window.SwapBuffers()

	e.frames++
	if e.frames%statsEvery == 0 {
		logger.Log.Debug("Frame stats",
			zap.Int("frame", e.frames),
			zap.Int("drawCalls", stats.DrawCalls),
			zap.Int("vertices", stats.Vertices),
			zap.Float32("time", e.frame.Time()))
		e.textures.LogStats()
	}
	return nil
}

func (e *Engine) cleanup() {
	if e.frame != nil {
		e.frame.Destroy()
	}
	if e.textures != nil {
		e.textures.Clear()
	}
	for _, mb := range e.meshes {
		mb.Destroy(e.device)
	}
	if e.programs != nil {
		e.programs.Destroy()
	}
	if e.device != nil {
		e.device.Destroy()
	}
	logger.Log.Info("Renderer resources released")
}

func (e *Engine) cursorCallback(w *glfw.Window, xpos, ypos float64) {
	if e.firstMouse {
		e.lastX, e.lastY = xpos, ypos
		e.firstMouse = false
		return
	}
	dx, dy := xpos-e.lastX, ypos-e.lastY
	e.lastX, e.lastY = xpos, ypos
	e.queue.Push(RotateCamera{DX: float32(dx), DY: float32(dy)})
}

func (e *Engine) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	switch key {
	case glfw.KeyEscape:
		w.SetShouldClose(true)
		return
	case glfw.KeyHome:
		if action == glfw.Press {
			for _, cmd := range resetOffset(e.cfg.Camera.Offset) {
				e.queue.Push(cmd)
			}
		}
		return
	}
	cmd, ok := commandForKey(key, e.cfg.SelectorOrder, e.cfg.Camera.SliderStep)
	if !ok {
		return
	}
	// only the offset sliders follow key repeat
	if _, nudge := cmd.(NudgeCameraOffset); action == glfw.Repeat && !nudge {
		return
	}
	e.queue.Push(cmd)
}

func (e *Engine) framebufferSizeCallback(w *glfw.Window, width, height int) {
	e.queue.Push(Resize{Width: int32(width), Height: int32(height)})
}
