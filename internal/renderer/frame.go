package renderer

import (
	"ToonForest/internal/logger"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Pass identifies one phase of a frame.
type Pass int

const (
	ShadowPass Pass = iota
	ScenePass
	PostProcessPass
)

func (p Pass) String() string {
	switch p {
	case ShadowPass:
		return "shadow"
	case ScenePass:
		return "scene"
	case PostProcessPass:
		return "postprocess"
	}
	return fmt.Sprintf("pass(%d)", int(p))
}

// TextureBinding attaches an asset texture to a sampler uniform.
type TextureBinding struct {
	Name    string // sampler uniform
	Unit    uint32
	Texture TextureID
}

// Settings fixes the frame parameters that do not change per tick.
type Settings struct {
	ShadowResolution int32
	ClearColor       mgl32.Vec4
	TimeStep         float32
	Light            LightRig
	ActiveProgram    string
	Samplers         []TextureBinding
}

// FrameStats describes what one RenderFrame issued.
type FrameStats struct {
	Passes    []Pass
	DrawCalls int
	Vertices  int
}

// FrameRenderer sequences the shadow, scene and post-process passes.
type FrameRenderer struct {
	dev       Device
	programs  *ProgramRegistry
	targets   *TargetManager
	instances []SceneInstance
	settings  Settings

	quad   *MeshBuffer
	shadow *RenderTarget
	scene  *RenderTarget

	width  int32
	height int32
	time   float32
	active string

	// last program/mesh pair whose attributes were bound
	boundProgram *ProgramHandle
	boundMesh    *MeshBuffer
}

// NewFrameRenderer allocates the render targets and the full-screen quad and
// activates settings.ActiveProgram.
func NewFrameRenderer(dev Device, programs *ProgramRegistry, targets *TargetManager,
	instances []SceneInstance, settings Settings, width, height int32) (*FrameRenderer, error) {
	if len(instances) == 0 {
		return nil, errors.New("frame renderer: no scene instances")
	}
	for i, inst := range instances {
		if inst.Mesh == nil {
			return nil, fmt.Errorf("frame renderer: instance %d has no mesh", i)
		}
	}

	f := &FrameRenderer{
		dev:       dev,
		programs:  programs,
		targets:   targets,
		instances: instances,
		settings:  settings,
		width:     width,
		height:    height,
	}

	var cleanup Unwind
	var err error
	if f.shadow, err = targets.CreateShadowTarget(settings.ShadowResolution); err != nil {
		return nil, err
	}
	cleanup.Add(func() { targets.Destroy(f.shadow) })

	if f.scene, err = targets.CreateSceneTarget(width, height); err != nil {
		cleanup.Unwind()
		return nil, err
	}
	cleanup.Add(func() { targets.Destroy(f.scene) })

	if f.quad, err = NewFullscreenQuad(dev); err != nil {
		cleanup.Unwind()
		return nil, err
	}
	cleanup.Add(func() { f.quad.Destroy(dev) })

	if err := f.SetActiveProgram(settings.ActiveProgram); err != nil {
		cleanup.Unwind()
		return nil, err
	}
	cleanup.Discard()
	return f, nil
}

// SetActiveProgram switches the stylized program. Attribute bindings are
// resolved again for the new program before the next draw.
func (f *FrameRenderer) SetActiveProgram(name string) error {
	p, err := f.programs.Program(name)
	if err != nil {
		return err
	}
	post, err := f.programs.Program(PostProcessName(name))
	if err != nil {
		return err
	}

	f.active = name
	f.invalidateBindings()
	f.programs.ApplyUniforms(p, f.staticUniforms())
	f.programs.ApplyUniforms(post, Uniforms{
		UniformDepthTexture:  UniformInt(ShadowUnit),
		UniformScreenTexture: UniformInt(SceneUnit),
	})
	f.bindMesh(p, f.instances[0].Mesh)

	logger.Log.Info("Active program switched", zap.String("program", name))
	return nil
}

// ActiveProgram returns the name of the stylized program in use.
func (f *FrameRenderer) ActiveProgram() string {
	return f.active
}

// Time is the accumulated animation time.
func (f *FrameRenderer) Time() float32 {
	return f.time
}

// Size returns the display size the scene target was allocated for.
func (f *FrameRenderer) Size() (int32, int32) {
	return f.width, f.height
}

// Resize reallocates the scene target for a new display size. Zero sizes
// (minimized windows) and unchanged sizes are ignored.
func (f *FrameRenderer) Resize(width, height int32) error {
	if width <= 0 || height <= 0 || (width == f.width && height == f.height) {
		return nil
	}
	rt, err := f.targets.Reallocate(f.scene, width, height)
	if err != nil {
		return fmt.Errorf("resize scene target: %w", err)
	}
	f.scene = rt
	f.width, f.height = width, height
	return nil
}

// RenderFrame advances time and runs the three passes in order.
func (f *FrameRenderer) RenderFrame(cam *Camera) (FrameStats, error) {
	var stats FrameStats
	program, err := f.programs.Bind(f.active)
	if err != nil {
		return stats, err
	}
	post, err := f.programs.Program(PostProcessName(f.active))
	if err != nil {
		return stats, err
	}

	f.time += f.settings.TimeStep
	light := f.settings.Light
	lightProjection := light.Projection(1)
	lightCamera := light.CameraMatrix()

	// The shadow target's depth cannot be sampled while it is being written.
	f.beginPass(ShadowPass, f.shadow.Framebuffer, f.shadow.Width, f.shadow.Height, &stats)
	f.dev.BindTexture(ShadowUnit, NoTexture)
	f.dev.BindTexture(SceneUnit, NoTexture)
	f.drawInstances(program, ViewProjection(lightProjection, lightCamera), lightCamera, mgl32.Ident4(), &stats)

	f.beginPass(ScenePass, f.scene.Framebuffer, f.width, f.height, &stats)
	f.dev.BindTexture(ShadowUnit, f.shadow.Depth)
	f.dev.BindTexture(SceneUnit, NoTexture)
	shadowMatrix := ShadowMatrix(lightProjection, lightCamera)
	f.drawInstances(program, cam.GetViewProjection(), cam.CameraMatrix(), shadowMatrix, &stats)

	f.beginPass(PostProcessPass, DefaultFramebuffer, f.width, f.height, &stats)
	f.dev.BindTexture(ShadowUnit, f.scene.Depth)
	f.dev.BindTexture(SceneUnit, f.scene.Color)
	f.dev.SetDrawState(DrawState{CullFace: true})
	f.programs.ApplyUniforms(post, Uniforms{
		UniformWidth:  UniformFloat(f.width),
		UniformHeight: UniformFloat(f.height),
		UniformNear:   UniformFloat(cam.Near),
		UniformFar:    UniformFloat(cam.Far),
	})
	f.bindMesh(post, f.quad)
	f.draw(post, f.quad, &stats)

	return stats, nil
}

// beginPass binds the pass target and resets per-pass state. Attribute
// bindings never carry over from the previous pass.
func (f *FrameRenderer) beginPass(pass Pass, fb FramebufferID, width, height int32, stats *FrameStats) {
	stats.Passes = append(stats.Passes, pass)
	f.invalidateBindings()
	f.dev.BindFramebuffer(fb)
	f.dev.Viewport(0, 0, width, height)
	f.dev.Clear(f.settings.ClearColor)
	f.dev.SetDrawState(DrawState{CullFace: true, DepthTest: true})
	for _, s := range f.settings.Samplers {
		f.dev.BindTexture(s.Unit, s.Texture)
	}
}

func (f *FrameRenderer) drawInstances(p *ProgramHandle, viewProjection, cameraMatrix, shadowMatrix mgl32.Mat4, stats *FrameStats) {
	for _, inst := range f.instances {
		t := ComputeInstanceTransforms(inst, viewProjection)
		f.bindMesh(p, inst.Mesh)
		f.programs.ApplyUniforms(p, Uniforms{
			UniformWorld:           UniformMat4(t.World),
			UniformNormalMatrix:    UniformMat4(t.Normal),
			UniformWorldViewMatrix: UniformMat4(t.WorldViewProjection),
			UniformCameraView:      UniformMat4(cameraMatrix),
			UniformShadowMatrix:    UniformMat4(shadowMatrix),
			UniformTime:            UniformFloat(f.time),
		})
		f.draw(p, inst.Mesh, stats)
	}
}

func (f *FrameRenderer) draw(p *ProgramHandle, mesh *MeshBuffer, stats *FrameStats) {
	f.dev.DrawTriangles(p.ID, 0, mesh.VertexCount)
	stats.DrawCalls++
	stats.Vertices += int(mesh.VertexCount)
}

func (f *FrameRenderer) bindMesh(p *ProgramHandle, mesh *MeshBuffer) {
	if f.boundProgram == p && f.boundMesh == mesh {
		return
	}
	f.programs.BindAttributes(p, mesh)
	f.boundProgram, f.boundMesh = p, mesh
}

func (f *FrameRenderer) invalidateBindings() {
	f.boundProgram, f.boundMesh = nil, nil
}

func (f *FrameRenderer) staticUniforms() Uniforms {
	u := Uniforms{
		UniformReverseLightDir: UniformVec3(f.settings.Light.ReverseDirection()),
		UniformShadowTexture:   UniformInt(ShadowUnit),
	}
	for _, s := range f.settings.Samplers {
		u[s.Name] = UniformInt(int32(s.Unit))
	}
	return u
}

// Destroy frees the render targets and the quad. Scene meshes are owned by the caller.
func (f *FrameRenderer) Destroy() {
	f.targets.Destroy(f.shadow)
	f.targets.Destroy(f.scene)
	if f.quad != nil {
		f.quad.Destroy(f.dev)
	}
}
