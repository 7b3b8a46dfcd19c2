package renderer

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

type BufferID uint32
type TextureID uint32
type FramebufferID uint32
type ShaderID uint32
type ProgramID uint32

// DefaultFramebuffer is the visible backbuffer.
const DefaultFramebuffer FramebufferID = 0

// NoTexture unbinds a texture unit.
const NoTexture TextureID = 0

type ShaderStage int

const (
	VertexStage ShaderStage = iota
	FragmentStage
	LinkStage
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	case LinkStage:
		return "link"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

type TextureFormat int

const (
	FormatRGBA8 TextureFormat = iota
	FormatDepth
)

type TextureFilter int

const (
	FilterLinear TextureFilter = iota
	FilterNearest
)

// ParseFilter maps a config filter name to a TextureFilter.
func ParseFilter(name string) (TextureFilter, error) {
	switch name {
	case "linear", "":
		return FilterLinear, nil
	case "nearest":
		return FilterNearest, nil
	}
	return FilterLinear, fmt.Errorf("unknown texture filter %q", name)
}

type TextureDesc struct {
	Width  int32
	Height int32
	Format TextureFormat
	Filter TextureFilter
}

// DrawState is the fixed-function state a pass draws with.
type DrawState struct {
	CullFace  bool
	DepthTest bool
}

// Device is the graphics capability surface the renderer drives. Every call
// names the resource it acts on; callers never rely on previously bound state.
type Device interface {
	DepthTextureSupported() bool

	CreateBuffer(data []float32) (BufferID, error)
	DeleteBuffer(id BufferID)

	CreateTexture(desc TextureDesc) (TextureID, error)
	UploadImage(id TextureID, img *image.RGBA, filter TextureFilter)
	DeleteTexture(id TextureID)

	CreateFramebuffer(color, depth TextureID) (FramebufferID, error)
	DeleteFramebuffer(id FramebufferID)

	// CompileShader returns an error carrying the compiler diagnostic on failure.
	CompileShader(stage ShaderStage, source string) (ShaderID, error)
	DeleteShader(id ShaderID)
	LinkProgram(vertex, fragment ShaderID) (ProgramID, error)
	DeleteProgram(id ProgramID)

	// Locations are -1 when the name is not active in the linked program.
	AttribLocation(program ProgramID, name string) int32
	UniformLocation(program ProgramID, name string) int32

	UseProgram(program ProgramID)
	ResetAttributes()
	BindAttribute(location int32, buffer BufferID, components int32)
	BindTexture(unit uint32, texture TextureID)

	Uniform1i(program ProgramID, location int32, v int32)
	Uniform1f(program ProgramID, location int32, v float32)
	Uniform3f(program ProgramID, location int32, v mgl32.Vec3)
	UniformMatrix4(program ProgramID, location int32, m mgl32.Mat4)

	BindFramebuffer(fb FramebufferID)
	Viewport(x, y, width, height int32)
	Clear(color mgl32.Vec4)
	SetDrawState(state DrawState)
	DrawTriangles(program ProgramID, first, count int32)
}
