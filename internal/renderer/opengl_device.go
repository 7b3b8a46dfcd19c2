package renderer

import (
	"ToonForest/internal/logger"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var ErrFramebufferIncomplete = errors.New("framebuffer incomplete")

// OpenGLDevice implements Device on an OpenGL 4.1 core context. The context
// must be current on the calling thread and gl.Init must have succeeded.
type OpenGLDevice struct {
	vao            uint32
	currentProgram ProgramID
	enabledAttribs map[uint32]struct{}
}

func NewOpenGLDevice() (*OpenGLDevice, error) {
	version := gl.GetString(gl.VERSION)
	if version == nil {
		return nil, errors.New("no OpenGL context is current")
	}
	logger.Log.Info("OpenGL device initialized",
		zap.String("version", gl.GoStr(version)),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	dev := &OpenGLDevice{enabledAttribs: make(map[uint32]struct{})}
	// core profile requires a bound vertex array for every draw
	gl.GenVertexArrays(1, &dev.vao)
	gl.BindVertexArray(dev.vao)
	return dev, nil
}

func (dev *OpenGLDevice) DepthTextureSupported() bool {
	var major int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	return major >= 3
}

func (dev *OpenGLDevice) CreateBuffer(data []float32) (BufferID, error) {
	if len(data) == 0 {
		return 0, errors.New("empty vertex buffer")
	}
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return BufferID(vbo), nil
}

func (dev *OpenGLDevice) DeleteBuffer(id BufferID) {
	vbo := uint32(id)
	gl.DeleteBuffers(1, &vbo)
}

func (dev *OpenGLDevice) CreateTexture(desc TextureDesc) (TextureID, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, fmt.Errorf("invalid texture size %dx%d", desc.Width, desc.Height)
	}
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	switch desc.Format {
	case FormatDepth:
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, desc.Width, desc.Height, 0,
			gl.DEPTH_COMPONENT, gl.UNSIGNED_INT, nil)
	default:
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, desc.Width, desc.Height, 0,
			gl.RGBA, gl.UNSIGNED_BYTE, nil)
	}

	filter := glFilter(desc.Filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return TextureID(tex), nil
}

// UploadImage replaces the texture contents. Power-of-two images get mipmaps and
// repeat wrapping, others are clamped to the edge.
func (dev *OpenGLDevice) UploadImage(id TextureID, img *image.RGBA, filter TextureFilter) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	if isPowerOfTwo(w) && isPowerOfTwo(h) {
		gl.GenerateMipmap(gl.TEXTURE_2D)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	} else {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(filter))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (dev *OpenGLDevice) DeleteTexture(id TextureID) {
	tex := uint32(id)
	gl.DeleteTextures(1, &tex)
}

func (dev *OpenGLDevice) CreateFramebuffer(color, depth TextureID) (FramebufferID, error) {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	if color != NoTexture {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, uint32(color), 0)
	}
	if depth != NoTexture {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, uint32(depth), 0)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fbo)
		return 0, fmt.Errorf("%w: status 0x%x", ErrFramebufferIncomplete, status)
	}
	return FramebufferID(fbo), nil
}

func (dev *OpenGLDevice) DeleteFramebuffer(id FramebufferID) {
	fbo := uint32(id)
	gl.DeleteFramebuffers(1, &fbo)
}

func (dev *OpenGLDevice) CompileShader(stage ShaderStage, source string) (ShaderID, error) {
	shaderType := uint32(gl.VERTEX_SHADER)
	if stage == FragmentStage {
		shaderType = gl.FRAGMENT_SHADER
	}
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, errors.New(strings.TrimRight(log, "\x00\n"))
	}
	return ShaderID(shader), nil
}

func (dev *OpenGLDevice) DeleteShader(id ShaderID) {
	gl.DeleteShader(uint32(id))
}

func (dev *OpenGLDevice) LinkProgram(vertex, fragment ShaderID) (ProgramID, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, uint32(vertex))
	gl.AttachShader(program, uint32(fragment))
	gl.LinkProgram(program)
	gl.DetachShader(program, uint32(vertex))
	gl.DetachShader(program, uint32(fragment))

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, errors.New(strings.TrimRight(log, "\x00\n"))
	}
	return ProgramID(program), nil
}

func (dev *OpenGLDevice) DeleteProgram(id ProgramID) {
	gl.DeleteProgram(uint32(id))
	if dev.currentProgram == id {
		dev.currentProgram = 0
	}
}

func (dev *OpenGLDevice) AttribLocation(program ProgramID, name string) int32 {
	return gl.GetAttribLocation(uint32(program), gl.Str(name+"\x00"))
}

func (dev *OpenGLDevice) UniformLocation(program ProgramID, name string) int32 {
	return gl.GetUniformLocation(uint32(program), gl.Str(name+"\x00"))
}

func (dev *OpenGLDevice) UseProgram(program ProgramID) {
	if dev.currentProgram != program {
		gl.UseProgram(uint32(program))
		dev.currentProgram = program
	}
}

func (dev *OpenGLDevice) ResetAttributes() {
	for loc := range dev.enabledAttribs {
		gl.DisableVertexAttribArray(loc)
		delete(dev.enabledAttribs, loc)
	}
}

func (dev *OpenGLDevice) BindAttribute(location int32, buffer BufferID, components int32) {
	loc := uint32(location)
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buffer))
	gl.EnableVertexAttribArray(loc)
	gl.VertexAttribPointer(loc, components, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	dev.enabledAttribs[loc] = struct{}{}
}

func (dev *OpenGLDevice) BindTexture(unit uint32, texture TextureID) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, uint32(texture))
}

// Uniform uploads target the program explicitly (GL 4.1 separate program uniforms).
func (dev *OpenGLDevice) Uniform1i(program ProgramID, location int32, v int32) {
	gl.ProgramUniform1i(uint32(program), location, v)
}

func (dev *OpenGLDevice) Uniform1f(program ProgramID, location int32, v float32) {
	gl.ProgramUniform1f(uint32(program), location, v)
}

func (dev *OpenGLDevice) Uniform3f(program ProgramID, location int32, v mgl32.Vec3) {
	gl.ProgramUniform3f(uint32(program), location, v[0], v[1], v[2])
}

func (dev *OpenGLDevice) UniformMatrix4(program ProgramID, location int32, m mgl32.Mat4) {
	gl.ProgramUniformMatrix4fv(uint32(program), location, 1, false, &m[0])
}

func (dev *OpenGLDevice) BindFramebuffer(fb FramebufferID) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

func (dev *OpenGLDevice) Viewport(x, y, width, height int32) {
	gl.Viewport(x, y, width, height)
}

func (dev *OpenGLDevice) Clear(color mgl32.Vec4) {
	gl.ClearColor(color[0], color[1], color[2], color[3])
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (dev *OpenGLDevice) SetDrawState(state DrawState) {
	// Culling : https://learnopengl.com/Advanced-OpenGL/Face-culling
	if state.CullFace {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
		gl.FrontFace(gl.CCW)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	if state.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
}

func (dev *OpenGLDevice) DrawTriangles(program ProgramID, first, count int32) {
	dev.UseProgram(program)
	gl.DrawArrays(gl.TRIANGLES, first, count)
}

// Destroy releases the device's own vertex array.
func (dev *OpenGLDevice) Destroy() {
	dev.ResetAttributes()
	gl.BindVertexArray(0)
	gl.DeleteVertexArrays(1, &dev.vao)
}

func glFilter(f TextureFilter) int32 {
	if f == FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
