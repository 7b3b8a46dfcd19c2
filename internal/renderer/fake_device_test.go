package renderer

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// fakeDevice records every call the renderer makes. Attribute and uniform
// locations exist only for names that appear in a program's shader sources
// and are assigned in query order, so two programs can disagree on them.
type fakeDevice struct {
	noDepth    bool
	failLink   bool
	failSource map[string]string // source substring -> compiler log

	nextID       uint32
	buffers      map[BufferID][]float32
	textures     map[TextureID]TextureDesc
	uploads      map[TextureID]*image.RGBA
	framebuffers map[FramebufferID][2]TextureID
	shaders      map[ShaderID]string
	programs     map[ProgramID]*fakeProgram

	attribQueries  int
	uniformQueries int
	compiles       int

	framebuffer FramebufferID
	viewport    [4]int32
	state       DrawState
	units       map[uint32]TextureID
	attributes  map[int32]BufferID
	uniforms    map[ProgramID]map[int32]any

	events []string
	draws  []fakeDraw
}

type fakeProgram struct {
	source   string
	attribs  map[string]int32
	uniforms map[string]int32
}

type fakeDraw struct {
	program     ProgramID
	framebuffer FramebufferID
	viewport    [4]int32
	count       int32
	state       DrawState
	attributes  map[int32]BufferID
	units       map[uint32]TextureID
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		failSource:   make(map[string]string),
		buffers:      make(map[BufferID][]float32),
		textures:     make(map[TextureID]TextureDesc),
		uploads:      make(map[TextureID]*image.RGBA),
		framebuffers: make(map[FramebufferID][2]TextureID),
		shaders:      make(map[ShaderID]string),
		programs:     make(map[ProgramID]*fakeProgram),
		units:        make(map[uint32]TextureID),
		attributes:   make(map[int32]BufferID),
		uniforms:     make(map[ProgramID]map[int32]any),
	}
}

func (d *fakeDevice) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *fakeDevice) record(format string, args ...any) {
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) DepthTextureSupported() bool { return !d.noDepth }

func (d *fakeDevice) CreateBuffer(data []float32) (BufferID, error) {
	id := BufferID(d.id())
	d.buffers[id] = append([]float32(nil), data...)
	return id, nil
}

func (d *fakeDevice) DeleteBuffer(id BufferID) { delete(d.buffers, id) }

func (d *fakeDevice) CreateTexture(desc TextureDesc) (TextureID, error) {
	id := TextureID(d.id())
	d.textures[id] = desc
	return id, nil
}

func (d *fakeDevice) UploadImage(id TextureID, img *image.RGBA, filter TextureFilter) {
	d.uploads[id] = img
	desc := d.textures[id]
	desc.Width, desc.Height, desc.Filter = int32(img.Rect.Dx()), int32(img.Rect.Dy()), filter
	d.textures[id] = desc
}

func (d *fakeDevice) DeleteTexture(id TextureID) {
	delete(d.textures, id)
	delete(d.uploads, id)
}

func (d *fakeDevice) CreateFramebuffer(color, depth TextureID) (FramebufferID, error) {
	id := FramebufferID(d.id())
	d.framebuffers[id] = [2]TextureID{color, depth}
	return id, nil
}

func (d *fakeDevice) DeleteFramebuffer(id FramebufferID) { delete(d.framebuffers, id) }

func (d *fakeDevice) CompileShader(stage ShaderStage, source string) (ShaderID, error) {
	d.compiles++
	for needle, log := range d.failSource {
		if strings.Contains(source, needle) {
			return 0, errors.New(log)
		}
	}
	id := ShaderID(d.id())
	d.shaders[id] = source
	return id, nil
}

func (d *fakeDevice) DeleteShader(id ShaderID) { delete(d.shaders, id) }

func (d *fakeDevice) LinkProgram(vertex, fragment ShaderID) (ProgramID, error) {
	if d.failLink {
		return 0, errors.New("varying mismatch")
	}
	id := ProgramID(d.id())
	d.programs[id] = &fakeProgram{
		source:   d.shaders[vertex] + "\n" + d.shaders[fragment],
		attribs:  make(map[string]int32),
		uniforms: make(map[string]int32),
	}
	return id, nil
}

func (d *fakeDevice) DeleteProgram(id ProgramID) { delete(d.programs, id) }

func (p *fakeProgram) locate(table map[string]int32, name string) int32 {
	if loc, ok := table[name]; ok {
		return loc
	}
	if !strings.Contains(p.source, name) {
		return -1
	}
	loc := int32(len(table))
	table[name] = loc
	return loc
}

func (d *fakeDevice) AttribLocation(program ProgramID, name string) int32 {
	d.attribQueries++
	return d.programs[program].locate(d.programs[program].attribs, name)
}

func (d *fakeDevice) UniformLocation(program ProgramID, name string) int32 {
	d.uniformQueries++
	return d.programs[program].locate(d.programs[program].uniforms, name)
}

func (d *fakeDevice) UseProgram(program ProgramID) { d.record("use %d", program) }

func (d *fakeDevice) ResetAttributes() {
	d.attributes = make(map[int32]BufferID)
}

func (d *fakeDevice) BindAttribute(location int32, buffer BufferID, components int32) {
	d.attributes[location] = buffer
}

func (d *fakeDevice) BindTexture(unit uint32, texture TextureID) { d.units[unit] = texture }

func (d *fakeDevice) setUniform(program ProgramID, location int32, v any) {
	if d.uniforms[program] == nil {
		d.uniforms[program] = make(map[int32]any)
	}
	d.uniforms[program][location] = v
}

func (d *fakeDevice) Uniform1i(program ProgramID, location int32, v int32) {
	d.setUniform(program, location, v)
}

func (d *fakeDevice) Uniform1f(program ProgramID, location int32, v float32) {
	d.setUniform(program, location, v)
}

func (d *fakeDevice) Uniform3f(program ProgramID, location int32, v mgl32.Vec3) {
	d.setUniform(program, location, v)
}

func (d *fakeDevice) UniformMatrix4(program ProgramID, location int32, m mgl32.Mat4) {
	d.setUniform(program, location, m)
}

func (d *fakeDevice) BindFramebuffer(fb FramebufferID) {
	d.framebuffer = fb
	d.record("framebuffer %d", fb)
}

func (d *fakeDevice) Viewport(x, y, width, height int32) {
	d.viewport = [4]int32{x, y, width, height}
	d.record("viewport %dx%d", width, height)
}

func (d *fakeDevice) Clear(color mgl32.Vec4) { d.record("clear") }

func (d *fakeDevice) SetDrawState(state DrawState) { d.state = state }

func (d *fakeDevice) DrawTriangles(program ProgramID, first, count int32) {
	attrs := make(map[int32]BufferID, len(d.attributes))
	for k, v := range d.attributes {
		attrs[k] = v
	}
	units := make(map[uint32]TextureID, len(d.units))
	for k, v := range d.units {
		units[k] = v
	}
	d.draws = append(d.draws, fakeDraw{
		program:     program,
		framebuffer: d.framebuffer,
		viewport:    d.viewport,
		count:       count,
		state:       d.state,
		attributes:  attrs,
		units:       units,
	})
	d.record("draw %d", count)
}

// uniform returns the last value uploaded to name in program.
func (d *fakeDevice) uniform(program ProgramID, name string) (any, bool) {
	p, ok := d.programs[program]
	if !ok {
		return nil, false
	}
	loc, ok := p.uniforms[name]
	if !ok {
		return nil, false
	}
	v, ok := d.uniforms[program][loc]
	return v, ok
}

var _ Device = (*fakeDevice)(nil)
