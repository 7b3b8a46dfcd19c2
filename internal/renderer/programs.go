package renderer

import (
	"ToonForest/internal/logger"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var ErrUnknownProgram = errors.New("unknown program")

// ShaderError reports a compile or link failure with the compiler diagnostic.
type ShaderError struct {
	Program string
	Source  string
	Stage   ShaderStage
	Log     string
}

func (e *ShaderError) Error() string {
	if e.Stage == LinkStage {
		return fmt.Sprintf("link program %q: %s", e.Program, e.Log)
	}
	return fmt.Sprintf("compile %s shader %q for program %q: %s", e.Stage, e.Source, e.Program, e.Log)
}

// ProgramSource names the vertex and fragment sources a program is linked from.
type ProgramSource struct {
	Vertex   string
	Fragment string
}

// ProgramHandle is a linked program with lazily filled location tables.
type ProgramHandle struct {
	Name     string
	ID       ProgramID
	attribs  *LocationCache
	uniforms *LocationCache
}

// ProgramRegistry owns every compiled program of a device. Its lifetime is the
// lifetime of the graphics context.
type ProgramRegistry struct {
	dev      Device
	programs map[string]*ProgramHandle
	shaders  map[string]ShaderID
}

func NewProgramRegistry(dev Device) *ProgramRegistry {
	return &ProgramRegistry{
		dev:      dev,
		programs: make(map[string]*ProgramHandle),
		shaders:  make(map[string]ShaderID),
	}
}

// Build compiles and links every program once. Shader objects shared between
// programs are compiled a single time. The first failure aborts the build.
func (r *ProgramRegistry) Build(defs map[string]ProgramSource, sources map[string]string) error {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	defer r.releaseShaders()

	for _, name := range names {
		def := defs[name]
		vs, err := r.shader(name, def.Vertex, VertexStage, sources)
		if err != nil {
			return err
		}
		fs, err := r.shader(name, def.Fragment, FragmentStage, sources)
		if err != nil {
			return err
		}

		id, err := r.dev.LinkProgram(vs, fs)
		if err != nil {
			return &ShaderError{Program: name, Stage: LinkStage, Log: err.Error()}
		}
		r.programs[name] = r.newHandle(name, id)
		logger.Log.Info("Shader program linked",
			zap.String("program", name),
			zap.String("vertex", def.Vertex),
			zap.String("fragment", def.Fragment))
	}

	return nil
}

// releaseShaders drops the shader objects; linked programs keep what they need.
func (r *ProgramRegistry) releaseShaders() {
	for id, shader := range r.shaders {
		r.dev.DeleteShader(shader)
		delete(r.shaders, id)
	}
}

func (r *ProgramRegistry) shader(program, sourceID string, stage ShaderStage, sources map[string]string) (ShaderID, error) {
	if id, ok := r.shaders[sourceID]; ok {
		return id, nil
	}
	src, ok := sources[sourceID]
	if !ok {
		return 0, &ShaderError{Program: program, Source: sourceID, Stage: stage, Log: "source not found"}
	}
	id, err := r.dev.CompileShader(stage, src)
	if err != nil {
		return 0, &ShaderError{Program: program, Source: sourceID, Stage: stage, Log: err.Error()}
	}
	r.shaders[sourceID] = id
	return id, nil
}

func (r *ProgramRegistry) newHandle(name string, id ProgramID) *ProgramHandle {
	return &ProgramHandle{
		Name:     name,
		ID:       id,
		attribs:  NewLocationCache(func(n string) int32 { return r.dev.AttribLocation(id, n) }),
		uniforms: NewLocationCache(func(n string) int32 { return r.dev.UniformLocation(id, n) }),
	}
}

// Program looks up a linked program by name.
func (r *ProgramRegistry) Program(name string) (*ProgramHandle, error) {
	p, ok := r.programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
	}
	return p, nil
}

// Has reports whether a program with that name was built.
func (r *ProgramRegistry) Has(name string) bool {
	_, ok := r.programs[name]
	return ok
}

// Bind makes the named program the active pipeline.
func (r *ProgramRegistry) Bind(name string) (*ProgramHandle, error) {
	p, err := r.Program(name)
	if err != nil {
		return nil, err
	}
	r.dev.UseProgram(p.ID)
	return p, nil
}

// ApplyUniforms pushes values to p. Names the program does not use are skipped.
func (r *ProgramRegistry) ApplyUniforms(p *ProgramHandle, values Uniforms) {
	for name, v := range values {
		loc := p.uniforms.GetLocation(name)
		if loc < 0 {
			continue
		}
		upload(r.dev, p.ID, loc, v)
	}
}

// BindAttributes streams every attribute of mesh that p declares. Bindings left
// over from a previous program or mesh are cleared first.
func (r *ProgramRegistry) BindAttributes(p *ProgramHandle, mesh *MeshBuffer) {
	r.dev.ResetAttributes()
	for _, a := range mesh.Attributes {
		loc := p.attribs.GetLocation(a.Name)
		if loc < 0 {
			continue
		}
		r.dev.BindAttribute(loc, a.Buffer, a.Components)
	}
}

// Destroy deletes every program and forgets their locations, so handles still
// held elsewhere resolve nothing.
func (r *ProgramRegistry) Destroy() {
	for name, p := range r.programs {
		logger.Log.Debug("Shader program released",
			zap.String("program", name),
			zap.Int("attributes", p.attribs.Len()),
			zap.Int("uniforms", p.uniforms.Len()))
		p.attribs.Clear()
		p.uniforms.Clear()
		r.dev.DeleteProgram(p.ID)
		delete(r.programs, name)
	}
}
