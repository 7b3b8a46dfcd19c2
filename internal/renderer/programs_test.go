package renderer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSources = map[string]string{
	"vs":      "in a_position; in a_normal; uniform u_world; uniform u_time;",
	"vs-tex":  "in a_texcoord; in a_position; uniform u_world;",
	"vs-pos":  "in a_position; uniform u_world;",
	"fs":      "uniform u_color;",
	"fs-post": "uniform u_screenTexture;",
}

func buildTestPrograms(t *testing.T, dev *fakeDevice) *ProgramRegistry {
	t.Helper()
	r := NewProgramRegistry(dev)
	err := r.Build(map[string]ProgramSource{
		"lit":   {Vertex: "vs", Fragment: "fs"},
		"tex":   {Vertex: "vs-tex", Fragment: "fs"},
		"pos":   {Vertex: "vs-pos", Fragment: "fs"},
		"postp": {Vertex: "vs-tex", Fragment: "fs-post"},
	}, testSources)
	require.NoError(t, err)
	return r
}

func TestBuildCompilesSharedShadersOnce(t *testing.T) {
	dev := newFakeDevice()
	r := buildTestPrograms(t, dev)

	assert.Equal(t, 5, dev.compiles)
	assert.Len(t, dev.programs, 4)
	assert.Empty(t, dev.shaders, "shader objects are released after linking")
	assert.True(t, r.Has("tex"))
	assert.False(t, r.Has("missing"))
}

func TestBuildReportsCompileFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failSource["u_color"] = "0:1: syntax error"
	r := NewProgramRegistry(dev)

	err := r.Build(map[string]ProgramSource{"lit": {Vertex: "vs", Fragment: "fs"}}, testSources)

	var shaderErr *ShaderError
	require.True(t, errors.As(err, &shaderErr))
	assert.Equal(t, FragmentStage, shaderErr.Stage)
	assert.Equal(t, "lit", shaderErr.Program)
	assert.Equal(t, "fs", shaderErr.Source)
	assert.Equal(t, "0:1: syntax error", shaderErr.Log)
	assert.Contains(t, err.Error(), "fragment")
	assert.Empty(t, dev.shaders)
}

func TestBuildReportsLinkFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failLink = true
	r := NewProgramRegistry(dev)

	err := r.Build(map[string]ProgramSource{"lit": {Vertex: "vs", Fragment: "fs"}}, testSources)

	var shaderErr *ShaderError
	require.True(t, errors.As(err, &shaderErr))
	assert.Equal(t, LinkStage, shaderErr.Stage)
	assert.Contains(t, shaderErr.Log, "varying mismatch")
}

func TestBuildMissingSource(t *testing.T) {
	dev := newFakeDevice()
	r := NewProgramRegistry(dev)

	err := r.Build(map[string]ProgramSource{"lit": {Vertex: "nope", Fragment: "fs"}}, testSources)

	var shaderErr *ShaderError
	require.True(t, errors.As(err, &shaderErr))
	assert.Equal(t, VertexStage, shaderErr.Stage)
	assert.Equal(t, "nope", shaderErr.Source)
}

func TestUnknownProgram(t *testing.T) {
	dev := newFakeDevice()
	r := buildTestPrograms(t, dev)

	_, err := r.Bind("missing")

	assert.ErrorIs(t, err, ErrUnknownProgram)
}

func TestBindUsesProgram(t *testing.T) {
	dev := newFakeDevice()
	r := buildTestPrograms(t, dev)

	p, err := r.Bind("lit")
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("use %d", p.ID), dev.events[len(dev.events)-1])
}

func TestApplyUniformsIdempotent(t *testing.T) {
	dev := newFakeDevice()
	r := buildTestPrograms(t, dev)
	p, err := r.Program("lit")
	require.NoError(t, err)

	values := Uniforms{
		"u_world":  UniformMat4(mgl32.Translate3D(1, 2, 3)),
		"u_time":   UniformFloat(0.5),
		"u_color":  UniformVec3(mgl32.Vec3{1, 0, 0}),
		"u_absent": UniformInt(3),
	}

	r.ApplyUniforms(p, values)
	queries := dev.uniformQueries
	state := cloneUniforms(dev.uniforms[p.ID])

	r.ApplyUniforms(p, values)

	assert.Equal(t, 4, queries, "every name is resolved once")
	assert.Equal(t, queries, dev.uniformQueries, "second apply must not query again")
	assert.Equal(t, state, dev.uniforms[p.ID])
	assert.Len(t, state, 3, "absent uniform is skipped")

	v, ok := dev.uniform(p.ID, "u_time")
	require.True(t, ok)
	assert.Equal(t, float32(0.5), v)
}

func TestBindAttributesSkipsAbsent(t *testing.T) {
	dev := newFakeDevice()
	r := buildTestPrograms(t, dev)
	mb, err := NewMeshBuffer(dev, threeVertexMesh())
	require.NoError(t, err)
	p, err := r.Program("lit")
	require.NoError(t, err)

	r.BindAttributes(p, mb)

	pos, _ := mb.Attribute(AttribPosition)
	nrm, _ := mb.Attribute(AttribNormal)
	assert.Equal(t, map[int32]BufferID{0: pos.Buffer, 1: nrm.Buffer}, dev.attributes)
}

func TestBindAttributesClearsPreviousProgram(t *testing.T) {
	dev := newFakeDevice()
	r := buildTestPrograms(t, dev)
	mb, err := NewMeshBuffer(dev, threeVertexMesh())
	require.NoError(t, err)
	lit, _ := r.Program("lit")
	only, _ := r.Program("pos")

	r.BindAttributes(lit, mb)
	r.BindAttributes(only, mb)

	pos, _ := mb.Attribute(AttribPosition)
	assert.Equal(t, map[int32]BufferID{0: pos.Buffer}, dev.attributes)
}

func TestRegistryDestroy(t *testing.T) {
	dev := newFakeDevice()
	r := buildTestPrograms(t, dev)
	lit, err := r.Program("lit")
	require.NoError(t, err)
	r.ApplyUniforms(lit, Uniforms{"u_world": UniformMat4(mgl32.Ident4())})
	require.Equal(t, 1, lit.uniforms.Len())

	r.Destroy()

	assert.Empty(t, dev.programs)
	assert.False(t, r.Has("lit"))
	assert.Equal(t, 0, lit.uniforms.Len())
	assert.Equal(t, 0, lit.attribs.Len())
}

func TestUploadDispatch(t *testing.T) {
	dev := newFakeDevice()

	upload(dev, 7, 0, UniformInt(2))
	upload(dev, 7, 1, UniformFloat(1.5))
	upload(dev, 7, 2, UniformVec3(mgl32.Vec3{1, 2, 3}))
	upload(dev, 7, 3, UniformMat4(mgl32.Ident4()))

	assert.Equal(t, map[int32]any{
		0: int32(2),
		1: float32(1.5),
		2: mgl32.Vec3{1, 2, 3},
		3: mgl32.Ident4(),
	}, dev.uniforms[7])
}

func cloneUniforms(in map[int32]any) map[int32]any {
	out := make(map[int32]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
