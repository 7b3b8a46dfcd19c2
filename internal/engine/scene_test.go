package engine

import (
	"ToonForest/internal/config"
	"ToonForest/internal/renderer"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInstances(t *testing.T) {
	tree := &renderer.MeshBuffer{VertexCount: 3}
	meshes := map[string]*renderer.MeshBuffer{"tree": tree}

	instances, err := buildInstances([]config.InstanceConfig{
		{Mesh: "tree", Translation: config.Vec3{1, 2, 3}, Rotation: config.Vec3{90, 0, 180}, Scale: config.Vec3{2, 2, 2}},
	}, meshes)
	require.NoError(t, err)
	require.Len(t, instances, 1)

	inst := instances[0]
	assert.Same(t, tree, inst.Mesh)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, inst.Translation)
	assert.InDelta(t, mgl32.DegToRad(90), inst.Rotation[0], 1e-6)
	assert.InDelta(t, mgl32.DegToRad(180), inst.Rotation[2], 1e-6)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, inst.Scale)
}

func TestBuildInstancesUnknownMesh(t *testing.T) {
	_, err := buildInstances([]config.InstanceConfig{{Mesh: "rock"}}, nil)

	assert.ErrorContains(t, err, `unknown mesh "rock"`)
}

func TestProgramSourcesFromDefaults(t *testing.T) {
	cfg := config.Default()
	defs := programSources(cfg.Programs)
	sources := renderer.DefaultShaderSources()

	for _, name := range cfg.SelectorOrder {
		for _, program := range []string{name, renderer.PostProcessName(name)} {
			def, ok := defs[program]
			require.True(t, ok, program)
			assert.Contains(t, sources, def.Vertex, program)
			assert.Contains(t, sources, def.Fragment, program)
		}
	}
}
