package renderer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultShaderSources(t *testing.T) {
	sources := DefaultShaderSources()

	for name, src := range sources {
		assert.True(t, strings.HasPrefix(src, "#version 330 core"), name)
	}

	for _, name := range []string{"default", "gooch", "comics", "drawing"} {
		frag, ok := sources[name+"-fragment"]
		if assert.True(t, ok, name) {
			assert.Contains(t, frag, UniformShadowTexture)
			assert.Contains(t, frag, UniformReverseLightDir)
		}
	}

	vertex := sources["default-vertex"]
	for _, attr := range []string{AttribPosition, AttribTexcoord, AttribNormal} {
		assert.Contains(t, vertex, attr)
	}
	assert.Contains(t, sources["outline-fragment-postp"], UniformDepthTexture)
}

func TestPostProcessName(t *testing.T) {
	assert.Equal(t, "postp_gooch", PostProcessName("gooch"))
}
