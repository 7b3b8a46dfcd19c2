package loader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeMesh(t *testing.T) {
	mesh, err := ParseOBJ(strings.NewReader(threeTriangles))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeMesh(&buf, mesh))
	got, err := DecodeMesh(&buf)
	require.NoError(t, err)

	assert.Equal(t, mesh, got)
}

func TestDecodeMeshRejectsGarbage(t *testing.T) {
	_, err := DecodeMesh(strings.NewReader("not a mesh"))
	assert.Error(t, err)
}

func TestMeshCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tri.obj")
	require.NoError(t, os.WriteFile(src, []byte(threeTriangles), 0o644))
	cache := &MeshCache{Dir: filepath.Join(dir, "cache")}

	first, err := cache.Load(src)
	require.NoError(t, err)
	entries, err := os.ReadDir(cache.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// a cache hit must not touch the source
	require.NoError(t, os.WriteFile(src, []byte("garbage that does not parse\nf 9 9 9\n"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))

	second, err := cache.Load(src)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMeshCacheRefreshesStaleEntry(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tri.obj")
	require.NoError(t, os.WriteFile(src, []byte(threeTriangles), 0o644))
	cache := &MeshCache{Dir: dir}

	_, err := cache.Load(src)
	require.NoError(t, err)

	single := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	require.NoError(t, os.WriteFile(src, []byte(single), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))

	mesh, err := cache.Load(src)
	require.NoError(t, err)
	assert.Equal(t, 3, mesh.VertexCount())
}

func TestLoadMeshesWithCache(t *testing.T) {
	dir := t.TempDir()
	cache := &MeshCache{Dir: dir}

	meshes, err := LoadMeshes(context.Background(), map[string]string{
		"tree": EmbeddedPrefix + "tree.obj",
	}, cache)
	require.NoError(t, err)

	assert.Positive(t, meshes["tree"].VertexCount())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "embedded meshes are not cached")
}
