package loader

import (
	"ToonForest/internal/logger"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	meshMagic   uint32 = 0x4D455348 // "MESH"
	meshVersion uint32 = 1
)

// EncodeMesh writes the expanded vertex streams of m in the compressed cache format.
func EncodeMesh(w io.Writer, m *MeshData) error {
	gz := gzip.NewWriter(w)
	for _, v := range []uint32{meshMagic, meshVersion} {
		if err := binary.Write(gz, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, stream := range [][]float32{m.Position, m.Texcoord, m.Normal} {
		if err := writeFloat32Slice(gz, stream); err != nil {
			return err
		}
	}
	return gz.Close()
}

// DecodeMesh reads a mesh written by EncodeMesh.
func DecodeMesh(r io.Reader) (*MeshData, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("mesh cache: %w", err)
	}
	defer gz.Close()

	var header [2]uint32
	if err := binary.Read(gz, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header[0] != meshMagic {
		return nil, fmt.Errorf("invalid mesh cache magic: %x", header[0])
	}
	if header[1] != meshVersion {
		return nil, fmt.Errorf("unsupported mesh cache version: %d", header[1])
	}

	m := &MeshData{}
	for _, dst := range []*[]float32{&m.Position, &m.Texcoord, &m.Normal} {
		if *dst, err = readFloat32Slice(gz); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func writeFloat32Slice(w io.Writer, data []float32) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, data)
}

// maxCachedFloats bounds a cached stream so a corrupt length cannot exhaust memory.
const maxCachedFloats = 1 << 26

func readFloat32Slice(r io.Reader) ([]float32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxCachedFloats {
		return nil, fmt.Errorf("mesh cache stream of %d floats is too large", n)
	}
	data := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, err
	}
	return data, nil
}

// MeshCache keeps parsed meshes in Dir so unchanged files skip parsing on the
// next start. Embedded meshes are never cached.
type MeshCache struct {
	Dir string
}

// Load returns the cached mesh for path when it is at least as new as the
// source file, parsing and refreshing the cache otherwise. Cache write
// failures only cost the next start a parse.
func (c *MeshCache) Load(path string) (*MeshData, error) {
	if strings.HasPrefix(path, EmbeddedPrefix) {
		return LoadMesh(path)
	}
	src, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	cachePath := c.pathFor(path)
	if cached, err := os.Stat(cachePath); err == nil && !cached.ModTime().Before(src.ModTime()) {
		m, err := c.read(cachePath)
		if err == nil {
			logger.Log.Debug("Mesh cache hit", zap.String("path", path))
			return m, nil
		}
		logger.Log.Warn("Mesh cache unreadable, parsing source", zap.String("cache", cachePath), zap.Error(err))
	}

	m, err := LoadMesh(path)
	if err != nil {
		return nil, err
	}
	if err := c.write(cachePath, m); err != nil {
		logger.Log.Warn("Mesh cache not written", zap.String("cache", cachePath), zap.Error(err))
	}
	return m, nil
}

func (c *MeshCache) pathFor(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	h := fnv.New64a()
	h.Write([]byte(path))
	return filepath.Join(c.Dir, fmt.Sprintf("%s-%016x.mesh", strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), h.Sum64()))
}

func (c *MeshCache) read(cachePath string) (*MeshData, error) {
	f, err := os.Open(cachePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeMesh(f)
}

// write goes through a temporary file so readers never see a partial cache.
func (c *MeshCache) write(cachePath string, m *MeshData) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.Dir, ".mesh-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := EncodeMesh(tmp, m); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), cachePath)
}
