package loader

import (
	"ToonForest/internal/logger"
	"bufio"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// EmbeddedPrefix marks a mesh path that is read from the bundled resources.
const EmbeddedPrefix = "embedded:"

//go:embed resources/*.obj
var resourcesFS embed.FS

var ErrBadIndex = errors.New("face index out of range")

// MeshData holds expanded, non-indexed vertex streams aligned by vertex order.
type MeshData struct {
	Position []float32 // 3 per vertex
	Texcoord []float32 // 2 per vertex
	Normal   []float32 // 3 per vertex
}

// VertexCount is derived from the position stream.
func (m *MeshData) VertexCount() int {
	return len(m.Position) / 3
}

// ParseOBJ reads OBJ-like text. Faces with more than three vertices are fan triangulated.
// Unknown keywords are logged and skipped.
func ParseOBJ(r io.Reader) (*MeshData, error) {
	// indices are 1-based, slot 0 is a filler entry
	positions := [][3]float32{{}}
	texcoords := [][2]float32{{}}
	normals := [][3]float32{{}}

	mesh := &MeshData{}

	addVertex := func(vert string, lineNb int) error {
		parts := strings.Split(vert, "/")
		for i, part := range parts {
			if part == "" || i > 2 {
				continue
			}
			idx, err := strconv.Atoi(part)
			if err != nil {
				return fmt.Errorf("line %d: bad index %q: %w", lineNb, part, err)
			}
			switch i {
			case 0:
				p, err := resolve(positions, idx, lineNb)
				if err != nil {
					return err
				}
				mesh.Position = append(mesh.Position, p[:]...)
			case 1:
				t, err := resolve(texcoords, idx, lineNb)
				if err != nil {
					return err
				}
				mesh.Texcoord = append(mesh.Texcoord, t[:]...)
			case 2:
				n, err := resolve(normals, idx, lineNb)
				if err != nil {
					return err
				}
				mesh.Normal = append(mesh.Normal, n[:]...)
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(r)
	lineNb := 0
	for scanner.Scan() {
		lineNb++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "v":
			var p [3]float32
			if err := parseFloats(parts[1:], p[:], lineNb); err != nil {
				return nil, err
			}
			positions = append(positions, p)
		case "vt":
			var t [2]float32
			if err := parseFloats(parts[1:], t[:], lineNb); err != nil {
				return nil, err
			}
			texcoords = append(texcoords, t)
		case "vn":
			var n [3]float32
			if err := parseFloats(parts[1:], n[:], lineNb); err != nil {
				return nil, err
			}
			normals = append(normals, n)
		case "f":
			verts := parts[1:]
			for tri := 0; tri < len(verts)-2; tri++ {
				for _, v := range []string{verts[0], verts[tri+1], verts[tri+2]} {
					if err := addVertex(v, lineNb); err != nil {
						return nil, err
					}
				}
			}
		default:
			logger.Log.Warn("Unhandled mesh keyword",
				zap.String("keyword", parts[0]),
				zap.Int("line", lineNb))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mesh, nil
}

func resolve[T any](list []T, idx, lineNb int) (T, error) {
	if idx < 0 {
		idx += len(list)
	}
	if idx <= 0 || idx >= len(list) {
		var zero T
		return zero, fmt.Errorf("line %d: %w: %d", lineNb, ErrBadIndex, idx)
	}
	return list[idx], nil
}

// parseFloats fills dst from the leading fields; missing fields stay zero, extra ones are dropped.
func parseFloats(fields []string, dst []float32, lineNb int) error {
	for i := 0; i < len(dst) && i < len(fields); i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return fmt.Errorf("line %d: bad number %q: %w", lineNb, fields[i], err)
		}
		dst[i] = float32(f)
	}
	return nil
}

// LoadMesh parses a mesh from disk, or from the bundled resources when the
// path carries EmbeddedPrefix.
func LoadMesh(path string) (*MeshData, error) {
	var r io.ReadCloser
	if name, ok := strings.CutPrefix(path, EmbeddedPrefix); ok {
		f, err := resourcesFS.Open("resources/" + name)
		if err != nil {
			return nil, err
		}
		r = f
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer r.Close()

	mesh, err := ParseOBJ(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	logger.Log.Info("Mesh loaded",
		zap.String("path", path),
		zap.Int("vertices", mesh.VertexCount()),
		zap.Int("triangles", mesh.VertexCount()/3))
	return mesh, nil
}

// LoadMeshes parses every named mesh concurrently. The first failure cancels
// the rest. A nil cache parses every file.
func LoadMeshes(ctx context.Context, paths map[string]string, cache *MeshCache) (map[string]*MeshData, error) {
	load := LoadMesh
	if cache != nil {
		load = cache.Load
	}
	g, ctx := errgroup.WithContext(ctx)
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	results := make([]*MeshData, len(names))

	for i, name := range names {
		path := paths[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mesh, err := load(path)
			if err != nil {
				return fmt.Errorf("mesh %q: %w", name, err)
			}
			results[i] = mesh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	meshes := make(map[string]*MeshData, len(names))
	for i, name := range names {
		meshes[name] = results[i]
	}
	return meshes, nil
}
