package renderer

import (
	"ToonForest/internal/loader"
	"errors"
	"fmt"
)

var ErrInvalidMesh = errors.New("invalid mesh")

// Attribute names the shaders declare for the mesh streams.
const (
	AttribPosition = "a_position"
	AttribTexcoord = "a_texcoord"
	AttribNormal   = "a_normal"
)

// VertexAttribute is one GPU vertex stream with its per-vertex width.
type VertexAttribute struct {
	Name       string
	Buffer     BufferID
	Components int32
}

// MeshBuffer owns the vertex streams of one mesh. It is immutable once built.
type MeshBuffer struct {
	Attributes  []VertexAttribute
	VertexCount int32
}

type vertexStream struct {
	name       string
	data       []float32
	components int32
}

// NewMeshBuffer uploads parsed mesh streams. Empty streams are left out; every
// present stream must describe the same number of vertices.
func NewMeshBuffer(dev Device, mesh *loader.MeshData) (*MeshBuffer, error) {
	return newMeshBuffer(dev, []vertexStream{
		{name: AttribPosition, data: mesh.Position, components: 3},
		{name: AttribTexcoord, data: mesh.Texcoord, components: 2},
		{name: AttribNormal, data: mesh.Normal, components: 3},
	})
}

// NewFullscreenQuad builds two triangles spanning [-1,1]² with matching texcoords.
func NewFullscreenQuad(dev Device) (*MeshBuffer, error) {
	return newMeshBuffer(dev, []vertexStream{
		{name: AttribPosition, components: 3, data: []float32{
			-1, -1, 0, 1, -1, 0, -1, 1, 0,
			-1, 1, 0, 1, -1, 0, 1, 1, 0,
		}},
		{name: AttribTexcoord, components: 2, data: []float32{
			0, 0, 1, 0, 0, 1,
			0, 1, 1, 0, 1, 1,
		}},
	})
}

func newMeshBuffer(dev Device, streams []vertexStream) (*MeshBuffer, error) {
	if len(streams) == 0 || len(streams[0].data) == 0 {
		return nil, fmt.Errorf("%w: no position data", ErrInvalidMesh)
	}

	vertexCount := -1
	for _, s := range streams {
		if len(s.data) == 0 {
			continue
		}
		if len(s.data)%int(s.components) != 0 {
			return nil, fmt.Errorf("%w: %s has %d floats, not a multiple of %d",
				ErrInvalidMesh, s.name, len(s.data), s.components)
		}
		n := len(s.data) / int(s.components)
		if vertexCount >= 0 && n != vertexCount {
			return nil, fmt.Errorf("%w: %s has %d vertices, want %d",
				ErrInvalidMesh, s.name, n, vertexCount)
		}
		vertexCount = n
	}

	var cleanup Unwind
	mb := &MeshBuffer{VertexCount: int32(vertexCount)}
	for _, s := range streams {
		if len(s.data) == 0 {
			continue
		}
		buf, err := dev.CreateBuffer(s.data)
		if err != nil {
			cleanup.Unwind()
			return nil, fmt.Errorf("create %s buffer: %w", s.name, err)
		}
		cleanup.Add(func() { dev.DeleteBuffer(buf) })
		mb.Attributes = append(mb.Attributes, VertexAttribute{
			Name:       s.name,
			Buffer:     buf,
			Components: s.components,
		})
	}
	cleanup.Discard()
	return mb, nil
}

// Attribute returns the stream with the given name.
func (mb *MeshBuffer) Attribute(name string) (VertexAttribute, bool) {
	for _, a := range mb.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return VertexAttribute{}, false
}

func (mb *MeshBuffer) Destroy(dev Device) {
	for _, a := range mb.Attributes {
		dev.DeleteBuffer(a.Buffer)
	}
	mb.Attributes = nil
}
