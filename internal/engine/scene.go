package engine

import (
	"ToonForest/internal/config"
	"ToonForest/internal/loader"
	"ToonForest/internal/renderer"
	"context"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

func vec3(v config.Vec3) mgl32.Vec3 {
	return mgl32.Vec3(v)
}

// buildInstances resolves instance mesh names. Rotations are converted from
// degrees to radians.
func buildInstances(cfg []config.InstanceConfig, meshes map[string]*renderer.MeshBuffer) ([]renderer.SceneInstance, error) {
	instances := make([]renderer.SceneInstance, 0, len(cfg))
	for i, ic := range cfg {
		mesh, ok := meshes[ic.Mesh]
		if !ok {
			return nil, fmt.Errorf("instance %d: unknown mesh %q", i, ic.Mesh)
		}
		instances = append(instances, renderer.SceneInstance{
			Mesh:        mesh,
			Translation: vec3(ic.Translation),
			Rotation: mgl32.Vec3{
				mgl32.DegToRad(ic.Rotation[0]),
				mgl32.DegToRad(ic.Rotation[1]),
				mgl32.DegToRad(ic.Rotation[2]),
			},
			Scale: vec3(ic.Scale),
		})
	}
	return instances, nil
}

// programSources converts the configured registry into renderer definitions.
func programSources(cfg map[string]config.ProgramConfig) map[string]renderer.ProgramSource {
	defs := make(map[string]renderer.ProgramSource, len(cfg))
	for name, p := range cfg {
		defs[name] = renderer.ProgramSource{Vertex: p.Vertex, Fragment: p.Fragment}
	}
	return defs
}

// uploadMeshes parses every configured mesh concurrently and uploads the
// results. Already uploaded buffers are released on failure.
func uploadMeshes(ctx context.Context, dev renderer.Device, paths map[string]string, cacheDir string) (map[string]*renderer.MeshBuffer, error) {
	var cache *loader.MeshCache
	if cacheDir != "" {
		cache = &loader.MeshCache{Dir: cacheDir}
	}
	parsed, err := loader.LoadMeshes(ctx, paths, cache)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(parsed))
	for name := range parsed {
		names = append(names, name)
	}
	sort.Strings(names)

	buffers := make(map[string]*renderer.MeshBuffer, len(parsed))
	for _, name := range names {
		mb, err := renderer.NewMeshBuffer(dev, parsed[name])
		if err != nil {
			for _, b := range buffers {
				b.Destroy(dev)
			}
			return nil, fmt.Errorf("mesh %q: %w", name, err)
		}
		buffers[name] = mb
	}
	return buffers, nil
}

// loadTextures creates every configured texture. File textures start as
// placeholders; textures without a path are generated.
func loadTextures(tm *renderer.TextureManager, cfg []config.TextureConfig) ([]renderer.TextureBinding, error) {
	bindings := make([]renderer.TextureBinding, 0, len(cfg))
	for _, tc := range cfg {
		filter, err := renderer.ParseFilter(tc.Filter)
		if err != nil {
			return nil, err
		}

		var id renderer.TextureID
		if tc.Path != "" {
			id, err = tm.LoadAsync(tc.Path, filter)
		} else {
			id, err = tm.CreateFromImage(tc.Name, renderer.GenerateHashImage(hashTextureSize, tc.Seed), filter)
		}
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", tc.Name, err)
		}
		bindings = append(bindings, renderer.TextureBinding{Name: tc.Sampler, Unit: tc.Unit, Texture: id})
	}
	return bindings, nil
}

const hashTextureSize = 256
