package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Vec3 [3]float32

// Duration reads as a Go duration string ("33ms") from both YAML and TOML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

type WindowConfig struct {
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
	Title  string `yaml:"title" toml:"title"`
}

type CameraConfig struct {
	Offset      Vec3    `yaml:"offset" toml:"offset"`
	Fov         float32 `yaml:"fov" toml:"fov"` // degrees
	Near        float32 `yaml:"near" toml:"near"`
	Far         float32 `yaml:"far" toml:"far"`
	Sensitivity float32 `yaml:"sensitivity" toml:"sensitivity"` // radians per pixel
	SliderStep  float32 `yaml:"sliderStep" toml:"sliderStep"`
}

type LightConfig struct {
	Position  Vec3    `yaml:"position" toml:"position"`
	Direction Vec3    `yaml:"direction" toml:"direction"`
	Fov       float32 `yaml:"fov" toml:"fov"` // degrees
	Near      float32 `yaml:"near" toml:"near"`
	Far       float32 `yaml:"far" toml:"far"`
}

// ProgramConfig names the vertex and fragment shader sources of a program.
type ProgramConfig struct {
	Vertex   string `yaml:"vertex" toml:"vertex"`
	Fragment string `yaml:"fragment" toml:"fragment"`
}

// TextureConfig describes a sampler texture. An empty Path means the texture is generated.
type TextureConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Sampler string `yaml:"sampler" toml:"sampler"` // sampler uniform the texture feeds
	Path    string `yaml:"path" toml:"path"`
	Unit    uint32 `yaml:"unit" toml:"unit"`
	Filter  string `yaml:"filter" toml:"filter"` // linear (default) | nearest
	Seed    int64  `yaml:"seed" toml:"seed"`
}

type InstanceConfig struct {
	Mesh        string `yaml:"mesh" toml:"mesh"`
	Translation Vec3   `yaml:"translation" toml:"translation"`
	Rotation    Vec3   `yaml:"rotation" toml:"rotation"` // degrees
	Scale       Vec3   `yaml:"scale" toml:"scale"`
}

type Config struct {
	Window           WindowConfig             `yaml:"window" toml:"window"`
	TickInterval     Duration                 `yaml:"tickInterval" toml:"tickInterval"`
	ShadowResolution int                      `yaml:"shadowResolution" toml:"shadowResolution"`
	ClearColor       [4]float32               `yaml:"clearColor" toml:"clearColor"`
	TimeStep         float32                  `yaml:"timeStep" toml:"timeStep"`
	Camera           CameraConfig             `yaml:"camera" toml:"camera"`
	Light            LightConfig              `yaml:"light" toml:"light"`
	Programs         map[string]ProgramConfig `yaml:"programs" toml:"programs"`
	DefaultProgram   string                   `yaml:"defaultProgram" toml:"defaultProgram"`
	SelectorOrder    []string                 `yaml:"selectorOrder" toml:"selectorOrder"`
	Textures         []TextureConfig          `yaml:"textures" toml:"textures"`
	WatchTextures    bool                     `yaml:"watchTextures" toml:"watchTextures"`
	Meshes           map[string]string        `yaml:"meshes" toml:"meshes"`
	MeshCacheDir     string                   `yaml:"meshCacheDir" toml:"meshCacheDir"` // empty disables the parsed mesh cache
	Instances        []InstanceConfig         `yaml:"instances" toml:"instances"`
}

// ReservedUnits texture units are owned by the render targets (shadow/scene depth and scene color).
const ReservedUnits = 2

// PostProgramPrefix is prepended to a scene program name to get its composite program.
const PostProgramPrefix = "postp_"

// Default returns the forest demo configuration.
func Default() *Config {
	tree := func(x, z float32) InstanceConfig {
		return InstanceConfig{Mesh: "tree", Translation: Vec3{x, 0, z}, Scale: Vec3{2, 2, 2}}
	}
	return &Config{
		Window:           WindowConfig{Width: 1280, Height: 720, Title: "ToonForest"},
		TickInterval:     Duration(33 * time.Millisecond),
		ShadowResolution: 512,
		ClearColor:       [4]float32{1, 1, 1, 1},
		TimeStep:         0.03,
		Camera: CameraConfig{
			Offset:      Vec3{0, 10, 0},
			Fov:         60,
			Near:        1,
			Far:         200,
			Sensitivity: 0.01,
			SliderStep:  0.5,
		},
		Light: LightConfig{
			Position:  Vec3{0, 5, 0},
			Direction: Vec3{0.5, 0.7, -1},
			Fov:       120,
			Near:      0.1,
			Far:       200,
		},
		Programs: map[string]ProgramConfig{
			"default": {Vertex: "default-vertex", Fragment: "default-fragment"},
			"gooch":   {Vertex: "default-vertex", Fragment: "gooch-fragment"},
			"comics":  {Vertex: "default-vertex", Fragment: "comics-fragment"},
			"drawing": {Vertex: "default-vertex", Fragment: "drawing-fragment"},

			"postp_default": {Vertex: "default-vertex-postp", Fragment: "default-fragment-postp"},
			"postp_gooch":   {Vertex: "default-vertex-postp", Fragment: "outline-fragment-postp"},
			"postp_comics":  {Vertex: "default-vertex-postp", Fragment: "outline-fragment-postp"},
			"postp_drawing": {Vertex: "default-vertex-postp", Fragment: "outline-fragment-postp"},
		},
		DefaultProgram: "default",
		SelectorOrder:  []string{"default", "gooch", "comics", "drawing"},
		Textures: []TextureConfig{
			{Name: "palette", Sampler: "u_texture", Path: "resources/palette.png", Unit: 2, Filter: "linear"},
			{Name: "hash", Sampler: "u_textureHash", Unit: 4, Filter: "nearest", Seed: 7},
		},
		Meshes: map[string]string{
			"tree":   "embedded:tree.obj",
			"ground": "embedded:ground.obj",
		},
		Instances: []InstanceConfig{
			tree(0, -23),
			tree(0, 25),
			tree(10, 20),
			tree(-11, -22),
			tree(23, 0),
			tree(-22, -1),
			{Mesh: "ground", Translation: Vec3{0, -4, 0}, Scale: Vec3{3, 1, 3}},
		},
	}
}

// Load decodes a YAML or TOML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross references between programs, meshes and instances.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("tickInterval must be positive"))
	}
	if c.ShadowResolution <= 0 {
		errs = append(errs, errors.New("shadowResolution must be positive"))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, errors.New("camera near/far planes are invalid"))
	}
	if c.Light.Near <= 0 || c.Light.Far <= c.Light.Near {
		errs = append(errs, errors.New("light near/far planes are invalid"))
	}
	if c.Light.Direction == (Vec3{}) {
		errs = append(errs, errors.New("light direction must not be zero"))
	}

	selectable := append([]string{c.DefaultProgram}, c.SelectorOrder...)
	for _, name := range selectable {
		if _, ok := c.Programs[name]; !ok {
			errs = append(errs, fmt.Errorf("program %q is not defined", name))
		}
		if _, ok := c.Programs[PostProgramPrefix+name]; !ok {
			errs = append(errs, fmt.Errorf("program %q has no %s variant", name, PostProgramPrefix))
		}
	}

	for i, inst := range c.Instances {
		if _, ok := c.Meshes[inst.Mesh]; !ok {
			errs = append(errs, fmt.Errorf("instance %d references unknown mesh %q", i, inst.Mesh))
		}
	}

	seen := make(map[uint32]string)
	for _, tex := range c.Textures {
		if other, ok := seen[tex.Unit]; ok {
			errs = append(errs, fmt.Errorf("textures %q and %q share unit %d", other, tex.Name, tex.Unit))
		}
		seen[tex.Unit] = tex.Name
		if tex.Unit < ReservedUnits {
			errs = append(errs, fmt.Errorf("texture %q uses reserved unit %d", tex.Name, tex.Unit))
		}
		if tex.Sampler == "" {
			errs = append(errs, fmt.Errorf("texture %q has no sampler", tex.Name))
		}
		// empty means linear, as in renderer.ParseFilter
		if tex.Filter != "" && tex.Filter != "linear" && tex.Filter != "nearest" {
			errs = append(errs, fmt.Errorf("texture %q has unknown filter %q", tex.Name, tex.Filter))
		}
	}
	return errors.Join(errs...)
}
