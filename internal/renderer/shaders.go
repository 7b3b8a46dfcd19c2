package renderer

// Uniform names shared by the stylized programs.
const (
	UniformWorld           = "u_world"
	UniformNormalMatrix    = "u_normalMatrix"
	UniformWorldViewMatrix = "u_worldViewMatrix"
	UniformCameraView      = "u_cameraView"
	UniformShadowMatrix    = "u_shadowMatrix"
	UniformReverseLightDir = "u_reverseLightDir"
	UniformShadowTexture   = "u_shadowTexture"
	UniformTime            = "u_time"

	UniformWidth         = "u_width"
	UniformHeight        = "u_height"
	UniformNear          = "u_near"
	UniformFar           = "u_far"
	UniformDepthTexture  = "u_depthTexture"
	UniformScreenTexture = "u_screenTexture"
)

// Texture units owned by the pipeline itself. Asset textures use higher units.
const (
	ShadowUnit uint32 = 0 // shadow depth in the scene pass, scene depth in the post pass
	SceneUnit  uint32 = 1 // scene color in the post pass
)

// PostProcessPrefix turns a stylized program name into its post-process variant.
const PostProcessPrefix = "postp_"

// PostProcessName returns the name of the post-process program paired with name.
func PostProcessName(name string) string {
	return PostProcessPrefix + name
}

// DefaultShaderSources returns the GLSL sources keyed by source ID.
func DefaultShaderSources() map[string]string {
	return map[string]string{
		"default-vertex":         defaultVertex,
		"default-fragment":       fragmentHeader + shadowLookup + defaultFragment,
		"gooch-fragment":         fragmentHeader + shadowLookup + goochFragment,
		"comics-fragment":        fragmentHeader + shadowLookup + comicsFragment,
		"drawing-fragment":       fragmentHeader + shadowLookup + drawingFragment,
		"default-vertex-postp":   postVertex,
		"default-fragment-postp": postHeader + postDefaultFragment,
		"outline-fragment-postp": postHeader + postOutlineFragment,
	}
}

const defaultVertex = `#version 330 core

in vec3 a_position;
in vec2 a_texcoord;
in vec3 a_normal;

uniform mat4 u_world;
uniform mat4 u_normalMatrix;
uniform mat4 u_worldViewMatrix;
uniform mat4 u_shadowMatrix;

out vec2 v_texcoord;
out vec3 v_normal;
out vec3 v_worldPos;
out vec4 v_shadowCoord;

void main() {
    vec4 world = u_world * vec4(a_position, 1.0);
    v_worldPos = world.xyz;
    v_shadowCoord = u_shadowMatrix * world;
    v_normal = mat3(u_normalMatrix) * a_normal;
    v_texcoord = a_texcoord;
    gl_Position = u_worldViewMatrix * vec4(a_position, 1.0);
}
`

const fragmentHeader = `#version 330 core

in vec2 v_texcoord;
in vec3 v_normal;
in vec3 v_worldPos;
in vec4 v_shadowCoord;

uniform vec3 u_reverseLightDir;
uniform sampler2D u_texture;
uniform sampler2D u_shadowTexture;
uniform sampler2D u_textureHash;
uniform mat4 u_cameraView;
uniform float u_time;

out vec4 outColor;
`

// shadowLookup treats coordinates outside the unit cube as fully lit.
const shadowLookup = `
float lit() {
    vec3 p = v_shadowCoord.xyz / v_shadowCoord.w;
    if (v_shadowCoord.w <= 0.0 || any(lessThan(p, vec3(0.0))) || any(greaterThan(p, vec3(1.0)))) {
        return 1.0;
    }
    float closest = texture(u_shadowTexture, p.xy).r;
    return p.z - 0.005 > closest ? 0.4 : 1.0;
}

float diffuse() {
    return max(dot(normalize(v_normal), normalize(u_reverseLightDir)), 0.0) * lit();
}
`

const defaultFragment = `
void main() {
    float level = floor(diffuse() * 4.0) / 4.0;
    vec3 color = texture(u_texture, vec2(clamp(level, 0.02, 0.98), v_texcoord.y)).rgb;
    outColor = vec4(color, 1.0);
}
`

const goochFragment = `
void main() {
    vec3 base = texture(u_texture, vec2(0.6, v_texcoord.y)).rgb;
    vec3 cool = vec3(0.0, 0.0, 0.55) + 0.25 * base;
    vec3 warm = vec3(0.3, 0.3, 0.0) + 0.5 * base;
    float t = (1.0 + dot(normalize(v_normal), normalize(u_reverseLightDir))) * 0.5 * lit();
    outColor = vec4(mix(cool, warm, t), 1.0);
}
`

const comicsFragment = `
void main() {
    float level = diffuse();
    vec3 color = texture(u_texture, vec2(level > 0.5 ? 0.9 : 0.4, v_texcoord.y)).rgb;
    vec2 cell = fract(gl_FragCoord.xy / 6.0) - 0.5;
    float radius = (1.0 - level) * 0.5;
    float dots = length(cell) < radius ? 0.6 : 1.0;
    float grain = texture(u_textureHash, gl_FragCoord.xy / 64.0).r;
    outColor = vec4(color * dots * (0.9 + 0.1 * grain), 1.0);
}
`

const drawingFragment = `
void main() {
    float level = diffuse();
    vec2 jitter = vec2(floor(u_time * 4.0) * 0.13, 0.0);
    vec4 hash = texture(u_textureHash, gl_FragCoord.xy / 128.0 + jitter);
    float hatch = 1.0;
    if (level < 0.75 && fract((gl_FragCoord.x + gl_FragCoord.y) / 8.0) < 0.2) hatch = hash.r;
    if (level < 0.35 && fract((gl_FragCoord.x - gl_FragCoord.y) / 8.0) < 0.2) hatch *= hash.g;
    vec3 paper = vec3(0.96, 0.94, 0.88);
    outColor = vec4(paper * mix(0.35, 1.0, hatch), 1.0);
}
`

const postVertex = `#version 330 core

in vec3 a_position;
in vec2 a_texcoord;

out vec2 v_texcoord;

void main() {
    v_texcoord = a_texcoord;
    gl_Position = vec4(a_position, 1.0);
}
`

const postHeader = `#version 330 core

in vec2 v_texcoord;

uniform sampler2D u_depthTexture;
uniform sampler2D u_screenTexture;
uniform float u_width;
uniform float u_height;
uniform float u_near;
uniform float u_far;

out vec4 outColor;
`

const postDefaultFragment = `
void main() {
    outColor = texture(u_screenTexture, v_texcoord);
}
`

// Depth is linearized with the scene camera's clip planes.
const postOutlineFragment = `
float linearDepth(vec2 uv) {
    float z = texture(u_depthTexture, uv).r * 2.0 - 1.0;
    return (2.0 * u_near * u_far) / (u_far + u_near - z * (u_far - u_near));
}

void main() {
    vec2 texel = vec2(1.0 / u_width, 1.0 / u_height);
    float c = linearDepth(v_texcoord);
    float edge = abs(linearDepth(v_texcoord + vec2(texel.x, 0.0)) - c)
               + abs(linearDepth(v_texcoord - vec2(texel.x, 0.0)) - c)
               + abs(linearDepth(v_texcoord + vec2(0.0, texel.y)) - c)
               + abs(linearDepth(v_texcoord - vec2(0.0, texel.y)) - c);
    vec4 color = texture(u_screenTexture, v_texcoord);
    outColor = edge > 0.6 ? vec4(vec3(0.05), 1.0) : color;
}
`
