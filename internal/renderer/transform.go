package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// SceneInstance places a shared mesh in the world. Rotation is in radians.
type SceneInstance struct {
	Mesh        *MeshBuffer
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3
	Scale       mgl32.Vec3
}

// InstanceTransforms are the per-draw matrices of one instance.
type InstanceTransforms struct {
	World               mgl32.Mat4
	WorldViewProjection mgl32.Mat4
	Normal              mgl32.Mat4
}

// WorldMatrix composes T · Rx · Ry · Rz · S.
func WorldMatrix(inst SceneInstance) mgl32.Mat4 {
	t, r, s := inst.Translation, inst.Rotation, inst.Scale
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(mgl32.HomogRotate3DX(r[0])).
		Mul4(mgl32.HomogRotate3DY(r[1])).
		Mul4(mgl32.HomogRotate3DZ(r[2])).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// ViewProjection combines a projection with the inverse of a camera matrix.
func ViewProjection(projection, camera mgl32.Mat4) mgl32.Mat4 {
	return projection.Mul4(camera.Inv())
}

// ComputeInstanceTransforms derives the world, clip and normal matrices of inst.
func ComputeInstanceTransforms(inst SceneInstance, viewProjection mgl32.Mat4) InstanceTransforms {
	world := WorldMatrix(inst)
	return InstanceTransforms{
		World:               world,
		WorldViewProjection: viewProjection.Mul4(world),
		Normal:              world.Inv().Transpose(),
	}
}

// ShadowMatrix maps world positions into [0,1] shadow texture space:
// bias · shadowProjection · inverse(shadowCamera).
func ShadowMatrix(shadowProjection, shadowCamera mgl32.Mat4) mgl32.Mat4 {
	bias := mgl32.Translate3D(0.5, 0.5, 0.5).Mul4(mgl32.Scale3D(0.5, 0.5, 0.5))
	return bias.Mul4(shadowProjection).Mul4(shadowCamera.Inv())
}

// ProjectShadowCoord applies the shadow matrix to a world point. The bool is
// false when the point has no matching shadow sample: behind the light or
// outside the unit cube, which shades as fully lit.
func ProjectShadowCoord(shadow mgl32.Mat4, world mgl32.Vec3) (mgl32.Vec3, bool) {
	p := shadow.Mul4x1(world.Vec4(1))
	if p[3] == 0 {
		return mgl32.Vec3{}, false
	}
	coord := p.Vec3().Mul(1 / p[3])
	if p[3] < 0 {
		return coord, false
	}
	for _, c := range coord {
		if c < 0 || c > 1 {
			return coord, false
		}
	}
	return coord, true
}

// LightRig is the shadow caster: a wide perspective from Position toward Target.
type LightRig struct {
	Position mgl32.Vec3
	// Target doubles as the unit vector pointing back toward the light.
	Target mgl32.Vec3
	Fov    float32 // radians
	Near   float32
	Far    float32
}

// NewLightRig builds a rig looking from position toward the normalized direction point.
func NewLightRig(position, direction mgl32.Vec3, fovDeg, near, far float32) LightRig {
	return LightRig{
		Position: position,
		Target:   direction.Normalize(),
		Fov:      mgl32.DegToRad(fovDeg),
		Near:     near,
		Far:      far,
	}
}

// ReverseDirection is the direction toward the light used for shading.
func (l LightRig) ReverseDirection() mgl32.Vec3 {
	return l.Target
}

// CameraMatrix is the light's world transform (the inverse of its view matrix).
func (l LightRig) CameraMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(l.Position, l.Target, mgl32.Vec3{0, 1, 0}).Inv()
}

func (l LightRig) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(l.Fov, aspect, l.Near, l.Far)
}
