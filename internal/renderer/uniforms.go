package renderer

import "github.com/go-gl/mathgl/mgl32"

// UniformValue is one of UniformInt, UniformFloat, UniformVec3 or UniformMat4.
// The caller guarantees the variant matches the uniform declared by the shader.
type UniformValue interface {
	isUniformValue()
}

type UniformInt int32
type UniformFloat float32
type UniformVec3 mgl32.Vec3
type UniformMat4 mgl32.Mat4

func (UniformInt) isUniformValue()   {}
func (UniformFloat) isUniformValue() {}
func (UniformVec3) isUniformValue()  {}
func (UniformMat4) isUniformValue()  {}

// Uniforms maps uniform names to values.
type Uniforms map[string]UniformValue

// upload pushes v to location of program on dev.
func upload(dev Device, program ProgramID, location int32, v UniformValue) {
	switch v := v.(type) {
	case UniformInt:
		dev.Uniform1i(program, location, int32(v))
	case UniformFloat:
		dev.Uniform1f(program, location, float32(v))
	case UniformVec3:
		dev.Uniform3f(program, location, mgl32.Vec3(v))
	case UniformMat4:
		dev.UniformMatrix4(program, location, mgl32.Mat4(v))
	}
}
