package drawable

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// ColorUniforms is the vertex stage block of the flat color pipeline.
type ColorUniforms struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// TexVertUniforms is binding 0 of the textured pipeline.
type TexVertUniforms struct {
	Model         mgl32.Mat4
	ModelInvTrans mgl32.Mat4
	ProjView      mgl32.Mat4
}

// TexFragUniforms is binding 2 of the textured pipeline.
type TexFragUniforms struct {
	AmbientColor      mgl32.Vec4
	DiffuseLightPos   mgl32.Vec4
	DiffuseLightColor mgl32.Vec4
}

func aspectRatio(width, height uint32) float32 {
	if height == 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// projection is a 45 degree perspective with Y flipped for Vulkan's
// downward pointing clip space.
func projection(aspect float32) mgl32.Mat4 {
	proj := mgl32.Perspective(mgl32.DegToRad(45), aspect, 0.1, 10)
	proj.Set(1, 1, -proj.At(1, 1))
	return proj
}

func seconds(elapsed time.Duration) float32 {
	return float32(elapsed.Seconds())
}

// ComputeColorUniforms spins the light cube around the (0, 1, 1) axis at 20
// degrees per second.
func ComputeColorUniforms(elapsed time.Duration, width, height uint32) ColorUniforms {
	t := seconds(elapsed)
	axis := mgl32.Vec3{0, 1, 1}.Normalize()
	return ColorUniforms{
		Model:      mgl32.HomogRotate3D(t*mgl32.DegToRad(20), axis).Mul4(mgl32.Scale3D(0.5, 0.5, 0.5)),
		View:       mgl32.LookAtV(mgl32.Vec3{0, 0, 3}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}),
		Projection: projection(aspectRatio(width, height)),
	}
}

// ComputeTexUniforms turns the model 6 degrees per second around Z while the
// yellow light orbits the other way at 30 degrees per second.
func ComputeTexUniforms(elapsed time.Duration, width, height uint32) (TexVertUniforms, TexFragUniforms) {
	t := seconds(elapsed)
	model := mgl32.HomogRotate3DZ(t * mgl32.DegToRad(6))
	view := mgl32.LookAtV(mgl32.Vec3{2, 2, 2}, mgl32.Vec3{0, 0, 0.25}, mgl32.Vec3{0, 0, 1})

	vert := TexVertUniforms{
		Model:         model,
		ModelInvTrans: model.Inv().Transpose(),
		ProjView:      projection(aspectRatio(width, height)).Mul4(view),
	}
	light := mgl32.HomogRotate3DZ(-t * mgl32.DegToRad(30))
	frag := TexFragUniforms{
		AmbientColor:      mgl32.Vec4{0.01, 0.01, 0.01, 1},
		DiffuseLightPos:   light.Mul4x1(mgl32.Vec4{-0.7, 0.7, 1, 1}),
		DiffuseLightColor: mgl32.Vec4{1, 1, 0, 1},
	}
	return vert, frag
}
