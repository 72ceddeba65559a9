package drawable

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestProjectionFlipsY(t *testing.T) {
	gl := mgl32.Perspective(mgl32.DegToRad(45), 4.0/3.0, 0.1, 10)
	vk := projection(4.0 / 3.0)
	assert.Greater(t, gl.At(1, 1), float32(0))
	assert.InDelta(t, -gl.At(1, 1), vk.At(1, 1), 1e-6)
	assert.Equal(t, gl.At(0, 0), vk.At(0, 0))
}

func TestAspectRatio(t *testing.T) {
	assert.Equal(t, float32(2), aspectRatio(800, 400))
	assert.Equal(t, float32(1), aspectRatio(800, 0))
}

func TestComputeColorUniformsAtStart(t *testing.T) {
	u := ComputeColorUniforms(0, 800, 600)
	assert.True(t, u.Model.ApproxEqual(mgl32.Scale3D(0.5, 0.5, 0.5)))
	assert.True(t, u.View.ApproxEqual(mgl32.LookAtV(mgl32.Vec3{0, 0, 3}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})))
	assert.Less(t, u.Projection.At(1, 1), float32(0))
}

func TestComputeTexUniforms(t *testing.T) {
	vert, frag := ComputeTexUniforms(0, 800, 600)
	assert.True(t, vert.Model.ApproxEqual(mgl32.Ident4()))
	assert.True(t, vert.ModelInvTrans.ApproxEqual(mgl32.Ident4()))
	assert.True(t, frag.DiffuseLightPos.ApproxEqual(mgl32.Vec4{-0.7, 0.7, 1, 1}))
	assert.Equal(t, mgl32.Vec4{1, 1, 0, 1}, frag.DiffuseLightColor)
	assert.Equal(t, mgl32.Vec4{0.01, 0.01, 0.01, 1}, frag.AmbientColor)

	// 15 seconds is 90 degrees of model rotation and -450 (= -90) of light.
	vert, frag = ComputeTexUniforms(15*time.Second, 800, 600)
	x := vert.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assertInDeltaSlice(t, []float32{0, 1, 0, 1}, x[:])
	assertInDeltaSlice(t, []float32{0.7, 0.7, 1, 1}, frag.DiffuseLightPos[:])

	// For a pure rotation the inverse transpose is the rotation itself.
	assertInDeltaSlice(t, vert.Model[:], vert.ModelInvTrans[:])
}

// assertInDeltaSlice compares component-wise with an absolute tolerance, so
// rounding noise around zero does not fail the comparison.
func assertInDeltaSlice(t *testing.T, expected, actual []float32) {
	t.Helper()
	if !assert.Len(t, actual, len(expected)) {
		return
	}
	for i := range expected {
		assert.InDelta(t, expected[i], actual[i], 1e-5, "component %d", i)
	}
}
