package loaders

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// toRGBA returns img as tightly packed 8 bit RGBA with its origin at 0,0.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// isLinear reports whether the decoded image carries linear data rather than
// display referred sRGB colors. Only 16 bit gray and 64 bit color models are
// treated as linear.
func isLinear(img image.Image) bool {
	switch img.ColorModel() {
	case color.Gray16Model, color.RGBA64Model, color.NRGBA64Model:
		return true
	}
	return false
}
