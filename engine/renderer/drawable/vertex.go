package drawable

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/viking/engine/assets/loaders"
)

// ColorVertex is a position with a flat RGB color.
type ColorVertex struct {
	Pos   mgl32.Vec3
	Color mgl32.Vec3
}

func (ColorVertex) Binding() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(ColorVertex{})),
		InputRate: vk.VertexInputRateVertex,
	}
}

func (ColorVertex) Attributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Binding: 0, Location: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(ColorVertex{}.Pos))},
		{Binding: 0, Location: 1, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(ColorVertex{}.Color))},
	}
}

// TexVertex has the same layout as loaders.Vertex, so a loaded model
// converts element by element.
type TexVertex struct {
	Pos      mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

func (TexVertex) Binding() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(TexVertex{})),
		InputRate: vk.VertexInputRateVertex,
	}
}

func (TexVertex) Attributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Binding: 0, Location: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(TexVertex{}.Pos))},
		{Binding: 0, Location: 1, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(TexVertex{}.Normal))},
		{Binding: 0, Location: 2, Format: vk.FormatR32g32Sfloat, Offset: uint32(unsafe.Offsetof(TexVertex{}.TexCoord))},
	}
}

func texVertices(model *loaders.Model) []TexVertex {
	out := make([]TexVertex, len(model.Vertices))
	for i, v := range model.Vertices {
		out[i] = TexVertex(v)
	}
	return out
}
