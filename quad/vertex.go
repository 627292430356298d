package quad

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// VertexCount is the number of vertices in a quad triangle strip.
const VertexCount = 4

// Vertex is the interleaved layout of the quad vertex buffer.
type Vertex struct {
	Position mgl32.Vec3
	TexCoord mgl32.Vec2
}

// NewQuad returns the strip for the rectangle at (x, y) of size w x h, in
// top-left, top-right, bottom-left, bottom-right order, with texture
// coordinates spanning the whole texture.
func NewQuad(x, y, w, h float32) [VertexCount]Vertex {
	return [VertexCount]Vertex{
		{Position: mgl32.Vec3{x, y, 0}, TexCoord: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{x + w, y, 0}, TexCoord: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{x, y + h, 0}, TexCoord: mgl32.Vec2{0, 1}},
		{Position: mgl32.Vec3{x + w, y + h, 0}, TexCoord: mgl32.Vec2{1, 1}},
	}
}

// QuadInputState describes one vertex buffer at binding 0 holding Vertex
// values. The texture coordinate attribute is only declared when uv is set,
// for shaders that do not sample.
func QuadInputState(uv bool) *core1_0.PipelineVertexInputStateCreateInfo {
	v := Vertex{}
	attributes := []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
	}
	if uv {
		attributes = append(attributes, core1_0.VertexInputAttributeDescription{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.TexCoord)),
		})
	}

	return &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions: []core1_0.VertexInputBindingDescription{
			{
				Binding:   0,
				Stride:    int(unsafe.Sizeof(v)),
				InputRate: core1_0.VertexInputRateVertex,
			},
		},
		VertexAttributeDescriptions: attributes,
	}
}
