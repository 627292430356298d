package quad

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestVertexLayout(t *testing.T) {
	assert.Equal(t, uintptr(20), unsafe.Sizeof(Vertex{}))
	assert.Equal(t, uintptr(12), unsafe.Offsetof(Vertex{}.TexCoord))
}

func TestQuadInputState(t *testing.T) {
	textured := QuadInputState(true)
	require.Len(t, textured.VertexBindingDescriptions, 1)
	assert.Equal(t, core1_0.VertexInputBindingDescription{
		Binding:   0,
		Stride:    20,
		InputRate: core1_0.VertexInputRateVertex,
	}, textured.VertexBindingDescriptions[0])
	assert.Equal(t, []core1_0.VertexInputAttributeDescription{
		{Binding: 0, Location: 0, Format: core1_0.FormatR32G32B32SignedFloat, Offset: 0},
		{Binding: 0, Location: 1, Format: core1_0.FormatR32G32SignedFloat, Offset: 12},
	}, textured.VertexAttributeDescriptions)

	plain := QuadInputState(false)
	require.Len(t, plain.VertexAttributeDescriptions, 1)
	assert.Equal(t, 0, plain.VertexAttributeDescriptions[0].Location)
	assert.Equal(t, textured.VertexBindingDescriptions, plain.VertexBindingDescriptions)
}

func TestNewQuadIsTriangleStrip(t *testing.T) {
	q := NewQuad(-1, -0.5, 2, 1)

	assert.Equal(t, mgl32.Vec3{-1, -0.5, 0}, q[0].Position)
	assert.Equal(t, mgl32.Vec3{1, -0.5, 0}, q[1].Position)
	assert.Equal(t, mgl32.Vec3{-1, 0.5, 0}, q[2].Position)
	assert.Equal(t, mgl32.Vec3{1, 0.5, 0}, q[3].Position)

	assert.Equal(t, mgl32.Vec2{0, 0}, q[0].TexCoord)
	assert.Equal(t, mgl32.Vec2{1, 1}, q[3].TexCoord)
}
