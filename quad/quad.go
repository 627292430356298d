// Package quad draws a single textured, axis-aligned quad through a baked
// graphics pipeline. It is meant to be driven repeatedly by a larger renderer
// for framebuffer blits, post-processing passes and overlays.
//
// A Pipeline owns the layouts, samplers and per-blend pipeline states; a
// Drawer owns one descriptor set per swap frame and records the draw. All
// calls are expected from the goroutine recording the command buffer.
package quad

import (
	"github.com/vkngwrapper/quad/gpu"
)

// ShaderProvider supplies the compiled quad shaders. The modules must outlive
// every pipeline built from them.
type ShaderProvider interface {
	VertexShader() gpu.ShaderModule
	FragmentShader() gpu.ShaderModule
}

// RenderContext is the renderer state the quad reads from: the device, the
// pool descriptor sets come from, and the swap frame currently recording.
type RenderContext interface {
	Device() gpu.Device
	PipelineCache() gpu.PipelineCache
	DescriptorPool() gpu.DescriptorPool
	CurrentFrameIndex() int
	SwapFrameCount() int
}

// VertexBuffer uploads the four quad vertices and records their bind and
// draw. The caller guarantees the GPU has finished reading a region before
// Update overwrites it.
type VertexBuffer interface {
	Update(vertices *[VertexCount]Vertex) error
	Bind(cmd gpu.CommandBuffer)
	Draw(cmd gpu.CommandBuffer)
}

// RenderTarget identifies the render pass and subpass a pipeline is baked
// against.
type RenderTarget struct {
	RenderPass gpu.RenderPass
	Subpass    int
}
