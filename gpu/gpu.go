// Package gpu declares the slice of a graphics device that the quad renderer
// records through. Objects created by a Device are opaque to callers; a
// backend type-asserts them back to its own representation.
package gpu

import (
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Destroyer is implemented by every object a Device creates on behalf of the
// renderer.
type Destroyer interface {
	Destroy()
}

type (
	DescriptorSetLayout interface{ Destroyer }
	PipelineLayout      interface{ Destroyer }
	Sampler             interface{ Destroyer }
	Pipeline            interface{ Destroyer }
)

// The following handles are owned elsewhere (the descriptor pool, the
// swapchain, the shader loader) and are only passed through.
type (
	DescriptorSet  interface{}
	DescriptorPool interface{}
	PipelineCache  interface{}
	ShaderModule   interface{}
	RenderPass     interface{}
	ImageView      interface{}
	CommandBuffer  interface{}
)

// GraphicsPipelineDesc is the fixed-function and shader state of a graphics
// pipeline. Nil state pointers are left out of the create info.
type GraphicsPipelineDesc struct {
	VertexShader   ShaderModule
	FragmentShader ShaderModule

	VertexInput   *core1_0.PipelineVertexInputStateCreateInfo
	InputAssembly *core1_0.PipelineInputAssemblyStateCreateInfo
	Viewport      *core1_0.PipelineViewportStateCreateInfo
	Rasterization *core1_0.PipelineRasterizationStateCreateInfo
	Multisample   *core1_0.PipelineMultisampleStateCreateInfo
	DepthStencil  *core1_0.PipelineDepthStencilStateCreateInfo
	ColorBlend    *core1_0.PipelineColorBlendStateCreateInfo
	Dynamic       *core1_0.PipelineDynamicStateCreateInfo

	Layout     PipelineLayout
	RenderPass RenderPass
	Subpass    int
}

// Device creates the objects a textured quad needs and records the commands
// that bind them. Creation failures are returned unchanged from the driver.
type Device interface {
	CreateDescriptorSetLayout(bindings ...core1_0.DescriptorSetLayoutBinding) (DescriptorSetLayout, error)
	CreatePipelineLayout(setLayouts ...DescriptorSetLayout) (PipelineLayout, error)
	CreateSampler(info core1_0.SamplerCreateInfo) (Sampler, error)
	CreateGraphicsPipeline(cache PipelineCache, desc GraphicsPipelineDesc) (Pipeline, error)

	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error)
	// WriteCombinedImageSampler points binding of set at view, sampled with
	// sampler, in shader-read-only layout.
	WriteCombinedImageSampler(set DescriptorSet, binding int, sampler Sampler, view ImageView) error

	CmdBindPipeline(cmd CommandBuffer, pipeline Pipeline)
	CmdBindDescriptorSets(cmd CommandBuffer, layout PipelineLayout, sets ...DescriptorSet)
}
