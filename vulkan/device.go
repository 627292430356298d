// Package vulkan implements the quad renderer's device, vertex buffer, shader
// and render context contracts on top of vkngwrapper.
package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/quad/gpu"
)

// Device implements gpu.Device over a vkngwrapper device driver.
//
// Externally owned handles are passed through gpu interfaces as their
// core1_0 values: core1_0.RenderPass, core1_0.ImageView,
// core1_0.CommandBuffer, core1_0.DescriptorPool, core1_0.ShaderModule and
// core1_0.PipelineCache (or a nil interface for no cache).
type Device struct {
	driver      core1_0.CoreDeviceDriver
	memoryTypes []core1_0.MemoryType
}

// NewDevice wraps driver. memoryTypes are the physical device's memory types,
// used to place buffers and images.
func NewDevice(driver core1_0.CoreDeviceDriver, memoryTypes []core1_0.MemoryType) *Device {
	return &Device{driver: driver, memoryTypes: memoryTypes}
}

func (d *Device) Driver() core1_0.CoreDeviceDriver {
	return d.driver
}

type descriptorSetLayout struct {
	d      *Device
	handle core1_0.DescriptorSetLayout
}

func (l *descriptorSetLayout) Destroy() {
	l.d.driver.DestroyDescriptorSetLayout(l.handle, nil)
}

type pipelineLayout struct {
	d      *Device
	handle core1_0.PipelineLayout
}

func (l *pipelineLayout) Destroy() {
	l.d.driver.DestroyPipelineLayout(l.handle, nil)
}

type sampler struct {
	d      *Device
	handle core1_0.Sampler
}

func (s *sampler) Destroy() {
	s.d.driver.DestroySampler(s.handle, nil)
}

type pipeline struct {
	d      *Device
	handle core1_0.Pipeline
}

func (p *pipeline) Destroy() {
	p.d.driver.DestroyPipeline(p.handle, nil)
}

func (d *Device) CreateDescriptorSetLayout(bindings ...core1_0.DescriptorSetLayoutBinding) (gpu.DescriptorSetLayout, error) {
	layout, _, err := d.driver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: bindings,
	})
	if err != nil {
		return nil, err
	}
	return &descriptorSetLayout{d: d, handle: layout}, nil
}

func (d *Device) CreatePipelineLayout(setLayouts ...gpu.DescriptorSetLayout) (gpu.PipelineLayout, error) {
	handles := make([]core1_0.DescriptorSetLayout, 0, len(setLayouts))
	for _, setLayout := range setLayouts {
		handles = append(handles, setLayout.(*descriptorSetLayout).handle)
	}

	layout, _, err := d.driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: handles,
	})
	if err != nil {
		return nil, err
	}
	return &pipelineLayout{d: d, handle: layout}, nil
}

func (d *Device) CreateSampler(info core1_0.SamplerCreateInfo) (gpu.Sampler, error) {
	handle, _, err := d.driver.CreateSampler(nil, info)
	if err != nil {
		return nil, err
	}
	return &sampler{d: d, handle: handle}, nil
}

// pipelineCache returns nil unless cache holds an initialized handle.
func pipelineCache(cache gpu.PipelineCache) *core1_0.PipelineCache {
	switch c := cache.(type) {
	case core1_0.PipelineCache:
		if c.Initialized() {
			return &c
		}
	case *core1_0.PipelineCache:
		if c != nil && c.Initialized() {
			return c
		}
	}
	return nil
}

func (d *Device) CreateGraphicsPipeline(cache gpu.PipelineCache, desc gpu.GraphicsPipelineDesc) (gpu.Pipeline, error) {
	if desc.VertexShader == nil || desc.FragmentShader == nil {
		return nil, errors.New("graphics pipeline needs a vertex and a fragment shader")
	}

	pipelines, _, err := d.driver.CreateGraphicsPipelines(pipelineCache(cache), nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{
					Stage:  core1_0.StageVertex,
					Module: desc.VertexShader.(core1_0.ShaderModule),
					Name:   "main",
				},
				{
					Stage:  core1_0.StageFragment,
					Module: desc.FragmentShader.(core1_0.ShaderModule),
					Name:   "main",
				},
			},
			VertexInputState:   desc.VertexInput,
			InputAssemblyState: desc.InputAssembly,
			ViewportState:      desc.Viewport,
			RasterizationState: desc.Rasterization,
			MultisampleState:   desc.Multisample,
			DepthStencilState:  desc.DepthStencil,
			ColorBlendState:    desc.ColorBlend,
			DynamicState:       desc.Dynamic,
			Layout:             desc.Layout.(*pipelineLayout).handle,
			RenderPass:         desc.RenderPass.(core1_0.RenderPass),
			Subpass:            desc.Subpass,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		return nil, err
	}
	return &pipeline{d: d, handle: pipelines[0]}, nil
}

func (d *Device) AllocateDescriptorSet(pool gpu.DescriptorPool, layout gpu.DescriptorSetLayout) (gpu.DescriptorSet, error) {
	sets, _, err := d.driver.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: pool.(core1_0.DescriptorPool),
		SetLayouts:     []core1_0.DescriptorSetLayout{layout.(*descriptorSetLayout).handle},
	})
	if err != nil {
		return nil, err
	}
	return sets[0], nil
}

func (d *Device) WriteCombinedImageSampler(set gpu.DescriptorSet, binding int, s gpu.Sampler, view gpu.ImageView) error {
	return d.driver.UpdateDescriptorSets([]core1_0.WriteDescriptorSet{
		{
			DstSet:          set.(core1_0.DescriptorSet),
			DstBinding:      binding,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					Sampler:     s.(*sampler).handle,
					ImageView:   view.(core1_0.ImageView),
					ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
				},
			},
		},
	}, nil)
}

func (d *Device) CmdBindPipeline(cmd gpu.CommandBuffer, p gpu.Pipeline) {
	d.driver.CmdBindPipeline(cmd.(core1_0.CommandBuffer), core1_0.PipelineBindPointGraphics, p.(*pipeline).handle)
}

func (d *Device) CmdBindDescriptorSets(cmd gpu.CommandBuffer, layout gpu.PipelineLayout, sets ...gpu.DescriptorSet) {
	handles := make([]core1_0.DescriptorSet, 0, len(sets))
	for _, set := range sets {
		handles = append(handles, set.(core1_0.DescriptorSet))
	}
	d.driver.CmdBindDescriptorSets(cmd.(core1_0.CommandBuffer), core1_0.PipelineBindPointGraphics,
		layout.(*pipelineLayout).handle, 0, handles, nil)
}

// SetDynamicState records the viewport, scissor and blend constants the quad
// pipeline leaves dynamic, covering extent from the origin.
func (d *Device) SetDynamicState(cmd core1_0.CommandBuffer, extent core1_0.Extent2D, blendConstants [4]float32) {
	d.driver.CmdSetViewport(cmd, core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	d.driver.CmdSetScissor(cmd, core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: extent,
	})
	d.driver.CmdSetBlendConstants(cmd, blendConstants)
}

// CreateDescriptorPool creates a pool holding one combined image sampler set
// per swap frame.
func (d *Device) CreateDescriptorPool(frames int) (core1_0.DescriptorPool, error) {
	pool, _, err := d.driver.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets: frames,
		PoolSizes: []core1_0.DescriptorPoolSize{
			{
				Type:            core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: frames,
			},
		},
	})
	return pool, err
}

// CreateShaderModule wraps SPIR-V bytes read from disk.
func (d *Device) CreateShaderModule(spirv []byte) (core1_0.ShaderModule, error) {
	if len(spirv)%4 != 0 {
		return core1_0.ShaderModule{}, errors.Errorf("spir-v size %d is not a multiple of 4", len(spirv))
	}
	module, _, err := d.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: bytesToBytecode(spirv),
	})
	return module, err
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
