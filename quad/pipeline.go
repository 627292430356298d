package quad

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/quad/gpu"
)

// textureBinding is the descriptor binding of the sampled texture.
const textureBinding = 0

// Pipeline builds and caches the quad pipeline states.
//
// The descriptor set layout, pipeline layout and both samplers are created
// once and shared by every state. Pipeline states are baked per BlendVariant
// against a single RenderTarget and are dropped whenever the target changes.
type Pipeline struct {
	ctx     RenderContext
	shaders ShaderProvider

	layoutReady    bool
	descSetLayout  gpu.DescriptorSetLayout
	pipelineLayout gpu.PipelineLayout
	nearestSampler gpu.Sampler
	linearSampler  gpu.Sampler

	configured bool
	target     RenderTarget
	states     [blendVariantCount]gpu.Pipeline
}

func NewPipeline(ctx RenderContext) *Pipeline {
	return &Pipeline{ctx: ctx}
}

// Init records the shaders and prepares the pipeline for target. It is safe
// to call before every frame: shared resources and states built for an
// unchanged target are kept.
func (p *Pipeline) Init(shaders ShaderProvider, target RenderTarget) error {
	p.shaders = shaders

	err := p.EnsureSharedResources()
	if err != nil {
		return err
	}

	p.Configure(target)
	return nil
}

// EnsureSharedResources creates the layouts and samplers the first time it is
// called and does nothing afterwards.
func (p *Pipeline) EnsureSharedResources() error {
	if p.layoutReady {
		return nil
	}
	device := p.ctx.Device()

	descSetLayout, err := device.CreateDescriptorSetLayout(core1_0.DescriptorSetLayoutBinding{
		Binding:         textureBinding,
		DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		StageFlags:      core1_0.StageFragment,
	})
	if err != nil {
		return errors.Wrap(err, "quad: create descriptor set layout")
	}

	pipelineLayout, err := device.CreatePipelineLayout(descSetLayout)
	if err != nil {
		descSetLayout.Destroy()
		return errors.Wrap(err, "quad: create pipeline layout")
	}

	nearest, err := device.CreateSampler(samplerInfo(core1_0.FilterNearest, core1_0.SamplerMipmapModeNearest))
	if err != nil {
		pipelineLayout.Destroy()
		descSetLayout.Destroy()
		return errors.Wrap(err, "quad: create nearest sampler")
	}

	linear, err := device.CreateSampler(samplerInfo(core1_0.FilterLinear, core1_0.SamplerMipmapModeLinear))
	if err != nil {
		nearest.Destroy()
		pipelineLayout.Destroy()
		descSetLayout.Destroy()
		return errors.Wrap(err, "quad: create linear sampler")
	}

	p.descSetLayout = descSetLayout
	p.pipelineLayout = pipelineLayout
	p.nearestSampler = nearest
	p.linearSampler = linear
	p.layoutReady = true
	return nil
}

func samplerInfo(filter core1_0.Filter, mipmap core1_0.SamplerMipmapMode) core1_0.SamplerCreateInfo {
	return core1_0.SamplerCreateInfo{
		MagFilter:  filter,
		MinFilter:  filter,
		MipmapMode: mipmap,

		AddressModeU: core1_0.SamplerAddressModeClampToBorder,
		AddressModeV: core1_0.SamplerAddressModeClampToBorder,
		AddressModeW: core1_0.SamplerAddressModeClampToBorder,

		AnisotropyEnable: false,
		MaxAnisotropy:    16,

		CompareEnable: false,
		CompareOp:     core1_0.CompareOpNever,

		MinLod: 0,
		MaxLod: 0,

		BorderColor: core1_0.BorderColorFloatOpaqueBlack,
	}
}

// Configure points the pipeline at target. If target differs from the
// current one every baked state is destroyed, so the caller must not have
// them in use by the GPU at that point.
func (p *Pipeline) Configure(target RenderTarget) {
	if p.configured && p.target == target {
		return
	}

	p.releaseStates()
	p.target = target
	p.configured = true
}

func (p *Pipeline) releaseStates() {
	for i, state := range p.states {
		if state != nil {
			state.Destroy()
			p.states[i] = nil
		}
	}
}

// CreatePipeline bakes the state for variant against the configured target.
// An existing state for variant is replaced.
func (p *Pipeline) CreatePipeline(variant BlendVariant) error {
	if !variant.valid() {
		return errors.AssertionFailedf("quad: invalid blend variant %d", int(variant))
	}
	if !p.layoutReady || !p.configured {
		return errors.AssertionFailedf("quad: CreatePipeline(%s) before Init", variant)
	}
	if p.shaders == nil {
		return errors.AssertionFailedf("quad: CreatePipeline(%s) without shaders", variant)
	}

	state, err := p.ctx.Device().CreateGraphicsPipeline(p.ctx.PipelineCache(), p.describe(variant))
	if err != nil {
		return errors.Wrapf(err, "quad: create %s pipeline", variant)
	}

	if old := p.states[variant]; old != nil {
		old.Destroy()
	}
	p.states[variant] = state
	return nil
}

func (p *Pipeline) describe(variant BlendVariant) gpu.GraphicsPipelineDesc {
	return gpu.GraphicsPipelineDesc{
		VertexShader:   p.shaders.VertexShader(),
		FragmentShader: p.shaders.FragmentShader(),

		VertexInput: QuadInputState(true),
		InputAssembly: &core1_0.PipelineInputAssemblyStateCreateInfo{
			Topology:               core1_0.PrimitiveTopologyTriangleStrip,
			PrimitiveRestartEnable: false,
		},
		// Viewport and scissor are dynamic; only the count of one matters.
		Viewport: &core1_0.PipelineViewportStateCreateInfo{
			Viewports: []core1_0.Viewport{{}},
			Scissors:  []core1_0.Rect2D{{}},
		},
		Rasterization: &core1_0.PipelineRasterizationStateCreateInfo{
			DepthClampEnable:        false,
			RasterizerDiscardEnable: false,

			PolygonMode: core1_0.PolygonModeFill,
			FrontFace:   core1_0.FrontFaceCounterClockwise,

			DepthBiasEnable: false,

			LineWidth: 1.0,
		},
		Multisample: &core1_0.PipelineMultisampleStateCreateInfo{
			SampleShadingEnable:  false,
			RasterizationSamples: core1_0.Samples1,
		},
		DepthStencil: &core1_0.PipelineDepthStencilStateCreateInfo{},
		ColorBlend:   colorBlendState(variant),
		Dynamic: &core1_0.PipelineDynamicStateCreateInfo{
			DynamicStates: []core1_0.DynamicState{
				core1_0.DynamicStateViewport,
				core1_0.DynamicStateScissor,
				core1_0.DynamicStateBlendConstants,
			},
		},

		Layout:     p.pipelineLayout,
		RenderPass: p.target.RenderPass,
		Subpass:    p.target.Subpass,
	}
}

// State returns the baked state for variant, or nil if it has not been built
// for the current target.
func (p *Pipeline) State(variant BlendVariant) gpu.Pipeline {
	if !variant.valid() {
		return nil
	}
	return p.states[variant]
}

func (p *Pipeline) Ready(variant BlendVariant) bool {
	return p.State(variant) != nil
}

// Target returns the render target the pipeline is configured for.
func (p *Pipeline) Target() (RenderTarget, bool) {
	return p.target, p.configured
}

func (p *Pipeline) DescriptorSetLayout() gpu.DescriptorSetLayout { return p.descSetLayout }
func (p *Pipeline) Layout() gpu.PipelineLayout                   { return p.pipelineLayout }

// Sampler returns the nearest-filtering sampler if nearest is set and the
// linear one otherwise.
func (p *Pipeline) Sampler(nearest bool) gpu.Sampler {
	if nearest {
		return p.nearestSampler
	}
	return p.linearSampler
}

// Destroy releases every state and the shared resources. It is meant for
// device teardown; the Pipeline can be initialized again afterwards.
func (p *Pipeline) Destroy() {
	p.releaseStates()
	p.configured = false
	p.target = RenderTarget{}

	if !p.layoutReady {
		return
	}
	p.linearSampler.Destroy()
	p.nearestSampler.Destroy()
	p.pipelineLayout.Destroy()
	p.descSetLayout.Destroy()

	p.linearSampler = nil
	p.nearestSampler = nil
	p.pipelineLayout = nil
	p.descSetLayout = nil
	p.layoutReady = false
}
