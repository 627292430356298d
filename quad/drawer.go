package quad

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/quad/gpu"
)

// Drawer records textured quad draws. It keeps one descriptor set per swap
// frame, allocated on first use and rewritten by every draw through that
// frame, so frames in flight never share a set.
type Drawer struct {
	ctx      RenderContext
	pipeline *Pipeline
	buffer   VertexBuffer
	blend    BlendVariant

	descriptorSets []gpu.DescriptorSet
}

// NewDrawer sizes the descriptor set table to the context's swap frame count.
// Draws use the SourceAlpha state until SetBlend says otherwise.
func NewDrawer(ctx RenderContext, pipeline *Pipeline, buffer VertexBuffer) *Drawer {
	return &Drawer{
		ctx:            ctx,
		pipeline:       pipeline,
		buffer:         buffer,
		blend:          SourceAlpha,
		descriptorSets: make([]gpu.DescriptorSet, ctx.SwapFrameCount()),
	}
}

// SetBlend selects the pipeline state bound by Draw. The state must have been
// built with Pipeline.CreatePipeline before the next Draw.
func (d *Drawer) SetBlend(variant BlendVariant) {
	d.blend = variant
}

func (d *Drawer) Blend() BlendVariant {
	return d.blend
}

// Slots is the number of swap frames the drawer keeps a descriptor set for.
func (d *Drawer) Slots() int {
	return len(d.descriptorSets)
}

// Allocated reports whether the descriptor set for frame exists yet.
func (d *Drawer) Allocated(frame int) bool {
	return frame >= 0 && frame < len(d.descriptorSets) && d.descriptorSets[frame] != nil
}

// AcquireSlot returns the descriptor set for frame, allocating it from the
// context's pool the first time the frame is seen.
func (d *Drawer) AcquireSlot(frame int) (gpu.DescriptorSet, error) {
	if frame < 0 || frame >= len(d.descriptorSets) {
		return nil, errors.AssertionFailedf("quad: frame index %d outside [0, %d)", frame, len(d.descriptorSets))
	}

	if set := d.descriptorSets[frame]; set != nil {
		return set, nil
	}

	set, err := d.ctx.Device().AllocateDescriptorSet(d.ctx.DescriptorPool(), d.pipeline.DescriptorSetLayout())
	if err != nil {
		return nil, errors.Wrapf(err, "quad: allocate descriptor set for frame %d", frame)
	}
	d.descriptorSets[frame] = set
	return set, nil
}

// UpdateSlot points set at view sampled with sampler.
func (d *Drawer) UpdateSlot(set gpu.DescriptorSet, sampler gpu.Sampler, view gpu.ImageView) error {
	err := d.ctx.Device().WriteCombinedImageSampler(set, textureBinding, sampler, view)
	if err != nil {
		return errors.Wrap(err, "quad: update descriptor set")
	}
	return nil
}

// Draw records view stretched over vertices into cmd, which must be recording
// inside the render pass and subpass the pipeline was configured for.
// Viewport, scissor and blend constants are dynamic and set by the caller.
func (d *Drawer) Draw(cmd gpu.CommandBuffer, view gpu.ImageView, vertices *[VertexCount]Vertex, nearestFilter bool) error {
	state := d.pipeline.State(d.blend)
	if state == nil {
		return errors.AssertionFailedf("quad: draw with no %s pipeline built", d.blend)
	}

	set, err := d.AcquireSlot(d.ctx.CurrentFrameIndex())
	if err != nil {
		return err
	}

	err = d.UpdateSlot(set, d.pipeline.Sampler(nearestFilter), view)
	if err != nil {
		return err
	}

	device := d.ctx.Device()
	device.CmdBindPipeline(cmd, state)
	device.CmdBindDescriptorSets(cmd, d.pipeline.Layout(), set)

	err = d.buffer.Update(vertices)
	if err != nil {
		return errors.Wrap(err, "quad: update vertex buffer")
	}
	d.buffer.Bind(cmd)
	d.buffer.Draw(cmd)
	return nil
}
