package vulkan

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/quad/gpu"
)

// Context implements quad.RenderContext for a swapchain-driven renderer. The
// frame loop calls SetFrame with the acquired image index before recording.
type Context struct {
	device *Device
	pool   core1_0.DescriptorPool
	cache  core1_0.PipelineCache

	frame  int
	frames int
}

// NewContext describes a renderer with frames swap frames. cache may be the
// zero value when no pipeline cache is in use.
func NewContext(device *Device, pool core1_0.DescriptorPool, cache core1_0.PipelineCache, frames int) *Context {
	return &Context{
		device: device,
		pool:   pool,
		cache:  cache,
		frames: frames,
	}
}

func (c *Context) Device() gpu.Device { return c.device }

func (c *Context) PipelineCache() gpu.PipelineCache {
	if !c.cache.Initialized() {
		return nil
	}
	return c.cache
}

func (c *Context) DescriptorPool() gpu.DescriptorPool { return c.pool }
func (c *Context) CurrentFrameIndex() int             { return c.frame }
func (c *Context) SwapFrameCount() int                { return c.frames }

// SetFrame makes frame the one being recorded.
func (c *Context) SetFrame(frame int) {
	c.frame = frame
}

// SetSwapchain points the context at a new descriptor pool and swap frame
// count after the swapchain is recreated.
func (c *Context) SetSwapchain(pool core1_0.DescriptorPool, frames int) {
	c.pool = pool
	c.frames = frames
	c.frame = 0
}
