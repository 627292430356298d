package vulkan

import (
	"image"
	"image/draw"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Texture is a sampled 2D image in shader-read-only layout.
type Texture struct {
	Image  core1_0.Image
	Memory core1_0.DeviceMemory
	View   core1_0.ImageView

	Width, Height int
}

// Uploader records one-shot transfer commands on a graphics queue.
type Uploader struct {
	device *Device
	pool   core1_0.CommandPool
	queue  core1_0.Queue
}

func NewUploader(device *Device, pool core1_0.CommandPool, queue core1_0.Queue) *Uploader {
	return &Uploader{device: device, pool: pool, queue: queue}
}

// toRGBA returns the pixels of img as tightly packed 8-bit RGBA rows.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == rgba.Rect.Dx()*4 && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// UploadTexture copies img into a device-local sRGB image through a staging
// buffer and waits for the copy to finish.
func (u *Uploader) UploadTexture(img image.Image) (*Texture, error) {
	pixels := toRGBA(img)
	width, height := pixels.Rect.Dx(), pixels.Rect.Dy()
	if width == 0 || height == 0 {
		return nil, errors.Errorf("cannot upload empty %dx%d texture", width, height)
	}
	d := u.device

	stagingBuffer, stagingMemory, err := d.createBuffer(len(pixels.Pix), core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "create staging buffer")
	}
	defer d.driver.DestroyBuffer(stagingBuffer, nil)
	defer d.driver.FreeMemory(stagingMemory, nil)

	err = d.writeData(stagingMemory, 0, pixels.Pix)
	if err != nil {
		return nil, err
	}

	tex := &Texture{Width: width, Height: height}
	tex.Image, tex.Memory, err = d.createImage(width, height, core1_0.FormatR8G8B8A8SRGB,
		core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled)
	if err != nil {
		return nil, errors.Wrap(err, "create texture image")
	}

	err = u.transitionImageLayout(tex.Image, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	if err == nil {
		err = u.copyBufferToImage(stagingBuffer, tex.Image, width, height)
	}
	if err == nil {
		err = u.transitionImageLayout(tex.Image, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
	}
	if err == nil {
		tex.View, _, err = d.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    tex.Image,
			ViewType: core1_0.ImageViewType2D,
			Format:   core1_0.FormatR8G8B8A8SRGB,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
	}
	if err != nil {
		d.DestroyTexture(tex)
		return nil, err
	}

	return tex, nil
}

func (d *Device) createImage(width, height int, format core1_0.Format, usage core1_0.ImageUsageFlags) (core1_0.Image, core1_0.DeviceMemory, error) {
	handle, _, err := d.driver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err != nil {
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	memReqs := d.driver.GetImageMemoryRequirements(handle)
	memoryIndex, err := d.findMemoryType(memReqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		d.driver.DestroyImage(handle, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	imageMemory, _, err := d.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		d.driver.DestroyImage(handle, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	_, err = d.driver.BindImageMemory(handle, imageMemory, 0)
	if err != nil {
		d.driver.FreeMemory(imageMemory, nil)
		d.driver.DestroyImage(handle, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	return handle, imageMemory, nil
}

// DestroyTexture releases whatever parts of tex were created.
func (d *Device) DestroyTexture(tex *Texture) {
	if tex.View.Initialized() {
		d.driver.DestroyImageView(tex.View, nil)
	}
	if tex.Image.Initialized() {
		d.driver.DestroyImage(tex.Image, nil)
	}
	if tex.Memory.Initialized() {
		d.driver.FreeMemory(tex.Memory, nil)
	}
	*tex = Texture{}
}

func (u *Uploader) beginSingleTimeCommands() (core1_0.CommandBuffer, error) {
	buffers, _, err := u.device.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        u.pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return core1_0.CommandBuffer{}, err
	}

	buffer := buffers[0]
	_, err = u.device.driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		u.device.driver.FreeCommandBuffers(buffer)
		return core1_0.CommandBuffer{}, err
	}
	return buffer, nil
}

func (u *Uploader) endSingleTimeCommands(buffer core1_0.CommandBuffer) error {
	driver := u.device.driver
	defer driver.FreeCommandBuffers(buffer)

	_, err := driver.EndCommandBuffer(buffer)
	if err != nil {
		return err
	}

	_, err = driver.QueueSubmit(u.queue, nil,
		core1_0.SubmitInfo{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	)
	if err != nil {
		return err
	}

	_, err = driver.QueueWaitIdle(u.queue)
	return err
}

func (u *Uploader) transitionImageLayout(img core1_0.Image, oldLayout, newLayout core1_0.ImageLayout) error {
	var sourceStage, destStage core1_0.PipelineStageFlags
	var sourceAccess, destAccess core1_0.AccessFlags

	switch {
	case oldLayout == core1_0.ImageLayoutUndefined && newLayout == core1_0.ImageLayoutTransferDstOptimal:
		sourceAccess = 0
		destAccess = core1_0.AccessTransferWrite
		sourceStage = core1_0.PipelineStageTopOfPipe
		destStage = core1_0.PipelineStageTransfer
	case oldLayout == core1_0.ImageLayoutTransferDstOptimal && newLayout == core1_0.ImageLayoutShaderReadOnlyOptimal:
		sourceAccess = core1_0.AccessTransferWrite
		destAccess = core1_0.AccessShaderRead
		sourceStage = core1_0.PipelineStageTransfer
		destStage = core1_0.PipelineStageFragmentShader
	default:
		return errors.Errorf("unexpected layout transition: %s -> %s", oldLayout, newLayout)
	}

	buffer, err := u.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = u.device.driver.CmdPipelineBarrier(buffer, sourceStage, destStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               img,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcAccessMask: sourceAccess,
			DstAccessMask: destAccess,
		},
	})
	if err != nil {
		u.device.driver.FreeCommandBuffers(buffer)
		return err
	}

	return u.endSingleTimeCommands(buffer)
}

func (u *Uploader) copyBufferToImage(buffer core1_0.Buffer, img core1_0.Image, width, height int) error {
	cmdBuffer, err := u.beginSingleTimeCommands()
	if err != nil {
		return err
	}

	err = u.device.driver.CmdCopyBufferToImage(cmdBuffer, buffer, img, core1_0.ImageLayoutTransferDstOptimal,
		core1_0.BufferImageCopy{
			ImageSubresource: core1_0.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
		},
	)
	if err != nil {
		u.device.driver.FreeCommandBuffers(cmdBuffer)
		return err
	}

	return u.endSingleTimeCommands(cmdBuffer)
}
