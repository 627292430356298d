package main

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// surfaceSupport is what a physical device offers for presenting to the
// window surface.
type surfaceSupport struct {
	capabilities *khr_surface.SurfaceCapabilities
	formats      []khr_surface.SurfaceFormat
	presentModes []khr_surface.PresentMode
}

func (app *QuadBlitApplication) querySurfaceSupport(device core1_0.PhysicalDevice) (surfaceSupport, error) {
	var support surfaceSupport
	var err error

	support.capabilities, _, err = app.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(app.surface, device)
	if err != nil {
		return support, errors.Wrap(err, "query surface capabilities")
	}

	support.formats, _, err = app.surfaceExtension.GetPhysicalDeviceSurfaceFormats(app.surface, device)
	if err != nil {
		return support, errors.Wrap(err, "query surface formats")
	}

	support.presentModes, _, err = app.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(app.surface, device)
	return support, errors.Wrap(err, "query present modes")
}

type swapchainSettings struct {
	format      khr_surface.SurfaceFormat
	presentMode khr_surface.PresentMode
	extent      core1_0.Extent2D
	imageCount  int
}

// settings picks an sRGB BGRA format and mailbox presentation when offered.
// drawable sizes the images when the surface leaves the extent to the
// application.
func (s surfaceSupport) settings(drawable core1_0.Extent2D) (swapchainSettings, error) {
	if len(s.formats) == 0 || len(s.presentModes) == 0 {
		return swapchainSettings{}, errors.New("surface offers no formats or present modes")
	}
	caps := s.capabilities

	chosen := swapchainSettings{
		format:      s.formats[0],
		presentMode: khr_surface.PresentModeFIFO,
		extent:      caps.CurrentExtent,
		imageCount:  caps.MinImageCount + 1,
	}

	for _, format := range s.formats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			chosen.format = format
			break
		}
	}

	for _, mode := range s.presentModes {
		if mode == khr_surface.PresentModeMailbox {
			chosen.presentMode = mode
			break
		}
	}

	if caps.CurrentExtent.Width == -1 {
		chosen.extent = core1_0.Extent2D{
			Width:  max(caps.MinImageExtent.Width, min(drawable.Width, caps.MaxImageExtent.Width)),
			Height: max(caps.MinImageExtent.Height, min(drawable.Height, caps.MaxImageExtent.Height)),
		}
	}

	// MaxImageCount 0 means no limit.
	if caps.MaxImageCount > 0 {
		chosen.imageCount = min(chosen.imageCount, caps.MaxImageCount)
	}

	return chosen, nil
}

func (app *QuadBlitApplication) createSwapchain() error {
	app.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(app.deviceDriver)

	support, err := app.querySurfaceSupport(app.physicalDevice)
	if err != nil {
		return err
	}

	width, height := app.window.VulkanGetDrawableSize()
	settings, err := support.settings(core1_0.Extent2D{Width: int(width), Height: int(height)})
	if err != nil {
		return err
	}

	info := khr_swapchain.SwapchainCreateInfo{
		Surface: app.surface,

		MinImageCount:    settings.imageCount,
		ImageFormat:      settings.format.Format,
		ImageColorSpace:  settings.format.ColorSpace,
		ImageExtent:      settings.extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,
		ImageSharingMode: core1_0.SharingModeExclusive,

		PreTransform:   support.capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    settings.presentMode,
		Clipped:        true,
	}
	if !app.families.shared() {
		info.ImageSharingMode = core1_0.SharingModeConcurrent
		info.QueueFamilyIndices = []int{app.families.graphics, app.families.present}
	}

	app.swapchain, _, err = app.swapchainExtension.CreateSwapchain(nil, info)
	if err != nil {
		return errors.Wrap(err, "create swapchain")
	}
	app.swapchainExtent = settings.extent
	app.swapchainImageFormat = settings.format.Format

	app.swapchainImages, _, err = app.swapchainExtension.GetSwapchainImages(app.swapchain)
	return errors.Wrap(err, "get swapchain images")
}

func (app *QuadBlitApplication) createRenderPass() error {
	renderPass, _, err := app.deviceDriver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         app.swapchainImageFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{Attachment: 0, Layout: core1_0.ImageLayoutColorAttachmentOptimal},
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass:    core1_0.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "create render pass")
	}

	app.renderPass = renderPass
	return nil
}

// createSwapchainTargets creates a view and a framebuffer for every swapchain
// image.
func (app *QuadBlitApplication) createSwapchainTargets() error {
	for i, img := range app.swapchainImages {
		view, _, err := app.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    img,
			ViewType: core1_0.ImageViewType2D,
			Format:   app.swapchainImageFormat,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask: core1_0.ImageAspectColor,
				LevelCount: 1,
				LayerCount: 1,
			},
		})
		if err != nil {
			return errors.Wrapf(err, "create view for swapchain image %d", i)
		}
		app.swapchainImageViews = append(app.swapchainImageViews, view)

		framebuffer, _, err := app.deviceDriver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass:  app.renderPass,
			Layers:      1,
			Attachments: []core1_0.ImageView{view},
			Width:       app.swapchainExtent.Width,
			Height:      app.swapchainExtent.Height,
		})
		if err != nil {
			return errors.Wrapf(err, "create framebuffer for swapchain image %d", i)
		}
		app.swapchainFramebuffers = append(app.swapchainFramebuffers, framebuffer)
	}

	return nil
}

// createImageSync creates one render-finished semaphore per swapchain image
// and clears the image-to-fence table. The image count can change each time
// the swapchain is recreated.
func (app *QuadBlitApplication) createImageSync() error {
	app.imagesInFlight = make([]core1_0.Fence, len(app.swapchainImages))
	app.renderFinishedSemaphore = make([]core1_0.Semaphore, 0, len(app.swapchainImages))

	for range app.swapchainImages {
		semaphore, _, err := app.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return errors.Wrap(err, "create render finished semaphore")
		}
		app.renderFinishedSemaphore = append(app.renderFinishedSemaphore, semaphore)
	}

	return nil
}

func (app *QuadBlitApplication) destroyImageSync() {
	for _, semaphore := range app.renderFinishedSemaphore {
		app.deviceDriver.DestroySemaphore(semaphore, nil)
	}
	app.renderFinishedSemaphore = nil
	app.imagesInFlight = nil
}
