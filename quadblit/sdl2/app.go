package main

import (
	"log"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
	"github.com/vkngwrapper/quad/quad"
	"github.com/vkngwrapper/quad/vulkan"
)

const MaxFramesInFlight = 2

const statsInterval = 5 * time.Second

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var deviceExtensions = []string{khr_swapchain.ExtensionName}

// QuadBlitApplication draws one textured quad per frame through quad.Drawer.
type QuadBlitApplication struct {
	config Config
	assets *assets

	window *sdl.Window

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver      ext_debug_utils.ExtensionDriver
	debugMessenger   ext_debug_utils.DebugUtilsMessenger
	surfaceExtension khr_surface.ExtensionDriver
	surface          khr_surface.Surface

	physicalDevice    core1_0.PhysicalDevice
	families          queueFamilies
	portabilitySubset bool

	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue

	swapchainExtension    khr_swapchain.ExtensionDriver
	swapchain             khr_swapchain.Swapchain
	swapchainImages       []core1_0.Image
	swapchainImageFormat  core1_0.Format
	swapchainExtent       core1_0.Extent2D
	swapchainImageViews   []core1_0.ImageView
	swapchainFramebuffers []core1_0.Framebuffer

	renderPass     core1_0.RenderPass
	descriptorPool core1_0.DescriptorPool
	pipelineCache  core1_0.PipelineCache

	commandPool    core1_0.CommandPool
	commandBuffers []core1_0.CommandBuffer

	imageAvailableSemaphore []core1_0.Semaphore
	renderFinishedSemaphore []core1_0.Semaphore
	inFlightFence           []core1_0.Fence
	imagesInFlight          []core1_0.Fence
	currentFrame            int

	device     *vulkan.Device
	context    *vulkan.Context
	shaders    *vulkan.ShaderSet
	texture    *vulkan.Texture
	quadBuffer *vulkan.QuadBuffer
	pipeline   *quad.Pipeline
	drawer     *quad.Drawer
	vertices   [quad.VertexCount]quad.Vertex

	frames     int
	statsStart time.Duration
}

func NewQuadBlitApplication(config Config) *QuadBlitApplication {
	return &QuadBlitApplication{config: config}
}

func (app *QuadBlitApplication) Run() error {
	var err error
	app.assets, err = loadAssets(app.config)
	if err != nil {
		return err
	}

	err = app.initWindow()
	if err != nil {
		return err
	}

	err = app.initVulkan()
	if err != nil {
		return err
	}
	defer app.cleanup()

	return app.mainLoop()
}

func (app *QuadBlitApplication) initWindow() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return err
	}

	window, err := sdl.CreateWindow(app.config.Window.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(app.config.Window.Width), int32(app.config.Window.Height),
		sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return err
	}
	app.window = window

	app.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return err
	}

	return nil
}

func (app *QuadBlitApplication) initVulkan() error {
	steps := []func() error{
		app.createInstance,
		app.setupDebugMessenger,
		app.createSurface,
		app.pickPhysicalDevice,
		app.createLogicalDevice,
		app.createPipelineCache,
		app.createCommandPool,
		app.createTexture,
		app.createShaders,
		app.createSwapchainResources,
	}

	for _, step := range steps {
		err := step()
		if err != nil {
			return err
		}
	}

	return app.createSyncObjects()
}

// createSwapchainResources builds everything that depends on the swapchain
// and (re)builds the quad pipeline against the new render pass.
func (app *QuadBlitApplication) createSwapchainResources() error {
	steps := []func() error{
		app.createSwapchain,
		app.createRenderPass,
		app.createSwapchainTargets,
		app.createImageSync,
		app.createQuadRenderer,
		app.createCommandBuffers,
	}

	for _, step := range steps {
		err := step()
		if err != nil {
			return err
		}
	}
	return nil
}

func (app *QuadBlitApplication) mainLoop() error {
	rendering := true
	app.statsStart = hrtime.Now()

appLoop:
	for true {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				break appLoop
			case *sdl.WindowEvent:
				switch e.Event {
				case sdl.WINDOWEVENT_MINIMIZED:
					rendering = false
				case sdl.WINDOWEVENT_RESTORED:
					rendering = true
				case sdl.WINDOWEVENT_RESIZED:
					w, h := app.window.GetSize()
					if w > 0 && h > 0 {
						rendering = true
						err := app.recreateSwapChain()
						if err != nil {
							return err
						}
					} else {
						rendering = false
					}
				}
			}
		}
		if rendering {
			err := app.drawFrame()
			if err != nil {
				return err
			}
			app.reportStats()
		}
	}

	_, err := app.deviceDriver.DeviceWaitIdle()
	return err
}

func (app *QuadBlitApplication) reportStats() {
	app.frames++
	elapsed := hrtime.Since(app.statsStart)
	if elapsed < statsInterval {
		return
	}

	log.Printf("%d frames in %s (%.1f fps)", app.frames, elapsed, float64(app.frames)/elapsed.Seconds())
	app.frames = 0
	app.statsStart = hrtime.Now()
}

func (app *QuadBlitApplication) cleanupSwapChain() {
	for _, framebuffer := range app.swapchainFramebuffers {
		app.deviceDriver.DestroyFramebuffer(framebuffer, nil)
	}
	app.swapchainFramebuffers = []core1_0.Framebuffer{}

	if len(app.commandBuffers) > 0 {
		app.deviceDriver.FreeCommandBuffers(app.commandBuffers...)
		app.commandBuffers = []core1_0.CommandBuffer{}
	}

	// Pipeline states were built against the render pass destroyed below.
	if app.pipeline != nil {
		app.pipeline.Configure(quad.RenderTarget{})
	}

	if app.renderPass.Initialized() {
		app.deviceDriver.DestroyRenderPass(app.renderPass, nil)
		app.renderPass = core1_0.RenderPass{}
	}

	for _, imageView := range app.swapchainImageViews {
		app.deviceDriver.DestroyImageView(imageView, nil)
	}
	app.swapchainImageViews = []core1_0.ImageView{}

	app.destroyImageSync()

	if app.swapchain.Initialized() {
		app.swapchainExtension.DestroySwapchain(app.swapchain, nil)
		app.swapchain = khr_swapchain.Swapchain{}
	}
	app.swapchainImages = nil

	if app.quadBuffer != nil {
		app.quadBuffer.Destroy()
		app.quadBuffer = nil
	}
	app.drawer = nil

	if app.descriptorPool.Initialized() {
		app.deviceDriver.DestroyDescriptorPool(app.descriptorPool, nil)
		app.descriptorPool = core1_0.DescriptorPool{}
	}
}

func (app *QuadBlitApplication) cleanup() {
	app.cleanupSwapChain()

	if app.pipeline != nil {
		app.pipeline.Destroy()
	}

	if app.shaders != nil {
		app.shaders.Destroy()
	}

	if app.texture != nil {
		app.device.DestroyTexture(app.texture)
	}

	if app.pipelineCache.Initialized() {
		err := vulkan.SavePipelineCache(app.device, app.pipelineCache, app.config.PipelineCache)
		if err != nil {
			log.Printf("%+v", err)
		}
		app.deviceDriver.DestroyPipelineCache(app.pipelineCache, nil)
	}

	for i := range app.inFlightFence {
		if app.inFlightFence[i].Initialized() {
			app.deviceDriver.DestroyFence(app.inFlightFence[i], nil)
		}
		if app.imageAvailableSemaphore[i].Initialized() {
			app.deviceDriver.DestroySemaphore(app.imageAvailableSemaphore[i], nil)
		}
	}

	if app.commandPool.Initialized() {
		app.deviceDriver.DestroyCommandPool(app.commandPool, nil)
	}

	if app.deviceDriver != nil {
		app.deviceDriver.DestroyDevice(nil)
	}

	if app.debugMessenger.Initialized() {
		app.debugDriver.DestroyDebugUtilsMessenger(app.debugMessenger, nil)
	}

	if app.surface.Initialized() {
		app.surfaceExtension.DestroySurface(app.surface, nil)
	}

	if app.instanceDriver != nil {
		app.instanceDriver.DestroyInstance(nil)
	}

	if app.window != nil {
		app.window.Destroy()
	}
	sdl.Quit()
}

func (app *QuadBlitApplication) recreateSwapChain() error {
	w, h := app.window.VulkanGetDrawableSize()
	if w == 0 || h == 0 {
		return nil
	}
	if (app.window.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return nil
	}

	_, err := app.deviceDriver.DeviceWaitIdle()
	if err != nil {
		return err
	}

	app.cleanupSwapChain()

	return app.createSwapchainResources()
}

func (app *QuadBlitApplication) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    app.config.Window.Title,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	sdlExtensions := app.window.VulkanGetInstanceExtensions()
	extensions, _, err := app.globalDriver.AvailableExtensions()
	if err != nil {
		return err
	}

	if missing := missingNames(extensions, sdlExtensions); len(missing) > 0 {
		return errors.Errorf("instance lacks extensions SDL needs: %s", strings.Join(missing, ", "))
	}
	instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, sdlExtensions...)

	if app.config.Validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if app.config.Validation {
		layers, _, err := app.globalDriver.AvailableLayers()
		if err != nil {
			return err
		}

		if missing := missingNames(layers, validationLayers); len(missing) > 0 {
			return errors.Errorf("validation layers %s not available, install the LunarG Vulkan SDK", strings.Join(missing, ", "))
		}
		instanceOptions.EnabledLayerNames = validationLayers
		instanceOptions.Next = app.debugMessengerOptions()
	}

	app.instanceDriver, _, err = app.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return err
	}

	return nil
}

func (app *QuadBlitApplication) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logValidationMessage,
	}
}

func (app *QuadBlitApplication) setupDebugMessenger() error {
	if !app.config.Validation {
		return nil
	}

	var err error
	app.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(app.instanceDriver)
	app.debugMessenger, _, err = app.debugDriver.CreateDebugUtilsMessenger(nil, app.debugMessengerOptions())
	if err != nil {
		return err
	}

	return nil
}

func (app *QuadBlitApplication) createSurface() error {
	app.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(app.instanceDriver)
	surface, err := vkng_sdl2.CreateSurface(app.instanceDriver.Instance(), app.surfaceExtension, app.window)
	if err != nil {
		return err
	}

	app.surface = surface
	return nil
}

func (app *QuadBlitApplication) createLogicalDevice() error {
	queues := []core1_0.DeviceQueueCreateInfo{
		{QueueFamilyIndex: app.families.graphics, QueuePriorities: []float32{1}},
	}
	if !app.families.shared() {
		queues = append(queues, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: app.families.present,
			QueuePriorities:  []float32{1},
		})
	}

	extensionNames := append([]string(nil), deviceExtensions...)
	if app.portabilitySubset {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	var err error
	app.deviceDriver, _, err = app.instanceDriver.CreateDevice(app.physicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queues,
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}

	app.graphicsQueue = app.deviceDriver.GetQueue(app.families.graphics, 0)
	app.presentQueue = app.deviceDriver.GetQueue(app.families.present, 0)

	memProperties := app.instanceDriver.GetPhysicalDeviceMemoryProperties(app.physicalDevice)
	app.device = vulkan.NewDevice(app.deviceDriver, memProperties.MemoryTypes)
	return nil
}

func (app *QuadBlitApplication) createPipelineCache() error {
	if app.config.PipelineCache == "" {
		return nil
	}

	properties, err := app.instanceDriver.GetPhysicalDeviceProperties(app.physicalDevice)
	if err != nil {
		return err
	}

	app.pipelineCache, err = vulkan.LoadPipelineCache(app.device, app.config.PipelineCache, vulkan.IdentityOf(properties))
	return err
}

func (app *QuadBlitApplication) createCommandPool() error {
	// Frame command buffers are re-recorded every frame.
	pool, _, err := app.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: app.families.graphics,
	})
	if err != nil {
		return err
	}
	app.commandPool = pool

	return nil
}

func (app *QuadBlitApplication) createTexture() error {
	uploader := vulkan.NewUploader(app.device, app.commandPool, app.graphicsQueue)

	var err error
	app.texture, err = uploader.UploadTexture(app.assets.image)
	if err != nil {
		return err
	}
	log.Printf("uploaded %dx%d texture", app.texture.Width, app.texture.Height)
	return nil
}

func (app *QuadBlitApplication) createShaders() error {
	var err error
	app.shaders, err = vulkan.NewShaderSet(app.device, app.assets.vertexSPIRV, app.assets.fragmentSPIRV)
	return err
}

// createQuadRenderer sizes the descriptor pool and vertex regions to the
// swapchain and builds the configured blend variant for the render pass.
func (app *QuadBlitApplication) createQuadRenderer() error {
	frames := len(app.swapchainImages)

	var err error
	app.descriptorPool, err = app.device.CreateDescriptorPool(frames)
	if err != nil {
		return errors.Wrap(err, "create descriptor pool")
	}

	if app.context == nil {
		app.context = vulkan.NewContext(app.device, app.descriptorPool, app.pipelineCache, frames)
	} else {
		app.context.SetSwapchain(app.descriptorPool, frames)
	}

	app.quadBuffer, err = vulkan.NewQuadBuffer(app.device, app.context)
	if err != nil {
		return err
	}

	if app.pipeline == nil {
		app.pipeline = quad.NewPipeline(app.context)
	}

	err = app.pipeline.Init(app.shaders, quad.RenderTarget{RenderPass: app.renderPass, Subpass: 0})
	if err != nil {
		return err
	}

	start := hrtime.Now()
	err = app.pipeline.CreatePipeline(app.config.BlendVariant())
	if err != nil {
		return err
	}
	log.Printf("built %s pipeline in %s", app.config.BlendVariant(), hrtime.Since(start))

	app.drawer = quad.NewDrawer(app.context, app.pipeline, app.quadBuffer)
	app.drawer.SetBlend(app.config.BlendVariant())
	app.vertices = fitQuad(app.texture.Width, app.texture.Height, app.swapchainExtent)
	return nil
}

func (app *QuadBlitApplication) createCommandBuffers() error {
	buffers, _, err := app.deviceDriver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        app.commandPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: len(app.swapchainImages),
	})
	if err != nil {
		return err
	}
	app.commandBuffers = buffers

	return nil
}

// recordCommandBuffer records the quad draw for swap image imageIndex. The
// image's previous submission must have completed.
func (app *QuadBlitApplication) recordCommandBuffer(imageIndex int) error {
	buffer := app.commandBuffers[imageIndex]

	_, err := app.deviceDriver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return err
	}

	err = app.deviceDriver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  app.renderPass,
			Framebuffer: app.swapchainFramebuffers[imageIndex],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: app.swapchainExtent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0.1, 0.1, 0.1, 1},
			},
		})
	if err != nil {
		return err
	}

	app.device.SetDynamicState(buffer, app.swapchainExtent, [4]float32{1, 1, 1, app.config.Alpha})

	app.context.SetFrame(imageIndex)
	err = app.drawer.Draw(buffer, app.texture.View, &app.vertices, app.config.Nearest())
	if err != nil {
		return err
	}

	app.deviceDriver.CmdEndRenderPass(buffer)

	_, err = app.deviceDriver.EndCommandBuffer(buffer)
	return err
}

// createSyncObjects creates the acquire semaphore and submit fence of each
// frame in flight. Per-image objects follow the swapchain in createImageSync.
func (app *QuadBlitApplication) createSyncObjects() error {
	app.imageAvailableSemaphore = make([]core1_0.Semaphore, MaxFramesInFlight)
	app.inFlightFence = make([]core1_0.Fence, MaxFramesInFlight)

	for i := range app.inFlightFence {
		var err error
		app.imageAvailableSemaphore[i], _, err = app.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return errors.Wrap(err, "create image available semaphore")
		}

		app.inFlightFence[i], _, err = app.deviceDriver.CreateFence(nil, core1_0.FenceCreateInfo{
			Flags: core1_0.FenceCreateSignaled,
		})
		if err != nil {
			return errors.Wrap(err, "create in flight fence")
		}
	}

	return nil
}

func (app *QuadBlitApplication) drawFrame() error {
	fences := []core1_0.Fence{app.inFlightFence[app.currentFrame]}

	_, err := app.deviceDriver.WaitForFences(true, common.NoTimeout, fences...)
	if err != nil {
		return err
	}

	imageIndex, res, err := app.swapchainExtension.AcquireNextImage(app.swapchain, common.NoTimeout, &app.imageAvailableSemaphore[app.currentFrame], nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		return app.recreateSwapChain()
	} else if err != nil {
		return err
	}

	if app.imagesInFlight[imageIndex].Initialized() {
		_, err := app.deviceDriver.WaitForFences(true, common.NoTimeout, app.imagesInFlight[imageIndex])
		if err != nil {
			return err
		}
	}
	app.imagesInFlight[imageIndex] = app.inFlightFence[app.currentFrame]

	_, err = app.deviceDriver.ResetFences(fences...)
	if err != nil {
		return err
	}

	err = app.recordCommandBuffer(imageIndex)
	if err != nil {
		return err
	}

	_, err = app.deviceDriver.QueueSubmit(app.graphicsQueue, &app.inFlightFence[app.currentFrame],
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{app.imageAvailableSemaphore[app.currentFrame]},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{app.commandBuffers[imageIndex]},
			SignalSemaphores: []core1_0.Semaphore{app.renderFinishedSemaphore[imageIndex]},
		},
	)
	if err != nil {
		return err
	}

	res, err = app.swapchainExtension.QueuePresent(app.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{app.renderFinishedSemaphore[imageIndex]},
		Swapchains:     []khr_swapchain.Swapchain{app.swapchain},
		ImageIndices:   []int{imageIndex},
	})
	if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
		return app.recreateSwapChain()
	} else if err != nil {
		return err
	}

	app.currentFrame = (app.currentFrame + 1) % MaxFramesInFlight

	return nil
}

func logValidationMessage(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	log.Printf("vulkan %s (%s): %s", severity, msgType, data.Message)
	return false
}
