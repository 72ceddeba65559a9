package vulkan

import (
	"math"
	"runtime"
	"unsafe"

	"github.com/charmbracelet/log"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/spaghettifunk/viking/engine/platform"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

type HostConfig struct {
	ApplicationName string
	// Enables VK_LAYER_KHRONOS_validation and the debug report callback.
	EnableValidation bool
	// Upper bound for the MSAA sample count. Zero means DefaultMaxSamples.
	MaxSamples vk.SampleCountFlagBits
}

// Host owns the instance, device, swapchain and frame loop, and drives a
// WindowRenderer through its lifecycle. It is the Surface the renderer
// draws into.
type Host struct {
	platform *platform.Platform
	config   HostConfig
	logger   *log.Logger
	renderer WindowRenderer

	instance      vk.Instance
	debugCallback vk.DebugReportCallback
	surface       vk.Surface
	device        *VulkanDevice
	ctx           *Context
	sampleCount   vk.SampleCountFlagBits

	swapchain      *VulkanSwapchain
	renderpass     *VulkanRenderpass
	commandBuffers []*CommandBuffer

	imageAvailableSemaphores []vk.Semaphore
	queueCompleteSemaphores  []vk.Semaphore
	inFlightFences           []*VulkanFence
	// Fences of the frames currently using each swapchain image. Not owned.
	imagesInFlight []*VulkanFence

	currentFrame uint32
	imageIndex   uint32

	framebufferWidth  uint32
	framebufferHeight uint32
	resizePending     bool
	reloadPending     bool
	swapchainReady    bool
}

var _ Surface = (*Host)(nil)

func NewHost(p *platform.Platform, config HostConfig, logger *log.Logger) *Host {
	if config.MaxSamples == 0 {
		config.MaxSamples = DefaultMaxSamples
	}
	return &Host{
		platform: p,
		config:   config,
		logger:   logger,
	}
}

// Initialize brings up the instance and device, then runs the renderer's
// device level and surface level init callbacks.
func (h *Host) Initialize(renderer WindowRenderer, width, height uint32) error {
	h.renderer = renderer
	h.framebufferWidth = width
	h.framebufferHeight = height

	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "failed to initialize vk")
	}

	if err := h.createInstance(); err != nil {
		return err
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := h.platform.Window.CreateWindowSurface(h.instance, nil)
	if err != nil {
		return errors.Wrap(err, "vulkan surface creation failed")
	}
	h.surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := h.initDevice(); err != nil {
		return err
	}

	core.LogInfo("Vulkan host initialized successfully.")
	return nil
}

func (h *Host) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(h.config.ApplicationName),
		PEngineName:        VulkanSafeString("Viking"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := h.platform.GetRequiredExtensionNames()
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var requiredLayers []string
	if h.config.EnableValidation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)

		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredLayers = []string{validationLayerName}
		if err := checkInstanceLayers(requiredLayers); err != nil {
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}

	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if err := checkResult(vk.CreateInstance(&createInfo, nil, &instance), "vkCreateInstance"); err != nil {
		return err
	}
	h.instance = instance
	if err := vk.InitInstance(h.instance); err != nil {
		return err
	}
	core.LogInfo("Vulkan Instance created.")

	if h.config.EnableValidation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := checkResult(vk.CreateDebugReportCallback(h.instance, &debugCreateInfo, nil, &dbg), "vkCreateDebugReportCallbackEXT"); err != nil {
			return err
		}
		h.debugCallback = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func checkInstanceLayers(required []string) error {
	var count uint32
	if err := checkResult(vk.EnumerateInstanceLayerProperties(&count, nil), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	available := make([]vk.LayerProperties, count)
	if err := checkResult(vk.EnumerateInstanceLayerProperties(&count, available), "vkEnumerateInstanceLayerProperties"); err != nil {
		return err
	}
	for _, name := range required {
		found := false
		for j := range available {
			available[j].Deref()
			if vk.ToString(available[j].LayerName[:]) == name {
				found = true
				break
			}
		}
		if !found {
			return errors.Wrap(core.ErrMissingValidationLayer, name)
		}
	}
	return nil
}

// initDevice creates the device and the per-frame sync objects, then runs
// the renderer's init sequence up to the first InitSwapChainResources.
func (h *Host) initDevice() error {
	device, err := DeviceCreate(h.instance, h.surface)
	if err != nil {
		return err
	}
	h.device = device
	h.sampleCount = MaxUsableSampleCount(device.Properties.Limits, h.config.MaxSamples)
	core.LogInfo("Using %d samples per pixel.", h.sampleCount)

	h.ctx = NewContext(h, h.logger)

	if err := h.createSyncObjects(); err != nil {
		return err
	}

	if err := h.renderer.PreInitResources(); err != nil {
		return errors.Wrap(err, "pre init resources")
	}
	if err := h.renderer.InitResources(); err != nil {
		return errors.Wrap(err, "init resources")
	}
	return h.recreateSwapchain()
}

func (h *Host) createSyncObjects() error {
	h.imageAvailableSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	h.queueCompleteSemaphores = make([]vk.Semaphore, MaxFramesInFlight)
	h.inFlightFences = make([]*VulkanFence, MaxFramesInFlight)

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	for i := 0; i < MaxFramesInFlight; i++ {
		if err := checkResult(vk.CreateSemaphore(h.device.LogicalDevice, &semaphoreCreateInfo, nil, &h.imageAvailableSemaphores[i]), "vkCreateSemaphore"); err != nil {
			return err
		}
		if err := checkResult(vk.CreateSemaphore(h.device.LogicalDevice, &semaphoreCreateInfo, nil, &h.queueCompleteSemaphores[i]), "vkCreateSemaphore"); err != nil {
			return err
		}

		// Create the fence in a signaled state, indicating that the first frame has already been "rendered".
		// This will prevent the application from waiting indefinitely for the first frame to render since it
		// cannot be rendered until a frame is "rendered" before it.
		f, err := NewFence(h.device, true)
		if err != nil {
			return err
		}
		h.inFlightFences[i] = f
	}
	return nil
}

func (h *Host) destroySyncObjects() {
	for i := range h.inFlightFences {
		if h.imageAvailableSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(h.device.LogicalDevice, h.imageAvailableSemaphores[i], nil)
		}
		if h.queueCompleteSemaphores[i] != vk.NullSemaphore {
			vk.DestroySemaphore(h.device.LogicalDevice, h.queueCompleteSemaphores[i], nil)
		}
		if h.inFlightFences[i] != nil {
			h.inFlightFences[i].FenceDestroy(h.device)
		}
	}
	h.imageAvailableSemaphores = nil
	h.queueCompleteSemaphores = nil
	h.inFlightFences = nil
	h.imagesInFlight = nil
}

func (h *Host) createSwapchainResources() error {
	sc, err := SwapchainCreate(h.ctx, h.device, h.surface, h.framebufferWidth, h.framebufferHeight, h.sampleCount)
	if err != nil {
		return err
	}
	h.swapchain = sc

	rp, err := RenderpassCreate(h.device, sc.ImageFormat.Format, h.device.DepthFormat, h.sampleCount)
	if err != nil {
		return err
	}
	h.renderpass = rp

	if err := sc.CreateFramebuffers(h.device, rp); err != nil {
		return err
	}

	h.commandBuffers = make([]*CommandBuffer, 0, len(sc.Images))
	for range sc.Images {
		cb, err := NewCommandBuffer(h.ctx, h.device.GraphicsCommandPool, true)
		if err != nil {
			return err
		}
		h.commandBuffers = append(h.commandBuffers, cb)
	}
	core.LogDebug("Vulkan command buffers created.")

	h.imagesInFlight = make([]*VulkanFence, len(sc.Images))
	h.swapchainReady = true
	return nil
}

func (h *Host) destroySwapchainResources() {
	for _, cb := range h.commandBuffers {
		cb.Free(h.ctx)
	}
	h.commandBuffers = nil

	if h.swapchain != nil {
		h.swapchain.SwapchainDestroy(h.ctx, h.device)
		h.swapchain = nil
	}
	if h.renderpass != nil {
		h.renderpass.RenderpassDestroy(h.device)
		h.renderpass = nil
	}
	h.imagesInFlight = nil
	h.swapchainReady = false
}

// recreateSwapchain releases the renderer's surface level resources, builds
// a new swapchain for the current framebuffer size and initializes them
// again.
func (h *Host) recreateSwapchain() error {
	if h.swapchainReady {
		if err := checkResult(h.ctx.Device.DeviceWaitIdle(), "vkDeviceWaitIdle"); err != nil {
			return err
		}
		h.renderer.ReleaseSwapChainResources()
		h.destroySwapchainResources()
	}

	if err := h.createSwapchainResources(); err != nil {
		return err
	}
	if err := h.renderer.InitSwapChainResources(); err != nil {
		return errors.Wrap(err, "init swapchain resources")
	}
	h.resizePending = false
	return nil
}

// Resized records the new framebuffer size. The swapchain is rebuilt at the
// start of the next frame.
func (h *Host) Resized(width, height uint32) {
	if width == h.framebufferWidth && height == h.framebufferHeight && !h.resizePending {
		return
	}
	h.framebufferWidth = width
	h.framebufferHeight = height
	h.resizePending = true
	core.LogDebug("Vulkan host resized: w/h: %d/%d", width, height)
}

// RequestSwapchainRecreate makes the next frame rebuild the swapchain and
// the renderer's surface level resources.
func (h *Host) RequestSwapchainRecreate() {
	h.resizePending = true
}

// RequestResourceReload makes the next frame run the renderer's full release
// and init sequence on the current device, e.g. after shader bytecode changed.
func (h *Host) RequestResourceReload() {
	h.reloadPending = true
}

func (h *Host) reloadResources() error {
	if err := checkResult(h.ctx.Device.DeviceWaitIdle(), "vkDeviceWaitIdle"); err != nil {
		return err
	}
	if h.swapchainReady {
		h.renderer.ReleaseSwapChainResources()
		h.destroySwapchainResources()
	}
	h.renderer.ReleaseResources()
	h.reloadPending = false

	if err := h.renderer.PreInitResources(); err != nil {
		return errors.Wrap(err, "pre init resources")
	}
	if err := h.renderer.InitResources(); err != nil {
		return errors.Wrap(err, "init resources")
	}
	return h.recreateSwapchain()
}

// Frame renders and presents one frame. Minimized windows render nothing.
// A lost device is reported as core.ErrDeviceLost.
func (h *Host) Frame() error {
	if h.framebufferWidth == 0 || h.framebufferHeight == 0 {
		return nil
	}
	if h.reloadPending {
		core.LogInfo("Reloading renderer resources.")
		if err := h.reloadResources(); err != nil {
			return err
		}
	}
	if h.resizePending || !h.swapchainReady {
		if err := h.recreateSwapchain(); err != nil {
			return err
		}
	}

	fence := h.inFlightFences[h.currentFrame]
	if err := fence.FenceWait(h.device, math.MaxUint64); err != nil {
		return err
	}

	// Acquire the next image from the swap chain. The semaphore is signaled when
	// it is available and waited on by the queue submission.
	imageIndex, res := h.swapchain.AcquireNextImage(h.device, math.MaxUint64, h.imageAvailableSemaphores[h.currentFrame])
	switch res {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		h.resizePending = true
		return nil
	case vk.ErrorDeviceLost:
		return errors.Wrap(core.ErrDeviceLost, "vkAcquireNextImageKHR")
	default:
		return errors.Wrap(ResultError{Result: res}, "vkAcquireNextImageKHR")
	}
	h.imageIndex = imageIndex

	// Make sure the previous frame is not using this image.
	if inFlight := h.imagesInFlight[imageIndex]; inFlight != nil && inFlight != fence {
		if err := inFlight.FenceWait(h.device, math.MaxUint64); err != nil {
			return err
		}
	}
	h.imagesInFlight[imageIndex] = fence

	cb := h.commandBuffers[imageIndex]
	if err := cb.Reset(h.ctx); err != nil {
		return err
	}
	if err := cb.Begin(h.ctx, false, false, false); err != nil {
		return err
	}

	if err := h.renderer.StartNextFrame(); err != nil {
		return err
	}

	if err := cb.End(h.ctx); err != nil {
		return err
	}
	if err := fence.FenceReset(h.device); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{h.imageAvailableSemaphores[h.currentFrame]},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{h.queueCompleteSemaphores[h.currentFrame]},
	}
	if err := h.ctx.Locks.SafeQueueCall(uint32(h.device.GraphicsQueueIndex), func() error {
		res := h.ctx.Device.QueueSubmit(h.device.GraphicsQueue, []vk.SubmitInfo{submitInfo}, fence.Handle)
		if res == vk.ErrorDeviceLost {
			return errors.Wrap(core.ErrDeviceLost, "vkQueueSubmit")
		}
		return checkResult(res, "vkQueueSubmit")
	}); err != nil {
		return err
	}
	cb.UpdateSubmitted()

	// Give the image back to the swapchain.
	switch res := h.swapchain.Present(h.device.PresentQueue, h.queueCompleteSemaphores[h.currentFrame], imageIndex); res {
	case vk.Success:
	case vk.ErrorOutOfDate, vk.Suboptimal:
		h.resizePending = true
	case vk.ErrorDeviceLost:
		return errors.Wrap(core.ErrDeviceLost, "vkQueuePresentKHR")
	default:
		return errors.Wrap(ResultError{Result: res}, "vkQueuePresentKHR")
	}

	h.currentFrame = (h.currentFrame + 1) % MaxFramesInFlight
	return nil
}

// RecoverDeviceLost tears everything down to the instance after a device
// loss. When the renderer asks for it the device is recreated and the init
// sequence runs again.
func (h *Host) RecoverDeviceLost() error {
	recreate := h.renderer.LogicalDeviceLost()
	h.teardownDevice(false)
	if !recreate {
		return core.ErrDeviceLost
	}

	core.LogWarn("Logical device lost, recreating.")
	if err := h.initDevice(); err != nil {
		if errors.Is(err, core.ErrNoSuitablePhysicalGPU) {
			h.renderer.PhysicalDeviceLost()
		}
		return err
	}
	return nil
}

func (h *Host) teardownDevice(waitIdle bool) {
	if h.device == nil {
		return
	}
	if waitIdle {
		h.ctx.Device.DeviceWaitIdle()
	}
	if h.swapchainReady {
		h.renderer.ReleaseSwapChainResources()
		h.destroySwapchainResources()
	}
	h.renderer.ReleaseResources()
	h.destroySyncObjects()

	if live := h.ctx.Allocator.Live(); live > 0 {
		core.LogWarn("%d host allocations still live at device teardown", live)
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(h.device)
	h.device = nil
	h.ctx = nil
	h.currentFrame = 0
}

func (h *Host) Shutdown() error {
	// Destroy in the opposite order of creation.
	h.teardownDevice(true)

	core.LogDebug("Destroying Vulkan surface...")
	if h.surface != vk.NullSurface {
		vk.DestroySurface(h.instance, h.surface, nil)
		h.surface = vk.NullSurface
	}

	if h.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(h.instance, h.debugCallback, nil)
		h.debugCallback = vk.NullDebugReportCallback
	}

	if h.instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(h.instance, nil)
		h.instance = nil
	}
	return nil
}

func (h *Host) Device() Device { return h.device }
func (h *Host) PhysicalDevice() vk.PhysicalDevice { return h.device.PhysicalDevice }
func (h *Host) SwapChainImageCount() int { return len(h.swapchain.Images) }
func (h *Host) CurrentSwapChainImageIndex() int { return int(h.imageIndex) }
func (h *Host) DefaultRenderPass() vk.RenderPass { return h.renderpass.Handle }
func (h *Host) GraphicsCommandPool() vk.CommandPool { return h.device.GraphicsCommandPool }
func (h *Host) GraphicsQueue() vk.Queue { return h.device.GraphicsQueue }
func (h *Host) SampleCount() vk.SampleCountFlagBits { return h.sampleCount }
func (h *Host) ColorFormat() vk.Format { return h.swapchain.ImageFormat.Format }
func (h *Host) DepthStencilImage() vk.Image { return h.swapchain.DepthAttachment.Handle }
func (h *Host) DepthStencilFormat() vk.Format { return h.device.DepthFormat }

func (h *Host) GraphicsQueueFamilyIndex() uint32 {
	return uint32(h.device.GraphicsQueueIndex)
}

func (h *Host) SwapChainImageSize() (uint32, uint32) {
	return h.swapchain.Extent.Width, h.swapchain.Extent.Height
}

func (h *Host) CurrentFramebuffer() vk.Framebuffer {
	return h.swapchain.Framebuffers[h.imageIndex].Handle
}

func (h *Host) CurrentCommandBuffer() vk.CommandBuffer {
	return h.commandBuffers[h.imageIndex].Handle
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
