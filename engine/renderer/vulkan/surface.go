package vulkan

import vk "github.com/goki/vulkan"

// Surface is what the presentation host exposes to the code that renders
// into it. Every value may change between InitSwapChainResources calls.
type Surface interface {
	Device() Device
	PhysicalDevice() vk.PhysicalDevice

	SwapChainImageSize() (uint32, uint32)
	SwapChainImageCount() int
	CurrentSwapChainImageIndex() int

	DefaultRenderPass() vk.RenderPass
	CurrentFramebuffer() vk.Framebuffer
	CurrentCommandBuffer() vk.CommandBuffer

	GraphicsCommandPool() vk.CommandPool
	GraphicsQueue() vk.Queue
	GraphicsQueueFamilyIndex() uint32

	SampleCount() vk.SampleCountFlagBits
	ColorFormat() vk.Format
	DepthStencilImage() vk.Image
	DepthStencilFormat() vk.Format
}

// WindowRenderer receives the host's lifecycle and frame callbacks.
//
// The host calls PreInitResources and InitResources once the logical device
// exists, InitSwapChainResources each time a swapchain has been created, and
// the release callbacks in the reverse order before tearing those down.
// StartNextFrame runs once per frame with the command buffer already begun;
// the host ends, submits and presents it afterwards.
type WindowRenderer interface {
	PreInitResources() error
	InitResources() error
	InitSwapChainResources() error
	ReleaseSwapChainResources()
	ReleaseResources()
	StartNextFrame() error

	// LogicalDeviceLost is called after the host observed VK_ERROR_DEVICE_LOST.
	// Returning true lets the host recreate the device and run the init
	// sequence again.
	LogicalDeviceLost() bool
	PhysicalDeviceLost() bool
}

// depthHasStencil reports whether the format carries a stencil aspect.
func depthHasStencil(format vk.Format) bool {
	return format == vk.FormatD32SfloatS8Uint || format == vk.FormatD24UnormS8Uint
}
