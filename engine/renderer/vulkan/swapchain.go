package vulkan

import (
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/viking/engine/core"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	Extent      vk.Extent2D
	Images      []vk.Image
	Views       []vk.ImageView

	// Multisampled color target. Empty when rendering with one sample.
	ColorAttachment Image
	DepthAttachment Image

	// framebuffers used for on-screen rendering.
	Framebuffers []*VulkanFramebuffer
}

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// ChooseSurfaceFormat picks the first preferred format the surface offers.
// A surface that reports a single undefined format accepts anything.
func ChooseSurfaceFormat(available []vk.SurfaceFormat, preferred []vk.Format) vk.SurfaceFormat {
	if len(available) == 0 {
		return vk.SurfaceFormat{Format: preferred[0], ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	if len(available) == 1 && available[0].Format == vk.FormatUndefined {
		return vk.SurfaceFormat{Format: preferred[0], ColorSpace: available[0].ColorSpace}
	}
	for _, want := range preferred {
		for _, format := range available {
			if format.Format == want {
				return format
			}
		}
	}
	return available[0]
}

// ChooseExtent returns the surface's fixed extent when it has one, otherwise
// the requested size clamped to the allowed range.
func ChooseExtent(capabilities vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	min := capabilities.MinImageExtent
	max := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  clamp(width, min.Width, max.Width),
		Height: clamp(height, min.Height, max.Height),
	}
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SwapchainCreate creates the swapchain, its views and the color and depth
// attachments sized to it. Attachments go through ctx's allocator.
func SwapchainCreate(ctx *Context, device *VulkanDevice, surface vk.Surface, width, height uint32, samples vk.SampleCountFlagBits) (*VulkanSwapchain, error) {
	support := &device.SwapchainSupport
	if err := DeviceQuerySwapchainSupport(device.PhysicalDevice, surface, support); err != nil {
		return nil, err
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: ChooseSurfaceFormat(support.Formats, PreferredColorFormats),
		Extent:      ChooseExtent(support.Capabilities, width, height),
	}

	presentMode := vk.PresentModeFifo
	for _, mode := range support.PresentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
	}

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	// Setup the queue family indices
	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(device.GraphicsQueueIndex),
			uint32(device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchainHandle vk.Swapchain
	if err := checkResult(vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, nil, &swapchainHandle), "vkCreateSwapchainKHR"); err != nil {
		return nil, err
	}
	swapchain.Handle = swapchainHandle

	var g Guard
	defer g.Run()
	g.Add(func() { swapchain.SwapchainDestroy(ctx, device) })

	// Images
	var count uint32
	if err := checkResult(vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &count, nil), "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}
	swapchain.Images = make([]vk.Image, count)
	if err := checkResult(vk.GetSwapchainImages(device.LogicalDevice, swapchain.Handle, &count, swapchain.Images), "vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}

	// Views
	for _, image := range swapchain.Images {
		view, err := CreateImageView(ctx, image, swapchain.ImageFormat.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1)
		if err != nil {
			return nil, err
		}
		swapchain.Views = append(swapchain.Views, view)
	}

	if samples > vk.SampleCount1Bit {
		color, err := createAttachment(ctx, ImageSpec{
			Width:     swapchain.Extent.Width,
			Height:    swapchain.Extent.Height,
			MipLevels: 1,
			Samples:   samples,
			Format:    swapchain.ImageFormat.Format,
			Tiling:    vk.ImageTilingOptimal,
			Usage:     vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit) | vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		}, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return nil, err
		}
		swapchain.ColorAttachment = color
	}

	depthAspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if depthHasStencil(device.DepthFormat) {
		depthAspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	depth, err := createAttachment(ctx, ImageSpec{
		Width:     swapchain.Extent.Width,
		Height:    swapchain.Extent.Height,
		MipLevels: 1,
		Samples:   samples,
		Format:    device.DepthFormat,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
	}, depthAspect)
	if err != nil {
		return nil, err
	}
	swapchain.DepthAttachment = depth

	g.Dismiss()
	core.LogInfo("Swapchain created successfully: %dx%d, %d images.", swapchain.Extent.Width, swapchain.Extent.Height, len(swapchain.Images))
	return swapchain, nil
}

func createAttachment(ctx *Context, spec ImageSpec, aspect vk.ImageAspectFlags) (Image, error) {
	img, err := ctx.Allocator.CreateImage(spec, MemoryDeviceResident)
	if err != nil {
		return Image{}, err
	}
	view, err := CreateImageView(ctx, img.Handle, spec.Format, aspect, 1)
	if err != nil {
		ctx.Allocator.DestroyImage(&img)
		return Image{}, err
	}
	img.View = view
	return img, nil
}

// CreateFramebuffers builds one framebuffer per swapchain image. The
// attachment order matches RenderpassCreate.
func (vs *VulkanSwapchain) CreateFramebuffers(device *VulkanDevice, renderpass *VulkanRenderpass) error {
	vs.Framebuffers = make([]*VulkanFramebuffer, 0, len(vs.Views))
	for _, view := range vs.Views {
		attachments := []vk.ImageView{view, vs.DepthAttachment.View}
		if vs.ColorAttachment.Valid() {
			attachments = []vk.ImageView{vs.ColorAttachment.View, vs.DepthAttachment.View, view}
		}
		fb, err := FramebufferCreate(device, renderpass, vs.Extent.Width, vs.Extent.Height, attachments)
		if err != nil {
			core.LogError("failed to create framebuffer: %s", err)
			return err
		}
		vs.Framebuffers = append(vs.Framebuffers, fb)
	}
	return nil
}

func (vs *VulkanSwapchain) DestroyFramebuffers(device *VulkanDevice) {
	for _, fb := range vs.Framebuffers {
		fb.Destroy(device)
	}
	vs.Framebuffers = nil
}

// AcquireNextImage returns the index of the next presentable image together
// with the raw result so the caller can react to ErrorOutOfDate and
// ErrorDeviceLost.
func (vs *VulkanSwapchain) AcquireNextImage(device *VulkanDevice, timeoutNS uint64, imageAvailableSemaphore vk.Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	result := vk.AcquireNextImage(device.LogicalDevice, vs.Handle, timeoutNS, imageAvailableSemaphore, vk.NullFence, &imageIndex)
	return imageIndex, result
}

func (vs *VulkanSwapchain) Present(presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) vk.Result {
	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
	}
	return vk.QueuePresent(presentQueue, &presentInfo)
}

// SwapchainDestroy releases the attachments, the views and the swapchain.
// The swapchain images themselves are owned by the swapchain.
func (vs *VulkanSwapchain) SwapchainDestroy(ctx *Context, device *VulkanDevice) {
	vs.DestroyFramebuffers(device)
	ctx.Allocator.DestroyImage(&vs.DepthAttachment)
	ctx.Allocator.DestroyImage(&vs.ColorAttachment)

	for _, view := range vs.Views {
		ctx.Device.DestroyImageView(view)
	}
	vs.Views = nil
	vs.Images = nil

	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device.LogicalDevice, vs.Handle, nil)
		vs.Handle = vk.NullSwapchain
	}
}
