package vulkantest

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
)

// Surface is a vulkan.Surface backed by a Device. Tests change its fields
// between lifecycle calls to simulate the host resizing or recreating the
// swapchain.
type Surface struct {
	Dev *Device

	Width, Height uint32
	ImageCount    int
	ImageIndex    int
	Samples       vk.SampleCountFlagBits
	Format        vk.Format
	DepthFormat   vk.Format

	DepthImage vk.Image

	renderPass     vk.RenderPass
	framebuffer    vk.Framebuffer
	commandBuffers []vk.CommandBuffer
	pool           vk.CommandPool
	queue          vk.Queue
}

var _ vulkan.Surface = (*Surface)(nil)

// NewSurface returns a 800x600 surface with three images and four samples.
// Its depth image is created on dev so layout transitions can be observed.
func NewSurface(dev *Device) *Surface {
	s := &Surface{
		Dev:         dev,
		Width:       800,
		Height:      600,
		ImageCount:  3,
		Samples:     vk.SampleCount4Bit,
		Format:      vk.FormatB8g8r8a8Srgb,
		DepthFormat: vk.FormatD32Sfloat,
		renderPass:  vk.RenderPass(newHandle()),
		framebuffer: vk.Framebuffer(newHandle()),
		pool:        vk.CommandPool(newHandle()),
		queue:       vk.Queue(newHandle()),
	}
	dev.CreateImage(&vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Extent:        vk.Extent3D{Width: s.Width, Height: s.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        s.DepthFormat,
		InitialLayout: vk.ImageLayoutUndefined,
		Samples:       s.Samples,
	}, &s.DepthImage)
	return s
}

// Release destroys the depth image created by NewSurface.
func (s *Surface) Release() {
	s.Dev.DestroyImage(s.DepthImage)
	s.DepthImage = vk.NullImage
}

func (s *Surface) Device() vulkan.Device { return s.Dev }

func (s *Surface) PhysicalDevice() vk.PhysicalDevice { return nil }

func (s *Surface) SwapChainImageSize() (uint32, uint32) { return s.Width, s.Height }

func (s *Surface) SwapChainImageCount() int { return s.ImageCount }

func (s *Surface) CurrentSwapChainImageIndex() int { return s.ImageIndex }

func (s *Surface) DefaultRenderPass() vk.RenderPass { return s.renderPass }

func (s *Surface) CurrentFramebuffer() vk.Framebuffer { return s.framebuffer }

// CurrentCommandBuffer returns the recording command buffer for the current
// image index. Buffers are created on first use.
func (s *Surface) CurrentCommandBuffer() vk.CommandBuffer {
	for len(s.commandBuffers) <= s.ImageIndex {
		s.commandBuffers = append(s.commandBuffers, s.Dev.NewCommandBufferHandle())
	}
	return s.commandBuffers[s.ImageIndex]
}

func (s *Surface) GraphicsCommandPool() vk.CommandPool { return s.pool }

func (s *Surface) GraphicsQueue() vk.Queue { return s.queue }

func (s *Surface) GraphicsQueueFamilyIndex() uint32 { return 0 }

func (s *Surface) SampleCount() vk.SampleCountFlagBits { return s.Samples }

func (s *Surface) ColorFormat() vk.Format { return s.Format }

func (s *Surface) DepthStencilImage() vk.Image { return s.DepthImage }

func (s *Surface) DepthStencilFormat() vk.Format { return s.DepthFormat }
