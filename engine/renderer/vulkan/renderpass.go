package vulkan

import (
	vk "github.com/goki/vulkan"
)

var (
	clearColor   = []float32{0.0, 0.0, 0.0, 1.0}
	clearDepth   = float32(1.0)
	clearStencil = uint32(0)
)

type VulkanRenderpass struct {
	Handle  vk.RenderPass
	Samples vk.SampleCountFlagBits
}

// RenderpassCreate builds the single-subpass render pass the host draws into.
// With more than one sample the color and depth attachments are multisampled
// and resolved into the swapchain image at index 2.
func RenderpassCreate(device *VulkanDevice, colorFormat, depthFormat vk.Format, samples vk.SampleCountFlagBits) (*VulkanRenderpass, error) {
	msaa := samples > vk.SampleCount1Bit

	colorAttachment := vk.AttachmentDescription{
		Format:         colorFormat,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined, // Do not expect any particular layout before render pass starts.
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}
	if msaa {
		colorAttachment.FinalLayout = vk.ImageLayoutColorAttachmentOptimal
	}

	depthAttachment := vk.AttachmentDescription{
		Format:         depthFormat,
		Samples:        samples,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	attachmentDescriptions := []vk.AttachmentDescription{colorAttachment, depthAttachment}

	colorAttachmentReference := []vk.AttachmentReference{{
		Attachment: 0, // Attachment description array index
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthAttachmentReference := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorAttachmentReference,
		PDepthStencilAttachment: &depthAttachmentReference,
	}

	if msaa {
		// Resolve target is the single sampled swapchain image.
		resolveAttachment := vk.AttachmentDescription{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		}
		attachmentDescriptions = append(attachmentDescriptions, resolveAttachment)
		subpass.PResolveAttachments = []vk.AttachmentReference{{
			Attachment: 2,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit) | vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var pRenderPass vk.RenderPass
	if err := checkResult(vk.CreateRenderPass(device.LogicalDevice, &renderpassCreateInfo, nil, &pRenderPass), "vkCreateRenderPass"); err != nil {
		return nil, err
	}
	return &VulkanRenderpass{Handle: pRenderPass, Samples: samples}, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(device *VulkanDevice) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(device.LogicalDevice, vr.Handle, nil)
		vr.Handle = vk.NullRenderPass
	}
}

// ClearValues returns the clear values for a render pass with the given
// sample count: color and depth, plus the resolve color when multisampled.
func ClearValues(samples vk.SampleCountFlagBits) []vk.ClearValue {
	count := 2
	if samples > vk.SampleCount1Bit {
		count = 3
	}
	clearValues := make([]vk.ClearValue, count)
	clearValues[0].SetColor(clearColor)
	clearValues[1].SetDepthStencil(clearDepth, clearStencil)
	if count == 3 {
		clearValues[2].SetColor(clearColor)
	}
	return clearValues
}

// BeginRenderPass starts the surface's render pass on the current frame's
// command buffer and framebuffer, covering the whole swapchain image.
func BeginRenderPass(ctx *Context) {
	width, height := ctx.Surface.SwapChainImageSize()
	clearValues := ClearValues(ctx.Surface.SampleCount())
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  ctx.Surface.DefaultRenderPass(),
		Framebuffer: ctx.Surface.CurrentFramebuffer(),
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	ctx.Device.CmdBeginRenderPass(ctx.Surface.CurrentCommandBuffer(), &beginInfo, vk.SubpassContentsInline)
}

func EndRenderPass(ctx *Context) {
	ctx.Device.CmdEndRenderPass(ctx.Surface.CurrentCommandBuffer())
}
