package vulkan

import (
	"math/bits"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
)

type layoutTransition struct {
	from, to vk.ImageLayout
}

type transitionMasks struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

// Every layout change the renderer performs through TransitionImageLayout.
var supportedTransitions = map[layoutTransition]transitionMasks{
	{vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal}: {
		srcAccess: 0,
		dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
		dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal}: {
		srcAccess: 0,
		dstAccess: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		dstStage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
	},
}

func aspectFlags(layout vk.ImageLayout, format vk.Format) vk.ImageAspectFlags {
	if layout != vk.ImageLayoutDepthStencilAttachmentOptimal {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	if depthHasStencil(format) {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
}

// RecordTransition records the barrier for oldLayout -> newLayout over all
// mip levels into cmd. Pairs outside the supported table are rejected with
// core.ErrUnsupportedTransition.
func RecordTransition(ctx *Context, cmd vk.CommandBuffer, image vk.Image, format vk.Format, oldLayout, newLayout vk.ImageLayout, mipLevels uint32) error {
	masks, ok := supportedTransitions[layoutTransition{oldLayout, newLayout}]
	if !ok {
		return errors.Wrapf(core.ErrUnsupportedTransition, "%d -> %d", oldLayout, newLayout)
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       masks.srcAccess,
		DstAccessMask:       masks.dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags(newLayout, format),
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	ctx.Device.CmdPipelineBarrier(cmd, masks.srcStage, masks.dstStage, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// TransitionImageLayout moves every mip level of image from oldLayout to
// newLayout in a one-shot command buffer.
func TransitionImageLayout(ctx *Context, image vk.Image, format vk.Format, oldLayout, newLayout vk.ImageLayout, mipLevels uint32) error {
	if _, ok := supportedTransitions[layoutTransition{oldLayout, newLayout}]; !ok {
		return errors.Wrapf(core.ErrUnsupportedTransition, "%d -> %d", oldLayout, newLayout)
	}

	cb, err := BeginSingleUse(ctx)
	if err != nil {
		return err
	}
	if err := RecordTransition(ctx, cb.Handle, image, format, oldLayout, newLayout, mipLevels); err != nil {
		cb.Free(ctx)
		return err
	}
	return cb.EndSingleUse(ctx)
}

// MipLevels is the length of a full mip chain for a w x h image.
func MipLevels(width, height uint32) uint32 {
	largest := width
	if height > largest {
		largest = height
	}
	if largest == 0 {
		return 1
	}
	return uint32(bits.Len32(largest))
}

// GenerateMipmaps fills levels 1..mipLevels-1 of image by successive linear
// blits from the previous level. Every level must be in transfer destination
// layout with level 0 already written; every level ends in shader read only
// layout.
func GenerateMipmaps(ctx *Context, image vk.Image, format vk.Format, width, height int32, mipLevels uint32) error {
	if mipLevels == 0 {
		return errors.Wrap(core.ErrNoMipLevels, "generate mipmaps")
	}
	properties := ctx.Device.FormatProperties(format)
	if vk.FormatFeatureFlags(properties.OptimalTilingFeatures)&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) == 0 {
		return errors.Wrapf(core.ErrLinearBlitUnsupported, "format %d", format)
	}

	cb, err := BeginSingleUse(ctx)
	if err != nil {
		return err
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	mipWidth, mipHeight := width, height
	for i := uint32(1); i < mipLevels; i++ {
		barrier.SubresourceRange.BaseMipLevel = i - 1
		barrier.OldLayout = vk.ImageLayoutTransferDstOptimal
		barrier.NewLayout = vk.ImageLayoutTransferSrcOptimal
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		ctx.Device.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			[]vk.ImageMemoryBarrier{barrier})

		nextWidth, nextHeight := halve(mipWidth), halve(mipHeight)
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       i - 1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: mipWidth, Y: mipHeight, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       i,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			DstOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: nextWidth, Y: nextHeight, Z: 1}},
		}
		ctx.Device.CmdBlitImage(cb.Handle,
			image, vk.ImageLayoutTransferSrcOptimal,
			image, vk.ImageLayoutTransferDstOptimal,
			[]vk.ImageBlit{blit}, vk.FilterLinear)

		barrier.OldLayout = vk.ImageLayoutTransferSrcOptimal
		barrier.NewLayout = vk.ImageLayoutShaderReadOnlyOptimal
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferReadBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		ctx.Device.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			[]vk.ImageMemoryBarrier{barrier})

		mipWidth, mipHeight = nextWidth, nextHeight
	}

	// The last level was only ever written to.
	barrier.SubresourceRange.BaseMipLevel = mipLevels - 1
	barrier.OldLayout = vk.ImageLayoutTransferDstOptimal
	barrier.NewLayout = vk.ImageLayoutShaderReadOnlyOptimal
	barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
	barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
	ctx.Device.CmdPipelineBarrier(cb.Handle,
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		[]vk.ImageMemoryBarrier{barrier})

	return cb.EndSingleUse(ctx)
}

func halve(v int32) int32 {
	if v > 1 {
		return v / 2
	}
	return 1
}

// CreateImageView creates a 2D view over every mip level of image.
func CreateImageView(ctx *Context, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags, mipLevels uint32) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := checkResult(ctx.Device.CreateImageView(&viewInfo, &view), "vkCreateImageView"); err != nil {
		return vk.NullImageView, err
	}
	return view, nil
}

// NewTextureSampler creates a repeating, trilinear sampler covering
// mipLevels levels.
func NewTextureSampler(ctx *Context, mipLevels uint32) (vk.Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0.0,
		MinLod:                  0.0,
		MaxLod:                  float32(mipLevels),
	}
	var sampler vk.Sampler
	if err := checkResult(ctx.Device.CreateSampler(&samplerInfo, &sampler), "vkCreateSampler"); err != nil {
		return vk.NullSampler, err
	}
	return sampler, nil
}
