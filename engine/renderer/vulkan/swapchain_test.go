package vulkan_test

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	unorm := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR16g16b16a16Sfloat, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, srgb, vulkan.ChooseSurfaceFormat([]vk.SurfaceFormat{unorm, srgb}, vulkan.PreferredColorFormats))
	assert.Equal(t, other, vulkan.ChooseSurfaceFormat([]vk.SurfaceFormat{other}, vulkan.PreferredColorFormats))

	undefined := []vk.SurfaceFormat{{Format: vk.FormatUndefined, ColorSpace: vk.ColorSpaceSrgbNonlinear}}
	assert.Equal(t, vulkan.PreferredColorFormats[0], vulkan.ChooseSurfaceFormat(undefined, vulkan.PreferredColorFormats).Format)
}

func TestChooseExtent(t *testing.T) {
	fixed := vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: 640, Height: 480}}
	assert.Equal(t, vk.Extent2D{Width: 640, Height: 480}, vulkan.ChooseExtent(fixed, 1920, 1080))

	free := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: vk.Extent2D{Width: 1000, Height: 1000},
	}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, vulkan.ChooseExtent(free, 800, 600))
	assert.Equal(t, vk.Extent2D{Width: 1000, Height: 100}, vulkan.ChooseExtent(free, 4000, 10))
}

func TestMaxUsableSampleCount(t *testing.T) {
	upTo := func(bits vk.SampleCountFlagBits) vk.SampleCountFlags {
		return vk.SampleCountFlags(bits<<1 - 1)
	}

	tests := []struct {
		name         string
		color, depth vk.SampleCountFlags
		limit        vk.SampleCountFlagBits
		want         vk.SampleCountFlagBits
	}{
		{"capped by limit", upTo(vk.SampleCount64Bit), upTo(vk.SampleCount64Bit), vk.SampleCount8Bit, vk.SampleCount8Bit},
		{"capped by depth", upTo(vk.SampleCount16Bit), upTo(vk.SampleCount4Bit), vk.SampleCount8Bit, vk.SampleCount4Bit},
		{"no limit", upTo(vk.SampleCount16Bit), upTo(vk.SampleCount16Bit), 0, vk.SampleCount16Bit},
		{"single sample only", upTo(vk.SampleCount1Bit), upTo(vk.SampleCount1Bit), vk.SampleCount8Bit, vk.SampleCount1Bit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := vk.PhysicalDeviceLimits{
				FramebufferColorSampleCounts: tt.color,
				FramebufferDepthSampleCounts: tt.depth,
			}
			assert.Equal(t, tt.want, vulkan.MaxUsableSampleCount(limits, tt.limit))
		})
	}
}

func TestClearValues(t *testing.T) {
	assert.Len(t, vulkan.ClearValues(vk.SampleCount1Bit), 2)
	assert.Len(t, vulkan.ClearValues(vk.SampleCount4Bit), 3)
}

func TestVulkanResultString(t *testing.T) {
	assert.Equal(t, "VK_ERROR_DEVICE_LOST", vulkan.VulkanResultString(vk.ErrorDeviceLost, false))
	assert.True(t, vulkan.VulkanResultIsSuccess(vk.Suboptimal))
	assert.False(t, vulkan.VulkanResultIsSuccess(vk.ErrorOutOfDate))
	assert.Equal(t, "main\x00", vulkan.VulkanSafeString("main"))
	assert.Equal(t, 3, vulkan.FindFirstZeroInByteArray([]byte{'a', 'b', 'c', 0, 'd'}))
}
