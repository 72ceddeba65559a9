package vulkan

import vk "github.com/goki/vulkan"

/**
 * @brief Frames the host records ahead of the GPU.
 */
const MaxFramesInFlight = 2

/**
 * @brief Upper bound on MSAA samples when the configuration does not set one.
 */
const DefaultMaxSamples = vk.SampleCount8Bit

/**
 * @brief Swapchain color formats in order of preference.
 */
var PreferredColorFormats = []vk.Format{
	vk.FormatB8g8r8a8Srgb,
	vk.FormatB8g8r8a8Unorm,
}

/**
 * @brief Depth formats in order of preference.
 */
var depthFormatCandidates = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
}
