package renderer

import (
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
)

// Drawable is one pipeline the renderer records every frame. The renderer
// calls the methods in this order:
//
//	PreInitResources, InitResources,
//	DescriptorPoolSizes, InitSwapChainResources,
//	(UpdateUniformBuffers, DrawCommands)*,
//	ReleaseSwapChainResources, [DescriptorPoolSizes, InitSwapChainResources, ...]
//	ReleaseResources
type Drawable interface {
	// PreInitResources loads host side data. No device calls.
	PreInitResources() error
	InitResources() error
	// DescriptorPoolSizes reports what InitSwapChainResources will allocate
	// from the shared pool for imageCount swapchain images.
	DescriptorPoolSizes(imageCount uint32) vulkan.DescriptorBudget
	InitSwapChainResources(pool vk.DescriptorPool) error
	UpdateUniformBuffers(elapsed time.Duration, width, height uint32, frame int) error
	DrawCommands(cmd vk.CommandBuffer, frame int)
	ReleaseSwapChainResources()
	ReleaseResources()
}

// CacheStore persists the driver pipeline cache between runs. A nil blob
// from LoadPipelineCache is a cache miss.
type CacheStore interface {
	LoadPipelineCache() ([]byte, error)
	SavePipelineCache(data []byte) error
}
