package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// NewPipelineCache creates the driver pipeline cache, seeded with initial
// when it is not empty. A seed the driver refuses is dropped and an empty
// cache is created instead.
func NewPipelineCache(ctx *Context, initial []byte) (vk.PipelineCache, error) {
	if len(initial) > 0 {
		info := vk.PipelineCacheCreateInfo{
			SType:           vk.StructureTypePipelineCacheCreateInfo,
			InitialDataSize: uint64(len(initial)),
			PInitialData:    unsafe.Pointer(&initial[0]),
		}
		var cache vk.PipelineCache
		res := ctx.Device.CreatePipelineCache(&info, &cache)
		if res == vk.Success {
			return cache, nil
		}
		ctx.Logger.Warn("pipeline cache seed rejected, starting empty", "result", VulkanResultString(res, false))
	}

	info := vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}
	var cache vk.PipelineCache
	if err := checkResult(ctx.Device.CreatePipelineCache(&info, &cache), "vkCreatePipelineCache"); err != nil {
		return vk.NullPipelineCache, err
	}
	return cache, nil
}

// PipelineCacheData reads back the driver's serialized cache.
func PipelineCacheData(ctx *Context, cache vk.PipelineCache) ([]byte, error) {
	if cache == vk.NullPipelineCache {
		return nil, nil
	}
	data, res := ctx.Device.PipelineCacheData(cache)
	if err := checkResult(res, "vkGetPipelineCacheData"); err != nil {
		return nil, err
	}
	return data, nil
}

func DestroyPipelineCache(ctx *Context, cache *vk.PipelineCache) {
	if *cache == vk.NullPipelineCache {
		return
	}
	ctx.Device.DestroyPipelineCache(*cache)
	*cache = vk.NullPipelineCache
}
