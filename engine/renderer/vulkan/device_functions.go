package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Device is the table of device-level entry points used by the resource
// layer. It is bound to a single logical device, so none of the calls take a
// vk.Device argument. VulkanDevice forwards every call to the driver;
// vulkantest.Device is an in-memory implementation for tests.
type Device interface {
	MemoryProperties() vk.PhysicalDeviceMemoryProperties
	FormatProperties(format vk.Format) vk.FormatProperties
	DeviceWaitIdle() vk.Result

	CreateBuffer(info *vk.BufferCreateInfo, buffer *vk.Buffer) vk.Result
	DestroyBuffer(buffer vk.Buffer)
	BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements
	BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result

	CreateImage(info *vk.ImageCreateInfo, image *vk.Image) vk.Result
	DestroyImage(image vk.Image)
	ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements
	BindImageMemory(image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result
	CreateImageView(info *vk.ImageViewCreateInfo, view *vk.ImageView) vk.Result
	DestroyImageView(view vk.ImageView)
	CreateSampler(info *vk.SamplerCreateInfo, sampler *vk.Sampler) vk.Result
	DestroySampler(sampler vk.Sampler)

	AllocateMemory(info *vk.MemoryAllocateInfo, memory *vk.DeviceMemory) vk.Result
	FreeMemory(memory vk.DeviceMemory)
	// MapMemory returns a byte view of the mapped range. The slice is only
	// valid until UnmapMemory.
	MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) ([]byte, vk.Result)
	UnmapMemory(memory vk.DeviceMemory)

	AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo, buffers []vk.CommandBuffer) vk.Result
	FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer)
	BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result
	EndCommandBuffer(cmd vk.CommandBuffer) vk.Result
	ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result
	QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result
	QueueWaitIdle(queue vk.Queue) vk.Result

	CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy)
	CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy)
	CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier)
	CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter)
	CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents)
	CmdEndRenderPass(cmd vk.CommandBuffer)
	CmdBindPipeline(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline)
	CmdBindVertexBuffers(cmd vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize)
	CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	CmdBindDescriptorSets(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32)
	CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)

	CreateShaderModule(info *vk.ShaderModuleCreateInfo, module *vk.ShaderModule) vk.Result
	DestroyShaderModule(module vk.ShaderModule)
	CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo, layout *vk.DescriptorSetLayout) vk.Result
	DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout)
	CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo, layout *vk.PipelineLayout) vk.Result
	DestroyPipelineLayout(layout vk.PipelineLayout)
	CreateGraphicsPipelines(cache vk.PipelineCache, infos []vk.GraphicsPipelineCreateInfo, pipelines []vk.Pipeline) vk.Result
	DestroyPipeline(pipeline vk.Pipeline)
	CreatePipelineCache(info *vk.PipelineCacheCreateInfo, cache *vk.PipelineCache) vk.Result
	DestroyPipelineCache(cache vk.PipelineCache)
	PipelineCacheData(cache vk.PipelineCache) ([]byte, vk.Result)

	CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo, pool *vk.DescriptorPool) vk.Result
	DestroyDescriptorPool(pool vk.DescriptorPool)
	AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo, sets []vk.DescriptorSet) vk.Result
	UpdateDescriptorSets(writes []vk.WriteDescriptorSet)
}

var _ Device = (*VulkanDevice)(nil)

func (d *VulkanDevice) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var properties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.PhysicalDevice, &properties)
	properties.Deref()
	for i := uint32(0); i < properties.MemoryTypeCount; i++ {
		properties.MemoryTypes[i].Deref()
	}
	for i := uint32(0); i < properties.MemoryHeapCount; i++ {
		properties.MemoryHeaps[i].Deref()
	}
	return properties
}

func (d *VulkanDevice) FormatProperties(format vk.Format) vk.FormatProperties {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.PhysicalDevice, format, &properties)
	properties.Deref()
	return properties
}

func (d *VulkanDevice) DeviceWaitIdle() vk.Result {
	return vk.DeviceWaitIdle(d.LogicalDevice)
}

func (d *VulkanDevice) CreateBuffer(info *vk.BufferCreateInfo, buffer *vk.Buffer) vk.Result {
	return vk.CreateBuffer(d.LogicalDevice, info, nil, buffer)
}

func (d *VulkanDevice) DestroyBuffer(buffer vk.Buffer) {
	vk.DestroyBuffer(d.LogicalDevice, buffer, nil)
}

func (d *VulkanDevice) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.LogicalDevice, buffer, &requirements)
	requirements.Deref()
	return requirements
}

func (d *VulkanDevice) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindBufferMemory(d.LogicalDevice, buffer, memory, offset)
}

func (d *VulkanDevice) CreateImage(info *vk.ImageCreateInfo, image *vk.Image) vk.Result {
	return vk.CreateImage(d.LogicalDevice, info, nil, image)
}

func (d *VulkanDevice) DestroyImage(image vk.Image) {
	vk.DestroyImage(d.LogicalDevice, image, nil)
}

func (d *VulkanDevice) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.LogicalDevice, image, &requirements)
	requirements.Deref()
	return requirements
}

func (d *VulkanDevice) BindImageMemory(image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	return vk.BindImageMemory(d.LogicalDevice, image, memory, offset)
}

func (d *VulkanDevice) CreateImageView(info *vk.ImageViewCreateInfo, view *vk.ImageView) vk.Result {
	return vk.CreateImageView(d.LogicalDevice, info, nil, view)
}

func (d *VulkanDevice) DestroyImageView(view vk.ImageView) {
	vk.DestroyImageView(d.LogicalDevice, view, nil)
}

func (d *VulkanDevice) CreateSampler(info *vk.SamplerCreateInfo, sampler *vk.Sampler) vk.Result {
	return vk.CreateSampler(d.LogicalDevice, info, nil, sampler)
}

func (d *VulkanDevice) DestroySampler(sampler vk.Sampler) {
	vk.DestroySampler(d.LogicalDevice, sampler, nil)
}

func (d *VulkanDevice) AllocateMemory(info *vk.MemoryAllocateInfo, memory *vk.DeviceMemory) vk.Result {
	return vk.AllocateMemory(d.LogicalDevice, info, nil, memory)
}

func (d *VulkanDevice) FreeMemory(memory vk.DeviceMemory) {
	vk.FreeMemory(d.LogicalDevice, memory, nil)
}

func (d *VulkanDevice) MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) ([]byte, vk.Result) {
	var data unsafe.Pointer
	if res := vk.MapMemory(d.LogicalDevice, memory, offset, size, 0, &data); res != vk.Success {
		return nil, res
	}
	return unsafe.Slice((*byte)(data), int(size)), vk.Success
}

func (d *VulkanDevice) UnmapMemory(memory vk.DeviceMemory) {
	vk.UnmapMemory(d.LogicalDevice, memory)
}

func (d *VulkanDevice) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo, buffers []vk.CommandBuffer) vk.Result {
	return vk.AllocateCommandBuffers(d.LogicalDevice, info, buffers)
}

func (d *VulkanDevice) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	vk.FreeCommandBuffers(d.LogicalDevice, pool, uint32(len(buffers)), buffers)
}

func (d *VulkanDevice) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	return vk.BeginCommandBuffer(cmd, info)
}

func (d *VulkanDevice) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return vk.EndCommandBuffer(cmd)
}

func (d *VulkanDevice) ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	return vk.ResetCommandBuffer(cmd, 0)
}

func (d *VulkanDevice) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	return vk.QueueSubmit(queue, uint32(len(submits)), submits, fence)
}

func (d *VulkanDevice) QueueWaitIdle(queue vk.Queue) vk.Result {
	return vk.QueueWaitIdle(queue)
}

func (d *VulkanDevice) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	vk.CmdCopyBuffer(cmd, src, dst, uint32(len(regions)), regions)
}

func (d *VulkanDevice) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	vk.CmdCopyBufferToImage(cmd, src, dst, layout, uint32(len(regions)), regions)
}

func (d *VulkanDevice) CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
}

func (d *VulkanDevice) CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	vk.CmdBlitImage(cmd, src, srcLayout, dst, dstLayout, uint32(len(regions)), regions, filter)
}

func (d *VulkanDevice) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	vk.CmdBeginRenderPass(cmd, info, contents)
}

func (d *VulkanDevice) CmdEndRenderPass(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

func (d *VulkanDevice) CmdBindPipeline(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	vk.CmdBindPipeline(cmd, bindPoint, pipeline)
}

func (d *VulkanDevice) CmdBindVertexBuffers(cmd vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	vk.CmdBindVertexBuffers(cmd, firstBinding, uint32(len(buffers)), buffers, offsets)
}

func (d *VulkanDevice) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(cmd, buffer, offset, indexType)
}

func (d *VulkanDevice) CmdBindDescriptorSets(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	vk.CmdBindDescriptorSets(cmd, bindPoint, layout, firstSet, uint32(len(sets)), sets, uint32(len(dynamicOffsets)), dynamicOffsets)
}

func (d *VulkanDevice) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cmd, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (d *VulkanDevice) CreateShaderModule(info *vk.ShaderModuleCreateInfo, module *vk.ShaderModule) vk.Result {
	return vk.CreateShaderModule(d.LogicalDevice, info, nil, module)
}

func (d *VulkanDevice) DestroyShaderModule(module vk.ShaderModule) {
	vk.DestroyShaderModule(d.LogicalDevice, module, nil)
}

func (d *VulkanDevice) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo, layout *vk.DescriptorSetLayout) vk.Result {
	return vk.CreateDescriptorSetLayout(d.LogicalDevice, info, nil, layout)
}

func (d *VulkanDevice) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.LogicalDevice, layout, nil)
}

func (d *VulkanDevice) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo, layout *vk.PipelineLayout) vk.Result {
	return vk.CreatePipelineLayout(d.LogicalDevice, info, nil, layout)
}

func (d *VulkanDevice) DestroyPipelineLayout(layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(d.LogicalDevice, layout, nil)
}

func (d *VulkanDevice) CreateGraphicsPipelines(cache vk.PipelineCache, infos []vk.GraphicsPipelineCreateInfo, pipelines []vk.Pipeline) vk.Result {
	return vk.CreateGraphicsPipelines(d.LogicalDevice, cache, uint32(len(infos)), infos, nil, pipelines)
}

func (d *VulkanDevice) DestroyPipeline(pipeline vk.Pipeline) {
	vk.DestroyPipeline(d.LogicalDevice, pipeline, nil)
}

func (d *VulkanDevice) CreatePipelineCache(info *vk.PipelineCacheCreateInfo, cache *vk.PipelineCache) vk.Result {
	return vk.CreatePipelineCache(d.LogicalDevice, info, nil, cache)
}

func (d *VulkanDevice) DestroyPipelineCache(cache vk.PipelineCache) {
	vk.DestroyPipelineCache(d.LogicalDevice, cache, nil)
}

func (d *VulkanDevice) PipelineCacheData(cache vk.PipelineCache) ([]byte, vk.Result) {
	var size uint64
	if res := vk.GetPipelineCacheData(d.LogicalDevice, cache, &size, nil); res != vk.Success || size == 0 {
		return nil, res
	}
	data := make([]byte, size)
	if res := vk.GetPipelineCacheData(d.LogicalDevice, cache, &size, unsafe.Pointer(&data[0])); res != vk.Success {
		return nil, res
	}
	return data[:size], vk.Success
}

func (d *VulkanDevice) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo, pool *vk.DescriptorPool) vk.Result {
	return vk.CreateDescriptorPool(d.LogicalDevice, info, nil, pool)
}

func (d *VulkanDevice) DestroyDescriptorPool(pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(d.LogicalDevice, pool, nil)
}

func (d *VulkanDevice) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo, sets []vk.DescriptorSet) vk.Result {
	return vk.AllocateDescriptorSets(d.LogicalDevice, info, &sets[0])
}

func (d *VulkanDevice) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(d.LogicalDevice, uint32(len(writes)), writes, 0, nil)
}
