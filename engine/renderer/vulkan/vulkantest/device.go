// Package vulkantest provides in-memory implementations of the vulkan
// package's Device and Surface for tests that run without a GPU.
package vulkantest

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
)

type Kind string

const (
	KindBuffer              Kind = "buffer"
	KindImage               Kind = "image"
	KindImageView           Kind = "image view"
	KindSampler             Kind = "sampler"
	KindMemory              Kind = "memory"
	KindCommandBuffer       Kind = "command buffer"
	KindShaderModule        Kind = "shader module"
	KindDescriptorSetLayout Kind = "descriptor set layout"
	KindDescriptorPool      Kind = "descriptor pool"
	KindPipelineLayout      Kind = "pipeline layout"
	KindPipeline            Kind = "pipeline"
	KindPipelineCache       Kind = "pipeline cache"
)

// Memory type indices reported by MemoryProperties.
const (
	DeviceLocalMemoryType uint32 = 0
	HostVisibleMemoryType uint32 = 1
)

// DefaultCacheData is what PipelineCacheData returns for an unseeded cache.
var DefaultCacheData = []byte("vulkantest pipeline cache")

type failure struct {
	nth    int
	result vk.Result
}

type memoryObject struct {
	data      []byte
	typeIndex uint32
	mapped    bool
}

type bufferObject struct {
	size   vk.DeviceSize
	usage  vk.BufferUsageFlags
	memory vk.DeviceMemory
}

type imageObject struct {
	info    vk.ImageCreateInfo
	memory  vk.DeviceMemory
	layouts []vk.ImageLayout
}

type poolObject struct {
	remainingSets uint32
	remaining     map[vk.DescriptorType]uint32
}

type commandBufferObject struct {
	recording bool
	ended     bool
	ops       []op
}

type op struct {
	name string
	run  func()
}

// Blit is one executed CmdBlitImage region.
type Blit struct {
	Image     vk.Image
	SrcLevel  uint32
	DstLevel  uint32
	SrcExtent [2]int32
	DstExtent [2]int32
	Filter    vk.Filter
}

// Device is a vulkan.Device that keeps every object in memory. Recorded
// commands run when their command buffer is submitted: buffer copies move
// bytes between the backing memory, barriers and blits update per mip level
// layouts. Misuse (double destroy, wrong layouts, unended submits) is
// collected in Errors instead of failing.
type Device struct {
	mu sync.Mutex

	live     map[unsafe.Pointer]Kind
	calls    map[string]int
	failures map[string]failure

	memory         map[vk.DeviceMemory]*memoryObject
	buffers        map[vk.Buffer]*bufferObject
	images         map[vk.Image]*imageObject
	commandBuffers map[vk.CommandBuffer]*commandBufferObject
	setLayouts     map[vk.DescriptorSetLayout]map[vk.DescriptorType]uint32
	pools          map[vk.DescriptorPool]*poolObject
	caches         map[vk.PipelineCache][]byte

	// Formats overrides FormatProperties per format. Formats missing here
	// report DefaultFormatFeatures for optimal tiling.
	Formats               map[vk.Format]vk.FormatProperties
	DefaultFormatFeatures vk.FormatFeatureFlags

	// Executed is the name of every command run by QueueSubmit, in order.
	Executed []string
	Blits    []Blit
	Writes   []vk.WriteDescriptorSet
	// Pipelines holds the create info of every graphics pipeline.
	Pipelines []vk.GraphicsPipelineCreateInfo
	// PoolInfos holds the create info of every descriptor pool.
	PoolInfos []vk.DescriptorPoolCreateInfo
	Errors    []string
}

var _ vulkan.Device = (*Device)(nil)

func NewDevice() *Device {
	return &Device{
		live:           make(map[unsafe.Pointer]Kind),
		calls:          make(map[string]int),
		failures:       make(map[string]failure),
		memory:         make(map[vk.DeviceMemory]*memoryObject),
		buffers:        make(map[vk.Buffer]*bufferObject),
		images:         make(map[vk.Image]*imageObject),
		commandBuffers: make(map[vk.CommandBuffer]*commandBufferObject),
		setLayouts:     make(map[vk.DescriptorSetLayout]map[vk.DescriptorType]uint32),
		pools:          make(map[vk.DescriptorPool]*poolObject),
		caches:         make(map[vk.PipelineCache][]byte),
		Formats:        make(map[vk.Format]vk.FormatProperties),
		DefaultFormatFeatures: vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit) |
			vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) |
			vk.FormatFeatureFlags(vk.FormatFeatureBlitSrcBit) |
			vk.FormatFeatureFlags(vk.FormatFeatureBlitDstBit),
	}
}

// FailOn makes the nth call (1 based) of op return result. An nth of 0
// fails every call. Op names are the Device method names.
func (d *Device) FailOn(op string, nth int, result vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = failure{nth: nth, result: result}
}

// Calls reports how many times op was called.
func (d *Device) Calls(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[op]
}

// Live reports the number of live objects of kind.
func (d *Device) Live(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// LiveTotal reports the number of live objects of every kind.
func (d *Device) LiveTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// BufferContents returns a copy of the memory bound to buf.
func (d *Device) BufferContents(buf vk.Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[buf]
	if !ok {
		return nil
	}
	mem, ok := d.memory[b.memory]
	if !ok {
		return nil
	}
	return append([]byte(nil), mem.data[:b.size]...)
}

// BufferUsage returns the usage buf was created with.
func (d *Device) BufferUsage(buf vk.Buffer) vk.BufferUsageFlags {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[buf]; ok {
		return b.usage
	}
	return 0
}

// MemoryTypeOf returns the memory type index memory was allocated from.
func (d *Device) MemoryTypeOf(memory vk.DeviceMemory) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.memory[memory]; ok {
		return m.typeIndex
	}
	return ^uint32(0)
}

// ImageLayouts returns the current layout of every mip level of image.
func (d *Device) ImageLayouts(image vk.Image) []vk.ImageLayout {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[image]
	if !ok {
		return nil
	}
	return append([]vk.ImageLayout(nil), img.layouts...)
}

// ImageFormat returns the format image was created with.
func (d *Device) ImageFormat(image vk.Image) vk.Format {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[image]
	if !ok {
		return vk.FormatUndefined
	}
	return img.info.Format
}

// Recorded returns the names of the commands recorded into cmd since its
// last begin or reset.
func (d *Device) Recorded(cmd vk.CommandBuffer) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := d.commandBuffers[cmd]
	if !ok {
		return nil
	}
	names := make([]string, len(cb.ops))
	for i, o := range cb.ops {
		names[i] = o.name
	}
	return names
}

// NewCommandBufferHandle returns a command buffer handle that is not owned
// by any pool, the way a host provides its per-frame buffer.
func (d *Device) NewCommandBufferHandle() vk.CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	cmd := vk.CommandBuffer(newHandle())
	d.commandBuffers[cmd] = &commandBufferObject{recording: true}
	return cmd
}

func newHandle() unsafe.Pointer {
	return unsafe.Pointer(new(uint64))
}

// call counts op and returns the injected result, if any. The caller holds mu.
func (d *Device) call(op string) vk.Result {
	d.calls[op]++
	f, ok := d.failures[op]
	if !ok {
		return vk.Success
	}
	if f.nth == 0 || f.nth == d.calls[op] {
		return f.result
	}
	return vk.Success
}

func (d *Device) track(handle unsafe.Pointer, kind Kind) {
	d.live[handle] = kind
}

func (d *Device) untrack(handle unsafe.Pointer, kind Kind) {
	if handle == nil {
		return
	}
	if got, ok := d.live[handle]; !ok || got != kind {
		d.Errors = append(d.Errors, fmt.Sprintf("destroy of unknown %s %p", kind, handle))
		return
	}
	delete(d.live, handle)
}

func (d *Device) errorf(format string, args ...interface{}) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

func (d *Device) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var properties vk.PhysicalDeviceMemoryProperties
	properties.MemoryTypeCount = 2
	properties.MemoryTypes[DeviceLocalMemoryType] = vk.MemoryType{
		PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		HeapIndex:     0,
	}
	properties.MemoryTypes[HostVisibleMemoryType] = vk.MemoryType{
		PropertyFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit),
		HeapIndex:     1,
	}
	properties.MemoryHeapCount = 2
	properties.MemoryHeaps[0] = vk.MemoryHeap{Size: 1 << 30, Flags: vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit)}
	properties.MemoryHeaps[1] = vk.MemoryHeap{Size: 1 << 30}
	return properties
}

func (d *Device) FormatProperties(format vk.Format) vk.FormatProperties {
	d.mu.Lock()
	defer d.mu.Unlock()
	if properties, ok := d.Formats[format]; ok {
		return properties
	}
	return vk.FormatProperties{OptimalTilingFeatures: d.DefaultFormatFeatures}
}

func (d *Device) DeviceWaitIdle() vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.call("DeviceWaitIdle")
}

func (d *Device) CreateBuffer(info *vk.BufferCreateInfo, buffer *vk.Buffer) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreateBuffer"); res != vk.Success {
		return res
	}
	if info.Size == 0 {
		d.errorf("CreateBuffer with size 0")
	}
	handle := newHandle()
	*buffer = vk.Buffer(handle)
	d.buffers[*buffer] = &bufferObject{size: info.Size, usage: info.Usage}
	d.track(handle, KindBuffer)
	return vk.Success
}

func (d *Device) DestroyBuffer(buffer vk.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyBuffer")
	d.untrack(unsafe.Pointer(buffer), KindBuffer)
	delete(d.buffers, buffer)
}

func (d *Device) BufferMemoryRequirements(buffer vk.Buffer) vk.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	var size vk.DeviceSize
	if b, ok := d.buffers[buffer]; ok {
		size = b.size
	}
	return vk.MemoryRequirements{
		Size:           size,
		Alignment:      16,
		MemoryTypeBits: 1<<DeviceLocalMemoryType | 1<<HostVisibleMemoryType,
	}
}

func (d *Device) BindBufferMemory(buffer vk.Buffer, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("BindBufferMemory"); res != vk.Success {
		return res
	}
	b, ok := d.buffers[buffer]
	if !ok {
		d.errorf("BindBufferMemory on unknown buffer")
		return vk.ErrorUnknown
	}
	if _, ok := d.memory[memory]; !ok {
		d.errorf("BindBufferMemory with unknown memory")
		return vk.ErrorUnknown
	}
	b.memory = memory
	return vk.Success
}

func (d *Device) CreateImage(info *vk.ImageCreateInfo, image *vk.Image) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreateImage"); res != vk.Success {
		return res
	}
	handle := newHandle()
	*image = vk.Image(handle)
	layouts := make([]vk.ImageLayout, info.MipLevels)
	for i := range layouts {
		layouts[i] = info.InitialLayout
	}
	d.images[*image] = &imageObject{info: *info, layouts: layouts}
	d.track(handle, KindImage)
	return vk.Success
}

func (d *Device) DestroyImage(image vk.Image) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyImage")
	d.untrack(unsafe.Pointer(image), KindImage)
	delete(d.images, image)
}

func (d *Device) ImageMemoryRequirements(image vk.Image) vk.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	var size vk.DeviceSize
	if img, ok := d.images[image]; ok {
		// Room for a full mip chain of 4 byte texels.
		size = vk.DeviceSize(img.info.Extent.Width) * vk.DeviceSize(img.info.Extent.Height) * 4 * 2
	}
	return vk.MemoryRequirements{
		Size:           size,
		Alignment:      256,
		MemoryTypeBits: 1<<DeviceLocalMemoryType | 1<<HostVisibleMemoryType,
	}
}

func (d *Device) BindImageMemory(image vk.Image, memory vk.DeviceMemory, offset vk.DeviceSize) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("BindImageMemory"); res != vk.Success {
		return res
	}
	img, ok := d.images[image]
	if !ok {
		d.errorf("BindImageMemory on unknown image")
		return vk.ErrorUnknown
	}
	img.memory = memory
	return vk.Success
}

func (d *Device) CreateImageView(info *vk.ImageViewCreateInfo, view *vk.ImageView) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreateImageView"); res != vk.Success {
		return res
	}
	handle := newHandle()
	*view = vk.ImageView(handle)
	d.track(handle, KindImageView)
	return vk.Success
}

func (d *Device) DestroyImageView(view vk.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyImageView")
	d.untrack(unsafe.Pointer(view), KindImageView)
}

func (d *Device) CreateSampler(info *vk.SamplerCreateInfo, sampler *vk.Sampler) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreateSampler"); res != vk.Success {
		return res
	}
	handle := newHandle()
	*sampler = vk.Sampler(handle)
	d.track(handle, KindSampler)
	return vk.Success
}

func (d *Device) DestroySampler(sampler vk.Sampler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroySampler")
	d.untrack(unsafe.Pointer(sampler), KindSampler)
}

func (d *Device) AllocateMemory(info *vk.MemoryAllocateInfo, memory *vk.DeviceMemory) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("AllocateMemory"); res != vk.Success {
		return res
	}
	handle := newHandle()
	*memory = vk.DeviceMemory(handle)
	d.memory[*memory] = &memoryObject{
		data:      make([]byte, info.AllocationSize),
		typeIndex: info.MemoryTypeIndex,
	}
	d.track(handle, KindMemory)
	return vk.Success
}

func (d *Device) FreeMemory(memory vk.DeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("FreeMemory")
	if m, ok := d.memory[memory]; ok && m.mapped {
		d.errorf("FreeMemory of mapped memory")
	}
	d.untrack(unsafe.Pointer(memory), KindMemory)
	delete(d.memory, memory)
}

func (d *Device) MapMemory(memory vk.DeviceMemory, offset, size vk.DeviceSize) ([]byte, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("MapMemory"); res != vk.Success {
		return nil, res
	}
	m, ok := d.memory[memory]
	if !ok {
		d.errorf("MapMemory of unknown memory")
		return nil, vk.ErrorMemoryMapFailed
	}
	if m.typeIndex != HostVisibleMemoryType {
		d.errorf("MapMemory of memory that is not host visible")
		return nil, vk.ErrorMemoryMapFailed
	}
	if m.mapped {
		d.errorf("MapMemory of memory that is already mapped")
		return nil, vk.ErrorMemoryMapFailed
	}
	end := offset + size
	if size == vk.DeviceSize(vk.WholeSize) {
		end = vk.DeviceSize(len(m.data))
	}
	if end > vk.DeviceSize(len(m.data)) {
		d.errorf("MapMemory range %d..%d beyond allocation of %d", offset, end, len(m.data))
		return nil, vk.ErrorMemoryMapFailed
	}
	m.mapped = true
	return m.data[offset:end], vk.Success
}

func (d *Device) UnmapMemory(memory vk.DeviceMemory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("UnmapMemory")
	if m, ok := d.memory[memory]; ok {
		m.mapped = false
	}
}

func (d *Device) AllocateCommandBuffers(info *vk.CommandBufferAllocateInfo, buffers []vk.CommandBuffer) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("AllocateCommandBuffers"); res != vk.Success {
		return res
	}
	for i := 0; i < int(info.CommandBufferCount) && i < len(buffers); i++ {
		handle := newHandle()
		buffers[i] = vk.CommandBuffer(handle)
		d.commandBuffers[buffers[i]] = &commandBufferObject{}
		d.track(handle, KindCommandBuffer)
	}
	return vk.Success
}

func (d *Device) FreeCommandBuffers(pool vk.CommandPool, buffers []vk.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("FreeCommandBuffers")
	for _, cmd := range buffers {
		d.untrack(unsafe.Pointer(cmd), KindCommandBuffer)
		delete(d.commandBuffers, cmd)
	}
}

func (d *Device) BeginCommandBuffer(cmd vk.CommandBuffer, info *vk.CommandBufferBeginInfo) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("BeginCommandBuffer"); res != vk.Success {
		return res
	}
	cb, ok := d.commandBuffers[cmd]
	if !ok {
		d.errorf("BeginCommandBuffer on unknown command buffer")
		return vk.ErrorUnknown
	}
	*cb = commandBufferObject{recording: true}
	return vk.Success
}

func (d *Device) EndCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("EndCommandBuffer"); res != vk.Success {
		return res
	}
	cb, ok := d.commandBuffers[cmd]
	if !ok || !cb.recording {
		d.errorf("EndCommandBuffer on a command buffer that is not recording")
		return vk.ErrorUnknown
	}
	cb.recording = false
	cb.ended = true
	return vk.Success
}

func (d *Device) ResetCommandBuffer(cmd vk.CommandBuffer) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("ResetCommandBuffer"); res != vk.Success {
		return res
	}
	if cb, ok := d.commandBuffers[cmd]; ok {
		*cb = commandBufferObject{}
	}
	return vk.Success
}

func (d *Device) QueueSubmit(queue vk.Queue, submits []vk.SubmitInfo, fence vk.Fence) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("QueueSubmit"); res != vk.Success {
		return res
	}
	for _, submit := range submits {
		for _, cmd := range submit.PCommandBuffers {
			cb, ok := d.commandBuffers[cmd]
			if !ok || !cb.ended {
				d.errorf("QueueSubmit of a command buffer that was not ended")
				continue
			}
			for _, o := range cb.ops {
				o.run()
				d.Executed = append(d.Executed, o.name)
			}
		}
	}
	return vk.Success
}

func (d *Device) QueueWaitIdle(queue vk.Queue) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.call("QueueWaitIdle")
}

// record appends a command to cmd. The caller holds mu; run executes with
// mu held.
func (d *Device) record(cmd vk.CommandBuffer, name string, run func()) {
	d.calls[name]++
	cb, ok := d.commandBuffers[cmd]
	if !ok || !cb.recording {
		d.errorf("%s recorded into a command buffer that is not recording", name)
		return
	}
	if run == nil {
		run = func() {}
	}
	cb.ops = append(cb.ops, op{name: name, run: run})
}

func (d *Device) CmdCopyBuffer(cmd vk.CommandBuffer, src, dst vk.Buffer, regions []vk.BufferCopy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	regions = append([]vk.BufferCopy(nil), regions...)
	d.record(cmd, "CmdCopyBuffer", func() {
		from, to := d.bufferBytes(src), d.bufferBytes(dst)
		if from == nil || to == nil {
			d.errorf("CmdCopyBuffer between unbound buffers")
			return
		}
		for _, r := range regions {
			if r.SrcOffset+r.Size > vk.DeviceSize(len(from)) || r.DstOffset+r.Size > vk.DeviceSize(len(to)) {
				d.errorf("CmdCopyBuffer region out of range")
				continue
			}
			copy(to[r.DstOffset:r.DstOffset+r.Size], from[r.SrcOffset:r.SrcOffset+r.Size])
		}
	})
}

func (d *Device) bufferBytes(buf vk.Buffer) []byte {
	b, ok := d.buffers[buf]
	if !ok {
		return nil
	}
	m, ok := d.memory[b.memory]
	if !ok {
		return nil
	}
	return m.data[:b.size]
}

func (d *Device) CmdCopyBufferToImage(cmd vk.CommandBuffer, src vk.Buffer, dst vk.Image, layout vk.ImageLayout, regions []vk.BufferImageCopy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	regions = append([]vk.BufferImageCopy(nil), regions...)
	d.record(cmd, "CmdCopyBufferToImage", func() {
		img, ok := d.images[dst]
		if !ok {
			d.errorf("CmdCopyBufferToImage into unknown image")
			return
		}
		for _, r := range regions {
			level := r.ImageSubresource.MipLevel
			if int(level) >= len(img.layouts) || img.layouts[level] != layout {
				d.errorf("CmdCopyBufferToImage into level %d which is not in layout %d", level, layout)
			}
		}
	})
}

func (d *Device) CmdPipelineBarrier(cmd vk.CommandBuffer, srcStage, dstStage vk.PipelineStageFlags, barriers []vk.ImageMemoryBarrier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	barriers = append([]vk.ImageMemoryBarrier(nil), barriers...)
	d.record(cmd, "CmdPipelineBarrier", func() {
		for _, b := range barriers {
			img, ok := d.images[b.Image]
			if !ok {
				// Images owned by the presentation host are not tracked.
				continue
			}
			first := b.SubresourceRange.BaseMipLevel
			last := first + b.SubresourceRange.LevelCount
			if last > uint32(len(img.layouts)) {
				d.errorf("barrier levels %d..%d beyond %d levels", first, last, len(img.layouts))
				last = uint32(len(img.layouts))
			}
			for level := first; level < last; level++ {
				if b.OldLayout != vk.ImageLayoutUndefined && img.layouts[level] != b.OldLayout {
					d.errorf("barrier expects level %d in layout %d, found %d", level, b.OldLayout, img.layouts[level])
				}
				img.layouts[level] = b.NewLayout
			}
		}
	})
}

func (d *Device) CmdBlitImage(cmd vk.CommandBuffer, src vk.Image, srcLayout vk.ImageLayout, dst vk.Image, dstLayout vk.ImageLayout, regions []vk.ImageBlit, filter vk.Filter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	regions = append([]vk.ImageBlit(nil), regions...)
	d.record(cmd, "CmdBlitImage", func() {
		from, okSrc := d.images[src]
		to, okDst := d.images[dst]
		if !okSrc || !okDst {
			d.errorf("CmdBlitImage between unknown images")
			return
		}
		for _, r := range regions {
			srcLevel, dstLevel := r.SrcSubresource.MipLevel, r.DstSubresource.MipLevel
			if from.layouts[srcLevel] != srcLayout {
				d.errorf("blit source level %d in layout %d, want %d", srcLevel, from.layouts[srcLevel], srcLayout)
			}
			if to.layouts[dstLevel] != dstLayout {
				d.errorf("blit destination level %d in layout %d, want %d", dstLevel, to.layouts[dstLevel], dstLayout)
			}
			d.Blits = append(d.Blits, Blit{
				Image:     dst,
				SrcLevel:  srcLevel,
				DstLevel:  dstLevel,
				SrcExtent: [2]int32{r.SrcOffsets[1].X, r.SrcOffsets[1].Y},
				DstExtent: [2]int32{r.DstOffsets[1].X, r.DstOffsets[1].Y},
				Filter:    filter,
			})
		}
	})
}

func (d *Device) CmdBeginRenderPass(cmd vk.CommandBuffer, info *vk.RenderPassBeginInfo, contents vk.SubpassContents) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(cmd, "CmdBeginRenderPass", nil)
}

func (d *Device) CmdEndRenderPass(cmd vk.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(cmd, "CmdEndRenderPass", nil)
}

func (d *Device) CmdBindPipeline(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, pipeline vk.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[unsafe.Pointer(pipeline)]; !ok {
		d.errorf("CmdBindPipeline with a pipeline that is not live")
	}
	d.record(cmd, "CmdBindPipeline", nil)
}

func (d *Device) CmdBindVertexBuffers(cmd vk.CommandBuffer, firstBinding uint32, buffers []vk.Buffer, offsets []vk.DeviceSize) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(cmd, "CmdBindVertexBuffers", nil)
}

func (d *Device) CmdBindIndexBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(cmd, "CmdBindIndexBuffer", nil)
}

func (d *Device) CmdBindDescriptorSets(cmd vk.CommandBuffer, bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout, firstSet uint32, sets []vk.DescriptorSet, dynamicOffsets []uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(cmd, "CmdBindDescriptorSets", nil)
}

func (d *Device) CmdDrawIndexed(cmd vk.CommandBuffer, indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(cmd, "CmdDrawIndexed", nil)
}

func (d *Device) CreateShaderModule(info *vk.ShaderModuleCreateInfo, module *vk.ShaderModule) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreateShaderModule"); res != vk.Success {
		return res
	}
	if info.CodeSize == 0 || info.CodeSize%4 != 0 || int(info.CodeSize) != len(info.PCode)*4 {
		d.errorf("CreateShaderModule with code size %d and %d words", info.CodeSize, len(info.PCode))
		return vk.ErrorInitializationFailed
	}
	handle := newHandle()
	*module = vk.ShaderModule(handle)
	d.track(handle, KindShaderModule)
	return vk.Success
}

func (d *Device) DestroyShaderModule(module vk.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyShaderModule")
	d.untrack(unsafe.Pointer(module), KindShaderModule)
}

func (d *Device) CreateDescriptorSetLayout(info *vk.DescriptorSetLayoutCreateInfo, layout *vk.DescriptorSetLayout) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreateDescriptorSetLayout"); res != vk.Success {
		return res
	}
	counts := make(map[vk.DescriptorType]uint32)
	for _, binding := range info.PBindings {
		counts[binding.DescriptorType] += binding.DescriptorCount
	}
	handle := newHandle()
	*layout = vk.DescriptorSetLayout(handle)
	d.setLayouts[*layout] = counts
	d.track(handle, KindDescriptorSetLayout)
	return vk.Success
}

func (d *Device) DestroyDescriptorSetLayout(layout vk.DescriptorSetLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyDescriptorSetLayout")
	d.untrack(unsafe.Pointer(layout), KindDescriptorSetLayout)
	delete(d.setLayouts, layout)
}

func (d *Device) CreatePipelineLayout(info *vk.PipelineLayoutCreateInfo, layout *vk.PipelineLayout) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreatePipelineLayout"); res != vk.Success {
		return res
	}
	handle := newHandle()
	*layout = vk.PipelineLayout(handle)
	d.track(handle, KindPipelineLayout)
	return vk.Success
}

func (d *Device) DestroyPipelineLayout(layout vk.PipelineLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyPipelineLayout")
	d.untrack(unsafe.Pointer(layout), KindPipelineLayout)
}

func (d *Device) CreateGraphicsPipelines(cache vk.PipelineCache, infos []vk.GraphicsPipelineCreateInfo, pipelines []vk.Pipeline) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreateGraphicsPipelines"); res != vk.Success {
		return res
	}
	for i := range infos {
		handle := newHandle()
		pipelines[i] = vk.Pipeline(handle)
		d.track(handle, KindPipeline)
		d.Pipelines = append(d.Pipelines, infos[i])
	}
	return vk.Success
}

func (d *Device) DestroyPipeline(pipeline vk.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyPipeline")
	d.untrack(unsafe.Pointer(pipeline), KindPipeline)
}

func (d *Device) CreatePipelineCache(info *vk.PipelineCacheCreateInfo, cache *vk.PipelineCache) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreatePipelineCache"); res != vk.Success {
		return res
	}
	data := DefaultCacheData
	if info.InitialDataSize > 0 && info.PInitialData != nil {
		data = append([]byte(nil), unsafe.Slice((*byte)(info.PInitialData), info.InitialDataSize)...)
	}
	handle := newHandle()
	*cache = vk.PipelineCache(handle)
	d.caches[*cache] = data
	d.track(handle, KindPipelineCache)
	return vk.Success
}

func (d *Device) DestroyPipelineCache(cache vk.PipelineCache) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyPipelineCache")
	d.untrack(unsafe.Pointer(cache), KindPipelineCache)
	delete(d.caches, cache)
}

func (d *Device) PipelineCacheData(cache vk.PipelineCache) ([]byte, vk.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("PipelineCacheData"); res != vk.Success {
		return nil, res
	}
	data, ok := d.caches[cache]
	if !ok {
		d.errorf("PipelineCacheData of unknown cache")
		return nil, vk.ErrorUnknown
	}
	return append([]byte(nil), data...), vk.Success
}

func (d *Device) CreateDescriptorPool(info *vk.DescriptorPoolCreateInfo, pool *vk.DescriptorPool) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("CreateDescriptorPool"); res != vk.Success {
		return res
	}
	remaining := make(map[vk.DescriptorType]uint32)
	for _, size := range info.PPoolSizes {
		remaining[size.Type] += size.DescriptorCount
	}
	recorded := *info
	recorded.PPoolSizes = append([]vk.DescriptorPoolSize(nil), info.PPoolSizes...)
	d.PoolInfos = append(d.PoolInfos, recorded)

	handle := newHandle()
	*pool = vk.DescriptorPool(handle)
	d.pools[*pool] = &poolObject{remainingSets: info.MaxSets, remaining: remaining}
	d.track(handle, KindDescriptorPool)
	return vk.Success
}

func (d *Device) DestroyDescriptorPool(pool vk.DescriptorPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyDescriptorPool")
	d.untrack(unsafe.Pointer(pool), KindDescriptorPool)
	delete(d.pools, pool)
}

// AllocateDescriptorSets draws sets from the pool's capacity and fails with
// ErrorOutOfPoolMemory once either the set count or a descriptor type runs
// out.
func (d *Device) AllocateDescriptorSets(info *vk.DescriptorSetAllocateInfo, sets []vk.DescriptorSet) vk.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	if res := d.call("AllocateDescriptorSets"); res != vk.Success {
		return res
	}
	p, ok := d.pools[info.DescriptorPool]
	if !ok {
		d.errorf("AllocateDescriptorSets from unknown pool")
		return vk.ErrorUnknown
	}
	if info.DescriptorSetCount > p.remainingSets {
		return vk.ErrorOutOfPoolMemory
	}
	need := make(map[vk.DescriptorType]uint32)
	for _, layout := range info.PSetLayouts {
		counts, ok := d.setLayouts[layout]
		if !ok {
			d.errorf("AllocateDescriptorSets with unknown layout")
			return vk.ErrorUnknown
		}
		for t, n := range counts {
			need[t] += n
		}
	}
	for t, n := range need {
		if p.remaining[t] < n {
			return vk.ErrorOutOfPoolMemory
		}
	}
	for t, n := range need {
		p.remaining[t] -= n
	}
	p.remainingSets -= info.DescriptorSetCount
	for i := 0; i < int(info.DescriptorSetCount) && i < len(sets); i++ {
		sets[i] = vk.DescriptorSet(newHandle())
	}
	return vk.Success
}

func (d *Device) UpdateDescriptorSets(writes []vk.WriteDescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("UpdateDescriptorSets")
	d.Writes = append(d.Writes, writes...)
}
