package vulkan

import (
	"github.com/charmbracelet/log"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/viking/engine/core"
)

// Context bundles the device level services shared by the renderer and its
// drawables. The renderer owns it; drawables hold a pointer and never replace
// any of its fields.
type Context struct {
	Device    Device
	Allocator *Allocator
	Locks     *LockPool
	Logger    *log.Logger

	// Host provided presentation state.
	Surface Surface

	// Pool and queue used for one-shot transfer command buffers.
	CommandPool      vk.CommandPool
	Queue            vk.Queue
	QueueFamilyIndex uint32

	// Shared driver pipeline cache. May be vk.NullPipelineCache.
	PipelineCache vk.PipelineCache
}

// NewContext wires the services for the device exposed by surface. A nil
// logger falls back to the shared engine logger.
func NewContext(surface Surface, logger *log.Logger) *Context {
	if logger == nil {
		logger = core.Logger()
	}
	ctx := &Context{Logger: logger, Surface: surface}
	ctx.Attach()
	return ctx
}

// Attach rebuilds the device services from the surface's current device.
// The host calls into the renderer with a new device after it recovered from
// device loss, so the renderer attaches again before every init sequence.
func (c *Context) Attach() {
	locks := NewLockPool()
	device := c.Surface.Device()
	c.Device = device
	c.Allocator = NewAllocator(device, locks)
	c.Locks = locks
	c.CommandPool = c.Surface.GraphicsCommandPool()
	c.Queue = c.Surface.GraphicsQueue()
	c.QueueFamilyIndex = c.Surface.GraphicsQueueFamilyIndex()
	c.PipelineCache = vk.NullPipelineCache
}
