package renderer

import (
	"time"

	"github.com/charmbracelet/log"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
)

type lifecycleState int

const (
	stateCreated lifecycleState = iota
	statePreInitialized
	stateInitialized
	stateSwapChainReady
)

func (s lifecycleState) String() string {
	switch s {
	case statePreInitialized:
		return "pre-initialized"
	case stateInitialized:
		return "initialized"
	case stateSwapChainReady:
		return "swapchain ready"
	default:
		return "created"
	}
}

// Renderer drives an ordered set of drawables through the host's lifecycle
// callbacks. It owns the descriptor pool they share and the driver pipeline
// cache.
type Renderer struct {
	ctx       *vulkan.Context
	store     CacheStore
	logger    *log.Logger
	clock     *core.Clock
	drawables []Drawable

	state lifecycleState
	pool  vk.DescriptorPool
	frame int
}

var _ vulkan.WindowRenderer = (*Renderer)(nil)

// New returns a renderer for surface. The device services in Context are
// attached when the host calls PreInitResources. store may be nil; a nil
// logger falls back to the shared engine logger.
func New(surface vulkan.Surface, store CacheStore, logger *log.Logger) *Renderer {
	if logger == nil {
		logger = core.Logger()
	}
	return &Renderer{
		ctx:    &vulkan.Context{Surface: surface, Logger: logger},
		store:  store,
		logger: logger,
		clock:  core.NewClock(),
	}
}

// Context is shared with the drawables. Its device fields are valid between
// PreInitResources and ReleaseResources.
func (r *Renderer) Context() *vulkan.Context {
	return r.ctx
}

// SetClock replaces the animation clock, e.g. with a deterministic one.
func (r *Renderer) SetClock(clock *core.Clock) {
	r.clock = clock
}

// Register appends d to the draw order. Drawables can only be added before
// the first init sequence.
func (r *Renderer) Register(d Drawable) error {
	if r.state != stateCreated {
		return errors.Wrapf(core.ErrLifecycleOrder, "register drawable while %s", r.state)
	}
	r.drawables = append(r.drawables, d)
	return nil
}

func (r *Renderer) expect(op string, want lifecycleState) error {
	if r.state != want {
		return errors.Wrapf(core.ErrLifecycleOrder, "%s while %s", op, r.state)
	}
	return nil
}

func (r *Renderer) PreInitResources() error {
	if err := r.expect("PreInitResources", stateCreated); err != nil {
		return err
	}
	r.logger.Debug("pre-init resources", "drawables", len(r.drawables))
	r.ctx.Attach()

	for _, d := range r.drawables {
		if err := d.PreInitResources(); err != nil {
			return err
		}
	}
	r.state = statePreInitialized
	return nil
}

// InitResources creates the pipeline cache and every drawable's device level
// resources. On failure everything created so far is released again.
func (r *Renderer) InitResources() error {
	if err := r.expect("InitResources", statePreInitialized); err != nil {
		return err
	}
	r.logger.Debug("init resources")

	var cleanup vulkan.Guard
	defer cleanup.Run()

	cache, err := vulkan.NewPipelineCache(r.ctx, r.loadPipelineCache())
	if err != nil {
		return errors.Wrap(err, "pipeline cache")
	}
	r.ctx.PipelineCache = cache
	cleanup.Add(func() { vulkan.DestroyPipelineCache(r.ctx, &r.ctx.PipelineCache) })

	for _, d := range r.drawables {
		if err := d.InitResources(); err != nil {
			return err
		}
		cleanup.Add(d.ReleaseResources)
	}

	cleanup.Dismiss()
	r.clock.Start()
	r.state = stateInitialized
	return nil
}

func (r *Renderer) loadPipelineCache() []byte {
	if r.store == nil {
		return nil
	}
	data, err := r.store.LoadPipelineCache()
	if err != nil {
		r.logger.Debug("discarding stored pipeline cache", "err", err)
		return nil
	}
	if len(data) == 0 {
		r.logger.Debug("pipeline cache miss")
	}
	return data
}

func (r *Renderer) savePipelineCache() {
	if r.store == nil || r.ctx.PipelineCache == vk.NullPipelineCache {
		return
	}
	data, err := vulkan.PipelineCacheData(r.ctx, r.ctx.PipelineCache)
	if err != nil {
		r.logger.Warn("failed to read pipeline cache", "err", err)
		return
	}
	if err := r.store.SavePipelineCache(data); err != nil {
		r.logger.Warn("failed to store pipeline cache", "err", err)
		return
	}
	r.logger.Debug("pipeline cache stored", "bytes", len(data))
}

// InitSwapChainResources moves the depth image into attachment layout, sizes
// one descriptor pool for every drawable and builds their per image
// resources.
func (r *Renderer) InitSwapChainResources() error {
	if err := r.expect("InitSwapChainResources", stateInitialized); err != nil {
		return err
	}
	surface := r.ctx.Surface
	imageCount := surface.SwapChainImageCount()
	width, height := surface.SwapChainImageSize()
	r.logger.Debug("init swapchain resources", "images", imageCount, "width", width, "height", height)

	if err := vulkan.TransitionImageLayout(r.ctx, surface.DepthStencilImage(), surface.DepthStencilFormat(),
		vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal, 1); err != nil {
		return errors.Wrap(err, "depth image")
	}

	var cleanup vulkan.Guard
	defer cleanup.Run()

	budgets := make([]vulkan.DescriptorBudget, 0, len(r.drawables))
	for _, d := range r.drawables {
		budgets = append(budgets, d.DescriptorPoolSizes(uint32(imageCount)))
	}
	budget := vulkan.AggregateBudgets(budgets...)
	for t, n := range budget.Sizes {
		r.logger.Debug("descriptor pool size", "type", t, "count", n)
	}
	r.logger.Debug("descriptor pool", "maxSets", budget.MaxSets)

	pool, err := vulkan.NewDescriptorPool(r.ctx, budget)
	if err != nil {
		return errors.Wrap(err, "descriptor pool")
	}
	r.pool = pool
	cleanup.Add(func() { vulkan.DestroyDescriptorPool(r.ctx, &r.pool) })

	for _, d := range r.drawables {
		if err := d.InitSwapChainResources(r.pool); err != nil {
			return err
		}
		cleanup.Add(d.ReleaseSwapChainResources)
	}

	cleanup.Dismiss()
	r.state = stateSwapChainReady
	return nil
}

func (r *Renderer) ReleaseSwapChainResources() {
	if err := r.expect("ReleaseSwapChainResources", stateSwapChainReady); err != nil {
		r.logger.Warn("ignoring release", "err", err)
		return
	}
	r.logger.Debug("release swapchain resources")
	for i := len(r.drawables) - 1; i >= 0; i-- {
		r.drawables[i].ReleaseSwapChainResources()
	}
	vulkan.DestroyDescriptorPool(r.ctx, &r.pool)
	r.state = stateInitialized
}

// ReleaseResources stores the pipeline cache and releases every device level
// resource. A swapchain that is still initialized is released first.
func (r *Renderer) ReleaseResources() {
	if r.state == stateSwapChainReady {
		r.logger.Warn("releasing resources with live swapchain resources")
		r.ReleaseSwapChainResources()
	}
	if r.state == statePreInitialized {
		r.state = stateCreated
		return
	}
	if err := r.expect("ReleaseResources", stateInitialized); err != nil {
		r.logger.Warn("ignoring release", "err", err)
		return
	}
	r.logger.Debug("release resources")

	for i := len(r.drawables) - 1; i >= 0; i-- {
		r.drawables[i].ReleaseResources()
	}
	r.savePipelineCache()
	vulkan.DestroyPipelineCache(r.ctx, &r.ctx.PipelineCache)
	r.clock.Stop()

	if live := r.ctx.Allocator.Live(); live > 0 {
		r.logger.Warn("allocations still live after release", "count", live)
	}
	r.state = stateCreated
}

// StartNextFrame updates every drawable's uniforms for the host's current
// image and records all of them into one render pass.
func (r *Renderer) StartNextFrame() error {
	if err := r.expect("StartNextFrame", stateSwapChainReady); err != nil {
		return err
	}
	surface := r.ctx.Surface
	r.frame = surface.CurrentSwapChainImageIndex()
	width, height := surface.SwapChainImageSize()

	r.clock.Update()
	elapsed := r.clock.Elapsed()
	for _, d := range r.drawables {
		if err := d.UpdateUniformBuffers(elapsed, width, height, r.frame); err != nil {
			return err
		}
	}

	cmd := surface.CurrentCommandBuffer()
	vulkan.BeginRenderPass(r.ctx)
	for _, d := range r.drawables {
		d.DrawCommands(cmd, r.frame)
	}
	vulkan.EndRenderPass(r.ctx)
	return nil
}

// Elapsed is the animation time of the last frame.
func (r *Renderer) Elapsed() time.Duration {
	return r.clock.Elapsed()
}

// LogicalDeviceLost asks the host to recreate the device. Resources were
// already released by the host's teardown.
func (r *Renderer) LogicalDeviceLost() bool {
	r.logger.Warn("logical device lost")
	return true
}

func (r *Renderer) PhysicalDeviceLost() bool {
	r.logger.Error("physical device lost")
	return false
}
