package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type CommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State CommandBufferState

	pool vk.CommandPool
}

// NewCommandBuffer allocates a single command buffer from pool.
func NewCommandBuffer(ctx *Context, pool vk.CommandPool, isPrimary bool) (*CommandBuffer, error) {
	level := vk.CommandBufferLevelSecondary
	if isPrimary {
		level = vk.CommandBufferLevelPrimary
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              level,
	}

	handles := make([]vk.CommandBuffer, 1)
	if err := ctx.Locks.SafeCall(CommandPoolManagement, func() error {
		return checkResult(ctx.Device.AllocateCommandBuffers(&allocateInfo, handles), "vkAllocateCommandBuffers")
	}); err != nil {
		return nil, err
	}

	return &CommandBuffer{
		Handle: handles[0],
		State:  COMMAND_BUFFER_STATE_READY,
		pool:   pool,
	}, nil
}

func (cb *CommandBuffer) Free(ctx *Context) {
	if cb.Handle == nil {
		return
	}
	ctx.Locks.SafeCall(CommandPoolManagement, func() error {
		ctx.Device.FreeCommandBuffers(cb.pool, []vk.CommandBuffer{cb.Handle})
		return nil
	})
	cb.Handle = nil
	cb.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (cb *CommandBuffer) Begin(ctx *Context, isSingleUse, isRenderpassContinue, isSimultaneousUse bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if isRenderpassContinue {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageRenderPassContinueBit)
	}
	if isSimultaneousUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit)
	}

	if err := checkResult(ctx.Device.BeginCommandBuffer(cb.Handle, &beginInfo), "vkBeginCommandBuffer"); err != nil {
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (cb *CommandBuffer) End(ctx *Context) error {
	if err := checkResult(ctx.Device.EndCommandBuffer(cb.Handle), "vkEndCommandBuffer"); err != nil {
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (cb *CommandBuffer) UpdateSubmitted() {
	cb.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (cb *CommandBuffer) Reset(ctx *Context) error {
	if err := checkResult(ctx.Device.ResetCommandBuffer(cb.Handle), "vkResetCommandBuffer"); err != nil {
		return err
	}
	cb.State = COMMAND_BUFFER_STATE_READY
	return nil
}

// BeginSingleUse allocates a primary command buffer from the context's pool
// and begins recording with the one-time-submit flag.
func BeginSingleUse(ctx *Context) (*CommandBuffer, error) {
	cb, err := NewCommandBuffer(ctx, ctx.CommandPool, true)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(ctx, true, false, false); err != nil {
		cb.Free(ctx)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse ends recording, submits to the context's queue, waits for the
// queue to go idle and frees the command buffer. The buffer is freed on every
// path.
func (cb *CommandBuffer) EndSingleUse(ctx *Context) error {
	defer cb.Free(ctx)

	if err := cb.End(ctx); err != nil {
		return err
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}

	return ctx.Locks.SafeQueueCall(ctx.QueueFamilyIndex, func() error {
		if err := checkResult(ctx.Device.QueueSubmit(ctx.Queue, []vk.SubmitInfo{submitInfo}, vk.NullFence), "vkQueueSubmit"); err != nil {
			return err
		}
		cb.UpdateSubmitted()

		// Uploads only happen during init, so blocking here is fine.
		return errors.Wrap(checkResult(ctx.Device.QueueWaitIdle(ctx.Queue), "vkQueueWaitIdle"), "single use submit")
	})
}
