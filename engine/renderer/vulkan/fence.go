package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(device *VulkanDevice, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if err := checkResult(vk.CreateFence(device.LogicalDevice, &fenceCreateInfo, nil, &pFence), "vkCreateFence"); err != nil {
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) FenceDestroy(device *VulkanDevice) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(device.LogicalDevice, vf.Handle, nil)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

// FenceWait blocks until the fence is signaled or timeoutNs elapses. A lost
// device is reported as core.ErrDeviceLost.
func (vf *VulkanFence) FenceWait(device *VulkanDevice, timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
		return errors.Wrap(ResultError{Result: result}, "vkWaitForFences")
	case vk.ErrorDeviceLost:
		core.LogError("vk_fence_wait - VK_ERROR_DEVICE_LOST.")
		return errors.Wrap(core.ErrDeviceLost, "vkWaitForFences")
	default:
		core.LogError("vk_fence_wait - %s", VulkanResultString(result, true))
		return errors.Wrap(ResultError{Result: result}, "vkWaitForFences")
	}
}

func (vf *VulkanFence) FenceReset(device *VulkanDevice) error {
	if vf.IsSignaled {
		if err := checkResult(vk.ResetFences(device.LogicalDevice, 1, []vk.Fence{vf.Handle}), "vkResetFences"); err != nil {
			return err
		}
		vf.IsSignaled = false
	}
	return nil
}
