package vulkan_test

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateBudgets(t *testing.T) {
	flat := vulkan.DescriptorBudget{
		Sizes:   map[vk.DescriptorType]uint32{vk.DescriptorTypeUniformBuffer: 3},
		MaxSets: 3,
	}
	textured := vulkan.DescriptorBudget{
		Sizes: map[vk.DescriptorType]uint32{
			vk.DescriptorTypeUniformBuffer:        6,
			vk.DescriptorTypeCombinedImageSampler: 3,
		},
		MaxSets: 3,
	}

	total := vulkan.AggregateBudgets(flat, textured)
	assert.Equal(t, uint32(6), total.MaxSets)
	assert.Equal(t, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 3},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 9},
	}, total.PoolSizes())
}

func TestPoolSizesSkipsZeroCounts(t *testing.T) {
	budget := vulkan.DescriptorBudget{
		Sizes: map[vk.DescriptorType]uint32{
			vk.DescriptorTypeUniformBuffer:        0,
			vk.DescriptorTypeCombinedImageSampler: 2,
		},
		MaxSets: 2,
	}
	assert.Equal(t, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 2},
	}, budget.PoolSizes())

	assert.Empty(t, vulkan.AggregateBudgets().PoolSizes())
}

func TestAllocateDescriptorSetsWithinBudget(t *testing.T) {
	ctx, dev := newTestContext(t)

	layout, err := vulkan.NewDescriptorSetLayout(ctx, []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}})
	require.NoError(t, err)

	pool, err := vulkan.NewDescriptorPool(ctx, vulkan.DescriptorBudget{
		Sizes:   map[vk.DescriptorType]uint32{vk.DescriptorTypeUniformBuffer: 3},
		MaxSets: 3,
	})
	require.NoError(t, err)
	require.Len(t, dev.PoolInfos, 1)
	assert.Equal(t, uint32(3), dev.PoolInfos[0].MaxSets)

	sets, err := vulkan.AllocateDescriptorSets(ctx, pool, layout, 3)
	require.NoError(t, err)
	assert.Len(t, sets, 3)

	_, err = vulkan.AllocateDescriptorSets(ctx, pool, layout, 1)
	var resErr vulkan.ResultError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, vk.ErrorOutOfPoolMemory, resErr.Result)

	vulkan.DestroyDescriptorPool(ctx, &pool)
	vulkan.DestroyDescriptorPool(ctx, &pool)
	assert.Equal(t, vk.NullDescriptorPool, pool)
	assert.Equal(t, 0, dev.Live(vulkantest.KindDescriptorPool))
	dev.DestroyDescriptorSetLayout(layout)
}

func TestDescriptorWrites(t *testing.T) {
	ctx, dev := newTestContext(t)

	buf, err := ctx.Allocator.CreateBuffer(192, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), vulkan.MemoryPerFrameHostMapped)
	require.NoError(t, err)
	defer ctx.Allocator.DestroyBuffer(&buf)

	set := vk.DescriptorSet(nil)
	write := vulkan.UniformBufferWrite(set, 0, buf)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, write.DescriptorType)
	require.Len(t, write.PBufferInfo, 1)
	assert.Equal(t, vk.DeviceSize(192), write.PBufferInfo[0].Range)

	sampled := vulkan.ImageSamplerWrite(set, 1, vk.NullImageView, vk.NullSampler)
	assert.Equal(t, uint32(1), sampled.DstBinding)
	require.Len(t, sampled.PImageInfo, 1)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, sampled.PImageInfo[0].ImageLayout)

	dev.UpdateDescriptorSets([]vk.WriteDescriptorSet{write, sampled})
	assert.Len(t, dev.Writes, 2)
}
