package vulkan

import (
	vk "github.com/goki/vulkan"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

/**
 * @brief The descriptors a drawable needs for a given swapchain image count.
 */
type DescriptorBudget struct {
	/** @brief Required descriptor count per type. */
	Sizes map[vk.DescriptorType]uint32
	/** @brief Number of descriptor sets the drawable allocates. */
	MaxSets uint32
}

// AggregateBudgets sums the per type counts and the set counts of every
// budget into one.
func AggregateBudgets(budgets ...DescriptorBudget) DescriptorBudget {
	total := DescriptorBudget{Sizes: make(map[vk.DescriptorType]uint32)}
	for _, b := range budgets {
		for t, n := range b.Sizes {
			total.Sizes[t] += n
		}
		total.MaxSets += b.MaxSets
	}
	return total
}

// PoolSizes flattens the budget into pool sizes ordered by descriptor type.
// Types with a zero count are skipped.
func (b DescriptorBudget) PoolSizes() []vk.DescriptorPoolSize {
	types := sortedKeys(b.Sizes)

	sizes := make([]vk.DescriptorPoolSize, 0, len(types))
	for _, t := range types {
		if b.Sizes[t] == 0 {
			continue
		}
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            t,
			DescriptorCount: b.Sizes[t],
		})
	}
	return sizes
}

func sortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// NewDescriptorPool creates a pool sized for budget. Sets allocated from it
// are never freed individually; the whole pool is destroyed instead.
func NewDescriptorPool(ctx *Context, budget DescriptorBudget) (vk.DescriptorPool, error) {
	sizes := budget.PoolSizes()
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
		MaxSets:       budget.MaxSets,
	}
	var pool vk.DescriptorPool
	if err := checkResult(ctx.Device.CreateDescriptorPool(&poolInfo, &pool), "vkCreateDescriptorPool"); err != nil {
		return vk.NullDescriptorPool, err
	}
	return pool, nil
}

func DestroyDescriptorPool(ctx *Context, pool *vk.DescriptorPool) {
	if *pool == vk.NullDescriptorPool {
		return
	}
	ctx.Device.DestroyDescriptorPool(*pool)
	*pool = vk.NullDescriptorPool
}

func NewDescriptorSetLayout(ctx *Context, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := checkResult(ctx.Device.CreateDescriptorSetLayout(&layoutInfo, &layout), "vkCreateDescriptorSetLayout"); err != nil {
		return vk.NullDescriptorSetLayout, err
	}
	return layout, nil
}

// AllocateDescriptorSets allocates count sets with the same layout from pool.
func AllocateDescriptorSets(ctx *Context, pool vk.DescriptorPool, layout vk.DescriptorSetLayout, count int) ([]vk.DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, count)
	if err := ctx.Locks.SafeCall(DescriptorManagement, func() error {
		return checkResult(ctx.Device.AllocateDescriptorSets(&allocInfo, sets), "vkAllocateDescriptorSets")
	}); err != nil {
		return nil, err
	}
	return sets, nil
}

// UniformBufferWrite describes a whole buffer bound at binding of set.
func UniformBufferWrite(set vk.DescriptorSet, binding uint32, buf Buffer) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf.Handle,
			Offset: 0,
			Range:  buf.Size,
		}},
	}
}

// ImageSamplerWrite describes a combined image sampler bound at binding of set.
func ImageSamplerWrite(set vk.DescriptorSet, binding uint32, view vk.ImageView, sampler vk.Sampler) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		DescriptorCount: 1,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   view,
			Sampler:     sampler,
		}},
	}
}
