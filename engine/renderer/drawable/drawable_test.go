package drawable

import (
	"testing"
	"time"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var drawCommands = []string{
	"CmdBindPipeline",
	"CmdBindVertexBuffers",
	"CmdBindDescriptorSets",
	"CmdBindIndexBuffer",
	"CmdDrawIndexed",
}

type lifecycle interface {
	PreInitResources() error
	InitResources() error
	DescriptorPoolSizes(imageCount uint32) vulkan.DescriptorBudget
	InitSwapChainResources(pool vk.DescriptorPool) error
	UpdateUniformBuffers(elapsed time.Duration, width, height uint32, frame int) error
	DrawCommands(cmd vk.CommandBuffer, frame int)
	ReleaseSwapChainResources()
	ReleaseResources()
}

// runLifecycle drives d through one full init, frame and release sequence
// and checks nothing is left on the device afterwards.
func runLifecycle(t *testing.T, ctx *vulkan.Context, dev *vulkantest.Device, surface *vulkantest.Surface, d lifecycle) {
	t.Helper()
	before := dev.LiveTotal()

	require.NoError(t, d.PreInitResources())
	require.NoError(t, d.InitResources())

	budget := d.DescriptorPoolSizes(uint32(surface.ImageCount))
	pool, err := vulkan.NewDescriptorPool(ctx, budget)
	require.NoError(t, err)
	require.NoError(t, d.InitSwapChainResources(pool))
	assert.Equal(t, 1, dev.Live(vulkantest.KindPipeline))

	surface.ImageIndex = 1
	require.NoError(t, d.UpdateUniformBuffers(time.Second, 800, 600, surface.ImageIndex))
	cmd := surface.CurrentCommandBuffer()
	d.DrawCommands(cmd, surface.ImageIndex)
	assert.Equal(t, drawCommands, dev.Recorded(cmd))

	assert.Error(t, d.UpdateUniformBuffers(time.Second, 800, 600, surface.ImageCount))

	d.ReleaseSwapChainResources()
	vulkan.DestroyDescriptorPool(ctx, &pool)
	assert.Equal(t, 0, dev.Live(vulkantest.KindPipeline))

	d.ReleaseResources()
	assert.Equal(t, before, dev.LiveTotal())
	assert.Equal(t, 0, ctx.Allocator.Live())
}

func TestFlatColorLifecycle(t *testing.T) {
	ctx, dev, surface := newTestContext(t)
	defer surface.Release()

	fc := NewFlatColor(ctx, newMemAssets(), testFlatColorConfig)
	runLifecycle(t, ctx, dev, surface, fc)

	require.Len(t, dev.Writes, 3)
	for _, w := range dev.Writes {
		assert.Equal(t, vk.DescriptorTypeUniformBuffer, w.DescriptorType)
	}
}

func TestFlatColorBudget(t *testing.T) {
	budget := (&FlatColor{}).DescriptorPoolSizes(3)
	assert.Equal(t, map[vk.DescriptorType]uint32{vk.DescriptorTypeUniformBuffer: 3}, budget.Sizes)
	assert.Equal(t, uint32(3), budget.MaxSets)
}

func TestFlatColorUniformContents(t *testing.T) {
	ctx, dev, surface := newTestContext(t)
	defer surface.Release()

	fc := NewFlatColor(ctx, newMemAssets(), testFlatColorConfig)
	require.NoError(t, fc.PreInitResources())
	require.NoError(t, fc.InitResources())
	defer fc.ReleaseResources()

	pool, err := vulkan.NewDescriptorPool(ctx, fc.DescriptorPoolSizes(3))
	require.NoError(t, err)
	defer vulkan.DestroyDescriptorPool(ctx, &pool)
	require.NoError(t, fc.InitSwapChainResources(pool))
	defer fc.ReleaseSwapChainResources()

	require.Len(t, fc.uniforms, 3)
	require.NoError(t, fc.UpdateUniformBuffers(2*time.Second, 800, 600, 2))

	want := vulkan.Bytes([]ColorUniforms{ComputeColorUniforms(2*time.Second, 800, 600)})
	assert.Equal(t, want, dev.BufferContents(fc.uniforms[2].Handle))
	assert.Equal(t, vulkantest.HostVisibleMemoryType, dev.MemoryTypeOf(fc.uniforms[2].Memory))
}

func TestFlatColorMissingShader(t *testing.T) {
	ctx, dev, surface := newTestContext(t)
	defer surface.Release()
	before := dev.LiveTotal()

	fc := NewFlatColor(ctx, newMemAssets(), FlatColorConfig{VertexShader: "color.vert", FragmentShader: "nope.frag"})
	require.NoError(t, fc.PreInitResources())
	err := fc.InitResources()
	assert.ErrorIs(t, err, core.ErrAssetNotFound)
	assert.Equal(t, before, dev.LiveTotal())
}

func TestTexturedLifecycle(t *testing.T) {
	ctx, dev, surface := newTestContext(t)
	defer surface.Release()

	tx := NewTextured(ctx, newMemAssets(), testTexturedConfig)
	runLifecycle(t, ctx, dev, surface, tx)

	// Three sets, each with two uniform buffers and one sampler.
	require.Len(t, dev.Writes, 9)
	samplers := 0
	for _, w := range dev.Writes {
		if w.DescriptorType == vk.DescriptorTypeCombinedImageSampler {
			samplers++
			assert.Equal(t, uint32(1), w.DstBinding)
		}
	}
	assert.Equal(t, 3, samplers)
}

func TestTexturedBudget(t *testing.T) {
	budget := (&Textured{}).DescriptorPoolSizes(3)
	assert.Equal(t, map[vk.DescriptorType]uint32{
		vk.DescriptorTypeUniformBuffer:        6,
		vk.DescriptorTypeCombinedImageSampler: 3,
	}, budget.Sizes)
	assert.Equal(t, uint32(3), budget.MaxSets)
}

func TestTexturedUploadsMipmappedTexture(t *testing.T) {
	ctx, dev, surface := newTestContext(t)
	defer surface.Release()

	tx := NewTextured(ctx, newMemAssets(), testTexturedConfig)
	require.NoError(t, tx.PreInitResources())
	require.NoError(t, tx.InitResources())
	defer tx.ReleaseResources()

	assert.Equal(t, uint32(3), tx.image.MipLevels)
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, tx.config.TextureFormat)
	assert.Equal(t, vk.FormatR8g8b8a8Srgb, dev.ImageFormat(tx.image.Handle))
	for _, layout := range dev.ImageLayouts(tx.image.Handle) {
		assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, layout)
	}
	assert.Equal(t, 1, dev.Live(vulkantest.KindSampler))
	assert.Equal(t, 1, dev.Live(vulkantest.KindImageView))
}

func TestTexturedLinearTextureIsNotDecodedAsSRGB(t *testing.T) {
	ctx, dev, surface := newTestContext(t)
	defer surface.Release()

	assets := newMemAssets()
	assets.textures["textures/checker.png"].SRGB = false
	tx := NewTextured(ctx, assets, testTexturedConfig)
	require.NoError(t, tx.PreInitResources())
	require.NoError(t, tx.InitResources())
	defer tx.ReleaseResources()

	assert.Equal(t, vk.FormatR8g8b8a8Unorm, tx.image.Format)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, dev.ImageFormat(tx.image.Handle))
}

func TestTexturedInitFailureUnwinds(t *testing.T) {
	ctx, dev, surface := newTestContext(t)
	defer surface.Release()
	before := dev.LiveTotal()

	dev.FailOn("CreateSampler", 1, vk.ErrorOutOfDeviceMemory)
	tx := NewTextured(ctx, newMemAssets(), testTexturedConfig)
	require.NoError(t, tx.PreInitResources())
	assert.Error(t, tx.InitResources())
	assert.Equal(t, before, dev.LiveTotal())
	assert.Equal(t, 0, ctx.Allocator.Live())
}

func TestTexturedSwapChainFailureUnwinds(t *testing.T) {
	ctx, dev, surface := newTestContext(t)
	defer surface.Release()

	tx := NewTextured(ctx, newMemAssets(), testTexturedConfig)
	require.NoError(t, tx.PreInitResources())
	require.NoError(t, tx.InitResources())
	defer tx.ReleaseResources()
	afterInit := dev.LiveTotal()

	pool, err := vulkan.NewDescriptorPool(ctx, tx.DescriptorPoolSizes(3))
	require.NoError(t, err)
	defer vulkan.DestroyDescriptorPool(ctx, &pool)

	dev.FailOn("CreateGraphicsPipelines", 1, vk.ErrorOutOfDeviceMemory)
	assert.Error(t, tx.InitSwapChainResources(pool))
	assert.Equal(t, afterInit+1, dev.LiveTotal(), "only the descriptor pool remains")
	assert.Empty(t, tx.vertUniforms)
	assert.Empty(t, tx.fragUniforms)
}

func TestTexturedMissingModel(t *testing.T) {
	ctx, _, surface := newTestContext(t)
	defer surface.Release()

	config := testTexturedConfig
	config.Model = "models/missing.obj"
	tx := NewTextured(ctx, newMemAssets(), config)
	assert.ErrorIs(t, tx.PreInitResources(), core.ErrAssetNotFound)
}
