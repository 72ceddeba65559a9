package vulkan_test

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipelineConfig(t *testing.T, ctx *vulkan.Context) vulkan.PipelineConfig {
	t.Helper()
	stages, err := vulkan.NewShaderStages(ctx, "test.vert", spirv(4), "test.frag", spirv(4))
	require.NoError(t, err)
	t.Cleanup(func() { stages.Destroy(ctx) })

	width, height := ctx.Surface.SwapChainImageSize()
	return vulkan.PipelineConfig{
		RenderPass: ctx.Surface.DefaultRenderPass(),
		Binding: vk.VertexInputBindingDescription{
			Binding:   0,
			Stride:    24,
			InputRate: vk.VertexInputRateVertex,
		},
		Attributes: []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		},
		Stages:   stages,
		Width:    width,
		Height:   height,
		Samples:  ctx.Surface.SampleCount(),
		CullMode: vulkan.FaceCullModeBack,
	}
}

func TestNewGraphicsPipeline(t *testing.T) {
	ctx, dev := newTestContext(t)
	config := testPipelineConfig(t, ctx)
	config.IsWireframe = true

	p, err := vulkan.NewGraphicsPipeline(ctx, config)
	require.NoError(t, err)
	assert.Equal(t, 1, dev.Live(vulkantest.KindPipeline))
	assert.Equal(t, 1, dev.Live(vulkantest.KindPipelineLayout))

	require.Len(t, dev.Pipelines, 1)
	info := dev.Pipelines[0]
	assert.Equal(t, vk.PolygonModeLine, info.PRasterizationState.PolygonMode)
	assert.Equal(t, vk.SampleCount4Bit, info.PMultisampleState.RasterizationSamples)
	assert.Equal(t, vk.Bool32(vk.True), info.PMultisampleState.SampleShadingEnable)
	assert.Equal(t, float32(800), info.PViewportState.PViewports[0].Width)
	assert.Equal(t, uint32(2), info.PVertexInputState.VertexAttributeDescriptionCount)

	p.Destroy(ctx)
	p.Destroy(ctx)
	assert.Equal(t, 0, dev.Live(vulkantest.KindPipeline))
	assert.Equal(t, 0, dev.Live(vulkantest.KindPipelineLayout))
}

func TestNewGraphicsPipelineFailureReleasesLayout(t *testing.T) {
	ctx, dev := newTestContext(t)
	config := testPipelineConfig(t, ctx)
	dev.FailOn("CreateGraphicsPipelines", 1, vk.ErrorOutOfDeviceMemory)

	p, err := vulkan.NewGraphicsPipeline(ctx, config)
	require.Error(t, err)
	assert.Equal(t, vulkan.Pipeline{}, p)
	assert.Equal(t, 0, dev.Live(vulkantest.KindPipelineLayout))
	assert.Equal(t, 0, dev.Live(vulkantest.KindPipeline))
}

func TestPipelineCacheRoundTrip(t *testing.T) {
	ctx, dev := newTestContext(t)

	cache, err := vulkan.NewPipelineCache(ctx, nil)
	require.NoError(t, err)
	data, err := vulkan.PipelineCacheData(ctx, cache)
	require.NoError(t, err)
	assert.Equal(t, vulkantest.DefaultCacheData, data)
	vulkan.DestroyPipelineCache(ctx, &cache)

	seeded, err := vulkan.NewPipelineCache(ctx, []byte("saved blob"))
	require.NoError(t, err)
	data, err = vulkan.PipelineCacheData(ctx, seeded)
	require.NoError(t, err)
	assert.Equal(t, []byte("saved blob"), data)
	vulkan.DestroyPipelineCache(ctx, &seeded)
	assert.Equal(t, 0, dev.Live(vulkantest.KindPipelineCache))
}

func TestPipelineCacheRejectedSeed(t *testing.T) {
	ctx, dev := newTestContext(t)
	dev.FailOn("CreatePipelineCache", 1, vk.ErrorInitializationFailed)

	cache, err := vulkan.NewPipelineCache(ctx, []byte("stale blob"))
	require.NoError(t, err)
	defer vulkan.DestroyPipelineCache(ctx, &cache)

	data, err := vulkan.PipelineCacheData(ctx, cache)
	require.NoError(t, err)
	assert.Equal(t, vulkantest.DefaultCacheData, data)
	assert.Equal(t, 2, dev.Calls("CreatePipelineCache"))
}
