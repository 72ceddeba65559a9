package renderer

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/assets/loaders"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/spaghettifunk/viking/engine/renderer/drawable"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spirv(n int) []byte {
	code := make([]byte, 4*(n+1))
	binary.LittleEndian.PutUint32(code, 0x07230203)
	return code
}

type testAssets struct{}

func (testAssets) Shader(name string) (*loaders.ShaderSource, error) {
	return &loaders.ShaderSource{Name: name, Code: spirv(4)}, nil
}

func (testAssets) Texture(name string) (*loaders.Texture, error) {
	return &loaders.Texture{Width: 8, Height: 8, Pixels: make([]byte, 8*8*4), SRGB: true}, nil
}

func (testAssets) Model(name string) (*loaders.Model, error) {
	return &loaders.Model{
		Vertices: make([]loaders.Vertex, 4),
		Indices:  []uint32{0, 1, 2, 2, 3, 0},
	}, nil
}

type memStore struct {
	data    []byte
	loadErr error
	saves   int
}

func (s *memStore) LoadPipelineCache() ([]byte, error) {
	return s.data, s.loadErr
}

func (s *memStore) SavePipelineCache(data []byte) error {
	s.data = append([]byte(nil), data...)
	s.saves++
	return nil
}

type fixture struct {
	dev      *vulkantest.Device
	surface  *vulkantest.Surface
	store    *memStore
	renderer *Renderer
	flat     *drawable.FlatColor
	textured *drawable.Textured
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLogger(t, core.NewLogger(io.Discard, log.DebugLevel, "renderer"))
}

func newFixtureWithLogger(t *testing.T, logger *log.Logger) *fixture {
	t.Helper()
	f := &fixture{
		dev:   vulkantest.NewDevice(),
		store: &memStore{},
		now:   time.Unix(1000, 0),
	}
	f.surface = vulkantest.NewSurface(f.dev)
	f.renderer = New(f.surface, f.store, logger)
	f.renderer.SetClock(core.NewClockWithSource(func() time.Time { return f.now }))

	f.flat = drawable.NewFlatColor(f.renderer.Context(), testAssets{}, drawable.FlatColorConfig{
		VertexShader:   "color.vert",
		FragmentShader: "color.frag",
	})
	f.textured = drawable.NewTextured(f.renderer.Context(), testAssets{}, drawable.TexturedConfig{
		VertexShader:   "tex.vert",
		FragmentShader: "tex.frag",
		Model:          "models/viking_room.obj",
		Texture:        "textures/viking_room.png",
	})
	require.NoError(t, f.renderer.Register(f.flat))
	require.NoError(t, f.renderer.Register(f.textured))

	t.Cleanup(func() {
		f.surface.Release()
		require.Empty(t, f.dev.Errors)
	})
	return f
}

func (f *fixture) initAll(t *testing.T) {
	t.Helper()
	require.NoError(t, f.renderer.PreInitResources())
	require.NoError(t, f.renderer.InitResources())
	require.NoError(t, f.renderer.InitSwapChainResources())
}

func (f *fixture) releaseAll() {
	f.renderer.ReleaseSwapChainResources()
	f.renderer.ReleaseResources()
}

func TestRendererDescriptorPoolAggregatesDrawables(t *testing.T) {
	f := newFixture(t)
	f.initAll(t)
	defer f.releaseAll()

	require.Len(t, f.dev.PoolInfos, 1)
	info := f.dev.PoolInfos[0]
	assert.Equal(t, uint32(6), info.MaxSets)
	assert.Equal(t, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 3},
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 9},
	}, info.PPoolSizes)
	assert.Equal(t, 1, f.dev.Live(vulkantest.KindDescriptorPool))
}

func TestRendererSwapChainCycles(t *testing.T) {
	f := newFixture(t)
	f.initAll(t)
	withThreeImages := f.dev.LiveTotal()

	for _, images := range []int{2, 4} {
		f.renderer.ReleaseSwapChainResources()
		assert.Equal(t, 0, f.dev.Live(vulkantest.KindPipeline))
		assert.Equal(t, 0, f.dev.Live(vulkantest.KindDescriptorPool))

		f.surface.ImageCount = images
		f.surface.Width, f.surface.Height = 1024, 768
		require.NoError(t, f.renderer.InitSwapChainResources())

		assert.Equal(t, 2, f.dev.Live(vulkantest.KindPipeline))
		assert.Equal(t, 1, f.dev.Live(vulkantest.KindDescriptorPool))
		// Three uniform buffers per image, each with its own memory.
		perImage := 3 * 2
		assert.Equal(t, withThreeImages+perImage*(images-3), f.dev.LiveTotal())
	}

	last := f.dev.PoolInfos[len(f.dev.PoolInfos)-1]
	assert.Equal(t, uint32(8), last.MaxSets)
	assert.Equal(t, uint32(4), last.PPoolSizes[0].DescriptorCount)
	assert.Equal(t, uint32(12), last.PPoolSizes[1].DescriptorCount)

	f.releaseAll()
}

func TestRendererReleaseReturnsDeviceToBaseline(t *testing.T) {
	f := newFixture(t)
	before := f.dev.LiveTotal()

	f.initAll(t)
	f.releaseAll()

	assert.Equal(t, before, f.dev.LiveTotal())
	assert.Equal(t, 0, f.renderer.Context().Allocator.Live())
	assert.Equal(t, stateCreated, f.renderer.state)
}

func TestRendererTransitionsDepthImage(t *testing.T) {
	f := newFixture(t)
	f.initAll(t)
	defer f.releaseAll()

	assert.Equal(t, []vk.ImageLayout{vk.ImageLayoutDepthStencilAttachmentOptimal}, f.dev.ImageLayouts(f.surface.DepthImage))
}

func TestRendererStartNextFrame(t *testing.T) {
	f := newFixture(t)
	f.initAll(t)
	defer f.releaseAll()

	f.surface.ImageIndex = 2
	f.now = f.now.Add(1500 * time.Millisecond)
	require.NoError(t, f.renderer.StartNextFrame())
	assert.Equal(t, 2, f.renderer.frame)
	assert.Equal(t, 1500*time.Millisecond, f.renderer.Elapsed())

	draw := []string{"CmdBindPipeline", "CmdBindVertexBuffers", "CmdBindDescriptorSets", "CmdBindIndexBuffer", "CmdDrawIndexed"}
	want := []string{"CmdBeginRenderPass"}
	want = append(want, draw...)
	want = append(want, draw...)
	want = append(want, "CmdEndRenderPass")
	assert.Equal(t, want, f.dev.Recorded(f.surface.CurrentCommandBuffer()))
}

func TestRendererLifecycleOrder(t *testing.T) {
	f := newFixture(t)

	assert.True(t, errors.Is(f.renderer.InitResources(), core.ErrLifecycleOrder))
	assert.True(t, errors.Is(f.renderer.InitSwapChainResources(), core.ErrLifecycleOrder))
	assert.True(t, errors.Is(f.renderer.StartNextFrame(), core.ErrLifecycleOrder))

	require.NoError(t, f.renderer.PreInitResources())
	assert.True(t, errors.Is(f.renderer.Register(f.flat), core.ErrLifecycleOrder))
	assert.True(t, errors.Is(f.renderer.PreInitResources(), core.ErrLifecycleOrder))

	// Releasing out of order is ignored.
	f.renderer.ReleaseSwapChainResources()
	assert.Equal(t, statePreInitialized, f.renderer.state)

	f.renderer.ReleaseResources()
	assert.Equal(t, stateCreated, f.renderer.state)
	assert.Equal(t, 0, f.dev.Calls("CreatePipelineCache"))
}

func TestRendererReleaseResourcesReleasesSwapChainFirst(t *testing.T) {
	f := newFixture(t)
	before := f.dev.LiveTotal()
	f.initAll(t)

	f.renderer.ReleaseResources()
	assert.Equal(t, stateCreated, f.renderer.state)
	assert.Equal(t, before, f.dev.LiveTotal())
}

func TestRendererInitFailureUnwinds(t *testing.T) {
	f := newFixture(t)
	before := f.dev.LiveTotal()

	require.NoError(t, f.renderer.PreInitResources())
	f.dev.FailOn("CreateSampler", 1, vk.ErrorOutOfDeviceMemory)
	assert.Error(t, f.renderer.InitResources())
	assert.Equal(t, before, f.dev.LiveTotal())
	assert.Equal(t, statePreInitialized, f.renderer.state)

	// The host retries the whole sequence after a release.
	f.renderer.ReleaseResources()
	f.initAll(t)
	f.releaseAll()
	assert.Equal(t, before, f.dev.LiveTotal())
}

func TestRendererSwapChainFailureUnwinds(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.renderer.PreInitResources())
	require.NoError(t, f.renderer.InitResources())
	afterInit := f.dev.LiveTotal()

	// The textured pipeline is the second one created.
	f.dev.FailOn("CreateGraphicsPipelines", 2, vk.ErrorOutOfDeviceMemory)
	assert.Error(t, f.renderer.InitSwapChainResources())
	assert.Equal(t, afterInit, f.dev.LiveTotal())
	assert.Equal(t, stateInitialized, f.renderer.state)

	require.NoError(t, f.renderer.InitSwapChainResources())
	f.releaseAll()
}

func TestRendererPipelineCacheRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.initAll(t)
	f.releaseAll()

	require.Equal(t, 1, f.store.saves)
	assert.Equal(t, vulkantest.DefaultCacheData, f.store.data)

	// A second run seeds the cache with what the first one stored.
	f.store.data = []byte("warm cache")
	f.initAll(t)
	f.releaseAll()
	assert.Equal(t, []byte("warm cache"), f.store.data)
	assert.Equal(t, 2, f.store.saves)
}

func TestRendererPipelineCacheLoadErrorIsAMiss(t *testing.T) {
	f := newFixture(t)
	f.store.loadErr = errors.New("corrupt")
	f.initAll(t)
	f.releaseAll()
	assert.Equal(t, vulkantest.DefaultCacheData, f.store.data)
}

func TestRendererPipelineCacheLoadErrorIsQuiet(t *testing.T) {
	var out bytes.Buffer
	f := newFixtureWithLogger(t, core.NewLogger(&out, log.InfoLevel, "renderer"))
	f.store.loadErr = errors.New("corrupt")
	f.initAll(t)
	f.releaseAll()
	assert.NotContains(t, out.String(), "pipeline cache")
}

func TestRendererNilLoggerUsesEngineLogger(t *testing.T) {
	dev := vulkantest.NewDevice()
	surface := vulkantest.NewSurface(dev)
	defer surface.Release()

	r := New(surface, &memStore{loadErr: errors.New("corrupt")}, nil)
	assert.Same(t, core.Logger(), r.Context().Logger)
	require.NoError(t, r.Register(drawable.NewTextured(r.Context(), testAssets{}, drawable.TexturedConfig{
		VertexShader:   "tex.vert",
		FragmentShader: "tex.frag",
		Model:          "models/cube.obj",
		Texture:        "textures/checker.png",
	})))
	assert.NotPanics(t, func() {
		require.NoError(t, r.PreInitResources())
		require.NoError(t, r.InitResources())
		require.NoError(t, r.InitSwapChainResources())
		require.NoError(t, r.StartNextFrame())
		r.ReleaseSwapChainResources()
		r.ReleaseResources()
	})
	assert.Empty(t, dev.Errors)
}

func TestRendererWithoutStore(t *testing.T) {
	dev := vulkantest.NewDevice()
	surface := vulkantest.NewSurface(dev)
	defer surface.Release()

	r := New(surface, nil, core.NewLogger(io.Discard, log.InfoLevel, "renderer"))
	require.NoError(t, r.PreInitResources())
	require.NoError(t, r.InitResources())
	require.NoError(t, r.InitSwapChainResources())
	require.NoError(t, r.StartNextFrame())
	r.ReleaseSwapChainResources()
	r.ReleaseResources()
	assert.Empty(t, dev.Errors)
}

func TestRendererDeviceLoss(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.renderer.LogicalDeviceLost())
	assert.False(t, f.renderer.PhysicalDeviceLost())
}

var (
	_ Drawable = (*drawable.FlatColor)(nil)
	_ Drawable = (*drawable.Textured)(nil)
)
