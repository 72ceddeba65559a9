package drawable

import (
	"time"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
)

var white = mgl32.Vec3{1, 1, 1}

var lightCubeVertices = []ColorVertex{
	{Pos: mgl32.Vec3{-0.5, -0.5, 0.5}, Color: white},
	{Pos: mgl32.Vec3{0.5, -0.5, 0.5}, Color: white},
	{Pos: mgl32.Vec3{0.5, 0.5, 0.5}, Color: white},
	{Pos: mgl32.Vec3{-0.5, 0.5, 0.5}, Color: white},
	{Pos: mgl32.Vec3{-0.5, -0.5, -0.5}, Color: white},
	{Pos: mgl32.Vec3{0.5, -0.5, -0.5}, Color: white},
	{Pos: mgl32.Vec3{0.5, 0.5, -0.5}, Color: white},
	{Pos: mgl32.Vec3{-0.5, 0.5, -0.5}, Color: white},
}

var lightCubeIndices = []uint16{
	0, 1, 2, 2, 3, 0,
	6, 5, 4, 4, 7, 6,
	4, 0, 3, 3, 7, 4,
	2, 1, 5, 5, 6, 2,
	7, 3, 2, 2, 6, 7,
	1, 0, 4, 4, 5, 1,
}

type FlatColorConfig struct {
	VertexShader   string
	FragmentShader string
}

// FlatColor draws the white light cube with a single vertex stage uniform
// block per swapchain image.
type FlatColor struct {
	ctx     *vulkan.Context
	shaders ShaderProvider
	config  FlatColorConfig

	vertices []ColorVertex
	indices  []uint16

	vertexBuffer vulkan.Buffer
	indexBuffer  vulkan.Buffer
	stages       vulkan.ShaderStages
	setLayout    vk.DescriptorSetLayout

	uniforms       []vulkan.Buffer
	descriptorSets []vk.DescriptorSet
	pipeline       vulkan.Pipeline
}

func NewFlatColor(ctx *vulkan.Context, shaders ShaderProvider, config FlatColorConfig) *FlatColor {
	return &FlatColor{
		ctx:     ctx,
		shaders: shaders,
		config:  config,
	}
}

func (fc *FlatColor) PreInitResources() error {
	fc.vertices = lightCubeVertices
	fc.indices = lightCubeIndices
	return nil
}

func (fc *FlatColor) InitResources() error {
	var cleanup vulkan.Guard
	defer cleanup.Run()

	var err error
	if fc.vertexBuffer, err = vulkan.UploadBuffer(fc.ctx, fc.vertices, vulkan.RoleVertex); err != nil {
		return errors.Wrap(err, "light cube vertices")
	}
	cleanup.Add(func() { fc.ctx.Allocator.DestroyBuffer(&fc.vertexBuffer) })

	if fc.indexBuffer, err = vulkan.UploadBuffer(fc.ctx, fc.indices, vulkan.RoleIndex); err != nil {
		return errors.Wrap(err, "light cube indices")
	}
	cleanup.Add(func() { fc.ctx.Allocator.DestroyBuffer(&fc.indexBuffer) })

	if fc.stages, err = loadStages(fc.ctx, fc.shaders, fc.config.VertexShader, fc.config.FragmentShader); err != nil {
		return err
	}
	cleanup.Add(func() { fc.stages.Destroy(fc.ctx) })

	if fc.setLayout, err = vulkan.NewDescriptorSetLayout(fc.ctx, []vk.DescriptorSetLayoutBinding{{
		Binding:         0,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	}}); err != nil {
		return err
	}

	cleanup.Dismiss()
	return nil
}

func (fc *FlatColor) DescriptorPoolSizes(imageCount uint32) vulkan.DescriptorBudget {
	return vulkan.DescriptorBudget{
		Sizes: map[vk.DescriptorType]uint32{
			vk.DescriptorTypeUniformBuffer: imageCount,
		},
		MaxSets: imageCount,
	}
}

func (fc *FlatColor) InitSwapChainResources(pool vk.DescriptorPool) error {
	var cleanup vulkan.Guard
	defer cleanup.Run()

	count := fc.ctx.Surface.SwapChainImageCount()
	var err error
	if fc.uniforms, err = createUniformBuffers(fc.ctx, count, vk.DeviceSize(unsafe.Sizeof(ColorUniforms{}))); err != nil {
		return err
	}
	cleanup.Add(func() { destroyUniformBuffers(fc.ctx, &fc.uniforms) })

	if fc.descriptorSets, err = vulkan.AllocateDescriptorSets(fc.ctx, pool, fc.setLayout, count); err != nil {
		return errors.Wrap(err, "light cube descriptor sets")
	}
	writes := make([]vk.WriteDescriptorSet, 0, count)
	for i, set := range fc.descriptorSets {
		writes = append(writes, vulkan.UniformBufferWrite(set, 0, fc.uniforms[i]))
	}
	fc.ctx.Device.UpdateDescriptorSets(writes)

	width, height := fc.ctx.Surface.SwapChainImageSize()
	if fc.pipeline, err = vulkan.NewGraphicsPipeline(fc.ctx, vulkan.PipelineConfig{
		RenderPass:           fc.ctx.Surface.DefaultRenderPass(),
		Binding:              ColorVertex{}.Binding(),
		Attributes:           ColorVertex{}.Attributes(),
		DescriptorSetLayouts: []vk.DescriptorSetLayout{fc.setLayout},
		Stages:               fc.stages,
		Width:                width,
		Height:               height,
		Samples:              fc.ctx.Surface.SampleCount(),
		CullMode:             vulkan.FaceCullModeBack,
		Cache:                fc.ctx.PipelineCache,
	}); err != nil {
		return errors.Wrap(err, "light cube pipeline")
	}

	cleanup.Dismiss()
	return nil
}

func (fc *FlatColor) UpdateUniformBuffers(elapsed time.Duration, width, height uint32, frame int) error {
	return writeUniform(fc.ctx, fc.uniforms, frame, ComputeColorUniforms(elapsed, width, height))
}

func (fc *FlatColor) DrawCommands(cmd vk.CommandBuffer, frame int) {
	dev := fc.ctx.Device
	fc.pipeline.Bind(fc.ctx, cmd)
	dev.CmdBindVertexBuffers(cmd, 0, []vk.Buffer{fc.vertexBuffer.Handle}, []vk.DeviceSize{0})
	dev.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, fc.pipeline.Layout, 0, []vk.DescriptorSet{fc.descriptorSets[frame]}, nil)
	dev.CmdBindIndexBuffer(cmd, fc.indexBuffer.Handle, 0, vk.IndexTypeUint16)
	dev.CmdDrawIndexed(cmd, uint32(len(fc.indices)), 1, 0, 0, 0)
}

// ReleaseSwapChainResources drops the pipeline and uniform buffers. The
// descriptor sets go away with the renderer's pool.
func (fc *FlatColor) ReleaseSwapChainResources() {
	fc.pipeline.Destroy(fc.ctx)
	destroyUniformBuffers(fc.ctx, &fc.uniforms)
	fc.descriptorSets = nil
}

func (fc *FlatColor) ReleaseResources() {
	destroySetLayout(fc.ctx, &fc.setLayout)
	fc.stages.Destroy(fc.ctx)
	fc.ctx.Allocator.DestroyBuffer(&fc.indexBuffer)
	fc.ctx.Allocator.DestroyBuffer(&fc.vertexBuffer)
}
