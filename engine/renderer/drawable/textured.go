package drawable

import (
	"time"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/assets/loaders"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
)

type TexturedConfig struct {
	VertexShader   string
	FragmentShader string
	Model          string
	Texture        string
	/** @brief Format of sRGB textures. Linear textures use its UNORM counterpart. Defaults to R8g8b8a8Srgb. */
	TextureFormat vk.Format
}

// Textured draws a lit, textured OBJ mesh. Binding 0 is the vertex stage
// transform block, binding 1 the texture and binding 2 the fragment stage
// light block.
type Textured struct {
	ctx    *vulkan.Context
	assets Assets
	config TexturedConfig

	vertices []TexVertex
	indices  []uint32
	texture  *loaders.Texture

	vertexBuffer vulkan.Buffer
	indexBuffer  vulkan.Buffer
	stages       vulkan.ShaderStages
	setLayout    vk.DescriptorSetLayout
	image        vulkan.Image
	imageView    vk.ImageView
	sampler      vk.Sampler

	vertUniforms   []vulkan.Buffer
	fragUniforms   []vulkan.Buffer
	descriptorSets []vk.DescriptorSet
	pipeline       vulkan.Pipeline
}

func NewTextured(ctx *vulkan.Context, assets Assets, config TexturedConfig) *Textured {
	if config.TextureFormat == vk.FormatUndefined {
		config.TextureFormat = vk.FormatR8g8b8a8Srgb
	}
	return &Textured{
		ctx:    ctx,
		assets: assets,
		config: config,
	}
}

// PreInitResources reads the mesh and the texture from disk. Nothing touches
// the device yet.
func (tx *Textured) PreInitResources() error {
	model, err := tx.assets.Model(tx.config.Model)
	if err != nil {
		return errors.Wrapf(err, "load model %s", tx.config.Model)
	}
	tx.vertices = texVertices(model)
	tx.indices = model.Indices
	tx.ctx.Logger.Debug("model loaded", "name", tx.config.Model, "vertices", len(tx.vertices), "indices", len(tx.indices))

	if tx.texture, err = tx.assets.Texture(tx.config.Texture); err != nil {
		return errors.Wrapf(err, "load texture %s", tx.config.Texture)
	}
	return nil
}

func (tx *Textured) InitResources() error {
	var cleanup vulkan.Guard
	defer cleanup.Run()

	var err error
	if tx.vertexBuffer, err = vulkan.UploadBuffer(tx.ctx, tx.vertices, vulkan.RoleVertex); err != nil {
		return errors.Wrap(err, "model vertices")
	}
	cleanup.Add(func() { tx.ctx.Allocator.DestroyBuffer(&tx.vertexBuffer) })

	if tx.indexBuffer, err = vulkan.UploadBuffer(tx.ctx, tx.indices, vulkan.RoleIndex); err != nil {
		return errors.Wrap(err, "model indices")
	}
	cleanup.Add(func() { tx.ctx.Allocator.DestroyBuffer(&tx.indexBuffer) })

	if tx.stages, err = loadStages(tx.ctx, tx.assets, tx.config.VertexShader, tx.config.FragmentShader); err != nil {
		return err
	}
	cleanup.Add(func() { tx.stages.Destroy(tx.ctx) })

	if tx.setLayout, err = vulkan.NewDescriptorSetLayout(tx.ctx, []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         2,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}); err != nil {
		return err
	}
	cleanup.Add(func() { destroySetLayout(tx.ctx, &tx.setLayout) })

	if tx.image, err = vulkan.UploadImage(tx.ctx, vulkan.TextureSource{
		Width:  tx.texture.Width,
		Height: tx.texture.Height,
		Pixels: tx.texture.Pixels,
		SRGB:   tx.texture.SRGB,
	}, tx.config.TextureFormat); err != nil {
		return errors.Wrapf(err, "texture %s", tx.config.Texture)
	}
	cleanup.Add(func() { tx.ctx.Allocator.DestroyImage(&tx.image) })

	if tx.imageView, err = vulkan.CreateImageView(tx.ctx, tx.image.Handle, tx.image.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit), tx.image.MipLevels); err != nil {
		return err
	}
	cleanup.Add(func() { tx.destroyImageView() })

	if tx.sampler, err = vulkan.NewTextureSampler(tx.ctx, tx.image.MipLevels); err != nil {
		return err
	}

	cleanup.Dismiss()
	return nil
}

func (tx *Textured) DescriptorPoolSizes(imageCount uint32) vulkan.DescriptorBudget {
	return vulkan.DescriptorBudget{
		Sizes: map[vk.DescriptorType]uint32{
			vk.DescriptorTypeUniformBuffer:        2 * imageCount,
			vk.DescriptorTypeCombinedImageSampler: imageCount,
		},
		MaxSets: imageCount,
	}
}

func (tx *Textured) InitSwapChainResources(pool vk.DescriptorPool) error {
	var cleanup vulkan.Guard
	defer cleanup.Run()

	count := tx.ctx.Surface.SwapChainImageCount()
	var err error
	if tx.vertUniforms, err = createUniformBuffers(tx.ctx, count, vk.DeviceSize(unsafe.Sizeof(TexVertUniforms{}))); err != nil {
		return err
	}
	cleanup.Add(func() { destroyUniformBuffers(tx.ctx, &tx.vertUniforms) })

	if tx.fragUniforms, err = createUniformBuffers(tx.ctx, count, vk.DeviceSize(unsafe.Sizeof(TexFragUniforms{}))); err != nil {
		return err
	}
	cleanup.Add(func() { destroyUniformBuffers(tx.ctx, &tx.fragUniforms) })

	if tx.descriptorSets, err = vulkan.AllocateDescriptorSets(tx.ctx, pool, tx.setLayout, count); err != nil {
		return errors.Wrap(err, "model descriptor sets")
	}
	writes := make([]vk.WriteDescriptorSet, 0, 3*count)
	for i, set := range tx.descriptorSets {
		writes = append(writes,
			vulkan.UniformBufferWrite(set, 0, tx.vertUniforms[i]),
			vulkan.ImageSamplerWrite(set, 1, tx.imageView, tx.sampler),
			vulkan.UniformBufferWrite(set, 2, tx.fragUniforms[i]),
		)
	}
	tx.ctx.Device.UpdateDescriptorSets(writes)

	width, height := tx.ctx.Surface.SwapChainImageSize()
	if tx.pipeline, err = vulkan.NewGraphicsPipeline(tx.ctx, vulkan.PipelineConfig{
		RenderPass:           tx.ctx.Surface.DefaultRenderPass(),
		Binding:              TexVertex{}.Binding(),
		Attributes:           TexVertex{}.Attributes(),
		DescriptorSetLayouts: []vk.DescriptorSetLayout{tx.setLayout},
		Stages:               tx.stages,
		Width:                width,
		Height:               height,
		Samples:              tx.ctx.Surface.SampleCount(),
		CullMode:             vulkan.FaceCullModeBack,
		Cache:                tx.ctx.PipelineCache,
	}); err != nil {
		return errors.Wrap(err, "model pipeline")
	}

	cleanup.Dismiss()
	return nil
}

func (tx *Textured) UpdateUniformBuffers(elapsed time.Duration, width, height uint32, frame int) error {
	vert, frag := ComputeTexUniforms(elapsed, width, height)
	if err := writeUniform(tx.ctx, tx.vertUniforms, frame, vert); err != nil {
		return err
	}
	return writeUniform(tx.ctx, tx.fragUniforms, frame, frag)
}

func (tx *Textured) DrawCommands(cmd vk.CommandBuffer, frame int) {
	dev := tx.ctx.Device
	tx.pipeline.Bind(tx.ctx, cmd)
	dev.CmdBindVertexBuffers(cmd, 0, []vk.Buffer{tx.vertexBuffer.Handle}, []vk.DeviceSize{0})
	dev.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, tx.pipeline.Layout, 0, []vk.DescriptorSet{tx.descriptorSets[frame]}, nil)
	dev.CmdBindIndexBuffer(cmd, tx.indexBuffer.Handle, 0, vk.IndexTypeUint32)
	dev.CmdDrawIndexed(cmd, uint32(len(tx.indices)), 1, 0, 0, 0)
}

func (tx *Textured) ReleaseSwapChainResources() {
	tx.pipeline.Destroy(tx.ctx)
	destroyUniformBuffers(tx.ctx, &tx.fragUniforms)
	destroyUniformBuffers(tx.ctx, &tx.vertUniforms)
	tx.descriptorSets = nil
}

func (tx *Textured) ReleaseResources() {
	destroySetLayout(tx.ctx, &tx.setLayout)
	tx.stages.Destroy(tx.ctx)
	tx.ctx.Allocator.DestroyBuffer(&tx.indexBuffer)
	tx.ctx.Allocator.DestroyBuffer(&tx.vertexBuffer)
	if tx.sampler != vk.NullSampler {
		tx.ctx.Device.DestroySampler(tx.sampler)
		tx.sampler = vk.NullSampler
	}
	tx.destroyImageView()
	tx.ctx.Allocator.DestroyImage(&tx.image)
}

func (tx *Textured) destroyImageView() {
	if tx.imageView != vk.NullImageView {
		tx.ctx.Device.DestroyImageView(tx.imageView)
		tx.imageView = vk.NullImageView
	}
}
