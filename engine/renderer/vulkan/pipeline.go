package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
)

type FaceCullMode int

const (
	FaceCullModeBack FaceCullMode = iota
	FaceCullModeNone
	FaceCullModeFront
	FaceCullModeFrontAndBack
)

/**
 * @brief Holds a Vulkan pipeline and its layout. They are created and
 * destroyed together.
 */
type Pipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	Layout vk.PipelineLayout
}

type PipelineConfig struct {
	/** @brief The render pass the pipeline is used in (subpass 0). */
	RenderPass vk.RenderPass
	/** @brief The vertex buffer binding. */
	Binding vk.VertexInputBindingDescription
	/** @brief The vertex attributes read from the binding. */
	Attributes []vk.VertexInputAttributeDescription
	/** @brief The descriptor set layouts of the pipeline layout. */
	DescriptorSetLayouts []vk.DescriptorSetLayout
	/** @brief The vertex and fragment modules. */
	Stages ShaderStages
	/** @brief Size of the fixed viewport and scissor. */
	Width, Height uint32
	/** @brief Rasterization samples; must match the render pass. */
	Samples vk.SampleCountFlagBits
	/** @brief The face cull mode. */
	CullMode FaceCullMode
	/** @brief Indicates if this pipeline should use wireframe mode. */
	IsWireframe bool
	/** @brief Driver cache to compile against. May be vk.NullPipelineCache. */
	Cache vk.PipelineCache
}

func (m FaceCullMode) flags() vk.CullModeFlags {
	switch m {
	case FaceCullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case FaceCullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case FaceCullModeFrontAndBack:
		return vk.CullModeFlags(vk.CullModeFrontAndBack)
	default:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
}

// NewGraphicsPipeline builds a triangle list pipeline with a fixed viewport,
// depth testing and no blending. The layout is destroyed again if pipeline
// creation fails.
func NewGraphicsPipeline(ctx *Context, config PipelineConfig) (Pipeline, error) {
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(config.Width),
		Height:   float32(config.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: config.Width, Height: config.Height},
	}

	// Viewport state
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                config.CullMode.flags(),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}
	if config.IsWireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}

	samples := config.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	// Multisampling, shading at least a fifth of the samples.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.True,
		RasterizationSamples:  samples,
		MinSampleShading:      0.2,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
		StencilTestEnable:     vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	// Vertex input
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{config.Binding},
		VertexAttributeDescriptionCount: uint32(len(config.Attributes)),
		PVertexAttributeDescriptions:    config.Attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Pipeline layout
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.DescriptorSetLayouts)),
		PSetLayouts:    config.DescriptorSetLayouts,
	}

	var out Pipeline
	var g Guard
	defer g.Run()

	if err := ctx.Locks.SafeCall(PipelineManagement, func() error {
		return checkResult(ctx.Device.CreatePipelineLayout(&pipelineLayoutCreateInfo, &out.Layout), "vkCreatePipelineLayout")
	}); err != nil {
		return Pipeline{}, err
	}
	g.Add(func() { ctx.Device.DestroyPipelineLayout(out.Layout) })

	// Pipeline create
	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          2,
		PStages:             config.Stages.CreateInfos(),
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       nil,
		Layout:              out.Layout,
		RenderPass:          config.RenderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := ctx.Locks.SafeCall(PipelineManagement, func() error {
		return checkResult(ctx.Device.CreateGraphicsPipelines(config.Cache, []vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, pipelines), "vkCreateGraphicsPipelines")
	}); err != nil {
		return Pipeline{}, err
	}
	if pipelines[0] == vk.NullPipeline {
		return Pipeline{}, errors.New("vulkan pipeline handle is nil")
	}
	out.Handle = pipelines[0]

	g.Dismiss()
	ctx.Logger.Debug("graphics pipeline created", "width", config.Width, "height", config.Height, "samples", samples)
	return out, nil
}

// Destroy releases the pipeline and its layout. Safe to call on an empty
// Pipeline.
func (p *Pipeline) Destroy(ctx *Context) {
	ctx.Locks.SafeCall(PipelineManagement, func() error {
		if p.Handle != vk.NullPipeline {
			ctx.Device.DestroyPipeline(p.Handle)
			p.Handle = vk.NullPipeline
		}
		if p.Layout != vk.NullPipelineLayout {
			ctx.Device.DestroyPipelineLayout(p.Layout)
			p.Layout = vk.NullPipelineLayout
		}
		return nil
	})
}

func (p Pipeline) Bind(ctx *Context, cmd vk.CommandBuffer) {
	ctx.Device.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, p.Handle)
}
