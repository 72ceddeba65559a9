package vulkan

import (
	"encoding/binary"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
)

const spirvMagic uint32 = 0x07230203

/**
 * @brief The vertex and fragment modules a graphics pipeline is built from.
 */
type ShaderStages struct {
	Vertex   vk.ShaderModule
	Fragment vk.ShaderModule
}

// CreateInfos returns the stage descriptions for pipeline creation. Both
// stages use "main" as their entry point.
func (s ShaderStages) CreateInfos() []vk.PipelineShaderStageCreateInfo {
	return []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: s.Vertex,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: s.Fragment,
			PName:  VulkanSafeString("main"),
		},
	}
}

func (s *ShaderStages) Destroy(ctx *Context) {
	if s.Vertex != vk.NullShaderModule {
		ctx.Device.DestroyShaderModule(s.Vertex)
		s.Vertex = vk.NullShaderModule
	}
	if s.Fragment != vk.NullShaderModule {
		ctx.Device.DestroyShaderModule(s.Fragment)
		s.Fragment = vk.NullShaderModule
	}
}

// SPIRVWords checks code is a little endian SPIR-V module and returns it as
// 32 bit words.
func SPIRVWords(code []byte) ([]uint32, error) {
	if len(code) < 4 || len(code)%4 != 0 {
		return nil, errors.Wrapf(core.ErrInvalidShaderBytecode, "size %d is not a positive multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, errors.Wrapf(core.ErrInvalidShaderBytecode, "bad magic %#08x", words[0])
	}
	return words, nil
}

// NewShaderModule creates a shader module from precompiled SPIR-V bytes.
func NewShaderModule(ctx *Context, name string, code []byte) (vk.ShaderModule, error) {
	words, err := SPIRVWords(code)
	if err != nil {
		return vk.NullShaderModule, errors.Wrapf(err, "shader %q", name)
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    words,
	}
	var module vk.ShaderModule
	if err := checkResult(ctx.Device.CreateShaderModule(&createInfo, &module), "vkCreateShaderModule"); err != nil {
		return vk.NullShaderModule, errors.Wrapf(err, "shader %q", name)
	}
	return module, nil
}

// NewShaderStages builds the vertex and fragment modules. If the fragment
// module fails the vertex module is destroyed before returning.
func NewShaderStages(ctx *Context, vertName string, vert []byte, fragName string, frag []byte) (ShaderStages, error) {
	var g Guard
	defer g.Run()

	vertex, err := NewShaderModule(ctx, vertName, vert)
	if err != nil {
		return ShaderStages{}, err
	}
	g.Add(func() { ctx.Device.DestroyShaderModule(vertex) })

	fragment, err := NewShaderModule(ctx, fragName, frag)
	if err != nil {
		return ShaderStages{}, err
	}

	g.Dismiss()
	return ShaderStages{Vertex: vertex, Fragment: fragment}, nil
}
