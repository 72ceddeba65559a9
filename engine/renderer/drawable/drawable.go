// Package drawable holds the fixed set of pipelines the renderer draws each
// frame. Every type here follows the renderer's two phase lifecycle: device
// resources are created in InitResources and survive swapchain recreation,
// swapchain resources are rebuilt in every InitSwapChainResources.
package drawable

import (
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/assets/loaders"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
)

// ShaderProvider returns compiled SPIR-V by logical name, e.g. "tex.vert".
type ShaderProvider interface {
	Shader(name string) (*loaders.ShaderSource, error)
}

// Assets is everything the textured pipeline reads from disk.
type Assets interface {
	ShaderProvider
	Texture(name string) (*loaders.Texture, error)
	Model(name string) (*loaders.Model, error)
}

func loadStages(ctx *vulkan.Context, shaders ShaderProvider, vertName, fragName string) (vulkan.ShaderStages, error) {
	vert, err := shaders.Shader(vertName)
	if err != nil {
		return vulkan.ShaderStages{}, err
	}
	frag, err := shaders.Shader(fragName)
	if err != nil {
		return vulkan.ShaderStages{}, err
	}
	return vulkan.NewShaderStages(ctx, vert.Name, vert.Code, frag.Name, frag.Code)
}

// createUniformBuffers makes one host mapped buffer of size bytes per
// swapchain image. Nothing is left allocated on failure.
func createUniformBuffers(ctx *vulkan.Context, count int, size vk.DeviceSize) ([]vulkan.Buffer, error) {
	buffers := make([]vulkan.Buffer, 0, count)
	for i := 0; i < count; i++ {
		buf, err := ctx.Allocator.CreateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), vulkan.MemoryPerFrameHostMapped)
		if err != nil {
			destroyUniformBuffers(ctx, &buffers)
			return nil, errors.Wrapf(err, "uniform buffer %d", i)
		}
		buffers = append(buffers, buf)
	}
	return buffers, nil
}

func destroyUniformBuffers(ctx *vulkan.Context, buffers *[]vulkan.Buffer) {
	for i := range *buffers {
		ctx.Allocator.DestroyBuffer(&(*buffers)[i])
	}
	*buffers = nil
}

func writeUniform[T any](ctx *vulkan.Context, buffers []vulkan.Buffer, frame int, value T) error {
	if frame < 0 || frame >= len(buffers) {
		return errors.Errorf("frame %d outside of %d uniform buffers", frame, len(buffers))
	}
	return ctx.Allocator.WriteBuffer(buffers[frame], vulkan.Bytes([]T{value}))
}

func destroySetLayout(ctx *vulkan.Context, layout *vk.DescriptorSetLayout) {
	if *layout != vk.NullDescriptorSetLayout {
		ctx.Device.DestroyDescriptorSetLayout(*layout)
		*layout = vk.NullDescriptorSetLayout
	}
}
