package vulkan_test

import (
	"encoding/binary"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spirv returns a minimal module: the magic number followed by n zero words.
func spirv(n int) []byte {
	code := make([]byte, 4*(n+1))
	binary.LittleEndian.PutUint32(code, 0x07230203)
	return code
}

func TestSPIRVWords(t *testing.T) {
	words, err := vulkan.SPIRVWords(spirv(4))
	require.NoError(t, err)
	assert.Len(t, words, 5)
	assert.Equal(t, uint32(0x07230203), words[0])

	for name, code := range map[string][]byte{
		"empty":       nil,
		"unaligned":   spirv(2)[:11],
		"bad magic":   {1, 2, 3, 4, 5, 6, 7, 8},
		"glsl source": []byte("#version 450\nvoid main() {}\n\x00\x00\x00"),
	} {
		_, err := vulkan.SPIRVWords(code)
		assert.True(t, errors.Is(err, core.ErrInvalidShaderBytecode), name)
	}
}

func TestNewShaderStages(t *testing.T) {
	ctx, dev := newTestContext(t)

	stages, err := vulkan.NewShaderStages(ctx, "flat.vert", spirv(8), "flat.frag", spirv(8))
	require.NoError(t, err)
	assert.Equal(t, 2, dev.Live(vulkantest.KindShaderModule))

	infos := stages.CreateInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, vk.ShaderStageVertexBit, infos[0].Stage)
	assert.Equal(t, vk.ShaderStageFragmentBit, infos[1].Stage)
	assert.Equal(t, "main\x00", infos[0].PName)

	stages.Destroy(ctx)
	stages.Destroy(ctx)
	assert.Equal(t, 0, dev.Live(vulkantest.KindShaderModule))
}

func TestNewShaderStagesReleasesVertexOnFragmentFailure(t *testing.T) {
	ctx, dev := newTestContext(t)

	_, err := vulkan.NewShaderStages(ctx, "flat.vert", spirv(8), "flat.frag", []byte{0, 1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flat.frag")
	assert.Equal(t, 1, dev.Calls("CreateShaderModule"))
	assert.Equal(t, 0, dev.Live(vulkantest.KindShaderModule))

	dev.FailOn("CreateShaderModule", 2, vk.ErrorOutOfHostMemory)
	_, err = vulkan.NewShaderStages(ctx, "flat.vert", spirv(8), "flat.frag", spirv(8))
	require.Error(t, err)
	assert.Equal(t, 0, dev.Live(vulkantest.KindShaderModule))
}
