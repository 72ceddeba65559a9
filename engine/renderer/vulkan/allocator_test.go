package vulkan_test

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIntentFlags(t *testing.T) {
	hostMapped := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) | vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	assert.Equal(t, hostMapped, vulkan.MemoryTransferSource.PropertyFlags())
	assert.Equal(t, hostMapped, vulkan.MemoryPerFrameHostMapped.PropertyFlags())
	assert.Equal(t, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), vulkan.MemoryDeviceResident.PropertyFlags())
}

func TestCreateBufferPicksMemoryByIntent(t *testing.T) {
	tests := []struct {
		name   string
		intent vulkan.MemoryIntent
		want   uint32
	}{
		{"transfer source", vulkan.MemoryTransferSource, vulkantest.HostVisibleMemoryType},
		{"device resident", vulkan.MemoryDeviceResident, vulkantest.DeviceLocalMemoryType},
		{"per frame", vulkan.MemoryPerFrameHostMapped, vulkantest.HostVisibleMemoryType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, dev := newTestContext(t)

			buf, err := ctx.Allocator.CreateBuffer(64, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), tt.intent)
			require.NoError(t, err)
			require.True(t, buf.Valid())
			assert.Equal(t, vk.DeviceSize(64), buf.Size)
			assert.Equal(t, tt.want, dev.MemoryTypeOf(buf.Memory))
			assert.Equal(t, 1, ctx.Allocator.Live())

			ctx.Allocator.DestroyBuffer(&buf)
			assert.False(t, buf.Valid())
			assert.Equal(t, 0, ctx.Allocator.Live())
			assert.Equal(t, 0, dev.Live(vulkantest.KindBuffer))
			assert.Equal(t, 0, dev.Live(vulkantest.KindMemory))
		})
	}
}

func TestCreateBufferIsAllOrNothing(t *testing.T) {
	for _, op := range []string{"CreateBuffer", "AllocateMemory", "BindBufferMemory"} {
		t.Run(op, func(t *testing.T) {
			ctx, dev := newTestContext(t)
			before := dev.LiveTotal()
			dev.FailOn(op, dev.Calls(op)+1, vk.ErrorOutOfDeviceMemory)

			buf, err := ctx.Allocator.CreateBuffer(128, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), vulkan.MemoryDeviceResident)
			require.Error(t, err)
			assert.Equal(t, vulkan.Buffer{}, buf)
			assert.Equal(t, before, dev.LiveTotal())
			assert.Equal(t, 0, ctx.Allocator.Live())

			var resErr vulkan.ResultError
			require.True(t, errors.As(err, &resErr))
			assert.Equal(t, vk.ErrorOutOfDeviceMemory, resErr.Result)
		})
	}
}

func TestCreateImageIsAllOrNothing(t *testing.T) {
	spec := vulkan.ImageSpec{
		Width:     64,
		Height:    32,
		MipLevels: 7,
		Format:    vk.FormatR8g8b8a8Srgb,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(vk.ImageUsageSampledBit),
	}
	for _, op := range []string{"CreateImage", "AllocateMemory", "BindImageMemory"} {
		t.Run(op, func(t *testing.T) {
			ctx, dev := newTestContext(t)
			before := dev.LiveTotal()
			// The surface already created its depth image.
			dev.FailOn(op, dev.Calls(op)+1, vk.ErrorOutOfDeviceMemory)

			img, err := ctx.Allocator.CreateImage(spec, vulkan.MemoryDeviceResident)
			require.Error(t, err)
			assert.Equal(t, vulkan.Image{}, img)
			assert.Equal(t, before, dev.LiveTotal())
		})
	}

	t.Run("success", func(t *testing.T) {
		ctx, dev := newTestContext(t)
		img, err := ctx.Allocator.CreateImage(spec, vulkan.MemoryDeviceResident)
		require.NoError(t, err)
		assert.True(t, img.Valid())
		assert.Equal(t, uint32(7), img.MipLevels)
		assert.Len(t, dev.ImageLayouts(img.Handle), 7)

		ctx.Allocator.DestroyImage(&img)
		assert.Equal(t, 0, ctx.Allocator.Live())
	})
}

func TestDestroyEmptyIsNoop(t *testing.T) {
	ctx, dev := newTestContext(t)

	var buf vulkan.Buffer
	ctx.Allocator.DestroyBuffer(&buf)
	var img vulkan.Image
	ctx.Allocator.DestroyImage(&img)

	created, err := ctx.Allocator.CreateBuffer(16, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), vulkan.MemoryTransferSource)
	require.NoError(t, err)
	ctx.Allocator.DestroyBuffer(&created)
	ctx.Allocator.DestroyBuffer(&created)

	assert.Equal(t, 0, dev.Calls("DestroyImage"))
	assert.Equal(t, 1, dev.Calls("DestroyBuffer"))
}

func TestFindMemoryIndexWithoutMatch(t *testing.T) {
	ctx, _ := newTestContext(t)

	_, err := ctx.Allocator.FindMemoryIndex(0, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	assert.True(t, errors.Is(err, core.ErrNoSuitableMemoryType))

	index, err := ctx.Allocator.FindMemoryIndex(0b11, vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	require.NoError(t, err)
	assert.Equal(t, vulkantest.HostVisibleMemoryType, index)
}

func TestWriteBuffer(t *testing.T) {
	ctx, dev := newTestContext(t)

	buf, err := ctx.Allocator.CreateBuffer(8, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), vulkan.MemoryPerFrameHostMapped)
	require.NoError(t, err)
	defer ctx.Allocator.DestroyBuffer(&buf)

	require.NoError(t, ctx.Allocator.WriteBuffer(buf, []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, dev.BufferContents(buf.Handle))

	assert.Error(t, ctx.Allocator.WriteBuffer(buf, make([]byte, 9)))
}

func TestBytes(t *testing.T) {
	assert.Nil(t, vulkan.Bytes([]uint32{}))
	assert.Equal(t, []byte{1, 0, 2, 0}, vulkan.Bytes([]uint16{1, 2}))
}
