package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
)

// BufferRole is the usage a device resident buffer is uploaded for.
type BufferRole int

const (
	RoleVertex BufferRole = iota
	RoleIndex
)

func (r BufferRole) usage() vk.BufferUsageFlags {
	if r == RoleIndex {
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
}

func (r BufferRole) String() string {
	if r == RoleIndex {
		return "index"
	}
	return "vertex"
}

// UploadBuffer copies data into a new device resident buffer through a host
// visible staging buffer and a one-shot transfer. The staging buffer never
// outlives the call. The caller owns the returned buffer.
func UploadBuffer[T any](ctx *Context, data []T, role BufferRole) (Buffer, error) {
	if len(data) == 0 {
		return Buffer{}, errors.Wrapf(core.ErrEmptyUpload, "%s buffer", role)
	}
	var zero T
	size := vk.DeviceSize(len(data)) * vk.DeviceSize(unsafe.Sizeof(zero))

	var cleanup Guard
	defer cleanup.Run()

	staging, err := ctx.Allocator.CreateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), MemoryTransferSource)
	if err != nil {
		return Buffer{}, errors.Wrapf(err, "%s staging buffer", role)
	}
	// Released on every path, including success.
	defer ctx.Allocator.DestroyBuffer(&staging)

	if err := ctx.Allocator.WriteBuffer(staging, Bytes(data)); err != nil {
		return Buffer{}, err
	}

	dst, err := ctx.Allocator.CreateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)|role.usage(), MemoryDeviceResident)
	if err != nil {
		return Buffer{}, errors.Wrapf(err, "%s buffer", role)
	}
	cleanup.Add(func() { ctx.Allocator.DestroyBuffer(&dst) })

	if err := CopyBuffer(ctx, staging, dst, size); err != nil {
		return Buffer{}, err
	}

	cleanup.Dismiss()
	return dst, nil
}

// CopyBuffer records and submits a one-shot copy of size bytes from the start
// of src to the start of dst.
func CopyBuffer(ctx *Context, src, dst Buffer, size vk.DeviceSize) error {
	cb, err := BeginSingleUse(ctx)
	if err != nil {
		return err
	}
	ctx.Device.CmdCopyBuffer(cb.Handle, src.Handle, dst.Handle, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}})
	return cb.EndSingleUse(ctx)
}

// TextureSource is a decoded RGBA8 image ready for upload. SRGB tags the
// color space of Pixels.
type TextureSource struct {
	Width  uint32
	Height uint32
	Pixels []byte
	SRGB   bool
}

// linearFormats maps an sRGB format to the UNORM format with the same layout.
var linearFormats = map[vk.Format]vk.Format{
	vk.FormatR8g8b8a8Srgb: vk.FormatR8g8b8a8Unorm,
	vk.FormatB8g8r8a8Srgb: vk.FormatB8g8r8a8Unorm,
}

// Format picks the image format for the source: srgb itself for sRGB pixels
// and its UNORM counterpart for linear ones.
func (s TextureSource) Format(srgb vk.Format) vk.Format {
	if s.SRGB {
		return srgb
	}
	if linear, ok := linearFormats[srgb]; ok {
		return linear
	}
	return srgb
}

// UploadImage creates a sampled, mipmapped device resident image from
// pixels. Level 0 is filled through a staging buffer and the rest of the
// chain is generated by blitting. Every level ends in shader read only layout.
// The image format is src.Format(format); it is recorded in Image.Format.
func UploadImage(ctx *Context, src TextureSource, format vk.Format) (Image, error) {
	if len(src.Pixels) == 0 {
		return Image{}, errors.Wrap(core.ErrEmptyUpload, "texture image")
	}
	if want := uint64(src.Width) * uint64(src.Height) * 4; uint64(len(src.Pixels)) != want {
		return Image{}, errors.Wrapf(core.ErrPixelSizeMismatch, "%dx%d texture needs %d bytes, got %d", src.Width, src.Height, want, len(src.Pixels))
	}
	format = src.Format(format)
	size := vk.DeviceSize(len(src.Pixels))
	mipLevels := MipLevels(src.Width, src.Height)

	var cleanup Guard
	defer cleanup.Run()

	staging, err := ctx.Allocator.CreateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), MemoryTransferSource)
	if err != nil {
		return Image{}, errors.Wrap(err, "texture staging buffer")
	}
	defer ctx.Allocator.DestroyBuffer(&staging)

	if err := ctx.Allocator.WriteBuffer(staging, src.Pixels); err != nil {
		return Image{}, err
	}

	img, err := ctx.Allocator.CreateImage(ImageSpec{
		Width:     src.Width,
		Height:    src.Height,
		MipLevels: mipLevels,
		Samples:   vk.SampleCount1Bit,
		Format:    format,
		Tiling:    vk.ImageTilingOptimal,
		Usage: vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
			vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
			vk.ImageUsageFlags(vk.ImageUsageSampledBit),
	}, MemoryDeviceResident)
	if err != nil {
		return Image{}, errors.Wrap(err, "texture image")
	}
	cleanup.Add(func() { ctx.Allocator.DestroyImage(&img) })

	if err := TransitionImageLayout(ctx, img.Handle, format, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, mipLevels); err != nil {
		return Image{}, err
	}
	if err := copyBufferToImage(ctx, staging, img); err != nil {
		return Image{}, err
	}
	if err := GenerateMipmaps(ctx, img.Handle, format, int32(src.Width), int32(src.Height), mipLevels); err != nil {
		return Image{}, err
	}

	cleanup.Dismiss()
	return img, nil
}

func copyBufferToImage(ctx *Context, src Buffer, dst Image) error {
	cb, err := BeginSingleUse(ctx)
	if err != nil {
		return err
	}
	ctx.Device.CmdCopyBufferToImage(cb.Handle, src.Handle, dst.Handle, vk.ImageLayoutTransferDstOptimal, []vk.BufferImageCopy{{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: dst.Width, Height: dst.Height, Depth: 1},
	}})
	return cb.EndSingleUse(ctx)
}
