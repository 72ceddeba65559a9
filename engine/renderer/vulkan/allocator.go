package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
)

// MemoryIntent describes how a buffer or image is going to be used and
// selects the memory properties it is allocated with.
type MemoryIntent int

const (
	// Host visible, short lived. Source of a staged upload.
	MemoryTransferSource MemoryIntent = iota
	// Fastest GPU access, not host visible.
	MemoryDeviceResident
	// Host visible, rewritten every frame.
	MemoryPerFrameHostMapped
)

func (i MemoryIntent) String() string {
	switch i {
	case MemoryTransferSource:
		return "transfer-source"
	case MemoryDeviceResident:
		return "device-resident"
	case MemoryPerFrameHostMapped:
		return "per-frame-host-mapped"
	}
	return "unknown"
}

func (i MemoryIntent) PropertyFlags() vk.MemoryPropertyFlags {
	if i == MemoryDeviceResident {
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
	return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
}

/**
 * @brief A device buffer and the memory bound to it. Both fields are set or
 * neither is.
 */
type Buffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	ID     uuid.UUID
}

func (b Buffer) Valid() bool {
	return b.Handle != vk.NullBuffer && b.Memory != vk.NullDeviceMemory
}

/**
 * @brief A device image, the memory bound to it and, once created, its view.
 */
type Image struct {
	Handle    vk.Image
	Memory    vk.DeviceMemory
	View      vk.ImageView
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    vk.Format
	ID        uuid.UUID
}

func (img Image) Valid() bool {
	return img.Handle != vk.NullImage && img.Memory != vk.NullDeviceMemory
}

type ImageSpec struct {
	Width     uint32
	Height    uint32
	MipLevels uint32
	Samples   vk.SampleCountFlagBits
	Format    vk.Format
	Tiling    vk.ImageTiling
	Usage     vk.ImageUsageFlags
}

// Allocator creates buffers and images with memory bound to them and keeps a
// registry of everything still alive.
type Allocator struct {
	device           Device
	locks            *LockPool
	memoryProperties vk.PhysicalDeviceMemoryProperties
	live             map[uuid.UUID]string
}

func NewAllocator(device Device, locks *LockPool) *Allocator {
	if locks == nil {
		locks = NewLockPool()
	}
	return &Allocator{
		device:           device,
		locks:            locks,
		memoryProperties: device.MemoryProperties(),
		live:             make(map[uuid.UUID]string),
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter whose
// property flags contain every requested flag.
func (a *Allocator) FindMemoryIndex(typeFilter uint32, flags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < a.memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		if typeFilter&(1<<i) != 0 && a.memoryProperties.MemoryTypes[i].PropertyFlags&flags == flags {
			return i, nil
		}
	}
	return 0, errors.Wrapf(core.ErrNoSuitableMemoryType, "type filter %#x flags %#x", typeFilter, uint32(flags))
}

func (a *Allocator) allocate(requirements vk.MemoryRequirements, intent MemoryIntent) (vk.DeviceMemory, error) {
	index, err := a.FindMemoryIndex(requirements.MemoryTypeBits, intent.PropertyFlags())
	if err != nil {
		return vk.NullDeviceMemory, errors.Wrapf(err, "allocate %s memory", intent)
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: index,
	}
	var memory vk.DeviceMemory
	if err := checkResult(a.device.AllocateMemory(&info, &memory), "vkAllocateMemory"); err != nil {
		return vk.NullDeviceMemory, err
	}
	return memory, nil
}

// CreateBuffer returns a buffer with freshly allocated memory bound to it. On
// failure nothing created by the call is left alive and the zero Buffer is
// returned.
func (a *Allocator) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, intent MemoryIntent) (Buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if err := checkResult(a.device.CreateBuffer(&info, &handle), "vkCreateBuffer"); err != nil {
		return Buffer{}, err
	}

	memory, err := a.allocate(a.device.BufferMemoryRequirements(handle), intent)
	if err != nil {
		a.device.DestroyBuffer(handle)
		return Buffer{}, err
	}

	if err := checkResult(a.device.BindBufferMemory(handle, memory, 0), "vkBindBufferMemory"); err != nil {
		a.device.FreeMemory(memory)
		a.device.DestroyBuffer(handle)
		return Buffer{}, err
	}

	buf := Buffer{
		Handle: handle,
		Memory: memory,
		Size:   size,
		ID:     uuid.New(),
	}
	a.track(buf.ID, "buffer")
	return buf, nil
}

// CreateImage creates a 2D image with memory bound to it. The view is not
// created here; see CreateImageView.
func (a *Allocator) CreateImage(spec ImageSpec, intent MemoryIntent) (Image, error) {
	if spec.MipLevels == 0 {
		spec.MipLevels = 1
	}
	if spec.Samples == 0 {
		spec.Samples = vk.SampleCount1Bit
	}
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  spec.Width,
			Height: spec.Height,
			Depth:  1,
		},
		MipLevels:     spec.MipLevels,
		ArrayLayers:   1,
		Format:        spec.Format,
		Tiling:        spec.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         spec.Usage,
		Samples:       spec.Samples,
		SharingMode:   vk.SharingModeExclusive,
	}

	var handle vk.Image
	if err := checkResult(a.device.CreateImage(&info, &handle), "vkCreateImage"); err != nil {
		return Image{}, err
	}

	memory, err := a.allocate(a.device.ImageMemoryRequirements(handle), intent)
	if err != nil {
		a.device.DestroyImage(handle)
		return Image{}, err
	}

	if err := checkResult(a.device.BindImageMemory(handle, memory, 0), "vkBindImageMemory"); err != nil {
		a.device.FreeMemory(memory)
		a.device.DestroyImage(handle)
		return Image{}, err
	}

	img := Image{
		Handle:    handle,
		Memory:    memory,
		Width:     spec.Width,
		Height:    spec.Height,
		MipLevels: spec.MipLevels,
		Format:    spec.Format,
		ID:        uuid.New(),
	}
	a.track(img.ID, "image")
	return img, nil
}

// DestroyBuffer releases the buffer and its memory and resets it to the zero
// value. Destroying an empty buffer does nothing.
func (a *Allocator) DestroyBuffer(buf *Buffer) {
	if buf == nil || !buf.Valid() {
		return
	}
	a.device.DestroyBuffer(buf.Handle)
	a.device.FreeMemory(buf.Memory)
	a.untrack(buf.ID)
	*buf = Buffer{}
}

// DestroyImage releases the view (if any), the image and its memory.
func (a *Allocator) DestroyImage(img *Image) {
	if img == nil || !img.Valid() {
		return
	}
	if img.View != vk.NullImageView {
		a.device.DestroyImageView(img.View)
	}
	a.device.DestroyImage(img.Handle)
	a.device.FreeMemory(img.Memory)
	a.untrack(img.ID)
	*img = Image{}
}

// WriteBuffer maps the buffer, copies data to its start and unmaps it. The
// buffer must be host visible.
func (a *Allocator) WriteBuffer(buf Buffer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if vk.DeviceSize(len(data)) > buf.Size {
		return errors.Errorf("write of %d bytes overflows buffer of %d bytes", len(data), buf.Size)
	}
	mapped, res := a.device.MapMemory(buf.Memory, 0, vk.DeviceSize(len(data)))
	if err := checkResult(res, "vkMapMemory"); err != nil {
		return err
	}
	copy(mapped, data)
	a.device.UnmapMemory(buf.Memory)
	return nil
}

// Live reports the number of buffers and images created by this allocator
// that have not been destroyed yet.
func (a *Allocator) Live() int {
	n := 0
	a.locks.SafeCall(MemoryManagement, func() error {
		n = len(a.live)
		return nil
	})
	return n
}

func (a *Allocator) track(id uuid.UUID, kind string) {
	a.locks.SafeCall(MemoryManagement, func() error {
		a.live[id] = kind
		return nil
	})
}

func (a *Allocator) untrack(id uuid.UUID) {
	a.locks.SafeCall(MemoryManagement, func() error {
		delete(a.live, id)
		return nil
	})
}

// Bytes reinterprets a slice of plain values as raw bytes without copying.
func Bytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(unsafe.Sizeof(zero)))
}
