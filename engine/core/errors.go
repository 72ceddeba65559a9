package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")

	ErrLifecycleOrder         = errors.New("resource lifecycle called out of order")
	ErrUnsupportedTransition  = errors.New("unsupported image layout transition")
	ErrLinearBlitUnsupported  = errors.New("texture image format does not support linear blitting")
	ErrNoSuitableMemoryType   = errors.New("failed to find suitable memory type")
	ErrEmptyUpload            = errors.New("cannot upload an empty buffer")
	ErrDeviceLost             = errors.New("device lost")
	ErrInvalidShaderBytecode  = errors.New("invalid SPIR-V bytecode")
	ErrPixelSizeMismatch      = errors.New("pixel data does not match the image extent")
	ErrNoMipLevels            = errors.New("image has no mip levels")
	ErrNoSuitablePhysicalGPU  = errors.New("no physical device meets the requirements")
	ErrMissingValidationLayer = errors.New("required validation layer is missing")

	ErrAssetNotFound     = errors.New("asset not found")
	ErrAssetTypeMismatch = errors.New("asset has a different type")
	ErrClosed            = errors.New("already closed")

	ErrInvalidConfig = errors.New("invalid configuration")
)
