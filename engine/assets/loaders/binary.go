package loaders

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/core"
)

const spirvMagic uint32 = 0x07230203

// ValidateSPIRV checks that b looks like a little endian SPIR-V module.
func ValidateSPIRV(b []byte) error {
	if len(b) < 4 || len(b)%4 != 0 {
		return errors.Wrapf(core.ErrInvalidShaderBytecode, "size %d is not a positive multiple of 4", len(b))
	}
	if magic := bytesToBytecode(b[:4])[0]; magic != spirvMagic {
		return errors.Wrapf(core.ErrInvalidShaderBytecode, "bad magic %#08x", magic)
	}
	return nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
