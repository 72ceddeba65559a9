package loaders

import (
	"os"

	"github.com/pkg/errors"
)

// ShaderSource is compiled SPIR-V keyed by its logical name, e.g.
// "tex.vert".
type ShaderSource struct {
	Name string
	Code []byte
}

type ShaderLoader struct{}

func (sl *ShaderLoader) Load(path string, name string) (*Resource, error) {
	// Read SPIR-V binary file and validate the header.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read shader %q", name)
	}
	if err := ValidateSPIRV(data); err != nil {
		return nil, errors.Wrapf(err, "shader %q", name)
	}
	return &Resource{
		Name:     name,
		FullPath: path,
		Type:     ResourceTypeShader,
		DataSize: uint64(len(data)),
		Data:     &ShaderSource{Name: name, Code: data},
	}, nil
}

func (sl *ShaderLoader) Unload(*Resource) error {
	return nil
}
