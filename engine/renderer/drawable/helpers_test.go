package drawable

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/assets/loaders"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (*vulkan.Context, *vulkantest.Device, *vulkantest.Surface) {
	t.Helper()
	dev := vulkantest.NewDevice()
	surface := vulkantest.NewSurface(dev)
	ctx := vulkan.NewContext(surface, core.NewLogger(io.Discard, log.DebugLevel, "test"))
	t.Cleanup(func() {
		require.Empty(t, dev.Errors)
	})
	return ctx, dev, surface
}

func spirv(n int) []byte {
	code := make([]byte, 4*(n+1))
	binary.LittleEndian.PutUint32(code, 0x07230203)
	return code
}

// memAssets serves shaders, textures and models from maps.
type memAssets struct {
	shaders  map[string][]byte
	textures map[string]*loaders.Texture
	models   map[string]*loaders.Model
}

func newMemAssets() *memAssets {
	return &memAssets{
		shaders: map[string][]byte{
			"color.vert": spirv(4),
			"color.frag": spirv(4),
			"tex.vert":   spirv(8),
			"tex.frag":   spirv(8),
		},
		textures: map[string]*loaders.Texture{
			"textures/checker.png": {
				Width:  4,
				Height: 4,
				Pixels: make([]byte, 4*4*4),
				SRGB:   true,
			},
		},
		models: map[string]*loaders.Model{
			"models/tri.obj": {
				Vertices: []loaders.Vertex{
					{}, {}, {},
				},
				Indices: []uint32{0, 1, 2},
			},
		},
	}
}

func (m *memAssets) Shader(name string) (*loaders.ShaderSource, error) {
	code, ok := m.shaders[name]
	if !ok {
		return nil, errors.Wrap(core.ErrAssetNotFound, name)
	}
	return &loaders.ShaderSource{Name: name, Code: code}, nil
}

func (m *memAssets) Texture(name string) (*loaders.Texture, error) {
	tex, ok := m.textures[name]
	if !ok {
		return nil, errors.Wrap(core.ErrAssetNotFound, name)
	}
	return tex, nil
}

func (m *memAssets) Model(name string) (*loaders.Model, error) {
	model, ok := m.models[name]
	if !ok {
		return nil, errors.Wrap(core.ErrAssetNotFound, name)
	}
	return model, nil
}

var testTexturedConfig = TexturedConfig{
	VertexShader:   "tex.vert",
	FragmentShader: "tex.frag",
	Model:          "models/tri.obj",
	Texture:        "textures/checker.png",
}

var testFlatColorConfig = FlatColorConfig{
	VertexShader:   "color.vert",
	FragmentShader: "color.frag",
}
