package loaders

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Texture is a decoded image as RGBA8 rows, top row first.
type Texture struct {
	Width  uint32
	Height uint32
	Pixels []byte
	SRGB   bool
}

type TextureLoader struct{}

func (tl *TextureLoader) Load(path string, name string) (*Resource, error) {
	// Open and decode the texture image file
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open texture %q", name)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "decode texture %q", name)
	}
	tex := DecodeTexture(img)
	if tex.Width == 0 || tex.Height == 0 {
		return nil, errors.Errorf("texture %q (%s) is empty", name, format)
	}
	return &Resource{
		Name:     name,
		FullPath: path,
		Type:     ResourceTypeImage,
		DataSize: uint64(info.Size()),
		Data:     tex,
	}, nil
}

func (tl *TextureLoader) Unload(*Resource) error {
	return nil
}

// DecodeTexture converts any decoded image into a Texture.
func DecodeTexture(img image.Image) *Texture {
	rgba := toRGBA(img)
	b := rgba.Bounds()
	return &Texture{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Pixels: rgba.Pix,
		SRGB:   !isLinear(img),
	}
}
