package state

import (
	"fmt"

	"xeogl/gpu"
)

// Texture holds decoded RGBA8 pixels. The renderer uploads it lazily and
// re-uploads whenever Version changes.
type Texture struct {
	Base
	width, height int
	pixels        []byte
	params        gpu.TextureParams
}

// NewTexture accepts a decoded image of width*height RGBA8 pixels.
func NewTexture(a *Arena, width, height int, pixels []byte, params gpu.TextureParams) (*Texture, error) {
	if err := checkPixels(width, height, pixels); err != nil {
		return nil, err
	}
	t := &Texture{width: width, height: height, pixels: pixels, params: params}
	t.init(a, KindTexture, t)
	return t, nil
}

func checkPixels(width, height int, pixels []byte) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("texture size %dx%d", width, height)
	}
	if len(pixels) != width*height*4 {
		return fmt.Errorf("texture %dx%d needs %d bytes, got %d", width, height, width*height*4, len(pixels))
	}
	return nil
}

func (t *Texture) Size() (int, int)          { return t.width, t.height }
func (t *Texture) Pixels() []byte            { return t.pixels }
func (t *Texture) Params() gpu.TextureParams { return t.params }

// SetImage replaces the pixels.
func (t *Texture) SetImage(width, height int, pixels []byte) error {
	if err := checkPixels(width, height, pixels); err != nil {
		return err
	}
	t.width, t.height, t.pixels = width, height, pixels
	t.changed()
	return nil
}
