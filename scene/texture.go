package scene

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"xeogl/gpu"
	"xeogl/state"
)

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// ImagePixels converts img to tightly packed RGBA8 rows, top row first.
// Mipmapped or repeating textures are resized up to power-of-two sides,
// which WebGL 1 requires for both.
func ImagePixels(img image.Image, params gpu.TextureParams) (width, height int, pixels []byte) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if (params.Mipmaps || params.Repeat) && !(isPowerOfTwo(w) && isPowerOfTwo(h)) {
		dst := image.NewRGBA(image.Rect(0, 0, nextPowerOfTwo(w), nextPowerOfTwo(h)))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst.Rect.Dx(), dst.Rect.Dy(), dst.Pix
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*w && rgba.Rect.Min == (image.Point{}) {
		return w, h, rgba.Pix
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return w, h, dst.Pix
}

// NewTextureFromImage creates a Texture state from a decoded image.
func NewTextureFromImage(a *state.Arena, img image.Image, params gpu.TextureParams) (*state.Texture, error) {
	w, h, px := ImagePixels(img, params)
	return state.NewTexture(a, w, h, px, params)
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %q: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %q: %w", path, err)
	}
	return img, nil
}

// LoadTexture reads a PNG or JPEG file into a Texture state.
func LoadTexture(a *state.Arena, path string, params gpu.TextureParams) (*state.Texture, error) {
	img, err := decodeImageFile(path)
	if err != nil {
		return nil, err
	}
	return NewTextureFromImage(a, img, params)
}

// SolidTexture returns a 1x1 texture of one colour.
func SolidTexture(a *state.Arena, r, g, b, alpha uint8) *state.Texture {
	t, _ := state.NewTexture(a, 1, 1, []byte{r, g, b, alpha}, gpu.TextureParams{})
	return t
}
