package scene

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xeogl/gpu"
	"xeogl/state"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{B: 255, A: 255})
			}
		}
	}
	return img
}

func TestImagePixelsKeepsSize(t *testing.T) {
	w, h, px := ImagePixels(checker(3, 5), gpu.TextureParams{})
	assert.Equal(t, 3, w)
	assert.Equal(t, 5, h)
	require.Len(t, px, 3*5*4)
	assert.Equal(t, []byte{255, 0, 0, 255}, px[:4])
	assert.Equal(t, []byte{0, 0, 255, 255}, px[4:8])
}

func TestImagePixelsResizesToPowerOfTwo(t *testing.T) {
	for _, params := range []gpu.TextureParams{{Mipmaps: true}, {Repeat: true}} {
		w, h, px := ImagePixels(checker(3, 5), params)
		assert.Equal(t, 4, w)
		assert.Equal(t, 8, h)
		assert.Len(t, px, 4*8*4)
	}

	w, h, _ := ImagePixels(checker(4, 8), gpu.TextureParams{Mipmaps: true})
	assert.Equal(t, [2]int{4, 8}, [2]int{w, h})
}

func TestImagePixelsSubImage(t *testing.T) {
	img := checker(4, 4).SubImage(image.Rect(1, 0, 3, 2))
	w, h, px := ImagePixels(img, gpu.TextureParams{})
	assert.Equal(t, [2]int{2, 2}, [2]int{w, h})
	assert.Equal(t, []byte{0, 0, 255, 255}, px[:4])
}

func TestNextPowerOfTwo(t *testing.T) {
	for in, want := range map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 64: 64, 65: 128} {
		assert.Equal(t, want, nextPowerOfTwo(in), "%d", in)
	}
}

func TestLoadTexture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, checker(2, 2)))
	require.NoError(t, f.Close())

	a := state.NewArena()
	tex, err := LoadTexture(a, path, gpu.TextureParams{Linear: true})
	require.NoError(t, err)
	w, h := tex.Size()
	assert.Equal(t, [2]int{2, 2}, [2]int{w, h})
	assert.True(t, tex.Params().Linear)

	_, err = LoadTexture(a, filepath.Join(t.TempDir(), "missing.png"), gpu.TextureParams{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSolidTexture(t *testing.T) {
	tex := SolidTexture(state.NewArena(), 1, 2, 3, 4)
	assert.Equal(t, []byte{1, 2, 3, 4}, tex.Pixels())
}
