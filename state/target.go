package state

import "github.com/go-gl/mathgl/mgl32"

// RenderTarget describes an offscreen colour+depth surface. The renderer
// allocates the framebuffer on first use.
type RenderTarget struct {
	Base
	width, height int
	clearColor    mgl32.Vec4
}

func NewRenderTarget(a *Arena, width, height int) *RenderTarget {
	t := &RenderTarget{width: width, height: height}
	t.init(a, KindRenderTarget, t)
	return t
}

func (t *RenderTarget) Size() (int, int)       { return t.width, t.height }
func (t *RenderTarget) ClearColor() mgl32.Vec4 { return t.clearColor }

func (t *RenderTarget) SetSize(width, height int) bool {
	if t.width == width && t.height == height {
		return false
	}
	t.width, t.height = width, height
	t.changed()
	return true
}

func (t *RenderTarget) SetClearColor(c mgl32.Vec4) bool {
	if t.clearColor == c {
		return false
	}
	t.clearColor = c
	t.changed()
	return true
}
