package renderer

import (
	"slices"

	"go.uber.org/zap"

	"xeogl/gpu"
	"xeogl/state"
)

// RenderTarget is the GPU side of a state.RenderTarget: a framebuffer with a
// colour texture and a depth renderbuffer.
type RenderTarget struct {
	re      *Renderer
	state   *state.RenderTarget
	version uint64
	fb      gpu.Framebuffer
	color   gpu.Texture
	depth   gpu.Renderbuffer
	width   int
	height  int
}

// NewRenderTarget allocates a framebuffer for st. The target follows later
// size changes of st and is reallocated after a context restore.
func (re *Renderer) NewRenderTarget(st *state.RenderTarget) (*RenderTarget, error) {
	if re.lost {
		return nil, ErrContextLost
	}
	t := &RenderTarget{re: re, state: st}
	if err := t.allocate(); err != nil {
		return nil, err
	}
	re.targets = append(re.targets, t)
	return t, nil
}

// Texture is the colour attachment, usable as a sampler input.
func (t *RenderTarget) Texture() gpu.Texture { return t.color }

func (t *RenderTarget) Size() (int, int) { return t.width, t.height }

func (t *RenderTarget) State() *state.RenderTarget { return t.state }

func (t *RenderTarget) allocate() error {
	ctx := t.re.ctx
	w, h := t.state.Size()
	t.version = t.state.Version()
	if w <= 0 || h <= 0 {
		return &FramebufferIncompleteError{Width: w, Height: h, Status: gpu.FramebufferIncompleteDimensions}
	}

	fb := ctx.CreateFramebuffer()
	ctx.BindFramebuffer(fb)
	color := ctx.CreateTexture()
	ctx.BindTexture(color)
	ctx.TexImage2D(color, w, h, nil, gpu.TextureParams{Linear: true})
	ctx.FramebufferTexture2D(fb, color)
	depth := ctx.CreateRenderbuffer()
	ctx.RenderbufferStorage(depth, w, h)
	ctx.FramebufferRenderbuffer(fb, depth)

	status := ctx.CheckFramebufferStatus(fb)
	ctx.BindFramebuffer(0)
	if status != gpu.FramebufferComplete {
		ctx.DeleteRenderbuffer(depth)
		ctx.DeleteTexture(color)
		ctx.DeleteFramebuffer(fb)
		t.re.logger.Error("framebuffer incomplete",
			zap.Int("width", w), zap.Int("height", h), zap.Stringer("status", status))
		return &FramebufferIncompleteError{Width: w, Height: h, Status: status}
	}
	t.fb, t.color, t.depth = fb, color, depth
	t.width, t.height = w, h
	return nil
}

func (t *RenderTarget) free() {
	ctx := t.re.ctx
	if t.fb != 0 {
		ctx.DeleteRenderbuffer(t.depth)
		ctx.DeleteTexture(t.color)
		ctx.DeleteFramebuffer(t.fb)
	}
	t.fb, t.color, t.depth = 0, 0, 0
}

// sync reallocates the framebuffer after the state changed size. It panics
// with *StaleResourceError when the state was destroyed.
func (t *RenderTarget) sync() error {
	if t.state.Destroyed() {
		panic(&StaleResourceError{Object: -1, Resource: "render target"})
	}
	if t.fb != 0 && t.version == t.state.Version() {
		return nil
	}
	if w, h := t.state.Size(); t.fb != 0 && w == t.width && h == t.height {
		t.version = t.state.Version()
		return nil
	}
	t.free()
	return t.allocate()
}

// Release deletes the framebuffer and its attachments.
func (t *RenderTarget) Release() {
	t.free()
	t.re.targets = slices.DeleteFunc(t.re.targets, func(x *RenderTarget) bool { return x == t })
}
