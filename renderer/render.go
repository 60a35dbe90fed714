package renderer

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"xeogl/frame"
	"xeogl/gpu"
	"xeogl/shader"
	"xeogl/state"
)

// Viewport is a pixel rectangle of the bound framebuffer.
type Viewport struct {
	X, Y, Width, Height int
}

// PassConfig drives one Render call.
type PassConfig struct {
	// Target renders offscreen instead of to the default framebuffer.
	Target *RenderTarget
	// ClearEachPass clears before every pass, not only the first.
	ClearEachPass bool
	// Passes is the number of passes; values below 1 mean one.
	Passes int
	// OnPass runs before each pass and may change the view, projection and
	// viewport for that pass. Every pass starts from the caller's camera, and
	// all three are restored after the last pass.
	OnPass func(pass int, view *state.ViewTransform, proj *state.ProjTransform, vp *Viewport)
}

// Render draws the opaque bucket and then the transparent bucket of the
// current draw list, once per pass.
func (re *Renderer) Render(pc PassConfig) error {
	if re.lost {
		return ErrContextLost
	}
	if re.view == nil || re.proj == nil {
		return ErrNoCamera
	}
	if pc.Target != nil {
		if err := pc.Target.sync(); err != nil {
			return err
		}
	}

	re.prepare()
	list := re.compiler.Get(re.entries)

	// ── Save camera and viewport; passes may change them ─────────────────────
	viewM, projM := re.view.Matrix(), re.proj.Matrix()
	base := re.viewport
	if pc.Target != nil {
		base = Viewport{Width: pc.Target.width, Height: pc.Target.height}
	}
	defer func() {
		re.view.SetMatrix(viewM)
		re.proj.SetMatrix(projM)
		re.ctx.Viewport(base.X, base.Y, base.Width, base.Height)
		if pc.Target != nil {
			re.ctx.BindFramebuffer(0)
		}
	}()

	var total frame.Counters
	re.skipped = 0
	passes := max(pc.Passes, 1)
	for pass := range passes {
		vp := base
		if pass > 0 {
			re.view.SetMatrix(viewM)
			re.proj.SetMatrix(projM)
		}
		if pc.OnPass != nil {
			pc.OnPass(pass, re.view, re.proj, &vp)
		}

		// ── Bind target and clear ──────────────────────────────────────────
		if pc.Target != nil {
			re.ctx.BindFramebuffer(pc.Target.fb)
		} else {
			re.ctx.BindFramebuffer(0)
		}
		re.ctx.Viewport(vp.X, vp.Y, vp.Width, vp.Height)
		if pass == 0 || pc.ClearEachPass || re.cfg.ClearEachPass {
			c := re.cfg.ClearColor
			if pc.Target != nil {
				c = pc.Target.state.ClearColor()
			}
			re.ctx.ClearColor(c[0], c[1], c[2], c[3])
			re.ctx.Clear(gpu.ColorBit | gpu.DepthBit)
		}
		re.ctx.Enable(gpu.DepthTest)

		// ── Opaque then transparent ────────────────────────────────────────
		fc := frame.New(re.maxUnits(), re.view, re.proj)
		re.ctx.DepthMask(true)
		re.ctx.Disable(gpu.Blend)
		for _, o := range list.Opaque {
			re.drawObject(fc, o, shader.Draw)
		}
		if len(list.Transparent) > 0 {
			if re.cfg.Blend {
				re.ctx.Enable(gpu.Blend)
				re.ctx.BlendAlpha()
			}
			re.ctx.DepthMask(false)
			for _, o := range list.Transparent {
				re.drawObject(fc, o, shader.Draw)
			}
			re.ctx.DepthMask(true)
			if re.cfg.Blend {
				re.ctx.Disable(gpu.Blend)
			}
		}
		total.Add(fc.Counters)
	}

	re.stats.Counters = total
	re.stats.Skipped = re.skipped
	re.stats.Frames++
	return nil
}

// drawObject binds o's program variant and chunks and issues its draw.
// Objects whose program failed to build are skipped and reported once.
func (re *Renderer) drawObject(fc *frame.Context, o *Object, v shader.Variant) {
	p := o.program
	if p == nil {
		return
	}
	if p.Released() {
		panic(&StaleResourceError{Object: o.id, Resource: "program"})
	}
	if !p.Usable(v) {
		if p.MarkReported() {
			re.logger.Error("skipping object with unusable program",
				zap.Int("object", o.id),
				zap.String("key", p.Key()),
				zap.Stringer("features", p.Features()),
				zap.Stringer("variant", v),
				zap.Error(p.Err()))
		}
		re.skipped++
		return
	}

	h := p.Handle(v)
	if fc.UseProgram(h) {
		re.ctx.UseProgram(h)
	}
	re.applyFaces(fc, o.cfg.Modes)

	set := re.chunkSet(p, v)
	fc.BeginDraw()
	set.Draw(fc, o)
	if v == shader.PickPrimitive {
		o.buffers.DrawPick(re.ctx, fc)
	} else {
		o.buffers.Draw(re.ctx, fc)
	}
}

func b2i8(b bool) int8 {
	if b {
		return 1
	}
	return 0
}

// applyFaces sets culling and winding for the object, skipping calls when
// the pass already has them.
func (re *Renderer) applyFaces(fc *frame.Context, m *state.Modes) {
	backfaces, ccw := false, true
	if m != nil {
		backfaces, ccw = m.Backfaces(), m.FrontFaceCCW()
	}
	if b := b2i8(backfaces); fc.Backfaces != b {
		if backfaces {
			re.ctx.Disable(gpu.CullFace)
		} else {
			re.ctx.Enable(gpu.CullFace)
			re.ctx.CullBack(true)
		}
		fc.Backfaces = b
	}
	if c := b2i8(ccw); fc.FrontFaceCCW != c {
		re.ctx.FrontFaceCCW(ccw)
		fc.FrontFaceCCW = c
	}
}

// StereoConfig describes a side-by-side stereo camera.
type StereoConfig struct {
	EyeSeparation float32
	FocalDistance float32
	FOV           float32 // vertical, radians
	Near, Far     float32
}

// StereoPasses renders the left eye into the left half of the viewport and
// the right eye into the right half, each with an off-axis frustum converging
// at the focal distance.
func StereoPasses(sc StereoConfig) PassConfig {
	return PassConfig{
		Passes: 2,
		OnPass: func(pass int, view *state.ViewTransform, proj *state.ProjTransform, vp *Viewport) {
			sign := float32(-1)
			if pass == 1 {
				sign = 1
			}
			half := vp.Width / 2
			if pass == 1 {
				vp.X += half
				vp.Width -= half
			} else {
				vp.Width = half
			}
			aspect := float32(vp.Width) / float32(max(vp.Height, 1))
			top := sc.Near * math32.Tan(sc.FOV/2)
			shift := -sign * 0.5 * sc.EyeSeparation * sc.Near / sc.FocalDistance
			proj.SetMatrix(mgl32.Frustum(-aspect*top+shift, aspect*top+shift, -top, top, sc.Near, sc.Far))
			eye := mgl32.Translate3D(-sign*0.5*sc.EyeSeparation, 0, 0)
			view.SetMatrix(eye.Mul4(view.Matrix()))
		},
	}
}
