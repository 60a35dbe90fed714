package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"xeogl/chunk"
	"xeogl/drawlist"
	"xeogl/frame"
	"xeogl/gpu"
	"xeogl/shader"
	"xeogl/state"
)

// PickParams locates a pick in canvas pixels, origin top-left.
type PickParams struct {
	X, Y int
	// Primitive additionally resolves the triangle under the point.
	Primitive bool
}

// PickResult is the object under the pick point, nil when nothing was hit.
// Primitive is the triangle index within that object, or -1.
type PickResult struct {
	Object    *Object
	Primitive int
}

// Pick renders the pickable objects with the object-pick program variant,
// reads back the pixel under p and decodes it. With p.Primitive set, the hit
// object is drawn again with the primitive-pick variant to find the
// triangle.
func (re *Renderer) Pick(p PickParams) (PickResult, error) {
	res := PickResult{Primitive: -1}
	if re.lost {
		return res, ErrContextLost
	}
	if re.view == nil || re.proj == nil {
		return res, ErrNoCamera
	}
	w, h := re.viewport.Width, re.viewport.Height
	if p.X < 0 || p.Y < 0 || p.X >= w || p.Y >= h {
		return res, nil
	}

	re.prepare()
	list := re.compiler.Get(re.entries)
	if len(list.Pick) == 0 {
		return res, nil
	}

	target, err := re.pickSurface()
	if err != nil {
		return res, err
	}
	defer func() {
		re.ctx.BindFramebuffer(0)
		re.ctx.Viewport(re.viewport.X, re.viewport.Y, re.viewport.Width, re.viewport.Height)
	}()

	for i, o := range list.Pick {
		o.pickIndex = i
	}
	idx := re.pickPass(target, p, list.Pick, shader.PickObject)
	if idx < 0 || idx >= len(list.Pick) {
		return res, nil
	}
	res.Object = list.Pick[idx]

	if p.Primitive {
		o := res.Object
		if o.buffers != nil && o.buffers.BuildPick(re.ctx, o.cfg.Geometry) {
			pl := drawlist.PrimitivePick(o)
			res.Primitive = re.pickPass(target, p, pl.Pick, shader.PickPrimitive)
			if res.Primitive >= o.buffers.PickTriangles() {
				res.Primitive = -1
			}
		}
	}
	return res, nil
}

// pickSurface returns the offscreen target for a pick, sized 1x1 in region
// mode and to the canvas otherwise.
func (re *Renderer) pickSurface() (*RenderTarget, error) {
	w, h := 1, 1
	if !re.cfg.PickRegion {
		w, h = re.viewport.Width, re.viewport.Height
	}
	if re.pickTarget == nil {
		st := state.NewRenderTarget(re.arena, w, h)
		t, err := re.NewRenderTarget(st)
		if err != nil {
			st.Destroy()
			return nil, err
		}
		re.pickTarget = t
		return t, nil
	}
	re.pickTarget.state.SetSize(w, h)
	if err := re.pickTarget.sync(); err != nil {
		return nil, err
	}
	return re.pickTarget, nil
}

// pickProjection narrows proj so that the canvas pixel (x, y) fills the
// whole 1x1 pick target.
func pickProjection(proj mgl32.Mat4, x, y, w, h int) mgl32.Mat4 {
	cx := float32(x) + 0.5
	cy := float32(h-y) - 0.5
	fw, fh := float32(w), float32(h)
	return mgl32.Translate3D(fw-2*cx, fh-2*cy, 0).Mul4(mgl32.Scale3D(fw, fh, 1)).Mul4(proj)
}

func (re *Renderer) pickPass(target *RenderTarget, p PickParams, objects []*Object, v shader.Variant) int {
	proj := re.proj
	rx, ry := p.X, re.viewport.Height-1-p.Y
	if re.cfg.PickRegion {
		re.pickProj.SetMatrix(pickProjection(re.proj.Matrix(), p.X, p.Y, re.viewport.Width, re.viewport.Height))
		proj = re.pickProj
		rx, ry = 0, 0
	}

	re.ctx.BindFramebuffer(target.fb)
	re.ctx.Viewport(0, 0, target.width, target.height)
	re.ctx.ClearColor(0, 0, 0, 0)
	re.ctx.Clear(gpu.ColorBit | gpu.DepthBit)
	re.ctx.Enable(gpu.DepthTest)
	re.ctx.DepthMask(true)
	re.ctx.Disable(gpu.Blend)

	fc := frame.New(re.maxUnits(), re.view, proj)
	for _, o := range objects {
		re.drawObject(fc, o, v)
	}
	re.stats.Counters.Add(fc.Counters)

	px := re.ctx.ReadPixels(rx, ry, 1, 1)
	if len(px) < 4 {
		return -1
	}
	return chunk.DecodePickIndex([4]byte(px[:4]))
}
