package renderer

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"xeogl/chunk"
	"xeogl/gpu"
	"xeogl/gpu/gputest"
	"xeogl/program"
	"xeogl/shader"
	"xeogl/state"
)

type fixture struct {
	ctx   *gputest.Context
	arena *state.Arena
	re    *Renderer
	view  *state.ViewTransform
	proj  *state.ProjTransform
	geom  *state.Geometry
	light *state.Lights
}

func newFixture(t *testing.T, log *zap.Logger) *fixture {
	t.Helper()
	ctx := gputest.New()
	a := state.NewArena()
	re := NewRenderer(ctx, a, DefaultConfig(), log)
	f := &fixture{
		ctx:   ctx,
		arena: a,
		re:    re,
		view:  state.NewViewTransform(a, mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})),
		proj:  state.NewProjTransform(a, mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)),
		light: state.NewLights(a, state.Light{Type: state.DirLight, Color: mgl32.Vec3{1, 1, 1}, Intensity: 1, Dir: mgl32.Vec3{0, 0, -1}}),
	}
	g, err := state.NewGeometry(a, state.GeometryData{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:   []uint32{0, 1, 2, 1, 3, 2},
	})
	require.NoError(t, err)
	f.geom = g
	re.SetCamera(f.view, f.proj)
	re.SetCanvasSize(100, 100)
	return f
}

// object adds an object translated along x, so draws can be told apart by
// their modelMatrix uniform.
func (f *fixture) object(t *testing.T, x float32, mut func(*ObjectConfig)) *Object {
	t.Helper()
	cfg := ObjectConfig{
		Geometry:       f.geom,
		Material:       state.NewMaterial(f.arena, state.DefaultMaterialConfig()),
		ModelTransform: state.NewModelTransform(f.arena, mgl32.Translate3D(x, 0, 0)),
		Lights:         f.light,
		Modes:          state.NewModes(f.arena, state.DefaultModes()),
	}
	if mut != nil {
		mut(&cfg)
	}
	o, err := f.re.AddObject(cfg)
	require.NoError(t, err)
	return o
}

// drawnX returns the x translation of every recorded draw, in order.
func (f *fixture) drawnX() []float32 {
	out := []float32{}
	for _, dc := range f.ctx.DrawCalls {
		if m, ok := dc.Uniforms["modelMatrix"]; ok {
			out = append(out, m[12])
		}
	}
	return out
}

func TestObjectsShareProgramAndChunks(t *testing.T) {
	f := newFixture(t, nil)
	a := f.object(t, 1, nil)
	b := f.object(t, 2, nil)
	require.NoError(t, f.re.Render(PassConfig{}))

	require.NotNil(t, a.Program())
	assert.Same(t, a.Program(), b.Program())
	assert.Equal(t, 2, a.Program().UseCount())
	assert.Equal(t, 1, f.re.Programs().Len())

	st := f.re.Stats()
	assert.Equal(t, 2, st.DrawCalls)
	assert.Equal(t, 2, st.DrawElements)
	assert.Equal(t, 1, st.ProgramSwitches)
	assert.Equal(t, 1, f.ctx.Calls["UseProgram"])
	assert.Equal(t, []float32{1, 2}, f.drawnX())

	set := f.re.chunkSet(a.Program(), shader.Draw)
	require.NoError(t, f.re.Render(PassConfig{}))
	assert.Same(t, set, f.re.chunkSet(b.Program(), shader.Draw))
	assert.Equal(t, 2, f.re.Stats().Frames)
}

func TestUseCountTracksLiveObjects(t *testing.T) {
	f := newFixture(t, nil)
	objs := []*Object{f.object(t, 0, nil), f.object(t, 1, nil), f.object(t, 2, nil)}
	require.NoError(t, f.re.Render(PassConfig{}))
	p := objs[0].Program()
	assert.Equal(t, 3, p.UseCount())

	cfg := objs[2].Config().Material.Config()
	cfg.Kind = state.Lambert
	objs[2].Config().Material.Set(cfg)
	require.NoError(t, f.re.Render(PassConfig{}))
	assert.Equal(t, 2, p.UseCount())
	assert.NotSame(t, p, objs[2].Program())
	assert.Equal(t, 1, objs[2].Program().UseCount())
	assert.Equal(t, 2, f.re.Programs().Len())

	f.re.RemoveObject(objs[0])
	assert.Equal(t, 1, p.UseCount())
	f.re.RemoveObject(objs[1])
	assert.True(t, p.Released())
	assert.Equal(t, 1, f.re.Programs().Len())

	f.re.Destroy()
	assert.Equal(t, 0, f.re.Programs().Len())
	assert.Equal(t, 0, f.ctx.LivePrograms())
	assert.Equal(t, 0, f.ctx.LiveBuffers())
}

func TestLayerChangeReordersDraws(t *testing.T) {
	f := newFixture(t, nil)
	la := state.NewLayer(f.arena, 0)
	lb := state.NewLayer(f.arena, 1)
	f.object(t, 1, func(c *ObjectConfig) { c.Layer = la })
	f.object(t, 2, func(c *ObjectConfig) { c.Layer = lb })

	require.NoError(t, f.re.Render(PassConfig{}))
	assert.Equal(t, []float32{1, 2}, f.drawnX())
	require.NoError(t, f.re.Render(PassConfig{}))
	assert.Equal(t, 1, f.re.Stats().DrawListRebuilds, "unchanged scene is not re-sorted")

	f.ctx.ResetCounters()
	la.SetPriority(5)
	require.NoError(t, f.re.Render(PassConfig{}))
	assert.Equal(t, []float32{2, 1}, f.drawnX())
	assert.Equal(t, 2, f.re.Stats().DrawListRebuilds)
}

func TestColourChangeKeepsDrawList(t *testing.T) {
	f := newFixture(t, nil)
	o := f.object(t, 1, nil)
	require.NoError(t, f.re.Render(PassConfig{}))
	require.NoError(t, f.re.Render(PassConfig{}))
	require.Equal(t, 1, f.re.Stats().DrawListRebuilds)

	m := o.Config().Material
	for i := range 5 {
		m.SetDiffuse(mgl32.Vec3{float32(i) / 5, 0, 0})
		o.Config().Modes.SetClippable(i%2 == 0)
		require.NoError(t, f.re.Render(PassConfig{}))
	}
	assert.Equal(t, 1, f.re.Stats().DrawListRebuilds)

	m.SetAlpha(0.5)
	require.NoError(t, f.re.Render(PassConfig{}))
	assert.Equal(t, 2, f.re.Stats().DrawListRebuilds, "alpha moves the object to the transparent bucket")

	o.Config().Modes.SetPickable(false)
	require.NoError(t, f.re.Render(PassConfig{}))
	assert.Equal(t, 3, f.re.Stats().DrawListRebuilds)
}

func TestTransparentDrawnLastWithBlending(t *testing.T) {
	f := newFixture(t, nil)
	f.object(t, 1, func(c *ObjectConfig) {
		m := state.DefaultMaterialConfig()
		m.Alpha = 0.5
		c.Material = state.NewMaterial(f.arena, m)
	})
	f.object(t, 2, func(c *ObjectConfig) { c.Layer = state.NewLayer(f.arena, 3) })
	hidden := f.object(t, 3, func(c *ObjectConfig) { c.Visibility = state.NewVisibility(f.arena, false) })

	require.NoError(t, f.re.Render(PassConfig{}))
	assert.Equal(t, []float32{2, 1}, f.drawnX())
	assert.Equal(t, 1, f.ctx.Calls["BlendAlpha"])

	f.ctx.ResetCounters()
	hidden.Config().Visibility.SetVisible(true)
	require.NoError(t, f.re.Render(PassConfig{}))
	assert.Equal(t, []float32{3, 2, 1}, f.drawnX())
}

func TestContextLossKeepsPrograms(t *testing.T) {
	f := newFixture(t, nil)
	o := f.object(t, 1, nil)
	require.NoError(t, f.re.Render(PassConfig{}))
	p := o.Program()
	gen := p.Generation()

	f.ctx.Lose()
	f.re.ContextLost()
	assert.ErrorIs(t, f.re.Render(PassConfig{}), ErrContextLost)
	_, err := f.re.Pick(PickParams{X: 50, Y: 50})
	assert.ErrorIs(t, err, ErrContextLost)

	f.ctx.Restore()
	require.NoError(t, f.re.ContextRestored())
	assert.False(t, f.re.IsContextLost())
	assert.Same(t, p, o.Program())
	assert.Equal(t, gen+1, p.Generation())
	assert.True(t, p.Usable(shader.Draw))
	assert.Positive(t, f.ctx.LiveBuffers())

	f.ctx.ResetCounters()
	require.NoError(t, f.re.Render(PassConfig{}))
	require.Len(t, f.ctx.DrawCalls, 1)
	assert.Equal(t, p.Handle(shader.Draw), f.ctx.DrawCalls[0].Program)
}

func TestFailedProgramSkippedAndLoggedOnce(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixture(t, zap.New(core))
	f.ctx.FailCompile = func(_ gpu.ShaderStage, src string) bool {
		return strings.Contains(src, "clipPos0")
	}
	bad := f.object(t, 1, func(c *ObjectConfig) {
		c.Clips = state.NewClips(f.arena, state.Clip{Active: true, Dir: mgl32.Vec3{1, 0, 0}})
	})
	f.object(t, 2, nil)

	for range 3 {
		require.NoError(t, f.re.Render(PassConfig{}))
		assert.Equal(t, 1, f.re.Stats().Skipped)
	}
	assert.Equal(t, []float32{2, 2, 2}, f.drawnX())

	skipped := logs.FilterMessage("skipping object with unusable program")
	require.Equal(t, 1, skipped.Len())
	fields := skipped.All()[0].ContextMap()
	assert.Equal(t, bad.ProgramKey(), fields["key"])
	assert.EqualValues(t, bad.ID(), fields["object"])

	var ce *program.CompileError
	require.ErrorAs(t, bad.Program().Err(), &ce)
	assert.Equal(t, program.ShaderCompileError, ce.Kind)
}

func TestPickObject(t *testing.T) {
	f := newFixture(t, nil)
	f.object(t, 1, nil)
	b := f.object(t, 2, nil)
	f.object(t, 3, func(c *ObjectConfig) {
		m := state.DefaultModes()
		m.Pickable = false
		c.Modes = state.NewModes(f.arena, m)
	})

	res, err := f.re.Pick(PickParams{X: 10, Y: 20})
	require.NoError(t, err)
	assert.Same(t, b, res.Object, "the mock reads back the last drawn pick colour")
	assert.Equal(t, -1, res.Primitive)

	assert.Contains(t, f.ctx.Viewports, [4]int{0, 0, 1, 1})
	assert.Equal(t, [4]int{0, 0, 100, 100}, f.ctx.Viewports[len(f.ctx.Viewports)-1])
	for _, dc := range f.ctx.DrawCalls {
		assert.Contains(t, dc.Uniforms, "pickColor")
	}

	res, err = f.re.Pick(PickParams{X: 200, Y: 20})
	require.NoError(t, err)
	assert.Nil(t, res.Object)
}

func TestPickPrimitive(t *testing.T) {
	f := newFixture(t, nil)
	f.object(t, 1, nil)
	b := f.object(t, 2, nil)
	f.ctx.PixelFunc = func(x, y int) [4]byte { return chunk.EncodePickIndex(1) }

	res, err := f.re.Pick(PickParams{X: 50, Y: 50, Primitive: true})
	require.NoError(t, err)
	assert.Same(t, b, res.Object)
	assert.Equal(t, 1, res.Primitive)
	last := f.ctx.DrawCalls[len(f.ctx.DrawCalls)-1]
	assert.False(t, last.Indexed)
	assert.Equal(t, 6, last.Count)

	f.ctx.PixelFunc = func(x, y int) [4]byte { return [4]byte{} }
	res, err = f.re.Pick(PickParams{X: 50, Y: 50, Primitive: true})
	require.NoError(t, err)
	assert.Nil(t, res.Object)
}

func TestPickCanvasMode(t *testing.T) {
	f := newFixture(t, nil)
	f.re.cfg.PickRegion = false
	f.object(t, 1, nil)
	var reads [][2]int
	f.ctx.PixelFunc = func(x, y int) [4]byte {
		reads = append(reads, [2]int{x, y})
		return chunk.EncodePickIndex(0)
	}
	res, err := f.re.Pick(PickParams{X: 10, Y: 20})
	require.NoError(t, err)
	assert.NotNil(t, res.Object)
	assert.Equal(t, [][2]int{{10, 79}}, reads)
	assert.Contains(t, f.ctx.Viewports, [4]int{0, 0, 100, 100})
}

func TestPickProjectionCentresPixel(t *testing.T) {
	proj := mgl32.Ident4()
	m := pickProjection(proj, 10, 20, 100, 100)
	// NDC centre of pixel (10, 20) with y flipped.
	ndc := mgl32.Vec4{(10.5/100)*2 - 1, ((100-20-0.5)/100)*2 - 1, 0, 1}
	got := m.Mul4x1(ndc)
	assert.InDelta(t, 0, got[0], 1e-4)
	assert.InDelta(t, 0, got[1], 1e-4)
}

func TestMultiPassRestoresCameraAndViewport(t *testing.T) {
	f := newFixture(t, nil)
	f.object(t, 1, nil)
	view := f.view.Matrix()
	proj := f.proj.Matrix()

	require.NoError(t, f.re.Render(StereoPasses(StereoConfig{
		EyeSeparation: 0.06, FocalDistance: 5, FOV: mgl32.DegToRad(60), Near: 0.1, Far: 100,
	})))
	assert.Equal(t, view, f.view.Matrix())
	assert.Equal(t, proj, f.proj.Matrix())
	assert.Equal(t, 1, f.ctx.Calls["Clear"])
	assert.Len(t, f.ctx.DrawCalls, 2)
	assert.Equal(t, 2, f.re.Stats().DrawCalls)
	assert.Contains(t, f.ctx.Viewports, [4]int{0, 0, 50, 100})
	assert.Contains(t, f.ctx.Viewports, [4]int{50, 0, 50, 100})
	assert.Equal(t, [4]int{0, 0, 100, 100}, f.ctx.Viewports[len(f.ctx.Viewports)-1])

	left := f.ctx.DrawCalls[0].Uniforms["viewMatrix"]
	right := f.ctx.DrawCalls[1].Uniforms["viewMatrix"]
	assert.NotEqual(t, left, right)

	f.ctx.ResetCounters()
	require.NoError(t, f.re.Render(PassConfig{Passes: 3, ClearEachPass: true}))
	assert.Equal(t, 3, f.ctx.Calls["Clear"])
}

func TestRenderTarget(t *testing.T) {
	f := newFixture(t, nil)
	f.object(t, 1, nil)
	st := state.NewRenderTarget(f.arena, 64, 32)
	rt, err := f.re.NewRenderTarget(st)
	require.NoError(t, err)
	assert.NotZero(t, rt.Texture())

	require.NoError(t, f.re.Render(PassConfig{Target: rt}))
	assert.Contains(t, f.ctx.Viewports, [4]int{0, 0, 64, 32})

	st.SetSize(128, 128)
	require.NoError(t, f.re.Render(PassConfig{Target: rt}))
	w, h := rt.Size()
	assert.Equal(t, [2]int{128, 128}, [2]int{w, h})

	rt.Release()
	assert.Zero(t, rt.Texture())
}

func TestDestroyedTargetPanics(t *testing.T) {
	f := newFixture(t, nil)
	f.object(t, 1, nil)
	st := state.NewRenderTarget(f.arena, 16, 16)
	rt, err := f.re.NewRenderTarget(st)
	require.NoError(t, err)

	st.Destroy()
	assert.PanicsWithError(t, "pass uses destroyed render target", func() {
		_ = f.re.Render(PassConfig{Target: rt})
	})
}

func TestFramebufferIncomplete(t *testing.T) {
	f := newFixture(t, nil)
	f.ctx.FramebufferStatus = func(gpu.Framebuffer) gpu.FramebufferStatus { return gpu.FramebufferUnsupported }
	before := f.ctx.LiveTextures()

	_, err := f.re.NewRenderTarget(state.NewRenderTarget(f.arena, 64, 64))
	var fe *FramebufferIncompleteError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, gpu.FramebufferUnsupported, fe.Status)
	assert.Equal(t, before, f.ctx.LiveTextures())

	f.ctx.FramebufferStatus = nil
	_, err = f.re.NewRenderTarget(state.NewRenderTarget(f.arena, 0, 64))
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, gpu.FramebufferIncompleteDimensions, fe.Status)
}

func TestStaleStatePanics(t *testing.T) {
	f := newFixture(t, nil)
	f.object(t, 1, nil)
	require.NoError(t, f.re.Render(PassConfig{}))
	f.geom.Destroy()
	assert.PanicsWithError(t, "object 0 references destroyed geometry", func() {
		_ = f.re.Render(PassConfig{})
	})
}

func TestRenderErrors(t *testing.T) {
	ctx := gputest.New()
	re := NewRenderer(ctx, state.NewArena(), DefaultConfig(), nil)
	err := re.Render(PassConfig{})
	assert.True(t, errors.Is(err, ErrNoCamera))
	_, err = re.Pick(PickParams{})
	assert.ErrorIs(t, err, ErrNoCamera)

	_, err = re.AddObject(ObjectConfig{})
	assert.Error(t, err)
}
