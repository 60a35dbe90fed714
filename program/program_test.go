package program

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"xeogl/frame"
	"xeogl/gpu"
	"xeogl/gpu/gputest"
	"xeogl/shader"
	"xeogl/state"
)

func features() shader.Features {
	return shader.Features{
		Dialect:   gpu.DialectWebGL1,
		Normals:   true,
		Primitive: gpu.Triangles,
		Material:  state.Phong,
		Lights:    []shader.LightFeature{{Type: state.DirLight, Space: state.ViewSpace}},
	}
}

func TestAcquireSharesPrograms(t *testing.T) {
	ctx := gputest.New()
	c := NewCache(ctx, zap.NewNop(), true)

	a := c.Acquire(features())
	b := c.Acquire(features())
	require.Same(t, a, b)
	assert.Equal(t, 2, a.UseCount())
	assert.Equal(t, 1, ctx.Calls["LinkProgram"]/int(shader.NumVariants))
	for v := range shader.NumVariants {
		st := a.Status(v)
		assert.True(t, st.Compiled && st.Linked && st.Validated, v.String())
		assert.True(t, a.Usable(v))
	}

	other := features()
	other.Clips = 1
	o := c.Acquire(other)
	assert.NotSame(t, a, o)
	assert.NotEqual(t, a.ID(), o.ID())
	assert.Equal(t, 2, c.Len())
}

func TestReleaseDeletesAtZero(t *testing.T) {
	ctx := gputest.New()
	c := NewCache(ctx, nil, false)
	a := c.Acquire(features())
	c.Acquire(features())
	id := a.ID()

	c.Release(a)
	assert.Equal(t, 1, a.UseCount())
	assert.Equal(t, 3, ctx.LivePrograms())

	c.Release(a)
	assert.True(t, a.Released())
	assert.Equal(t, 0, ctx.LivePrograms())
	assert.Equal(t, 0, c.Len())

	c.Release(a)
	assert.Equal(t, 0, a.UseCount(), "release after eviction is ignored")

	f := features()
	f.UV = true
	assert.Equal(t, id, c.Acquire(f).ID(), "slot id is reused")
}

func TestCompileFailureRecorded(t *testing.T) {
	ctx := gputest.New()
	ctx.FailCompile = func(stage gpu.ShaderStage, src string) bool {
		return stage == gpu.FragmentShader && strings.Contains(src, "materialDiffuse")
	}
	c := NewCache(ctx, nil, true)
	p := c.Acquire(features())

	st := p.Status(shader.Draw)
	assert.False(t, st.Compiled)
	assert.False(t, st.Linked)
	assert.False(t, st.Validated)
	require.NotNil(t, st.Err)
	assert.Equal(t, ShaderCompileError, st.Err.Kind)
	assert.Equal(t, gpu.FragmentShader, st.Err.Stage)
	assert.Contains(t, st.Err.InfoLog, "injected compile failure")
	assert.Contains(t, st.Err.Source, "1: ")
	assert.False(t, p.Usable(shader.Draw))
	assert.True(t, p.Usable(shader.PickObject))

	var ce *CompileError
	assert.ErrorAs(t, p.Err(), &ce)
	assert.True(t, p.MarkReported())
	assert.False(t, p.MarkReported())
}

func TestLinkAndValidateFailures(t *testing.T) {
	ctx := gputest.New()
	ctx.FailLink = func(gpu.Program) bool { return true }
	p := NewCache(ctx, nil, true).Acquire(features())
	st := p.Status(shader.PickObject)
	assert.True(t, st.Compiled)
	assert.False(t, st.Linked)
	assert.Equal(t, ProgramLinkError, st.Err.Kind)

	ctx = gputest.New()
	ctx.FailValidate = func(gpu.Program) bool { return true }
	p = NewCache(ctx, nil, true).Acquire(features())
	st = p.Status(shader.Draw)
	assert.True(t, st.Linked)
	assert.False(t, st.Validated)
	assert.Equal(t, ProgramValidateError, st.Err.Kind)
	assert.False(t, p.Usable(shader.Draw))
}

func TestRebuildInPlace(t *testing.T) {
	ctx := gputest.New()
	c := NewCache(ctx, nil, false)
	p := c.Acquire(features())
	key, id, gen := p.Key(), p.ID(), p.Generation()
	old := p.Handle(shader.Draw)

	ctx.Lose()
	ctx.Restore()
	c.Rebuild()

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Same(t, p, got)
	assert.Equal(t, id, p.ID())
	assert.Equal(t, gen+1, p.Generation())
	assert.NotEqual(t, old, p.Handle(shader.Draw))
	assert.True(t, p.Usable(shader.Draw))
	assert.Equal(t, 3, ctx.LivePrograms())
}

func TestUniformShortCircuit(t *testing.T) {
	ctx := gputest.New()
	p := NewCache(ctx, nil, false).Acquire(features())
	ctx.UseProgram(p.Handle(shader.Draw))

	u := p.Uniform(ctx, shader.Draw, "materialDiffuse")
	require.NotNil(t, u)
	ctx.ResetCounters()

	assert.True(t, u.SetVec3(mgl32.Vec3{1, 0, 0}))
	assert.False(t, u.SetVec3(mgl32.Vec3{1, 0, 0}))
	assert.Equal(t, 1, ctx.Calls["Uniform3fv"])
	assert.True(t, u.SetVec3(mgl32.Vec3{1, 0, 0.5}))
	assert.Equal(t, 2, ctx.Calls["Uniform3fv"])

	missing := p.Uniform(ctx, shader.Draw, "clipActive0")
	assert.Nil(t, missing)
	assert.False(t, missing.SetBool(true))
	assert.Equal(t, -1, p.Attrib(ctx, shader.Draw, "uv"))
	assert.GreaterOrEqual(t, p.Attrib(ctx, shader.Draw, "position"), 0)
}

func TestSamplerBind(t *testing.T) {
	ctx := gputest.New()
	f := features()
	f.UV = true
	f.Maps = []state.TextureSlot{state.DiffuseMap, state.EmissiveMap}
	p := NewCache(ctx, nil, false).Acquire(f)
	ctx.UseProgram(p.Handle(shader.Draw))

	fc := frame.New(ctx.MaxTextureImageUnits(), nil, nil)
	fc.BeginDraw()
	p.Sampler(ctx, shader.Draw, "diffuseMap").Bind(fc, 11)
	p.Sampler(ctx, shader.Draw, "emissiveMap").Bind(fc, 12)
	p.Sampler(ctx, shader.Draw, "specularMap").Bind(fc, 13)

	assert.Equal(t, []gputest.TextureBind{{Unit: 0, Texture: 11}, {Unit: 1, Texture: 12}}, ctx.TextureBinds)
	v, ok := ctx.UniformValue(p.Handle(shader.Draw), "emissiveMap")
	require.True(t, ok)
	assert.Equal(t, []float32{1}, v)
	assert.Equal(t, 2, fc.TextureBinds)
}

func TestCollidingKeysGetOwnSlots(t *testing.T) {
	ctx := gputest.New()
	c := NewCache(ctx, nil, false)
	c.keyOf = func(shader.Features) string { return "k" }
	fa := features()
	fb := features()
	fb.Clips = 2

	a := c.Acquire(fa)
	b := c.Acquire(fb)
	require.NotSame(t, a, b)
	assert.Equal(t, "k", a.Key())
	assert.Equal(t, "k#1", b.Key())
	assert.Equal(t, 1, c.Collisions)

	c.Release(a)
	assert.Same(t, b, c.Acquire(fb), "a free base slot does not hide the later one")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, b.UseCount())

	a2 := c.Acquire(fa)
	assert.Equal(t, "k", a2.Key())
	assert.Equal(t, 2, c.Len())

	c.Release(a2)
	c.Release(b)
	c.Release(b)
	assert.Zero(t, c.Len())
	assert.Empty(t, c.chains)
}

func TestAliasedUnitsWarnOncePerProgram(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := gputest.New()
	f := features()
	f.UV = true
	f.Maps = []state.TextureSlot{state.DiffuseMap, state.EmissiveMap}
	p := NewCache(ctx, zap.New(core), false).Acquire(f)
	ctx.UseProgram(p.Handle(shader.Draw))

	fc := frame.New(1, nil, nil)
	for range 3 {
		fc.BeginDraw()
		p.Sampler(ctx, shader.Draw, "diffuseMap").Bind(fc, 11)
		p.Sampler(ctx, shader.Draw, "emissiveMap").Bind(fc, 12)
	}
	assert.Equal(t, 3, fc.TextureUnitCollisions)
	entries := logs.FilterMessage("texture units aliased within one draw").All()
	require.Len(t, entries, 1)
	assert.Equal(t, p.Key(), entries[0].ContextMap()["key"])
}

func TestAnnotate(t *testing.T) {
	assert.Equal(t, "1: a\n2: b\n", annotate("a\nb\n"))
}
