// Package renderer compiles objects into sorted draw lists and executes
// draw and pick passes against a gpu.Context.
package renderer

import (
	"errors"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"xeogl/chunk"
	"xeogl/drawlist"
	"xeogl/frame"
	"xeogl/gpu"
	"xeogl/internal/logger"
	"xeogl/program"
	"xeogl/shader"
	"xeogl/state"
)

// Config holds the renderer options.
type Config struct {
	ValidatePrograms bool       `toml:"validate_programs"`
	ClearColor       mgl32.Vec4 `toml:"clear_color"`
	ClearEachPass    bool       `toml:"clear_each_pass"`
	// Blend enables alpha blending for the transparent bucket.
	Blend bool `toml:"transparency_blending"`
	// PickRegion renders picks into a 1x1 target through a pick projection
	// instead of a canvas-sized target.
	PickRegion bool `toml:"pick_region"`
	// MaxTextureUnits caps the units handed out per draw; 0 uses the
	// context's limit.
	MaxTextureUnits int `toml:"max_texture_units"`
}

func DefaultConfig() Config {
	return Config{
		ValidatePrograms: true,
		ClearColor:       mgl32.Vec4{0, 0, 0, 1},
		Blend:            true,
		PickRegion:       true,
	}
}

// Stats are the counters of the most recent Render, plus resource totals.
type Stats struct {
	frame.Counters
	Objects          int
	Programs         int
	Geometries       int
	Textures         int
	Skipped          int
	DrawListRebuilds int
	Frames           int
}

// Renderer owns the program cache, GPU resources and draw list of a set of
// objects drawn on one context.
type Renderer struct {
	ctx    gpu.Context
	cfg    Config
	logger *zap.Logger
	arena  *state.Arena

	programs   *program.Cache
	textures   *chunk.Textures
	geometries *chunk.Geometries
	sets       map[*program.Program]*[shader.NumVariants]*chunk.Set
	compiler   *drawlist.Compiler[*Object]
	objects    []*Object
	nextID     int

	view     *state.ViewTransform
	proj     *state.ProjTransform
	pickProj *state.ProjTransform
	viewport Viewport

	targets    []*RenderTarget
	pickTarget *RenderTarget

	lost    bool
	skipped int
	stats   Stats
}

// NewRenderer creates a renderer drawing on ctx. States referenced by its
// objects must come from arena. A nil logger discards output.
func NewRenderer(ctx gpu.Context, arena *state.Arena, cfg Config, log *zap.Logger) *Renderer {
	log = logger.OrNop(log).Named("renderer")
	re := &Renderer{
		ctx:        ctx,
		cfg:        cfg,
		logger:     log,
		arena:      arena,
		programs:   program.NewCache(ctx, log, cfg.ValidatePrograms),
		textures:   chunk.NewTextures(ctx),
		geometries: chunk.NewGeometries(ctx),
		sets:       map[*program.Program]*[shader.NumVariants]*chunk.Set{},
		compiler:   drawlist.NewCompiler[*Object](),
		pickProj:   state.NewProjTransform(arena, mgl32.Ident4()),
	}
	log.Info("renderer initialized",
		zap.Stringer("dialect", ctx.Dialect()),
		zap.Int("textureUnits", re.maxUnits()))
	return re
}

func (re *Renderer) Arena() *state.Arena      { return re.arena }
func (re *Renderer) Programs() *program.Cache { return re.programs }

func (re *Renderer) maxUnits() int {
	n := re.ctx.MaxTextureImageUnits()
	if re.cfg.MaxTextureUnits > 0 && re.cfg.MaxTextureUnits < n {
		n = re.cfg.MaxTextureUnits
	}
	return n
}

// SetCamera sets the view and projection every pass draws with.
func (re *Renderer) SetCamera(view *state.ViewTransform, proj *state.ProjTransform) {
	re.view, re.proj = view, proj
}

// SetCanvasSize sets the drawable size of the default framebuffer.
func (re *Renderer) SetCanvasSize(width, height int) {
	re.viewport = Viewport{Width: width, Height: height}
}

func (re *Renderer) CanvasSize() (int, int) { return re.viewport.Width, re.viewport.Height }

// AddObject compiles a new object. Its program is derived on the next frame.
func (re *Renderer) AddObject(cfg ObjectConfig) (*Object, error) {
	if cfg.Geometry == nil {
		return nil, errors.New("renderer: object needs a geometry")
	}
	o := &Object{re: re, id: re.nextID, cfg: cfg}
	re.nextID++
	o.subscribe()
	re.objects = append(re.objects, o)
	re.compiler.MarkDrawListDirty()
	return o, nil
}

// RemoveObject drops o and its reference on its program.
func (re *Renderer) RemoveObject(o *Object) {
	if o == nil || o.removed || o.re != re {
		return
	}
	o.removed = true
	o.unsubscribe()
	if o.program != nil {
		re.releaseProgram(o.program)
		o.program = nil
	}
	o.buffers = nil
	re.objects = slices.DeleteFunc(re.objects, func(x *Object) bool { return x == o })
	re.compiler.MarkDrawListDirty()
}

func (re *Renderer) Objects() []*Object { return re.objects }

func (re *Renderer) entries() []*Object { return re.objects }

func (re *Renderer) releaseProgram(p *program.Program) {
	re.programs.Release(p)
	if p.Released() {
		delete(re.sets, p)
	}
}

// chunkSet returns the shared binders of p's variant v, rebuilding them when
// p has been rebuilt.
func (re *Renderer) chunkSet(p *program.Program, v shader.Variant) *chunk.Set {
	sets := re.sets[p]
	if sets == nil {
		sets = &[shader.NumVariants]*chunk.Set{}
		re.sets[p] = sets
	}
	s := sets[v]
	if s == nil || s.Stale() {
		s = chunk.NewSet(re.ctx, re.textures, p, v)
		sets[v] = s
	}
	return s
}

// prepare frees resources of destroyed states and brings every object's
// program and buffers up to date.
func (re *Renderer) prepare() {
	if n := re.geometries.Prune() + re.textures.Prune(); n > 0 {
		re.logger.Debug("released destroyed resources", zap.Int("count", n))
	}
	for _, o := range re.objects {
		o.sync()
	}
}

// ContextLost refuses rendering until ContextRestored.
func (re *Renderer) ContextLost() {
	re.lost = true
	re.logger.Warn("GPU context lost")
}

// ContextRestored rebuilds every program in place and re-uploads geometry,
// textures and render targets. Objects keep their Program pointers.
func (re *Renderer) ContextRestored() error {
	re.programs.Rebuild()
	re.geometries.Restore()
	re.textures.Restore()
	var errs []error
	for _, t := range re.targets {
		t.fb, t.color, t.depth = 0, 0, 0
		if err := t.allocate(); err != nil {
			errs = append(errs, err)
		}
	}
	re.lost = false
	re.logger.Info("GPU context restored", zap.Int("programs", re.programs.Len()))
	return errors.Join(errs...)
}

func (re *Renderer) IsContextLost() bool { return re.lost }

// Stats returns counters from the most recent Render.
func (re *Renderer) Stats() Stats {
	s := re.stats
	s.Objects = len(re.objects)
	s.Programs = re.programs.Len()
	s.Geometries = re.geometries.Len()
	s.Textures = re.textures.Len()
	s.DrawListRebuilds = re.compiler.Rebuilds
	return s
}

// Destroy removes every object and releases all GPU resources.
func (re *Renderer) Destroy() {
	for _, o := range slices.Clone(re.objects) {
		re.RemoveObject(o)
	}
	for _, t := range slices.Clone(re.targets) {
		t.Release()
	}
	if re.pickTarget != nil {
		re.pickTarget.state.Destroy()
		re.pickTarget = nil
	}
	re.pickProj.Destroy()
	re.geometries.ReleaseAll()
	re.textures.ReleaseAll()
	re.logger.Debug("renderer destroyed")
}
