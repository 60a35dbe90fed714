package renderer

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"

	"xeogl/chunk"
	"xeogl/program"
	"xeogl/shader"
	"xeogl/state"
)

// ObjectConfig is the set of states an object draws with. The renderer
// never mutates them. Geometry is required; nil entries use defaults.
type ObjectConfig struct {
	Geometry       *state.Geometry
	Material       *state.Material
	ModelTransform *state.ModelTransform
	Visibility     *state.Visibility
	Modes          *state.Modes
	Layer          *state.Layer
	Stage          *state.Stage
	Clips          *state.Clips
	Lights         *state.Lights
	Billboard      *state.Billboard
	Params         *state.ShaderParams
}

// input is one shader-affecting state as last seen by the object.
type input struct {
	s  state.State
	hv uint64
}

func inputOf(s state.State, present bool) input {
	if !present {
		return input{}
	}
	return input{s: s, hv: s.HashVersion()}
}

// Object is the compiled, renderer-facing form of one drawable entity.
type Object struct {
	re        *Renderer
	id        int
	cfg       ObjectConfig
	program   *program.Program
	inputs    [6]input
	buffers   *chunk.Buffers
	pickIndex int
	cancels   []func()
	removed   bool

	// Bucket membership as of the last Material or Modes notification.
	transparent bool
	pickable    bool
}

func (o *Object) ID() int                   { return o.id }
func (o *Object) Config() ObjectConfig      { return o.cfg }
func (o *Object) Program() *program.Program { return o.program }
func (o *Object) Removed() bool             { return o.removed }

// ProgramKey is the cache key of the object's current program, empty before
// the first frame.
func (o *Object) ProgramKey() string {
	if o.program == nil {
		return ""
	}
	return o.program.Key()
}

// Set replaces the object's states.
func (o *Object) Set(cfg ObjectConfig) error {
	if cfg.Geometry == nil {
		return errors.New("renderer: object needs a geometry")
	}
	o.unsubscribe()
	o.cfg = cfg
	o.subscribe()
	o.re.compiler.MarkStateOrderDirty()
	o.re.compiler.MarkDrawListDirty()
	return nil
}

// Release removes the object from its renderer.
func (o *Object) Release() { o.re.RemoveObject(o) }

func (o *Object) subscribe() {
	order := func(state.State) { o.re.compiler.MarkStateOrderDirty() }
	c := &o.cfg
	if c.Layer != nil {
		o.cancels = append(o.cancels, c.Layer.Subscribe(order))
	}
	if c.Stage != nil {
		o.cancels = append(o.cancels, c.Stage.Subscribe(order))
	}
	o.transparent, o.pickable = o.Transparent(), o.Pickable()
	bucket := func(state.State) {
		t, p := o.Transparent(), o.Pickable()
		if t != o.transparent || p != o.pickable {
			o.transparent, o.pickable = t, p
			o.re.compiler.MarkStateOrderDirty()
		}
	}
	if c.Modes != nil {
		o.cancels = append(o.cancels, c.Modes.Subscribe(bucket))
	}
	if c.Material != nil {
		o.cancels = append(o.cancels, c.Material.Subscribe(bucket))
	}
	if c.Visibility != nil {
		o.cancels = append(o.cancels, c.Visibility.Subscribe(func(state.State) {
			o.re.compiler.MarkDrawListDirty()
		}))
	}
}

func (o *Object) unsubscribe() {
	for _, cancel := range o.cancels {
		cancel()
	}
	o.cancels = nil
}

func (o *Object) signature() [6]input {
	c := &o.cfg
	return [6]input{
		inputOf(c.Geometry, c.Geometry != nil),
		inputOf(c.Material, c.Material != nil),
		inputOf(c.Lights, c.Lights != nil),
		inputOf(c.Clips, c.Clips != nil),
		inputOf(c.Billboard, c.Billboard != nil),
		inputOf(c.Params, c.Params != nil),
	}
}

// checkStale panics when the object still references a destroyed state.
func (o *Object) checkStale() {
	c := &o.cfg
	for _, s := range []struct {
		name    string
		present bool
		st      state.State
	}{
		{"geometry", c.Geometry != nil, c.Geometry},
		{"material", c.Material != nil, c.Material},
		{"model transform", c.ModelTransform != nil, c.ModelTransform},
		{"visibility", c.Visibility != nil, c.Visibility},
		{"modes", c.Modes != nil, c.Modes},
		{"layer", c.Layer != nil, c.Layer},
		{"stage", c.Stage != nil, c.Stage},
		{"clips", c.Clips != nil, c.Clips},
		{"lights", c.Lights != nil, c.Lights},
		{"billboard", c.Billboard != nil, c.Billboard},
		{"shader params", c.Params != nil, c.Params},
	} {
		if s.present && s.st.Destroyed() {
			panic(&StaleResourceError{Object: o.id, Resource: s.name})
		}
	}
	if o.program != nil && o.program.Released() {
		panic(&StaleResourceError{Object: o.id, Resource: "program"})
	}
}

// sync re-derives the program when any contributing state's hash changed
// and refreshes the geometry buffers.
func (o *Object) sync() {
	o.checkStale()
	re := o.re
	sig := o.signature()
	if o.program == nil || sig != o.inputs {
		o.inputs = sig
		c := &o.cfg
		f := shader.FeaturesOf(re.ctx.Dialect(), shader.Inputs{
			Geometry:  c.Geometry,
			Material:  c.Material,
			Lights:    c.Lights,
			Clips:     c.Clips,
			Billboard: c.Billboard,
			Params:    c.Params,
		})
		p := re.programs.Acquire(f)
		if old := o.program; old != nil {
			re.releaseProgram(old)
		}
		if o.program != p {
			re.compiler.MarkStateOrderDirty()
		}
		o.program = p
	}
	o.buffers = re.geometries.Get(o.cfg.Geometry)
}

// drawlist.Entry

func (o *Object) StagePriority() int {
	if o.cfg.Stage == nil {
		return 0
	}
	return o.cfg.Stage.Priority()
}

func (o *Object) LayerPriority() int {
	if o.cfg.Layer == nil {
		return 0
	}
	return o.cfg.Layer.Priority()
}

func (o *Object) ProgramID() int {
	if o.program == nil {
		return -1
	}
	return o.program.ID()
}

// Transparent is the effective transparency: the Modes flag, or a material
// that is not fully opaque.
func (o *Object) Transparent() bool {
	if o.cfg.Modes != nil && o.cfg.Modes.Transparent() {
		return true
	}
	return o.cfg.Material != nil && o.cfg.Material.Alpha() < 1
}

func (o *Object) Pickable() bool {
	return o.cfg.Modes == nil || o.cfg.Modes.Pickable()
}

func (o *Object) Visible() bool {
	return o.cfg.Visibility == nil || o.cfg.Visibility.Visible()
}

// chunk.Source

func (o *Object) ModelTransform() *state.ModelTransform { return o.cfg.ModelTransform }
func (o *Object) Material() *state.Material             { return o.cfg.Material }
func (o *Object) Lights() *state.Lights                 { return o.cfg.Lights }
func (o *Object) Clips() *state.Clips                   { return o.cfg.Clips }
func (o *Object) Modes() *state.Modes                   { return o.cfg.Modes }
func (o *Object) Params() *state.ShaderParams           { return o.cfg.Params }
func (o *Object) Geometry() *state.Geometry             { return o.cfg.Geometry }
func (o *Object) Buffers() *chunk.Buffers               { return o.buffers }

// PickColor encodes the object's position in the current pick list.
func (o *Object) PickColor() mgl32.Vec4 {
	px := chunk.EncodePickIndex(o.pickIndex)
	return mgl32.Vec4{float32(px[0]) / 255, float32(px[1]) / 255, float32(px[2]) / 255, 1}
}
