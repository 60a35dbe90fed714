// Package program compiles generated shader sources into GPU programs and
// caches them by feature key with reference counting.
package program

import (
	"errors"

	"go.uber.org/zap"

	"xeogl/gpu"
	"xeogl/shader"
)

// Status is the build outcome of one variant.
type Status struct {
	Compiled  bool
	Linked    bool
	Validated bool
	Err       *CompileError
}

type variant struct {
	handle   gpu.Program
	status   Status
	uniforms map[string]*Uniform
	samplers map[string]*Sampler
	attribs  map[string]int
}

// Program owns the GPU programs of the draw, object-pick and primitive-pick
// variants generated for one feature set. Objects hold a Program by pointer;
// the cache rebuilds it in place after a context loss.
type Program struct {
	id         int
	key        string
	base       string
	features   shader.Features
	sources    shader.Sources
	useCount   int
	generation int
	released   bool
	reported   bool
	variants   [shader.NumVariants]variant

	logger        *zap.Logger
	aliasReported bool
}

// ID is a small integer slot, stable for the life of the Program. Draw lists
// sort by it.
func (p *Program) ID() int                   { return p.id }
func (p *Program) Key() string               { return p.key }
func (p *Program) Features() shader.Features { return p.features }
func (p *Program) Sources() shader.Sources   { return p.sources }
func (p *Program) UseCount() int             { return p.useCount }
func (p *Program) Released() bool            { return p.released }

// Generation changes every time the program is rebuilt. Anything holding
// locations resolved against the program must compare it before use.
func (p *Program) Generation() int { return p.generation }

func (p *Program) Status(v shader.Variant) Status { return p.variants[v].status }

// Usable reports whether variant v compiled, linked and, when validation is
// enabled, validated.
func (p *Program) Usable(v shader.Variant) bool {
	return !p.released && p.variants[v].status.Err == nil && p.variants[v].status.Linked
}

func (p *Program) Handle(v shader.Variant) gpu.Program { return p.variants[v].handle }

// Err joins the errors of every failed variant.
func (p *Program) Err() error {
	var errs []error
	for i := range p.variants {
		if e := p.variants[i].status.Err; e != nil {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

// MarkReported returns true the first time it is called for this build of
// the program, so failures are logged once rather than every frame.
func (p *Program) MarkReported() bool {
	if p.reported {
		return false
	}
	p.reported = true
	return true
}

// Uniform resolves name on variant v. Absent names yield nil.
func (p *Program) Uniform(ctx gpu.Context, v shader.Variant, name string) *Uniform {
	vp := &p.variants[v]
	if u, ok := vp.uniforms[name]; ok {
		return u
	}
	var u *Uniform
	if vp.status.Linked {
		if loc := ctx.GetUniformLocation(vp.handle, name); loc != gpu.NoLocation {
			u = &Uniform{ctx: ctx, loc: loc}
		}
	}
	vp.uniforms[name] = u
	return u
}

// Sampler resolves a sampler2D uniform on variant v. Absent names yield nil.
func (p *Program) Sampler(ctx gpu.Context, v shader.Variant, name string) *Sampler {
	vp := &p.variants[v]
	if s, ok := vp.samplers[name]; ok {
		return s
	}
	var s *Sampler
	if u := p.Uniform(ctx, v, name); u != nil {
		s = &Sampler{u: u, p: p}
	}
	vp.samplers[name] = s
	return s
}

// Attrib resolves a vertex attribute on variant v, or -1.
func (p *Program) Attrib(ctx gpu.Context, v shader.Variant, name string) int {
	vp := &p.variants[v]
	if loc, ok := vp.attribs[name]; ok {
		return loc
	}
	loc := -1
	if vp.status.Linked {
		loc = ctx.GetAttribLocation(vp.handle, name)
	}
	vp.attribs[name] = loc
	return loc
}

func (p *Program) build(ctx gpu.Context, validate bool) {
	p.generation++
	p.reported = false
	for v := range shader.NumVariants {
		p.variants[v] = buildVariant(ctx, v, p.sources[v], validate)
	}
}

func (p *Program) destroy(ctx gpu.Context) {
	for i := range p.variants {
		if h := p.variants[i].handle; h != 0 {
			ctx.DeleteProgram(h)
		}
		p.variants[i] = variant{}
	}
	p.released = true
}

func buildVariant(ctx gpu.Context, v shader.Variant, src shader.Pair, validate bool) variant {
	out := variant{
		uniforms: map[string]*Uniform{},
		samplers: map[string]*Sampler{},
		attribs:  map[string]int{},
	}
	fail := func(kind FailureKind, stage gpu.ShaderStage, log, source string) variant {
		out.status.Err = &CompileError{Variant: v, Kind: kind, Stage: stage, InfoLog: log, Source: source}
		return out
	}

	vs, err := compileShader(ctx, gpu.VertexShader, src.Vertex)
	if err != nil {
		err.Variant = v
		out.status.Err = err
		return out
	}
	fs, err := compileShader(ctx, gpu.FragmentShader, src.Fragment)
	if err != nil {
		ctx.DeleteShader(vs)
		err.Variant = v
		out.status.Err = err
		return out
	}
	out.status.Compiled = true

	prog := ctx.CreateProgram()
	if prog == 0 {
		ctx.DeleteShader(vs)
		ctx.DeleteShader(fs)
		return fail(ProgramLinkError, gpu.VertexShader, "unable to allocate program", "")
	}
	ctx.AttachShader(prog, vs)
	ctx.AttachShader(prog, fs)
	ctx.LinkProgram(prog)
	ctx.DeleteShader(vs)
	ctx.DeleteShader(fs)
	both := annotate(src.Vertex) + "\n" + annotate(src.Fragment)
	if !ctx.ProgramLinked(prog) {
		log := ctx.ProgramInfoLog(prog)
		ctx.DeleteProgram(prog)
		return fail(ProgramLinkError, gpu.VertexShader, log, both)
	}
	out.handle = prog
	out.status.Linked = true
	if validate {
		ctx.ValidateProgram(prog)
		if !ctx.ProgramValidated(prog) {
			return fail(ProgramValidateError, gpu.VertexShader, ctx.ProgramInfoLog(prog), both)
		}
		out.status.Validated = true
	}
	return out
}

func compileShader(ctx gpu.Context, stage gpu.ShaderStage, src string) (gpu.Shader, *CompileError) {
	s := ctx.CreateShader(stage)
	if s == 0 {
		return 0, &CompileError{Kind: ShaderCompileError, Stage: stage, InfoLog: "unable to allocate shader", Source: annotate(src)}
	}
	ctx.ShaderSource(s, src)
	ctx.CompileShader(s)
	if !ctx.ShaderCompiled(s) {
		log := ctx.ShaderInfoLog(s)
		ctx.DeleteShader(s)
		return 0, &CompileError{Kind: ShaderCompileError, Stage: stage, InfoLog: log, Source: annotate(src)}
	}
	return s, nil
}
