// Package chunk binds render state values to the uniforms, samplers and
// attributes of a compiled program. A Set holds one binder per state kind,
// resolved once against one build of one program variant and shared by
// every object drawn with that program.
package chunk

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"xeogl/frame"
	"xeogl/gpu"
	"xeogl/program"
	"xeogl/shader"
	"xeogl/state"
)

// Source is what a Set reads from the object being drawn.
type Source interface {
	ModelTransform() *state.ModelTransform
	Material() *state.Material
	Lights() *state.Lights
	Clips() *state.Clips
	Modes() *state.Modes
	Params() *state.ShaderParams
	Geometry() *state.Geometry
	Buffers() *Buffers
	PickColor() mgl32.Vec4
}

type binder interface {
	draw(fc *frame.Context, src Source)
}

// Set is the ordered binders of one program variant.
type Set struct {
	program    *program.Program
	variant    shader.Variant
	generation int
	binders    []binder
}

// NewSet resolves every location the variant may use. Locations the program
// does not have are skipped.
func NewSet(ctx gpu.Context, textures *Textures, p *program.Program, v shader.Variant) *Set {
	s := &Set{program: p, variant: v, generation: p.Generation()}
	f := p.Features()
	s.binders = append(s.binders,
		newView(ctx, p, v),
		newProj(ctx, p, v),
		newModel(ctx, p, v),
	)
	if v == shader.Draw {
		s.binders = append(s.binders,
			newMaterial(ctx, textures, p),
			newLights(ctx, p, len(f.Lights)),
		)
	}
	if f.Clips > 0 {
		s.binders = append(s.binders, newClips(ctx, p, v, f.Clips))
	}
	if v == shader.Draw && len(f.Params) > 0 {
		s.binders = append(s.binders, newParams(ctx, p, f.Params))
	}
	s.binders = append(s.binders, newGeometry(ctx, p, v))
	if v == shader.PickObject {
		s.binders = append(s.binders, &pickChunk{color: p.Uniform(ctx, v, "pickColor")})
	}
	return s
}

func (s *Set) Program() *program.Program { return s.program }
func (s *Set) Variant() shader.Variant   { return s.variant }

// Stale reports whether the program has been rebuilt since the Set was
// resolved.
func (s *Set) Stale() bool { return s.generation != s.program.Generation() }

// Draw pushes src's state in the fixed order view, projection, model
// transform, material, lights, clips, params, geometry and pick colour.
func (s *Set) Draw(fc *frame.Context, src Source) {
	for _, b := range s.binders {
		b.draw(fc, src)
	}
}

func push(fc *frame.Context, pushed bool) {
	if pushed {
		fc.UniformPushes++
	}
}

type viewChunk struct {
	matrix, normal *program.Uniform
}

func newView(ctx gpu.Context, p *program.Program, v shader.Variant) *viewChunk {
	return &viewChunk{
		matrix: p.Uniform(ctx, v, "viewMatrix"),
		normal: p.Uniform(ctx, v, "viewNormalMatrix"),
	}
}

func (c *viewChunk) draw(fc *frame.Context, _ Source) {
	if fc.View == nil {
		return
	}
	push(fc, c.matrix.SetMat4(fc.View.Matrix()))
	push(fc, c.normal.SetMat4(fc.View.NormalMatrix()))
}

type projChunk struct {
	matrix *program.Uniform
}

func newProj(ctx gpu.Context, p *program.Program, v shader.Variant) *projChunk {
	return &projChunk{matrix: p.Uniform(ctx, v, "projMatrix")}
}

func (c *projChunk) draw(fc *frame.Context, _ Source) {
	if fc.Proj != nil {
		push(fc, c.matrix.SetMat4(fc.Proj.Matrix()))
	}
}

type modelChunk struct {
	matrix, normal *program.Uniform
}

func newModel(ctx gpu.Context, p *program.Program, v shader.Variant) *modelChunk {
	return &modelChunk{
		matrix: p.Uniform(ctx, v, "modelMatrix"),
		normal: p.Uniform(ctx, v, "modelNormalMatrix"),
	}
}

func (c *modelChunk) draw(fc *frame.Context, src Source) {
	m := src.ModelTransform()
	if m == nil {
		fc.LastModelTransform = -1
		push(fc, c.matrix.SetMat4(mgl32.Ident4()))
		push(fc, c.normal.SetMat4(mgl32.Ident4()))
		return
	}
	if fc.LastModelTransform == m.ID() {
		return
	}
	fc.LastModelTransform = m.ID()
	push(fc, c.matrix.SetMat4(m.Matrix()))
	push(fc, c.normal.SetMat4(m.NormalMatrix()))
}

type materialChunk struct {
	textures  *Textures
	diffuse   *program.Uniform
	specular  *program.Uniform
	emissive  *program.Uniform
	shininess *program.Uniform
	alpha     *program.Uniform
	samplers  [state.NumTextureSlots]*program.Sampler
}

func newMaterial(ctx gpu.Context, textures *Textures, p *program.Program) *materialChunk {
	c := &materialChunk{
		textures:  textures,
		diffuse:   p.Uniform(ctx, shader.Draw, "materialDiffuse"),
		specular:  p.Uniform(ctx, shader.Draw, "materialSpecular"),
		emissive:  p.Uniform(ctx, shader.Draw, "materialEmissive"),
		shininess: p.Uniform(ctx, shader.Draw, "materialShininess"),
		alpha:     p.Uniform(ctx, shader.Draw, "materialAlpha"),
	}
	for slot := range state.NumTextureSlots {
		c.samplers[slot] = p.Sampler(ctx, shader.Draw, slot.String())
	}
	return c
}

func (c *materialChunk) draw(fc *frame.Context, src Source) {
	m := src.Material()
	if m == nil || fc.LastMaterial == m.ID() {
		return
	}
	fc.LastMaterial = m.ID()
	cfg := m.Config()
	push(fc, c.diffuse.SetVec3(cfg.Diffuse))
	push(fc, c.specular.SetVec3(cfg.Specular))
	push(fc, c.emissive.SetVec3(cfg.Emissive))
	push(fc, c.shininess.Set1f(cfg.Shininess))
	push(fc, c.alpha.Set1f(cfg.Alpha))
	// Uploads bind on the active unit, so every map is resolved before the
	// first sampler takes a unit.
	var handles [state.NumTextureSlots]gpu.Texture
	for slot, s := range c.samplers {
		if t := m.Map(state.TextureSlot(slot)); s != nil && t != nil {
			handles[slot] = c.textures.Get(t)
		}
	}
	for slot, s := range c.samplers {
		if s != nil && m.Map(state.TextureSlot(slot)) != nil {
			s.Bind(fc, handles[slot])
		}
	}
}

type lightUniforms struct {
	color, dir, pos, attenuation, cutoff *program.Uniform
}

type lightsChunk struct {
	ambient *program.Uniform
	lights  []lightUniforms
}

func newLights(ctx gpu.Context, p *program.Program, n int) *lightsChunk {
	c := &lightsChunk{ambient: p.Uniform(ctx, shader.Draw, "lightAmbient")}
	u := func(name string, i int) *program.Uniform {
		return p.Uniform(ctx, shader.Draw, name+strconv.Itoa(i))
	}
	for i := range n {
		c.lights = append(c.lights, lightUniforms{
			color:       u("lightColor", i),
			dir:         u("lightDir", i),
			pos:         u("lightPos", i),
			attenuation: u("lightAttenuation", i),
			cutoff:      u("lightCutoff", i),
		})
	}
	return c
}

func (c *lightsChunk) draw(fc *frame.Context, src Source) {
	l := src.Lights()
	if l == nil || fc.LastLights == l.ID() {
		return
	}
	fc.LastLights = l.ID()
	push(fc, c.ambient.SetVec4(l.Ambient()))
	j := 0
	l.Each(func(_ int, lt state.Light) {
		if lt.Type == state.AmbientLight || j >= len(c.lights) {
			return
		}
		u := c.lights[j]
		j++
		push(fc, u.color.SetVec4(lt.Color.Vec4(lt.Intensity)))
		push(fc, u.dir.SetVec3(lt.Dir))
		push(fc, u.pos.SetVec3(lt.Pos))
		push(fc, u.attenuation.SetVec3(lt.Attenuation))
		push(fc, u.cutoff.Set1f(lt.Cutoff))
	})
}

type clipUniforms struct {
	active, pos, dir *program.Uniform
}

type clipsChunk struct {
	clippable *program.Uniform
	clips     []clipUniforms
}

func newClips(ctx gpu.Context, p *program.Program, v shader.Variant, n int) *clipsChunk {
	c := &clipsChunk{clippable: p.Uniform(ctx, v, "clippable")}
	for i := range n {
		c.clips = append(c.clips, clipUniforms{
			active: p.Uniform(ctx, v, "clipActive"+strconv.Itoa(i)),
			pos:    p.Uniform(ctx, v, "clipPos"+strconv.Itoa(i)),
			dir:    p.Uniform(ctx, v, "clipDir"+strconv.Itoa(i)),
		})
	}
	return c
}

func (c *clipsChunk) draw(fc *frame.Context, src Source) {
	modes := src.Modes()
	push(fc, c.clippable.SetBool(modes == nil || modes.Clippable()))
	clips := src.Clips()
	if clips == nil || fc.LastClips == clips.ID() {
		return
	}
	fc.LastClips = clips.ID()
	for i := 0; i < clips.Len() && i < len(c.clips); i++ {
		clip := clips.At(i)
		push(fc, c.clips[i].active.SetBool(clip.Active))
		push(fc, c.clips[i].pos.SetVec3(clip.Pos))
		push(fc, c.clips[i].dir.SetVec3(clip.Dir))
	}
}

type paramsChunk struct {
	names    []string
	uniforms []*program.Uniform
}

func newParams(ctx gpu.Context, p *program.Program, params []shader.Param) *paramsChunk {
	c := &paramsChunk{}
	for _, pr := range params {
		c.names = append(c.names, pr.Name)
		c.uniforms = append(c.uniforms, p.Uniform(ctx, shader.Draw, pr.Name))
	}
	return c
}

func (c *paramsChunk) draw(fc *frame.Context, src Source) {
	params := src.Params()
	if params == nil {
		return
	}
	for i, name := range c.names {
		push(fc, c.uniforms[i].SetFloats(params.Get(name)))
	}
}

type geometryChunk struct {
	ctx           gpu.Context
	primitivePick bool

	position  int
	normal    int
	uv        int
	color     int
	pickColor int

	positionsDecode *program.Uniform
	uvDecode        *program.Uniform
	pointSize       *program.Uniform
}

func newGeometry(ctx gpu.Context, p *program.Program, v shader.Variant) *geometryChunk {
	c := &geometryChunk{
		ctx:             ctx,
		primitivePick:   v == shader.PickPrimitive,
		position:        p.Attrib(ctx, v, "position"),
		normal:          p.Attrib(ctx, v, "normal"),
		uv:              p.Attrib(ctx, v, "uv"),
		color:           p.Attrib(ctx, v, "color"),
		pickColor:       p.Attrib(ctx, v, "pickColor"),
		positionsDecode: p.Uniform(ctx, v, "positionsDecodeMatrix"),
		uvDecode:        p.Uniform(ctx, v, "uvDecodeMatrix"),
		pointSize:       p.Uniform(ctx, v, "pointSize"),
	}
	return c
}

func (c *geometryChunk) bind(fc *frame.Context, loc int, a attrib) {
	if loc < 0 || a.buf == 0 {
		return
	}
	c.ctx.BindBuffer(gpu.ArrayBuffer, a.buf)
	c.ctx.EnableVertexAttribArray(loc)
	c.ctx.VertexAttribPointer(loc, a.size, a.typ, a.normalized, 0, 0)
	fc.BufferBinds++
}

func (c *geometryChunk) draw(fc *frame.Context, src Source) {
	g := src.Geometry()
	b := src.Buffers()
	if g == nil || b == nil {
		return
	}
	d := g.Data()
	if d.Quantized() {
		push(fc, c.positionsDecode.SetMat4(d.PositionsDecode))
		if len(d.QuantizedUV) > 0 {
			push(fc, c.uvDecode.SetMat3(d.UVDecode))
		}
	}
	if d.Primitive == gpu.Points {
		size := d.PointSize
		if size <= 0 {
			size = 1
		}
		push(fc, c.pointSize.Set1f(size))
	}
	if c.primitivePick {
		c.bind(fc, c.position, b.pickPosition)
		if c.pickColor >= 0 && b.pickColors != 0 {
			c.ctx.BindBuffer(gpu.ArrayBuffer, b.pickColors)
			c.ctx.EnableVertexAttribArray(c.pickColor)
			c.ctx.VertexAttribPointer(c.pickColor, 4, gpu.UnsignedByte, true, 0, 0)
			fc.BufferBinds++
		}
		return
	}
	if fc.LastGeometry == g.ID() {
		return
	}
	fc.LastGeometry = g.ID()
	c.bind(fc, c.position, b.position)
	c.bind(fc, c.normal, b.normal)
	c.bind(fc, c.uv, b.uv)
	c.bind(fc, c.color, b.color)
	if b.indexCount > 0 {
		c.ctx.BindBuffer(gpu.ElementArrayBuffer, b.indices)
		fc.BufferBinds++
	}
}

type pickChunk struct {
	color *program.Uniform
}

func (c *pickChunk) draw(fc *frame.Context, src Source) {
	push(fc, c.color.SetVec4(src.PickColor()))
}
