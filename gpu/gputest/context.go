// Package gputest provides an in-memory gpu.Context that counts calls and
// resolves uniform and attribute locations from the attached shader sources.
package gputest

import (
	"regexp"
	"slices"
	"strings"

	"xeogl/gpu"
)

var (
	uniformDecl   = regexp.MustCompile(`\buniform\s+(?:(?:lowp|mediump|highp)\s+)?\w+\s+(\w+)(?:\[\d+\])?\s*;`)
	attributeDecl = regexp.MustCompile(`(?m)^\s*(?:attribute|in)\s+(?:(?:lowp|mediump|highp)\s+)?\w+\s+(\w+)\s*;`)
)

// DrawCall is one recorded draw with the bound program's uniform values.
type DrawCall struct {
	Program  gpu.Program
	Mode     gpu.Primitive
	Count    int
	Indexed  bool
	Uniforms map[string][]float32
	Textures map[int]gpu.Texture
}

// TextureBind records a BindTexture on the active unit.
type TextureBind struct {
	Unit    int
	Texture gpu.Texture
}

type shaderObject struct {
	stage    gpu.ShaderStage
	source   string
	compiled bool
	deleted  bool
}

type programObject struct {
	shaders   []gpu.Shader
	linked    bool
	validated bool
	deleted   bool
	uniforms  map[string]gpu.UniformLocation
	names     map[gpu.UniformLocation]string
	attribs   map[string]int
	values    map[gpu.UniformLocation][]float32
}

// Context is a fake gpu.Context. The zero value is not usable; use New.
type Context struct {
	// Calls counts every method invocation by name.
	Calls map[string]int

	DialectValue gpu.Dialect
	MaxUnits     int

	// FailCompile, FailLink and FailValidate inject failures.
	FailCompile  func(stage gpu.ShaderStage, src string) bool
	FailLink     func(p gpu.Program) bool
	FailValidate func(p gpu.Program) bool
	// FramebufferStatus, when set, overrides completeness checks.
	FramebufferStatus func(fb gpu.Framebuffer) gpu.FramebufferStatus
	// PixelFunc, when set, answers ReadPixels.
	PixelFunc func(x, y int) [4]byte

	DrawCalls    []DrawCall
	TextureBinds []TextureBind
	Viewports    [][4]int

	lost          bool
	next          uint32
	shaders       map[gpu.Shader]*shaderObject
	programs      map[gpu.Program]*programObject
	buffers       map[gpu.Buffer]int
	textures      map[gpu.Texture]bool
	framebuffers  map[gpu.Framebuffer]bool
	renderbuffers map[gpu.Renderbuffer]bool
	current       gpu.Program
	activeUnit    int
	unitTextures  map[int]gpu.Texture
}

var _ gpu.Context = (*Context)(nil)

// New returns a context with 16 texture units speaking GLSL ES 1.00.
func New() *Context {
	c := &Context{
		Calls:        map[string]int{},
		DialectValue: gpu.DialectWebGL1,
		MaxUnits:     16,
	}
	c.reset()
	return c
}

func (c *Context) reset() {
	c.shaders = map[gpu.Shader]*shaderObject{}
	c.programs = map[gpu.Program]*programObject{}
	c.buffers = map[gpu.Buffer]int{}
	c.textures = map[gpu.Texture]bool{}
	c.framebuffers = map[gpu.Framebuffer]bool{}
	c.renderbuffers = map[gpu.Renderbuffer]bool{}
	c.unitTextures = map[int]gpu.Texture{}
	c.current = 0
	c.activeUnit = 0
}

func (c *Context) call(name string) { c.Calls[name]++ }

func (c *Context) handle() uint32 {
	c.next++
	return c.next
}

// Lose simulates a lost context; every live object becomes invalid.
func (c *Context) Lose() {
	c.lost = true
	c.reset()
}

// Restore ends a simulated context loss.
func (c *Context) Restore() { c.lost = false }

// ResetCounters clears call counters and recorded draws.
func (c *Context) ResetCounters() {
	c.Calls = map[string]int{}
	c.DrawCalls = nil
	c.TextureBinds = nil
	c.Viewports = nil
}

// LiveTextures reports the number of allocated, undeleted textures.
func (c *Context) LiveTextures() int { return len(c.textures) }

// LiveBuffers reports the number of allocated, undeleted buffers.
func (c *Context) LiveBuffers() int { return len(c.buffers) }

// LivePrograms reports the number of allocated, undeleted programs.
func (c *Context) LivePrograms() int {
	n := 0
	for _, p := range c.programs {
		if !p.deleted {
			n++
		}
	}
	return n
}

// UniformValue returns the last value pushed to name on program p.
func (c *Context) UniformValue(p gpu.Program, name string) ([]float32, bool) {
	po := c.programs[p]
	if po == nil {
		return nil, false
	}
	loc, ok := po.uniforms[name]
	if !ok {
		return nil, false
	}
	v, ok := po.values[loc]
	return v, ok
}

// ProgramSource returns the concatenated sources attached to p.
func (c *Context) ProgramSource(p gpu.Program) string {
	po := c.programs[p]
	if po == nil {
		return ""
	}
	var b strings.Builder
	for _, s := range po.shaders {
		if so := c.shaders[s]; so != nil {
			b.WriteString(so.source)
		}
	}
	return b.String()
}

func (c *Context) Dialect() gpu.Dialect      { return c.DialectValue }
func (c *Context) MaxTextureImageUnits() int { return c.MaxUnits }
func (c *Context) IsContextLost() bool       { return c.lost }

func (c *Context) CreateShader(stage gpu.ShaderStage) gpu.Shader {
	c.call("CreateShader")
	s := gpu.Shader(c.handle())
	c.shaders[s] = &shaderObject{stage: stage}
	return s
}

func (c *Context) ShaderSource(s gpu.Shader, src string) {
	c.call("ShaderSource")
	if so := c.shaders[s]; so != nil {
		so.source = src
	}
}

func (c *Context) CompileShader(s gpu.Shader) {
	c.call("CompileShader")
	so := c.shaders[s]
	if so == nil {
		return
	}
	so.compiled = c.FailCompile == nil || !c.FailCompile(so.stage, so.source)
}

func (c *Context) ShaderCompiled(s gpu.Shader) bool {
	so := c.shaders[s]
	return so != nil && so.compiled
}

func (c *Context) ShaderInfoLog(s gpu.Shader) string {
	if so := c.shaders[s]; so != nil && !so.compiled {
		return "ERROR: 0:1: injected compile failure"
	}
	return ""
}

func (c *Context) DeleteShader(s gpu.Shader) {
	c.call("DeleteShader")
	if so := c.shaders[s]; so != nil {
		so.deleted = true
	}
}

func (c *Context) CreateProgram() gpu.Program {
	c.call("CreateProgram")
	p := gpu.Program(c.handle())
	c.programs[p] = &programObject{}
	return p
}

func (c *Context) AttachShader(p gpu.Program, s gpu.Shader) {
	c.call("AttachShader")
	if po := c.programs[p]; po != nil {
		po.shaders = append(po.shaders, s)
	}
}

func (c *Context) LinkProgram(p gpu.Program) {
	c.call("LinkProgram")
	po := c.programs[p]
	if po == nil {
		return
	}
	po.linked = c.FailLink == nil || !c.FailLink(p)
	for _, s := range po.shaders {
		if so := c.shaders[s]; so == nil || !so.compiled {
			po.linked = false
		}
	}
	po.uniforms = map[string]gpu.UniformLocation{}
	po.names = map[gpu.UniformLocation]string{}
	po.attribs = map[string]int{}
	po.values = map[gpu.UniformLocation][]float32{}
	if !po.linked {
		return
	}
	var names []string
	for _, s := range po.shaders {
		so := c.shaders[s]
		for _, m := range uniformDecl.FindAllStringSubmatch(so.source, -1) {
			if !slices.Contains(names, m[1]) {
				names = append(names, m[1])
			}
		}
		if so.stage == gpu.VertexShader {
			for _, m := range attributeDecl.FindAllStringSubmatch(so.source, -1) {
				if _, ok := po.attribs[m[1]]; !ok {
					po.attribs[m[1]] = len(po.attribs)
				}
			}
		}
	}
	for i, n := range names {
		po.uniforms[n] = gpu.UniformLocation(i)
		po.names[gpu.UniformLocation(i)] = n
	}
}

func (c *Context) ProgramLinked(p gpu.Program) bool {
	po := c.programs[p]
	return po != nil && po.linked
}

func (c *Context) ValidateProgram(p gpu.Program) {
	c.call("ValidateProgram")
	if po := c.programs[p]; po != nil {
		po.validated = po.linked && (c.FailValidate == nil || !c.FailValidate(p))
	}
}

func (c *Context) ProgramValidated(p gpu.Program) bool {
	po := c.programs[p]
	return po != nil && po.validated
}

func (c *Context) ProgramInfoLog(p gpu.Program) string {
	if po := c.programs[p]; po != nil && (!po.linked || !po.validated) {
		return "ERROR: injected program failure"
	}
	return ""
}

func (c *Context) DeleteProgram(p gpu.Program) {
	c.call("DeleteProgram")
	if po := c.programs[p]; po != nil {
		po.deleted = true
	}
}

func (c *Context) UseProgram(p gpu.Program) {
	c.call("UseProgram")
	c.current = p
}

func (c *Context) GetUniformLocation(p gpu.Program, name string) gpu.UniformLocation {
	c.call("GetUniformLocation")
	po := c.programs[p]
	if po == nil {
		return gpu.NoLocation
	}
	if loc, ok := po.uniforms[name]; ok {
		return loc
	}
	return gpu.NoLocation
}

func (c *Context) GetAttribLocation(p gpu.Program, name string) int {
	c.call("GetAttribLocation")
	po := c.programs[p]
	if po == nil {
		return -1
	}
	if loc, ok := po.attribs[name]; ok {
		return loc
	}
	return -1
}

func (c *Context) setUniform(name string, loc gpu.UniformLocation, v []float32) {
	c.call(name)
	c.call("Uniform")
	po := c.programs[c.current]
	if po == nil || loc < 0 {
		return
	}
	po.values[loc] = slices.Clone(v)
}

func (c *Context) Uniform1i(loc gpu.UniformLocation, v int32) {
	c.setUniform("Uniform1i", loc, []float32{float32(v)})
}

func (c *Context) Uniform1f(loc gpu.UniformLocation, v float32) {
	c.setUniform("Uniform1f", loc, []float32{v})
}

func (c *Context) Uniform2fv(loc gpu.UniformLocation, v []float32) {
	c.setUniform("Uniform2fv", loc, v)
}

func (c *Context) Uniform3fv(loc gpu.UniformLocation, v []float32) {
	c.setUniform("Uniform3fv", loc, v)
}

func (c *Context) Uniform4fv(loc gpu.UniformLocation, v []float32) {
	c.setUniform("Uniform4fv", loc, v)
}

func (c *Context) UniformMatrix3fv(loc gpu.UniformLocation, v []float32) {
	c.setUniform("UniformMatrix3fv", loc, v)
}

func (c *Context) UniformMatrix4fv(loc gpu.UniformLocation, v []float32) {
	c.setUniform("UniformMatrix4fv", loc, v)
}

func (c *Context) CreateBuffer() gpu.Buffer {
	c.call("CreateBuffer")
	b := gpu.Buffer(c.handle())
	c.buffers[b] = 0
	return b
}

func (c *Context) BindBuffer(target gpu.BufferTarget, b gpu.Buffer) { c.call("BindBuffer") }

func (c *Context) BufferData(target gpu.BufferTarget, data []byte) { c.call("BufferData") }

func (c *Context) DeleteBuffer(b gpu.Buffer) {
	c.call("DeleteBuffer")
	delete(c.buffers, b)
}

func (c *Context) EnableVertexAttribArray(loc int)  { c.call("EnableVertexAttribArray") }
func (c *Context) DisableVertexAttribArray(loc int) { c.call("DisableVertexAttribArray") }

func (c *Context) VertexAttribPointer(loc, size int, typ gpu.DataType, normalized bool, stride, offset int) {
	c.call("VertexAttribPointer")
}

func (c *Context) record(mode gpu.Primitive, count int, indexed bool) {
	dc := DrawCall{
		Program:  c.current,
		Mode:     mode,
		Count:    count,
		Indexed:  indexed,
		Uniforms: map[string][]float32{},
		Textures: map[int]gpu.Texture{},
	}
	if po := c.programs[c.current]; po != nil {
		for loc, v := range po.values {
			dc.Uniforms[po.names[loc]] = slices.Clone(v)
		}
	}
	for u, t := range c.unitTextures {
		dc.Textures[u] = t
	}
	c.DrawCalls = append(c.DrawCalls, dc)
}

func (c *Context) DrawElements(mode gpu.Primitive, count int, typ gpu.DataType, offset int) {
	c.call("DrawElements")
	c.record(mode, count, true)
}

func (c *Context) DrawArrays(mode gpu.Primitive, first, count int) {
	c.call("DrawArrays")
	c.record(mode, count, false)
}

func (c *Context) CreateTexture() gpu.Texture {
	c.call("CreateTexture")
	t := gpu.Texture(c.handle())
	c.textures[t] = true
	return t
}

func (c *Context) ActiveTexture(unit int) {
	c.call("ActiveTexture")
	c.activeUnit = unit
}

func (c *Context) BindTexture(t gpu.Texture) {
	c.call("BindTexture")
	c.unitTextures[c.activeUnit] = t
	c.TextureBinds = append(c.TextureBinds, TextureBind{Unit: c.activeUnit, Texture: t})
}

// TexImage2D binds t to the active unit before uploading, as GL does.
func (c *Context) TexImage2D(t gpu.Texture, width, height int, pixels []byte, params gpu.TextureParams) {
	c.call("TexImage2D")
	c.unitTextures[c.activeUnit] = t
}

func (c *Context) DeleteTexture(t gpu.Texture) {
	c.call("DeleteTexture")
	delete(c.textures, t)
}

func (c *Context) CreateFramebuffer() gpu.Framebuffer {
	c.call("CreateFramebuffer")
	fb := gpu.Framebuffer(c.handle())
	c.framebuffers[fb] = true
	return fb
}

func (c *Context) BindFramebuffer(fb gpu.Framebuffer) { c.call("BindFramebuffer") }

func (c *Context) FramebufferTexture2D(fb gpu.Framebuffer, t gpu.Texture) {
	c.call("FramebufferTexture2D")
}

func (c *Context) CreateRenderbuffer() gpu.Renderbuffer {
	c.call("CreateRenderbuffer")
	rb := gpu.Renderbuffer(c.handle())
	c.renderbuffers[rb] = true
	return rb
}

func (c *Context) RenderbufferStorage(rb gpu.Renderbuffer, width, height int) {
	c.call("RenderbufferStorage")
}

func (c *Context) FramebufferRenderbuffer(fb gpu.Framebuffer, rb gpu.Renderbuffer) {
	c.call("FramebufferRenderbuffer")
}

func (c *Context) CheckFramebufferStatus(fb gpu.Framebuffer) gpu.FramebufferStatus {
	c.call("CheckFramebufferStatus")
	if c.FramebufferStatus != nil {
		return c.FramebufferStatus(fb)
	}
	return gpu.FramebufferComplete
}

func (c *Context) DeleteFramebuffer(fb gpu.Framebuffer) {
	c.call("DeleteFramebuffer")
	delete(c.framebuffers, fb)
}

func (c *Context) DeleteRenderbuffer(rb gpu.Renderbuffer) {
	c.call("DeleteRenderbuffer")
	delete(c.renderbuffers, rb)
}

func (c *Context) Viewport(x, y, width, height int) {
	c.call("Viewport")
	c.Viewports = append(c.Viewports, [4]int{x, y, width, height})
}

func (c *Context) ClearColor(r, g, b, a float32) { c.call("ClearColor") }
func (c *Context) Clear(mask gpu.ClearMask)      { c.call("Clear") }
func (c *Context) Enable(cp gpu.Capability)      { c.call("Enable") }
func (c *Context) Disable(cp gpu.Capability)     { c.call("Disable") }
func (c *Context) DepthMask(write bool)          { c.call("DepthMask") }
func (c *Context) BlendAlpha()                   { c.call("BlendAlpha") }
func (c *Context) CullBack(back bool)            { c.call("CullBack") }
func (c *Context) FrontFaceCCW(ccw bool)         { c.call("FrontFaceCCW") }

// ReadPixels answers from PixelFunc, or else from the pickColor uniform of
// the most recent draw call.
func (c *Context) ReadPixels(x, y, width, height int) []byte {
	c.call("ReadPixels")
	out := make([]byte, width*height*4)
	var px [4]byte
	switch {
	case c.PixelFunc != nil:
		px = c.PixelFunc(x, y)
	case len(c.DrawCalls) > 0:
		if v, ok := c.DrawCalls[len(c.DrawCalls)-1].Uniforms["pickColor"]; ok && len(v) == 4 {
			for i := range px {
				px[i] = byte(v[i]*255 + 0.5)
			}
		}
	}
	for i := 0; i < len(out); i += 4 {
		copy(out[i:i+4], px[:])
	}
	return out
}
