// Package opengl implements gpu.Context on desktop OpenGL 4.1 core through
// go-gl. All methods must be called on the thread owning the GL context.
package opengl

import (
	"fmt"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"xeogl/gpu"
	"xeogl/internal/logger"
)

// Context drives the current OpenGL context.
type Context struct {
	vao      uint32
	maxUnits int
	version  string
	logger   *zap.Logger
}

var _ gpu.Context = (*Context)(nil)

// New loads the GL entry points of the current context. A window's context
// must be current on the calling thread.
func New(log *zap.Logger) (*Context, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	c := &Context{
		version: gl.GoStr(gl.GetString(gl.VERSION)),
		logger:  logger.OrNop(log).Named("opengl"),
	}
	var units int32
	gl.GetIntegerv(gl.MAX_TEXTURE_IMAGE_UNITS, &units)
	c.maxUnits = int(units)

	// Core profile refuses attribute setup without a bound vertex array.
	gl.GenVertexArrays(1, &c.vao)
	gl.BindVertexArray(c.vao)
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.PROGRAM_POINT_SIZE)

	c.logger.Info("OpenGL context",
		zap.String("version", c.version),
		zap.Int("textureUnits", c.maxUnits))
	return c, nil
}

func (c *Context) Version() string { return c.version }

// Destroy deletes the shared vertex array.
func (c *Context) Destroy() {
	if c.vao != 0 {
		gl.DeleteVertexArrays(1, &c.vao)
		c.vao = 0
	}
}

func (c *Context) Dialect() gpu.Dialect      { return gpu.DialectGL410 }
func (c *Context) MaxTextureImageUnits() int { return c.maxUnits }

// IsContextLost is always false: GL 4.1 core has no reset notification.
func (c *Context) IsContextLost() bool { return false }

// ── Shaders and programs ─────────────────────────────────────────────────────

func (c *Context) CreateShader(stage gpu.ShaderStage) gpu.Shader {
	typ := uint32(gl.VERTEX_SHADER)
	if stage == gpu.FragmentShader {
		typ = gl.FRAGMENT_SHADER
	}
	return gpu.Shader(gl.CreateShader(typ))
}

func (c *Context) ShaderSource(s gpu.Shader, src string) {
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(uint32(s), 1, csrc, nil)
	free()
}

func (c *Context) CompileShader(s gpu.Shader) { gl.CompileShader(uint32(s)) }

func (c *Context) ShaderCompiled(s gpu.Shader) bool {
	var status int32
	gl.GetShaderiv(uint32(s), gl.COMPILE_STATUS, &status)
	return status != gl.FALSE
}

func (c *Context) ShaderInfoLog(s gpu.Shader) string {
	var logLen int32
	gl.GetShaderiv(uint32(s), gl.INFO_LOG_LENGTH, &logLen)
	if logLen == 0 {
		return ""
	}
	log := strings.Repeat("\x00", int(logLen+1))
	gl.GetShaderInfoLog(uint32(s), logLen, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (c *Context) DeleteShader(s gpu.Shader) { gl.DeleteShader(uint32(s)) }

func (c *Context) CreateProgram() gpu.Program { return gpu.Program(gl.CreateProgram()) }

func (c *Context) AttachShader(p gpu.Program, s gpu.Shader) {
	gl.AttachShader(uint32(p), uint32(s))
}

func (c *Context) LinkProgram(p gpu.Program) { gl.LinkProgram(uint32(p)) }

func (c *Context) ProgramLinked(p gpu.Program) bool {
	var status int32
	gl.GetProgramiv(uint32(p), gl.LINK_STATUS, &status)
	return status != gl.FALSE
}

func (c *Context) ValidateProgram(p gpu.Program) { gl.ValidateProgram(uint32(p)) }

func (c *Context) ProgramValidated(p gpu.Program) bool {
	var status int32
	gl.GetProgramiv(uint32(p), gl.VALIDATE_STATUS, &status)
	return status != gl.FALSE
}

func (c *Context) ProgramInfoLog(p gpu.Program) string {
	var logLen int32
	gl.GetProgramiv(uint32(p), gl.INFO_LOG_LENGTH, &logLen)
	if logLen == 0 {
		return ""
	}
	log := strings.Repeat("\x00", int(logLen+1))
	gl.GetProgramInfoLog(uint32(p), logLen, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (c *Context) DeleteProgram(p gpu.Program) { gl.DeleteProgram(uint32(p)) }
func (c *Context) UseProgram(p gpu.Program)    { gl.UseProgram(uint32(p)) }

// ── Uniforms ─────────────────────────────────────────────────────────────────

func (c *Context) GetUniformLocation(p gpu.Program, name string) gpu.UniformLocation {
	return gpu.UniformLocation(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

func (c *Context) GetAttribLocation(p gpu.Program, name string) int {
	return int(gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00")))
}

func (c *Context) Uniform1i(loc gpu.UniformLocation, v int32) { gl.Uniform1i(int32(loc), v) }
func (c *Context) Uniform1f(loc gpu.UniformLocation, v float32) {
	gl.Uniform1f(int32(loc), v)
}

func (c *Context) Uniform2fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 2 {
		gl.Uniform2fv(int32(loc), int32(len(v)/2), &v[0])
	}
}

func (c *Context) Uniform3fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 3 {
		gl.Uniform3fv(int32(loc), int32(len(v)/3), &v[0])
	}
}

func (c *Context) Uniform4fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 4 {
		gl.Uniform4fv(int32(loc), int32(len(v)/4), &v[0])
	}
}

func (c *Context) UniformMatrix3fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 9 {
		gl.UniformMatrix3fv(int32(loc), int32(len(v)/9), false, &v[0])
	}
}

func (c *Context) UniformMatrix4fv(loc gpu.UniformLocation, v []float32) {
	if len(v) >= 16 {
		gl.UniformMatrix4fv(int32(loc), int32(len(v)/16), false, &v[0])
	}
}

// ── Buffers and draws ────────────────────────────────────────────────────────

func bufferTarget(t gpu.BufferTarget) uint32 {
	if t == gpu.ElementArrayBuffer {
		return gl.ELEMENT_ARRAY_BUFFER
	}
	return gl.ARRAY_BUFFER
}

func dataType(t gpu.DataType) uint32 {
	switch t {
	case gpu.UnsignedShort:
		return gl.UNSIGNED_SHORT
	case gpu.UnsignedInt:
		return gl.UNSIGNED_INT
	case gpu.Byte:
		return gl.BYTE
	case gpu.UnsignedByte:
		return gl.UNSIGNED_BYTE
	case gpu.Short:
		return gl.SHORT
	}
	return gl.FLOAT
}

func primitive(p gpu.Primitive) uint32 {
	switch p {
	case gpu.Lines:
		return gl.LINES
	case gpu.Points:
		return gl.POINTS
	}
	return gl.TRIANGLES
}

func (c *Context) CreateBuffer() gpu.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return gpu.Buffer(b)
}

func (c *Context) BindBuffer(target gpu.BufferTarget, b gpu.Buffer) {
	gl.BindBuffer(bufferTarget(target), uint32(b))
}

func (c *Context) BufferData(target gpu.BufferTarget, data []byte) {
	if len(data) == 0 {
		gl.BufferData(bufferTarget(target), 0, nil, gl.STATIC_DRAW)
		return
	}
	gl.BufferData(bufferTarget(target), len(data), gl.Ptr(data), gl.STATIC_DRAW)
}

func (c *Context) DeleteBuffer(b gpu.Buffer) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

func (c *Context) EnableVertexAttribArray(loc int)  { gl.EnableVertexAttribArray(uint32(loc)) }
func (c *Context) DisableVertexAttribArray(loc int) { gl.DisableVertexAttribArray(uint32(loc)) }

func (c *Context) VertexAttribPointer(loc, size int, typ gpu.DataType, normalized bool, stride, offset int) {
	gl.VertexAttribPointer(uint32(loc), int32(size), dataType(typ), normalized, int32(stride), gl.PtrOffset(offset))
}

func (c *Context) DrawElements(mode gpu.Primitive, count int, typ gpu.DataType, offset int) {
	gl.DrawElements(primitive(mode), int32(count), dataType(typ), gl.PtrOffset(offset))
}

func (c *Context) DrawArrays(mode gpu.Primitive, first, count int) {
	gl.DrawArrays(primitive(mode), int32(first), int32(count))
}

// ── Textures ─────────────────────────────────────────────────────────────────

func (c *Context) CreateTexture() gpu.Texture {
	var id uint32
	gl.GenTextures(1, &id)
	return gpu.Texture(id)
}

func (c *Context) ActiveTexture(unit int) { gl.ActiveTexture(gl.TEXTURE0 + uint32(unit)) }

func (c *Context) BindTexture(t gpu.Texture) { gl.BindTexture(gl.TEXTURE_2D, uint32(t)) }

// flipRows returns the RGBA8 image with its rows in reverse order.
func flipRows(pixels []byte, width, height int) []byte {
	row := width * 4
	out := make([]byte, len(pixels))
	for y := range height {
		copy(out[(height-1-y)*row:(height-y)*row], pixels[y*row:(y+1)*row])
	}
	return out
}

func (c *Context) TexImage2D(t gpu.Texture, width, height int, pixels []byte, params gpu.TextureParams) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))

	wrap := int32(gl.CLAMP_TO_EDGE)
	if params.Repeat {
		wrap = gl.REPEAT
	}
	magFilter, minFilter := int32(gl.NEAREST), int32(gl.NEAREST)
	if params.Linear {
		magFilter, minFilter = gl.LINEAR, gl.LINEAR
	}
	if params.Mipmaps {
		minFilter = gl.LINEAR_MIPMAP_LINEAR
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrap)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, minFilter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, magFilter)

	var ptr unsafe.Pointer
	if len(pixels) > 0 {
		if params.Flip {
			pixels = flipRows(pixels, width, height)
		}
		ptr = gl.Ptr(pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	if params.Mipmaps && len(pixels) > 0 {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
}

func (c *Context) DeleteTexture(t gpu.Texture) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

// ── Framebuffers ─────────────────────────────────────────────────────────────

func (c *Context) CreateFramebuffer() gpu.Framebuffer {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	return gpu.Framebuffer(fb)
}

func (c *Context) BindFramebuffer(fb gpu.Framebuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

func (c *Context) FramebufferTexture2D(fb gpu.Framebuffer, t gpu.Texture) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, uint32(t), 0)
}

func (c *Context) CreateRenderbuffer() gpu.Renderbuffer {
	var rb uint32
	gl.GenRenderbuffers(1, &rb)
	return gpu.Renderbuffer(rb)
}

func (c *Context) RenderbufferStorage(rb gpu.Renderbuffer, width, height int) {
	gl.BindRenderbuffer(gl.RENDERBUFFER, uint32(rb))
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(width), int32(height))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
}

func (c *Context) FramebufferRenderbuffer(fb gpu.Framebuffer, rb gpu.Renderbuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, uint32(rb))
}

func (c *Context) CheckFramebufferStatus(fb gpu.Framebuffer) gpu.FramebufferStatus {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	switch status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status {
	case gl.FRAMEBUFFER_COMPLETE:
		return gpu.FramebufferComplete
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return gpu.FramebufferIncompleteAttachment
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return gpu.FramebufferIncompleteMissingAttachment
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return gpu.FramebufferUnsupported
	default:
		c.logger.Warn("unexpected framebuffer status", zap.Uint32("status", status))
		return gpu.FramebufferUnsupported
	}
}

func (c *Context) DeleteFramebuffer(fb gpu.Framebuffer) {
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
}

func (c *Context) DeleteRenderbuffer(rb gpu.Renderbuffer) {
	id := uint32(rb)
	gl.DeleteRenderbuffers(1, &id)
}

// ── Fixed-function state ─────────────────────────────────────────────────────

func capability(cp gpu.Capability) uint32 {
	switch cp {
	case gpu.Blend:
		return gl.BLEND
	case gpu.CullFace:
		return gl.CULL_FACE
	case gpu.ScissorTest:
		return gl.SCISSOR_TEST
	}
	return gl.DEPTH_TEST
}

func (c *Context) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (c *Context) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (c *Context) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ColorBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.DepthBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if mask&gpu.StencilBit != 0 {
		bits |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (c *Context) Enable(cp gpu.Capability)  { gl.Enable(capability(cp)) }
func (c *Context) Disable(cp gpu.Capability) { gl.Disable(capability(cp)) }
func (c *Context) DepthMask(write bool)      { gl.DepthMask(write) }
func (c *Context) BlendAlpha()               { gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA) }

func (c *Context) CullBack(back bool) {
	if back {
		gl.CullFace(gl.BACK)
	} else {
		gl.CullFace(gl.FRONT)
	}
}

func (c *Context) FrontFaceCCW(ccw bool) {
	if ccw {
		gl.FrontFace(gl.CCW)
	} else {
		gl.FrontFace(gl.CW)
	}
}

func (c *Context) ReadPixels(x, y, width, height int) []byte {
	buf := make([]byte, width*height*4)
	if len(buf) == 0 {
		return buf
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(buf))
	return buf
}
