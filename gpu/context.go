// Package gpu defines the GPU context the renderer drives. The shape follows
// a WebGL rendering context: handles are small integers, status is queried
// after compile/link/validate, and capabilities are plain integers.
package gpu

// Handles returned by the context. Zero is never a valid handle.
type (
	Shader       uint32
	Program      uint32
	Buffer       uint32
	Texture      uint32
	Framebuffer  uint32
	Renderbuffer uint32
)

// UniformLocation is a resolved uniform slot; NoLocation means the linked
// program does not have the uniform.
type UniformLocation int32

// NoLocation is returned for uniforms and attributes the program lacks.
const NoLocation UniformLocation = -1

// ShaderStage selects the pipeline stage of a shader object.
type ShaderStage int

const (
	VertexShader ShaderStage = iota
	FragmentShader
)

func (s ShaderStage) String() string {
	if s == VertexShader {
		return "vertex"
	}
	return "fragment"
}

// Dialect is the shading language flavour a context accepts.
type Dialect int

const (
	// DialectWebGL1 is GLSL ES 1.00 (attribute/varying, gl_FragColor).
	DialectWebGL1 Dialect = iota
	// DialectGL410 is desktop GLSL 4.10 core (in/out, explicit output).
	DialectGL410
)

func (d Dialect) String() string {
	switch d {
	case DialectWebGL1:
		return "webgl1"
	case DialectGL410:
		return "gl410"
	}
	return "unknown"
}

// BufferTarget selects the binding point of a buffer.
type BufferTarget int

const (
	ArrayBuffer BufferTarget = iota
	ElementArrayBuffer
)

// DataType is the component type of attribute or index data.
type DataType int

const (
	Float DataType = iota
	UnsignedShort
	UnsignedInt
	Byte
	UnsignedByte
	Short
)

// Size returns the byte size of one component.
func (t DataType) Size() int {
	switch t {
	case Float, UnsignedInt:
		return 4
	case UnsignedShort, Short:
		return 2
	}
	return 1
}

// Primitive is the draw topology.
type Primitive int

const (
	Triangles Primitive = iota
	Lines
	Points
)

// ClearMask selects buffers for Clear.
type ClearMask int

const (
	ColorBit ClearMask = 1 << iota
	DepthBit
	StencilBit
)

// Capability toggles fixed-function state.
type Capability int

const (
	DepthTest Capability = iota
	Blend
	CullFace
	ScissorTest
)

// FramebufferStatus is the result of a completeness check.
type FramebufferStatus int

const (
	FramebufferComplete FramebufferStatus = iota
	FramebufferIncompleteAttachment
	FramebufferIncompleteMissingAttachment
	FramebufferIncompleteDimensions
	FramebufferUnsupported
)

func (s FramebufferStatus) String() string {
	switch s {
	case FramebufferComplete:
		return "complete"
	case FramebufferIncompleteAttachment:
		return "incomplete attachment"
	case FramebufferIncompleteMissingAttachment:
		return "missing attachment"
	case FramebufferIncompleteDimensions:
		return "incomplete dimensions"
	case FramebufferUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// TextureParams describes sampling for a texture upload.
type TextureParams struct {
	Mipmaps bool
	Repeat  bool
	Linear  bool
	// Flip uploads rows bottom-to-top.
	Flip bool
}

// Context is the GPU API consumed by the renderer. Implementations are used
// from a single goroutine.
type Context interface {
	Dialect() Dialect
	MaxTextureImageUnits() int
	IsContextLost() bool

	CreateShader(stage ShaderStage) Shader
	ShaderSource(s Shader, src string)
	CompileShader(s Shader)
	ShaderCompiled(s Shader) bool
	ShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	ProgramLinked(p Program) bool
	ValidateProgram(p Program)
	ProgramValidated(p Program) bool
	ProgramInfoLog(p Program) string
	DeleteProgram(p Program)
	UseProgram(p Program)

	GetUniformLocation(p Program, name string) UniformLocation
	GetAttribLocation(p Program, name string) int
	Uniform1i(loc UniformLocation, v int32)
	Uniform1f(loc UniformLocation, v float32)
	Uniform2fv(loc UniformLocation, v []float32)
	Uniform3fv(loc UniformLocation, v []float32)
	Uniform4fv(loc UniformLocation, v []float32)
	UniformMatrix3fv(loc UniformLocation, v []float32)
	UniformMatrix4fv(loc UniformLocation, v []float32)

	CreateBuffer() Buffer
	BindBuffer(target BufferTarget, b Buffer)
	BufferData(target BufferTarget, data []byte)
	DeleteBuffer(b Buffer)
	EnableVertexAttribArray(loc int)
	DisableVertexAttribArray(loc int)
	VertexAttribPointer(loc, size int, typ DataType, normalized bool, stride, offset int)
	DrawElements(mode Primitive, count int, typ DataType, offset int)
	DrawArrays(mode Primitive, first, count int)

	CreateTexture() Texture
	ActiveTexture(unit int)
	BindTexture(t Texture)
	TexImage2D(t Texture, width, height int, pixels []byte, params TextureParams)
	DeleteTexture(t Texture)

	CreateFramebuffer() Framebuffer
	BindFramebuffer(fb Framebuffer)
	FramebufferTexture2D(fb Framebuffer, t Texture)
	CreateRenderbuffer() Renderbuffer
	RenderbufferStorage(rb Renderbuffer, width, height int)
	FramebufferRenderbuffer(fb Framebuffer, rb Renderbuffer)
	CheckFramebufferStatus(fb Framebuffer) FramebufferStatus
	DeleteFramebuffer(fb Framebuffer)
	DeleteRenderbuffer(rb Renderbuffer)

	Viewport(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask ClearMask)
	Enable(c Capability)
	Disable(c Capability)
	DepthMask(write bool)
	BlendAlpha()
	CullBack(back bool)
	FrontFaceCCW(ccw bool)
	ReadPixels(x, y, width, height int) []byte
}
