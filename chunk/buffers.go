package chunk

import (
	"unsafe"

	"xeogl/frame"
	"xeogl/gpu"
	"xeogl/state"
)

// maxShortIndexedVertices is the largest vertex count addressable with
// 16-bit indices.
const maxShortIndexedVertices = 1 << 16

type attrib struct {
	buf        gpu.Buffer
	size       int
	typ        gpu.DataType
	normalized bool
	stride     int // bytes per vertex
}

// Buffers are the GPU vertex and index buffers of one Geometry.
type Buffers struct {
	version   uint64
	primitive gpu.Primitive

	position attrib
	normal   attrib
	uv       attrib
	color    attrib

	indices     gpu.Buffer
	indexType   gpu.DataType
	indexCount  int
	vertexCount int

	pickPosition attrib
	pickColors   gpu.Buffer
	pickCount    int
	pickVersion  uint64
}

func (b *Buffers) IndexCount() int  { return b.indexCount }
func (b *Buffers) VertexCount() int { return b.vertexCount }

// PickTriangles is the number of triangles in the primitive-pick buffers.
func (b *Buffers) PickTriangles() int { return b.pickCount / 3 }

func bytesOf[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

func upload(ctx gpu.Context, target gpu.BufferTarget, data []byte) gpu.Buffer {
	buf := ctx.CreateBuffer()
	ctx.BindBuffer(target, buf)
	ctx.BufferData(target, data)
	return buf
}

func (b *Buffers) upload(ctx gpu.Context, g *state.Geometry) {
	d := g.Data()
	b.version = g.Version()
	b.primitive = d.Primitive
	b.vertexCount = d.NumVertices()

	if d.Quantized() {
		b.position = attrib{buf: upload(ctx, gpu.ArrayBuffer, bytesOf(d.QuantizedPositions)), size: 3, typ: gpu.UnsignedShort, stride: 6}
	} else {
		b.position = attrib{buf: upload(ctx, gpu.ArrayBuffer, bytesOf(d.Positions)), size: 3, typ: gpu.Float, stride: 12}
	}
	switch {
	case len(d.OctNormals) > 0:
		b.normal = attrib{buf: upload(ctx, gpu.ArrayBuffer, bytesOf(d.OctNormals)), size: 2, typ: gpu.Byte, normalized: true, stride: 2}
	case len(d.Normals) > 0:
		b.normal = attrib{buf: upload(ctx, gpu.ArrayBuffer, bytesOf(d.Normals)), size: 3, typ: gpu.Float, stride: 12}
	}
	switch {
	case len(d.QuantizedUV) > 0:
		b.uv = attrib{buf: upload(ctx, gpu.ArrayBuffer, bytesOf(d.QuantizedUV)), size: 2, typ: gpu.UnsignedShort, stride: 4}
	case len(d.UV) > 0:
		b.uv = attrib{buf: upload(ctx, gpu.ArrayBuffer, bytesOf(d.UV)), size: 2, typ: gpu.Float, stride: 8}
	}
	if len(d.Colors) > 0 {
		b.color = attrib{buf: upload(ctx, gpu.ArrayBuffer, bytesOf(d.Colors)), size: 4, typ: gpu.Float, stride: 16}
	}
	if len(d.Indices) > 0 {
		b.indexCount = len(d.Indices)
		if b.vertexCount <= maxShortIndexedVertices {
			short := make([]uint16, len(d.Indices))
			for i, idx := range d.Indices {
				short[i] = uint16(idx)
			}
			b.indexType = gpu.UnsignedShort
			b.indices = upload(ctx, gpu.ElementArrayBuffer, bytesOf(short))
		} else {
			b.indexType = gpu.UnsignedInt
			b.indices = upload(ctx, gpu.ElementArrayBuffer, bytesOf(d.Indices))
		}
	}
}

func (b *Buffers) release(ctx gpu.Context) {
	for _, buf := range []gpu.Buffer{b.position.buf, b.normal.buf, b.uv.buf, b.color.buf, b.indices, b.pickPosition.buf, b.pickColors} {
		if buf != 0 {
			ctx.DeleteBuffer(buf)
		}
	}
	*b = Buffers{}
}

// EncodePickIndex encodes i into an RGBA8 colour; the zero colour means no
// hit.
func EncodePickIndex(i int) [4]byte {
	v := i + 1
	return [4]byte{byte(v), byte(v >> 8), byte(v >> 16), 255}
}

// DecodePickIndex inverts EncodePickIndex, returning -1 for no hit.
func DecodePickIndex(px [4]byte) int {
	return (int(px[0]) | int(px[1])<<8 | int(px[2])<<16) - 1
}

// BuildPick creates the de-indexed per-triangle buffers used by the
// primitive-pick variant. Each vertex of triangle t carries the colour
// EncodePickIndex(t). Only triangle geometry can be primitive-picked.
func (b *Buffers) BuildPick(ctx gpu.Context, g *state.Geometry) bool {
	d := g.Data()
	if d.Primitive != gpu.Triangles {
		return false
	}
	if b.pickCount > 0 && b.pickVersion == g.Version() {
		return true
	}
	if b.pickPosition.buf != 0 {
		ctx.DeleteBuffer(b.pickPosition.buf)
		ctx.DeleteBuffer(b.pickColors)
	}

	var src []byte
	if d.Quantized() {
		src = bytesOf(d.QuantizedPositions)
	} else {
		src = bytesOf(d.Positions)
	}
	stride := b.position.stride
	order := d.Indices
	if len(order) == 0 {
		order = make([]uint32, b.vertexCount)
		for i := range order {
			order[i] = uint32(i)
		}
	}
	n := len(order) / 3 * 3
	positions := make([]byte, 0, n*stride)
	colors := make([]byte, 0, n*4)
	for i := 0; i < n; i++ {
		v := int(order[i])
		positions = append(positions, src[v*stride:(v+1)*stride]...)
		c := EncodePickIndex(i / 3)
		colors = append(colors, c[:]...)
	}
	b.pickPosition = b.position
	b.pickPosition.buf = upload(ctx, gpu.ArrayBuffer, positions)
	b.pickColors = upload(ctx, gpu.ArrayBuffer, colors)
	b.pickCount = n
	b.pickVersion = g.Version()
	return true
}

// Draw issues the indexed or array draw for the bound geometry.
func (b *Buffers) Draw(ctx gpu.Context, fc *frame.Context) {
	if b.indexCount > 0 {
		ctx.DrawElements(b.primitive, b.indexCount, b.indexType, 0)
		fc.DrawElements++
	} else {
		ctx.DrawArrays(b.primitive, 0, b.vertexCount)
		fc.DrawArrays++
	}
	fc.DrawCalls++
}

// DrawPick draws the primitive-pick buffers built by BuildPick.
func (b *Buffers) DrawPick(ctx gpu.Context, fc *frame.Context) {
	ctx.DrawArrays(gpu.Triangles, 0, b.pickCount)
	fc.DrawArrays++
	fc.DrawCalls++
}

// Geometries owns the Buffers of every Geometry drawn by a renderer.
type Geometries struct {
	ctx     gpu.Context
	entries map[*state.Geometry]*Buffers
}

func NewGeometries(ctx gpu.Context) *Geometries {
	return &Geometries{ctx: ctx, entries: map[*state.Geometry]*Buffers{}}
}

func (gs *Geometries) Len() int { return len(gs.entries) }

// Get returns the Buffers of g, uploading on first use and re-uploading in
// place when g has changed. The returned pointer is stable for g.
func (gs *Geometries) Get(g *state.Geometry) *Buffers {
	b := gs.entries[g]
	if b == nil {
		b = &Buffers{}
		b.upload(gs.ctx, g)
		gs.entries[g] = b
		return b
	}
	if b.version != g.Version() {
		b.release(gs.ctx)
		b.upload(gs.ctx, g)
	}
	return b
}

// Release deletes the buffers of g.
func (gs *Geometries) Release(g *state.Geometry) {
	if b := gs.entries[g]; b != nil {
		b.release(gs.ctx)
		delete(gs.entries, g)
	}
}

// Prune releases the buffers of destroyed geometries and returns how many
// were released.
func (gs *Geometries) Prune() int {
	n := 0
	for g := range gs.entries {
		if g.Destroyed() {
			gs.Release(g)
			n++
		}
	}
	return n
}

// Restore re-uploads everything after a context loss. Old handles died with
// the context and are not deleted.
func (gs *Geometries) Restore() {
	for g, b := range gs.entries {
		*b = Buffers{}
		b.upload(gs.ctx, g)
	}
}

// ReleaseAll deletes every buffer the cache owns.
func (gs *Geometries) ReleaseAll() {
	for g := range gs.entries {
		gs.Release(g)
	}
}
