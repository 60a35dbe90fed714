package state

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"xeogl/gpu"
)

// GeometryData is a decoded vertex/index payload as delivered by a loader.
// Quantized geometry sets QuantizedPositions (and optionally OctNormals and
// QuantizedUV) together with the matching decode matrices instead of the
// float arrays.
type GeometryData struct {
	Primitive gpu.Primitive

	Positions []float32
	Normals   []float32
	UV        []float32
	Colors    []float32
	Indices   []uint32

	QuantizedPositions []uint16
	PositionsDecode    mgl32.Mat4
	OctNormals         []int8
	QuantizedUV        []uint16
	UVDecode           mgl32.Mat3

	// PointSize is the rasterized size of point primitives, in pixels.
	PointSize float32
}

// Quantized reports whether positions are stored as uint16 with a decode matrix.
func (d *GeometryData) Quantized() bool { return len(d.QuantizedPositions) > 0 }

// NumVertices returns the vertex count.
func (d *GeometryData) NumVertices() int {
	if d.Quantized() {
		return len(d.QuantizedPositions) / 3
	}
	return len(d.Positions) / 3
}

func (d *GeometryData) HasNormals() bool { return len(d.Normals) > 0 || len(d.OctNormals) > 0 }
func (d *GeometryData) HasUV() bool      { return len(d.UV) > 0 || len(d.QuantizedUV) > 0 }
func (d *GeometryData) HasColors() bool  { return len(d.Colors) > 0 }

// Validate checks array lengths and index ranges.
func (d *GeometryData) Validate() error {
	var errs []error
	if len(d.Positions) > 0 && d.Quantized() {
		errs = append(errs, errors.New("both float and quantized positions given"))
	}
	if len(d.Positions)%3 != 0 || len(d.QuantizedPositions)%3 != 0 {
		errs = append(errs, errors.New("positions length is not a multiple of 3"))
	}
	n := d.NumVertices()
	if n == 0 {
		errs = append(errs, errors.New("no positions"))
	}
	if len(d.Normals) > 0 && len(d.Normals) != n*3 {
		errs = append(errs, fmt.Errorf("normals: want %d values, got %d", n*3, len(d.Normals)))
	}
	if len(d.OctNormals) > 0 && len(d.OctNormals) != n*2 {
		errs = append(errs, fmt.Errorf("oct normals: want %d values, got %d", n*2, len(d.OctNormals)))
	}
	if len(d.UV) > 0 && len(d.UV) != n*2 {
		errs = append(errs, fmt.Errorf("uv: want %d values, got %d", n*2, len(d.UV)))
	}
	if len(d.QuantizedUV) > 0 && len(d.QuantizedUV) != n*2 {
		errs = append(errs, fmt.Errorf("quantized uv: want %d values, got %d", n*2, len(d.QuantizedUV)))
	}
	if len(d.Colors) > 0 && len(d.Colors) != n*4 {
		errs = append(errs, fmt.Errorf("colors: want %d values, got %d", n*4, len(d.Colors)))
	}
	for i, idx := range d.Indices {
		if int(idx) >= n {
			errs = append(errs, fmt.Errorf("index %d at %d out of range (%d vertices)", idx, i, n))
			break
		}
	}
	return errors.Join(errs...)
}

func primitiveName(p gpu.Primitive) string {
	switch p {
	case gpu.Lines:
		return "lines"
	case gpu.Points:
		return "points"
	}
	return "triangles"
}

func flag(b bool) byte {
	if b {
		return '1'
	}
	return '0'
}

// Geometry is a mesh payload. The renderer keeps the GPU buffers.
type Geometry struct {
	Base
	data GeometryData
}

// NewGeometry validates data and wraps it in a state.
func NewGeometry(a *Arena, data GeometryData) (*Geometry, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("geometry: %w", err)
	}
	g := &Geometry{data: data}
	g.init(a, KindGeometry, g)
	g.rehash()
	return g, nil
}

func (g *Geometry) rehash() {
	d := &g.data
	g.setHash(fmt.Sprintf("%s;n%c;u%c;c%c;q%c", primitiveName(d.Primitive),
		flag(d.HasNormals()), flag(d.HasUV()), flag(d.HasColors()), flag(d.Quantized())))
}

// Data returns the payload. Callers must not modify it.
func (g *Geometry) Data() *GeometryData { return &g.data }

// SetData replaces the payload.
func (g *Geometry) SetData(data GeometryData) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("geometry: %w", err)
	}
	g.data = data
	g.rehash()
	g.changed()
	return nil
}
