package scene

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"xeogl/state"
)

const quantMax = 65535

// QuantizeGeometry returns d with positions and UVs stored as uint16 with
// decode matrices and normals stored as octahedral int8 pairs. Colors and
// indices are kept.
func QuantizeGeometry(d state.GeometryData) (state.GeometryData, error) {
	if d.Quantized() {
		return d, errors.New("geometry is already quantized")
	}
	if err := d.Validate(); err != nil {
		return d, err
	}

	out := d
	out.QuantizedPositions, out.PositionsDecode = quantizePositions(d.Positions)
	out.Positions = nil
	if len(d.Normals) > 0 {
		out.OctNormals = make([]int8, 0, len(d.Normals)/3*2)
		for i := 0; i < len(d.Normals); i += 3 {
			x, y := octEncode(d.Normals[i], d.Normals[i+1], d.Normals[i+2])
			out.OctNormals = append(out.OctNormals, x, y)
		}
		out.Normals = nil
	}
	if len(d.UV) > 0 {
		out.QuantizedUV, out.UVDecode = quantizeUV(d.UV)
		out.UV = nil
	}
	return out, nil
}

func bounds(values []float32, stride int) (lo, hi []float32) {
	lo = make([]float32, stride)
	hi = make([]float32, stride)
	for c := range stride {
		lo[c], hi[c] = math32.Inf(1), math32.Inf(-1)
	}
	for i, v := range values {
		c := i % stride
		lo[c] = math32.Min(lo[c], v)
		hi[c] = math32.Max(hi[c], v)
	}
	return lo, hi
}

// quantizeRange maps every value of values into [0, 65535] per component.
// The returned scales turn a quantized value back into an offset from lo.
func quantizeRange(values []float32, stride int) (q []uint16, lo, scale []float32) {
	lo, hi := bounds(values, stride)
	scale = make([]float32, stride)
	for c := range stride {
		if r := hi[c] - lo[c]; r > 0 {
			scale[c] = r / quantMax
		} else {
			scale[c] = 1
		}
	}
	q = make([]uint16, len(values))
	for i, v := range values {
		c := i % stride
		q[i] = uint16(mgl32.Clamp(math32.Round((v-lo[c])/scale[c]), 0, quantMax))
	}
	return q, lo, scale
}

func quantizePositions(p []float32) ([]uint16, mgl32.Mat4) {
	q, lo, s := quantizeRange(p, 3)
	m := mgl32.Translate3D(lo[0], lo[1], lo[2]).Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	return q, m
}

func quantizeUV(uv []float32) ([]uint16, mgl32.Mat3) {
	q, lo, s := quantizeRange(uv, 2)
	m := mgl32.Mat3{
		s[0], 0, 0,
		0, s[1], 0,
		lo[0], lo[1], 1,
	}
	return q, m
}

// octEncode projects a unit normal onto the octahedron and folds the lower
// hemisphere, returning snorm8 components.
func octEncode(x, y, z float32) (int8, int8) {
	l := math32.Abs(x) + math32.Abs(y) + math32.Abs(z)
	if l == 0 {
		return 0, 0
	}
	px, py := x/l, y/l
	if z < 0 {
		px, py = (1-math32.Abs(py))*signNotZero(px), (1-math32.Abs(px))*signNotZero(py)
	}
	return snorm8(px), snorm8(py)
}

func signNotZero(v float32) float32 {
	if v >= 0 {
		return 1
	}
	return -1
}

func snorm8(v float32) int8 {
	return int8(math32.Round(mgl32.Clamp(v, -1, 1) * 127))
}
