package scene

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// octDecode mirrors the shader's octahedral normal decoding.
func octDecode(ox, oy int8) mgl32.Vec3 {
	x, y := float32(ox)/127, float32(oy)/127
	z := 1 - math32.Abs(x) - math32.Abs(y)
	if z < 0 {
		x, y = (1-math32.Abs(y))*signNotZero(x), (1-math32.Abs(x))*signNotZero(y)
	}
	return mgl32.Vec3{x, y, z}.Normalize()
}

func TestQuantizeGeometry(t *testing.T) {
	src := SphereGeometry(5, 16, 12)
	for i := range src.Positions {
		src.Positions[i] += 100
	}
	q, err := QuantizeGeometry(src)
	require.NoError(t, err)
	require.NoError(t, q.Validate())

	assert.True(t, q.Quantized())
	assert.Nil(t, q.Positions)
	assert.Nil(t, q.Normals)
	assert.Nil(t, q.UV)
	assert.Equal(t, src.Indices, q.Indices)
	assert.Equal(t, src.NumVertices(), q.NumVertices())

	for i := range src.NumVertices() {
		want := vec3At(src.Positions, uint32(i))
		qp := mgl32.Vec3{float32(q.QuantizedPositions[3*i]), float32(q.QuantizedPositions[3*i+1]), float32(q.QuantizedPositions[3*i+2])}
		got := mgl32.TransformCoordinate(qp, q.PositionsDecode)
		assertVec3(t, want, got, 1e-3, "position %d: %v != %v", i, got, want)

		n := octDecode(q.OctNormals[2*i], q.OctNormals[2*i+1])
		assert.Greater(t, n.Dot(vec3At(src.Normals, uint32(i))), float32(0.999), "normal %d", i)

		uv := q.UVDecode.Mul3x1(mgl32.Vec3{float32(q.QuantizedUV[2*i]), float32(q.QuantizedUV[2*i+1]), 1})
		assert.InDelta(t, src.UV[2*i], uv[0], 1e-4)
		assert.InDelta(t, src.UV[2*i+1], uv[1], 1e-4)
	}

	_, err = QuantizeGeometry(q)
	assert.Error(t, err)
}

func TestQuantizeFlatAxis(t *testing.T) {
	src := PlaneGeometry(2, 2, 1)
	q, err := QuantizeGeometry(src)
	require.NoError(t, err)
	for i := range q.NumVertices() {
		assert.Zero(t, q.QuantizedPositions[3*i+1])
	}
	box := GeometryAABB(&q)
	assertVec3(t, mgl32.Vec3{-1, 0, -1}, box.Min, 1e-4)
	assertVec3(t, mgl32.Vec3{1, 0, 1}, box.Max, 1e-4)
}

func TestOctEncodeAxes(t *testing.T) {
	for _, n := range []mgl32.Vec3{{1, 0, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}, mgl32.Vec3{1, -1, -1}.Normalize()} {
		x, y := octEncode(n[0], n[1], n[2])
		assert.Greater(t, octDecode(x, y).Dot(n), float32(0.999), "%v", n)
	}
}
