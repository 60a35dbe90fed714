package state

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xeogl/gpu"
)

func TestArenaReusesIDs(t *testing.T) {
	a := NewArena()
	l0 := NewLayer(a, 0)
	l1 := NewLayer(a, 1)
	assert.Equal(t, 0, l0.ID())
	assert.Equal(t, 1, l1.ID())
	assert.Equal(t, 2, a.Len())

	l0.Destroy()
	assert.True(t, l0.Destroyed())
	assert.Nil(t, a.Get(0))
	assert.Equal(t, 1, a.Len())

	s := NewStage(a, 3)
	assert.Equal(t, 0, s.ID(), "released id is reused")
	assert.Same(t, s, a.Get(0).(*Stage))

	l0.Destroy()
	assert.Equal(t, 2, a.Len(), "double destroy is a no-op")
}

func TestSettersReportChanges(t *testing.T) {
	a := NewArena()
	l := NewLayer(a, 1)
	var seen []State
	cancel := l.Subscribe(func(s State) { seen = append(seen, s) })

	assert.False(t, l.SetPriority(1))
	assert.True(t, l.SetPriority(2))
	assert.Len(t, seen, 1)
	assert.Equal(t, uint64(1), l.Version())

	cancel()
	l.SetPriority(5)
	assert.Len(t, seen, 1)
}

func TestLightsHash(t *testing.T) {
	a := NewArena()
	l := NewLights(a,
		Light{Type: AmbientLight, Color: mgl32.Vec3{0.2, 0.2, 0.2}, Intensity: 1},
		Light{Type: DirLight, Space: ViewSpace, Dir: mgl32.Vec3{0, 0, -1}},
	)
	assert.Equal(t, "dir:view;", l.Hash())
	v := l.HashVersion()

	lt := l.At(1)
	lt.Color = mgl32.Vec3{1, 0, 0}
	assert.True(t, l.Update(1, lt))
	assert.Equal(t, v, l.HashVersion(), "colour change keeps the hash")

	l.Add(Light{Type: PointLight})
	assert.Equal(t, "dir:view;point:world;", l.Hash())
	assert.Equal(t, v+1, l.HashVersion())

	amb := l.Ambient()
	assert.InDelta(t, 0.2, amb[0], 1e-6)
}

func TestMaterialHashTracksMaps(t *testing.T) {
	a := NewArena()
	m := NewMaterial(a, DefaultMaterialConfig())
	assert.Equal(t, "phong", m.Hash())

	tex, err := NewTexture(a, 1, 1, []byte{1, 2, 3, 4}, gpu.TextureParams{})
	require.NoError(t, err)
	assert.True(t, m.SetMap(NormalMap, tex))
	assert.True(t, m.SetMap(DiffuseMap, tex))
	assert.Equal(t, "phong;diffuseMap;normalMap", m.Hash())
	assert.Equal(t, []TextureSlot{DiffuseMap, NormalMap}, m.Maps())

	v := m.HashVersion()
	m.SetAlpha(0.5)
	assert.Equal(t, v, m.HashVersion())
}

func TestGeometryValidate(t *testing.T) {
	a := NewArena()
	_, err := NewGeometry(a, GeometryData{Positions: []float32{0, 0, 0, 1, 0, 0}, Indices: []uint32{0, 1, 2}})
	assert.Error(t, err)

	_, err = NewGeometry(a, GeometryData{Positions: []float32{0, 0}})
	assert.Error(t, err)

	g, err := NewGeometry(a, GeometryData{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:   []uint32{0, 1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "triangles;n1;u0;c0;q0", g.Hash())
	assert.Equal(t, 3, g.Data().NumVertices())
}

func TestTextureRejectsShortPixels(t *testing.T) {
	_, err := NewTexture(NewArena(), 2, 2, make([]byte, 4), gpu.TextureParams{})
	assert.Error(t, err)
}

func TestShaderParamsHash(t *testing.T) {
	p := NewShaderParams(NewArena())
	_, err := p.Set("tint", 1, 0, 0)
	require.NoError(t, err)
	_, err = p.Set("glow", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "glow:1;tint:3;", p.Hash())

	changed, err := p.Set("glow", 0.5)
	assert.NoError(t, err)
	assert.False(t, changed)

	_, err = p.Set("bad")
	assert.Error(t, err)
}

func TestModelTransformNormalMatrix(t *testing.T) {
	m := NewModelTransform(NewArena(), mgl32.Scale3D(2, 2, 2))
	n := m.NormalMatrix()
	assert.InDelta(t, 0.5, n.At(0, 0), 1e-6)
	assert.False(t, m.SetMatrix(mgl32.Scale3D(2, 2, 2)))
}
