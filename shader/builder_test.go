package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xeogl/gpu"
	"xeogl/state"
)

func litFeatures() Features {
	return Features{
		Dialect:   gpu.DialectWebGL1,
		Normals:   true,
		Primitive: gpu.Triangles,
		Material:  state.Phong,
	}
}

func TestEqualFeaturesGenerateIdenticalSource(t *testing.T) {
	a := litFeatures()
	a.Lights = []LightFeature{{Type: state.DirLight, Space: state.ViewSpace}}
	b := litFeatures()
	b.Lights = []LightFeature{{Type: state.DirLight, Space: state.ViewSpace}}

	require.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, Build(a), Build(b))
}

func TestKeyDistinguishesFeatures(t *testing.T) {
	a := litFeatures()
	b := litFeatures()
	b.Clips = 1
	assert.NotEqual(t, a.Key(), b.Key())
	assert.False(t, a.Equal(b))

	c := litFeatures()
	c.Params = []Param{{Name: "ab", Size: 1}}
	d := litFeatures()
	d.Params = []Param{{Name: "a", Size: 1}, {Name: "b", Size: 1}}
	assert.NotEqual(t, c.Key(), d.Key())
}

func TestNoLightsNoClips(t *testing.T) {
	src := Build(litFeatures())[Draw]
	assert.NotContains(t, src.Fragment, "clippable")
	assert.NotContains(t, src.Fragment, "lightColor0")
	assert.Contains(t, src.Fragment, "vec3 reflectedColor = vec3(0.0);")
	assert.Contains(t, src.Fragment, "uniform vec4 lightAmbient;")
	assert.Contains(t, src.Fragment, "gl_FragColor = vec4(")
}

func TestLightTypes(t *testing.T) {
	f := litFeatures()
	f.Lights = []LightFeature{
		{Type: state.DirLight, Space: state.WorldSpace},
		{Type: state.PointLight, Space: state.ViewSpace},
		{Type: state.SpotLight, Space: state.WorldSpace},
	}
	src := Build(f)[Draw]

	assert.Contains(t, src.Vertex, "uniform vec3 lightDir0;")
	assert.Contains(t, src.Vertex, "vViewLightReverseDir0 = -normalize((viewMatrix * vec4(lightDir0, 0.0)).xyz);")
	assert.Contains(t, src.Vertex, "vViewLightPos1 = lightPos1;")
	assert.Contains(t, src.Vertex, "vViewSpotDir2")
	assert.Contains(t, src.Fragment, "uniform vec3 lightAttenuation1;")
	assert.Contains(t, src.Fragment, "uniform float lightCutoff2;")
	assert.Contains(t, src.Fragment, "specularLight +=")
}

func TestUnlitIgnoresLights(t *testing.T) {
	f := litFeatures()
	f.Material = state.Unlit
	f.Lights = []LightFeature{{Type: state.DirLight}}
	src := Build(f)[Draw]
	assert.NotContains(t, src.Vertex, "normal")
	assert.NotContains(t, src.Fragment, "lightAmbient")
}

func TestClipPlanes(t *testing.T) {
	f := litFeatures()
	f.Clips = 2
	for v, pair := range Build(f) {
		assert.Contains(t, pair.Vertex, "vWorldPosition = worldPosition;", Variant(v).String())
		assert.Contains(t, pair.Fragment, "if (clipActive1) {")
		assert.Contains(t, pair.Fragment, "discard;")
	}
}

func TestQuantizedGeometry(t *testing.T) {
	f := litFeatures()
	f.Quantized = true
	f.UV = true
	src := Build(f)[Draw]
	assert.Contains(t, src.Vertex, "attribute vec2 normal;")
	assert.Contains(t, src.Vertex, "vec3 octDecode(vec2 oct)")
	assert.Contains(t, src.Vertex, "positionsDecodeMatrix * vec4(position, 1.0)")
	assert.Contains(t, src.Vertex, "uniform mat3 uvDecodeMatrix;")
}

func TestBillboard(t *testing.T) {
	f := litFeatures()
	f.Billboard = state.BillboardCylindrical
	src := Build(f)
	assert.Contains(t, src[Draw].Vertex, "billboard(modelViewMatrix);")
	assert.NotContains(t, src[Draw].Vertex, "mat[1][1] = 1.0;")
	assert.Contains(t, src[PickObject].Vertex, "billboard(modelViewMatrix);")
}

func TestNormalMapNeedsDerivatives(t *testing.T) {
	f := litFeatures()
	f.UV = true
	f.Maps = []state.TextureSlot{state.DiffuseMap, state.NormalMap}
	src := Build(f)[Draw]
	assert.True(t, strings.HasPrefix(src.Fragment, "#extension GL_OES_standard_derivatives : enable\n"))
	assert.Contains(t, src.Fragment, "uniform sampler2D diffuseMap;")
	assert.Contains(t, src.Fragment, "perturbNormal2Arb(")
}

func TestPickVariants(t *testing.T) {
	f := litFeatures()
	src := Build(f)
	assert.Contains(t, src[PickObject].Fragment, "uniform vec4 pickColor;")
	assert.NotContains(t, src[PickObject].Vertex, "pickColor")
	assert.Contains(t, src[PickPrimitive].Vertex, "attribute vec4 pickColor;")
	assert.Contains(t, src[PickPrimitive].Fragment, "gl_FragColor = vPickColor;")
	assert.NotContains(t, src[PickObject].Fragment, "material")
}

func TestGL410Dialect(t *testing.T) {
	f := litFeatures()
	f.Dialect = gpu.DialectGL410
	f.UV = true
	f.Maps = []state.TextureSlot{state.NormalMap}
	src := Build(f)[Draw]
	assert.True(t, strings.HasPrefix(src.Vertex, "#version 410 core\n"))
	assert.Contains(t, src.Vertex, "in vec3 position;")
	assert.Contains(t, src.Vertex, "out vec3 vViewNormal;")
	assert.Contains(t, src.Fragment, "in vec3 vViewNormal;")
	assert.Contains(t, src.Fragment, "out vec4 outColor;")
	assert.Contains(t, src.Fragment, "texture(normalMap, vUV)")
	assert.NotContains(t, src.Fragment, "#extension")
	assert.NotContains(t, src.Fragment, "precision")
}

func TestPointsDeclarePointSize(t *testing.T) {
	f := litFeatures()
	f.Primitive = gpu.Points
	assert.Contains(t, Build(f)[Draw].Vertex, "gl_PointSize = pointSize;")
}

func TestFeaturesOf(t *testing.T) {
	a := state.NewArena()
	g, err := state.NewGeometry(a, state.GeometryData{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
	})
	require.NoError(t, err)
	lights := state.NewLights(a,
		state.Light{Type: state.AmbientLight},
		state.Light{Type: state.PointLight, Space: state.WorldSpace},
	)
	params := state.NewShaderParams(a)
	_, err = params.Set("tint", 1, 1, 1)
	require.NoError(t, err)

	f := FeaturesOf(gpu.DialectWebGL1, Inputs{
		Geometry: g,
		Material: state.NewMaterial(a, state.DefaultMaterialConfig()),
		Lights:   lights,
		Clips:    state.NewClips(a, state.Clip{Active: true}),
		Params:   params,
	})
	assert.Equal(t, []LightFeature{{Type: state.PointLight, Space: state.WorldSpace}}, f.Lights)
	assert.Equal(t, 1, f.Clips)
	assert.True(t, f.Normals)
	assert.Equal(t, []Param{{Name: "tint", Size: 3}}, f.Params)
	assert.Contains(t, Build(f)[Draw].Fragment, "uniform vec3 tint;")

	empty := FeaturesOf(gpu.DialectWebGL1, Inputs{})
	assert.Empty(t, empty.Lights)
}
