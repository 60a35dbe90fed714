package scene

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleDoc is a two-node document: a translated group whose child
// draws one half-transparent red triangle.
func triangleDoc() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})

	doc.Materials = []*gltf.Material{{
		Name:        "red",
		AlphaMode:   gltf.AlphaBlend,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float64{1, 0, 0, 0.5},
		},
	}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Material:   gltf.Index(0),
			Attributes: map[string]int{"POSITION": pos, "NORMAL": nrm},
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "group", Children: []int{1}, Translation: [3]float64{1, 2, 3}},
		{Name: "leaf", Mesh: gltf.Index(0)},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}
	doc.Scene = gltf.Index(0)
	return doc
}

func TestDecodeGLTF(t *testing.T) {
	m, err := DecodeGLTF(triangleDoc(), "", nil)
	require.NoError(t, err)

	require.Len(t, m.Geometries, 1)
	g := m.Geometries[0]
	assert.Equal(t, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, g.Positions)
	assert.Equal(t, []uint32{0, 1, 2}, g.Indices)
	assert.True(t, g.HasNormals())

	require.Len(t, m.Materials, 1)
	md := m.Materials[0]
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, md.Config.Diffuse)
	assert.InDelta(t, 0.5, md.Config.Alpha, 1e-6)
	assert.True(t, md.Transparent)
	assert.True(t, md.DoubleSided)
	assert.Equal(t, -1, md.DiffuseMap)

	assert.Equal(t, []int{0}, m.Roots)
	assert.Equal(t, []int{1}, m.Nodes[0].Children)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, m.Nodes[0].Position)
	assert.Equal(t, []PrimitiveRef{{Geometry: 0, Material: 0}}, m.Nodes[1].Primitives)
}

func TestDecodeGLTFWithoutPrimitives(t *testing.T) {
	doc := triangleDoc()
	delete(doc.Meshes[0].Primitives[0].Attributes, "POSITION")
	_, err := DecodeGLTF(doc, "", nil)
	assert.ErrorContains(t, err, "no usable mesh primitives")
}

func TestNodeMatrixDecomposed(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(90))).Mul4(mgl32.Scale3D(2, 2, 2))
	var mat [16]float64
	for i, v := range m {
		mat[i] = float64(v)
	}
	pos, rot, scale := nodeTRS(&gltf.Node{Matrix: mat})
	assertVec3(t, mgl32.Vec3{1, 2, 3}, pos, 1e-5)
	assertVec3(t, mgl32.Vec3{2, 2, 2}, scale, 1e-5)
	want := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	assert.InDelta(t, 1, float64(abs32(rot.Dot(want))), 1e-5)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func TestInstantiateAndDestroyModel(t *testing.T) {
	f := newFixture(t)
	data, err := DecodeGLTF(triangleDoc(), "", nil)
	require.NoError(t, err)
	data.Name = "tri.glb"

	model, err := f.scene.Instantiate(data, nil)
	require.NoError(t, err)
	assert.Equal(t, "tri.glb", model.Root.Name())
	require.Len(t, model.Entities, 2)

	leaf := f.scene.Find("leaf")
	require.NotNil(t, leaf)
	assertVec3(t, mgl32.Vec3{1, 2, 3}, translation(leaf.WorldMatrix()), 1e-5)
	assert.True(t, leaf.Modes().Transparent())
	assert.True(t, leaf.Modes().Backfaces())
	assert.Same(t, model.Materials[0], leaf.Object().Config().Material)
	assert.Len(t, f.re.Objects(), 1)

	require.NoError(t, f.scene.Render())
	assert.Len(t, f.ctx.DrawCalls, 1)

	geom := model.Geometries[0]
	model.Destroy()
	assert.True(t, geom.Destroyed())
	assert.True(t, leaf.Destroyed())
	assert.Empty(t, f.re.Objects())
	assert.Empty(t, f.scene.Roots())
}

func TestLoadGLTFFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.glb")
	require.NoError(t, gltf.SaveBinary(triangleDoc(), path))

	f := newFixture(t)
	model, err := LoadGLTF(f.scene, path)
	require.NoError(t, err)
	assert.Equal(t, "tri.glb", model.Root.Name())
	assert.Len(t, model.Geometries, 1)

	_, err = LoadGLTF(f.scene, filepath.Join(t.TempDir(), "missing.glb"))
	assert.Error(t, err)
}
