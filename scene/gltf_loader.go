package scene

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"xeogl/gpu"
	"xeogl/internal/logger"
	"xeogl/state"
)

// ModelData is a decoded model that owns no states yet. Decoding touches
// neither the arena nor the GPU, so it may run on any goroutine.
type ModelData struct {
	Name       string
	Textures   []TextureData
	Materials  []MaterialData
	Geometries []state.GeometryData
	Nodes      []NodeData
	Roots      []int
}

type TextureData struct {
	Width, Height int
	Pixels        []byte
	Params        gpu.TextureParams
}

// MaterialData refers to textures by index into ModelData.Textures, -1 for
// none.
type MaterialData struct {
	Name        string
	Config      state.MaterialConfig
	DiffuseMap  int
	NormalMap   int
	EmissiveMap int
	Transparent bool
	DoubleSided bool
}

// PrimitiveRef pairs a geometry with its material, -1 for the default
// material.
type PrimitiveRef struct {
	Geometry int
	Material int
}

type NodeData struct {
	Name       string
	Position   mgl32.Vec3
	Rotation   mgl32.Quat
	Scale      mgl32.Vec3
	Primitives []PrimitiveRef
	Children   []int
}

// ReadGLTF opens a .gltf or .glb file and decodes it.
func ReadGLTF(path string, log *zap.Logger) (*ModelData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	m, err := DecodeGLTF(doc, filepath.Dir(path), log)
	if err != nil {
		return nil, fmt.Errorf("gltf %q: %w", path, err)
	}
	m.Name = filepath.Base(path)
	return m, nil
}

// DecodeGLTF converts doc into ModelData. External images are resolved
// relative to dir. Broken textures and primitives are logged and skipped;
// a document without any usable primitive is an error.
// PBR metallic-roughness is approximated by Phong.
func DecodeGLTF(doc *gltf.Document, dir string, log *zap.Logger) (*ModelData, error) {
	log = logger.OrNop(log).Named("gltf")
	m := &ModelData{}

	texIndex := make([]int, len(doc.Textures))
	for i, gt := range doc.Textures {
		texIndex[i] = -1
		if gt.Source == nil || *gt.Source >= len(doc.Images) {
			continue
		}
		img, err := decodeGLTFImage(doc, doc.Images[*gt.Source], dir)
		if err != nil {
			log.Warn("skipping texture", zap.Int("texture", i), zap.Error(err))
			continue
		}
		params := gpu.TextureParams{Mipmaps: true, Repeat: true, Linear: true}
		w, h, px := ImagePixels(img, params)
		texIndex[i] = len(m.Textures)
		m.Textures = append(m.Textures, TextureData{Width: w, Height: h, Pixels: px, Params: params})
	}
	texRef := func(i int) int {
		if i < 0 || i >= len(texIndex) {
			return -1
		}
		return texIndex[i]
	}

	for _, gm := range doc.Materials {
		md := MaterialData{
			Name:        gm.Name,
			Config:      state.DefaultMaterialConfig(),
			DiffuseMap:  -1,
			NormalMap:   -1,
			EmissiveMap: -1,
			Transparent: gm.AlphaMode == gltf.AlphaBlend,
			DoubleSided: gm.DoubleSided,
		}
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			md.Config.Diffuse = mgl32.Vec3{float32(cf[0]), float32(cf[1]), float32(cf[2])}
			md.Config.Alpha = float32(cf[3])
			if pbr.BaseColorTexture != nil {
				md.DiffuseMap = texRef(pbr.BaseColorTexture.Index)
			}
			roughness := float32(pbr.RoughnessFactorOrDefault())
			metallic := float32(pbr.MetallicFactorOrDefault())
			md.Config.Shininess = (1-roughness)*(1-roughness)*128 + 1
			s := metallic * 0.7
			md.Config.Specular = mgl32.Vec3{s, s, s}
		}
		ef := gm.EmissiveFactor
		md.Config.Emissive = mgl32.Vec3{float32(ef[0]), float32(ef[1]), float32(ef[2])}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			md.NormalMap = texRef(*gm.NormalTexture.Index)
		}
		if gm.EmissiveTexture != nil {
			md.EmissiveMap = texRef(gm.EmissiveTexture.Index)
		}
		m.Materials = append(m.Materials, md)
	}

	meshPrims := make([][]PrimitiveRef, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			g, err := decodePrimitive(doc, prim)
			if err != nil {
				log.Warn("skipping primitive", zap.Int("mesh", mi), zap.Int("primitive", pi), zap.Error(err))
				continue
			}
			ref := PrimitiveRef{Geometry: len(m.Geometries), Material: -1}
			if prim.Material != nil && *prim.Material < len(m.Materials) {
				ref.Material = *prim.Material
			}
			m.Geometries = append(m.Geometries, g)
			meshPrims[mi] = append(meshPrims[mi], ref)
		}
	}
	if len(m.Geometries) == 0 {
		return nil, errors.New("no usable mesh primitives")
	}

	m.Nodes = make([]NodeData, len(doc.Nodes))
	hasParent := make([]bool, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		nd := NodeData{Name: gn.Name}
		if nd.Name == "" {
			nd.Name = fmt.Sprintf("node_%d", i)
		}
		nd.Position, nd.Rotation, nd.Scale = nodeTRS(gn)
		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			nd.Primitives = meshPrims[*gn.Mesh]
		}
		for _, c := range gn.Children {
			if c < len(doc.Nodes) && !hasParent[c] {
				hasParent[c] = true
				nd.Children = append(nd.Children, c)
			}
		}
		m.Nodes[i] = nd
	}

	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, r := range doc.Scenes[*doc.Scene].Nodes {
			if r < len(m.Nodes) {
				m.Roots = append(m.Roots, r)
			}
		}
	} else {
		for i := range m.Nodes {
			if !hasParent[i] {
				m.Roots = append(m.Roots, i)
			}
		}
	}
	return m, nil
}

// nodeTRS returns the node's local transform, decomposing an explicit
// matrix when one is given.
func nodeTRS(gn *gltf.Node) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	mat := gn.MatrixOrDefault()
	var m mgl32.Mat4
	for i, v := range mat {
		m[i] = float32(v)
	}
	if m != mgl32.Ident4() {
		t := m.Col(3).Vec3()
		s := mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
		var r mgl32.Mat4
		for c := range 3 {
			if s[c] != 0 {
				r.SetCol(c, m.Col(c).Mul(1/s[c]))
			}
		}
		r.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
		return t, mgl32.Mat4ToQuat(r).Normalize(), s
	}

	tr := gn.TranslationOrDefault()
	ro := gn.RotationOrDefault()
	sc := gn.ScaleOrDefault()
	return mgl32.Vec3{float32(tr[0]), float32(tr[1]), float32(tr[2])},
		mgl32.Quat{W: float32(ro[3]), V: mgl32.Vec3{float32(ro[0]), float32(ro[1]), float32(ro[2])}},
		mgl32.Vec3{float32(sc[0]), float32(sc[1]), float32(sc[2])}
}

func primitiveMode(mode gltf.PrimitiveMode) (gpu.Primitive, error) {
	switch mode {
	case gltf.PrimitiveTriangles:
		return gpu.Triangles, nil
	case gltf.PrimitiveLines:
		return gpu.Lines, nil
	case gltf.PrimitivePoints:
		return gpu.Points, nil
	}
	return 0, fmt.Errorf("unsupported primitive mode %d", mode)
}

func decodePrimitive(doc *gltf.Document, prim *gltf.Primitive) (state.GeometryData, error) {
	var d state.GeometryData
	p, err := primitiveMode(prim.Mode)
	if err != nil {
		return d, err
	}
	d.Primitive = p

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return d, errors.New("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return d, fmt.Errorf("positions: %w", err)
	}
	d.Positions = make([]float32, 0, len(positions)*3)
	for _, v := range positions {
		d.Positions = append(d.Positions, v[0], v[1], v[2])
	}

	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err != nil {
			return d, fmt.Errorf("normals: %w", err)
		}
		for _, n := range normals {
			d.Normals = append(d.Normals, n[0], n[1], n[2])
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err != nil {
			return d, fmt.Errorf("uv: %w", err)
		}
		for _, uv := range uvs {
			d.UV = append(d.UV, uv[0], uv[1])
		}
	}
	if idx, ok := prim.Attributes["COLOR_0"]; ok {
		colors, err := modeler.ReadColor(doc, doc.Accessors[idx], nil)
		if err != nil {
			return d, fmt.Errorf("colors: %w", err)
		}
		for _, c := range colors {
			d.Colors = append(d.Colors, float32(c[0])/255, float32(c[1])/255, float32(c[2])/255, float32(c[3])/255)
		}
	}

	if prim.Indices != nil {
		d.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return d, fmt.Errorf("indices: %w", err)
		}
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

func decodeGLTFImage(doc *gltf.Document, img *gltf.Image, dir string) (image.Image, error) {
	var raw []byte
	switch {
	case img.BufferView != nil:
		if *img.BufferView >= len(doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", *img.BufferView)
		}
		b, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		if err != nil {
			return nil, fmt.Errorf("buffer view: %w", err)
		}
		raw = b
	case img.IsEmbeddedResource():
		b, err := img.MarshalData()
		if err != nil {
			return nil, fmt.Errorf("data uri: %w", err)
		}
		raw = b
	case img.URI != "":
		return decodeImageFile(filepath.Join(dir, img.URI))
	default:
		return nil, errors.New("image has no source")
	}
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return decoded, nil
}

// Model is an instantiated ModelData. It owns its entities and states.
type Model struct {
	scene      *Scene
	Root       *Entity
	Entities   []*Entity
	Geometries []*state.Geometry
	Materials  []*state.Material
	Textures   []*state.Texture
}

// Instantiate creates the states and entities of m under parent, or as a
// new root when parent is nil. Must be called on the render goroutine.
func (s *Scene) Instantiate(m *ModelData, parent *Entity) (*Model, error) {
	model := &Model{scene: s}
	fail := func(err error) (*Model, error) {
		model.Destroy()
		return nil, err
	}

	for i, td := range m.Textures {
		t, err := state.NewTexture(s.arena, td.Width, td.Height, td.Pixels, td.Params)
		if err != nil {
			return fail(fmt.Errorf("texture %d: %w", i, err))
		}
		model.Textures = append(model.Textures, t)
	}
	tex := func(i int) *state.Texture {
		if i < 0 || i >= len(model.Textures) {
			return nil
		}
		return model.Textures[i]
	}
	for _, md := range m.Materials {
		mat := state.NewMaterial(s.arena, md.Config)
		if t := tex(md.DiffuseMap); t != nil {
			mat.SetMap(state.DiffuseMap, t)
		}
		if t := tex(md.NormalMap); t != nil {
			mat.SetMap(state.NormalMap, t)
		}
		if t := tex(md.EmissiveMap); t != nil {
			mat.SetMap(state.EmissiveMap, t)
		}
		model.Materials = append(model.Materials, mat)
	}
	var defaultMat *state.Material
	for i, gd := range m.Geometries {
		g, err := state.NewGeometry(s.arena, gd)
		if err != nil {
			return fail(fmt.Errorf("geometry %d: %w", i, err))
		}
		model.Geometries = append(model.Geometries, g)
	}

	root, err := s.AddEntity(EntityConfig{Name: m.Name, Parent: parent})
	if err != nil {
		return fail(err)
	}
	model.Root = root

	var add func(ni int, parent *Entity, depth int) error
	add = func(ni int, parent *Entity, depth int) error {
		if depth > len(m.Nodes) {
			return errors.New("node hierarchy has a cycle")
		}
		nd := m.Nodes[ni]
		cfg := EntityConfig{
			Name:     nd.Name,
			Parent:   parent,
			Position: nd.Position,
			Rotation: nd.Rotation,
			Scale:    nd.Scale,
		}
		prims := nd.Primitives
		if len(prims) == 1 {
			if err := s.primitiveConfig(model, m, prims[0], &cfg, &defaultMat); err != nil {
				return err
			}
			prims = nil
		}
		e, err := s.AddEntity(cfg)
		if err != nil {
			return err
		}
		model.Entities = append(model.Entities, e)
		for pi, ref := range prims {
			pc := EntityConfig{Name: fmt.Sprintf("%s_prim%d", nd.Name, pi), Parent: e}
			if err := s.primitiveConfig(model, m, ref, &pc, &defaultMat); err != nil {
				return err
			}
			child, err := s.AddEntity(pc)
			if err != nil {
				return err
			}
			model.Entities = append(model.Entities, child)
		}
		for _, c := range nd.Children {
			if err := add(c, e, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range m.Roots {
		if err := add(r, root, 0); err != nil {
			return fail(err)
		}
	}
	s.logger.Info("model instantiated",
		zap.String("name", m.Name),
		zap.Int("entities", len(model.Entities)),
		zap.Int("geometries", len(model.Geometries)),
		zap.Int("textures", len(model.Textures)))
	return model, nil
}

func (s *Scene) primitiveConfig(model *Model, m *ModelData, ref PrimitiveRef, cfg *EntityConfig, defaultMat **state.Material) error {
	if ref.Geometry < 0 || ref.Geometry >= len(model.Geometries) {
		return fmt.Errorf("geometry %d out of range", ref.Geometry)
	}
	cfg.Geometry = model.Geometries[ref.Geometry]
	modes := state.DefaultModes()
	if ref.Material >= 0 && ref.Material < len(model.Materials) {
		md := m.Materials[ref.Material]
		cfg.Material = model.Materials[ref.Material]
		modes.Transparent = md.Transparent
		modes.Backfaces = md.DoubleSided
	} else {
		if *defaultMat == nil {
			*defaultMat = state.NewMaterial(s.arena, state.DefaultMaterialConfig())
			model.Materials = append(model.Materials, *defaultMat)
		}
		cfg.Material = *defaultMat
	}
	cfg.Modes = &modes
	return nil
}

// Destroy removes the model's entities and destroys every state it
// created.
func (m *Model) Destroy() {
	if m.Root != nil {
		m.scene.RemoveEntity(m.Root)
		m.Root = nil
	}
	m.Entities = nil
	for _, g := range m.Geometries {
		g.Destroy()
	}
	for _, mat := range m.Materials {
		mat.Destroy()
	}
	for _, t := range m.Textures {
		t.Destroy()
	}
	m.Geometries, m.Materials, m.Textures = nil, nil, nil
}

// LoadGLTF reads the file at path and instantiates it as a new root entity.
func LoadGLTF(s *Scene, path string) (*Model, error) {
	data, err := ReadGLTF(path, s.logger)
	if err != nil {
		return nil, err
	}
	return s.Instantiate(data, nil)
}
