package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"xeogl/gpu"
	"xeogl/internal/logger"
	"xeogl/state"
)

// objFace is one triangle of 0-based position, UV and normal indices, -1
// when absent.
type objFace struct {
	v, vt, vn [3]int
}

type objGroup struct {
	name     string
	material string
	faces    []objFace
}

// ReadOBJ parses a Wavefront .obj file and the .mtl libraries it names.
func ReadOBJ(path string, log *zap.Logger) (*ModelData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open obj %q: %w", path, err)
	}
	defer f.Close()

	m, err := DecodeOBJ(f, filepath.Dir(path), log)
	if err != nil {
		return nil, fmt.Errorf("obj %q: %w", path, err)
	}
	m.Name = filepath.Base(path)
	return m, nil
}

// DecodeOBJ converts OBJ text into ModelData with one root node per object
// or group. Polygons are fan triangulated. Missing normals are generated.
func DecodeOBJ(r io.Reader, dir string, log *zap.Logger) (*ModelData, error) {
	log = logger.OrNop(log).Named("obj")

	var positions, normals []mgl32.Vec3
	var uvs []mgl32.Vec2
	materials := map[string]int{}
	m := &ModelData{}

	var groups []objGroup
	cur := &objGroup{name: "default"}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "v":
			if v, ok := parseFloats(fields[1:], 3); ok {
				positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})
			}
		case "vn":
			if v, ok := parseFloats(fields[1:], 3); ok {
				normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})
			}
		case "vt":
			if v, ok := parseFloats(fields[1:], 2); ok {
				uvs = append(uvs, mgl32.Vec2{v[0], v[1]})
			}
		case "o", "g":
			if len(cur.faces) > 0 {
				groups = append(groups, *cur)
			}
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			cur = &objGroup{name: name, material: cur.material}
		case "usemtl":
			if len(fields) > 1 {
				cur.material = fields[1]
			}
		case "mtllib":
			for _, lib := range fields[1:] {
				if err := readMTL(filepath.Join(dir, lib), dir, m, materials, log); err != nil {
					log.Warn("skipping material library", zap.String("mtllib", lib), zap.Error(err))
				}
			}
		case "f":
			if len(fields) < 4 {
				continue
			}
			verts := make([][3]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				verts = append(verts, parseFaceVertex(tok, len(positions), len(uvs), len(normals)))
			}
			for i := 1; i+1 < len(verts); i++ {
				a, b, c := verts[0], verts[i], verts[i+1]
				cur.faces = append(cur.faces, objFace{
					v:  [3]int{a[0], b[0], c[0]},
					vt: [3]int{a[1], b[1], c[1]},
					vn: [3]int{a[2], b[2], c[2]},
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan obj: %w", err)
	}
	if len(cur.faces) > 0 {
		groups = append(groups, *cur)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no faces")
	}

	for _, g := range groups {
		gd, err := buildOBJGeometry(g.faces, positions, normals, uvs)
		if err != nil {
			log.Warn("skipping group", zap.String("group", g.name), zap.Error(err))
			continue
		}
		ref := PrimitiveRef{Geometry: len(m.Geometries), Material: -1}
		if mi, ok := materials[g.material]; ok {
			ref.Material = mi
		}
		m.Geometries = append(m.Geometries, gd)
		m.Roots = append(m.Roots, len(m.Nodes))
		m.Nodes = append(m.Nodes, NodeData{
			Name:       g.name,
			Rotation:   mgl32.QuatIdent(),
			Scale:      mgl32.Vec3{1, 1, 1},
			Primitives: []PrimitiveRef{ref},
		})
	}
	if len(m.Geometries) == 0 {
		return nil, fmt.Errorf("no usable groups")
	}
	return m, nil
}

func parseFloats(fields []string, n int) ([]float32, bool) {
	if len(fields) < n {
		return nil, false
	}
	out := make([]float32, n)
	for i := range n {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, false
		}
		out[i] = float32(f)
	}
	return out, true
}

// parseFaceVertex parses "v", "v/vt", "v//vn" or "v/vt/vn" into 0-based
// indices. Negative indices count back from the current pool sizes.
func parseFaceVertex(tok string, nv, nvt, nvn int) [3]int {
	res := [3]int{-1, -1, -1}
	sizes := [3]int{nv, nvt, nvn}
	for i, part := range strings.SplitN(tok, "/", 3) {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		switch {
		case err != nil || n == 0:
		case n > 0:
			res[i] = n - 1
		default:
			res[i] = sizes[i] + n
		}
	}
	return res
}

// buildOBJGeometry deduplicates face vertices into an indexed geometry.
func buildOBJGeometry(faces []objFace, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2) (state.GeometryData, error) {
	d := state.GeometryData{Primitive: gpu.Triangles}
	var hasUV, hasNormals bool
	for _, f := range faces {
		for c := range 3 {
			hasUV = hasUV || f.vt[c] >= 0
			hasNormals = hasNormals || f.vn[c] >= 0
		}
	}
	seen := map[[3]int]uint32{}

	for _, f := range faces {
		for c := range 3 {
			k := [3]int{f.v[c], f.vt[c], f.vn[c]}
			if idx, ok := seen[k]; ok {
				d.Indices = append(d.Indices, idx)
				continue
			}
			if k[0] < 0 || k[0] >= len(positions) {
				return d, fmt.Errorf("position index %d out of range", k[0])
			}
			idx := uint32(len(d.Positions) / 3)
			p := positions[k[0]]
			d.Positions = append(d.Positions, p[0], p[1], p[2])
			if hasNormals {
				n := mgl32.Vec3{0, 1, 0}
				if k[2] >= 0 && k[2] < len(normals) {
					n = normals[k[2]]
				}
				d.Normals = append(d.Normals, n[0], n[1], n[2])
			}
			if hasUV {
				var uv mgl32.Vec2
				if k[1] >= 0 && k[1] < len(uvs) {
					uv = uvs[k[1]]
				}
				d.UV = append(d.UV, uv[0], uv[1])
			}
			seen[k] = idx
			d.Indices = append(d.Indices, idx)
		}
	}
	if !hasNormals {
		d.Normals = generateNormals(d.Positions, d.Indices)
	}
	return d, nil
}

// generateNormals returns area-weighted smooth vertex normals.
func generateNormals(positions []float32, indices []uint32) []float32 {
	acc := make([]mgl32.Vec3, len(positions)/3)
	at := func(i uint32) mgl32.Vec3 {
		return mgl32.Vec3{positions[3*i], positions[3*i+1], positions[3*i+2]}
	}
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		v0 := at(i0)
		n := at(i1).Sub(v0).Cross(at(i2).Sub(v0))
		acc[i0] = acc[i0].Add(n)
		acc[i1] = acc[i1].Add(n)
		acc[i2] = acc[i2].Add(n)
	}
	out := make([]float32, 0, len(positions))
	for _, n := range acc {
		if n.Len() > 0 {
			n = n.Normalize()
		} else {
			n = mgl32.Vec3{0, 1, 0}
		}
		out = append(out, n[0], n[1], n[2])
	}
	return out
}

// readMTL appends the materials of the library at path to m.
func readMTL(path, dir string, m *ModelData, index map[string]int, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var cur *MaterialData
	flush := func() {
		if cur != nil {
			index[cur.Name] = len(m.Materials)
			m.Materials = append(m.Materials, *cur)
		}
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fields[0] == "newmtl" {
			flush()
			cur = &MaterialData{Config: state.DefaultMaterialConfig(), DiffuseMap: -1, NormalMap: -1, EmissiveMap: -1}
			if len(fields) > 1 {
				cur.Name = fields[1]
			}
			continue
		}
		if cur == nil {
			continue
		}
		switch fields[0] {
		case "Kd":
			if v, ok := parseFloats(fields[1:], 3); ok {
				cur.Config.Diffuse = mgl32.Vec3{v[0], v[1], v[2]}
			}
		case "Ks":
			if v, ok := parseFloats(fields[1:], 3); ok {
				cur.Config.Specular = mgl32.Vec3{v[0], v[1], v[2]}
			}
		case "Ke":
			if v, ok := parseFloats(fields[1:], 3); ok {
				cur.Config.Emissive = mgl32.Vec3{v[0], v[1], v[2]}
			}
		case "Ns":
			if v, ok := parseFloats(fields[1:], 1); ok {
				cur.Config.Shininess = max(1, v[0])
			}
		case "d":
			if v, ok := parseFloats(fields[1:], 1); ok {
				cur.Config.Alpha = v[0]
				cur.Transparent = v[0] < 1
			}
		case "map_Kd":
			if len(fields) < 2 {
				continue
			}
			params := gpu.TextureParams{Mipmaps: true, Repeat: true, Linear: true, Flip: true}
			img, err := decodeImageFile(filepath.Join(dir, fields[len(fields)-1]))
			if err != nil {
				log.Warn("skipping texture", zap.String("material", cur.Name), zap.Error(err))
				continue
			}
			w, h, px := ImagePixels(img, params)
			cur.DiffuseMap = len(m.Textures)
			m.Textures = append(m.Textures, TextureData{Width: w, Height: h, Pixels: px, Params: params})
		}
	}
	flush()
	return scanner.Err()
}

// ReadModel picks the decoder by file extension.
func ReadModel(path string, log *zap.Logger) (*ModelData, error) {
	if strings.EqualFold(filepath.Ext(path), ".obj") {
		return ReadOBJ(path, log)
	}
	return ReadGLTF(path, log)
}
