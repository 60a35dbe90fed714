package scene

import (
	"github.com/chewxy/math32"

	"xeogl/gpu"
	"xeogl/state"
)

// meshBuilder accumulates indexed triangles with normals and UVs.
type meshBuilder struct {
	data state.GeometryData
}

func (b *meshBuilder) vertex(px, py, pz, nx, ny, nz, u, v float32) uint32 {
	i := uint32(len(b.data.Positions) / 3)
	b.data.Positions = append(b.data.Positions, px, py, pz)
	b.data.Normals = append(b.data.Normals, nx, ny, nz)
	b.data.UV = append(b.data.UV, u, v)
	return i
}

func (b *meshBuilder) tri(i0, i1, i2 uint32) {
	b.data.Indices = append(b.data.Indices, i0, i1, i2)
}

func (b *meshBuilder) build() state.GeometryData {
	b.data.Primitive = gpu.Triangles
	return b.data
}

// BoxGeometry returns an axis-aligned box centred on the origin with one
// quad per face.
func BoxGeometry(width, height, depth float32) state.GeometryData {
	x, y, z := width/2, height/2, depth/2
	faces := [6]struct {
		n      [3]float32
		corner [4][3]float32
	}{
		{[3]float32{0, 0, 1}, [4][3]float32{{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{x, -y, -z}, {-x, -y, -z}, {-x, y, -z}, {x, y, -z}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-x, y, z}, {x, y, z}, {x, y, -z}, {-x, y, -z}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-x, -y, -z}, {x, -y, -z}, {x, -y, z}, {-x, -y, z}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{x, -y, z}, {x, -y, -z}, {x, y, -z}, {x, y, z}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-x, -y, -z}, {-x, -y, z}, {-x, y, z}, {-x, y, -z}}},
	}
	uv := [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	var b meshBuilder
	for _, f := range faces {
		var idx [4]uint32
		for i, c := range f.corner {
			idx[i] = b.vertex(c[0], c[1], c[2], f.n[0], f.n[1], f.n[2], uv[i][0], uv[i][1])
		}
		b.tri(idx[0], idx[1], idx[2])
		b.tri(idx[2], idx[3], idx[0])
	}
	return b.build()
}

// SphereGeometry returns a UV sphere.
func SphereGeometry(radius float32, segments, rings int) state.GeometryData {
	segments = max(segments, 3)
	rings = max(rings, 2)

	var b meshBuilder
	for ring := 0; ring <= rings; ring++ {
		phi := float32(ring) * math32.Pi / float32(rings)
		sinPhi, cosPhi := math32.Sin(phi), math32.Cos(phi)
		for seg := 0; seg <= segments; seg++ {
			theta := float32(seg) * 2 * math32.Pi / float32(segments)
			nx, ny, nz := sinPhi*math32.Cos(theta), cosPhi, sinPhi*math32.Sin(theta)
			b.vertex(nx*radius, ny*radius, nz*radius, nx, ny, nz,
				float32(seg)/float32(segments), float32(ring)/float32(rings))
		}
	}
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			cur := uint32(ring*(segments+1) + seg)
			next := cur + uint32(segments+1)
			b.tri(cur, cur+1, next)
			b.tri(cur+1, next+1, next)
		}
	}
	return b.build()
}

// CylinderGeometry returns a capped cylinder along the Y axis.
func CylinderGeometry(radius, height float32, segments int) state.GeometryData {
	segments = max(segments, 3)
	h := height / 2

	var b meshBuilder
	for i := 0; i <= segments; i++ {
		theta := float32(i) * 2 * math32.Pi / float32(segments)
		c, s := math32.Cos(theta), math32.Sin(theta)
		u := float32(i) / float32(segments)
		b.vertex(c*radius, -h, s*radius, c, 0, s, u, 0)
		b.vertex(c*radius, h, s*radius, c, 0, s, u, 1)
	}
	for i := 0; i < segments; i++ {
		b0, t0 := uint32(2*i), uint32(2*i+1)
		b1, t1 := b0+2, t0+2
		b.tri(b0, t0, b1)
		b.tri(b1, t0, t1)
	}

	for _, y := range []float32{h, -h} {
		ny := float32(1)
		if y < 0 {
			ny = -1
		}
		center := b.vertex(0, y, 0, 0, ny, 0, 0.5, 0.5)
		for i := 0; i <= segments; i++ {
			theta := float32(i) * 2 * math32.Pi / float32(segments)
			c, s := math32.Cos(theta), math32.Sin(theta)
			b.vertex(c*radius, y, s*radius, 0, ny, 0, 0.5+c/2, 0.5+s/2)
		}
		for i := uint32(0); i < uint32(segments); i++ {
			r0, r1 := center+1+i, center+2+i
			if y > 0 {
				b.tri(center, r1, r0)
			} else {
				b.tri(center, r0, r1)
			}
		}
	}
	return b.build()
}

// TorusGeometry returns a torus lying in the XZ plane.
func TorusGeometry(majorRadius, minorRadius float32, majorSegments, minorSegments int) state.GeometryData {
	majorSegments = max(majorSegments, 3)
	minorSegments = max(minorSegments, 3)

	var b meshBuilder
	for i := 0; i <= majorSegments; i++ {
		theta := float32(i) * 2 * math32.Pi / float32(majorSegments)
		ct, st := math32.Cos(theta), math32.Sin(theta)
		for j := 0; j <= minorSegments; j++ {
			phi := float32(j) * 2 * math32.Pi / float32(minorSegments)
			cp, sp := math32.Cos(phi), math32.Sin(phi)
			r := majorRadius + minorRadius*cp
			b.vertex(r*ct, minorRadius*sp, r*st, cp*ct, sp, cp*st,
				float32(i)/float32(majorSegments), float32(j)/float32(minorSegments))
		}
	}
	for i := 0; i < majorSegments; i++ {
		for j := 0; j < minorSegments; j++ {
			cur := uint32(i*(minorSegments+1) + j)
			next := uint32((i+1)*(minorSegments+1) + j)
			b.tri(cur, cur+1, next)
			b.tri(cur+1, next+1, next)
		}
	}
	return b.build()
}

// PlaneGeometry returns a subdivided plane in XZ facing +Y.
func PlaneGeometry(width, depth float32, subdivisions int) state.GeometryData {
	subdivisions = max(subdivisions, 1)
	hw, hd := width/2, depth/2

	var b meshBuilder
	for z := 0; z <= subdivisions; z++ {
		for x := 0; x <= subdivisions; x++ {
			u := float32(x) / float32(subdivisions)
			v := float32(z) / float32(subdivisions)
			b.vertex(-hw+u*width, 0, -hd+v*depth, 0, 1, 0, u, v)
		}
	}
	for z := 0; z < subdivisions; z++ {
		for x := 0; x < subdivisions; x++ {
			tl := uint32(z*(subdivisions+1) + x)
			tr := tl + 1
			bl := tl + uint32(subdivisions+1)
			br := bl + 1
			b.tri(tl, bl, tr)
			b.tri(tr, bl, br)
		}
	}
	return b.build()
}

// GridGeometry returns a line grid in the XZ plane spanning size with
// divisions cells per side. The centre line along X is red and the one
// along Z is blue.
func GridGeometry(size float32, divisions int) state.GeometryData {
	divisions = max(divisions, 1)
	half := size / 2
	step := size / float32(divisions)

	gray := [4]float32{0.35, 0.35, 0.35, 1}
	red := [4]float32{0.8, 0.15, 0.15, 1}
	blue := [4]float32{0.15, 0.35, 0.9, 1}

	d := state.GeometryData{Primitive: gpu.Lines}
	line := func(x0, z0, x1, z1 float32, c [4]float32) {
		base := uint32(len(d.Positions) / 3)
		d.Positions = append(d.Positions, x0, 0, z0, x1, 0, z1)
		d.Colors = append(d.Colors, c[0], c[1], c[2], c[3], c[0], c[1], c[2], c[3])
		d.Indices = append(d.Indices, base, base+1)
	}
	for i := 0; i <= divisions; i++ {
		x := -half + float32(i)*step
		c := gray
		if i == divisions/2 {
			c = blue
		}
		line(x, -half, x, half, c)
	}
	for i := 0; i <= divisions; i++ {
		z := -half + float32(i)*step
		c := gray
		if i == divisions/2 {
			c = red
		}
		line(-half, z, half, z, c)
	}
	return d
}
