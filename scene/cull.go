package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"xeogl/state"
)

// Plane is the half-space Normal·p + D >= 0.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// DistanceTo returns the signed distance from pt, positive inside.
func (p Plane) DistanceTo(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.D
}

// Frustum holds the six clip planes of a view frustum: left, right,
// bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts normalized planes from a projection*view
// matrix.
func FrustumFromMatrix(vp mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := vp.Row(0), vp.Row(1), vp.Row(2), vp.Row(3)
	return Frustum{Planes: [6]Plane{
		normalizePlane(r3.Add(r0)),
		normalizePlane(r3.Sub(r0)),
		normalizePlane(r3.Add(r1)),
		normalizePlane(r3.Sub(r1)),
		normalizePlane(r3.Add(r2)),
		normalizePlane(r3.Sub(r2)),
	}}
}

func normalizePlane(v mgl32.Vec4) Plane {
	n := v.Vec3()
	l := n.Len()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Mul(1 / l), D: v.W() / l}
}

type AABB struct {
	Min, Max mgl32.Vec3
}

func emptyAABB() AABB {
	inf := float32(3.4e38)
	return AABB{Min: mgl32.Vec3{inf, inf, inf}, Max: mgl32.Vec3{-inf, -inf, -inf}}
}

func (b *AABB) extend(p mgl32.Vec3) {
	for i := range 3 {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// Transform returns the box enclosing b's corners after m.
func (b AABB) Transform(m mgl32.Mat4) AABB {
	out := emptyAABB()
	for i := range 8 {
		c := b.Min
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		out.extend(mgl32.TransformCoordinate(c, m))
	}
	return out
}

// IntersectsFrustum is false only when b lies entirely outside one plane.
func (b AABB) IntersectsFrustum(f *Frustum) bool {
	for _, p := range f.Planes {
		v := b.Max
		for i := range 3 {
			if p.Normal[i] < 0 {
				v[i] = b.Min[i]
			}
		}
		if p.DistanceTo(v) < 0 {
			return false
		}
	}
	return true
}

// GeometryAABB returns the local-space bounds of d, decoding quantized
// positions.
func GeometryAABB(d *state.GeometryData) AABB {
	box := emptyAABB()
	if d.Quantized() {
		q := d.QuantizedPositions
		for i := 0; i+2 < len(q); i += 3 {
			p := mgl32.Vec3{float32(q[i]), float32(q[i+1]), float32(q[i+2])}
			box.extend(mgl32.TransformCoordinate(p, d.PositionsDecode))
		}
		return box
	}
	for i := 0; i+2 < len(d.Positions); i += 3 {
		box.extend(mgl32.Vec3{d.Positions[i], d.Positions[i+1], d.Positions[i+2]})
	}
	return box
}

type boundsEntry struct {
	version uint64
	box     AABB
}

func (s *Scene) localBounds(g *state.Geometry) AABB {
	if e, ok := s.bounds[g]; ok && e.version == g.Version() {
		return e.box
	}
	box := GeometryAABB(g.Data())
	s.bounds[g] = boundsEntry{version: g.Version(), box: box}
	return box
}

// Cull marks entities whose world bounds fall outside the camera frustum
// as culled and clears the flag on the others. It returns the number
// culled.
func (s *Scene) Cull() int {
	vp := s.camera.Proj().Matrix().Mul4(s.camera.View().Matrix())
	f := FrustumFromMatrix(vp)
	culled := 0
	for g := range s.bounds {
		if g.Destroyed() {
			delete(s.bounds, g)
		}
	}
	for _, r := range s.roots {
		r.Traverse(func(e *Entity) {
			if e.object == nil {
				return
			}
			g := e.object.Config().Geometry
			in := s.localBounds(g).Transform(e.world).IntersectsFrustum(&f)
			e.visibility.SetCulled(!in)
			if !in {
				culled++
			}
		})
	}
	return culled
}
