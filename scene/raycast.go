package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"xeogl/gpu"
	"xeogl/state"
)

// Ray is a half-line in world space. Dir is unit length.
type Ray struct {
	Origin, Dir mgl32.Vec3
}

// At returns the point t units along the ray.
func (r Ray) At(t float32) mgl32.Vec3 { return r.Origin.Add(r.Dir.Mul(t)) }

// Hit is the nearest intersection of a ray with an entity's triangles.
type Hit struct {
	Entity *Entity

	// Primitive is the triangle index within the entity's geometry.
	Primitive int

	Distance float32
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
}

// ScreenRay returns the world-space ray through canvas pixel (x, y), origin
// top-left.
func (s *Scene) ScreenRay(x, y float32) Ray {
	w, h := s.re.CanvasSize()
	w, h = max(w, 1), max(h, 1)
	view, proj := s.camera.View().Matrix(), s.camera.Proj().Matrix()
	wy := float32(h) - y
	near, err1 := mgl32.UnProject(mgl32.Vec3{x, wy, 0}, view, proj, 0, 0, w, h)
	far, err2 := mgl32.UnProject(mgl32.Vec3{x, wy, 1}, view, proj, 0, 0, w, h)
	if err1 != nil || err2 != nil {
		return Ray{Origin: s.camera.Eye(), Dir: s.camera.Look().Sub(s.camera.Eye()).Normalize()}
	}
	return Ray{Origin: near, Dir: far.Sub(near).Normalize()}
}

// Raycast intersects r with the triangles of every visible, pickable
// entity and returns the nearest hit, or false when nothing was hit.
func (s *Scene) Raycast(r Ray) (Hit, bool) {
	best := Hit{Distance: math32.Inf(1)}
	found := false
	for _, root := range s.roots {
		root.Traverse(func(e *Entity) {
			if e.object == nil || !e.visibility.Visible() || !e.modes.Pickable() {
				return
			}
			g := e.object.Config().Geometry
			if g.Data().Primitive != gpu.Triangles {
				return
			}
			t, ok := rayAABB(r, s.localBounds(g).Transform(e.world))
			if !ok || t > best.Distance {
				return
			}
			if h, ok := rayGeometry(r, g.Data(), e.world); ok && h.Distance < best.Distance {
				h.Entity = e
				best, found = h, true
			}
		})
	}
	return best, found
}

// rayAABB returns the entry distance of r into b using the slab test.
func rayAABB(r Ray, b AABB) (float32, bool) {
	tmin, tmax := math32.Inf(-1), math32.Inf(1)
	for i := range 3 {
		inv := 1 / r.Dir[i]
		t1 := (b.Min[i] - r.Origin[i]) * inv
		t2 := (b.Max[i] - r.Origin[i]) * inv
		tmin = max(tmin, min(t1, t2))
		tmax = min(tmax, max(t1, t2))
	}
	if tmax < 0 || tmin > tmax {
		return 0, false
	}
	return max(tmin, 0), true
}

func vertexPosition(d *state.GeometryData, i uint32) mgl32.Vec3 {
	if d.Quantized() {
		q := d.QuantizedPositions[3*i:]
		return mgl32.TransformCoordinate(mgl32.Vec3{float32(q[0]), float32(q[1]), float32(q[2])}, d.PositionsDecode)
	}
	p := d.Positions[3*i:]
	return mgl32.Vec3{p[0], p[1], p[2]}
}

func rayGeometry(r Ray, d *state.GeometryData, world mgl32.Mat4) (Hit, bool) {
	best := Hit{Distance: math32.Inf(1)}
	found := false
	n := uint32(d.NumVertices())
	tri := func(k int, i0, i1, i2 uint32) {
		if i0 >= n || i1 >= n || i2 >= n {
			return
		}
		v0 := mgl32.TransformCoordinate(vertexPosition(d, i0), world)
		v1 := mgl32.TransformCoordinate(vertexPosition(d, i1), world)
		v2 := mgl32.TransformCoordinate(vertexPosition(d, i2), world)
		if t, ok := rayTriangle(r, v0, v1, v2); ok && t < best.Distance {
			best = Hit{
				Primitive: k,
				Distance:  t,
				Point:     r.At(t),
				Normal:    v1.Sub(v0).Cross(v2.Sub(v0)).Normalize(),
			}
			found = true
		}
	}
	if len(d.Indices) > 0 {
		for k := 0; 3*k+2 < len(d.Indices); k++ {
			tri(k, d.Indices[3*k], d.Indices[3*k+1], d.Indices[3*k+2])
		}
	} else {
		for k := uint32(0); 3*k+2 < n; k++ {
			tri(int(k), 3*k, 3*k+1, 3*k+2)
		}
	}
	return best, found
}

// rayTriangle is the Möller-Trumbore test. Both faces count as hits.
func rayTriangle(r Ray, v0, v1, v2 mgl32.Vec3) (float32, bool) {
	const epsilon = 1e-7
	e1, e2 := v1.Sub(v0), v2.Sub(v0)
	h := r.Dir.Cross(e2)
	a := e1.Dot(h)
	if a > -epsilon && a < epsilon {
		return 0, false
	}
	f := 1 / a
	sv := r.Origin.Sub(v0)
	u := f * sv.Dot(h)
	if u < 0 || u > 1 {
		return 0, false
	}
	q := sv.Cross(e1)
	v := f * r.Dir.Dot(q)
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := f * e2.Dot(q)
	return t, t > epsilon
}
