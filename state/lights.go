package state

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// LightType selects the lighting model of a single light.
type LightType int

const (
	AmbientLight LightType = iota
	DirLight
	PointLight
	SpotLight
)

func (t LightType) String() string {
	switch t {
	case AmbientLight:
		return "ambient"
	case DirLight:
		return "dir"
	case PointLight:
		return "point"
	case SpotLight:
		return "spot"
	}
	return "unknown"
}

// Space is the coordinate space a light's position and direction are in.
type Space int

const (
	WorldSpace Space = iota
	ViewSpace
)

func (s Space) String() string {
	if s == ViewSpace {
		return "view"
	}
	return "world"
}

// Light is one entry of a Lights state.
type Light struct {
	Type      LightType
	Space     Space
	Color     mgl32.Vec3
	Intensity float32
	Pos       mgl32.Vec3
	Dir       mgl32.Vec3
	// Attenuation is (constant, linear, quadratic) for point and spot lights.
	Attenuation mgl32.Vec3
	// Cutoff is the cosine of the spot cone half-angle.
	Cutoff float32
}

// Lights is the ordered light list shared by the objects it lights.
type Lights struct {
	Base
	lights []Light
}

func NewLights(a *Arena, lights ...Light) *Lights {
	l := &Lights{}
	l.init(a, KindLights, l)
	l.lights = append([]Light(nil), lights...)
	l.rehash()
	return l
}

func (l *Lights) rehash() {
	var b strings.Builder
	for _, lt := range l.lights {
		if lt.Type == AmbientLight {
			continue
		}
		b.WriteString(lt.Type.String())
		b.WriteByte(':')
		b.WriteString(lt.Space.String())
		b.WriteByte(';')
	}
	l.setHash(b.String())
}

// Len returns the number of lights, ambient ones included.
func (l *Lights) Len() int { return len(l.lights) }

// At returns the i'th light.
func (l *Lights) At(i int) Light { return l.lights[i] }

// Each calls fn for every light in order.
func (l *Lights) Each(fn func(i int, lt Light)) {
	for i, lt := range l.lights {
		fn(i, lt)
	}
}

// Ambient returns the summed ambient colour with intensity in w.
func (l *Lights) Ambient() mgl32.Vec4 {
	var sum mgl32.Vec3
	for _, lt := range l.lights {
		if lt.Type == AmbientLight {
			sum = sum.Add(lt.Color.Mul(lt.Intensity))
		}
	}
	return sum.Vec4(1)
}

// Set replaces the light list.
func (l *Lights) Set(lights []Light) bool {
	if equalLights(l.lights, lights) {
		return false
	}
	l.lights = append(l.lights[:0], lights...)
	l.rehash()
	l.changed()
	return true
}

// Update replaces the i'th light.
func (l *Lights) Update(i int, lt Light) bool {
	if l.lights[i] == lt {
		return false
	}
	l.lights[i] = lt
	l.rehash()
	l.changed()
	return true
}

// Add appends a light.
func (l *Lights) Add(lt Light) {
	l.lights = append(l.lights, lt)
	l.rehash()
	l.changed()
}

func equalLights(a, b []Light) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
