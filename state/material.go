package state

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// MaterialKind selects the shading model emitted for a material.
type MaterialKind int

const (
	Phong MaterialKind = iota
	Lambert
	Unlit
)

func (k MaterialKind) String() string {
	switch k {
	case Phong:
		return "phong"
	case Lambert:
		return "lambert"
	case Unlit:
		return "unlit"
	}
	return "unknown"
}

// TextureSlot names a texture input of a material.
type TextureSlot int

const (
	DiffuseMap TextureSlot = iota
	SpecularMap
	EmissiveMap
	NormalMap
	AlphaMap
	OcclusionMap
	NumTextureSlots
)

var slotNames = [NumTextureSlots]string{
	"diffuseMap", "specularMap", "emissiveMap", "normalMap", "alphaMap", "occlusionMap",
}

// String returns the sampler uniform name of the slot.
func (s TextureSlot) String() string {
	if s >= 0 && s < NumTextureSlots {
		return slotNames[s]
	}
	return "unknownMap"
}

// MaterialConfig is the scalar part of a material.
type MaterialConfig struct {
	Kind      MaterialKind
	Ambient   mgl32.Vec3
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Emissive  mgl32.Vec3
	Shininess float32
	Alpha     float32
}

// DefaultMaterialConfig is a light grey opaque Phong surface.
func DefaultMaterialConfig() MaterialConfig {
	return MaterialConfig{
		Kind:      Phong,
		Ambient:   mgl32.Vec3{1, 1, 1},
		Diffuse:   mgl32.Vec3{0.8, 0.8, 0.8},
		Specular:  mgl32.Vec3{1, 1, 1},
		Shininess: 30,
		Alpha:     1,
	}
}

// Material is the surface description of an object.
type Material struct {
	Base
	cfg  MaterialConfig
	maps [NumTextureSlots]*Texture
}

func NewMaterial(a *Arena, cfg MaterialConfig) *Material {
	m := &Material{cfg: cfg}
	m.init(a, KindMaterial, m)
	m.rehash()
	return m
}

func (m *Material) rehash() {
	var b strings.Builder
	b.WriteString(m.cfg.Kind.String())
	for s, t := range m.maps {
		if t != nil {
			b.WriteByte(';')
			b.WriteString(TextureSlot(s).String())
		}
	}
	m.setHash(b.String())
}

func (m *Material) Config() MaterialConfig { return m.cfg }
func (m *Material) Shading() MaterialKind  { return m.cfg.Kind }
func (m *Material) Alpha() float32         { return m.cfg.Alpha }

// Map returns the texture in slot, or nil.
func (m *Material) Map(slot TextureSlot) *Texture { return m.maps[slot] }

// Maps returns the populated slots in slot order.
func (m *Material) Maps() []TextureSlot {
	var slots []TextureSlot
	for s, t := range m.maps {
		if t != nil {
			slots = append(slots, TextureSlot(s))
		}
	}
	return slots
}

// Set replaces the scalar configuration.
func (m *Material) Set(cfg MaterialConfig) bool {
	if m.cfg == cfg {
		return false
	}
	m.cfg = cfg
	m.rehash()
	m.changed()
	return true
}

func (m *Material) SetDiffuse(c mgl32.Vec3) bool {
	cfg := m.cfg
	cfg.Diffuse = c
	return m.Set(cfg)
}

func (m *Material) SetAlpha(alpha float32) bool {
	cfg := m.cfg
	cfg.Alpha = alpha
	return m.Set(cfg)
}

// SetMap assigns t to slot; nil clears it.
func (m *Material) SetMap(slot TextureSlot, t *Texture) bool {
	if m.maps[slot] == t {
		return false
	}
	m.maps[slot] = t
	m.rehash()
	m.changed()
	return true
}
