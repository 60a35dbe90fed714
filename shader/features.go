// Package shader derives the feature set of a renderable from its states and
// generates GLSL for the draw, object-pick and primitive-pick variants.
package shader

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"slices"

	"golang.org/x/crypto/blake2b"

	"xeogl/gpu"
	"xeogl/state"
)

// LightFeature is the shader-relevant part of one non-ambient light.
type LightFeature struct {
	Type  state.LightType
	Space state.Space
}

// Param is a declared custom uniform.
type Param struct {
	Name string
	Size int
}

// Features is the exact set of inputs that drive source generation. Two
// equal Features always generate identical source.
type Features struct {
	Dialect   gpu.Dialect
	Lights    []LightFeature
	Clips     int
	Quantized bool
	Normals   bool
	UV        bool
	Colors    bool
	Primitive gpu.Primitive
	Billboard state.BillboardMode
	Material  state.MaterialKind
	Maps      []state.TextureSlot
	Params    []Param
}

// Inputs are the states a renderable contributes. Nil entries are treated
// as absent.
type Inputs struct {
	Geometry  *state.Geometry
	Material  *state.Material
	Lights    *state.Lights
	Clips     *state.Clips
	Billboard *state.Billboard
	Params    *state.ShaderParams
}

// FeaturesOf derives Features from the current values of in.
func FeaturesOf(d gpu.Dialect, in Inputs) Features {
	f := Features{Dialect: d}
	if g := in.Geometry; g != nil {
		data := g.Data()
		f.Primitive = data.Primitive
		f.Quantized = data.Quantized()
		f.Normals = data.HasNormals()
		f.UV = data.HasUV()
		f.Colors = data.HasColors()
	}
	if m := in.Material; m != nil {
		f.Material = m.Shading()
		f.Maps = m.Maps()
	}
	if f.lit() && in.Lights != nil {
		in.Lights.Each(func(_ int, lt state.Light) {
			if lt.Type != state.AmbientLight {
				f.Lights = append(f.Lights, LightFeature{Type: lt.Type, Space: lt.Space})
			}
		})
	}
	if in.Clips != nil {
		f.Clips = in.Clips.Len()
	}
	if in.Billboard != nil {
		f.Billboard = in.Billboard.Mode()
	}
	if in.Params != nil {
		for _, name := range in.Params.Names() {
			f.Params = append(f.Params, Param{Name: name, Size: len(in.Params.Get(name))})
		}
	}
	return f
}

// lit reports whether per-light code is emitted at all.
func (f *Features) lit() bool {
	return f.Normals && f.Material != state.Unlit
}

func (f *Features) hasMap(s state.TextureSlot) bool {
	return slices.Contains(f.Maps, s)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// canonical is an unambiguous encoding of every field.
func (f *Features) canonical() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "d%d|l%d", f.Dialect, len(f.Lights))
	for _, l := range f.Lights {
		fmt.Fprintf(&b, ",%d.%d", l.Type, l.Space)
	}
	fmt.Fprintf(&b, "|c%d|q%d|n%d|u%d|k%d|p%d|b%d|m%d|t%d",
		f.Clips, b2i(f.Quantized), b2i(f.Normals), b2i(f.UV), b2i(f.Colors),
		f.Primitive, f.Billboard, f.Material, len(f.Maps))
	for _, s := range f.Maps {
		fmt.Fprintf(&b, ",%d", s)
	}
	fmt.Fprintf(&b, "|s%d", len(f.Params))
	for _, p := range f.Params {
		fmt.Fprintf(&b, ",%d:%s:%d", len(p.Name), p.Name, p.Size)
	}
	return b.Bytes()
}

// Key is the program cache key: a blake2b digest of the canonical encoding.
func (f Features) Key() string {
	sum := blake2b.Sum256(f.canonical())
	return hex.EncodeToString(sum[:16])
}

// String is the human readable canonical encoding, used in diagnostics.
func (f Features) String() string { return string(f.canonical()) }

// Equal reports whether f and o generate the same source.
func (f Features) Equal(o Features) bool {
	return f.Dialect == o.Dialect &&
		slices.Equal(f.Lights, o.Lights) &&
		f.Clips == o.Clips &&
		f.Quantized == o.Quantized &&
		f.Normals == o.Normals &&
		f.UV == o.UV &&
		f.Colors == o.Colors &&
		f.Primitive == o.Primitive &&
		f.Billboard == o.Billboard &&
		f.Material == o.Material &&
		slices.Equal(f.Maps, o.Maps) &&
		slices.Equal(f.Params, o.Params)
}
