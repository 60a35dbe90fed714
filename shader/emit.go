package shader

import (
	"fmt"
	"strings"

	"xeogl/gpu"
)

type declKind int

const (
	declAttribute declKind = iota
	declUniform
	declVarying
)

type decl struct {
	kind declKind
	typ  string
	name string
}

// unit is one shader stage under construction: declarations, helper
// functions and main-body lines are collected first and rendered to text
// once, in the dialect of the target context.
type unit struct {
	dialect    gpu.Dialect
	stage      gpu.ShaderStage
	extensions []string
	decls      []decl
	seen       map[string]bool
	funcs      []string
	body       []string
	indent     int
}

func newUnit(d gpu.Dialect, stage gpu.ShaderStage) *unit {
	return &unit{dialect: d, stage: stage, seen: map[string]bool{}, indent: 1}
}

func (u *unit) declare(k declKind, typ, name string) {
	if u.seen[name] {
		return
	}
	u.seen[name] = true
	u.decls = append(u.decls, decl{kind: k, typ: typ, name: name})
}

func (u *unit) attribute(typ, name string) { u.declare(declAttribute, typ, name) }
func (u *unit) uniform(typ, name string)   { u.declare(declUniform, typ, name) }
func (u *unit) varying(typ, name string)   { u.declare(declVarying, typ, name) }

// extension requests a WebGL extension; desktop GLSL has the feature built in.
func (u *unit) extension(name string) {
	if u.dialect != gpu.DialectWebGL1 {
		return
	}
	for _, e := range u.extensions {
		if e == name {
			return
		}
	}
	u.extensions = append(u.extensions, name)
}

func (u *unit) fn(src string) { u.funcs = append(u.funcs, strings.TrimSpace(src)) }

func (u *unit) line(format string, args ...any) {
	u.body = append(u.body, strings.Repeat("    ", u.indent)+fmt.Sprintf(format, args...))
}

func (u *unit) open(format string, args ...any) {
	u.line(format+" {", args...)
	u.indent++
}

func (u *unit) close() {
	u.indent--
	u.line("}")
}

// fragColor is the name of the fragment output.
func (u *unit) fragColor() string {
	if u.dialect == gpu.DialectGL410 {
		return "outColor"
	}
	return "gl_FragColor"
}

// texture is the 2D sampling builtin.
func (u *unit) texture() string {
	if u.dialect == gpu.DialectGL410 {
		return "texture"
	}
	return "texture2D"
}

func (u *unit) qualifier(k declKind) string {
	switch k {
	case declUniform:
		return "uniform"
	case declAttribute:
		if u.dialect == gpu.DialectGL410 {
			return "in"
		}
		return "attribute"
	}
	if u.dialect == gpu.DialectWebGL1 {
		return "varying"
	}
	if u.stage == gpu.VertexShader {
		return "out"
	}
	return "in"
}

func (u *unit) String() string {
	var b strings.Builder
	if u.dialect == gpu.DialectGL410 {
		b.WriteString("#version 410 core\n")
	}
	for _, e := range u.extensions {
		fmt.Fprintf(&b, "#extension %s : enable\n", e)
	}
	if u.dialect == gpu.DialectWebGL1 {
		if u.stage == gpu.FragmentShader {
			b.WriteString("#ifdef GL_FRAGMENT_PRECISION_HIGH\nprecision highp float;\n#else\nprecision mediump float;\n#endif\n")
		} else {
			b.WriteString("precision highp float;\n")
		}
	}
	for _, d := range u.decls {
		fmt.Fprintf(&b, "%s %s %s;\n", u.qualifier(d.kind), d.typ, d.name)
	}
	if u.dialect == gpu.DialectGL410 && u.stage == gpu.FragmentShader {
		b.WriteString("out vec4 outColor;\n")
	}
	for _, f := range u.funcs {
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("void main(void) {\n")
	for _, l := range u.body {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}
