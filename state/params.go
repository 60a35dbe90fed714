package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ShaderParams are named float uniforms declared in every variant. Values
// of length 1 to 4 become float/vec2/vec3/vec4 uniforms.
type ShaderParams struct {
	Base
	params map[string][]float32
}

func NewShaderParams(a *Arena) *ShaderParams {
	p := &ShaderParams{params: map[string][]float32{}}
	p.init(a, KindShaderParams, p)
	return p
}

func (p *ShaderParams) rehash() {
	var b strings.Builder
	for _, name := range p.Names() {
		fmt.Fprintf(&b, "%s:%d;", name, len(p.params[name]))
	}
	p.setHash(b.String())
}

// Names returns parameter names in sorted order.
func (p *ShaderParams) Names() []string {
	return slices.Sorted(maps.Keys(p.params))
}

// Get returns the value of name.
func (p *ShaderParams) Get(name string) []float32 { return p.params[name] }

// Set assigns a value of 1 to 4 components.
func (p *ShaderParams) Set(name string, v ...float32) (bool, error) {
	if len(v) < 1 || len(v) > 4 {
		return false, fmt.Errorf("shader param %q: %d components", name, len(v))
	}
	if slices.Equal(p.params[name], v) {
		return false, nil
	}
	p.params[name] = slices.Clone(v)
	p.rehash()
	p.changed()
	return true, nil
}

// Delete removes name.
func (p *ShaderParams) Delete(name string) bool {
	if _, ok := p.params[name]; !ok {
		return false
	}
	delete(p.params, name)
	p.rehash()
	p.changed()
	return true
}
