package program

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"xeogl/frame"
	"xeogl/gpu"
)

// Uniform is one resolved uniform location on one linked program. Setters
// skip the GPU call when the value equals the last pushed value and report
// whether a call was made. All setters are safe on a nil *Uniform, which
// stands for a location the program does not have.
type Uniform struct {
	ctx  gpu.Context
	loc  gpu.UniformLocation
	last []float32
	set  bool
}

func (u *Uniform) Location() gpu.UniformLocation { return u.loc }

// same records v as the last value and reports whether it was already there.
func (u *Uniform) same(v []float32) bool {
	if u.set && len(u.last) == len(v) {
		eq := true
		for i := range v {
			if u.last[i] != v[i] {
				eq = false
				break
			}
		}
		if eq {
			return true
		}
	}
	u.last = append(u.last[:0], v...)
	u.set = true
	return false
}

func (u *Uniform) Set1i(v int32) bool {
	if u == nil || u.same([]float32{float32(v)}) {
		return false
	}
	u.ctx.Uniform1i(u.loc, v)
	return true
}

func (u *Uniform) SetBool(v bool) bool {
	if v {
		return u.Set1i(1)
	}
	return u.Set1i(0)
}

func (u *Uniform) Set1f(v float32) bool {
	if u == nil || u.same([]float32{v}) {
		return false
	}
	u.ctx.Uniform1f(u.loc, v)
	return true
}

func (u *Uniform) SetVec2(v mgl32.Vec2) bool {
	if u == nil || u.same(v[:]) {
		return false
	}
	u.ctx.Uniform2fv(u.loc, v[:])
	return true
}

func (u *Uniform) SetVec3(v mgl32.Vec3) bool {
	if u == nil || u.same(v[:]) {
		return false
	}
	u.ctx.Uniform3fv(u.loc, v[:])
	return true
}

func (u *Uniform) SetVec4(v mgl32.Vec4) bool {
	if u == nil || u.same(v[:]) {
		return false
	}
	u.ctx.Uniform4fv(u.loc, v[:])
	return true
}

func (u *Uniform) SetMat3(m mgl32.Mat3) bool {
	if u == nil || u.same(m[:]) {
		return false
	}
	u.ctx.UniformMatrix3fv(u.loc, m[:])
	return true
}

func (u *Uniform) SetMat4(m mgl32.Mat4) bool {
	if u == nil || u.same(m[:]) {
		return false
	}
	u.ctx.UniformMatrix4fv(u.loc, m[:])
	return true
}

// SetFloats pushes a 1 to 4 component float uniform.
func (u *Uniform) SetFloats(v []float32) bool {
	switch len(v) {
	case 1:
		return u.Set1f(v[0])
	case 2:
		return u.SetVec2(mgl32.Vec2{v[0], v[1]})
	case 3:
		return u.SetVec3(mgl32.Vec3{v[0], v[1], v[2]})
	case 4:
		return u.SetVec4(mgl32.Vec4{v[0], v[1], v[2], v[3]})
	}
	return false
}

// Sampler is a sampler2D uniform.
type Sampler struct {
	u *Uniform
	p *Program
}

// Bind binds tex to the next texture unit of the current draw call and points
// the sampler at it. A nil Sampler does nothing.
func (s *Sampler) Bind(fc *frame.Context, tex gpu.Texture) {
	if s == nil {
		return
	}
	unit, aliased := fc.NextTextureUnit()
	if aliased && !s.p.aliasReported {
		s.p.aliasReported = true
		if s.p.logger != nil {
			s.p.logger.Warn("texture units aliased within one draw",
				zap.String("key", s.p.key),
				zap.Int("units", fc.MaxTextureUnits),
				zap.Int("requested", fc.UnitsThisDraw()))
		}
	}
	s.u.ctx.ActiveTexture(unit)
	s.u.ctx.BindTexture(tex)
	fc.TextureBinds++
	if s.u.Set1i(int32(unit)) {
		fc.UniformPushes++
	}
}
