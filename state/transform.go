package state

import "github.com/go-gl/mathgl/mgl32"

func normalMatrix(m mgl32.Mat4) mgl32.Mat4 {
	return m.Inv().Transpose()
}

// ModelTransform is an object's world matrix.
type ModelTransform struct {
	Base
	matrix mgl32.Mat4
	normal mgl32.Mat4
}

func NewModelTransform(a *Arena, m mgl32.Mat4) *ModelTransform {
	t := &ModelTransform{matrix: m, normal: normalMatrix(m)}
	t.init(a, KindModelTransform, t)
	return t
}

func (t *ModelTransform) Matrix() mgl32.Mat4       { return t.matrix }
func (t *ModelTransform) NormalMatrix() mgl32.Mat4 { return t.normal }

func (t *ModelTransform) SetMatrix(m mgl32.Mat4) bool {
	if t.matrix == m {
		return false
	}
	t.matrix = m
	t.normal = normalMatrix(m)
	t.changed()
	return true
}

// ViewTransform is the camera's view matrix.
type ViewTransform struct {
	Base
	matrix mgl32.Mat4
	normal mgl32.Mat4
}

func NewViewTransform(a *Arena, m mgl32.Mat4) *ViewTransform {
	t := &ViewTransform{matrix: m, normal: normalMatrix(m)}
	t.init(a, KindViewTransform, t)
	return t
}

func (t *ViewTransform) Matrix() mgl32.Mat4       { return t.matrix }
func (t *ViewTransform) NormalMatrix() mgl32.Mat4 { return t.normal }

func (t *ViewTransform) SetMatrix(m mgl32.Mat4) bool {
	if t.matrix == m {
		return false
	}
	t.matrix = m
	t.normal = normalMatrix(m)
	t.changed()
	return true
}

// ProjTransform is the camera's projection matrix.
type ProjTransform struct {
	Base
	matrix mgl32.Mat4
}

func NewProjTransform(a *Arena, m mgl32.Mat4) *ProjTransform {
	t := &ProjTransform{matrix: m}
	t.init(a, KindProjTransform, t)
	return t
}

func (t *ProjTransform) Matrix() mgl32.Mat4 { return t.matrix }

func (t *ProjTransform) SetMatrix(m mgl32.Mat4) bool {
	if t.matrix == m {
		return false
	}
	t.matrix = m
	t.changed()
	return true
}
