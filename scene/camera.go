package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"xeogl/state"
)

// Camera owns the View and Proj transform states handed to the renderer.
// Changing any of its parameters updates the states immediately.
type Camera struct {
	view *state.ViewTransform
	proj *state.ProjTransform

	eye, look, up mgl32.Vec3

	fov       float32
	aspect    float32
	near, far float32
}

func newCamera(a *state.Arena) *Camera {
	c := &Camera{
		eye:    mgl32.Vec3{0, 0, 10},
		up:     mgl32.Vec3{0, 1, 0},
		fov:    mgl32.DegToRad(60),
		aspect: 1,
		near:   0.1,
		far:    1000,
	}
	c.view = state.NewViewTransform(a, c.viewMatrix())
	c.proj = state.NewProjTransform(a, c.projMatrix())
	return c
}

func (c *Camera) View() *state.ViewTransform { return c.view }
func (c *Camera) Proj() *state.ProjTransform { return c.proj }

func (c *Camera) Eye() mgl32.Vec3  { return c.eye }
func (c *Camera) Look() mgl32.Vec3 { return c.look }
func (c *Camera) Up() mgl32.Vec3   { return c.up }
func (c *Camera) FOV() float32     { return c.fov }
func (c *Camera) Aspect() float32  { return c.aspect }

func (c *Camera) viewMatrix() mgl32.Mat4 { return mgl32.LookAtV(c.eye, c.look, c.up) }

func (c *Camera) projMatrix() mgl32.Mat4 {
	return mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
}

func (c *Camera) updateView() { c.view.SetMatrix(c.viewMatrix()) }
func (c *Camera) updateProj() { c.proj.SetMatrix(c.projMatrix()) }

// LookAt places the camera at eye looking towards look.
func (c *Camera) LookAt(eye, look, up mgl32.Vec3) {
	c.eye, c.look, c.up = eye, look, up
	c.updateView()
}

func (c *Camera) SetEye(eye mgl32.Vec3) {
	c.eye = eye
	c.updateView()
}

func (c *Camera) SetLook(look mgl32.Vec3) {
	c.look = look
	c.updateView()
}

// SetPerspective sets the vertical field of view in radians and the clip
// distances.
func (c *Camera) SetPerspective(fov, near, far float32) {
	c.fov, c.near, c.far = fov, near, far
	c.updateProj()
}

// SetAspect follows the canvas size. Degenerate sizes are ignored.
func (c *Camera) SetAspect(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
	c.updateProj()
}

// Orbit rotates the eye about the look point by yaw and pitch radians,
// keeping the distance. Pitch stops short of the poles.
func (c *Camera) Orbit(yaw, pitch float32) {
	offset := c.eye.Sub(c.look)
	dist := offset.Len()
	if dist == 0 {
		return
	}
	curYaw := math32.Atan2(offset.X(), offset.Z())
	curPitch := math32.Asin(mgl32.Clamp(offset.Y()/dist, -1, 1))

	y := curYaw + yaw
	p := mgl32.Clamp(curPitch+pitch, -1.5, 1.5)
	cp := math32.Cos(p)
	c.eye = c.look.Add(mgl32.Vec3{dist * cp * math32.Sin(y), dist * math32.Sin(p), dist * cp * math32.Cos(y)})
	c.updateView()
}

// Zoom moves the eye towards the look point. The distance never drops below
// 0.1.
func (c *Camera) Zoom(delta float32) {
	offset := c.eye.Sub(c.look)
	dist := offset.Len()
	if dist == 0 {
		return
	}
	next := dist + delta
	if next < 0.1 {
		next = 0.1
	}
	c.eye = c.look.Add(offset.Mul(next / dist))
	c.updateView()
}
