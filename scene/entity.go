package scene

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"xeogl/renderer"
	"xeogl/state"
)

// EntityConfig describes a new entity. Geometry and Material stay owned by
// the caller; an entity without a Geometry only groups its children.
type EntityConfig struct {
	Name     string
	Parent   *Entity
	Geometry *state.Geometry
	Material *state.Material

	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	Hidden bool
	Layer  int

	// Modes defaults to state.DefaultModes when nil.
	Modes *state.ModesConfig

	// Unlit entities ignore the scene lights.
	Unlit bool
}

// Entity is one node of the scene graph. Its world matrix is pushed into a
// ModelTransform state whenever it or an ancestor moves.
type Entity struct {
	scene    *Scene
	id       int
	name     string
	parent   *Entity
	children []*Entity

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
	world    mgl32.Mat4

	transform  *state.ModelTransform
	visibility *state.Visibility
	modes      *state.Modes
	layer      *state.Layer

	object    *renderer.Object
	destroyed bool
}

func (e *Entity) ID() int                          { return e.id }
func (e *Entity) Name() string                     { return e.name }
func (e *Entity) Parent() *Entity                  { return e.parent }
func (e *Entity) Children() []*Entity              { return e.children }
func (e *Entity) Object() *renderer.Object         { return e.object }
func (e *Entity) Transform() *state.ModelTransform { return e.transform }
func (e *Entity) Modes() *state.Modes              { return e.modes }
func (e *Entity) Layer() *state.Layer              { return e.layer }
func (e *Entity) Visibility() *state.Visibility    { return e.visibility }
func (e *Entity) Position() mgl32.Vec3             { return e.position }
func (e *Entity) Rotation() mgl32.Quat             { return e.rotation }
func (e *Entity) Scale() mgl32.Vec3                { return e.scale }
func (e *Entity) WorldMatrix() mgl32.Mat4          { return e.world }
func (e *Entity) Destroyed() bool                  { return e.destroyed }

func (e *Entity) localMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(e.position.X(), e.position.Y(), e.position.Z())
	s := mgl32.Scale3D(e.scale.X(), e.scale.Y(), e.scale.Z())
	return t.Mul4(e.rotation.Mat4()).Mul4(s)
}

// updateWorld recomputes the world matrix of e and its descendants.
func (e *Entity) updateWorld() {
	local := e.localMatrix()
	if e.parent != nil {
		e.world = e.parent.world.Mul4(local)
	} else {
		e.world = local
	}
	e.transform.SetMatrix(e.world)
	for _, c := range e.children {
		c.updateWorld()
	}
}

func (e *Entity) SetPosition(p mgl32.Vec3) {
	e.position = p
	e.updateWorld()
}

func (e *Entity) SetRotation(q mgl32.Quat) {
	e.rotation = q.Normalize()
	e.updateWorld()
}

func (e *Entity) SetScale(s mgl32.Vec3) {
	e.scale = s
	e.updateWorld()
}

func (e *Entity) Translate(delta mgl32.Vec3) { e.SetPosition(e.position.Add(delta)) }

// Rotate turns the entity by angle radians about its local axis.
func (e *Entity) Rotate(axis mgl32.Vec3, angle float32) {
	e.SetRotation(e.rotation.Mul(mgl32.QuatRotate(angle, axis.Normalize())))
}

// SetVisible shows or hides the entity. Children keep their own visibility.
func (e *Entity) SetVisible(v bool) { e.visibility.SetVisible(v) }

func (e *Entity) SetMaterial(m *state.Material) error {
	if e.object == nil {
		return nil
	}
	cfg := e.object.Config()
	cfg.Material = m
	return e.object.Set(cfg)
}

// AddChild reparents child under e, keeping its local transform.
func (e *Entity) AddChild(child *Entity) {
	if child.parent != nil {
		child.parent.removeChild(child)
	}
	child.parent = e
	e.children = append(e.children, child)
	child.updateWorld()
}

func (e *Entity) removeChild(child *Entity) {
	e.children = slices.DeleteFunc(e.children, func(c *Entity) bool { return c == child })
	child.parent = nil
}

// Traverse visits e and then its descendants depth first.
func (e *Entity) Traverse(fn func(*Entity)) {
	fn(e)
	for _, c := range e.children {
		c.Traverse(fn)
	}
}

// Find returns the first entity in the subtree named name.
func (e *Entity) Find(name string) *Entity {
	if e.name == name {
		return e
	}
	for _, c := range e.children {
		if f := c.Find(name); f != nil {
			return f
		}
	}
	return nil
}
