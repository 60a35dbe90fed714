// Package scene is a small authoring layer over the renderer: a camera, a
// light list, clip planes and a hierarchy of entities whose states feed
// renderer objects.
package scene

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"xeogl/internal/logger"
	"xeogl/renderer"
	"xeogl/state"
)

// Scene owns the camera, light and clip states shared by all its entities.
type Scene struct {
	re     *renderer.Renderer
	arena  *state.Arena
	logger *zap.Logger

	camera *Camera
	lights *state.Lights
	clips  *state.Clips

	roots    []*Entity
	byObject map[*renderer.Object]*Entity
	bounds   map[*state.Geometry]boundsEntry
	nextID   int
}

// DefaultLights is a soft ambient term plus a view-space key light.
func DefaultLights() []state.Light {
	return []state.Light{
		{Type: state.AmbientLight, Color: mgl32.Vec3{1, 1, 1}, Intensity: 0.3},
		{
			Type:      state.DirLight,
			Space:     state.ViewSpace,
			Color:     mgl32.Vec3{1, 1, 1},
			Intensity: 1,
			Dir:       mgl32.Vec3{-0.5, -0.5, -1}.Normalize(),
		},
	}
}

// New creates an empty scene drawing through re and points re at the
// scene camera.
func New(re *renderer.Renderer, log *zap.Logger) *Scene {
	a := re.Arena()
	s := &Scene{
		re:       re,
		arena:    a,
		logger:   logger.OrNop(log).Named("scene"),
		camera:   newCamera(a),
		lights:   state.NewLights(a, DefaultLights()...),
		clips:    state.NewClips(a),
		byObject: map[*renderer.Object]*Entity{},
		bounds:   map[*state.Geometry]boundsEntry{},
	}
	re.SetCamera(s.camera.View(), s.camera.Proj())
	return s
}

func (s *Scene) Renderer() *renderer.Renderer { return s.re }
func (s *Scene) Arena() *state.Arena          { return s.arena }
func (s *Scene) Camera() *Camera              { return s.camera }
func (s *Scene) Lights() *state.Lights        { return s.lights }
func (s *Scene) Clips() *state.Clips          { return s.clips }
func (s *Scene) Roots() []*Entity             { return s.roots }

// SetClips replaces the clip planes. Only the number of planes affects
// shader programs.
func (s *Scene) SetClips(clips ...state.Clip) { s.clips.Set(clips) }

// SetCanvasSize resizes the default framebuffer and the camera aspect.
func (s *Scene) SetCanvasSize(width, height int) {
	s.re.SetCanvasSize(width, height)
	s.camera.SetAspect(width, height)
}

// AddEntity creates an entity and, when it has a geometry, the renderer
// object drawing it.
func (s *Scene) AddEntity(cfg EntityConfig) (*Entity, error) {
	if cfg.Rotation == (mgl32.Quat{}) {
		cfg.Rotation = mgl32.QuatIdent()
	}
	if cfg.Scale == (mgl32.Vec3{}) {
		cfg.Scale = mgl32.Vec3{1, 1, 1}
	}
	modes := state.DefaultModes()
	if cfg.Modes != nil {
		modes = *cfg.Modes
	}

	e := &Entity{
		scene:      s,
		id:         s.nextID,
		name:       cfg.Name,
		position:   cfg.Position,
		rotation:   cfg.Rotation.Normalize(),
		scale:      cfg.Scale,
		transform:  state.NewModelTransform(s.arena, mgl32.Ident4()),
		visibility: state.NewVisibility(s.arena, !cfg.Hidden),
		modes:      state.NewModes(s.arena, modes),
		layer:      state.NewLayer(s.arena, cfg.Layer),
	}
	s.nextID++

	if cfg.Geometry != nil {
		oc := renderer.ObjectConfig{
			Geometry:       cfg.Geometry,
			Material:       cfg.Material,
			ModelTransform: e.transform,
			Visibility:     e.visibility,
			Modes:          e.modes,
			Layer:          e.layer,
			Clips:          s.clips,
		}
		if !cfg.Unlit {
			oc.Lights = s.lights
		}
		o, err := s.re.AddObject(oc)
		if err != nil {
			e.destroyStates()
			return nil, err
		}
		e.object = o
		s.byObject[o] = e
	}

	if cfg.Parent != nil {
		cfg.Parent.AddChild(e)
	} else {
		s.roots = append(s.roots, e)
		e.updateWorld()
	}
	s.logger.Debug("entity added", zap.Int("id", e.id), zap.String("name", e.name))
	return e, nil
}

// RemoveEntity removes e and its descendants from the scene and destroys
// the states they own.
func (s *Scene) RemoveEntity(e *Entity) {
	if e == nil || e.destroyed || e.scene != s {
		return
	}
	if e.parent != nil {
		e.parent.removeChild(e)
	} else {
		s.roots = slices.DeleteFunc(s.roots, func(r *Entity) bool { return r == e })
	}
	e.Traverse(func(x *Entity) {
		if x.object != nil {
			delete(s.byObject, x.object)
			s.re.RemoveObject(x.object)
			x.object = nil
		}
		x.destroyStates()
	})
}

func (e *Entity) destroyStates() {
	e.transform.Destroy()
	e.visibility.Destroy()
	e.modes.Destroy()
	e.layer.Destroy()
	e.destroyed = true
}

// Entities returns every entity depth first.
func (s *Scene) Entities() []*Entity {
	var out []*Entity
	for _, r := range s.roots {
		r.Traverse(func(e *Entity) { out = append(out, e) })
	}
	return out
}

// Find returns the first entity named name.
func (s *Scene) Find(name string) *Entity {
	for _, r := range s.roots {
		if e := r.Find(name); e != nil {
			return e
		}
	}
	return nil
}

// Render draws one frame with the scene camera.
func (s *Scene) Render() error {
	return s.re.Render(renderer.PassConfig{})
}

// Pick returns the entity under the canvas point (x, y), nil on a miss.
// With primitive set the triangle index is resolved too, else it is -1.
func (s *Scene) Pick(x, y int, primitive bool) (*Entity, int, error) {
	res, err := s.re.Pick(renderer.PickParams{X: x, Y: y, Primitive: primitive})
	if err != nil || res.Object == nil {
		return nil, -1, err
	}
	return s.byObject[res.Object], res.Primitive, nil
}

// Destroy removes every entity and the scene's own states.
func (s *Scene) Destroy() {
	for _, r := range slices.Clone(s.roots) {
		s.RemoveEntity(r)
	}
	s.camera.view.Destroy()
	s.camera.proj.Destroy()
	s.lights.Destroy()
	s.clips.Destroy()
}
