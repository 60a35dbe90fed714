package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xeogl/state"
)

func TestScreenRayThroughCenter(t *testing.T) {
	f := newFixture(t)
	r := f.scene.ScreenRay(50, 50)
	assert.InDelta(t, 0, r.Origin.X(), 1e-4)
	assert.InDelta(t, 0, r.Origin.Y(), 1e-4)
	assertVec3(t, mgl32.Vec3{0, 0, -1}, r.Dir, 1e-4)

	left := f.scene.ScreenRay(0, 50)
	assert.Less(t, left.Dir.X(), float32(0))
	top := f.scene.ScreenRay(50, 0)
	assert.Greater(t, top.Dir.Y(), float32(0))
}

func TestRaycastNearestHit(t *testing.T) {
	f := newFixture(t)
	front := f.add(t, EntityConfig{Name: "front"})
	back := f.add(t, EntityConfig{Name: "back", Position: mgl32.Vec3{0, 0, -3}})

	hit, ok := f.scene.Raycast(f.scene.ScreenRay(50, 50))
	require.True(t, ok)
	assert.Same(t, front, hit.Entity)
	assertVec3(t, mgl32.Vec3{0, 0, 0.5}, hit.Point, 1e-3)
	assertVec3(t, mgl32.Vec3{0, 0, 1}, hit.Normal, 1e-4)
	assert.GreaterOrEqual(t, hit.Primitive, 0)

	front.SetVisible(false)
	hit, ok = f.scene.Raycast(f.scene.ScreenRay(50, 50))
	require.True(t, ok)
	assert.Same(t, back, hit.Entity)
	assertVec3(t, mgl32.Vec3{0, 0, -2.5}, hit.Point, 1e-3)

	back.Modes().SetPickable(false)
	_, ok = f.scene.Raycast(f.scene.ScreenRay(50, 50))
	assert.False(t, ok)
}

func TestRaycastMiss(t *testing.T) {
	f := newFixture(t)
	f.add(t, EntityConfig{Name: "box"})
	_, ok := f.scene.Raycast(f.scene.ScreenRay(2, 2))
	assert.False(t, ok)

	_, ok = f.scene.Raycast(Ray{Origin: mgl32.Vec3{0, 0, 10}, Dir: mgl32.Vec3{0, 0, 1}})
	assert.False(t, ok, "box is behind the ray")
}

func TestRaycastQuantizedGeometry(t *testing.T) {
	f := newFixture(t)
	data, err := QuantizeGeometry(BoxGeometry(1, 1, 1))
	require.NoError(t, err)
	g, err := state.NewGeometry(f.scene.Arena(), data)
	require.NoError(t, err)
	e := f.add(t, EntityConfig{Geometry: g, Position: mgl32.Vec3{2, 0, 0}})

	hit, ok := f.scene.Raycast(Ray{Origin: mgl32.Vec3{2, 0, 5}, Dir: mgl32.Vec3{0, 0, -1}})
	require.True(t, ok)
	assert.Same(t, e, hit.Entity)
	assert.InDelta(t, 4.5, hit.Distance, 1e-3)
}

func TestRaycastSkipsLines(t *testing.T) {
	f := newFixture(t)
	g, err := state.NewGeometry(f.scene.Arena(), GridGeometry(10, 10))
	require.NoError(t, err)
	f.add(t, EntityConfig{Geometry: g, Rotation: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0})})
	_, ok := f.scene.Raycast(f.scene.ScreenRay(50, 50))
	assert.False(t, ok)
}
