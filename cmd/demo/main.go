// Command demo renders a small xeogl scene in a glfw window: primitives, a
// sweeping clip plane, a day-night light cycle and picking on click.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"xeogl/config"
	"xeogl/core"
	"xeogl/gpu"
	"xeogl/internal/logger"
	"xeogl/internal/opengl"
	"xeogl/renderer"
	"xeogl/scene"
	"xeogl/state"
)

func main() {
	configPath := flag.String("config", "xeogl.toml", "settings file")
	modelPath := flag.String("model", "", "glTF or OBJ model to load in the background")
	flag.Parse()

	if err := run(*configPath, *modelPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// demo holds the interactive state of the running scene.
type demo struct {
	log    *zap.Logger
	window *core.Window
	re     *renderer.Renderer
	scene  *scene.Scene
	loader *scene.ModelLoader

	highlight *state.Material
	selected  *scene.Entity
	restore   *state.Material

	clipOn   bool
	clipTime float32
	clicks   []mgl32.Vec2
}

func run(configPath, modelPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	window, err := core.NewWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer window.Destroy()

	ctx, err := opengl.New(log)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	re := renderer.NewRenderer(ctx, state.NewArena(), cfg.Renderer, log)
	defer re.Destroy()

	d := &demo{log: log, window: window, re: re, scene: scene.New(re, log), clipOn: true}
	defer d.scene.Destroy()
	if err := d.build(); err != nil {
		return err
	}

	d.loader = scene.NewModelLoader(d.scene, nil)
	defer d.loader.Close()
	if modelPath != "" {
		d.loader.Load(modelPath)
	}

	window.SetClickCallback(func(x, y float64) {
		d.clicks = append(d.clicks, mgl32.Vec2{float32(x), float32(y)})
	})
	window.SetScrollCallback(func(_, yoff float64) {
		d.scene.Camera().Zoom(-float32(yoff))
	})
	return d.loop()
}

// build populates the scene with primitives around a textured ground.
func (d *demo) build() error {
	s := d.scene
	a := s.Arena()
	s.Camera().LookAt(mgl32.Vec3{0, 6, 14}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 1, 0})
	s.Lights().Set([]state.Light{
		{Type: state.AmbientLight, Color: mgl32.Vec3{1, 1, 1}, Intensity: 0.2},
		{Type: state.DirLight, Space: state.WorldSpace, Color: mgl32.Vec3{1, 1, 1}, Intensity: 1, Dir: mgl32.Vec3{0, -1, 0.35}.Normalize()},
	})

	geometry := func(data state.GeometryData) (*state.Geometry, error) {
		return state.NewGeometry(a, data)
	}
	material := func(diffuse mgl32.Vec3, alpha float32) *state.Material {
		cfg := state.DefaultMaterialConfig()
		cfg.Diffuse, cfg.Alpha = diffuse, alpha
		return state.NewMaterial(a, cfg)
	}
	d.highlight = material(mgl32.Vec3{1, 0.8, 0.1}, 1)

	groundData, err := scene.QuantizeGeometry(scene.PlaneGeometry(40, 40, 1))
	if err != nil {
		return err
	}
	ground, err := geometry(groundData)
	if err != nil {
		return err
	}
	groundMat := material(mgl32.Vec3{1, 1, 1}, 1)
	checker, err := scene.NewTextureFromImage(a, checkerImage(6, 6), gpu.TextureParams{Mipmaps: true, Repeat: true, Linear: true})
	if err != nil {
		return err
	}
	groundMat.SetMap(state.DiffuseMap, checker)
	notPickable := state.DefaultModes()
	notPickable.Pickable = false
	if _, err := s.AddEntity(scene.EntityConfig{Name: "ground", Geometry: ground, Material: groundMat, Modes: &notPickable}); err != nil {
		return err
	}

	grid, err := geometry(scene.GridGeometry(40, 20))
	if err != nil {
		return err
	}
	if _, err := s.AddEntity(scene.EntityConfig{Name: "grid", Geometry: grid, Position: mgl32.Vec3{0, 0.01, 0}, Unlit: true, Modes: &notPickable}); err != nil {
		return err
	}

	shapes := []struct {
		name  string
		data  state.GeometryData
		pos   mgl32.Vec3
		color mgl32.Vec3
		alpha float32
	}{
		{"box", scene.BoxGeometry(2, 2, 2), mgl32.Vec3{-6, 1, 0}, mgl32.Vec3{0.8, 0.3, 0.2}, 1},
		{"sphere", scene.SphereGeometry(1.2, 32, 16), mgl32.Vec3{-2, 1.2, 0}, mgl32.Vec3{0.2, 0.6, 0.9}, 1},
		{"cylinder", scene.CylinderGeometry(1, 2.5, 24), mgl32.Vec3{2, 1.25, 0}, mgl32.Vec3{0.3, 0.8, 0.3}, 1},
		{"torus", scene.TorusGeometry(1.2, 0.4, 32, 16), mgl32.Vec3{6, 1.6, 0}, mgl32.Vec3{0.9, 0.7, 0.2}, 1},
		{"glass", scene.SphereGeometry(1.5, 32, 16), mgl32.Vec3{0, 1.5, -5}, mgl32.Vec3{0.6, 0.8, 1}, 0.4},
	}
	for _, sh := range shapes {
		g, err := geometry(sh.data)
		if err != nil {
			return fmt.Errorf("%s: %w", sh.name, err)
		}
		_, err = s.AddEntity(scene.EntityConfig{Name: sh.name, Geometry: g, Material: material(sh.color, sh.alpha), Position: sh.pos})
		if err != nil {
			return fmt.Errorf("%s: %w", sh.name, err)
		}
	}
	return nil
}

func checkerImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w*16, h*16))
	for y := range img.Rect.Dy() {
		for x := range img.Rect.Dx() {
			c := color.NRGBA{R: 200, G: 200, B: 200, A: 255}
			if (x/16+y/16)%2 == 0 {
				c = color.NRGBA{R: 90, G: 90, B: 100, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func (d *demo) loop() error {
	dayNight := NewDayNight()
	var hud DebugOverlay
	last := time.Now()
	lastTitle := last
	frames := 0
	toggleHeld := false

	for !d.window.ShouldClose() {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		if d.window.IsKeyPressed(core.KeyEscape) {
			break
		}
		d.input(dt)
		clipKey := d.window.IsKeyPressed(core.KeyC)
		if clipKey && !toggleHeld {
			d.clipOn = !d.clipOn
		}
		toggleHeld = clipKey

		dayNight.Update(dt)
		dayNight.Apply(d.scene)
		d.updateClip(dt)

		if m, err := d.loader.Poll(); err != nil {
			d.log.Warn("model not loaded", zap.Error(err))
		} else if m != nil {
			m.Root.SetPosition(mgl32.Vec3{0, 0, 5})
		}

		fbW, fbH := d.window.GetFramebufferSize()
		d.scene.SetCanvasSize(fbW, fbH)
		d.pick(fbW, fbH)
		d.scene.Cull()

		if err := d.scene.Render(); err != nil {
			d.log.Error("render failed", zap.Error(err))
		}
		d.window.SwapBuffers()
		d.window.PollEvents()

		frames++
		if since := now.Sub(lastTitle); since >= time.Second {
			hud.Clear()
			hud.AddLine("xeogl %s", dayNight.TimeOfDay())
			hud.AddStats(d.re.Stats(), float64(frames)/since.Seconds())
			if d.selected != nil {
				hud.AddLine("selected %s", d.selected.Name())
			}
			d.window.SetTitle(hud.Text())
			frames, lastTitle = 0, now
		}
	}
	return nil
}

// input orbits the camera with the arrow keys and zooms with W and S.
func (d *demo) input(dt float32) {
	cam := d.scene.Camera()
	var yaw, pitch, zoom float32
	if d.window.IsKeyPressed(core.KeyLeft) {
		yaw -= dt
	}
	if d.window.IsKeyPressed(core.KeyRight) {
		yaw += dt
	}
	if d.window.IsKeyPressed(core.KeyUp) {
		pitch += dt
	}
	if d.window.IsKeyPressed(core.KeyDown) {
		pitch -= dt
	}
	if d.window.IsKeyPressed(core.KeyW) {
		zoom -= 8 * dt
	}
	if d.window.IsKeyPressed(core.KeyS) {
		zoom += 8 * dt
	}
	if yaw != 0 || pitch != 0 {
		cam.Orbit(yaw, pitch)
	}
	if zoom != 0 {
		cam.Zoom(zoom)
	}
}

// updateClip sweeps a clip plane back and forth along X.
func (d *demo) updateClip(dt float32) {
	if !d.clipOn {
		d.scene.SetClips()
		return
	}
	d.clipTime += dt
	x := 8 * math32.Sin(d.clipTime*0.5)
	d.scene.SetClips(state.Clip{Active: true, Pos: mgl32.Vec3{x, 0, 0}, Dir: mgl32.Vec3{1, 0, 0}})
}

// pick resolves queued clicks and highlights the entity hit last.
func (d *demo) pick(fbW, fbH int) {
	if len(d.clicks) == 0 {
		return
	}
	sx := float32(fbW) / float32(max(d.window.Width, 1))
	sy := float32(fbH) / float32(max(d.window.Height, 1))
	for _, c := range d.clicks {
		x, y := c.X()*sx, c.Y()*sy
		e, prim, err := d.scene.Pick(int(x), int(y), true)
		if err != nil {
			d.log.Warn("pick failed", zap.Error(err))
			continue
		}
		d.selectEntity(e)
		if e == nil {
			continue
		}
		fields := []zap.Field{zap.String("entity", e.Name()), zap.Int("triangle", prim)}
		if hit, ok := d.scene.Raycast(d.scene.ScreenRay(x, y)); ok && hit.Entity == e {
			p := hit.Point
			fields = append(fields, zap.Float32s("point", p[:]))
		}
		d.log.Info("picked", fields...)
	}
	d.clicks = d.clicks[:0]
}

func (d *demo) selectEntity(e *scene.Entity) {
	if d.selected != nil && !d.selected.Destroyed() {
		if err := d.selected.SetMaterial(d.restore); err != nil {
			d.log.Warn("restore material", zap.Error(err))
		}
	}
	d.selected, d.restore = nil, nil
	if e == nil || e.Object() == nil {
		return
	}
	d.selected, d.restore = e, e.Object().Config().Material
	if err := e.SetMaterial(d.highlight); err != nil {
		d.log.Warn("highlight", zap.Error(err))
	}
}
