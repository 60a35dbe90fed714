package state

// Visibility controls whether an object is drawn at all.
type Visibility struct {
	Base
	visible bool
	culled  bool
}

func NewVisibility(a *Arena, visible bool) *Visibility {
	v := &Visibility{visible: visible}
	v.init(a, KindVisibility, v)
	return v
}

func (v *Visibility) Visible() bool { return v.visible && !v.culled }

func (v *Visibility) SetVisible(visible bool) bool {
	if v.visible == visible {
		return false
	}
	v.visible = visible
	v.changed()
	return true
}

func (v *Visibility) SetCulled(culled bool) bool {
	if v.culled == culled {
		return false
	}
	v.culled = culled
	v.changed()
	return true
}

// ModesConfig is the initial value of a Modes state.
type ModesConfig struct {
	Transparent  bool
	Pickable     bool
	Clippable    bool
	Backfaces    bool
	FrontFaceCCW bool
}

// DefaultModes is pickable, clippable, back-face culled and CCW.
func DefaultModes() ModesConfig {
	return ModesConfig{Pickable: true, Clippable: true, FrontFaceCCW: true}
}

// Modes holds per-object rendering switches.
type Modes struct {
	Base
	cfg ModesConfig
}

func NewModes(a *Arena, cfg ModesConfig) *Modes {
	m := &Modes{cfg: cfg}
	m.init(a, KindModes, m)
	return m
}

func (m *Modes) Transparent() bool  { return m.cfg.Transparent }
func (m *Modes) Pickable() bool     { return m.cfg.Pickable }
func (m *Modes) Clippable() bool    { return m.cfg.Clippable }
func (m *Modes) Backfaces() bool    { return m.cfg.Backfaces }
func (m *Modes) FrontFaceCCW() bool { return m.cfg.FrontFaceCCW }

// Set replaces all modes at once.
func (m *Modes) Set(cfg ModesConfig) bool {
	if m.cfg == cfg {
		return false
	}
	m.cfg = cfg
	m.changed()
	return true
}

func (m *Modes) SetTransparent(v bool) bool {
	cfg := m.cfg
	cfg.Transparent = v
	return m.Set(cfg)
}

func (m *Modes) SetPickable(v bool) bool {
	cfg := m.cfg
	cfg.Pickable = v
	return m.Set(cfg)
}

func (m *Modes) SetClippable(v bool) bool {
	cfg := m.cfg
	cfg.Clippable = v
	return m.Set(cfg)
}

// Layer orders objects inside a stage.
type Layer struct {
	Base
	priority int
}

func NewLayer(a *Arena, priority int) *Layer {
	l := &Layer{priority: priority}
	l.init(a, KindLayer, l)
	return l
}

func (l *Layer) Priority() int { return l.priority }

func (l *Layer) SetPriority(p int) bool {
	if l.priority == p {
		return false
	}
	l.priority = p
	l.changed()
	return true
}

// Stage orders groups of objects across the whole frame, for example
// render-to-texture producers before their consumers.
type Stage struct {
	Base
	priority int
}

func NewStage(a *Arena, priority int) *Stage {
	s := &Stage{priority: priority}
	s.init(a, KindStage, s)
	return s
}

func (s *Stage) Priority() int { return s.priority }

func (s *Stage) SetPriority(p int) bool {
	if s.priority == p {
		return false
	}
	s.priority = p
	s.changed()
	return true
}

// BillboardMode selects how the model-view rotation is cancelled.
type BillboardMode int

const (
	BillboardNone BillboardMode = iota
	BillboardSpherical
	BillboardCylindrical
)

func (m BillboardMode) String() string {
	switch m {
	case BillboardSpherical:
		return "spherical"
	case BillboardCylindrical:
		return "cylindrical"
	}
	return "none"
}

// Billboard makes an object face the camera.
type Billboard struct {
	Base
	mode BillboardMode
}

func NewBillboard(a *Arena, mode BillboardMode) *Billboard {
	b := &Billboard{mode: mode}
	b.init(a, KindBillboard, b)
	b.setHash(mode.String())
	return b
}

func (b *Billboard) Mode() BillboardMode { return b.mode }

func (b *Billboard) SetMode(mode BillboardMode) bool {
	if b.mode == mode {
		return false
	}
	b.mode = mode
	b.setHash(mode.String())
	b.changed()
	return true
}
