// Package state holds the renderer-facing value records compiled from
// authoring components. Each record carries a small reusable id, a hash of
// its shader-affecting fields and an observer list notified on change.
package state

import "fmt"

// Kind identifies a state variant.
type Kind int

const (
	KindVisibility Kind = iota
	KindModes
	KindLayer
	KindStage
	KindMaterial
	KindLights
	KindClips
	KindModelTransform
	KindViewTransform
	KindProjTransform
	KindRenderTarget
	KindBillboard
	KindShaderParams
	KindGeometry
	KindTexture
)

var kindNames = [...]string{
	"visibility", "modes", "layer", "stage", "material", "lights", "clips",
	"modelTransform", "viewTransform", "projTransform", "renderTarget",
	"billboard", "shaderParams", "geometry", "texture",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// State is implemented by every render state.
type State interface {
	ID() int
	Kind() Kind
	// Hash summarises the fields that change generated shader source.
	Hash() string
	// HashVersion increments whenever Hash changes.
	HashVersion() uint64
	// Version increments on every change.
	Version() uint64
	Destroyed() bool
	Destroy()
	Subscribe(fn func(State)) (cancel func())
}

type observer struct {
	id int
	fn func(State)
}

// Base implements the bookkeeping shared by all states.
type Base struct {
	arena       *Arena
	self        State
	id          int
	kind        Kind
	hash        string
	hashVersion uint64
	version     uint64
	destroyed   bool
	observers   []observer
	nextObs     int
}

func (b *Base) init(a *Arena, kind Kind, self State) {
	b.arena = a
	b.kind = kind
	b.self = self
	b.id = a.alloc(self)
}

func (b *Base) ID() int             { return b.id }
func (b *Base) Kind() Kind          { return b.kind }
func (b *Base) Hash() string        { return b.hash }
func (b *Base) HashVersion() uint64 { return b.hashVersion }
func (b *Base) Version() uint64     { return b.version }
func (b *Base) Destroyed() bool     { return b.destroyed }

// Destroy releases the id back to the arena. Observers are dropped.
func (b *Base) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.arena.release(b.id)
	b.observers = nil
}

// Subscribe registers fn to run after every change.
func (b *Base) Subscribe(fn func(State)) (cancel func()) {
	b.nextObs++
	id := b.nextObs
	b.observers = append(b.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range b.observers {
			if o.id == id {
				b.observers = append(b.observers[:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

func (b *Base) setHash(h string) {
	if h != b.hash {
		b.hash = h
		b.hashVersion++
	}
}

// changed bumps the version and notifies observers. Setters call it only
// when a value actually changed.
func (b *Base) changed() {
	b.version++
	for _, o := range b.observers {
		o.fn(b.self)
	}
}

func (b *Base) String() string {
	return fmt.Sprintf("%s#%d", b.kind, b.id)
}
