package chunk

import (
	"xeogl/gpu"
	"xeogl/state"
)

type textureEntry struct {
	handle  gpu.Texture
	version uint64
}

// Textures uploads Texture states lazily and keeps their GPU handles.
type Textures struct {
	ctx     gpu.Context
	entries map[*state.Texture]*textureEntry
}

func NewTextures(ctx gpu.Context) *Textures {
	return &Textures{ctx: ctx, entries: map[*state.Texture]*textureEntry{}}
}

func (ts *Textures) Len() int { return len(ts.entries) }

// Get returns the GPU texture for t, uploading it when missing or changed.
func (ts *Textures) Get(t *state.Texture) gpu.Texture {
	e := ts.entries[t]
	if e == nil {
		e = &textureEntry{handle: ts.ctx.CreateTexture()}
		ts.upload(t, e)
		ts.entries[t] = e
	} else if e.version != t.Version() {
		ts.upload(t, e)
	}
	return e.handle
}

func (ts *Textures) upload(t *state.Texture, e *textureEntry) {
	w, h := t.Size()
	ts.ctx.TexImage2D(e.handle, w, h, t.Pixels(), t.Params())
	e.version = t.Version()
}

func (ts *Textures) Release(t *state.Texture) {
	if e := ts.entries[t]; e != nil {
		ts.ctx.DeleteTexture(e.handle)
		delete(ts.entries, t)
	}
}

// Prune releases the textures of destroyed states.
func (ts *Textures) Prune() int {
	n := 0
	for t := range ts.entries {
		if t.Destroyed() {
			ts.Release(t)
			n++
		}
	}
	return n
}

// Restore recreates and re-uploads every texture after a context loss.
func (ts *Textures) Restore() {
	for t, e := range ts.entries {
		e.handle = ts.ctx.CreateTexture()
		ts.upload(t, e)
	}
}

func (ts *Textures) ReleaseAll() {
	for t := range ts.entries {
		ts.Release(t)
	}
}
