package state

import (
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
)

// Clip is a world-space half-space; fragments on the side Dir points to
// are discarded.
type Clip struct {
	Active bool
	Pos    mgl32.Vec3
	Dir    mgl32.Vec3
}

// Clips is the ordered clip plane list shared by the objects it clips.
type Clips struct {
	Base
	clips []Clip
}

func NewClips(a *Arena, clips ...Clip) *Clips {
	c := &Clips{}
	c.init(a, KindClips, c)
	c.clips = append([]Clip(nil), clips...)
	c.setHash(strconv.Itoa(len(c.clips)))
	return c
}

func (c *Clips) Len() int      { return len(c.clips) }
func (c *Clips) At(i int) Clip { return c.clips[i] }

// Set replaces the clip list.
func (c *Clips) Set(clips []Clip) bool {
	if len(clips) == len(c.clips) {
		same := true
		for i := range clips {
			if clips[i] != c.clips[i] {
				same = false
				break
			}
		}
		if same {
			return false
		}
	}
	c.clips = append(c.clips[:0], clips...)
	c.setHash(strconv.Itoa(len(c.clips)))
	c.changed()
	return true
}

// Update replaces the i'th clip; the hash is unaffected.
func (c *Clips) Update(i int, clip Clip) bool {
	if c.clips[i] == clip {
		return false
	}
	c.clips[i] = clip
	c.changed()
	return true
}
