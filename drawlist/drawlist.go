// Package drawlist orders renderable objects into draw and pick buckets.
package drawlist

import (
	"cmp"
	"slices"
)

// Entry is the ordering-relevant view of a renderable object.
type Entry interface {
	StagePriority() int
	LayerPriority() int
	ProgramID() int
	Transparent() bool
	Pickable() bool
	Visible() bool
}

// List is one compiled ordering. Buckets are never nil.
type List[E Entry] struct {
	Opaque      []E
	Transparent []E
	Pick        []E
}

func compare[E Entry](a, b E) int {
	return cmp.Or(
		cmp.Compare(a.StagePriority(), b.StagePriority()),
		cmp.Compare(a.LayerPriority(), b.LayerPriority()),
		cmp.Compare(a.ProgramID(), b.ProgramID()),
	)
}

// Rebuild partitions the visible entries into opaque and transparent
// buckets and pickable entries into the pick bucket, each stable-sorted by
// stage priority, layer priority and program id. Entries with equal keys
// keep their order in entries.
func Rebuild[E Entry](entries []E) *List[E] {
	l := &List[E]{Opaque: []E{}, Transparent: []E{}, Pick: []E{}}
	for _, e := range entries {
		if !e.Visible() {
			continue
		}
		if e.Transparent() {
			l.Transparent = append(l.Transparent, e)
		} else {
			l.Opaque = append(l.Opaque, e)
		}
		if e.Pickable() {
			l.Pick = append(l.Pick, e)
		}
	}
	slices.SortStableFunc(l.Opaque, compare[E])
	slices.SortStableFunc(l.Transparent, compare[E])
	slices.SortStableFunc(l.Pick, compare[E])
	return l
}

// PrimitivePick is the pick list restricted to one object.
func PrimitivePick[E Entry](e E) *List[E] {
	return &List[E]{Opaque: []E{}, Transparent: []E{}, Pick: []E{e}}
}

// Compiler caches the current List and rebuilds it only when marked dirty.
type Compiler[E Entry] struct {
	stateOrderDirty bool
	drawListDirty   bool
	list            *List[E]

	// Rebuilds counts how many times the list was recompiled.
	Rebuilds int
}

// NewCompiler starts dirty so the first Get compiles.
func NewCompiler[E Entry]() *Compiler[E] {
	return &Compiler[E]{drawListDirty: true}
}

// MarkStateOrderDirty flags a priority, program or transparency change.
func (c *Compiler[E]) MarkStateOrderDirty() { c.stateOrderDirty = true }

// MarkDrawListDirty flags an added, removed, shown or hidden entry.
func (c *Compiler[E]) MarkDrawListDirty() { c.drawListDirty = true }

func (c *Compiler[E]) Dirty() bool { return c.stateOrderDirty || c.drawListDirty }

// Get returns the cached List, rebuilding it from entries first when dirty.
func (c *Compiler[E]) Get(entries func() []E) *List[E] {
	if c.list == nil || c.Dirty() {
		c.list = Rebuild(entries())
		c.stateOrderDirty = false
		c.drawListDirty = false
		c.Rebuilds++
	}
	return c.list
}
