package drawlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name        string
	stage       int
	layer       int
	program     int
	transparent bool
	pickable    bool
	hidden      bool
}

func (e *entry) StagePriority() int { return e.stage }
func (e *entry) LayerPriority() int { return e.layer }
func (e *entry) ProgramID() int     { return e.program }
func (e *entry) Transparent() bool  { return e.transparent }
func (e *entry) Pickable() bool     { return e.pickable }
func (e *entry) Visible() bool      { return !e.hidden }

func names(es []*entry) []string {
	out := []string{}
	for _, e := range es {
		out = append(out, e.name)
	}
	return out
}

func TestRebuildOrdersAndPartitions(t *testing.T) {
	entries := []*entry{
		{name: "a", stage: 1, program: 0, pickable: true},
		{name: "b", stage: 0, layer: 2, program: 1},
		{name: "c", stage: 0, layer: 1, program: 3, pickable: true},
		{name: "d", stage: 0, layer: 1, program: 2, transparent: true, pickable: true},
		{name: "e", stage: 0, layer: 1, program: 3},
		{name: "f", hidden: true, pickable: true},
	}
	l := Rebuild(entries)
	assert.Equal(t, []string{"c", "e", "b", "a"}, names(l.Opaque))
	assert.Equal(t, []string{"d"}, names(l.Transparent))
	assert.Equal(t, []string{"d", "c", "a"}, names(l.Pick))

	again := Rebuild(entries)
	assert.Equal(t, names(l.Opaque), names(again.Opaque), "rebuild is idempotent")
	assert.Equal(t, names(l.Pick), names(again.Pick))
}

func TestEmptyBucketsAreNotNil(t *testing.T) {
	l := Rebuild([]*entry{{name: "only"}})
	assert.NotNil(t, l.Transparent)
	assert.Empty(t, l.Transparent)
	assert.NotNil(t, l.Pick)

	l = Rebuild[*entry](nil)
	assert.NotNil(t, l.Opaque)
	assert.Empty(t, l.Opaque)
}

func TestCompilerRebuildsOnlyWhenDirty(t *testing.T) {
	a := &entry{name: "a", layer: 0}
	b := &entry{name: "b", layer: 1}
	all := []*entry{a, b}
	calls := 0
	src := func() []*entry { calls++; return all }

	c := NewCompiler[*entry]()
	require.True(t, c.Dirty())
	first := c.Get(src)
	assert.Same(t, first, c.Get(src))
	assert.Equal(t, 1, calls)

	a.layer = 2
	assert.Same(t, first, c.Get(src), "not dirty, not rebuilt")
	c.MarkStateOrderDirty()
	assert.Equal(t, []string{"b", "a"}, names(c.Get(src).Opaque))

	all = all[:1]
	c.MarkDrawListDirty()
	assert.Equal(t, []string{"a"}, names(c.Get(src).Opaque))
	assert.Equal(t, 3, c.Rebuilds)
}

func TestPrimitivePick(t *testing.T) {
	e := &entry{name: "x"}
	l := PrimitivePick(e)
	assert.Equal(t, []*entry{e}, l.Pick)
	assert.Empty(t, l.Opaque)
}
