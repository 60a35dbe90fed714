// Package frame holds the scratch record of one render or pick pass.
package frame

import (
	"xeogl/gpu"
	"xeogl/state"
)

// Counters are the per-pass statistics.
type Counters struct {
	DrawCalls             int
	DrawElements          int
	DrawArrays            int
	ProgramSwitches       int
	BufferBinds           int
	TextureBinds          int
	UniformPushes         int
	TextureUnitCollisions int
}

// Add accumulates o into c.
func (c *Counters) Add(o Counters) {
	c.DrawCalls += o.DrawCalls
	c.DrawElements += o.DrawElements
	c.DrawArrays += o.DrawArrays
	c.ProgramSwitches += o.ProgramSwitches
	c.BufferBinds += o.BufferBinds
	c.TextureBinds += o.TextureBinds
	c.UniformPushes += o.UniformPushes
	c.TextureUnitCollisions += o.TextureUnitCollisions
}

const none = -1

// Context is created at the start of a pass and discarded at its end.
type Context struct {
	Counters

	// Program is the bound GPU program, 0 when none is bound yet.
	Program gpu.Program

	View *state.ViewTransform
	Proj *state.ProjTransform

	MaxTextureUnits int

	// Ids of the states whose values were last pushed under Program.
	LastMaterial       int
	LastModelTransform int
	LastGeometry       int
	LastLights         int
	LastClips          int

	// Fixed-function face state, -1 while unknown.
	Backfaces    int8
	FrontFaceCCW int8

	textureUnit int
	drawUnits   int
}

// New starts a pass on a context exposing maxUnits texture image units.
func New(maxUnits int, view *state.ViewTransform, proj *state.ProjTransform) *Context {
	if maxUnits < 1 {
		maxUnits = 1
	}
	c := &Context{
		View:            view,
		Proj:            proj,
		MaxTextureUnits: maxUnits,
		Backfaces:       none,
		FrontFaceCCW:    none,
	}
	c.ResetMemo()
	return c
}

// UseProgram records a program switch and drops all memoized bindings, since
// uniform locations belong to the program. It reports whether p differs
// from the bound program.
func (c *Context) UseProgram(p gpu.Program) bool {
	if c.Program == p {
		return false
	}
	c.Program = p
	c.ProgramSwitches++
	c.ResetMemo()
	return true
}

// ResetMemo forgets which states were last pushed.
func (c *Context) ResetMemo() {
	c.LastMaterial = none
	c.LastModelTransform = none
	c.LastGeometry = none
	c.LastLights = none
	c.LastClips = none
}

// BeginDraw resets the texture unit cursor; units are allocated per draw
// call and never reserved across calls.
func (c *Context) BeginDraw() {
	c.textureUnit = 0
	c.drawUnits = 0
}

// NextTextureUnit hands out the next unit, wrapping at MaxTextureUnits.
// aliased is true once a draw call has asked for more units than exist, in
// which case the unit is already bound by an earlier sampler of the same
// draw.
func (c *Context) NextTextureUnit() (unit int, aliased bool) {
	unit = c.textureUnit
	c.textureUnit = (c.textureUnit + 1) % c.MaxTextureUnits
	c.drawUnits++
	if c.drawUnits > c.MaxTextureUnits {
		c.TextureUnitCollisions++
		aliased = true
	}
	return unit, aliased
}

// UnitsThisDraw is the number of units requested since BeginDraw.
func (c *Context) UnitsThisDraw() int { return c.drawUnits }
