package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextureUnitsWrap(t *testing.T) {
	c := New(4, nil, nil)
	c.BeginDraw()
	var units []int
	for range 6 {
		u, _ := c.NextTextureUnit()
		units = append(units, u)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 0, 1}, units)
	assert.Equal(t, 2, c.TextureUnitCollisions)

	c.BeginDraw()
	u, aliased := c.NextTextureUnit()
	assert.Equal(t, 0, u, "cursor resets per draw call")
	assert.False(t, aliased)
}

func TestUseProgramResetsMemo(t *testing.T) {
	c := New(8, nil, nil)
	assert.True(t, c.UseProgram(3))
	c.LastMaterial = 7
	assert.False(t, c.UseProgram(3))
	assert.Equal(t, 7, c.LastMaterial)
	assert.True(t, c.UseProgram(4))
	assert.Equal(t, -1, c.LastMaterial)
	assert.Equal(t, 2, c.ProgramSwitches)
}

func TestCountersAdd(t *testing.T) {
	var total Counters
	total.Add(Counters{DrawCalls: 2, UniformPushes: 5})
	total.Add(Counters{DrawCalls: 1})
	assert.Equal(t, 3, total.DrawCalls)
	assert.Equal(t, 5, total.UniformPushes)
}
