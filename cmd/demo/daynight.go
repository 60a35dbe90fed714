package main

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"xeogl/scene"
)

// dayPalette is the lighting at one key time of day.
type dayPalette struct {
	t            float32
	sunColor     mgl32.Vec3
	sunIntensity float32
	ambient      mgl32.Vec3
}

// palettes are ordered by t and wrap from the last back to the first.
var palettes = []dayPalette{
	{t: 0.00, sunColor: mgl32.Vec3{1.00, 0.98, 0.92}, sunIntensity: 1.20, ambient: mgl32.Vec3{0.16, 0.18, 0.26}},
	{t: 0.22, sunColor: mgl32.Vec3{1.00, 0.65, 0.25}, sunIntensity: 0.90, ambient: mgl32.Vec3{0.10, 0.12, 0.20}},
	{t: 0.30, sunColor: mgl32.Vec3{0.70, 0.40, 0.55}, sunIntensity: 0.25, ambient: mgl32.Vec3{0.06, 0.07, 0.14}},
	{t: 0.50, sunColor: mgl32.Vec3{0.40, 0.45, 0.65}, sunIntensity: 0.12, ambient: mgl32.Vec3{0.03, 0.04, 0.09}},
	{t: 0.70, sunColor: mgl32.Vec3{0.75, 0.42, 0.60}, sunIntensity: 0.20, ambient: mgl32.Vec3{0.06, 0.07, 0.14}},
	{t: 0.78, sunColor: mgl32.Vec3{1.00, 0.60, 0.28}, sunIntensity: 0.70, ambient: mgl32.Vec3{0.09, 0.10, 0.17}},
}

// DayNight animates the scene's ambient and sun lights.
type DayNight struct {
	Time   float32 // 0 noon, 0.25 sunset, 0.5 midnight, 0.75 sunrise
	Speed  float32 // seconds per full cycle
	Active bool
}

func NewDayNight() *DayNight {
	return &DayNight{Speed: 120, Active: true}
}

func (dn *DayNight) Update(dt float32) {
	if !dn.Active {
		return
	}
	dn.Time += dt / dn.Speed
	if dn.Time >= 1 {
		dn.Time -= 1
	}
}

func samplePalette(t float32) dayPalette {
	n := len(palettes)
	for i := range n {
		a, b := palettes[i], palettes[(i+1)%n]
		tb := b.t
		if i == n-1 {
			tb = 1
		}
		ta, tt := a.t, t
		if i == n-1 && t < palettes[0].t {
			tt = t + 1
		}
		if tt >= ta && tt < tb {
			k := (tt - ta) / (tb - ta)
			return dayPalette{
				t:            t,
				sunColor:     a.sunColor.Add(b.sunColor.Sub(a.sunColor).Mul(k)),
				sunIntensity: a.sunIntensity + (b.sunIntensity-a.sunIntensity)*k,
				ambient:      a.ambient.Add(b.ambient.Sub(a.ambient).Mul(k)),
			}
		}
	}
	return palettes[0]
}

// Apply updates the ambient light at index 0 and the sun at index 1.
// Only light values change, so no program is rebuilt.
func (dn *DayNight) Apply(s *scene.Scene) {
	p := samplePalette(dn.Time)
	angle := dn.Time * 2 * math32.Pi
	dir := mgl32.Vec3{math32.Sin(angle), -math32.Cos(angle), 0.35}.Normalize()

	lights := s.Lights()
	ambient := lights.At(0)
	ambient.Color, ambient.Intensity = p.ambient, 1
	lights.Update(0, ambient)

	sun := lights.At(1)
	sun.Dir, sun.Color, sun.Intensity = dir, p.sunColor, p.sunIntensity
	lights.Update(1, sun)
}

func (dn *DayNight) TimeOfDay() string {
	hours := math32.Mod(dn.Time*24+12, 24)
	h := int(hours)
	m := int((hours - float32(h)) * 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}
