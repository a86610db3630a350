package stream

import (
	"math"
	"time"

	"lumina-core/internal/domain/model"
)

// Generator produces pixel buffers procedurally from a small ordered
// palette. Each pixel blends between two palette entries chosen by
// position, with a time-driven phase:
//
//	phase = t·speed·2π + x·spatialFreq
//	mix   = sin(phase)·0.5 + 0.5
//
// Time advances by wall-clock delta, not frame count, so perceived
// speed stays correct when the achieved frame rate drifts from the
// target.
type Generator struct {
	palette     []model.Color
	speed       float64 // cycles per second
	spatialFreq float64 // radians per pixel
	t           float64 // elapsed seconds
}

func NewGenerator(palette []model.Color, speed, spatialFreq float64) *Generator {
	if len(palette) == 0 {
		palette = []model.Color{{R: 255}, {B: 255}}
	}
	if len(palette) == 1 {
		palette = append(palette, palette[0])
	}
	return &Generator{palette: palette, speed: speed, spatialFreq: spatialFreq}
}

// Advance moves the animation clock forward by dt.
func (g *Generator) Advance(dt time.Duration) {
	g.t += dt.Seconds()
}

// Frame renders n pixels at the current animation time.
func (g *Generator) Frame(n int) []model.Color {
	pixels := make([]model.Color, n)
	for x := 0; x < n; x++ {
		i := 0
		if n > 0 {
			i = x * len(g.palette) / n
		}
		if i >= len(g.palette) {
			i = len(g.palette) - 1
		}
		a := g.palette[i]
		b := g.palette[(i+1)%len(g.palette)]

		phase := math.Mod(g.t*g.speed*2*math.Pi+float64(x)*g.spatialFreq, 2*math.Pi)
		mix := math.Sin(phase)*0.5 + 0.5
		pixels[x] = blend(a, b, mix)
	}
	return pixels
}

func blend(a, b model.Color, mix float64) model.Color {
	return model.Color{
		R: int(float64(a.R)*(1-mix) + float64(b.R)*mix),
		G: int(float64(a.G)*(1-mix) + float64(b.G)*mix),
		B: int(float64(a.B)*(1-mix) + float64(b.B)*mix),
		W: int(float64(a.W)*(1-mix) + float64(b.W)*mix),
	}
}
