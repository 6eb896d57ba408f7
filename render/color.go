package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// HexToLinear converts a 0xRRGGBB sRGB color to linear RGB.
func HexToLinear(hex uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		srgbToLinear(float32((hex>>16)&0xff) / 255),
		srgbToLinear(float32((hex>>8)&0xff) / 255),
		srgbToLinear(float32(hex&0xff) / 255),
	}
}

func srgbToLinear(c float32) float32 {
	if c < 0.04045 {
		return c * 0.0773993808
	}
	return float32(math.Pow(float64(c)*0.9478672986+0.0521327014, 2.4))
}

// Gradient is a list of linear color stops spread evenly over [0, 1].
type Gradient []mgl32.Vec3

func NewGradient(hexes []uint32) Gradient {
	g := make(Gradient, len(hexes))
	for i, h := range hexes {
		g[i] = HexToLinear(h)
	}
	return g
}

// At interpolates piecewise-linearly between neighbouring stops. ratio is
// clamped to [0, 1].
func (g Gradient) At(ratio float32) mgl32.Vec3 {
	if len(g) == 0 {
		return mgl32.Vec3{1, 1, 1}
	}
	ratio = mgl32.Clamp(ratio, 0, 1)
	scaled := ratio * float32(len(g)-1)
	idx := int(scaled)
	if idx >= len(g)-1 {
		return g[len(g)-1]
	}
	alpha := scaled - float32(idx)
	start, end := g[idx], g[idx+1]
	return start.Add(end.Sub(start).Mul(alpha))
}
