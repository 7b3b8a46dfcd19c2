package renderer

import (
	"image"
	"image/color"

	perlin "github.com/aquilax/go-perlin"
)

// GenerateHashImage builds a size×size lookup texture of Perlin noise. Each
// channel samples the noise field at a different offset so the shaders can
// read three decorrelated values per texel.
func GenerateHashImage(size int, seed int64) *image.RGBA {
	p := perlin.NewPerlin(2, 2, 3, seed)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scale := 8.0 / float64(size)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			// sample texel centers; lattice points are always zero
			fx, fy := (float64(x)+0.5)*scale, (float64(y)+0.5)*scale
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(p.Noise2D(fx, fy)),
				G: toByte(p.Noise2D(fx+17.3, fy+5.1)),
				B: toByte(p.Noise2D(fx-9.7, fy+31.9)),
				A: 255,
			})
		}
	}
	return img
}

// toByte maps noise in about [-1,1] onto [0,255].
func toByte(v float64) uint8 {
	v = (v*0.5 + 0.5) * 255
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}
