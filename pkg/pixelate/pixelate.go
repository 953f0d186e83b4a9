package pixelate

import (
	"errors"
	"math"
)

// ErrTileSize is returned for tile sizes smaller than one pixel.
var ErrTileSize = errors.New("pixelate: tile size must be positive")

// Pixelate replaces every tile×tile block of img by the mean of its pixels, in place.
//
// Tiles start at the top-left corner and do not overlap. Tiles on the right and bottom edges are
// clipped to the image and averaged over the pixels they actually cover. Channel means are
// truncated to an integer, so the same input always produces the same output.
func Pixelate(img *Image, tile int) error {
	if tile <= 0 {
		return ErrTileSize
	}

	for y := 0; y < img.Height; y += tile {
		for x := 0; x < img.Width; x += tile {
			averageTile(img, x, y, min(tile, img.Width-x), min(tile, img.Height-y))
		}
	}

	return nil
}

func averageTile(img *Image, x0, y0, width, height int) {
	var a, r, g, b uint64
	for y := y0; y < y0+height; y++ {
		for _, p := range img.Pix[y*img.Width+x0 : y*img.Width+x0+width] {
			a += uint64(p.A)
			r += uint64(p.R)
			g += uint64(p.G)
			b += uint64(p.B)
		}
	}

	area := uint64(width * height)
	mean := Pixel{
		A: uint8(a / area),
		R: uint8(r / area),
		G: uint8(g / area),
		B: uint8(b / area),
	}

	for y := y0; y < y0+height; y++ {
		row := img.Pix[y*img.Width+x0 : y*img.Width+x0+width]
		for i := range row {
			row[i] = mean
		}
	}
}

// Tint returns a copy of img blended towards color. opacity 0 keeps img as is, 1 yields a
// plain image of color. Alpha is taken from img.
func Tint(img *Image, color Pixel, opacity float64) *Image {
	opacity = math.Max(0, math.Min(1, opacity))
	out := img.Clone()
	if opacity == 0 {
		return out
	}

	for i, p := range out.Pix {
		out.Pix[i] = Pixel{
			A: p.A,
			R: blend(p.R, color.R, opacity),
			G: blend(p.G, color.G, opacity),
			B: blend(p.B, color.B, opacity),
		}
	}

	return out
}

func blend(base, over uint8, opacity float64) uint8 {
	return uint8(math.Round(float64(base)*(1-opacity) + float64(over)*opacity))
}
