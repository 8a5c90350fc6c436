package dedup

import (
	"image"

	"gonum.org/v1/gonum/stat"
)

// grayThumbnail is a fixed-size row-major grayscale pixel buffer, nearest-
// neighbor downscaled from a source frame. float64 so gonum can operate on
// it directly for the delta score.
type grayThumbnail struct {
	size   int
	pixels []float64
}

func newGrayThumbnail(img image.Image, size int) grayThumbnail {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pixels := make([]float64, size*size)

	if w == 0 || h == 0 {
		return grayThumbnail{size: size, pixels: pixels}
	}

	for y := 0; y < size; y++ {
		srcY := bounds.Min.Y + (y*h)/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + (x*w)/size
			pixels[y*size+x] = luma(img.At(srcX, srcY))
		}
	}
	return grayThumbnail{size: size, pixels: pixels}
}

// luma converts a color to its 0-255 grayscale intensity using the same
// Rec. 601-ish luma weights the standard library's image/color.Gray model
// uses internally.
func luma(c interface{ RGBA() (r, g, b, a uint32) }) float64 {
	r, g, b, _ := c.RGBA()
	// RGBA() returns 16-bit premultiplied components; scale to 8-bit.
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

// mean returns the arithmetic mean pixel intensity.
func (t grayThumbnail) mean() float64 {
	if len(t.pixels) == 0 {
		return 0
	}
	return stat.Mean(t.pixels, nil)
}

// meanAbsDiff returns the mean absolute pixel difference against another
// thumbnail of the same size, normalized to [0,1] by dividing by 255.
func (t grayThumbnail) meanAbsDiff(other grayThumbnail) float64 {
	if len(t.pixels) == 0 || len(t.pixels) != len(other.pixels) {
		return 1.0
	}
	var total float64
	for i, p := range t.pixels {
		d := p - other.pixels[i]
		if d < 0 {
			d = -d
		}
		total += d
	}
	return total / (float64(len(t.pixels)) * 255.0)
}

// computeAverageHash builds a 64-bit average hash: downscale to 8x8
// grayscale, threshold each pixel against the mean.
func computeAverageHash(img image.Image) AverageHash {
	thumb := newGrayThumbnail(img, 8)
	mean := thumb.mean()

	var hash uint64
	for i, p := range thumb.pixels {
		if p > mean {
			hash |= 1 << uint(i)
		}
	}
	return AverageHash(hash)
}
