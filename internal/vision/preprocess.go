package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// DefaultInputSize is the square resolution the supplement network was trained on.
const DefaultInputSize = 224

// Preprocess resizes img to size x size and returns a 1x3xHxW float32 tensor in RGB channel
// order with values scaled to [0,1]. No mean/std normalisation is applied.
func Preprocess(img image.Image, size int) []float32 {
	if size <= 0 {
		size = DefaultInputSize
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := dst.PixOffset(x, y)
			i := y*size + x
			out[i] = float32(dst.Pix[off]) / 255
			out[plane+i] = float32(dst.Pix[off+1]) / 255
			out[2*plane+i] = float32(dst.Pix[off+2]) / 255
		}
	}
	return out
}

// Argmax returns the index of the largest score; the first maximum wins. It returns -1 for
// an empty slice.
func Argmax(scores []float32) int {
	best := -1
	for i, v := range scores {
		if best < 0 || v > scores[best] {
			best = i
		}
	}
	return best
}
