package faceemotion

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// InputSize is the width and height of the model input.
const InputSize = 64

// Preprocess turns encoded image bytes into the model input:
//
//	decode -> 8-bit grayscale -> histogram equalization -> 64x64 -> scale to [0, 1]
//
// The result is row-major, len InputSize*InputSize, i.e. a single-sample
// batch of shape (1, 64, 64, 1) flattened. Same bytes in, same floats out.
func Preprocess(raw []byte) ([]float32, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrDecode, format)
	}

	gray := toGray(img)
	equalize(gray)
	small := resize(gray, InputSize, InputSize)

	input := make([]float32, 0, InputSize*InputSize)
	for y := 0; y < InputSize; y++ {
		row := small.Pix[y*small.Stride : y*small.Stride+InputSize]
		for _, p := range row {
			input = append(input, float32(p)/255)
		}
	}
	return input, nil
}

// toGray converts with the ITU-R 601-2 luma transform (color.GrayModel).
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// equalize flattens the histogram of gray in place.
//
// The lookup table is built the classic way: step is the pixel count
// without the last non-empty bin, divided by 255; each level maps to the
// cumulative count before it (plus half a step) over step. Images with a
// single level or a zero step are left untouched.
func equalize(gray *image.Gray) {
	var hist [256]int
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for _, p := range gray.Pix[(y-b.Min.Y)*gray.Stride : (y-b.Min.Y)*gray.Stride+b.Dx()] {
			hist[p]++
		}
	}

	total, last, levels := 0, 0, 0
	for _, h := range hist {
		if h > 0 {
			total += h
			last = h
			levels++
		}
	}
	if levels <= 1 {
		return
	}

	step := (total - last) / 255
	if step == 0 {
		return
	}

	var lut [256]uint8
	n := step / 2
	for i := range lut {
		lut[i] = uint8(min(n/step, 255))
		n += hist[i]
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride : (y-b.Min.Y)*gray.Stride+b.Dx()]
		for x, p := range row {
			row[x] = lut[p]
		}
	}
}

// resize scales with Catmull-Rom (bicubic) interpolation.
func resize(src *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
