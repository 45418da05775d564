package faceemotion

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gradientPNG encodes a w x h RGB image with a diagonal gradient.
func gradientPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x + y) * 255 / (w + h - 2))
			img.Set(x, y, color.RGBA{R: v, G: v / 2, B: 255 - v, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPreprocessShapeAndRange(t *testing.T) {
	for _, size := range [][2]int{{48, 48}, {200, 120}, {10, 300}, {64, 64}} {
		input, err := Preprocess(gradientPNG(t, size[0], size[1]))
		require.NoError(t, err, "size %v", size)
		require.Len(t, input, InputSize*InputSize)

		for _, v := range input {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, float32(1))
		}
	}
}

func TestPreprocessDeterministic(t *testing.T) {
	raw := gradientPNG(t, 97, 53)

	a, err := Preprocess(raw)
	require.NoError(t, err)
	b, err := Preprocess(raw)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestPreprocessJPEG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 256)
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	input, err := Preprocess(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, input, InputSize*InputSize)
}

func TestPreprocessDecodeError(t *testing.T) {
	for _, raw := range [][]byte{[]byte("definitely not an image"), {0x89, 'P', 'N', 'G'}} {
		_, err := Preprocess(raw)
		assert.ErrorIs(t, err, ErrDecode)
	}
}

func TestEqualizeSpreadsLevels(t *testing.T) {
	// half the pixels at 100, half at 110: equalization pushes them apart
	gray := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range gray.Pix {
		if i%2 == 0 {
			gray.Pix[i] = 100
		} else {
			gray.Pix[i] = 110
		}
	}

	equalize(gray)

	levels := map[uint8]int{}
	for _, p := range gray.Pix {
		levels[p]++
	}
	require.Len(t, levels, 2)
	assert.Equal(t, 512, levels[0])
	assert.Equal(t, 512, levels[255])
}

func TestEqualizeTooFewPixelsUntouched(t *testing.T) {
	// 2x2 image: step rounds down to zero
	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(gray.Pix, []uint8{10, 20, 30, 40})

	equalize(gray)

	assert.Equal(t, []uint8{10, 20, 30, 40}, gray.Pix)
}

func TestEqualizeSingleLevelUntouched(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range gray.Pix {
		gray.Pix[i] = 77
	}

	equalize(gray)

	for _, p := range gray.Pix {
		assert.Equal(t, uint8(77), p)
	}
}

func TestToGrayLuma(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 255, 0, 255})
	img.Set(2, 0, color.RGBA{0, 0, 255, 255})

	gray := toGray(img)

	// 0.299 R + 0.587 G + 0.114 B
	assert.InDelta(t, 76, gray.Pix[0], 1)
	assert.InDelta(t, 150, gray.Pix[1], 1)
	assert.InDelta(t, 29, gray.Pix[2], 1)
}
