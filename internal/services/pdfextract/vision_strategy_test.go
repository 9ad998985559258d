package pdfextract

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResizeToPNG_DownscalesWideImage(t *testing.T) {
	raw := encodeTestPNG(t, 3000, 1500)
	resized, err := resizeToPNG(raw)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(resized))
	require.NoError(t, err)
	assert.Equal(t, maxVisionImageWidth, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())
}

func TestResizeToPNG_LeavesSmallImageWidthUnchanged(t *testing.T) {
	raw := encodeTestPNG(t, 200, 100)
	resized, err := resizeToPNG(raw)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(resized))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}
