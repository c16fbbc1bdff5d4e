package images

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

func encodePNG(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		img  *Image
		w, h int
	}{
		{name: "jpeg", img: NewImage("a.jpg", encodeJPEG(t, 64, 48)), w: 64, h: 48},
		{name: "png", img: NewImage("b.png", encodePNG(t, 31, 17)), w: 31, h: 17},
		{name: "format from header", img: &Image{Data: encodePNG(t, 5, 7)}, w: 5, h: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(tt.img)
			require.NoError(t, err)
			assert.Equal(t, tt.w, decoded.Bounds().Dx())
			assert.Equal(t, tt.h, decoded.Bounds().Dy())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		img    *Image
		reason string
	}{
		{name: "nil", img: nil, reason: "nil"},
		{name: "empty", img: &Image{Path: "empty.jpg"}, reason: "empty"},
		{name: "corrupt", img: NewImage("corrupt.jpg", []byte("definitely not an image")), reason: "decode failed"},
		{name: "truncated", img: NewImage("cut.png", encodePNG(t, 10, 10)[:20]), reason: "decode failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(tt.img)
			assert.Nil(t, decoded)

			var loadErr *ImageLoadError
			require.ErrorAs(t, err, &loadErr)
			assert.Contains(t, loadErr.Reason, tt.reason)
			if tt.img != nil {
				assert.Equal(t, tt.img.Path, loadErr.Path)
			}
		})
	}
}

func TestCheckDimensions(t *testing.T) {
	assert.Nil(t, CheckDimensions(image.NewGray(image.Rect(0, 0, 1, 1))))
	assert.NotNil(t, CheckDimensions(image.NewGray(image.Rect(0, 0, 0, 10))))
	assert.NotNil(t, CheckDimensions(image.NewGray(image.Rect(0, 0, 10, 0))))
	assert.NotNil(t, CheckDimensions(nil))
}

func TestImageLoadError(t *testing.T) {
	inner := assert.AnError
	err := &ImageLoadError{Path: "x.jpg", Reason: "decode failed", Err: inner}
	assert.Equal(t, "could not load image from x.jpg: decode failed: "+inner.Error(), err.Error())
	assert.ErrorIs(t, err, inner)

	assert.Equal(t, "could not load image: image is nil", (&ImageLoadError{Reason: "image is nil"}).Error())
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJPEG, FormatFromPath("/a/b.JPG"))
	assert.Equal(t, FormatJPEG, FormatFromPath("b.jpeg"))
	assert.Equal(t, FormatPNG, FormatFromPath("b.png"))
	assert.Equal(t, FormatWebP, FormatFromPath("b.webp"))
	assert.Equal(t, FormatBMP, FormatFromPath("b.bmp"))
	assert.Equal(t, ImageFormat(""), FormatFromPath("b.gif"))
	assert.Equal(t, ImageFormat(""), FormatFromPath(""))

	assert.True(t, IsSupportedExtension(".jpg"))
	assert.False(t, IsSupportedExtension(".txt"))
}
