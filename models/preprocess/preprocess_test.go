package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/nvr-ai/go-wildlife/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// solidImage returns a width x height image filled with c.
func solidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// createTestJPEGImage creates a JPEG with a gradient pattern.
func createTestJPEGImage(t testing.TB, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / width),
				G: uint8((y * 255) / height),
				B: uint8(((x + y) * 255) / (width + height)),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}), "JPEG encoding should succeed")
	return buf.Bytes()
}

// at reads the tensor value for channel c at canvas pixel (x, y).
func at(t *testing.T, d *tensor.Dense, c, x, y int) float32 {
	t.Helper()
	v, err := d.At(0, c, y, x)
	require.NoError(t, err)
	return v.(float32)
}

func TestPreprocessLetterbox(t *testing.T) {
	p := NewPreprocessor(DefaultConfig())
	red := color.NRGBA{R: 255, G: 0, B: 0, A: 255}

	result, err := p.Preprocess(solidImage(1280, 720, red))
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 3, 640, 640}, result.Tensor.Shape())
	assert.Equal(t, tensor.Float32, result.Tensor.Dtype())
	assert.Equal(t, 1280, result.OriginalWidth)
	assert.Equal(t, 720, result.OriginalHeight)

	lb := result.Letterbox
	assert.InDelta(t, 0.5, lb.Scale, 1e-6)
	assert.Equal(t, 0, lb.PadX)
	assert.Equal(t, 140, lb.PadY)
	assert.Equal(t, 640, lb.NewWidth)
	assert.Equal(t, 360, lb.NewHeight)

	gray := float32(114) / 255

	// Padding rows above and below the content.
	for _, y := range []int{0, 139, 500, 639} {
		for c := 0; c < 3; c++ {
			assert.InDelta(t, gray, at(t, result.Tensor, c, 320, y), 1e-6, "pad c=%d y=%d", c, y)
		}
	}

	// Content rows keep the source color, channel-first RGB.
	for _, y := range []int{141, 320, 498} {
		assert.InDelta(t, 1.0, at(t, result.Tensor, 0, 320, y), 0.01)
		assert.InDelta(t, 0.0, at(t, result.Tensor, 1, 320, y), 0.01)
		assert.InDelta(t, 0.0, at(t, result.Tensor, 2, 320, y), 0.01)
	}
}

func TestPreprocessMarkerMapsBack(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		mx, my, size  int
	}{
		{name: "downscale", width: 1280, height: 720, mx: 400, my: 300, size: 2},
		{name: "upscale", width: 320, height: 180, mx: 100, my: 50, size: 1},
		{name: "portrait", width: 480, height: 960, mx: 250, my: 700, size: 2},
	}

	p := NewPreprocessor(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := solidImage(tt.width, tt.height, color.NRGBA{A: 255})
			for y := tt.my; y < tt.my+tt.size; y++ {
				for x := tt.mx; x < tt.mx+tt.size; x++ {
					img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
				}
			}

			result, err := p.Preprocess(img)
			require.NoError(t, err)

			// Brightest red-channel pixel inside the content area.
			lb := result.Letterbox
			bestX, bestY, best := -1, -1, float32(-1)
			for y := lb.PadY; y < lb.PadY+lb.NewHeight; y++ {
				for x := lb.PadX; x < lb.PadX+lb.NewWidth; x++ {
					if v := at(t, result.Tensor, 0, x, y); v > best {
						bestX, bestY, best = x, y, v
					}
				}
			}
			require.Greater(t, best, float32(0.2), "marker must survive the resize")

			sx, sy := lb.Invert(float32(bestX)+0.5, float32(bestY)+0.5)
			center := float32(tt.size) / 2
			assert.InDelta(t, float32(tt.mx)+center, sx, 1.0)
			assert.InDelta(t, float32(tt.my)+center, sy, 1.0)
		})
	}
}

func TestPreprocessValueRange(t *testing.T) {
	p := NewPreprocessor(nil)

	result, err := p.PreprocessImage(images.NewImage("g.jpg", createTestJPEGImage(t, 800, 600)))
	require.NoError(t, err)

	data := result.Tensor.Data().([]float32)
	assert.Len(t, data, 3*640*640)
	for _, v := range data {
		if v < 0 || v > 1 {
			t.Fatalf("value %v outside [0, 1]", v)
		}
	}

	assert.InDelta(t, 0.8, result.Letterbox.Scale, 1e-6)
	assert.Equal(t, 80, result.Letterbox.PadY)
}

func TestPreprocessBGR(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ColorMode = ColorModeBGR
	p := NewPreprocessor(cfg)

	result, err := p.Preprocess(solidImage(64, 64, color.NRGBA{R: 255, G: 128, B: 0, A: 255}))
	require.NoError(t, err)

	assert.InDelta(t, 0.0, at(t, result.Tensor, 0, 320, 320), 0.01)
	assert.InDelta(t, 128.0/255, at(t, result.Tensor, 1, 320, 320), 0.01)
	assert.InDelta(t, 1.0, at(t, result.Tensor, 2, 320, 320), 0.01)
}

func TestPreprocessCustomSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputSize = 320
	p := NewPreprocessor(cfg)
	assert.Equal(t, 320, p.InputSize())

	result, err := p.Preprocess(solidImage(100, 400, color.NRGBA{A: 255}))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 3, 320, 320}, result.Tensor.Shape())
	assert.Equal(t, 80, result.Letterbox.NewWidth)
	assert.Equal(t, 120, result.Letterbox.PadX)
}

func TestPreprocessErrors(t *testing.T) {
	p := NewPreprocessor(nil)

	_, err := p.Preprocess(image.NewNRGBA(image.Rect(0, 0, 0, 10)))
	var loadErr *images.ImageLoadError
	require.ErrorAs(t, err, &loadErr)

	_, err = p.PreprocessImage(images.NewImage("x.jpg", []byte("garbage")))
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "x.jpg", loadErr.Path)
}

func TestNewPreprocessorDefaults(t *testing.T) {
	p := NewPreprocessor(&Config{})
	assert.Equal(t, DefaultInputSize, p.InputSize())
	assert.Equal(t, DefaultLetterboxColor, p.config.LetterboxColor)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{InputSize: 0}).Validate())
	assert.Error(t, (&Config{InputSize: 640, ColorMode: ColorMode(9)}).Validate())
}
