package images

import (
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "dog: 0.87", Label("dog", 0.8749))
	assert.Equal(t, "teddy bear: 1.00", Label("teddy bear", 0.999))
}

func TestAnnotationColor(t *testing.T) {
	assert.Equal(t, AnimalColor, Annotation{Highlight: true}.Color())
	assert.Equal(t, OtherColor, Annotation{}.Color())
}

func TestAnnotatedPath(t *testing.T) {
	assert.Equal(t, "/data/cam/feeder_detected.jpg", AnnotatedPath("/data/cam/feeder.jpg", "/tmp"))
	assert.Equal(t, "shot_detected.png", AnnotatedPath("shot.png", "/tmp"))
	assert.Equal(t, "/data/x_detected.jpg", AnnotatedPath("/data/x.webp", "/tmp"))

	generated := AnnotatedPath("", "/out")
	assert.Equal(t, "/out", filepath.Dir(generated))
	assert.True(t, strings.HasSuffix(generated, "_detected.jpg"))
	assert.NotEqual(t, generated, AnnotatedPath("", "/out"))
}

func TestIsAnnotatedPath(t *testing.T) {
	assert.True(t, IsAnnotatedPath(AnnotatedPath("/data/cam/feeder.jpg", "")))
	assert.True(t, IsAnnotatedPath(AnnotatedPath("", "/out")))
	assert.True(t, IsAnnotatedPath("shot_detected.PNG"))
	assert.False(t, IsAnnotatedPath("/data/cam/feeder.jpg"))
	assert.False(t, IsAnnotatedPath("detected.jpg"))
	assert.False(t, IsAnnotatedPath("/data/x_detected/owl.jpg"))
}

func TestAnnotate(t *testing.T) {
	src := imaging.New(200, 100, color.NRGBA{R: 0, G: 0, B: 0, A: 255})

	out, err := Annotate(src, []Annotation{
		{Box: Box{20, 30, 120, 90}, Label: Label("cat", 0.9), Highlight: true},
		{Box: Box{150, 10, 190, 50}, Label: Label("car", 0.4)},
	})
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), out.Bounds())

	// The left edge of the animal box is drawn in green.
	r, g, b, _ := out.At(20, 60).RGBA()
	assert.Greater(t, g>>8, uint32(128))
	assert.Less(t, r>>8, uint32(64))
	assert.Less(t, b>>8, uint32(64))

	// The source is left untouched.
	r, g, b, _ = src.At(20, 60).RGBA()
	assert.Zero(t, r|g|b)

	// The box interior is not filled.
	r, g, b, _ = out.At(70, 60).RGBA()
	assert.Zero(t, r|g|b)
}

func TestSaveAnnotated(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	path := filepath.Join(t.TempDir(), "a_detected.png")

	require.NoError(t, SaveAnnotated(path, img))

	loaded, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), loaded.Bounds())

	assert.Error(t, SaveAnnotated(filepath.Join(t.TempDir(), "a.unknown"), img))
}
