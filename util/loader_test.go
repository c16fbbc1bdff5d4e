package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-wildlife/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	}
}

func basenames(imgs []*images.Image) []string {
	out := make([]string, len(imgs))
	for i, img := range imgs {
		out[i] = filepath.Base(img.Path)
	}
	return out
}

func TestLoadDirectoryImageFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"frame-10.jpg", "frame-2.jpg", "frame-1.png",
		"zebra.webp", "cat.JPEG", "notes.txt", "owl.bmp",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o700))

	imgs, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"frame-1.png", "frame-2.jpg", "frame-10.jpg", "cat.JPEG", "owl.bmp", "zebra.webp"},
		basenames(imgs))

	assert.Equal(t, images.FormatPNG, imgs[0].Format)
	assert.Equal(t, images.FormatJPEG, imgs[3].Format)
	assert.Equal(t, images.FormatWebP, imgs[5].Format)
	assert.Equal(t, []byte("frame-1.png"), imgs[0].Data)
}

func TestLoadDirectoryImageFilesSkipsAnnotatedCopies(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "owl.jpg", "owl_detected.jpg", "fox.webp", "fox_detected.jpg", "detected.png")

	imgs, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"detected.png", "fox.webp", "owl.jpg"}, basenames(imgs))
}

func TestLoadDirectoryImageFilesMissing(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadPaths(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.jpg", "a.png")

	single := filepath.Join(t.TempDir(), "single.jpg")
	require.NoError(t, os.WriteFile(single, []byte("x"), 0o600))

	imgs, err := LoadPaths([]string{single, dir})
	require.NoError(t, err)
	assert.Equal(t, []string{"single.jpg", "a.png", "b.jpg"}, basenames(imgs))

	_, err = LoadPaths([]string{filepath.Join(dir, "missing.jpg")})
	var loadErr *images.ImageLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Path, "missing.jpg")
}
