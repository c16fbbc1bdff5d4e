package images

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var (
	// AnimalColor outlines detections of animal classes.
	AnimalColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	// OtherColor outlines every other detection.
	OtherColor = color.RGBA{R: 255, G: 165, B: 0, A: 255}
)

const (
	// annotationLineWidth is the rectangle stroke width in pixels.
	annotationLineWidth = 2
	// annotationLabelOffset is how far above the box the label baseline sits.
	annotationLabelOffset = 10
	// annotationFontSize is the label font size in points.
	annotationFontSize = 13
)

// Annotation is one box to draw onto an image.
type Annotation struct {
	Box       Box
	Label     string
	Highlight bool
}

// Color returns the outline color for the annotation.
func (a Annotation) Color() color.RGBA {
	if a.Highlight {
		return AnimalColor
	}
	return OtherColor
}

// annotatedSuffix is appended to the base name of annotated copies.
const annotatedSuffix = "_detected"

// Label formats the text drawn above a box, e.g. "dog: 0.87".
func Label(name string, confidence float32) string {
	return fmt.Sprintf("%s: %.2f", name, confidence)
}

// AnnotatedPath picks where the annotated copy of an image is written.
//
// When srcPath is known the copy sits beside it as <base>_detected<ext>;
// extensions the encoder cannot write (e.g. .webp) become .jpg. Otherwise a
// random name is generated inside outputDir.
func AnnotatedPath(srcPath, outputDir string) string {
	if srcPath != "" {
		ext := filepath.Ext(srcPath)
		base := strings.TrimSuffix(srcPath, ext)
		if _, err := imaging.FormatFromExtension(ext); err != nil {
			ext = ".jpg"
		}
		return base + annotatedSuffix + ext
	}
	return filepath.Join(outputDir, uuid.NewString()+annotatedSuffix+".jpg")
}

// IsAnnotatedPath reports whether path names an annotated copy.
func IsAnnotatedPath(path string) bool {
	return strings.HasSuffix(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), annotatedSuffix)
}
