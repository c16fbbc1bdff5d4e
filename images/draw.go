//go:build !gocv

package images

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Annotate returns a copy of img with every annotation drawn as an outlined
// rectangle and a label above it. The source image is not modified.
//
// Arguments:
//   - img: The image to draw on.
//   - anns: The boxes to draw, in source-image pixel space.
//
// Returns:
//   - image.Image: The annotated copy.
//   - error: Always nil for this renderer.
func Annotate(img image.Image, anns []Annotation) (image.Image, error) {
	dc := gg.NewContextForImage(img)
	dc.SetFontFace(truetype.NewFace(labelFont, &truetype.Options{Size: annotationFontSize}))
	dc.SetLineWidth(annotationLineWidth)

	for _, a := range anns {
		r := a.Box.ToRect()
		dc.SetColor(a.Color())
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()
		dc.DrawString(a.Label, float64(r.Min.X), float64(r.Min.Y-annotationLabelOffset))
	}

	return dc.Image(), nil
}

// SaveAnnotated encodes img to path, choosing the format from the extension.
func SaveAnnotated(path string, img image.Image) error {
	return imaging.Save(img, path)
}
