//go:build gocv

package images

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Annotate returns a copy of img with every annotation drawn using OpenCV.
//
// Arguments:
//   - img: The image to draw on.
//   - anns: The boxes to draw, in source-image pixel space.
//
// Returns:
//   - image.Image: The annotated copy.
//   - error: An error if the image cannot be converted to or from a Mat.
func Annotate(img image.Image, anns []Annotation) (image.Image, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer mat.Close()

	for _, a := range anns {
		c := bgr(a.Color())
		r := a.Box.ToRect()
		gocv.Rectangle(&mat, r, c, annotationLineWidth)
		gocv.PutText(&mat, a.Label, image.Pt(r.Min.X, r.Min.Y-annotationLabelOffset),
			gocv.FontHersheySimplex, 0.5, c, annotationLineWidth)
	}

	out, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert mat to image: %w", err)
	}
	return out, nil
}

// SaveAnnotated encodes img to path, choosing the format from the extension.
func SaveAnnotated(path string, img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer mat.Close()

	if ok := gocv.IMWrite(path, mat); !ok {
		return fmt.Errorf("failed to write annotated image to %s", path)
	}
	return nil
}

// Mats are BGR, so swap the channels of the palette colors.
func bgr(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.B, G: c.G, B: c.R, A: c.A}
}
