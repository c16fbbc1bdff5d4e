package images

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Letterbox describes an aspect-preserving resize of a WxH image into a
// square SxS canvas. The resized content is centered and the remainder is
// padding.
type Letterbox struct {
	// Size is the side S of the square canvas.
	Size int `json:"size"`
	// Scale is min(S/W, S/H). Always > 0.
	Scale float32 `json:"scale"`
	// NewWidth and NewHeight are the resized content dimensions.
	NewWidth  int `json:"new_width"`
	NewHeight int `json:"new_height"`
	// PadX and PadY are the offsets of the content inside the canvas. Always >= 0.
	PadX int `json:"pad_x"`
	PadY int `json:"pad_y"`
}

// NewLetterbox computes the letterbox geometry for a WxH source and side S.
//
// Arguments:
//   - width: Source width, must be > 0.
//   - height: Source height, must be > 0.
//   - size: Canvas side, must be > 0.
//
// Returns:
//   - Letterbox: scale = min(S/W, S/H), new = round(dim*scale) (at least one
//     pixel), pad = floor((S-new)/2).
//   - error: When any dimension is not positive.
//
// @example
// lb, _ := NewLetterbox(1280, 720, 640) // Scale 0.5, PadX 0, PadY 140
func NewLetterbox(width, height, size int) (Letterbox, error) {
	if width <= 0 || height <= 0 {
		return Letterbox{}, fmt.Errorf("invalid source dimensions: %dx%d", width, height)
	}
	if size <= 0 {
		return Letterbox{}, fmt.Errorf("invalid letterbox size: %d", size)
	}

	s := float32(size)
	scale := math32.Min(s/float32(width), s/float32(height))

	newW := max(1, min(size, int(math32.Floor(float32(width)*scale+0.5))))
	newH := max(1, min(size, int(math32.Floor(float32(height)*scale+0.5))))

	return Letterbox{
		Size:      size,
		Scale:     scale,
		NewWidth:  newW,
		NewHeight: newH,
		PadX:      (size - newW) / 2,
		PadY:      (size - newH) / 2,
	}, nil
}

// Forward maps a point from source-image space into letterboxed space.
func (l Letterbox) Forward(x, y float32) (float32, float32) {
	return x*l.Scale + float32(l.PadX), y*l.Scale + float32(l.PadY)
}

// Invert maps a point from letterboxed space back to source-image space.
// Points in the padding map outside the source and must be clipped by the caller.
func (l Letterbox) Invert(x, y float32) (float32, float32) {
	return (x - float32(l.PadX)) / l.Scale, (y - float32(l.PadY)) / l.Scale
}

// InvertBox maps a corner-form box from letterboxed space back to source space.
func (l Letterbox) InvertBox(b Box) Box {
	x1, y1 := l.Invert(b[0], b[1])
	x2, y2 := l.Invert(b[2], b[3])
	return Box{x1, y1, x2, y2}
}
