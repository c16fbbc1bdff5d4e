// Package images - Image processing utilities
package images

import (
	"fmt"
	"image"
	"math"

	"github.com/chewxy/math32"
)

// Box is a corner-form bounding box [x1, y1, x2, y2] in pixel space.
type Box [4]float32

// X1 returns the left edge.
func (b Box) X1() float32 { return b[0] }

// Y1 returns the top edge.
func (b Box) Y1() float32 { return b[1] }

// X2 returns the right edge.
func (b Box) X2() float32 { return b[2] }

// Y2 returns the bottom edge.
func (b Box) Y2() float32 { return b[3] }

// Width is the horizontal extent, never negative.
func (b Box) Width() float32 { return math32.Max(0, b[2]-b[0]) }

// Height is the vertical extent, never negative.
func (b Box) Height() float32 { return math32.Max(0, b[3]-b[1]) }

// Area returns the box area. Degenerate boxes have zero area.
func (b Box) Area() float32 { return b.Width() * b.Height() }

// FromCenter converts a center-form (cx, cy, w, h) box to corner form.
func FromCenter(cx, cy, w, h float32) Box {
	return Box{cx - w/2, cy - h/2, cx + w/2, cy + h/2}
}

// Clip clamps the box to [0,width]x[0,height] and reorders inverted edges so
// that x1<=x2 and y1<=y2 hold.
func (b Box) Clip(width, height int) Box {
	w, h := float32(width), float32(height)
	x1 := clamp(b[0], 0, w)
	y1 := clamp(b[1], 0, h)
	x2 := clamp(b[2], 0, w)
	y2 := clamp(b[3], 0, h)
	return Box{math32.Min(x1, x2), math32.Min(y1, y2), math32.Max(x1, x2), math32.Max(y1, y2)}
}

// ToRect converts the box to an image.Rectangle, truncating fractional
// pixels like the drawing code expects.
func (b Box) ToRect() image.Rectangle {
	return image.Rect(int(b[0]), int(b[1]), int(b[2]), int(b[3])).Canon()
}

func (b Box) String() string {
	return fmt.Sprintf("(%.2f, %.2f), (%.2f, %.2f)", b[0], b[1], b[2], b[3])
}

// CalculateIoU returns the Intersection over Union of two corner-form boxes.
//
//	intersection = max(0, min(x2)-max(x1)) * max(0, min(y2)-max(y1))
//	union        = area(r) + area(o) - intersection
//	IoU          = intersection / union, or 0 when union <= 0
//
// The union guard keeps zero-area boxes from producing NaN.
//
// Example Usage:
// ```go
//
//	r := Box{0, 0, 10, 10}
//	o := Box{5, 5, 15, 15}
//	iou := CalculateIoU(r, o) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Box) float32 {
	interW := math32.Max(0, math32.Min(r[2], o[2])-math32.Max(r[0], o[0]))
	interH := math32.Max(0, math32.Min(r[3], o[3])-math32.Max(r[1], o[1]))
	intersection := interW * interH

	union := (r[2]-r[0])*(r[3]-r[1]) + (o[2]-o[0])*(o[3]-o[1]) - intersection
	if union <= 0 || math.IsNaN(float64(union)) {
		return 0
	}
	return intersection / union
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(v, hi))
}
