// Package postprocess - Postprocessing utilities for models.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-wildlife/images"
)

// Detection is a single decoded object in original-image pixel space.
type Detection struct {
	// The predicted class index.
	ClassID int `json:"class_id"`
	// The human-readable class label.
	ClassName string `json:"class_name"`
	// The confidence score in [0, 1].
	Confidence float32 `json:"confidence"`
	// IsAnimal marks the species of interest.
	IsAnimal bool `json:"is_animal"`
	// BBox is [x1, y1, x2, y2], clipped to the original image.
	BBox images.Box `json:"bbox"`
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %s (confidence %f): %s", d.ClassName, d.Confidence, d.BBox)
}

// Annotation converts the detection into a drawable box.
func (d Detection) Annotation() images.Annotation {
	return images.Annotation{
		Box:       d.BBox,
		Label:     images.Label(d.ClassName, d.Confidence),
		Highlight: d.IsAnimal,
	}
}

// DetectionSet is the ranked output of NMS: confidence-descending and
// pairwise non-redundant.
type DetectionSet []Detection

// Annotations converts every detection into a drawable box.
func (s DetectionSet) Annotations() []images.Annotation {
	out := make([]images.Annotation, len(s))
	for i, d := range s {
		out[i] = d.Annotation()
	}
	return out
}

// Candidate is one anchor row that passed the confidence filter, still in
// letterboxed center-form coordinates.
type Candidate struct {
	ClassID    int
	Confidence float32
	CX, CY     float32
	W, H       float32
}

// Box returns the candidate in corner form, still in letterboxed space.
func (c Candidate) Box() images.Box {
	return images.FromCenter(c.CX, c.CY, c.W, c.H)
}
