package postprocess

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-wildlife/images"
	"github.com/nvr-ai/go-wildlife/models"
	"gorgonia.org/tensor"
)

// DefaultConfidenceThreshold is the minimum class score kept by the decoder.
const DefaultConfidenceThreshold = 0.25

// boxChannels is the number of leading rows holding (cx, cy, w, h).
const boxChannels = 4

// ShapeError reports a raw output tensor that does not match the
// [1, 4+C, N] float32 contract.
type ShapeError struct {
	// Got is the shape of the offending tensor.
	Got []int
	// Want describes the expected layout.
	Want string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected output tensor shape %v, want %s", e.Got, e.Want)
}

// Decoder turns the raw [1, 4+C, N] model output into detections in the
// original image's pixel space.
type Decoder struct {
	// ConfidenceThreshold drops anchors whose best class score is below it.
	ConfidenceThreshold float32
	// Classes resolves class ids to names and the animal flag.
	Classes *models.ClassTable
}

// NewDecoder returns a decoder over the YOLO taxonomy.
func NewDecoder(threshold float32) *Decoder {
	return &Decoder{
		ConfidenceThreshold: threshold,
		Classes:             models.YOLOClasses,
	}
}

// DecodeCandidates scans every anchor and returns those whose best class
// score reaches the threshold, in anchor order and letterboxed space.
//
// Arguments:
//   - out: The raw float32 tensor of shape [1, 4+C, N].
//
// Returns:
//   - []Candidate: Anchors that passed the confidence filter.
//   - error: A *ShapeError when the tensor does not match the contract.
func (d *Decoder) DecodeCandidates(out *tensor.Dense) ([]Candidate, error) {
	data, channels, anchors, err := d.view(out)
	if err != nil {
		return nil, err
	}

	numClasses := channels - boxChannels
	var candidates []Candidate

	for n := 0; n < anchors; n++ {
		bestClass, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			score := data[(boxChannels+c)*anchors+n]
			if math32.IsNaN(score) {
				continue
			}
			if bestClass < 0 || score > bestScore {
				bestScore = score
				bestClass = c
			}
		}

		// A NaN threshold never passes.
		if bestClass < 0 || !(bestScore >= d.ConfidenceThreshold) {
			continue
		}

		candidates = append(candidates, Candidate{
			ClassID:    bestClass,
			Confidence: bestScore,
			CX:         data[n],
			CY:         data[anchors+n],
			W:          data[2*anchors+n],
			H:          data[3*anchors+n],
		})
	}

	return candidates, nil
}

// Decode converts the raw output into detections.
//
// Each surviving anchor is converted to corner form, mapped back through
// the letterbox and clipped to [0, origW]x[0, origH].
//
// Arguments:
//   - out: The raw float32 tensor of shape [1, 4+C, N].
//   - lb: The letterbox used to build the model input.
//   - origW: The original image width.
//   - origH: The original image height.
//
// Returns:
//   - []Detection: Detections in anchor order, before NMS.
//   - error: A *ShapeError when the tensor does not match the contract.
func (d *Decoder) Decode(out *tensor.Dense, lb images.Letterbox, origW, origH int) ([]Detection, error) {
	candidates, err := d.DecodeCandidates(out)
	if err != nil {
		return nil, err
	}

	detections := make([]Detection, 0, len(candidates))
	for _, c := range candidates {
		box := lb.InvertBox(c.Box()).Clip(origW, origH)
		detections = append(detections, Detection{
			ClassID:    c.ClassID,
			ClassName:  d.Classes.Name(c.ClassID),
			Confidence: c.Confidence,
			IsAnimal:   d.Classes.IsAnimal(c.ClassID),
			BBox:       box,
		})
	}
	return detections, nil
}

// view validates the tensor and returns its backing data with the channel
// and anchor counts.
func (d *Decoder) view(out *tensor.Dense) ([]float32, int, int, error) {
	want := fmt.Sprintf("[1 %d N] float32", boxChannels+d.Classes.Len())
	if out == nil {
		return nil, 0, 0, &ShapeError{Want: want}
	}

	shape := out.Shape()
	if out.Dtype() != tensor.Float32 || len(shape) != 3 || shape[0] != 1 ||
		shape[1] != boxChannels+d.Classes.Len() || shape[2] < 1 {
		return nil, 0, 0, &ShapeError{Got: shape.Clone(), Want: want}
	}

	data, ok := out.Data().([]float32)
	if !ok || len(data) != shape[1]*shape[2] {
		return nil, 0, 0, &ShapeError{Got: shape.Clone(), Want: want}
	}
	return data, shape[1], shape[2], nil
}
