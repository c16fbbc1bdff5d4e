// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"

	"github.com/nvr-ai/go-wildlife/images"
)

// DefaultIoUThreshold is the overlap at or above which boxes are suppressed.
const DefaultIoUThreshold = 0.45

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// IoUThreshold is the overlap at or above which a box is suppressed.
	IoUThreshold float32
	// ClassAware restricts suppression to boxes of the same class. The
	// default (false) suppresses across classes: a high-confidence box of
	// one species removes an overlapping box of another.
	ClassAware bool
}

// DefaultNMSConfig returns class-agnostic NMS at DefaultIoUThreshold.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{IoUThreshold: DefaultIoUThreshold}
}

// ApplyNMS performs greedy Non-Maximum Suppression.
//
// Detections are stably sorted by descending confidence. The best remaining
// detection is kept and every remaining detection whose IoU with it is >=
// the threshold is dropped, until none remain. Cost is O(n²).
//
// Arguments:
//   - detections: Unordered detections. The slice is not modified.
//   - config: NMS configuration. Nil means DefaultNMSConfig; a threshold
//     that is not in (0, 1] means DefaultIoUThreshold.
//
// Returns:
//   - DetectionSet: The kept detections, confidence-descending. Empty input
//     yields an empty, non-nil set.
func ApplyNMS(detections []Detection, config *NMSConfig) DetectionSet {
	if config == nil {
		config = DefaultNMSConfig()
	}
	threshold := config.IoUThreshold
	if !(threshold > 0 && threshold <= 1) {
		threshold = DefaultIoUThreshold
	}

	n := len(detections)
	sorted := make([]Detection, n)
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make(DetectionSet, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		kept = append(kept, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && anchor.ClassID != sorted[j].ClassID {
				continue
			}
			if images.CalculateIoU(anchor.BBox, sorted[j].BBox) >= threshold {
				used[j] = true
			}
		}
	}

	return kept
}
