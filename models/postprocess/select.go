package postprocess

// NoneClassName is reported by SelectPrimary for an empty set.
const NoneClassName = "none"

// Primary is the single detection that drives alerting.
type Primary struct {
	ClassName  string  `json:"class_name"`
	Confidence float32 `json:"confidence"`
}

// NoDetection is the sentinel returned for an empty DetectionSet.
var NoDetection = Primary{ClassName: NoneClassName, Confidence: 0}

// IsNone reports whether p is the empty-set sentinel.
func (p Primary) IsNone() bool {
	return p.ClassName == NoneClassName
}

// SelectPrimary picks the detection used for alert decisions.
//
// The highest-confidence animal wins. If there are no animals the
// highest-confidence detection of any class wins. An empty set yields
// NoDetection. On exact ties the earliest entry is kept.
func SelectPrimary(set DetectionSet) Primary {
	if best, ok := maxConfidence(set, true); ok {
		return best
	}
	if best, ok := maxConfidence(set, false); ok {
		return best
	}
	return NoDetection
}

func maxConfidence(set DetectionSet, animalsOnly bool) (Primary, bool) {
	found := false
	var best Detection
	for _, d := range set {
		if animalsOnly && !d.IsAnimal {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	if !found {
		return Primary{}, false
	}
	return Primary{ClassName: best.ClassName, Confidence: best.Confidence}, true
}
