package postprocess

import (
	"math/rand/v2"
	"testing"

	"github.com/nvr-ai/go-wildlife/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func det(classID int, name string, conf float32, box images.Box) Detection {
	return Detection{ClassID: classID, ClassName: name, Confidence: conf, IsAnimal: classID >= 14 && classID <= 23, BBox: box}
}

func TestApplyNMSKeepsHighestOfOverlappingPair(t *testing.T) {
	// IoU = 90 / 110 ≈ 0.818
	a := det(16, "dog", 0.7, images.Box{0, 0, 100, 100})
	b := det(16, "dog", 0.9, images.Box{0, 10, 100, 100})
	require.Greater(t, images.CalculateIoU(a.BBox, b.BBox), float32(0.8))

	kept := ApplyNMS([]Detection{a, b}, DefaultNMSConfig())
	require.Len(t, kept, 1)
	assert.Equal(t, b, kept[0])
}

func TestApplyNMSSuppressesAcrossClasses(t *testing.T) {
	// Suppression is global: an overlapping box of a different class is
	// removed unless ClassAware is set.
	cat := det(15, "cat", 0.8, images.Box{10, 10, 110, 110})
	dog := det(16, "dog", 0.6, images.Box{12, 12, 112, 112})

	kept := ApplyNMS([]Detection{dog, cat}, nil)
	require.Len(t, kept, 1)
	assert.Equal(t, "cat", kept[0].ClassName)

	kept = ApplyNMS([]Detection{dog, cat}, &NMSConfig{IoUThreshold: DefaultIoUThreshold, ClassAware: true})
	require.Len(t, kept, 2)
	assert.Equal(t, "cat", kept[0].ClassName)
	assert.Equal(t, "dog", kept[1].ClassName)
}

func TestApplyNMSThresholdIsInclusive(t *testing.T) {
	// IoU = 50 / 150 = 1/3
	a := det(0, "person", 0.9, images.Box{0, 0, 100, 100})
	b := det(0, "person", 0.8, images.Box{50, 0, 150, 100})
	iou := images.CalculateIoU(a.BBox, b.BBox)

	assert.Len(t, ApplyNMS([]Detection{a, b}, &NMSConfig{IoUThreshold: iou}), 1)
	assert.Len(t, ApplyNMS([]Detection{a, b}, &NMSConfig{IoUThreshold: iou + 0.01}), 2)
}

func TestApplyNMSEdgeCases(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		kept := ApplyNMS(nil, nil)
		assert.NotNil(t, kept)
		assert.Empty(t, kept)
	})

	t.Run("disjoint boxes are all kept in confidence order", func(t *testing.T) {
		in := []Detection{
			det(14, "bird", 0.3, images.Box{0, 0, 10, 10}),
			det(15, "cat", 0.9, images.Box{100, 100, 110, 110}),
			det(16, "dog", 0.6, images.Box{200, 200, 210, 210}),
		}
		kept := ApplyNMS(in, nil)
		require.Len(t, kept, 3)
		assert.Equal(t, []string{"cat", "dog", "bird"}, []string{kept[0].ClassName, kept[1].ClassName, kept[2].ClassName})
		assert.Equal(t, "bird", in[0].ClassName, "input must not be reordered")
	})

	t.Run("equal confidences keep input order", func(t *testing.T) {
		in := []Detection{
			det(17, "horse", 0.5, images.Box{0, 0, 10, 10}),
			det(18, "sheep", 0.5, images.Box{0, 0, 10, 10}),
		}
		kept := ApplyNMS(in, nil)
		require.Len(t, kept, 1)
		assert.Equal(t, "horse", kept[0].ClassName)
	})

	t.Run("zero-area boxes do not suppress", func(t *testing.T) {
		in := []Detection{
			det(19, "cow", 0.9, images.Box{5, 5, 5, 5}),
			det(19, "cow", 0.8, images.Box{5, 5, 5, 5}),
		}
		assert.Len(t, ApplyNMS(in, nil), 2)
	})
}

func TestApplyNMSProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))

	for round := 0; round < 50; round++ {
		n := rng.IntN(40)
		in := make([]Detection, n)
		for i := range in {
			x, y := rng.Float32()*500, rng.Float32()*500
			w, h := 10+rng.Float32()*150, 10+rng.Float32()*150
			in[i] = det(rng.IntN(80), "x", rng.Float32(), images.Box{x, y, x + w, y + h})
		}

		kept := ApplyNMS(in, DefaultNMSConfig())
		assert.LessOrEqual(t, len(kept), len(in))

		for i, k := range kept {
			assert.Contains(t, in, k, "kept detections must come from the input")
			if i > 0 {
				assert.GreaterOrEqual(t, kept[i-1].Confidence, k.Confidence)
			}
			for _, other := range kept[i+1:] {
				assert.Less(t, images.CalculateIoU(k.BBox, other.BBox), float32(DefaultIoUThreshold))
			}
		}
	}
}

func TestApplyNMSInvalidThresholdUsesDefault(t *testing.T) {
	disjoint := []Detection{
		det(15, "cat", 0.9, images.Box{0, 0, 10, 10}),
		det(16, "dog", 0.8, images.Box{100, 100, 110, 110}),
	}
	// IoU ≈ 0.818, above the default threshold.
	overlapping := []Detection{
		det(16, "dog", 0.9, images.Box{0, 10, 100, 100}),
		det(16, "dog", 0.7, images.Box{0, 0, 100, 100}),
	}

	for _, cfg := range []*NMSConfig{{}, {IoUThreshold: -1}, {IoUThreshold: 2}} {
		assert.Len(t, ApplyNMS(disjoint, cfg), 2, "threshold %v", cfg.IoUThreshold)
		assert.Len(t, ApplyNMS(overlapping, cfg), 1, "threshold %v", cfg.IoUThreshold)
	}
}
