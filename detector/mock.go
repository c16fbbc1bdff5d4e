package detector

import (
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/nvr-ai/go-wildlife/images"
	"github.com/nvr-ai/go-wildlife/models"
	"github.com/nvr-ai/go-wildlife/models/postprocess"
)

// Mock output bounds.
const (
	MockMaxDetections = 3
	MockMinConfidence = 0.5
	MockMaxConfidence = 0.98
)

// MockPalette is the set of species the mock backend reports.
var MockPalette = []string{"cat", "dog", "bird", "cow", "horse", "sheep"}

// MockBackend produces synthetic animal detections without a model. It
// exercises the downstream alerting path on hosts where no model can be
// loaded.
type MockBackend struct {
	mu      sync.Mutex
	rng     *rand.Rand
	classes *models.ClassTable
}

// NewMockBackend returns a mock driven by rng. A nil rng is seeded randomly.
func NewMockBackend(rng *rand.Rand) *MockBackend {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &MockBackend{rng: rng, classes: models.YOLOClasses}
}

// Detect returns between 0 and MockMaxDetections detections. Detection i
// has box [100i, 100i, 200+100i, 200+100i], a palette class and a uniform
// confidence in [MockMinConfidence, MockMaxConfidence]. The set is ordered
// by descending confidence.
func (m *MockBackend) Detect() postprocess.DetectionSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.rng.IntN(MockMaxDetections + 1)
	set := make(postprocess.DetectionSet, 0, n)

	for i := 0; i < n; i++ {
		name := MockPalette[m.rng.IntN(len(MockPalette))]
		id, ok := m.classes.Index(name)
		if !ok {
			id = 0
		}

		offset := float32(100 * i)
		set = append(set, postprocess.Detection{
			ClassID:    id,
			ClassName:  name,
			Confidence: MockMinConfidence + m.rng.Float32()*(MockMaxConfidence-MockMinConfidence),
			IsAnimal:   true,
			BBox:       images.Box{offset, offset, 200 + offset, 200 + offset},
		})
	}

	sort.SliceStable(set, func(i, j int) bool {
		return set[i].Confidence > set[j].Confidence
	})
	return set
}
