package models

// UnknownClassName is reported for class ids outside the table.
const UnknownClassName = "unknown"

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
	// Animal marks the species the alerting pipeline cares about.
	Animal bool
}

// ClassTable is a fixed, ordered set of output classes.
type ClassTable struct {
	// Class set identifier.
	Style ModelFamily
	// Classes that are supported and mappable, indexed by class id.
	Classes []OutputClass
	// nameToIdx for fast lookup by name
	nameToIdx map[string]int
}

// NewClassTable builds a table from names in model output order. Every id in
// animals is flagged as an animal species.
func NewClassTable(style ModelFamily, names []string, animals ...int) *ClassTable {
	flag := make(map[int]bool, len(animals))
	for _, id := range animals {
		flag[id] = true
	}

	t := &ClassTable{
		Style:     style,
		Classes:   make([]OutputClass, len(names)),
		nameToIdx: make(map[string]int, len(names)),
	}
	for i, name := range names {
		t.Classes[i] = OutputClass{Index: i, Name: name, Animal: flag[i]}
		t.nameToIdx[name] = i
	}
	return t
}

// Len returns the number of classes, C in the [1, 4+C, N] output contract.
func (t *ClassTable) Len() int {
	return len(t.Classes)
}

// Name returns the class name for id, or UnknownClassName.
func (t *ClassTable) Name(id int) string {
	if id < 0 || id >= len(t.Classes) {
		return UnknownClassName
	}
	return t.Classes[id].Name
}

// IsAnimal reports whether id is one of the flagged animal species.
func (t *ClassTable) IsAnimal(id int) bool {
	if id < 0 || id >= len(t.Classes) {
		return false
	}
	return t.Classes[id].Animal
}

// Index returns the class id for name.
func (t *ClassTable) Index(name string) (int, bool) {
	idx, ok := t.nameToIdx[name]
	return idx, ok
}

// Animals returns the animal classes in id order.
func (t *ClassTable) Animals() []OutputClass {
	var out []OutputClass
	for _, c := range t.Classes {
		if c.Animal {
			out = append(out, c)
		}
	}
	return out
}

// AnimalClassIDs are the COCO ids of the species of interest:
// bird, cat, dog, horse, sheep, cow, elephant, bear, zebra, giraffe.
var AnimalClassIDs = []int{14, 15, 16, 17, 18, 19, 20, 21, 22, 23}

// yoloClassNames is the 80-class COCO taxonomy in YOLO output order (no background).
var yoloClassNames = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// YOLOClasses is the fixed 80-entry table used by the decoder.
var YOLOClasses = NewClassTable(ModelFamilyYOLO, yoloClassNames, AnimalClassIDs...)
