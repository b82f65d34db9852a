// Package labels maps detector category names to the class ids the detector reports.
package labels

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// coco is the 80-class COCO list in model output order.
var coco = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat", "traffic light",
	"fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard", "cell phone",
	"microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}

var byName = lo.SliceToMap(coco, func(name string) (string, int) {
	return name, lo.IndexOf(coco, name)
})

// Person is the class id of the "person" category.
const Person = 0

// ID returns the class id for a label, ignoring case and surrounding space.
func ID(label string) (int, bool) {
	id, ok := byName[strings.ToLower(strings.TrimSpace(label))]
	return id, ok
}

// Name returns the label for a class id, or "class <id>" when unknown.
func Name(id int) string {
	if id < 0 || id >= len(coco) {
		return fmt.Sprintf("class %d", id)
	}
	return coco[id]
}

// IDs resolves every label, failing on the first unknown one.
func IDs(names []string) ([]int, error) {
	unknown := lo.Reject(names, func(name string, _ int) bool {
		_, ok := ID(name)
		return ok
	})
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown object labels: %s", strings.Join(unknown, ", "))
	}

	return lo.Uniq(lo.Map(names, func(name string, _ int) int {
		id, _ := ID(name)
		return id
	})), nil
}
