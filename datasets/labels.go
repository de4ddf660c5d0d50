package datasets

import (
	"fmt"
	"sort"
)

// LabelEncoder maps category strings onto the dense range [0, Len()). Classes
// are sorted so the mapping does not depend on row order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder fits an encoder on the distinct values of categories.
func NewLabelEncoder(categories []string) (*LabelEncoder, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: no categories to encode", ErrInvalidData)
	}
	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, c := range categories {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		classes = append(classes, c)
	}
	sort.Strings(classes)

	e := &LabelEncoder{
		classes: classes,
		index:   make(map[string]int, len(classes)),
	}
	for i, c := range classes {
		e.index[c] = i
	}
	return e, nil
}

// Len returns the number of classes.
func (e *LabelEncoder) Len() int { return len(e.classes) }

// Classes returns a copy of the class names ordered by label.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}

// Transform converts categories into labels.
func (e *LabelEncoder) Transform(categories []string) ([]int, error) {
	labels := make([]int, len(categories))
	for i, c := range categories {
		l, ok := e.index[c]
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidData, c)
		}
		labels[i] = l
	}
	return labels, nil
}

// Inverse returns the category for a label.
func (e *LabelEncoder) Inverse(label int) (string, error) {
	if label < 0 || label >= len(e.classes) {
		return "", fmt.Errorf("label %d out of range [0, %d)", label, len(e.classes))
	}
	return e.classes[label], nil
}
