package evaluate

import "fmt"

// ConfusionMatrix counts decisions; Counts[t][p] is the number of rows with
// true label t predicted as p.
type ConfusionMatrix struct {
	Classes []string
	Counts  [][]int
}

// NewConfusionMatrix tallies truth against predicted.
func NewConfusionMatrix(truth, predicted []int, classes []string) (*ConfusionMatrix, error) {
	if len(truth) != len(predicted) {
		return nil, fmt.Errorf("evaluate: %d labels but %d predictions", len(truth), len(predicted))
	}
	n := len(classes)
	cm := &ConfusionMatrix{Classes: classes, Counts: make([][]int, n)}
	for i := range cm.Counts {
		cm.Counts[i] = make([]int, n)
	}
	for i := range truth {
		t, p := truth[i], predicted[i]
		if t < 0 || t >= n || p < 0 || p >= n {
			return nil, fmt.Errorf("evaluate: row %d has label %d / prediction %d outside [0, %d)", i, t, p, n)
		}
		cm.Counts[t][p]++
	}
	return cm, nil
}

// At returns the count of true label t predicted as p.
func (c *ConfusionMatrix) At(t, p int) int { return c.Counts[t][p] }

// Correct returns the diagonal sum.
func (c *ConfusionMatrix) Correct() int {
	sum := 0
	for i := range c.Counts {
		sum += c.Counts[i][i]
	}
	return sum
}

// Total returns the number of tallied rows.
func (c *ConfusionMatrix) Total() int {
	sum := 0
	for _, row := range c.Counts {
		for _, v := range row {
			sum += v
		}
	}
	return sum
}
