// Package evaluate scores a classifier on a held-out set: argmax decisions,
// a confusion matrix and a per-class precision/recall/F1 report.
package evaluate

import (
	"fmt"
	"strconv"
)

// Predictor returns one probability distribution per input row. It must not
// apply any training-time randomness.
type Predictor interface {
	Predict(x [][]float32) ([][]float32, error)
}

// Result bundles the outputs of Evaluate.
type Result struct {
	Predicted []int
	Confusion *ConfusionMatrix
	Report    *Report
}

// Evaluate runs p once over x and compares the argmax decisions with truth.
// classNames fixes the number of classes; when nil it is inferred from the
// labels and predictions.
func Evaluate(p Predictor, x [][]float32, truth []int, classNames []string) (*Result, error) {
	if len(x) != len(truth) {
		return nil, fmt.Errorf("evaluate: %d rows but %d labels", len(x), len(truth))
	}
	probs, err := p.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("evaluate: predict: %w", err)
	}
	if len(probs) != len(x) {
		return nil, fmt.Errorf("evaluate: predictor returned %d rows for %d inputs", len(probs), len(x))
	}
	predicted := Argmax(probs)

	if classNames == nil {
		classNames = defaultNames(truth, predicted)
	}
	cm, err := NewConfusionMatrix(truth, predicted, classNames)
	if err != nil {
		return nil, err
	}
	return &Result{
		Predicted: predicted,
		Confusion: cm,
		Report:    NewReport(cm),
	}, nil
}

// Argmax returns the index of the largest value of each row. Ties go to the
// lowest index; an empty row yields -1.
func Argmax(probs [][]float32) []int {
	out := make([]int, len(probs))
	for r, row := range probs {
		best := -1
		for j, v := range row {
			if best < 0 || v > row[best] {
				best = j
			}
		}
		out[r] = best
	}
	return out
}

func defaultNames(labelSets ...[]int) []string {
	n := 0
	for _, labels := range labelSets {
		for _, l := range labels {
			n = max(n, l+1)
		}
	}
	names := make([]string, n)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}
