package evaluate

import (
	"fmt"
	"strings"
)

// ClassMetrics holds precision, recall and F1 for one class or an average.
type ClassMetrics struct {
	Name      string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarizes a confusion matrix. Undefined ratios (zero denominators)
// are reported as 0.
type Report struct {
	Classes     []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Total       int
}

// NewReport derives per-class and averaged metrics from cm.
func NewReport(cm *ConfusionMatrix) *Report {
	n := len(cm.Classes)
	r := &Report{Classes: make([]ClassMetrics, n), Total: cm.Total()}

	for k := range n {
		tp := cm.Counts[k][k]
		predicted, support := 0, 0
		for i := range n {
			predicted += cm.Counts[i][k]
			support += cm.Counts[k][i]
		}
		m := ClassMetrics{
			Name:      cm.Classes[k],
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes[k] = m
	}

	r.Accuracy = ratio(cm.Correct(), r.Total)
	r.MacroAvg = ClassMetrics{Name: "macro avg", Support: r.Total}
	r.WeightedAvg = ClassMetrics{Name: "weighted avg", Support: r.Total}
	for _, m := range r.Classes {
		r.MacroAvg.Precision += m.Precision / float64(n)
		r.MacroAvg.Recall += m.Recall / float64(n)
		r.MacroAvg.F1 += m.F1 / float64(n)
		if r.Total > 0 {
			w := float64(m.Support) / float64(r.Total)
			r.WeightedAvg.Precision += m.Precision * w
			r.WeightedAvg.Recall += m.Recall * w
			r.WeightedAvg.F1 += m.F1 * w
		}
	}
	return r
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// String renders the report as a fixed-width table.
func (r *Report) String() string {
	width := len("weighted avg")
	for _, m := range r.Classes {
		width = max(width, len(m.Name))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		writeRow(&sb, width, m)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	writeRow(&sb, width, r.MacroAvg)
	writeRow(&sb, width, r.WeightedAvg)
	return sb.String()
}

func writeRow(sb *strings.Builder, width int, m ClassMetrics) {
	fmt.Fprintf(sb, "%*s %9.2f %9.2f %9.2f %9d\n", width, m.Name, m.Precision, m.Recall, m.F1, m.Support)
}
