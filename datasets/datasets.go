package datasets

import "errors"

// This package loads labeled text for the classifier and holds the embedded
// (text already encoded) form of a dataset.
//
// Layout and intended usage:
//
// TextDataset
//   - Reads a two-column CSV (free-text message, category) eagerly; the files
//     in question are small enough to keep in memory.
//   - Column headers are normalized and renamed (message -> text,
//     category -> target) before validation.
//   - Category strings are mapped to dense integer labels by a LabelEncoder.
//
// EmbeddedDataset
//   - Row-aligned embedding vectors and integer labels produced by running a
//     TextDataset (or the inline toy sentences) through an embedder.
//   - Batches can be flattened and converted into gomlx tensors.

// ErrInvalidData is returned when input data is missing or malformed. It is
// raised before any embedding or training work begins.
var ErrInvalidData = errors.New("invalid input data")

// Example is one labeled text row.
type Example struct {
	Text     string
	Category string
	Label    int
}

// Dataset is implemented by both dataset types in this package.
type Dataset interface {
	Len() int
	Labels() []int
}

// ClassCounts returns how many rows of d carry each label in [0, numClasses).
// Labels outside that range are ignored.
func ClassCounts(d Dataset, numClasses int) []int {
	counts := make([]int, numClasses)
	for _, l := range d.Labels() {
		if l >= 0 && l < numClasses {
			counts[l]++
		}
	}
	return counts
}
