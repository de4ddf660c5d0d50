package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// EmbeddedDataset is a row-aligned embedding matrix and label vector. The
// matrix is not copied and must not be modified after construction.
type EmbeddedDataset struct {
	features [][]float32
	labels   []int
	dim      int
}

// NewEmbeddedDataset validates that features and labels are aligned and that
// every row has the same width.
func NewEmbeddedDataset(features [][]float32, labels []int) (*EmbeddedDataset, error) {
	if len(features) != len(labels) {
		return nil, fmt.Errorf("%w: %d embedding rows but %d labels", ErrInvalidData, len(features), len(labels))
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no embedded examples", ErrInvalidData)
	}
	dim := len(features[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: embeddings have zero width", ErrInvalidData)
	}
	for i, row := range features {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: inconsistent embedding width at row %d: expected %d, got %d",
				ErrInvalidData, i, dim, len(row))
		}
	}
	return &EmbeddedDataset{features: features, labels: labels, dim: dim}, nil
}

// Len returns the number of rows.
func (d *EmbeddedDataset) Len() int { return len(d.labels) }

// Dim returns the embedding width.
func (d *EmbeddedDataset) Dim() int { return d.dim }

// Features returns the embedding matrix.
func (d *EmbeddedDataset) Features() [][]float32 { return d.features }

// Labels returns the label vector.
func (d *EmbeddedDataset) Labels() []int { return d.labels }

// Example returns a single row by index.
func (d *EmbeddedDataset) Example(idx int) ([]float32, int, error) {
	if idx < 0 || idx >= len(d.labels) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", idx, len(d.labels))
	}
	return d.features[idx], d.labels[idx], nil
}

// Batch gathers rows by index.
func (d *EmbeddedDataset) Batch(indices []int) ([][]float32, []int, error) {
	inputs := make([][]float32, len(indices))
	labels := make([]int, len(indices))
	for i, idx := range indices {
		in, l, err := d.Example(idx)
		if err != nil {
			return nil, nil, err
		}
		inputs[i] = in
		labels[i] = l
	}
	return inputs, labels, nil
}

// BatchFlat stores a batch in flat contiguous buffers
type BatchFlat struct {
	Inputs    []float32
	Labels    []int32
	BatchSize int
	InputDim  int
}

// MakeBatchFlat flattens a batch into contiguous buffers
func MakeBatchFlat(inputs [][]float32, labels []int) (*BatchFlat, error) {
	if len(inputs) != len(labels) {
		return nil, fmt.Errorf("inputs and labels batch sizes don't match: %d != %d", len(inputs), len(labels))
	}
	if len(inputs) == 0 {
		return &BatchFlat{}, nil
	}

	batchSize := len(inputs)
	inputDim := len(inputs[0])

	flatInputs := make([]float32, batchSize*inputDim)
	flatLabels := make([]int32, batchSize)
	for i := range batchSize {
		if len(inputs[i]) != inputDim {
			return nil, fmt.Errorf("inconsistent input dimensions at example %d: expected %d, got %d",
				i, inputDim, len(inputs[i]))
		}
		copy(flatInputs[i*inputDim:], inputs[i])
		flatLabels[i] = int32(labels[i])
	}

	return &BatchFlat{
		Inputs:    flatInputs,
		Labels:    flatLabels,
		BatchSize: batchSize,
		InputDim:  inputDim,
	}, nil
}

// ToGomlxTensors converts the batch into a float32 [batch, dim] input tensor
// and an int32 [batch] label tensor.
func (b *BatchFlat) ToGomlxTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	if b.BatchSize == 0 || b.InputDim == 0 {
		return nil, nil, fmt.Errorf("%w: cannot build tensors from an empty batch", ErrInvalidData)
	}
	inT := tensors.FromFlatDataAndDimensions(b.Inputs, b.BatchSize, b.InputDim)
	labT := tensors.FromFlatDataAndDimensions(b.Labels, b.BatchSize)
	return inT, labT, nil
}
