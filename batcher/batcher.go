// Package batcher draws fixed-size mini-batches from a row-aligned
// feature/label dataset, reshuffling the row order at the start of every
// epoch with a generator owned by the Batcher.
//
// An epoch is truncated to whole batches: when fewer than BatchSize rows are
// left in the current permutation, Next reshuffles, rewinds and reports
// exhaustion instead of returning the short batch. Those leftover rows are
// skipped for that epoch only; the fresh permutation covers every row again.
package batcher

import (
	"errors"
	"fmt"
	"iter"
	"math/rand"

	"github.com/Noofbiz/textClassifier/datasets"
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

const (
	DefaultBatchSize       = 32
	DefaultSeed      int64 = 123
)

// ErrShapeMismatch is returned by New when features and labels are not
// row-aligned or the batch size cannot be served by the dataset.
var ErrShapeMismatch = errors.New("batcher: shape mismatch")

// Batch is one mini-batch. Feature rows alias the rows passed to New.
type Batch struct {
	Indices  []int
	Features [][]float32
	Labels   []int
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int { return len(b.Indices) }

// Tensors converts the batch into a float32 [batch, dim] feature tensor and
// an int32 [batch] label tensor.
func (b Batch) Tensors() (*tensors.Tensor, *tensors.Tensor, error) {
	flat, err := datasets.MakeBatchFlat(b.Features, b.Labels)
	if err != nil {
		return nil, nil, err
	}
	return flat.ToGomlxTensors()
}

// Batcher is not safe for concurrent use.
type Batcher struct {
	features  [][]float32
	labels    []int
	batchSize int
	seed      int64

	indices []int
	pointer int
	rng     *rand.Rand
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithBatchSize sets the number of rows per batch.
func WithBatchSize(n int) Option {
	return func(b *Batcher) { b.batchSize = n }
}

// WithSeed sets the seed of the Batcher's private generator.
func WithSeed(seed int64) Option {
	return func(b *Batcher) { b.seed = seed }
}

// New builds a Batcher over features and labels and shuffles the first
// epoch. It fails when the row counts differ, rows have different widths,
// or the batch size is outside [1, rows].
func New(features [][]float32, labels []int, opts ...Option) (*Batcher, error) {
	if len(features) != len(labels) {
		return nil, fmt.Errorf("%w: %d feature rows but %d labels", ErrShapeMismatch, len(features), len(labels))
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrShapeMismatch)
	}
	dim := len(features[0])
	for i, row := range features {
		if len(row) != dim {
			return nil, fmt.Errorf("%w: row %d has width %d, expected %d", ErrShapeMismatch, i, len(row), dim)
		}
	}

	b := &Batcher{
		features:  features,
		labels:    labels,
		batchSize: DefaultBatchSize,
		seed:      DefaultSeed,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.batchSize < 1 || b.batchSize > len(features) {
		return nil, fmt.Errorf("%w: batch size %d must be in [1, %d]", ErrShapeMismatch, b.batchSize, len(features))
	}

	b.rng = rand.New(rand.NewSource(b.seed))
	b.indices = make([]int, len(features))
	for i := range b.indices {
		b.indices[i] = i
	}
	b.shuffle()
	return b, nil
}

func (b *Batcher) shuffle() {
	b.rng.Shuffle(len(b.indices), func(i, j int) {
		b.indices[i], b.indices[j] = b.indices[j], b.indices[i]
	})
}

// Next returns the next batch of the current epoch. When the remaining rows
// cannot fill a batch it starts a new permutation and returns false; the
// following call yields the first batch of the new epoch.
func (b *Batcher) Next() (Batch, bool) {
	if b.pointer+b.batchSize > len(b.indices) {
		b.shuffle()
		b.pointer = 0
		return Batch{}, false
	}

	window := b.indices[b.pointer : b.pointer+b.batchSize]
	b.pointer += b.batchSize

	batch := Batch{
		Indices:  make([]int, len(window)),
		Features: make([][]float32, len(window)),
		Labels:   make([]int, len(window)),
	}
	// window is overwritten by the next shuffle, so the indices are copied
	copy(batch.Indices, window)
	for i, idx := range window {
		batch.Features[i] = b.features[idx]
		batch.Labels[i] = b.labels[idx]
	}
	return batch, true
}

// Epoch returns the batches remaining in the current epoch together with
// their position. Stopping the range early leaves the cursor mid-epoch.
func (b *Batcher) Epoch() iter.Seq2[int, Batch] {
	return func(yield func(int, Batch) bool) {
		for i := 0; ; i++ {
			batch, ok := b.Next()
			if !ok {
				return
			}
			if !yield(i, batch) {
				return
			}
		}
	}
}

// Len returns the number of rows.
func (b *Batcher) Len() int { return len(b.indices) }

// BatchSize returns the configured batch size.
func (b *Batcher) BatchSize() int { return b.batchSize }

// BatchesPerEpoch returns floor(rows / batch size).
func (b *Batcher) BatchesPerEpoch() int { return len(b.indices) / b.batchSize }
