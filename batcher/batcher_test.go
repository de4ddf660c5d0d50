package batcher

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rows builds n one-dimensional rows whose single feature equals the row
// index, with label = index % 3.
func rows(n int) ([][]float32, []int) {
	features := make([][]float32, n)
	labels := make([]int, n)
	for i := range n {
		features[i] = []float32{float32(i)}
		labels[i] = i % 3
	}
	return features, labels
}

// epochOrder drains one epoch and returns the concatenated indices.
func epochOrder(t *testing.T, b *Batcher) ([]int, int) {
	t.Helper()
	var order []int
	count := 0
	for i, batch := range b.Epoch() {
		require.Equal(t, count, i)
		require.Equal(t, b.BatchSize(), batch.Len())
		for j, idx := range batch.Indices {
			require.Equal(t, float32(idx), batch.Features[j][0])
			require.Equal(t, idx%3, batch.Labels[j])
		}
		order = append(order, batch.Indices...)
		count++
	}
	return order, count
}

func TestEpochCoversEveryRowWhenDivisible(t *testing.T) {
	features, labels := rows(96)
	b, err := New(features, labels, WithBatchSize(16), WithSeed(5))
	require.NoError(t, err)

	order, batches := epochOrder(t, b)
	assert.Equal(t, 6, batches)
	assert.Equal(t, 6, b.BatchesPerEpoch())

	sort.Ints(order)
	for i, idx := range order {
		require.Equal(t, i, idx, "row %d missing or repeated", i)
	}
}

func TestEpochDropsRemainder(t *testing.T) {
	features, labels := rows(10)
	b, err := New(features, labels, WithBatchSize(3))
	require.NoError(t, err)

	order, batches := epochOrder(t, b)
	assert.Equal(t, 3, batches)
	assert.Len(t, order, 9)

	seen := map[int]bool{}
	for _, idx := range order {
		require.False(t, seen[idx], "index %d repeated", idx)
		seen[idx] = true
	}

	// exhaustion rewound the cursor onto a fresh permutation of all rows
	assert.Equal(t, 0, b.pointer)
	perm := append([]int{}, b.indices...)
	sort.Ints(perm)
	for i, idx := range perm {
		require.Equal(t, i, idx)
	}

	next, batches := epochOrder(t, b)
	assert.Equal(t, 3, batches)
	assert.Len(t, next, 9)
}

func TestNextSignalsExhaustionOnce(t *testing.T) {
	features, labels := rows(4)
	b, err := New(features, labels, WithBatchSize(2))
	require.NoError(t, err)

	_, ok := b.Next()
	assert.True(t, ok)
	_, ok = b.Next()
	assert.True(t, ok)
	_, ok = b.Next()
	assert.False(t, ok)

	// immediately ready for the next epoch
	batch, ok := b.Next()
	assert.True(t, ok)
	assert.Equal(t, 2, batch.Len())
}

func TestSameSeedSameOrder(t *testing.T) {
	features, labels := rows(200)

	a, err := New(features, labels, WithBatchSize(8), WithSeed(42))
	require.NoError(t, err)
	b, err := New(features, labels, WithBatchSize(8), WithSeed(42))
	require.NoError(t, err)

	orderA, _ := epochOrder(t, a)
	orderB, _ := epochOrder(t, b)
	assert.Equal(t, orderA, orderB)

	c, err := New(features, labels, WithBatchSize(8), WithSeed(43))
	require.NoError(t, err)
	orderC, _ := epochOrder(t, c)
	assert.NotEqual(t, orderA, orderC)
}

func TestDefaultsMatchExplicitOptions(t *testing.T) {
	features, labels := rows(100)

	d, err := New(features, labels)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, d.BatchSize())

	e, err := New(features, labels, WithBatchSize(32), WithSeed(123))
	require.NoError(t, err)

	orderD, _ := epochOrder(t, d)
	orderE, _ := epochOrder(t, e)
	assert.Equal(t, orderD, orderE)
}

func TestEpochsAreReshuffled(t *testing.T) {
	features, labels := rows(500)
	b, err := New(features, labels, WithBatchSize(10))
	require.NoError(t, err)

	first, _ := epochOrder(t, b)
	second, _ := epochOrder(t, b)
	require.Len(t, second, len(first))
	assert.NotEqual(t, first, second)
}

func TestPrivateGeneratorIsIsolated(t *testing.T) {
	features, labels := rows(64)
	a, err := New(features, labels, WithBatchSize(4), WithSeed(9))
	require.NoError(t, err)
	first, _ := epochOrder(t, a)

	// other consumers of randomness must not disturb the traversal order
	_ = rand.Intn(1000)
	rand.Shuffle(10, func(i, j int) {})
	other, err := New(features, labels, WithBatchSize(4), WithSeed(1))
	require.NoError(t, err)

	b, err := New(features, labels, WithBatchSize(4), WithSeed(9))
	require.NoError(t, err)
	_, _ = epochOrder(t, other)
	again, _ := epochOrder(t, b)
	assert.Equal(t, first, again)
}

func TestBreakLeavesCursorMidEpoch(t *testing.T) {
	features, labels := rows(12)
	b, err := New(features, labels, WithBatchSize(3))
	require.NoError(t, err)

	for i := range b.Epoch() {
		if i == 1 {
			break
		}
	}
	rest, batches := epochOrder(t, b)
	assert.Equal(t, 2, batches)
	assert.Len(t, rest, 6)
}

func TestBatchTensors(t *testing.T) {
	features, labels := rows(6)
	b, err := New(features, labels, WithBatchSize(3))
	require.NoError(t, err)

	batch, ok := b.Next()
	require.True(t, ok)
	x, y, err := batch.Tensors()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, x.Shape().Dimensions)
	assert.Equal(t, []int{3}, y.Shape().Dimensions)

	want := make([]int32, len(batch.Labels))
	for i, l := range batch.Labels {
		want[i] = int32(l)
	}
	assert.Equal(t, want, y.Value())
}

func TestNewRejectsBadShapes(t *testing.T) {
	features, labels := rows(5)

	_, err := New(features, labels[:4])
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = New(nil, nil)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = New([][]float32{{1, 2}, {3}}, []int{0, 1}, WithBatchSize(1))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = New(features, labels, WithBatchSize(0))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = New(features, labels, WithBatchSize(6))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
